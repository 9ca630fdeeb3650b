package ranking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"reelsmith/internal/footage"
	"reelsmith/internal/logging"
)

func slotWith(key string, descriptions ...string) footage.Slot {
	slot := footage.Slot{Key: key, Kind: footage.KindImage, Description: "query " + key}
	for i, d := range descriptions {
		slot.Candidates = append(slot.Candidates, footage.Candidate{
			URL:         fmt.Sprintf("https://img/%s/%d", key, i),
			Description: d,
			Kind:        footage.KindImage,
		})
	}
	return slot
}

func noSleep(t *testing.T) (Option, *[]time.Duration) {
	t.Helper()
	var delays []time.Duration
	return WithSleeper(func(d time.Duration) { delays = append(delays, d) }), &delays
}

func TestRankSlotSelectsJudgeChoice(t *testing.T) {
	var seen Prompt
	judge := JudgeFunc(func(_ context.Context, p Prompt) (int, error) {
		seen = p
		return 2, nil
	})
	cycle := NewDescriptionCycle([]string{"calm lake at dawn", "busy street"})
	engine := NewEngine(judge, RetryPolicy{MaxAttempts: 5}, cycle, logging.NewNop())

	sel, err := engine.RankSlot(context.Background(), "The morning was still.", slotWith("image1", "a lake", "a street", "a forest"))
	if err != nil {
		t.Fatalf("RankSlot: %v", err)
	}
	if sel.State != StateSelected || sel.Fallback || sel.Attempts != 1 {
		t.Fatalf("unexpected selection %+v", sel)
	}
	if sel.Chosen.Description != "a street" {
		t.Fatalf("expected 1-based index 2 to map to second candidate, got %q", sel.Chosen.Description)
	}
	if sel.TargetDescription != "calm lake at dawn" || seen.Suggestion != "calm lake at dawn" {
		t.Fatalf("expected first suggestion from cycle, got %q / %q", sel.TargetDescription, seen.Suggestion)
	}
	if len(seen.Options) != 3 || seen.Voiceover != "The morning was still." {
		t.Fatalf("unexpected prompt %+v", seen)
	}
}

func TestRankSlotRetriesWithBackoffThenSucceeds(t *testing.T) {
	calls := 0
	judge := JudgeFunc(func(context.Context, Prompt) (int, error) {
		calls++
		switch calls {
		case 1:
			return 0, errors.New("transport")
		case 2:
			return 7, nil
		default:
			return 1, nil
		}
	})
	sleep, delays := noSleep(t)
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, MaxDelay: 150 * time.Millisecond}
	engine := NewEngine(judge, policy, NewDescriptionCycle(nil), nil, sleep)

	sel, err := engine.RankSlot(context.Background(), "text", slotWith("video1", "x", "y"))
	if err != nil {
		t.Fatalf("RankSlot: %v", err)
	}
	if sel.State != StateSelected || sel.Attempts != 3 || sel.Chosen.Description != "x" {
		t.Fatalf("unexpected selection %+v", sel)
	}
	want := []time.Duration{100 * time.Millisecond, 150 * time.Millisecond}
	if len(*delays) != len(want) || (*delays)[0] != want[0] || (*delays)[1] != want[1] {
		t.Fatalf("unexpected backoff delays %v", *delays)
	}
	if sel.TargetDescription != "query video1" {
		t.Fatalf("empty cycle should fall back to slot query, got %q", sel.TargetDescription)
	}
}

func TestRankSlotBoundedAttemptsThenFallback(t *testing.T) {
	calls := 0
	judge := JudgeFunc(func(context.Context, Prompt) (int, error) {
		calls++
		return 0, ErrInvalidIndex
	})
	sleep, _ := noSleep(t)
	engine := NewEngine(judge, RetryPolicy{MaxAttempts: 4}, NewDescriptionCycle([]string{"a"}), nil, sleep)

	sel, err := engine.RankSlot(context.Background(), "text", slotWith("image2", "first", "second"))
	if err != nil {
		t.Fatalf("RankSlot: %v", err)
	}
	if calls != 4 {
		t.Fatalf("expected exactly 4 judge calls, got %d", calls)
	}
	if sel.State != StateFailed || !sel.Fallback || sel.Chosen.Description != "first" {
		t.Fatalf("expected fallback to first candidate, got %+v", sel)
	}
}

func TestRankSlotDefaultPolicyAllowsFiveAttempts(t *testing.T) {
	calls := 0
	judge := JudgeFunc(func(context.Context, Prompt) (int, error) {
		calls++
		return -1, nil
	})
	engine := NewEngine(judge, RetryPolicy{}, nil, nil)
	if _, err := engine.RankSlot(context.Background(), "t", slotWith("image1", "a", "b")); err != nil {
		t.Fatalf("RankSlot: %v", err)
	}
	if calls != 5 {
		t.Fatalf("expected 5 attempts by default, got %d", calls)
	}
}

func TestRankSlotSingleCandidateSkipsJudge(t *testing.T) {
	judge := JudgeFunc(func(context.Context, Prompt) (int, error) {
		t.Fatal("judge must not be called for a single candidate")
		return 0, nil
	})
	engine := NewEngine(judge, RetryPolicy{}, NewDescriptionCycle([]string{"s"}), nil)
	sel, err := engine.RankSlot(context.Background(), "t", slotWith("image1", "only"))
	if err != nil || sel.State != StateSelected || sel.Attempts != 0 {
		t.Fatalf("unexpected selection %+v (%v)", sel, err)
	}
}

func TestRankSlotStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	judge := JudgeFunc(func(context.Context, Prompt) (int, error) {
		cancel()
		return 0, context.Canceled
	})
	engine := NewEngine(judge, RetryPolicy{MaxAttempts: 5}, nil, nil)
	if _, err := engine.RankSlot(ctx, "t", slotWith("image1", "a", "b")); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRankParagraphSetsSelectionsAndAdvancesCycle(t *testing.T) {
	var suggestions []string
	judge := JudgeFunc(func(_ context.Context, p Prompt) (int, error) {
		suggestions = append(suggestions, p.Suggestion)
		return len(p.Options), nil
	})
	cycle := NewDescriptionCycle([]string{"one", "two"})
	engine := NewEngine(judge, RetryPolicy{}, cycle, nil)
	slots := []footage.Slot{
		slotWith("image1", "a", "b"),
		{Key: "image2", Kind: footage.KindImage},
		slotWith("video1", "c", "d", "e"),
	}
	ranked, selections, err := engine.RankParagraph(context.Background(), 0, "voiceover", slots)
	if err != nil {
		t.Fatalf("RankParagraph: %v", err)
	}
	if len(selections) != 2 {
		t.Fatalf("expected 2 selections, got %d", len(selections))
	}
	if ranked[0].Selected.Description != "b" || ranked[2].Selected.Description != "e" {
		t.Fatalf("unexpected picks: %+v / %+v", ranked[0].Selected, ranked[2].Selected)
	}
	if ranked[1].Filled() {
		t.Fatal("empty slot must stay unfilled")
	}
	if slots[0].Selected != nil {
		t.Fatal("input slots must not be mutated")
	}
	if strings.Join(suggestions, ",") != "one,two" {
		t.Fatalf("unexpected suggestion sequence %v", suggestions)
	}
	if next := cycle.Next(); next != "one" {
		t.Fatalf("cycle should wrap, got %q", next)
	}
}

func TestRankParagraphAttachesScoresWithoutChangingCandidates(t *testing.T) {
	judge := JudgeFunc(func(context.Context, Prompt) (int, error) { return 1, nil })
	engine := NewEngine(judge, RetryPolicy{}, nil, nil, WithScorer(LexicalScorer{}))
	slot := slotWith("image1", "sunset over calm ocean", "busy city traffic")
	slot.Description = "calm ocean sunset"

	ranked, _, err := engine.RankParagraph(context.Background(), 0, "v", []footage.Slot{slot})
	if err != nil {
		t.Fatalf("RankParagraph: %v", err)
	}
	got := ranked[0].Candidates
	if got[0].SimilarityScore <= got[1].SimilarityScore {
		t.Fatalf("expected matching description to score higher: %d vs %d", got[0].SimilarityScore, got[1].SimilarityScore)
	}
	if got[1].SimilarityScore != 1 || got[0].TargetDescription != "calm ocean sunset" {
		t.Fatalf("unexpected scoring %+v", got)
	}
	if ranked[0].Selected.SimilarityScore != got[0].SimilarityScore {
		t.Fatal("selected candidate should carry its score")
	}
	if slot.Candidates[0].SimilarityScore != 0 {
		t.Fatal("input candidates must not be mutated")
	}
}

func TestRankParagraphScoresAgainstSuggestion(t *testing.T) {
	judge := JudgeFunc(func(context.Context, Prompt) (int, error) { return 2, nil })
	cycle := NewDescriptionCycle([]string{"calm ocean sunset"})
	engine := NewEngine(judge, RetryPolicy{}, cycle, nil, WithScorer(LexicalScorer{}))
	slot := slotWith("image1", "sunset over calm ocean", "busy city traffic")
	slot.Description = "busy city traffic"

	ranked, selections, err := engine.RankParagraph(context.Background(), 0, "v", []footage.Slot{slot})
	if err != nil {
		t.Fatalf("RankParagraph: %v", err)
	}
	got := ranked[0].Candidates
	if got[0].SimilarityScore <= got[1].SimilarityScore {
		t.Fatalf("expected the suggestion, not the query, to drive scores: %d vs %d", got[0].SimilarityScore, got[1].SimilarityScore)
	}
	if len(selections) != 1 || selections[0].TargetDescription != "calm ocean sunset" {
		t.Fatalf("unexpected selections %+v", selections)
	}
	for _, c := range got {
		if c.TargetDescription != selections[0].TargetDescription {
			t.Fatalf("candidate target %q differs from selection target %q", c.TargetDescription, selections[0].TargetDescription)
		}
	}
	if next := cycle.Next(); next != "calm ocean sunset" {
		t.Fatalf("expected one suggestion per slot, got %q", next)
	}
}

func TestRenderDirectorPromptEnumeratesOptions(t *testing.T) {
	text := RenderDirectorPrompt(Prompt{Voiceover: "v", Suggestion: "s", Options: []string{"alpha", "beta"}})
	for _, want := range []string{"1: alpha\n", "2: beta\n", `co-director suggested "s"`, "(1-2)"} {
		if !strings.Contains(text, want) {
			t.Fatalf("prompt missing %q:\n%s", want, text)
		}
	}
}
