package ranking

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"reelsmith/internal/footage"
	"reelsmith/internal/logging"
	"reelsmith/internal/services"
	"reelsmith/internal/services/llm"
	"reelsmith/internal/textutil"
)

// State is a slot's position in the selection state machine.
type State string

const (
	StatePending  State = "pending"
	StateSelected State = "selected"
	StateRetry    State = "retry"
	StateFailed   State = "failed"
)

// Selection is the ranked outcome for one slot.
type Selection struct {
	SlotKey           string            `json:"slot_key"`
	Chosen            footage.Candidate `json:"chosen"`
	TargetDescription string            `json:"target_description"`
	Attempts          int               `json:"attempts"`
	State             State             `json:"state"`
	// Fallback is set when the judge never produced a valid answer and the
	// selector's first candidate was kept.
	Fallback bool `json:"fallback,omitempty"`
}

// DescriptionCycle rotates through descriptions indefinitely. It is shared by
// all paragraphs of a run and safe for concurrent use.
type DescriptionCycle struct {
	mu    sync.Mutex
	items []string
	next  int
}

// NewDescriptionCycle builds a cycle over the non-empty descriptions.
func NewDescriptionCycle(items []string) *DescriptionCycle {
	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			cleaned = append(cleaned, item)
		}
	}
	return &DescriptionCycle{items: cleaned}
}

// Next returns the next description, or "" when the cycle is empty.
func (c *DescriptionCycle) Next() string {
	if c == nil {
		return ""
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.items) == 0 {
		return ""
	}
	item := c.items[c.next%len(c.items)]
	c.next++
	return item
}

// Engine ranks slot candidates with a Judge.
type Engine struct {
	judge   Judge
	policy  RetryPolicy
	scorer  Scorer
	cycle   *DescriptionCycle
	logger  *slog.Logger
	sleeper func(time.Duration)
}

// Option configures an Engine.
type Option func(*Engine)

// WithScorer enables similarity scoring of every candidate.
func WithScorer(scorer Scorer) Option {
	return func(e *Engine) { e.scorer = scorer }
}

// WithSleeper replaces the backoff timer (tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(e *Engine) { e.sleeper = sleeper }
}

// NewEngine constructs an Engine. cycle supplies the co-director suggestions
// for the whole run.
func NewEngine(judge Judge, policy RetryPolicy, cycle *DescriptionCycle, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		judge:  judge,
		policy: policy,
		cycle:  cycle,
		logger: logging.NewComponentLogger(logger, "ranking"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RankParagraph ranks every slot of one paragraph in order and returns the
// slots with Selected set, plus one Selection per slot that has candidates.
// Only ctx cancellation is reported as an error.
func (e *Engine) RankParagraph(ctx context.Context, paragraphIndex int, voiceover string, slots []footage.Slot) ([]footage.Slot, []Selection, error) {
	ctx = services.WithParagraph(ctx, paragraphIndex+1)
	out := make([]footage.Slot, len(slots))
	copy(out, slots)
	selections := make([]Selection, 0, len(slots))

	for i := range out {
		if len(out[i].Candidates) == 0 {
			continue
		}
		suggestion := e.cycle.Next()
		if e.scorer != nil {
			e.score(ctx, &out[i], targetFor(suggestion, out[i]))
		}
		sel, err := e.rankSlot(ctx, voiceover, out[i], suggestion)
		if err != nil {
			return out, selections, err
		}
		chosen := sel.Chosen
		out[i].Selected = &chosen
		selections = append(selections, sel)
	}
	return out, selections, nil
}

// RankSlot runs the selection state machine for one slot. The returned
// error is non-nil only when ctx is done.
func (e *Engine) RankSlot(ctx context.Context, voiceover string, slot footage.Slot) (Selection, error) {
	return e.rankSlot(ctx, voiceover, slot, e.cycle.Next())
}

// targetFor is the description a slot is judged against: the co-director
// suggestion, or the slot's search query when the cycle is empty.
func targetFor(suggestion string, slot footage.Slot) string {
	if suggestion != "" {
		return suggestion
	}
	if target := strings.TrimSpace(slot.Description); target != "" {
		return target
	}
	if len(slot.Candidates) > 0 {
		return slot.Candidates[0].TargetDescription
	}
	return ""
}

func (e *Engine) rankSlot(ctx context.Context, voiceover string, slot footage.Slot, suggestion string) (Selection, error) {
	logger := logging.WithContext(ctx, e.logger).With(logging.String(logging.FieldSlot, slot.Key))
	sel := Selection{SlotKey: slot.Key, TargetDescription: targetFor(suggestion, slot), State: StatePending}
	if len(slot.Candidates) == 0 {
		sel.State = StateFailed
		return sel, nil
	}
	if len(slot.Candidates) == 1 {
		sel.Chosen = slot.Candidates[0]
		sel.State = StateSelected
		return sel, nil
	}

	prompt := Prompt{Voiceover: voiceover, Suggestion: suggestion, Options: make([]string, len(slot.Candidates))}
	for i, c := range slot.Candidates {
		prompt.Options[i] = c.Description
	}

	maxAttempts := e.policy.attempts()
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		sel.Attempts = attempt
		choice, err := e.judge.SelectOne(ctx, prompt)
		if err == nil {
			err = validIndex(choice, len(slot.Candidates))
		}
		if err == nil {
			sel.Chosen = slot.Candidates[choice-1]
			sel.State = StateSelected
			logger.Debug("slot ranked",
				logging.Args(append(logging.DecisionAttrs("ranking", string(StateSelected), "judge choice"),
					logging.Int("choice", choice),
					logging.Int("attempts", attempt),
					logging.Int("options", len(slot.Candidates)),
				)...)...,
			)
			return sel, nil
		}
		lastErr = err
		if ctxErr := ctx.Err(); ctxErr != nil {
			return sel, ctxErr
		}
		if attempt == maxAttempts {
			break
		}
		sel.State = StateRetry
		logger.Debug("judge attempt failed",
			logging.String(logging.FieldEventType, "judge_retry"),
			logging.Int("attempt", attempt),
			logging.Error(err),
		)
		if err := llm.Sleep(ctx, e.policy.Delay(attempt), e.sleeper); err != nil {
			return sel, err
		}
	}

	sel.State = StateFailed
	sel.Chosen = slot.Candidates[0]
	sel.Fallback = true
	hint := "check llm credentials and model availability"
	if errors.Is(lastErr, ErrInvalidIndex) {
		hint = "judge answers were out of range; try a different model"
	}
	logging.WarnWithContext(logger, "ranking failed; keeping first candidate", "ranking_fallback",
		logging.Error(lastErr),
		logging.Int("attempts", sel.Attempts),
		logging.String(logging.FieldErrorHint, hint),
		logging.String(logging.FieldImpact, "slot uses unranked media"),
	)
	return sel, nil
}

func (e *Engine) score(ctx context.Context, slot *footage.Slot, target string) {
	descriptions := make([]string, len(slot.Candidates))
	for j, c := range slot.Candidates {
		descriptions[j] = c.Description
	}
	scores, err := e.scorer.Score(ctx, target, descriptions)
	if err != nil || len(scores) != len(descriptions) {
		if err == nil {
			err = errors.New("score count mismatch")
		}
		logging.WarnWithContext(logging.WithContext(ctx, e.logger), "similarity scoring failed", "similarity_failed",
			logging.String(logging.FieldSlot, slot.Key),
			logging.Error(err),
			logging.String(logging.FieldImpact, "candidates left unscored"),
		)
		return
	}
	candidates := make([]footage.Candidate, len(slot.Candidates))
	copy(candidates, slot.Candidates)
	for j := range candidates {
		candidates[j].SimilarityScore = scores[j]
		candidates[j].TargetDescription = target
	}
	slot.Candidates = candidates
	if slot.Selected != nil {
		selected := *slot.Selected
		for _, c := range candidates {
			if c.URL == selected.URL {
				selected = c
				break
			}
		}
		slot.Selected = &selected
	}
}

// Scorer rates how well each description fits a target, 1 (poor) to 9.
type Scorer interface {
	Score(ctx context.Context, target string, descriptions []string) ([]int, error)
}

// LexicalScorer scores by IDF-weighted token overlap, without network calls.
type LexicalScorer struct{}

// Score implements Scorer.
func (LexicalScorer) Score(_ context.Context, target string, descriptions []string) ([]int, error) {
	corpus := textutil.NewCorpus(append([]string{target}, descriptions...)...)
	idf := corpus.IDF()
	targetFP := textutil.NewFingerprint(target).WithIDF(idf)
	scores := make([]int, len(descriptions))
	for i, d := range descriptions {
		sim := textutil.CosineSimilarity(targetFP, textutil.NewFingerprint(d).WithIDF(idf))
		scores[i] = textutil.ScaleScore(sim, 1, 9)
	}
	return scores, nil
}
