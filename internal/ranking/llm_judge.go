package ranking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"reelsmith/internal/services/llm"
)

// Completer is the LLM capability used by LLMJudge.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const (
	judgeSystemPrompt = `You are a film director choosing stock footage for a narrated video. ` +
		`Respond with JSON only: {"choice": <option number>}.`
	scoreSystemPrompt = `You rate image similarity from 1 to 9 in terms of emotion, people, scenery, ` +
		`setting and look/feel, allowing some imprecision. Respond with JSON only: {"scores": [<int>, ...]} ` +
		`with one score per image, in order.`
)

// LLMJudge implements Judge and Scorer with an LLM.
type LLMJudge struct {
	client Completer
}

// NewLLMJudge wraps an LLM client. The client should not retry on its own;
// the Engine's RetryPolicy owns retries.
func NewLLMJudge(client Completer) *LLMJudge {
	return &LLMJudge{client: client}
}

// SelectOne implements Judge.
func (j *LLMJudge) SelectOne(ctx context.Context, prompt Prompt) (int, error) {
	if len(prompt.Options) == 0 {
		return 0, fmt.Errorf("%w: no options", ErrInvalidIndex)
	}
	content, err := j.client.CompleteJSON(ctx, judgeSystemPrompt, RenderDirectorPrompt(prompt))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, fmt.Errorf("%w: %w", ErrJudgeTimeout, err)
		}
		return 0, err
	}
	choice, err := parseChoice(content)
	if err != nil {
		return 0, err
	}
	if err := validIndex(choice, len(prompt.Options)); err != nil {
		return 0, err
	}
	return choice, nil
}

var firstInteger = regexp.MustCompile(`\d+`)

func parseChoice(content string) (int, error) {
	var payload struct {
		Choice json.RawMessage `json:"choice"`
	}
	if err := llm.DecodeLLMJSON(content, &payload); err == nil && len(payload.Choice) > 0 {
		raw := strings.Trim(strings.TrimSpace(string(payload.Choice)), `"`)
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
			return n, nil
		}
	}
	// Some models answer with prose despite the JSON instruction.
	if match := firstInteger.FindString(content); match != "" {
		if n, err := strconv.Atoi(match); err == nil {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: unparseable answer %q", ErrInvalidIndex, summarize(content))
}

// Score implements Scorer.
func (j *LLMJudge) Score(ctx context.Context, target string, descriptions []string) ([]int, error) {
	if len(descriptions) == 0 {
		return nil, nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Target image: %q\n\nImages to rate:\n", strings.TrimSpace(target))
	b.WriteString(Enumerate(descriptions))
	content, err := j.client.CompleteJSON(ctx, scoreSystemPrompt, b.String())
	if err != nil {
		return nil, err
	}
	var payload struct {
		Scores []int `json:"scores"`
	}
	if err := llm.DecodeLLMJSON(content, &payload); err != nil {
		return nil, fmt.Errorf("decode scores: %w", err)
	}
	if len(payload.Scores) != len(descriptions) {
		return nil, fmt.Errorf("expected %d scores, got %d", len(descriptions), len(payload.Scores))
	}
	for i, s := range payload.Scores {
		payload.Scores[i] = min(max(s, 1), 9)
	}
	return payload.Scores, nil
}

func summarize(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > 80 {
		return s[:80] + "..."
	}
	return s
}
