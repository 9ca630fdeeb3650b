package ranking

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidIndex is returned when a judge answer is not a usable option number.
	ErrInvalidIndex = errors.New("judge returned invalid index")
	// ErrJudgeTimeout is returned when a judge call exceeded its deadline.
	ErrJudgeTimeout = errors.New("judge timed out")
)

// Prompt is the context a Judge needs to choose among options.
type Prompt struct {
	Voiceover  string
	Suggestion string
	Options    []string
}

// Judge chooses one option and returns its 1-based index.
type Judge interface {
	SelectOne(ctx context.Context, prompt Prompt) (int, error)
}

// JudgeFunc adapts a function to the Judge interface.
type JudgeFunc func(ctx context.Context, prompt Prompt) (int, error)

// SelectOne calls f.
func (f JudgeFunc) SelectOne(ctx context.Context, prompt Prompt) (int, error) {
	return f(ctx, prompt)
}

// Enumerate renders options as a 1-based list, one per line.
func Enumerate(options []string) string {
	var b strings.Builder
	for i, option := range options {
		fmt.Fprintf(&b, "%d: %s\n", i+1, strings.TrimSpace(option))
	}
	return b.String()
}

// RenderDirectorPrompt builds the storyboard selection prompt sent to
// generative judges.
func RenderDirectorPrompt(p Prompt) string {
	var b strings.Builder
	b.WriteString("As the director, I select the single best image for this storyboard slot. ")
	b.WriteString("It must match the voiceover in setting, look, feel and emotional tone.\n\n")
	if s := strings.TrimSpace(p.Suggestion); s != "" {
		fmt.Fprintf(&b, "The co-director suggested %q for this scene. Treat it as a tie-breaker, not a rule.\n\n", s)
	}
	b.WriteString("Image list:\n")
	b.WriteString(Enumerate(p.Options))
	fmt.Fprintf(&b, "\nVoiceover text: %q\n\n", strings.TrimSpace(p.Voiceover))
	fmt.Fprintf(&b, "Answer with the number (1-%d) of the description that best fits the voiceover and the suggestion.", len(p.Options))
	return b.String()
}

func validIndex(choice, n int) error {
	if choice < 1 || choice > n {
		return fmt.Errorf("%w: %d not in 1..%d", ErrInvalidIndex, choice, n)
	}
	return nil
}
