package script

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"reelsmith/internal/config"
	"reelsmith/internal/language"
	"reelsmith/internal/logging"
	"reelsmith/internal/services/llm"
	"reelsmith/internal/textutil"
)

// Completer is the LLM capability used by LLMSource.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

const systemPrompt = "You are a video script creator. You do not introduce yourself. " +
	"Your sole purpose is to write voice narrations and matching stock image descriptions. " +
	`Respond with JSON only: {"text": "<narration>", "image_descriptions": ["..."], "image_tags": ["..."]}.`

// LLMSource writes scripts with a language model, one paragraph per call.
type LLMSource struct {
	client   Completer
	settings config.Script
	logger   *slog.Logger
}

// NewLLMSource constructs an LLMSource.
func NewLLMSource(client Completer, settings config.Script, logger *slog.Logger) *LLMSource {
	return &LLMSource{
		client:   client,
		settings: settings,
		logger:   logging.NewComponentLogger(logger, "script"),
	}
}

type paragraphReply struct {
	Text              string   `json:"text"`
	ImageDescriptions []string `json:"image_descriptions"`
	ImageTags         []string `json:"image_tags"`
}

// Generate implements Source.
func (s *LLMSource) Generate(ctx context.Context, req Request) (*Script, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, fmt.Errorf("script topic required")
	}
	total := req.Paragraphs
	if total <= 0 || (s.settings.MaxParagraphs > 0 && total > s.settings.MaxParagraphs) {
		total = s.settings.MaxParagraphs
	}
	total = max(total, 1)

	out := &Script{Title: Title(topic, s.settings.Language), Topic: topic, Goal: strings.TrimSpace(req.Goal)}
	var history []string
	for i := range total {
		kind := TypeFor(i, total)
		content, err := s.client.CompleteJSON(ctx, systemPrompt, s.paragraphPrompt(out, kind, i, total, history))
		if err != nil {
			return nil, fmt.Errorf("generate paragraph %d: %w", i+1, err)
		}
		var reply paragraphReply
		if err := llm.DecodeLLMJSON(content, &reply); err != nil {
			return nil, fmt.Errorf("decode paragraph %d: %w", i+1, err)
		}
		if strings.TrimSpace(reply.Text) == "" {
			return nil, fmt.Errorf("paragraph %d: empty narration", i+1)
		}
		if words := textutil.WordCount(reply.Text); words < s.settings.MinWords || (s.settings.MaxWords > 0 && words > s.settings.MaxWords) {
			s.logger.Debug("narration length outside target",
				logging.Int(logging.FieldParagraph, i+1),
				logging.Int("words", words),
			)
		}
		if limit := s.settings.DescriptionsPerParagraph; limit > 0 && len(reply.ImageDescriptions) > limit {
			reply.ImageDescriptions = reply.ImageDescriptions[:limit]
		}
		out.Paragraphs = append(out.Paragraphs, Paragraph{
			Text:              reply.Text,
			ImageDescriptions: reply.ImageDescriptions,
			ImageTags:         reply.ImageTags,
		})
		history = append(history, strings.TrimSpace(reply.Text))
		s.logger.Info("paragraph written",
			logging.String(logging.FieldEventType, "script_paragraph"),
			logging.Int(logging.FieldParagraph, i+1),
			logging.String("paragraph_type", string(kind)),
			logging.Int("descriptions", len(reply.ImageDescriptions)),
		)
	}
	out.Normalize()
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *LLMSource) paragraphPrompt(sc *Script, kind ParagraphType, index, total int, history []string) string {
	minWords, maxWords := s.settings.MinWords, s.settings.MaxWords
	descriptions := max(s.settings.DescriptionsPerParagraph, 1)
	previous := strings.Join(history, "\n\n")

	var b strings.Builder
	switch kind {
	case TypeIntro:
		fmt.Fprintf(&b, "I need a voice narration for the topic: %s\n", sc.Topic)
		if sc.Goal != "" {
			fmt.Fprintf(&b, "The video has the goal to %s\n", sc.Goal)
		}
		b.WriteString("Write the opening paragraph. Welcome the viewer, introduce the topic clearly and set the tone for what follows.\n")
	case TypeOutro:
		fmt.Fprintf(&b, "Conclude the video about %q with an engaging outro paragraph. ", sc.Topic)
		b.WriteString("Briefly summarize the narration so far")
		if sc.Goal != "" {
			fmt.Fprintf(&b, " and reinforce the goal of %q", sc.Goal)
		}
		b.WriteString(". Thank the viewer for watching and invite them to subscribe.\n")
		fmt.Fprintf(&b, "Narration so far: %q\n", previous)
	default:
		fmt.Fprintf(&b, "Continue the narration for the body of the video. This is paragraph %d of %d. ", index+1, total)
		fmt.Fprintf(&b, "Develop the topic %q", sc.Topic)
		if sc.Goal != "" {
			fmt.Fprintf(&b, " with the goal of %q in mind", sc.Goal)
		}
		b.WriteString(".\n")
		fmt.Fprintf(&b, "Previous text for context: %q\n", previous)
	}
	if minWords > 0 && maxWords > 0 {
		fmt.Fprintf(&b, "The paragraph must have between %d and %d words.\n", minWords, maxWords)
	}
	if lang := s.settings.Language; lang != "" && lang != "en" {
		fmt.Fprintf(&b, "Write the paragraph in %s. Keep the image descriptions and image_tags in English for the stock footage search.\n", language.DisplayName(lang))
	}
	fmt.Fprintf(&b, "Then list %d short image descriptions (about 5 words each, no punctuation) ", descriptions)
	b.WriteString("that could illustrate this paragraph with stock footage, for example \"Sunrise over serene lake\" ")
	b.WriteString("or \"Runner pushing through fatigue\". Add up to 5 one-word image_tags.\n")
	fmt.Fprintf(&b, "paragraph_type = %q\n", string(kind))
	return b.String()
}
