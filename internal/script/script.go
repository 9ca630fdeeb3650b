package script

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"reelsmith/internal/textutil"
)

// ParagraphType positions a paragraph in the narrative.
type ParagraphType string

const (
	TypeIntro ParagraphType = "intro"
	TypeBody  ParagraphType = "body"
	TypeOutro ParagraphType = "outro"
)

// TypeFor returns the type of the 0-based paragraph index in a script of total paragraphs.
func TypeFor(index, total int) ParagraphType {
	switch {
	case index == 0:
		return TypeIntro
	case index == total-1:
		return TypeOutro
	default:
		return TypeBody
	}
}

// Paragraph is one narration unit.
type Paragraph struct {
	Index             int           `json:"-"`
	Number            int           `json:"paragraph_number"`
	Type              ParagraphType `json:"paragraph_type"`
	Text              string        `json:"text"`
	ImageDescriptions []string      `json:"image_descriptions"`
	ImageTags         []string      `json:"image_tags"`
}

// Script is the full narration of one video.
type Script struct {
	Title      string      `json:"title"`
	Topic      string      `json:"topic"`
	Goal       string      `json:"goal"`
	Paragraphs []Paragraph `json:"paragraph_details"`
}

// Request describes the script to produce.
type Request struct {
	Topic      string
	Goal       string
	Paragraphs int
}

// Source produces a script.
type Source interface {
	Generate(ctx context.Context, req Request) (*Script, error)
}

// Title renders a topic in title case for the given BCP 47 language tag.
func Title(topic, lang string) string {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		tag = language.English
	}
	return cases.Title(tag).String(strings.Join(strings.Fields(topic), " "))
}

// Normalize renumbers paragraphs, trims text, drops empty descriptions and
// derives image tags where none were given.
func (s *Script) Normalize() {
	for i := range s.Paragraphs {
		p := &s.Paragraphs[i]
		p.Index = i
		p.Number = i + 1
		p.Type = TypeFor(i, len(s.Paragraphs))
		p.Text = strings.Join(strings.Fields(p.Text), " ")
		p.ImageDescriptions = cleanList(p.ImageDescriptions)
		p.ImageTags = cleanList(p.ImageTags)
		if len(p.ImageTags) == 0 {
			p.ImageTags = deriveTags(p.ImageDescriptions, 5)
		}
	}
}

// Validate reports structural problems that make a script unusable.
func (s *Script) Validate() error {
	if s == nil || len(s.Paragraphs) == 0 {
		return fmt.Errorf("script has no paragraphs")
	}
	for _, p := range s.Paragraphs {
		if strings.TrimSpace(p.Text) == "" {
			return fmt.Errorf("paragraph %d has no text", p.Number)
		}
	}
	return nil
}

// Descriptions returns every paragraph's image descriptions in order.
func (s *Script) Descriptions() []string {
	var out []string
	for _, p := range s.Paragraphs {
		out = append(out, p.ImageDescriptions...)
	}
	return out
}

// WriteJSON stores v as indented JSON, creating parent directories.
func WriteJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create script directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ReadJSON loads a script previously written with WriteJSON.
func ReadJSON(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	var s Script
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode script: %w", err)
	}
	s.Normalize()
	return &s, nil
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		item = strings.Trim(strings.TrimSpace(item), `"',`)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func deriveTags(descriptions []string, limit int) []string {
	seen := make(map[string]struct{})
	var tags []string
	for _, d := range descriptions {
		for _, token := range textutil.Tokenize(d) {
			if _, ok := seen[token]; ok {
				continue
			}
			seen[token] = struct{}{}
			tags = append(tags, token)
			if len(tags) == limit {
				return tags
			}
		}
	}
	return tags
}
