package script

import (
	"context"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// fileScript is the hand-written script format. JSON is accepted as well
// since it is valid YAML.
type fileScript struct {
	Title      string `yaml:"title"`
	Topic      string `yaml:"topic"`
	Goal       string `yaml:"goal"`
	Paragraphs []struct {
		Text              string   `yaml:"text"`
		ImageDescriptions []string `yaml:"image_descriptions"`
		ImageTags         []string `yaml:"image_tags"`
	} `yaml:"paragraphs"`
}

// FileSource loads a script from disk instead of generating one.
type FileSource struct {
	Path     string
	Language string
}

// Generate implements Source. Request fields override empty file fields and
// Paragraphs > 0 truncates the script.
func (f FileSource) Generate(ctx context.Context, req Request) (*Script, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read script file: %w", err)
	}
	var raw fileScript
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse script file %s: %w", f.Path, err)
	}

	s := &Script{
		Title: strings.TrimSpace(raw.Title),
		Topic: firstNonEmpty(raw.Topic, req.Topic),
		Goal:  firstNonEmpty(raw.Goal, req.Goal),
	}
	for _, p := range raw.Paragraphs {
		s.Paragraphs = append(s.Paragraphs, Paragraph{
			Text:              p.Text,
			ImageDescriptions: p.ImageDescriptions,
			ImageTags:         p.ImageTags,
		})
	}
	if req.Paragraphs > 0 && len(s.Paragraphs) > req.Paragraphs {
		s.Paragraphs = s.Paragraphs[:req.Paragraphs]
	}
	if s.Title == "" {
		s.Title = Title(s.Topic, f.Language)
	}
	s.Normalize()
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("script file %s: %w", f.Path, err)
	}
	return s, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
