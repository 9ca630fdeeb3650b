package script

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"reelsmith/internal/config"
	"reelsmith/internal/logging"
)

func TestTypeFor(t *testing.T) {
	got := []ParagraphType{TypeFor(0, 4), TypeFor(1, 4), TypeFor(2, 4), TypeFor(3, 4)}
	want := []ParagraphType{TypeIntro, TypeBody, TypeBody, TypeOutro}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("TypeFor(%d, 4) = %s, want %s", i, got[i], want[i])
		}
	}
	if TypeFor(0, 1) != TypeIntro {
		t.Fatal("single paragraph should be an intro")
	}
}

func TestTitle(t *testing.T) {
	if got := Title("  the joy of   unexpected encounters ", "en"); got != "The Joy Of Unexpected Encounters" {
		t.Fatalf("Title() = %q", got)
	}
	if got := Title("ocean life", "not a tag!"); got != "Ocean Life" {
		t.Fatalf("Title() with bad language = %q", got)
	}
}

func TestFileSourceLoadsYAMLAndNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.yaml")
	content := `topic: deep sea creatures
paragraphs:
  - text: "  Welcome to   the deep. "
    image_descriptions: ["Glowing jellyfish in darkness", " ", "Anglerfish with lantern"]
  - text: Life thrives under pressure.
    image_descriptions: [Submarine lights on reef]
    image_tags: [submarine]
  - text: Thanks for watching.
    image_descriptions: [Ocean surface at sunset]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := FileSource{Path: path, Language: "en"}.Generate(context.Background(), Request{Goal: "inspire curiosity", Paragraphs: 2})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if s.Title != "Deep Sea Creatures" || s.Goal != "inspire curiosity" {
		t.Fatalf("unexpected header %+v", s)
	}
	if len(s.Paragraphs) != 2 {
		t.Fatalf("expected truncation to 2 paragraphs, got %d", len(s.Paragraphs))
	}
	first := s.Paragraphs[0]
	if first.Text != "Welcome to the deep." || first.Number != 1 || first.Type != TypeIntro {
		t.Fatalf("unexpected first paragraph %+v", first)
	}
	if len(first.ImageDescriptions) != 2 {
		t.Fatalf("expected empty description dropped, got %v", first.ImageDescriptions)
	}
	if strings.Join(first.ImageTags, ",") != "glowing,jellyfish,darkness,anglerfish,lantern" {
		t.Fatalf("unexpected derived tags %v", first.ImageTags)
	}
	if s.Paragraphs[1].Type != TypeOutro || s.Paragraphs[1].ImageTags[0] != "submarine" {
		t.Fatalf("unexpected second paragraph %+v", s.Paragraphs[1])
	}
	if len(s.Descriptions()) != 3 {
		t.Fatalf("expected 3 descriptions overall, got %v", s.Descriptions())
	}
}

func TestFileSourceRejectsEmptyScript(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	if err := os.WriteFile(path, []byte(`{"topic": "x", "paragraphs": [{"text": " "}]}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := (FileSource{Path: path}).Generate(context.Background(), Request{}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestJSONRoundTripKeepsLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "script.json")
	s := &Script{Title: "T", Topic: "t", Paragraphs: []Paragraph{{Text: "a"}, {Text: "b"}}}
	s.Normalize()
	if err := WriteJSON(path, s); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	for _, key := range []string{`"paragraph_details"`, `"paragraph_number": 2`, `"paragraph_type": "outro"`} {
		if !strings.Contains(string(data), key) {
			t.Fatalf("expected %s in %s", key, data)
		}
	}
	loaded, err := ReadJSON(path)
	if err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if loaded.Paragraphs[1].Index != 1 || loaded.Paragraphs[1].Text != "b" {
		t.Fatalf("unexpected loaded paragraph %+v", loaded.Paragraphs[1])
	}
}

type scriptedCompleter struct {
	prompts []string
	fail    bool
}

func (c *scriptedCompleter) CompleteJSON(_ context.Context, _, user string) (string, error) {
	c.prompts = append(c.prompts, user)
	if c.fail {
		return "", errors.New("llm down")
	}
	n := len(c.prompts)
	return fmt.Sprintf(`{"text": "Paragraph %d narration.", "image_descriptions": ["d%d one", "d%d two", "d%d three"]}`, n, n, n, n), nil
}

func TestLLMSourceWritesIntroBodyOutro(t *testing.T) {
	settings := config.Default().Script
	settings.DescriptionsPerParagraph = 2
	client := &scriptedCompleter{}
	src := NewLLMSource(client, settings, logging.NewNop())

	s, err := src.Generate(context.Background(), Request{Topic: "mountain rescue", Goal: "honour volunteers", Paragraphs: 3})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(s.Paragraphs) != 3 || s.Title != "Mountain Rescue" {
		t.Fatalf("unexpected script %+v", s)
	}
	if !strings.Contains(client.prompts[0], "Welcome the viewer") {
		t.Fatalf("first prompt should be an intro: %s", client.prompts[0])
	}
	if !strings.Contains(client.prompts[1], "paragraph 2 of 3") || !strings.Contains(client.prompts[1], "Paragraph 1 narration.") {
		t.Fatalf("body prompt should carry position and history: %s", client.prompts[1])
	}
	if !strings.Contains(client.prompts[2], "subscribe") {
		t.Fatalf("last prompt should be an outro: %s", client.prompts[2])
	}
	for _, p := range s.Paragraphs {
		if len(p.ImageDescriptions) != 2 {
			t.Fatalf("expected descriptions capped at 2, got %v", p.ImageDescriptions)
		}
	}
}

func TestLLMSourceCapsParagraphsAndSurfacesErrors(t *testing.T) {
	settings := config.Default().Script
	settings.MaxParagraphs = 2
	client := &scriptedCompleter{}
	s, err := NewLLMSource(client, settings, nil).Generate(context.Background(), Request{Topic: "bees", Paragraphs: 9})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(s.Paragraphs) != 2 {
		t.Fatalf("expected max_paragraphs cap, got %d", len(s.Paragraphs))
	}
	if _, err := NewLLMSource(&scriptedCompleter{fail: true}, settings, nil).Generate(context.Background(), Request{Topic: "bees"}); err == nil {
		t.Fatal("expected llm error to surface")
	}
	if _, err := NewLLMSource(client, settings, nil).Generate(context.Background(), Request{}); err == nil {
		t.Fatal("expected missing topic error")
	}
}

func TestLLMSourceNamesNarrationLanguage(t *testing.T) {
	settings := config.Default().Script
	settings.Language = "de"
	client := &scriptedCompleter{}
	if _, err := NewLLMSource(client, settings, nil).Generate(context.Background(), Request{Topic: "bees", Paragraphs: 2}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(client.prompts[0], "Write the paragraph in German") {
		t.Fatalf("expected language instruction in prompt: %s", client.prompts[0])
	}

	english := &scriptedCompleter{}
	if _, err := NewLLMSource(english, config.Default().Script, nil).Generate(context.Background(), Request{Topic: "bees", Paragraphs: 2}); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if strings.Contains(english.prompts[0], "Write the paragraph in") {
		t.Fatalf("english scripts need no language instruction: %s", english.prompts[0])
	}
}
