package main

import (
	"encoding/json"
	"testing"

	"reelsmith/internal/plan"
)

func TestPlanCommandTable(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"plan", "--narration", "30", "--narration", "12.5"}, env.configPath)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	requireContains(t, out, "3.10 3.10 3.10 3.10")
	requireContains(t, out, "4.65 4.65 4.65 4.65")
	requireContains(t, out, "Crossfade 1.00s")
}

func TestPlanCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"--json", "plan", "--narration", "30"}, env.configPath)
	if err != nil {
		t.Fatalf("plan --json: %v", err)
	}
	var payload struct {
		Crossfade float64         `json:"crossfade_seconds"`
		Parts     []plan.PartPlan `json:"parts"`
	}
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode plan json: %v\n%s", err, out)
	}
	if len(payload.Parts) != 1 {
		t.Fatalf("expected one part, got %d", len(payload.Parts))
	}
	part := payload.Parts[0]
	if part.NumImages != 4 || part.NumVideos != 4 {
		t.Fatalf("unexpected allocation: %+v", part)
	}
	if part.SequenceSeconds != 32 {
		t.Fatalf("expected narration plus silence, got %v", part.SequenceSeconds)
	}
}

func TestPlanCommandRequiresInput(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, []string{"plan"}, env.configPath); err == nil {
		t.Fatal("expected error without narration lengths")
	}
	if _, _, err := runCLI(t, []string{"plan", "--narration=-3"}, env.configPath); err == nil {
		t.Fatal("expected error for negative narration")
	}
}
