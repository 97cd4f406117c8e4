package ai

import (
	"fmt"
	"strings"
	"testing"
)

func TestBuildPrompt_ModeSelectsInstruction(t *testing.T) {
	sys, _ := BuildPrompt(Request{Prompt: "hi", Mode: ModeCreator})
	if !strings.Contains(sys, "MODE: **CREATOR**") {
		t.Fatalf("creator instruction missing:\n%s", sys)
	}

	sys, _ = BuildPrompt(Request{Prompt: "hi", Mode: ModeQuestion})
	if !strings.Contains(sys, "MODE: **CONSULTANT**") {
		t.Fatalf("consultant instruction missing:\n%s", sys)
	}
	if !strings.Contains(sys, "You are Aivan") {
		t.Fatalf("base instruction missing:\n%s", sys)
	}
}

func TestBuildPrompt_EmbedsCurrentCode(t *testing.T) {
	_, full := BuildPrompt(Request{
		Prompt:      "make the header red",
		Mode:        ModeCreator,
		CurrentCode: "<html><body>v1</body></html>",
	})

	if !strings.Contains(full, "[EXISTING CODE TO MODIFY]") {
		t.Fatalf("code context block missing:\n%s", full)
	}
	if !strings.Contains(full, "<html><body>v1</body></html>") {
		t.Fatalf("current code missing:\n%s", full)
	}
	if !strings.HasSuffix(full, "make the header red") {
		t.Fatalf("request is not the final section:\n%s", full)
	}
}

func TestBuildPrompt_NoCodeNoHistory(t *testing.T) {
	_, full := BuildPrompt(Request{Prompt: "build a landing page", Mode: ModeCreator})
	if full != "build a landing page" {
		t.Fatalf("bare prompt was decorated: %q", full)
	}
}

func TestBuildPrompt_HistoryWindow(t *testing.T) {
	var history []Message
	for i := 0; i < 15; i++ {
		role := "user"
		if i%2 == 1 {
			role = "model"
		}
		history = append(history, Message{Role: role, Content: fmt.Sprintf("turn-%d", i)})
	}

	_, full := BuildPrompt(Request{Prompt: "next", Mode: ModeCreator, History: history})

	if strings.Contains(full, "turn-4") {
		t.Fatalf("history older than the window was replayed:\n%s", full)
	}
	if !strings.Contains(full, "turn-5") || !strings.Contains(full, "turn-14") {
		t.Fatalf("recent history missing:\n%s", full)
	}
	// roles render as display names
	if !strings.Contains(full, "Aivan: turn-5") || !strings.Contains(full, "User: turn-6") {
		t.Fatalf("role names not rendered:\n%s", full)
	}
}
