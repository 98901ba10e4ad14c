package help

import (
	"bytes"
	"strings"
	"testing"
)

func TestVisibleLength(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"plain", 5},
		{StyleCommand("/status"), 7},
		{CommandWithShortcut("/help", "/h"), len("/help (or /h)")},
		{"→help", 5},
	}
	for _, tt := range tests {
		if got := VisibleLength(tt.in); got != tt.want {
			t.Errorf("VisibleLength(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestPadRight(t *testing.T) {
	got := PadRight(StyleCommand("/q"), 5)
	if VisibleLength(got) != 5 {
		t.Errorf("PadRight visible length = %d, want 5", VisibleLength(got))
	}
	if !strings.HasSuffix(got, "   ") {
		t.Errorf("PadRight should pad with spaces, got %q", got)
	}
	if got := PadRight("toolong", 3); got != "toolong" {
		t.Errorf("PadRight should not truncate, got %q", got)
	}
}

func TestHighlightExample(t *testing.T) {
	if got := HighlightExample(""); got != "" {
		t.Errorf("HighlightExample(\"\") = %q", got)
	}
	if got := HighlightExample("/status"); got != StyleCommand("/status") {
		t.Errorf("HighlightExample(/status) = %q", got)
	}
	got := HighlightExample("/changes  50")
	want := StyleCommand("/changes") + Argument(" 50")
	if got != want {
		t.Errorf("HighlightExample = %q, want %q", got, want)
	}
}

func TestGetCommand(t *testing.T) {
	for _, name := range []string{"/optimize", "optimize", "/q", "h"} {
		if _, ok := GetCommand(name); !ok {
			t.Errorf("GetCommand(%q) not found", name)
		}
	}
	cmd, _ := GetCommand("/h")
	if cmd.Name != "/help" {
		t.Errorf("GetCommand(/h).Name = %q, want /help", cmd.Name)
	}
	if _, ok := GetCommand("/bogus"); ok {
		t.Error("GetCommand(/bogus) should not be found")
	}
}

func TestEveryCommandHasACategory(t *testing.T) {
	seen := map[string]bool{}
	for _, cmd := range Commands {
		if !strings.HasPrefix(cmd.Name, "/") {
			t.Errorf("%q should start with /", cmd.Name)
		}
		if seen[cmd.Name] {
			t.Errorf("%q registered twice", cmd.Name)
		}
		seen[cmd.Name] = true
		if _, ok := Categories[cmd.Category]; !ok {
			t.Errorf("%s has unknown category %q", cmd.Name, cmd.Category)
		}
		if cmd.Usage == "" || cmd.Description == "" {
			t.Errorf("%s is missing usage or description", cmd.Name)
		}
	}
}

func TestRenderFull(t *testing.T) {
	var buf bytes.Buffer
	NewRenderer(&buf).RenderFull()
	out := buf.String()

	for _, cmd := range Commands {
		if !strings.Contains(out, cmd.Name) {
			t.Errorf("full help missing %s", cmd.Name)
		}
	}
	for _, cat := range CategoryOrder {
		if !strings.Contains(out, cat.DisplayName()) {
			t.Errorf("full help missing category %s", cat.DisplayName())
		}
	}
	if !strings.Contains(out, "e.g. ") {
		t.Error("full help should show inline examples")
	}
	if strings.Count(out, "/optimize"+ColorReset+ColorYellow) > maxInlineExamples {
		t.Error("full help shows too many inline examples for /optimize")
	}
}

func TestRenderCommand(t *testing.T) {
	var buf bytes.Buffer
	r := NewRenderer(&buf)

	if !r.RenderCommand("optimize") {
		t.Fatal("RenderCommand(optimize) returned false")
	}
	out := buf.String()
	for _, want := range []string{"Usage:", "<type>", "Examples:", "memory_consolidation"} {
		if !strings.Contains(out, want) {
			t.Errorf("command help missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if r.RenderCommand("nope") {
		t.Error("RenderCommand(nope) should return false")
	}
	if !strings.Contains(buf.String(), "Command 'nope' not found") {
		t.Errorf("unexpected output: %q", buf.String())
	}
}
