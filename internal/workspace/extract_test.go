package workspace

import (
	"strings"
	"testing"
)

func TestExtract_DocumentStartWins(t *testing.T) {
	e := &Extractor{}

	text := "Sure, here is your site:\n```html\n<!DOCTYPE html>\n<html>\n<body>Hi</body>\n</html>\n```\nLet me know!"
	got := e.Update(text)

	want := "<!DOCTYPE html>\n<html>\n<body>Hi</body>\n</html>"
	if got != want {
		t.Fatalf("unexpected artifact:\ngot  %q\nwant %q", got, want)
	}
}

func TestExtract_FencedBlockWithoutDoctype(t *testing.T) {
	e := &Extractor{}

	text := "```html\n<p>just a fragment</p>\n```"
	got := e.Update(text)

	if got != "<p>just a fragment</p>" {
		t.Fatalf("unexpected artifact: %q", got)
	}
}

func TestExtract_UnterminatedFence(t *testing.T) {
	e := &Extractor{}

	// the stream ended mid-block; the open fence is still usable
	text := "```html\n<p>partial"
	got := e.Update(text)

	if got != "<p>partial" {
		t.Fatalf("unexpected artifact: %q", got)
	}
}

func TestExtract_StructuralTagFallback(t *testing.T) {
	e := &Extractor{}

	text := "Here you go: <div class=\"card\">x</div>"
	got := e.Update(text)

	if got != "<div class=\"card\">x</div>" {
		t.Fatalf("unexpected artifact: %q", got)
	}
}

func TestExtract_NoMatchKeepsPrevious(t *testing.T) {
	e := &Extractor{}
	e.Update("<html><body>v1</body></html>")

	got := e.Update("thinking about your request...")
	if !strings.Contains(got, "v1") {
		t.Fatalf("artifact was lost on a non-matching update: %q", got)
	}
}

// Feeding prefixes of the response one fragment at a time must land on the
// same artifact as one batch call with the full text.
func TestExtract_IncrementalEqualsBatch(t *testing.T) {
	full := "Here is the page:\n```html\n<!DOCTYPE html>\n<html><head><title>T</title></head>\n<body><main>content</main></body></html>\n```\nDone."

	fragments := []string{}
	for i := 7; i < len(full); i += 7 {
		fragments = append(fragments, full[:i])
	}
	fragments = append(fragments, full)

	inc := &Extractor{}
	for _, prefix := range fragments {
		inc.Update(prefix)
	}
	inc.Settle(full)

	batch := &Extractor{}
	batch.Settle(full)

	if inc.Current() != batch.Current() {
		t.Fatalf("incremental and batch extraction diverged:\ninc   %q\nbatch %q", inc.Current(), batch.Current())
	}
	if !strings.HasPrefix(batch.Current(), "<!DOCTYPE html>") {
		t.Fatalf("batch artifact missing doctype: %q", batch.Current())
	}
	if strings.Contains(batch.Current(), "```") {
		t.Fatalf("artifact still carries a fence: %q", batch.Current())
	}
}

func TestExtract_SettleTruncatesLateFence(t *testing.T) {
	e := &Extractor{}

	// mid-stream the closing fence has not arrived yet
	e.Update("```html\n<html><body>page</body></html>")
	final := "```html\n<html><body>page</body></html>\n```\nAnything else?"

	got := e.Settle(final)
	if got != "<html><body>page</body></html>" {
		t.Fatalf("unexpected settled artifact: %q", got)
	}
}

func TestExtract_CaseInsensitiveDoctype(t *testing.T) {
	e := &Extractor{}
	got := e.Update("<!doctype HTML>\n<html><body>x</body></html>")
	if !strings.HasPrefix(got, "<!doctype HTML>") {
		t.Fatalf("lowercase doctype not matched: %q", got)
	}
}
