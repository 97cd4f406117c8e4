package handlers

import (
	"strings"
	"testing"
)

func TestCodeWithFooter(t *testing.T) {
	code := "<html><body><h1>hi</h1></body></html>"

	premium := codeWithFooter(code, true)
	if !strings.Contains(premium, "AIVAN") {
		t.Fatalf("builder footer missing:\n%s", premium)
	}
	if strings.Contains(premium, "aivan-ad") {
		t.Fatalf("premium download carries the ad block:\n%s", premium)
	}
	if !strings.HasSuffix(premium, "</body></html>") {
		t.Fatalf("footer not injected before </body>:\n%s", premium)
	}

	free := codeWithFooter(code, false)
	if !strings.Contains(free, "aivan-ad") {
		t.Fatalf("free download missing the ad block:\n%s", free)
	}
	ad := strings.Index(free, "aivan-ad")
	footer := strings.Index(free, "AIVAN</strong>")
	if ad > footer {
		t.Fatalf("ad block should precede the footer")
	}
}

func TestCodeWithFooter_NoBodyTag(t *testing.T) {
	got := codeWithFooter("<div>fragment</div>", true)
	if !strings.HasPrefix(got, "<div>fragment</div>") || !strings.Contains(got, "AIVAN") {
		t.Fatalf("footer not appended to a fragment:\n%s", got)
	}
}
