package workspace

import (
	"regexp"
	"strings"
)

// Extractor incrementally pulls the single HTML artifact out of a streamed
// model response. Update must always be called with the cumulative text, not a
// per-chunk delta: fences and tags straddle chunk boundaries.
//
// Matching is a fixed priority list; the first tier that matches wins for a
// given call, and a call where no tier matches leaves the artifact unchanged.
type Extractor struct {
	current string
}

var (
	docStartRe   = regexp.MustCompile(`(?i)<!DOCTYPE\s+html|<html[\s>]`)
	fenceOpenRe  = regexp.MustCompile("```[a-zA-Z0-9_+.-]*[ \t]*\n")
	structuralRe = regexp.MustCompile(`(?i)<(head|body|main|header|section|div|style|script)[\s>]`)
)

const fence = "```"

// Update re-derives the current artifact from the cumulative response text.
// It never fails: malformed or partial input simply means "no update yet".
func (e *Extractor) Update(cumulative string) string {
	if c, ok := extract(cumulative); ok {
		e.current = c
	}
	return e.current
}

// Settle runs one final extraction after the stream has completed, for the
// case where the terminating fence only arrived in the last fragment.
func (e *Extractor) Settle(full string) string {
	return e.Update(full)
}

func (e *Extractor) Current() string { return e.current }

func extract(text string) (string, bool) {
	// Tier 1: an explicit document start wins over everything.
	if loc := docStartRe.FindStringIndex(text); loc != nil {
		candidate := text[loc[0]:]
		if end := strings.Index(candidate, fence); end >= 0 {
			candidate = candidate[:end]
		}
		return strings.TrimSpace(candidate), true
	}

	// Tier 2: fenced block, tolerating a fence the stream has not closed yet.
	if loc := fenceOpenRe.FindStringIndex(text); loc != nil {
		body := text[loc[1]:]
		if end := strings.Index(body, fence); end >= 0 {
			body = body[:end]
		}
		if strings.TrimSpace(body) != "" {
			return strings.TrimRight(body, "\n"), true
		}
		return "", false
	}

	// Tier 3: bare structural tags, best effort for streams that skip both the
	// doctype and the fence.
	if loc := structuralRe.FindStringIndex(text); loc != nil {
		return strings.TrimSpace(text[loc[0]:]), true
	}

	return "", false
}
