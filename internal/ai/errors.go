package ai

import "errors"

var (
	// ErrRateLimited is returned after the retry ceiling on 429s is exhausted.
	ErrRateLimited = errors.New("ai: rate limited")

	// ErrProvider covers every other provider failure; not retried.
	ErrProvider = errors.New("ai: provider error")
)
