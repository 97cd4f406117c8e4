package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// maxRetries bounds 429 retries before surfacing ErrRateLimited.
	maxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay caps the backoff growth.
	retryMaxDelay = 10 * time.Second
)

type GeminiProvider struct {
	BaseURL string
	APIKey  string
	Model   string
	Client  *http.Client

	// retryBase overrides retryBaseDelay in tests.
	retryBase time.Duration
}

func NewGeminiProvider(baseURL, apiKey, model string) *GeminiProvider {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiProvider{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Model:   model,
		Client:  &http.Client{Timeout: 90 * time.Second},
	}
}

type geminiInline struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string        `json:"text,omitempty"`
	InlineData *geminiInline `json:"inlineData,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenReq struct {
	Contents          []geminiContent `json:"contents"`
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
}

type geminiGenResp struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (p *GeminiProvider) buildBody(req Request) ([]byte, error) {
	systemInstruction, fullPrompt := BuildPrompt(req)

	parts := []geminiPart{{Text: fullPrompt}}
	for _, f := range req.Files {
		parts = append(parts, geminiPart{InlineData: &geminiInline{
			MimeType: f.MimeType,
			Data:     f.Data,
		}})
	}

	return json.Marshal(geminiGenReq{
		Contents:          []geminiContent{{Role: "user", Parts: parts}},
		SystemInstruction: &geminiContent{Parts: []geminiPart{{Text: systemInstruction}}},
	})
}

func (p *GeminiProvider) model(req Request) string {
	if strings.TrimSpace(req.ModelID) != "" {
		return req.ModelID
	}
	return p.Model
}

// calculateBackoff returns the delay before the next retry.
// Exponential: 500ms, 1000ms, 2000ms, capped.
func calculateBackoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = retryBaseDelay
	}
	delay := base * time.Duration(1<<uint(attempt))
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}

// open issues the streaming request, retrying on 429 up to the ceiling. The
// caller owns the returned body.
func (p *GeminiProvider) open(ctx context.Context, req Request) (io.ReadCloser, error) {
	if p.Client == nil {
		return nil, fmt.Errorf("%w: http client is nil", ErrProvider)
	}

	body, err := p.buildBody(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}

	url := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse&key=%s",
		strings.TrimRight(p.BaseURL, "/"), p.model(req), p.APIKey)

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(calculateBackoff(p.retryBase, attempt - 1)):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrProvider, err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := p.Client.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("%w: %v", ErrProvider, err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			_ = resp.Body.Close()
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
			_ = resp.Body.Close()
			msg := strings.TrimSpace(string(snippet))
			if msg == "" {
				msg = fmt.Sprintf("status %d", resp.StatusCode)
			}
			return nil, fmt.Errorf("%w: %s", ErrProvider, msg)
		}
		return resp.Body, nil
	}

	return nil, ErrRateLimited
}

// Stream yields response text fragments. The cancellation token is ctx: once
// cancelled, the channels close without an error and no further fragments are
// produced.
func (p *GeminiProvider) Stream(ctx context.Context, req Request) (<-chan string, <-chan error) {
	chunks := make(chan string, 16)
	errs := make(chan error, 1)

	go func() {
		defer close(chunks)
		defer close(errs)

		body, err := p.open(ctx, req)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			errs <- err
			return
		}
		defer body.Close()

		sc := bufio.NewScanner(body)
		buf := make([]byte, 0, 64*1024)
		sc.Buffer(buf, 2*1024*1024)

		for sc.Scan() {
			line := strings.TrimSpace(sc.Text())
			if line == "" || !strings.HasPrefix(line, "data:") {
				continue
			}
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return
			}

			var decoded geminiGenResp
			if err := json.Unmarshal([]byte(data), &decoded); err != nil {
				errs <- fmt.Errorf("%w: %v", ErrProvider, err)
				return
			}
			if decoded.Error != nil && decoded.Error.Message != "" {
				errs <- fmt.Errorf("%w: %s", ErrProvider, decoded.Error.Message)
				return
			}
			if len(decoded.Candidates) == 0 {
				continue
			}

			var text strings.Builder
			for _, part := range decoded.Candidates[0].Content.Parts {
				text.WriteString(part.Text)
			}
			if text.Len() == 0 {
				continue
			}

			select {
			case chunks <- text.String():
			case <-ctx.Done():
				return
			}

			// the token is checked after every fragment hand-off
			if ctx.Err() != nil {
				return
			}
		}

		if err := sc.Err(); err != nil && ctx.Err() == nil {
			errs <- fmt.Errorf("%w: %v", ErrProvider, err)
		}
	}()

	return chunks, errs
}

// Generate collects the whole stream into one string.
func (p *GeminiProvider) Generate(ctx context.Context, req Request) (string, error) {
	chunks, errs := p.Stream(ctx, req)

	var b strings.Builder
	for c := range chunks {
		b.WriteString(c)
	}
	if err := <-errs; err != nil {
		return "", err
	}
	return b.String(), nil
}

// GenerateTitle asks for a short display name for the project. Errors are the
// caller's to swallow.
func (p *GeminiProvider) GenerateTitle(ctx context.Context, prompt, codeSnippet string) (string, error) {
	_ = codeSnippet

	if p.Client == nil {
		return "", fmt.Errorf("%w: http client is nil", ErrProvider)
	}

	body, err := json.Marshal(geminiGenReq{
		Contents: []geminiContent{{
			Role: "user",
			Parts: []geminiPart{{Text: fmt.Sprintf(
				"Generate a short, catchy title (2-4 words) for this web project based on the prompt: %q. Do not use quotes.",
				prompt,
			)}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		strings.TrimRight(p.BaseURL, "/"), p.Model, p.APIKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.Client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: status %d", ErrProvider, resp.StatusCode)
	}

	var decoded geminiGenResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProvider, err)
	}
	if decoded.Error != nil && decoded.Error.Message != "" {
		return "", fmt.Errorf("%w: %s", ErrProvider, decoded.Error.Message)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrProvider)
	}
	return strings.TrimSpace(decoded.Candidates[0].Content.Parts[0].Text), nil
}
