package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Danielbarber11/aivan/internal/ai"
	"github.com/Danielbarber11/aivan/internal/workspace"
)

func sseHeaders(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // helpful if behind nginx
	c.Status(http.StatusOK)
}

// streamTurn forwards controller events over SSE until the turn ends. The
// request context doubles as the cancellation token: a dropped connection
// aborts the stream.
func (h *Handler) streamTurn(c *gin.Context, events <-chan workspace.Event) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		fmt.Fprintf(c.Writer, "event: error\ndata: flusher not supported\n\n")
		return
	}

	writeJSON := func(event string, payload any) {
		b, err := json.Marshal(payload)
		if err != nil {
			fmt.Fprintf(c.Writer, "event: error\ndata: {\"message\":\"json marshal failed\"}\n\n")
			flusher.Flush()
			return
		}
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, string(b))
		flusher.Flush()
	}

	// heartbeat ticker keeps proxies from closing the connection
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	ctx := c.Request.Context()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			switch ev.Type {
			case workspace.EventChunk:
				writeJSON("chunk", gin.H{
					"type":  "chunk",
					"delta": ev.Delta,
					"code":  ev.Code,
				})
			case workspace.EventDone:
				writeJSON("done", gin.H{
					"type": "done",
					"code": ev.Code,
				})
			case workspace.EventError:
				writeJSON("error", gin.H{
					"type":    "error",
					"message": userFacingError(ev.Err),
				})
			}

		case <-ticker.C:
			writeJSON("ping", gin.H{
				"type": "ping",
				"ts":   time.Now().Unix(),
			})

		case <-ctx.Done():
			// drain so the controller goroutine can finish
			go func() {
				for range events {
				}
			}()
			return
		}
	}
}

func userFacingError(err error) string {
	switch {
	case errors.Is(err, ai.ErrRateLimited):
		return "the model is rate limited right now, please try again in a moment"
	case errors.Is(err, ai.ErrProvider):
		return "something went wrong talking to the model, please try again"
	default:
		return "request failed, please try again"
	}
}
