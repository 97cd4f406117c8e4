package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Danielbarber11/aivan/internal/common"
	"github.com/Danielbarber11/aivan/internal/models"
	"github.com/Danielbarber11/aivan/internal/workspace"
)

// sessionFor loads the project (checking ownership) and returns its live
// workspace session.
func (h *Handler) sessionFor(c *gin.Context) (*models.User, *session, bool) {
	user, ok := h.currentUser(c)
	if !ok {
		return nil, nil, false
	}
	proj, err := h.Projects.GetByID(c.Request.Context(), user.ID, c.Param("project_id"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40404, "project not found")
			return nil, nil, false
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return nil, nil, false
	}
	return user, h.openSession(user, proj, ""), true
}

type sendTurnReq struct {
	Message string             `json:"message"`
	Mode    workspace.ChatMode `json:"mode"`
}

// SendTurn runs one conversation turn and streams fragments back over SSE.
func (h *Handler) SendTurn(c *gin.Context) {
	user, s, ok := h.sessionFor(c)
	if !ok {
		return
	}

	var req sendTurnReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Message == "" {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if req.Mode.Valid() {
		s.ctl.SetMode(req.Mode)
	}
	if !h.checkQuota(c, user) {
		return
	}

	events, err := s.ctl.Submit(c.Request.Context(), req.Message)
	if err != nil {
		if errors.Is(err, workspace.ErrBusy) {
			common.Fail(c, http.StatusConflict, 40901, "a turn is already streaming")
			return
		}
		common.Fail(c, http.StatusBadRequest, 10002, "invalid message")
		return
	}

	sseHeaders(c)
	h.streamTurn(c, events)
}

type quickActionReq struct {
	Action workspace.QuickAction `json:"action" binding:"required"`
}

// QuickAction feeds a canned prompt through the turn pipeline. Capability
// failures surface before any model request is made.
func (h *Handler) QuickAction(c *gin.Context) {
	user, s, ok := h.sessionFor(c)
	if !ok {
		return
	}

	var req quickActionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if !h.checkQuota(c, user) {
		return
	}

	events, err := s.ctl.SubmitQuickAction(c.Request.Context(), req.Action)
	if err != nil {
		switch {
		case errors.Is(err, workspace.ErrCapabilityDenied):
			common.Fail(c, http.StatusForbidden, 40301, "publishing is a premium feature, upgrade to unlock it")
		case errors.Is(err, workspace.ErrBusy):
			common.Fail(c, http.StatusConflict, 40901, "a turn is already streaming")
		default:
			common.Fail(c, http.StatusBadRequest, 10004, "unknown action")
		}
		return
	}

	sseHeaders(c)
	h.streamTurn(c, events)
}

// CancelTurn aborts the in-flight stream. Cancellation is silent: partial
// message text and partial code stay as they were.
func (h *Handler) CancelTurn(c *gin.Context) {
	_, s, ok := h.sessionFor(c)
	if !ok {
		return
	}
	s.ctl.Cancel()
	common.OK(c, gin.H{"state": s.ctl.State()})
}

func (h *Handler) Undo(c *gin.Context) {
	_, s, ok := h.sessionFor(c)
	if !ok {
		return
	}
	code, moved := s.ctl.Undo()
	common.OK(c, gin.H{"code": code, "moved": moved})
}

func (h *Handler) Redo(c *gin.Context) {
	_, s, ok := h.sessionFor(c)
	if !ok {
		return
	}
	code, moved := s.ctl.Redo()
	common.OK(c, gin.H{"code": code, "moved": moved})
}

type setCodeReq struct {
	Code string `json:"code"`
}

// SetCode applies a manual edit to the artifact. Manual editing is a premium
// feature.
func (h *Handler) SetCode(c *gin.Context) {
	user, s, ok := h.sessionFor(c)
	if !ok {
		return
	}
	if !user.IsPremium {
		common.Fail(c, http.StatusForbidden, 40302, "manual code editing is a premium feature")
		return
	}
	var req setCodeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	s.ctl.SetCode(req.Code)
	common.OK(c, gin.H{"code": s.ctl.Code()})
}

// WorkspaceState reports the session for pollers: messages for the requested
// mode, current code, turn state and the advisory save status.
func (h *Handler) WorkspaceState(c *gin.Context) {
	_, s, ok := h.sessionFor(c)
	if !ok {
		return
	}

	mode := workspace.ChatMode(c.DefaultQuery("mode", string(workspace.ModeCreator)))
	if !mode.Valid() {
		common.Fail(c, http.StatusBadRequest, 10005, "invalid mode")
		return
	}

	msgs := s.ctl.Messages(mode)
	display := make([]gin.H, 0, len(msgs))
	for _, m := range msgs {
		display = append(display, gin.H{
			"id":        m.ID,
			"role":      m.Role,
			"text":      workspace.CleanText(m.Text),
			"timestamp": m.Timestamp,
			"is_error":  m.IsError,
		})
	}

	common.OK(c, gin.H{
		"mode":        mode,
		"messages":    display,
		"code":        s.ctl.Code(),
		"turn_state":  s.ctl.State(),
		"save_status": s.saver.Status(),
	})
}
