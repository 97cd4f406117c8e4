package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Danielbarber11/aivan/internal/common"
	"github.com/Danielbarber11/aivan/internal/models"
	"github.com/Danielbarber11/aivan/internal/project"
)

// checkQuota enforces the free-tier daily request cap before any model call.
// Premium users are unmetered. Redis being down fails open.
func (h *Handler) checkQuota(c *gin.Context, user *models.User) bool {
	if user.IsPremium || h.Redis == nil {
		return true
	}
	n, err := h.Redis.IncrDailyRequests(c.Request.Context(), user.ID)
	if err != nil {
		log.Printf("quota check failed uid=%d err=%v", user.ID, err)
		return true
	}
	if n > int64(h.Cfg.FreeDailyLimit) {
		common.Fail(c, http.StatusTooManyRequests, 42900, "daily request limit reached, upgrade to premium for unlimited builds")
		return false
	}
	return true
}

type createProjectReq struct {
	Prompt   string `json:"prompt" binding:"required"`
	Language string `json:"language"`
	Model    string `json:"model"`
}

// CreateProject registers a new project for the user's build request and
// streams the bootstrap turn back over SSE. The first event carries the
// assigned project id.
func (h *Handler) CreateProject(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req createProjectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	if !h.checkQuota(c, user) {
		return
	}

	if req.Language == "" {
		req.Language = "HTML/CSS/JS"
	}
	if req.Model == "" {
		req.Model = h.Cfg.GeminiModel
	}

	id, err := common.NewULID()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	name := req.Prompt
	if len(name) > 40 {
		name = name[:40]
	}

	proj := &project.Project{
		ID:       id,
		UserID:   user.ID,
		Name:     name,
		Language: req.Language,
		Model:    req.Model,
	}
	if err := h.Projects.Create(c.Request.Context(), proj); err != nil {
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to create project")
		return
	}

	s := h.openSession(user, proj, req.Prompt)

	events, err := s.ctl.Bootstrap(c.Request.Context())
	if err != nil {
		common.Fail(c, http.StatusConflict, 40901, "a turn is already streaming")
		return
	}

	sseHeaders(c)
	if flusher, ok := c.Writer.(http.Flusher); ok {
		b, _ := json.Marshal(gin.H{"type": "project", "project_id": proj.ID})
		fmt.Fprintf(c.Writer, "event: project\ndata: %s\n\n", string(b))
		flusher.Flush()
	}
	if events != nil {
		h.streamTurn(c, events)
	}
}

func (h *Handler) ListProjects(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	projects, err := h.Store.ListProjects(c.Request.Context(), user.ID)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to list projects")
		return
	}
	common.OK(c, gin.H{"projects": projects})
}

// StreamProjects is the subscription boundary: it delivers the user's full
// project list, newest-first, on every remote change.
func (h *Handler) StreamProjects(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	sseHeaders(c)
	flusher, okf := c.Writer.(http.Flusher)
	if !okf {
		fmt.Fprintf(c.Writer, "event: error\ndata: flusher not supported\n\n")
		return
	}

	updates := h.Watcher.Watch(c.Request.Context(), user.ID)
	for projects := range updates {
		b, err := json.Marshal(gin.H{"type": "projects", "projects": projects})
		if err != nil {
			continue
		}
		fmt.Fprintf(c.Writer, "event: projects\ndata: %s\n\n", string(b))
		flusher.Flush()
	}
}

func (h *Handler) GetProject(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	proj, err := h.Projects.GetByID(c.Request.Context(), user.ID, c.Param("project_id"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40404, "project not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}
	common.OK(c, proj)
}

func (h *Handler) DeleteProject(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	id := c.Param("project_id")
	h.closeSession(id)
	if err := h.Projects.Delete(c.Request.Context(), user.ID, id); err != nil {
		common.Fail(c, http.StatusInternalServerError, 50004, "failed to delete project")
		return
	}
	common.OK(c, gin.H{"deleted": id})
}

// DownloadProject returns the artifact as a standalone index.html with the
// builder footer (and the ad block for non-premium accounts) appended.
func (h *Handler) DownloadProject(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	proj, err := h.Projects.GetByID(c.Request.Context(), user.ID, c.Param("project_id"))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusNotFound, 40404, "project not found")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 50001, "internal error")
		return
	}

	code := proj.Code
	if s, live := h.liveSession(proj.ID); live {
		code = s.ctl.Code()
	}
	if code == "" {
		common.Fail(c, http.StatusNotFound, 40405, "project has no code yet")
		return
	}

	premium := h.capability(user).EffectivePremium()
	c.Header("Content-Disposition", `attachment; filename="index.html"`)
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(codeWithFooter(code, premium)))
}

func (h *Handler) liveSession(projectID string) (*session, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	s, ok := h.sessions[projectID]
	return s, ok
}

const builderFooter = `<footer style="width:100%;padding:20px;text-align:center;background:#f8f9fa;color:#6c757d;font-family:sans-serif;font-size:12px;border-top:1px solid #e9ecef;margin-top:auto;">Built with AI by <strong style="color:#9333ea;">AIVAN</strong></footer>`

const adBlock = `<div id="aivan-ad" style="width:100%;background:#fff;border-top:2px solid #ff9900;padding:15px;text-align:center;font-family:sans-serif;margin-top:20px;"><div style="max-width:728px;height:90px;background:#f3f3f3;margin:0 auto;display:flex;align-items:center;justify-content:center;border:1px dashed #ccc;color:#666;">Ad Space Reserved (728x90)</div></div>`

func codeWithFooter(code string, premium bool) string {
	suffix := builderFooter
	if !premium {
		suffix = adBlock + builderFooter
	}
	if strings.Contains(code, "</body>") {
		return strings.Replace(code, "</body>", suffix+"</body>", 1)
	}
	return code + suffix
}
