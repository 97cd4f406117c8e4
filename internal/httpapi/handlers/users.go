package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Danielbarber11/aivan/internal/auth"
	"github.com/Danielbarber11/aivan/internal/common"
	"github.com/Danielbarber11/aivan/internal/httpapi/middleware"
	"github.com/Danielbarber11/aivan/internal/models"
)

func userIDFromContext(c *gin.Context) (uint64, bool) {
	v, ok := c.Get(middleware.UserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint64)
	return id, ok
}

func (h *Handler) currentUser(c *gin.Context) (*models.User, bool) {
	uid, ok := userIDFromContext(c)
	if !ok {
		common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
		return nil, false
	}
	var user models.User
	if err := h.DB.First(&user, uid).Error; err != nil {
		common.Fail(c, http.StatusUnauthorized, 40102, "unknown user")
		return nil, false
	}
	return &user, true
}

type createUserReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20002, "failed to hash password")
		return
	}

	user := models.User{
		Email:        req.Email,
		Name:         req.Name,
		PasswordHash: hash,
		SaveHistory:  true,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		common.Fail(c, http.StatusBadRequest, 10003, "failed to create user (maybe email already exists)")
		return
	}

	token, err := auth.SignJWT(user.ID, h.Cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}

	common.OK(c, gin.H{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
		"token": token,
	})
}

type loginReq struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			common.Fail(c, http.StatusUnauthorized, 40110, "wrong email or password")
			return
		}
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		common.Fail(c, http.StatusUnauthorized, 40110, "wrong email or password")
		return
	}

	token, err := auth.SignJWT(user.ID, h.Cfg.JWTSecret, 24*time.Hour)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 20003, "failed to sign token")
		return
	}
	common.OK(c, gin.H{"token": token})
}

func (h *Handler) Me(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	common.OK(c, user)
}

// Quota reports today's model request usage against the free-tier cap.
// Premium accounts are unmetered.
func (h *Handler) Quota(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}
	if user.IsPremium {
		common.OK(c, gin.H{"unlimited": true})
		return
	}

	var used int64
	if h.Redis != nil {
		n, err := h.Redis.DailyRequests(c.Request.Context(), user.ID)
		if err != nil {
			log.Printf("quota read failed uid=%d err=%v", user.ID, err)
		} else {
			used = n
		}
	}
	common.OK(c, gin.H{
		"unlimited": false,
		"used":      used,
		"limit":     h.Cfg.FreeDailyLimit,
	})
}

type updatePrefsReq struct {
	SaveHistory      *bool `json:"save_history"`
	HasAcceptedTerms *bool `json:"has_accepted_terms"`
}

func (h *Handler) UpdatePreferences(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req updatePrefsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}

	updates := map[string]any{}
	if req.SaveHistory != nil {
		updates["save_history"] = *req.SaveHistory
	}
	if req.HasAcceptedTerms != nil {
		updates["has_accepted_terms"] = *req.HasAcceptedTerms
	}
	if len(updates) == 0 {
		common.OK(c, user)
		return
	}

	if err := h.DB.Model(user).Updates(updates).Error; err != nil {
		common.Fail(c, http.StatusInternalServerError, 20001, "db error")
		return
	}
	common.OK(c, user)
}
