package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Danielbarber11/aivan/internal/common"
	"github.com/Danielbarber11/aivan/internal/config"
	"github.com/Danielbarber11/aivan/internal/httpapi/handlers"
	"github.com/Danielbarber11/aivan/internal/httpapi/middleware"
	"github.com/Danielbarber11/aivan/internal/store/redisstore"
)

func NewRouter(db *gorm.DB, cfg config.Config, rds *redisstore.Store, rabbit handlers.TitlePublisher) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.Use(middleware.RequestID())

	h := handlers.NewHandler(db, cfg, rds, rabbit)

	r.GET("/ping", func(c *gin.Context) { common.OK(c, gin.H{"pong": true}) })

	// users
	r.POST("/users", h.CreateUser)
	r.POST("/login", h.Login)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(cfg.JWTSecret))
	authGroup.GET("/me", h.Me)
	authGroup.GET("/me/quota", h.Quota)
	authGroup.PATCH("/me/preferences", h.UpdatePreferences)

	// projects (JWT required)
	authGroup.POST("/projects", h.CreateProject)
	authGroup.GET("/projects", h.ListProjects)
	authGroup.GET("/projects/stream", h.StreamProjects)
	authGroup.GET("/projects/:project_id", h.GetProject)
	authGroup.DELETE("/projects/:project_id", h.DeleteProject)
	authGroup.GET("/projects/:project_id/download", h.DownloadProject)

	// workspace turns
	authGroup.POST("/projects/:project_id/messages/stream", h.SendTurn)
	authGroup.POST("/projects/:project_id/actions", h.QuickAction)
	authGroup.POST("/projects/:project_id/cancel", h.CancelTurn)
	authGroup.POST("/projects/:project_id/undo", h.Undo)
	authGroup.POST("/projects/:project_id/redo", h.Redo)
	authGroup.PUT("/projects/:project_id/code", h.SetCode)
	authGroup.GET("/projects/:project_id/state", h.WorkspaceState)

	return r
}
