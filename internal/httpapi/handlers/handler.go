package handlers

import (
	"context"
	"log"
	"sync"

	"gorm.io/gorm"

	"github.com/Danielbarber11/aivan/internal/ai"
	"github.com/Danielbarber11/aivan/internal/auth"
	"github.com/Danielbarber11/aivan/internal/config"
	"github.com/Danielbarber11/aivan/internal/models"
	"github.com/Danielbarber11/aivan/internal/project"
	"github.com/Danielbarber11/aivan/internal/store/rabbitmq"
	"github.com/Danielbarber11/aivan/internal/store/redisstore"
	"github.com/Danielbarber11/aivan/internal/workspace"
)

// TitlePublisher is what the autosave one-shot needs from the queue.
type TitlePublisher interface {
	PublishTitleJob(ctx context.Context, job rabbitmq.TitleJob) error
}

type Handler struct {
	DB     *gorm.DB
	Cfg    config.Config
	Redis  *redisstore.Store
	Rabbit TitlePublisher

	Projects *project.Repo
	Store    project.Store
	Watcher  project.Watcher
	Client   ai.StreamProvider

	mu       sync.Mutex
	sessions map[string]*session
}

// session is one open workspace: the controller owns the in-memory state, the
// saver debounces it back to the store.
type session struct {
	ctl   *workspace.Controller
	saver *workspace.Saver
}

func NewHandler(db *gorm.DB, cfg config.Config, rds *redisstore.Store, rabbit TitlePublisher) *Handler {
	repo := project.NewRepo(db)

	reg := ai.NewRegistry()
	reg.Register("gemini", func(ctx context.Context, model string) (ai.StreamProvider, error) {
		return ai.NewGeminiProvider(cfg.GeminiBaseURL, cfg.GeminiAPIKey, model), nil
	})

	client, err := reg.Get(context.Background(), cfg.AIProvider, cfg.GeminiModel)
	if err != nil {
		log.Printf("unknown ai provider %q, falling back to gemini", cfg.AIProvider)
		client = ai.NewGeminiProvider(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel)
	}

	gs := project.NewGormStore(repo)
	return &Handler{
		DB:       db,
		Cfg:      cfg,
		Redis:    rds,
		Rabbit:   rabbit,
		Projects: repo,
		Store:    gs,
		Watcher:  gs,
		Client:   client,
		sessions: make(map[string]*session),
	}
}

func (h *Handler) capability(u *models.User) auth.User {
	return auth.User{
		ID:                    u.ID,
		Email:                 u.Email,
		Name:                  u.Name,
		Picture:               u.Picture,
		IsPremium:             u.IsPremium,
		IsAdmin:               u.IsAdmin,
		HasAdSupportedPremium: u.HasAdSupportedPremium,
		SaveHistory:           u.SaveHistory,
	}
}

// openSession returns the live controller for a project, building one from
// the persisted aggregate on first touch. One session per project; a session
// is the exclusive owner of its logs, code and history.
func (h *Handler) openSession(user *models.User, proj *project.Project, initialPrompt string) *session {
	h.mu.Lock()
	defer h.mu.Unlock()

	if s, ok := h.sessions[proj.ID]; ok {
		return s
	}

	if initialPrompt == "" {
		// resumed project: recover the origin prompt from the first turn
		if len(proj.CreatorMessages) > 0 {
			initialPrompt = workspace.CleanText(proj.CreatorMessages[0].Text)
		} else {
			initialPrompt = proj.Name
		}
	}

	capUser := h.capability(user)
	projectID := proj.ID
	userID := user.ID
	prompt := initialPrompt

	var ctl *workspace.Controller
	saver := workspace.NewSaver(workspace.SaverConfig{
		Quiet:       h.Cfg.AutosaveQuiet,
		SaveHistory: capUser.SaveHistory,
		Titled:      proj.Titled,
		Flush: func(ctx context.Context) error {
			snap := ctl.Snapshot()

			// re-read so a worker-written name is not clobbered; the aggregate
			// itself stays last-write-wins
			current, err := h.Projects.GetByID(ctx, userID, projectID)
			if err != nil {
				return err
			}
			current.Code = snap.Code
			current.CreatorMessages = snap.CreatorMessages
			current.QuestionMessages = snap.QuestionMessages
			current.CodeHistory = snap.CodeHistory
			return h.Store.SaveProject(ctx, userID, current)
		},
		Title: func(ctx context.Context) {
			if h.Rabbit == nil {
				return
			}
			code := ctl.Code()
			if len(code) > 500 {
				code = code[:500]
			}
			err := h.Rabbit.PublishTitleJob(ctx, rabbitmq.TitleJob{
				ProjectID:   projectID,
				UserID:      userID,
				Prompt:      prompt,
				CodeSnippet: code,
			})
			if err != nil {
				log.Printf("title job publish failed project=%s err=%v", projectID, err)
			}
		},
	})

	ctl = workspace.NewController(workspace.Config{
		User:             capUser,
		Client:           h.Client,
		Saver:            saver,
		ModelID:          proj.Model,
		InitialPrompt:    initialPrompt,
		Language:         proj.Language,
		Code:             proj.Code,
		CreatorMessages:  proj.CreatorMessages,
		QuestionMessages: proj.QuestionMessages,
		CodeHistory:      proj.CodeHistory,
	})

	s := &session{ctl: ctl, saver: saver}
	h.sessions[proj.ID] = s
	return s
}

func (h *Handler) closeSession(projectID string) {
	h.mu.Lock()
	s, ok := h.sessions[projectID]
	delete(h.sessions, projectID)
	h.mu.Unlock()
	if ok {
		s.ctl.Cancel()
		s.saver.CancelPending()
	}
}
