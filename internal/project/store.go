package project

import (
	"context"
	"time"
)

// Store is the persistence boundary the workspace core saves through.
type Store interface {
	SaveProject(ctx context.Context, userID uint64, p *Project) error
	ListProjects(ctx context.Context, userID uint64) ([]Project, error)
}

// Watcher delivers the user's full current project list whenever it changes,
// newest-first. The channel closes when ctx is done.
type Watcher interface {
	Watch(ctx context.Context, userID uint64) <-chan []Project
}

// GormStore backs the boundary with the repo. Watch polls last_modified;
// concurrent writers race under last-write-wins, the stream just re-delivers
// whatever won.
type GormStore struct {
	repo *Repo

	// PollInterval for Watch; defaults to 2s.
	PollInterval time.Duration
}

var (
	_ Store   = (*GormStore)(nil)
	_ Watcher = (*GormStore)(nil)
)

func NewGormStore(repo *Repo) *GormStore {
	return &GormStore{repo: repo, PollInterval: 2 * time.Second}
}

func (s *GormStore) SaveProject(ctx context.Context, userID uint64, p *Project) error {
	p.UserID = userID
	return s.repo.Save(ctx, p)
}

func (s *GormStore) ListProjects(ctx context.Context, userID uint64) ([]Project, error) {
	return s.repo.List(ctx, userID)
}

func (s *GormStore) Watch(ctx context.Context, userID uint64) <-chan []Project {
	out := make(chan []Project, 1)

	go func() {
		defer close(out)

		interval := s.PollInterval
		if interval <= 0 {
			interval = 2 * time.Second
		}
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var lastMax int64 = -1
		var lastCount = -1

		emit := func() {
			projects, err := s.repo.List(ctx, userID)
			if err != nil {
				return
			}
			maxMod := int64(0)
			for _, p := range projects {
				if p.LastModified > maxMod {
					maxMod = p.LastModified
				}
			}
			if maxMod == lastMax && len(projects) == lastCount {
				return
			}
			lastMax = maxMod
			lastCount = len(projects)
			select {
			case out <- projects:
			case <-ctx.Done():
			}
		}

		emit() // initial full delivery
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				emit()
			}
		}
	}()

	return out
}
