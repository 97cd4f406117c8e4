package project

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Create(ctx context.Context, p *Project) error {
	if p.LastModified == 0 {
		p.LastModified = time.Now().UnixMilli()
	}
	return r.db.WithContext(ctx).Create(p).Error
}

// Save upserts the full aggregate and stamps last_modified. Last write wins.
func (r *Repo) Save(ctx context.Context, p *Project) error {
	p.LastModified = time.Now().UnixMilli()
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(p).Error
}

func (r *Repo) GetByID(ctx context.Context, userID uint64, id string) (*Project, error) {
	var p Project
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns the user's projects newest-first by last_modified.
func (r *Repo) List(ctx context.Context, userID uint64) ([]Project, error) {
	var projects []Project
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("last_modified DESC").
		Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *Repo) Delete(ctx context.Context, userID uint64, id string) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&Project{}).Error
}

// SetName writes the generated display name and spends the one-shot title
// flag, without touching the rest of the aggregate.
func (r *Repo) SetName(ctx context.Context, userID uint64, id, name string) error {
	return r.db.WithContext(ctx).Model(&Project{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{
			"name":          name,
			"titled":        true,
			"last_modified": time.Now().UnixMilli(),
		}).Error
}

// MarkTitled spends the flag without renaming (title came back unusable).
func (r *Repo) MarkTitled(ctx context.Context, userID uint64, id string) error {
	return r.db.WithContext(ctx).Model(&Project{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("titled", true).Error
}
