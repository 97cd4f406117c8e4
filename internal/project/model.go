package project

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/Danielbarber11/aivan/internal/workspace"
)

// MessageLog stores an ordered message sequence as one JSON column. The two
// logs stay independent columns so a mode switch never rewrites the other.
type MessageLog []workspace.Message

func (l MessageLog) Value() (driver.Value, error) {
	if l == nil {
		l = MessageLog{}
	}
	return json.Marshal(l)
}

func (l *MessageLog) Scan(src any) error {
	return scanJSON(src, l)
}

// StringList stores the code version history as a JSON column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(src any) error {
	return scanJSON(src, l)
}

func scanJSON(src, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return errors.New("project: unsupported column type for json scan")
	}
}

// Project is the aggregate a workspace session persists. One owner, last
// write wins across devices (the subscribe stream re-delivers after remote
// changes).
type Project struct {
	ID     string `gorm:"primaryKey;size:26" json:"id"` // ULID
	UserID uint64 `gorm:"index;not null" json:"-"`

	Name     string `gorm:"type:varchar(128);not null" json:"name"`
	Language string `gorm:"type:varchar(32);not null" json:"language"`
	Model    string `gorm:"type:varchar(64);not null" json:"model"`

	// epoch millis; indexed for the newest-first listing
	LastModified int64 `gorm:"index;not null" json:"last_modified"`

	Code             string     `gorm:"type:mediumtext" json:"code"`
	CreatorMessages  MessageLog `gorm:"type:mediumtext" json:"creator_messages"`
	QuestionMessages MessageLog `gorm:"type:mediumtext" json:"question_messages"`
	CodeHistory      StringList `gorm:"type:mediumtext" json:"code_history"`

	// one-shot auto-title flag
	Titled bool `gorm:"not null;default:false" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Project) TableName() string { return "projects" }
