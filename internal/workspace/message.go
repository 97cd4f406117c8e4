package workspace

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// ChatMode selects which conversation log a turn belongs to. CREATOR turns are
// expected to carry an updated code artifact; QUESTION turns are explanatory
// text only.
type ChatMode string

const (
	ModeCreator  ChatMode = "CREATOR"
	ModeQuestion ChatMode = "QUESTION"
)

func (m ChatMode) Valid() bool {
	return m == ModeCreator || m == ModeQuestion
}

type Message struct {
	ID        string `json:"id"`
	Role      Role   `json:"role"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
	IsError   bool   `json:"isError,omitempty"`
}

func NewMessage(role Role, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		Timestamp: time.Now().UnixMilli(),
	}
}

// codeSeparator is the marker some model responses place between prose and the
// code payload. Stored message text keeps everything after it (the extractor
// and persistence need the raw payload); only display strips it.
const codeSeparator = "___AIVAN_CODE_START___"

// CleanText returns the display form of a message: the text before the code
// separator, trimmed.
func CleanText(text string) string {
	head, _, _ := strings.Cut(text, codeSeparator)
	return strings.TrimSpace(head)
}
