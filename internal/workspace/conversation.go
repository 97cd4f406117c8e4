package workspace

// Conversation holds the two independent message logs, one per ChatMode.
// Switching the active mode is purely a view concern: no operation here ever
// touches the non-addressed log.
type Conversation struct {
	logs map[ChatMode][]Message
}

func NewConversation(creator, question []Message) *Conversation {
	c := &Conversation{logs: make(map[ChatMode][]Message, 2)}
	c.logs[ModeCreator] = append([]Message(nil), creator...)
	c.logs[ModeQuestion] = append([]Message(nil), question...)
	return c
}

// AppendUser appends an immutable user message to the given mode's log.
func (c *Conversation) AppendUser(mode ChatMode, text string) Message {
	msg := NewMessage(RoleUser, text)
	c.logs[mode] = append(c.logs[mode], msg)
	return msg
}

// UpsertModel creates the in-flight model message on the first fragment of a
// response and rewrites its text wholesale on every later fragment. A message
// is matched by id, so one turn never appends twice.
func (c *Conversation) UpsertModel(mode ChatMode, id, text string) {
	log := c.logs[mode]
	for i := len(log) - 1; i >= 0; i-- {
		if log[i].ID == id {
			log[i].Text = text
			return
		}
	}
	msg := NewMessage(RoleModel, text)
	msg.ID = id
	c.logs[mode] = append(c.logs[mode], msg)
}

// MarkError flags the message with the given id as an error entry.
func (c *Conversation) MarkError(mode ChatMode, id string) {
	log := c.logs[mode]
	for i := len(log) - 1; i >= 0; i-- {
		if log[i].ID == id {
			log[i].IsError = true
			return
		}
	}
}

// Log returns a copy of the mode's ordered message log.
func (c *Conversation) Log(mode ChatMode) []Message {
	return append([]Message(nil), c.logs[mode]...)
}

func (c *Conversation) Len(mode ChatMode) int { return len(c.logs[mode]) }
