package chat

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation. A pending turn is an assistant
// reply that has been started but not filled in yet; at most one turn per
// session may be pending.
type Turn struct {
	Role    Role
	Text    string
	Pending bool
}

// Mode gates what a submission is allowed to do.
type Mode string

const (
	// ModeNormal is regular question-and-answer flow.
	ModeNormal Mode = "normal"
	// ModeAwaitingEmail means the assistant just asked for an email address
	// and the next submission is interpreted as an address or "cancel".
	ModeAwaitingEmail Mode = "awaiting_email"
)
