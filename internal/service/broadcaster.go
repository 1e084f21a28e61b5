package service

// Broadcaster pushes session events to connected respondents (avoids import cycle)
type Broadcaster interface {
	BroadcastToSession(sessionID string, msgType string, payload interface{})
	DisconnectSession(sessionID string)
}

// Session event types
const (
	EventVisibilityChanged = "visibility_changed"
	EventPageChanged       = "page_changed"
	EventSubmitted         = "submitted"
	EventSessionReset      = "session_reset"
)

type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastToSession(string, string, interface{}) {}
func (noopBroadcaster) DisconnectSession(string)                      {}
