package server

// MessageType tags every frame on the wire. Game events re-use the engine's
// event names verbatim, so the full outbound surface is the union of these
// constants and game.EventType.
type MessageType string

const (
	// Client to server commands
	MessageTypeCreateSession MessageType = "create_session"
	MessageTypeJoinSession   MessageType = "join_session"
	MessageTypeAddBot        MessageType = "add_bot"
	MessageTypeStartSession  MessageType = "start_session"
	MessageTypePlaceBid      MessageType = "place_bid"
	MessageTypeCallBluff     MessageType = "call_bluff"
	MessageTypeListSessions  MessageType = "list_sessions"

	// Server to client responses (engine events are forwarded with their
	// game.EventType as the message type)
	MessageTypeError       MessageType = "error"
	MessageTypeSessionList MessageType = "session_list"
)

func (mt MessageType) String() string {
	return string(mt)
}
