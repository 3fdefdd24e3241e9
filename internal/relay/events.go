package relay

import "encoding/json"

// Inbound event names.
const (
	EventJoinRoom         = "join-room"
	EventCheckRoom        = "check-room"
	EventCodeChanged      = "code-changed"
	EventInputChanged     = "input-changed"
	EventChangeLanguage   = "change-language"
	EventRunCode          = "run-code"
	EventExecutionStatus  = "execution-status"
	EventCursorMove       = "cursor-move"
	EventCursorSelection  = "cursor-selection"
	EventCursorVisibility = "cursor-visibility"
	EventCallOffer        = "call-offer"
	EventCallAnswer       = "call-answer"
	EventIceCandidate     = "ice-candidate"
	EventCallRequest      = "call-request"
	EventCallAccept       = "call-accept"
	EventCallReject       = "call-reject"
	EventCallEnd          = "call-end"
	EventUserReadyForCall = "user-ready-for-call"
)

// Outbound event names. Most inbound events keep their name on relay; the
// two renamed ones and the presence/lifecycle events are listed here.
const (
	EventRoomJoined       = "room-joined"
	EventRoomNotAvailable = "room-not-available"
	EventRoomExists       = "room-exists"
	EventRoomNotExists    = "room-not-exists"
	EventUserJoined       = "user-joined"
	EventUserLeft         = "user-left"
	EventLanguageChanged  = "language-changed"
	EventCodeRun          = "code-run"
)

type joinRoomPayload struct {
	RoomID     string `json:"roomId"`
	UserID     string `json:"userId"`
	IsCreating bool   `json:"isCreating"`
}

type checkRoomPayload struct {
	RoomID string `json:"roomId"`
}

type codeChangedPayload struct {
	RoomID string          `json:"roomId"`
	Code   json.RawMessage `json:"code"`
}

type inputChangedPayload struct {
	RoomID string          `json:"roomId"`
	Input  json.RawMessage `json:"input"`
}

type changeLanguagePayload struct {
	RoomID   string          `json:"roomId"`
	Language json.RawMessage `json:"language"`
}

type runCodePayload struct {
	RoomID   string          `json:"roomId"`
	Output   json.RawMessage `json:"output"`
	Language json.RawMessage `json:"language"`
	Input    json.RawMessage `json:"input"`
	Code     json.RawMessage `json:"code"`
}

type executionStatusPayload struct {
	RoomID    string `json:"roomId"`
	IsRunning bool   `json:"isRunning"`
}

type cursorMovePayload struct {
	RoomID   string   `json:"roomId"`
	Position Position `json:"position"`
	UserID   string   `json:"userId"`
	UserInfo UserInfo `json:"userInfo"`
}

type cursorSelectionPayload struct {
	RoomID    string    `json:"roomId"`
	Selection Selection `json:"selection"`
	UserID    string    `json:"userId"`
	UserInfo  UserInfo  `json:"userInfo"`
}

type cursorVisibilityPayload struct {
	RoomID    string   `json:"roomId"`
	IsVisible bool     `json:"isVisible"`
	UserID    string   `json:"userId"`
	UserInfo  UserInfo `json:"userInfo"`
}

type roomJoinedPayload struct {
	RoomID string `json:"roomId"`
}

type roomNotAvailablePayload struct {
	Message string `json:"message"`
}

type roomCheckResultPayload struct {
	RoomID string `json:"roomId"`
}

type userJoinedPayload struct {
	UserID   string `json:"userId"`
	SocketID string `json:"socketId"`
}

type userLeftPayload struct {
	SocketID string `json:"socketId"`
}

type codeChangedOut struct {
	Code json.RawMessage `json:"code"`
}

type inputChangedOut struct {
	Input json.RawMessage `json:"input"`
}

type codeRunOut struct {
	Output   json.RawMessage `json:"output"`
	Language json.RawMessage `json:"language"`
	Input    json.RawMessage `json:"input"`
	Code     json.RawMessage `json:"code"`
}

type executionStatusOut struct {
	IsRunning bool `json:"isRunning"`
}

type cursorMoveOut struct {
	SocketID string   `json:"socketId"`
	Position Position `json:"position"`
	UserID   string   `json:"userId"`
	UserInfo UserInfo `json:"userInfo"`
}

type cursorSelectionOut struct {
	SocketID  string    `json:"socketId"`
	Selection Selection `json:"selection"`
	UserID    string    `json:"userId"`
	UserInfo  UserInfo  `json:"userInfo"`
}

type cursorVisibilityOut struct {
	SocketID  string   `json:"socketId"`
	IsVisible bool     `json:"isVisible"`
	UserID    string   `json:"userId"`
	UserInfo  UserInfo `json:"userInfo"`
}
