package domain

// WebSocket message types from client.
const (
	MsgTypeCreateRoom = "create_room"
	MsgTypeSend       = "send"
	MsgTypePing       = "ping"
)

// WebSocket message types to client.
const (
	MsgTypeRoomCreated = "room_created"
	MsgTypeMessage     = "message"
	MsgTypeAck         = "ack"
	MsgTypeError       = "error"
	MsgTypePong        = "pong"
)

// Error codes
const (
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeInvalidParticipants = "INVALID_PARTICIPANTS"
	ErrCodeUnknownTenant       = "UNKNOWN_TENANT"
	ErrCodePersistence         = "PERSISTENCE_UNAVAILABLE"
	ErrCodeInternalError       = "INTERNAL_ERROR"
)

// BaseMessage is the base structure for all WebSocket messages.
type BaseMessage struct {
	Type string `json:"type"`
}

// Client -> Server messages

type CreateRoomMessage struct {
	Type       string `json:"type"`
	FromUserID int64  `json:"fromUserID" validate:"required,gte=1"`
	ToUserID   int64  `json:"toUserID" validate:"required,gte=1"`
}

type SendMessagePayload struct {
	Type       string `json:"type"`
	FromUserID int64  `json:"fromUserID" validate:"required,gte=1"`
	ToUserID   int64  `json:"toUserID" validate:"required,gte=1"`
	Message    string `json:"message" validate:"required,min=1"`
}

// Server -> Client messages

type RoomCreatedMessage struct {
	Type   string `json:"type"`
	RoomID uint   `json:"roomID"`
}

type ChatMessageOut struct {
	Type       string `json:"type"`
	RoomID     uint   `json:"roomID"`
	FromUserID int64  `json:"fromUserID"`
	ToUserID   int64  `json:"toUserID"`
	Message    string `json:"message"`
}

type AckMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func NewErrorMessage(code, message string) *ErrorMessage {
	return &ErrorMessage{
		Type:    MsgTypeError,
		Code:    code,
		Message: message,
	}
}
