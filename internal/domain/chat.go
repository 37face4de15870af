package domain

import "time"

// ChatRoom is a two-party direct-message room. Rooms live in a per-tenant
// database, so the tenant is implied by the connection, never stored.
type ChatRoom struct {
	ID        uint                 `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time            `gorm:"autoCreateTime" json:"created_at"`
	Members   []ChatRoomMembership `gorm:"foreignKey:ChatRoomID" json:"members,omitempty"`
}

// TableName specifies the table name for ChatRoom.
func (ChatRoom) TableName() string {
	return "chat_rooms"
}

// ChatRoomMembership associates a user with a room. A (room, user) pair is
// unique. ConnectedToSocket is a best-effort annotation of the member's live
// socket, written by the connection-tracking path only.
type ChatRoomMembership struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	ChatRoomID        uint      `gorm:"uniqueIndex:idx_room_member;not null" json:"chat_room_id"`
	UserID            int64     `gorm:"uniqueIndex:idx_room_member;not null" json:"user_id"`
	ConnectedToSocket string    `gorm:"type:varchar(64)" json:"connected_to_socket,omitempty"`
	CreatedAt         time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for ChatRoomMembership.
func (ChatRoomMembership) TableName() string {
	return "chat_room_memberships"
}

// Message is an immutable chat message. History ordering is by creation
// time ascending.
type Message struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ChatRoomID uint      `gorm:"index;not null" json:"chat_room_id"`
	FromUserID int64     `gorm:"not null" json:"from_user_id"`
	ToUserID   *int64    `json:"to_user_id"`
	Content    string    `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for Message.
func (Message) TableName() string {
	return "messages"
}
