package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы диалога. Закрытие диалогов продуктом пока не предусмотрено,
// archived зарезервирован.
const (
	ConversationStatusOpen     = "open"
	ConversationStatusArchived = "archived"
)

// Conversation представляет диалог между владельцем объявления и автором
// принятой заявки. На пару (объявление, автор заявки) существует не более
// одного диалога.
type Conversation struct {
	ID          uuid.UUID `json:"id"`
	ListingID   uuid.UUID `json:"listing_id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	RequesterID uuid.UUID `json:"requester_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`

	LastMessageText string     `json:"last_message_text,omitempty"`
	LastMessageTime *time.Time `json:"last_message_time,omitempty"`

	// Дополнительные поля для API
	Listing      *Listing `json:"listing,omitempty"`
	Interlocutor *User    `json:"interlocutor,omitempty"` // Второй участник диалога
	UnreadCount  int      `json:"unread_count,omitempty"`
}

// IsOpen сообщает, можно ли писать в диалог
func (c *Conversation) IsOpen() bool {
	return c.Status == ConversationStatusOpen
}

// HasParticipant проверяет, является ли пользователь участником диалога
func (c *Conversation) HasParticipant(userID uuid.UUID) bool {
	return c.OwnerID == userID || c.RequesterID == userID
}

// OtherParticipant возвращает второго участника диалога
func (c *Conversation) OtherParticipant(userID uuid.UUID) uuid.UUID {
	if c.OwnerID == userID {
		return c.RequesterID
	}
	return c.OwnerID
}

// Message представляет сообщение в диалоге. Сообщения неизменяемы:
// после записи ни текст, ни отправитель не редактируются.
type Message struct {
	ID             uuid.UUID `json:"id"`
	ConversationID uuid.UUID `json:"conversation_id"`
	SenderID       uuid.UUID `json:"sender_id"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`

	// Дополнительные поля для API
	Sender *User `json:"sender,omitempty"`
}
