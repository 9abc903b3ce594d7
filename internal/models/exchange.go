package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы заявки на обмен. Заявка решается владельцем объявления
// ровно один раз, после чего статус не меняется.
const (
	RequestStatusPending  = "pending"
	RequestStatusAccepted = "accepted"
	RequestStatusRejected = "rejected"
)

// ExchangeRequest представляет заявку на обмен навыками по объявлению
type ExchangeRequest struct {
	ID          uuid.UUID  `json:"id"`
	ListingID   uuid.UUID  `json:"listing_id"`
	RequesterID uuid.UUID  `json:"requester_id"`
	Message     string     `json:"message"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`

	// Дополнительные поля для API
	Listing        *Listing   `json:"listing,omitempty"`
	Requester      *User      `json:"requester,omitempty"`
	Owner          *User      `json:"owner,omitempty"`
	ConversationID *uuid.UUID `json:"conversation_id,omitempty"` // ID диалога после принятия
}

// IsPending сообщает, ожидает ли заявка решения
func (r *ExchangeRequest) IsPending() bool {
	return r.Status == RequestStatusPending
}
