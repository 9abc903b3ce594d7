package models

import (
	"time"

	"github.com/google/uuid"
)

// Статусы объявления. Закрытое объявление не редактируется и не
// принимает новые заявки.
const (
	ListingStatusActive = "active"
	ListingStatusClosed = "closed"
)

// Listing представляет объявление об обмене навыками
type Listing struct {
	ID            uuid.UUID `json:"id"`
	UserID        uuid.UUID `json:"user_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	SkillsOffered []string  `json:"skills_offered"`
	SkillsWanted  []string  `json:"skills_wanted"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	// Дополнительные поля для API
	Owner *User `json:"owner,omitempty"`
}

// IsActive сообщает, принимает ли объявление новые заявки
func (l *Listing) IsActive() bool {
	return l.Status == ListingStatusActive
}
