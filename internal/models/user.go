package models

import (
	"github.com/google/uuid"
)

// User представляет минимальную информацию о пользователе для API
type User struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name,omitempty"`
	Bio           string    `json:"bio,omitempty"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	Skills        []string  `json:"skills,omitempty"`
	SkillsToLearn []string  `json:"skills_to_learn,omitempty"`
}
