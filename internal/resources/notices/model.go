// Package notices manages service notices shown to players.
package notices

import "time"

// Category of a notice.
type Category string

const (
	CategoryMaintenance Category = "maintenance"
	CategoryEvent       Category = "event"
	CategoryNotice      Category = "notice"
	CategoryUpdate      Category = "update"
)

// Notice is a time-boxed announcement. Pinned notices stay on top in game.
type Notice struct {
	ID        string    `json:"id"`
	Title     string    `json:"title" validate:"required,max=200"`
	Category  Category  `json:"category" validate:"required,oneof=maintenance event notice update"`
	Content   string    `json:"content" validate:"required,max=20000"`
	Platforms []string  `json:"platforms" validate:"min=1,dive,oneof=pc android ios console"`
	StartsAt  time.Time `json:"startsAt" validate:"required"`
	EndsAt    time.Time `json:"endsAt" validate:"omitempty,gtfield=StartsAt"`
	Active    bool      `json:"active"`
	Pinned    bool      `json:"isPinned"`
	UpdatedAt time.Time `json:"updatedAt"`
}
