// Package banners manages in-game banners.
package banners

import "time"

// Kind of banner content.
type Kind string

const (
	KindImage Kind = "image"
	KindText  Kind = "text"
)

// Banner is a time-boxed promotion shown in the game lobby.
type Banner struct {
	ID        string    `json:"id"`
	Name      string    `json:"name" validate:"required,max=200"`
	Kind      Kind      `json:"kind" validate:"required,oneof=image text"`
	ImageURL  string    `json:"imageUrl" validate:"required_if=Kind image,omitempty,url"`
	Text      string    `json:"text" validate:"required_if=Kind text,max=2000"`
	LinkURL   string    `json:"linkUrl" validate:"omitempty,url"`
	Platforms []string  `json:"platforms" validate:"dive,oneof=pc android ios console"`
	StartsAt  time.Time `json:"startsAt" validate:"required"`
	EndsAt    time.Time `json:"endsAt" validate:"omitempty,gtfield=StartsAt"`
	Active    bool      `json:"active"`
	UpdatedAt time.Time `json:"updatedAt"`
}
