// Package surveys manages player surveys and their rewards.
package surveys

import "time"

// Kind decides where a survey is answered.
type Kind string

const (
	KindInGame   Kind = "in_game"
	KindExternal Kind = "external"
)

// Reward is granted on completion.
type Reward struct {
	ItemID   string `json:"itemId" validate:"required,max=64"`
	Quantity int    `json:"quantity" validate:"gt=0,lte=1000000"`
}

type Survey struct {
	ID          string    `json:"id"`
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=2000"`
	Kind        Kind      `json:"kind" validate:"required,oneof=in_game external"`
	ExternalURL string    `json:"externalUrl" validate:"required_if=Kind external,omitempty,http_url"`
	Rewards     []Reward  `json:"rewards" validate:"max=10,dive"`
	Tags        []string  `json:"tags"`
	Active      bool      `json:"active"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
