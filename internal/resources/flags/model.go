// Package flags manages feature flags.
package flags

import (
	"fmt"
	"regexp"
	"time"

	"github.com/maxidea1024/gatrix-sub012/internal/entityform"
)

// Type classifies a flag.
type Type string

const (
	TypeRelease     Type = "release"
	TypeExperiment  Type = "experiment"
	TypeOperational Type = "operational"
	TypePermission  Type = "permission"
)

// Variant is one arm of an experiment flag.
type Variant struct {
	Name   string `json:"name" validate:"required,max=50"`
	Weight int    `json:"weight" validate:"gte=0,lte=100"`
}

// Flag is a feature toggle evaluated by game clients.
type Flag struct {
	ID          string    `json:"id"`
	Key         string    `json:"key" validate:"required,max=100"`
	Name        string    `json:"name" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=1000"`
	Type        Type      `json:"type" validate:"required,oneof=release experiment operational permission"`
	Enabled     bool      `json:"enabled"`
	Environment string    `json:"environment" validate:"required,oneof=development qa production"`
	Tags        []string  `json:"tags"`
	Variants    []Variant `json:"variants" validate:"required_if=Type experiment,dive"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

var keyPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.-]*$`)

// Check covers the rules struct tags cannot express.
func (f Flag) Check() entityform.Errors {
	errs := entityform.Errors{}
	if f.Key != "" && !keyPattern.MatchString(f.Key) {
		errs["key"] = "must start with a letter and use letters, digits, '.', '_' or '-'"
	}
	if f.Type == TypeExperiment {
		if len(f.Variants) < 2 {
			errs["variants"] = "needs at least 2 entries"
		} else {
			total := 0
			for _, v := range f.Variants {
				total += v.Weight
			}
			if total != 100 {
				errs["variants"] = fmt.Sprintf("weights must add up to 100, got %d", total)
			}
		}
	}
	return errs
}
