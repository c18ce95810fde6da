// Package entityform tracks an entity being created or edited: the original
// snapshot, the edited value, validation and save gating.
package entityform

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// Mode distinguishes create and edit forms.
type Mode int

const (
	ModeCreate Mode = iota
	ModeEdit
)

func (m Mode) String() string {
	if m == ModeEdit {
		return "edit"
	}
	return "create"
}

var (
	// ErrNoChanges is returned by Save when the draft equals its original.
	ErrNoChanges = errors.New("entityform: no changes")
	// ErrInvalid wraps Errors returned by Save.
	ErrInvalid = errors.New("entityform: invalid")
	// ErrSaving rejects a Save while another is running.
	ErrSaving = errors.New("entityform: save in progress")
)

// Saver persists value and returns the stored entity.
type Saver[T any] func(ctx context.Context, mode Mode, value T) (T, error)

// Draft holds an entity under edit. T must be a struct with exported fields.
type Draft[T any] struct {
	mode      Mode
	original  T
	value     T
	validator *Validator
	errors    Errors
	saving    bool
	saveErr   error
}

// NewCreate starts a create form from defaults.
func NewCreate[T any](defaults T, v *Validator) *Draft[T] {
	return &Draft[T]{mode: ModeCreate, original: defaults, value: defaults, validator: v}
}

// NewEdit starts an edit form from a freshly loaded entity.
func NewEdit[T any](entity T, v *Validator) *Draft[T] {
	return &Draft[T]{mode: ModeEdit, original: entity, value: entity, validator: v}
}

var compareOpts = []cmp.Option{cmpopts.EquateEmpty()}

func (d *Draft[T]) Mode() Mode   { return d.mode }
func (d *Draft[T]) Original() T  { return d.original }
func (d *Draft[T]) Value() T     { return d.value }
func (d *Draft[T]) Saving() bool { return d.saving }

// Set replaces the edited value and clears the last save error.
func (d *Draft[T]) Set(value T) {
	d.value = value
	d.saveErr = nil
	d.errors = nil
}

// Update mutates the edited value in place.
func (d *Draft[T]) Update(fn func(*T)) {
	v := d.value
	fn(&v)
	d.Set(v)
}

// HasChanges compares field by field; nil and empty collections are equal.
func (d *Draft[T]) HasChanges() bool {
	return !cmp.Equal(d.original, d.value, compareOpts...)
}

// Diff reports the changes for audit logging.
func (d *Draft[T]) Diff() string {
	return cmp.Diff(d.original, d.value, compareOpts...)
}

// Validate runs the entity rules and caches the result for Errors.
func (d *Draft[T]) Validate() Errors {
	d.errors = d.validator.Validate(d.value)
	return d.errors
}

// Errors returns the field errors of the last Validate or Save.
func (d *Draft[T]) Errors() Errors { return d.errors }

// CanSave gates the submit action.
func (d *Draft[T]) CanSave() bool {
	if d.saving || !d.HasChanges() {
		return false
	}
	return len(d.Validate()) == 0
}

// SaveError is the collaborator failure of the last Save, if any.
func (d *Draft[T]) SaveError() error { return d.saveErr }

// Save calls saver when the draft has valid changes. On failure the draft
// keeps the entered value; on success the saved entity becomes the original.
func (d *Draft[T]) Save(ctx context.Context, saver Saver[T]) (T, error) {
	var zero T
	if d.saving {
		return zero, ErrSaving
	}
	if !d.HasChanges() {
		return zero, ErrNoChanges
	}
	if errs := d.Validate(); len(errs) > 0 {
		return zero, fmt.Errorf("%w: %w", ErrInvalid, errs)
	}
	d.saving = true
	saved, err := saver(ctx, d.mode, d.value)
	d.saving = false
	if err != nil {
		d.saveErr = err
		return zero, err
	}
	d.saveErr = nil
	d.mode = ModeEdit
	d.original = saved
	d.value = saved
	return saved, nil
}
