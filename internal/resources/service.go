package resources

import (
	"context"
	"fmt"
	"net/url"

	"github.com/maxidea1024/gatrix-sub012/internal/backend"
)

// Service is the CRUD surface of one backend collection.
type Service[T any] struct {
	client *backend.Client
	path   string
}

// NewService binds a collection path such as /api/v1/admin/banners.
func NewService[T any](client *backend.Client, path string) *Service[T] {
	return &Service[T]{client: client, path: path}
}

func (s *Service[T]) item(id string) string {
	return s.path + "/" + url.PathEscape(id)
}

// Fetch loads the whole collection.
func (s *Service[T]) Fetch(ctx context.Context) ([]T, error) {
	return backend.ListAll[T](ctx, s.client, s.path, backend.DefaultPageLimit)
}

func (s *Service[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	if err := s.client.Get(ctx, s.item(id), nil, &out); err != nil {
		return out, fmt.Errorf("resources: get %s: %w", id, err)
	}
	return out, nil
}

func (s *Service[T]) Create(ctx context.Context, v T) (T, error) {
	var out T
	if err := s.client.Post(ctx, s.path, v, &out); err != nil {
		return out, fmt.Errorf("resources: create: %w", err)
	}
	return out, nil
}

func (s *Service[T]) Update(ctx context.Context, id string, v T) (T, error) {
	var out T
	if err := s.client.Put(ctx, s.item(id), v, &out); err != nil {
		return out, fmt.Errorf("resources: update %s: %w", id, err)
	}
	return out, nil
}

func (s *Service[T]) Delete(ctx context.Context, id string) error {
	if err := s.client.Delete(ctx, s.item(id)); err != nil {
		return fmt.Errorf("resources: delete %s: %w", id, err)
	}
	return nil
}

// Toggle flips the entity's enabled/active switch.
func (s *Service[T]) Toggle(ctx context.Context, id string) (T, error) {
	var out T
	if err := s.client.Patch(ctx, s.item(id)+"/toggle", nil, &out); err != nil {
		return out, fmt.Errorf("resources: toggle %s: %w", id, err)
	}
	return out, nil
}
