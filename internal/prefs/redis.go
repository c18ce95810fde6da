package prefs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "prefs:"
	// ChangeChannel carries Change payloads.
	ChangeChannel = "prefs.changed"
)

// RedisStore keeps preferences under prefs:<profile>:<key> and publishes a
// Change on every write.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore builds the store. A zero ttl keeps preferences forever.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(profile, key string) string {
	return keyPrefix + profile + ":" + key
}

// Get returns the stored value; ok is false when missing.
func (s *RedisStore) Get(ctx context.Context, profile, key string) (string, bool, error) {
	if err := validKey(profile, key); err != nil {
		return "", false, err
	}
	value, err := s.client.Get(ctx, redisKey(profile, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("prefs: get %s: %w", key, err)
	}
	return value, true, nil
}

// Set writes value and announces the change.
func (s *RedisStore) Set(ctx context.Context, profile, key, value string) error {
	if err := validKey(profile, key); err != nil {
		return err
	}
	if err := s.client.Set(ctx, redisKey(profile, key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("prefs: set %s: %w", key, err)
	}
	return s.publish(ctx, profile, key)
}

// Delete removes key and announces the change.
func (s *RedisStore) Delete(ctx context.Context, profile, key string) error {
	if err := validKey(profile, key); err != nil {
		return err
	}
	if err := s.client.Del(ctx, redisKey(profile, key)).Err(); err != nil {
		return fmt.Errorf("prefs: delete %s: %w", key, err)
	}
	return s.publish(ctx, profile, key)
}

func (s *RedisStore) publish(ctx context.Context, profile, key string) error {
	payload, err := json.Marshal(Change{Profile: profile, Key: key})
	if err != nil {
		return err
	}
	if err := s.client.Publish(ctx, ChangeChannel, payload).Err(); err != nil {
		return fmt.Errorf("prefs: publish %s: %w", key, err)
	}
	return nil
}

// Scan visits every profile holding key.
func (s *RedisStore) Scan(ctx context.Context, key string, fn func(profile, value string) error) error {
	iter := s.client.Scan(ctx, 0, keyPrefix+"*:"+key, 200).Iterator()
	for iter.Next(ctx) {
		full := iter.Val()
		profile, ok := strings.CutPrefix(full, keyPrefix)
		if !ok {
			continue
		}
		profile, ok = strings.CutSuffix(profile, ":"+key)
		if !ok || profile == "" || strings.Contains(profile, ":") {
			continue
		}
		value, err := s.client.Get(ctx, full).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return fmt.Errorf("prefs: scan %s: %w", key, err)
		}
		if err := fn(profile, value); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Watch subscribes to ChangeChannel. The subscription is confirmed before
// Watch returns; delivery stops when ctx is done and the returned channel
// closes after the subscription is released. Changes written by this
// process are delivered too, since other views of the profile may live here.
func (s *RedisStore) Watch(ctx context.Context, fn func(Change)) (<-chan struct{}, error) {
	pubsub := s.client.Subscribe(ctx, ChangeChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("prefs: subscribe: %w", err)
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var change Change
				if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil || change.Profile == "" {
					continue
				}
				fn(change)
			}
		}
	}()
	return done, nil
}
