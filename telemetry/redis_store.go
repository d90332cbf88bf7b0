// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig is the subset of config.RedisConfig RedisStore needs; kept
// local so telemetry never imports the config package.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore is the Redis-backed telemetry Store (C6 persistence
// backend). All scope windows live in a single hash keyed by scope key,
// so loadWindows replays the entire KPI state with one HGETALL and
// saveWindow overwrites one scope atomically with one HSET.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisStore dials Redis and pings it before returning, matching the
// fail-fast-at-construction convention for optional backends.
func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("telemetry redis store ping: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "turncore:kpi:"
	}
	return &RedisStore{client: client, keyPrefix: prefix}, nil
}

func (s *RedisStore) hashKey() string {
	return s.keyPrefix + "windows"
}

// LoadWindows replays every scope's entries in one round trip.
func (s *RedisStore) LoadWindows() (map[string][]OutcomeEntry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	raw, err := s.client.HGetAll(ctx, s.hashKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("telemetry redis store load: %w", err)
	}

	out := make(map[string][]OutcomeEntry, len(raw))
	for scopeKey, val := range raw {
		var entries []OutcomeEntry
		if err := json.Unmarshal([]byte(val), &entries); err != nil {
			return nil, fmt.Errorf("telemetry redis store unmarshal %q: %w", scopeKey, err)
		}
		out[scopeKey] = entries
	}
	return out, nil
}

// SaveWindow overwrites scopeKey's field of the hash atomically (HSET
// replaces the field value in one step; no read-modify-write races).
func (s *RedisStore) SaveWindow(scopeKey string, entries []OutcomeEntry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("telemetry redis store marshal %q: %w", scopeKey, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.client.HSet(ctx, s.hashKey(), scopeKey, data).Err(); err != nil {
		return fmt.Errorf("telemetry redis store save %q: %w", scopeKey, err)
	}
	return nil
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
