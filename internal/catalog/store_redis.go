package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const (
	playlistKeyPrefix = "playlist_cache:"
	// Entries are retained well past their freshness window so a stale copy
	// remains available when the upstream API is down.
	playlistRetention = 7 * 24 * time.Hour
)

// RedisStore caches playlist entries in Redis so multiple server instances
// share one cache.
type RedisStore struct {
	rdb goredis.Cmdable
}

func NewRedisStore(rdb goredis.Cmdable) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Entry, error) {
	data, err := s.rdb.Get(ctx, playlistKeyPrefix+id).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("playlist cache GET failed: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("corrupt playlist cache entry for %s: %w", id, err)
	}
	return &entry, nil
}

func (s *RedisStore) Put(ctx context.Context, id string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding playlist entry: %w", err)
	}
	if err := s.rdb.Set(ctx, playlistKeyPrefix+id, data, playlistRetention).Err(); err != nil {
		return fmt.Errorf("playlist cache SET failed: %w", err)
	}
	return nil
}

func (s *RedisStore) All(ctx context.Context) (map[string]*Entry, error) {
	all := make(map[string]*Entry)

	iter := s.rdb.Scan(ctx, 0, playlistKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		id := key[len(playlistKeyPrefix):]
		entry, err := s.Get(ctx, id)
		if err != nil {
			// Key expired or corrupt between SCAN and GET; skip it.
			continue
		}
		all[id] = entry
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("playlist cache scan failed: %w", err)
	}
	return all, nil
}
