package convlog

import (
	"context"
	"encoding/json"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

const redisLogKey = "faqbot:conversations"

// RedisStore appends entries to a Redis list. RPUSH is atomic, so
// concurrent appenders cannot interleave within one entry.
type RedisStore struct {
	client *goredis.Client
	key    string
}

// NewRedisStore creates a Redis-backed store from a redis:// URL.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := goredis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	return &RedisStore{
		client: goredis.NewClient(opts),
		key:    redisLogKey,
	}, nil
}

// Append adds one entry to the tail of the list.
func (s *RedisStore) Append(ctx context.Context, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling log entry: %w", err)
	}

	if err := s.client.RPush(ctx, s.key, data).Err(); err != nil {
		return fmt.Errorf("appending log entry: %w", err)
	}
	return nil
}

// Entries reads the full log in append order.
func (s *RedisStore) Entries(ctx context.Context) ([]Entry, error) {
	raw, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading log entries: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for _, item := range raw {
		var entry Entry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			// Skip corrupt rows rather than losing the whole fold.
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// Close closes the underlying Redis client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
