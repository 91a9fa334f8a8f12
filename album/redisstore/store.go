// Package redisstore persists albums in a Redis hash.
package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-profiles/album"
)

// DefaultKey is the hash holding one JSON document per album ID.
const DefaultKey = "albums"

// Store implements album.Repository over a Redis hash.
type Store struct {
	client redis.UniversalClient
	key    string
}

var _ album.Repository = (*Store)(nil)

// New wraps client. An empty key selects DefaultKey.
func New(client redis.UniversalClient, key string) *Store {
	if key == "" {
		key = DefaultKey
	}
	return &Store{client: client, key: key}
}

// ClientOptions builds client options from a redis:// URL, or from the
// hostname, port and password credentials a bound service publishes.
func ClientOptions(url string, credentials map[string]any) (*redis.Options, error) {
	if url != "" {
		opts, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("redisstore: parse url: %w", err)
		}
		return opts, nil
	}
	if uri, ok := credentials["uri"].(string); ok && uri != "" {
		return ClientOptions(uri, nil)
	}
	host, _ := credentials["hostname"].(string)
	if host == "" {
		host, _ = credentials["host"].(string)
	}
	if host == "" {
		return nil, fmt.Errorf("redisstore: no url or hostname available")
	}
	port := "6379"
	switch typed := credentials["port"].(type) {
	case string:
		port = typed
	case float64:
		port = strconv.Itoa(int(typed))
	case int:
		port = strconv.Itoa(typed)
	}
	password, _ := credentials["password"].(string)
	return &redis.Options{Addr: net.JoinHostPort(host, port), Password: password}, nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	count, err := s.client.HLen(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("redisstore: count: %w", err)
	}
	return count, nil
}

func (s *Store) Save(ctx context.Context, a *album.Album) error {
	if a == nil {
		return fmt.Errorf("redisstore: album must not be nil")
	}
	album.EnsureID(a)
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("redisstore: encode %s: %w", a.ID, err)
	}
	if err := s.client.HSet(ctx, s.key, a.ID, payload).Err(); err != nil {
		return fmt.Errorf("redisstore: save %s: %w", a.ID, err)
	}
	return nil
}

func (s *Store) FindAll(ctx context.Context) ([]album.Album, error) {
	entries, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: find all: %w", err)
	}
	out := make([]album.Album, 0, len(entries))
	for id, payload := range entries {
		var a album.Album
		if err := json.Unmarshal([]byte(payload), &a); err != nil {
			return nil, fmt.Errorf("redisstore: decode %s: %w", id, err)
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out, nil
}
