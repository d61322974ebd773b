// Package roster caches each group's ordered member list for the process lifetime.
package roster

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/hgbot/hgbot/internal/storage"
)

// Cache fetches a group's roster once and serves copies afterwards.
// Failed fetches are not cached.
type Cache struct {
	store  storage.RosterReader
	logger *slog.Logger
	group  singleflight.Group

	mu      sync.RWMutex
	rosters map[string][]string
}

func New(log *slog.Logger, store storage.RosterReader) *Cache {
	if log == nil {
		log = slog.Default()
	}
	return &Cache{
		store:   store,
		logger:  log.With(slog.String("component", "roster")),
		rosters: map[string][]string{},
	}
}

// Get returns the ordered member names of groupID.
func (c *Cache) Get(ctx context.Context, groupID string) ([]string, error) {
	c.mu.RLock()
	cached, ok := c.rosters[groupID]
	c.mu.RUnlock()
	if ok {
		return clone(cached), nil
	}

	v, err, _ := c.group.Do(groupID, func() (any, error) {
		names, err := c.store.ListGroupMembers(ctx, groupID)
		if err != nil {
			return nil, err
		}
		if names == nil {
			names = []string{}
		}
		c.mu.Lock()
		if existing, ok := c.rosters[groupID]; ok {
			names = existing
		} else {
			c.rosters[groupID] = names
		}
		c.mu.Unlock()
		c.logger.Debug("roster cached", slog.String("group_id", groupID), slog.Int("members", len(names)))
		return names, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch roster %s: %w", groupID, err)
	}
	return clone(v.([]string)), nil
}

func clone(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
