// Package directory maps chat handles to the groups they lead and remembers
// the numeric platform id seen for each handle.
package directory

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hgbot/hgbot/internal/storage"
)

// Membership is one group a handle may report for.
type Membership struct {
	GroupID    string
	LeaderName string
}

// Identity is a snapshot of what the directory knows about a handle.
type Identity struct {
	Handle string
	// NumericID is 0 until the handle has written to the bot.
	NumericID   int64
	Memberships []Membership
}

// Store is the persistence the directory needs.
type Store interface {
	storage.DirectoryReader
	storage.AccountWriter
}

// Directory is safe for concurrent use.
type Directory struct {
	store  Store
	logger *slog.Logger

	mu      sync.RWMutex
	members map[string][]Membership
	ids     map[string]int64
}

func New(log *slog.Logger, store Store) *Directory {
	if log == nil {
		log = slog.Default()
	}
	return &Directory{
		store:   store,
		logger:  log.With(slog.String("component", "directory")),
		members: map[string][]Membership{},
		ids:     map[string]int64{},
	}
}

// Load replaces the in-memory directory with the store contents.
func (d *Directory) Load(ctx context.Context) error {
	leaders, err := d.store.ListGroupLeaders(ctx)
	if err != nil {
		return fmt.Errorf("load leaders: %w", err)
	}
	accounts, err := d.store.ListLeaderAccounts(ctx)
	if err != nil {
		return fmt.Errorf("load accounts: %w", err)
	}

	members := make(map[string][]Membership, len(leaders))
	for _, leader := range leaders {
		for _, handle := range leader.Handles {
			handle = storage.NormalizeHandle(handle)
			if handle == "" {
				continue
			}
			members[handle] = append(members[handle], Membership{GroupID: leader.GroupID, LeaderName: leader.LeaderName})
		}
	}
	ids := make(map[string]int64, len(accounts))
	for _, account := range accounts {
		if handle := storage.NormalizeHandle(account.Handle); handle != "" && account.TelegramID != 0 {
			ids[handle] = account.TelegramID
		}
	}

	d.mu.Lock()
	d.members = members
	d.ids = ids
	d.mu.Unlock()

	d.logger.Info("directory loaded", slog.Int("handles", len(members)), slog.Int("bound", len(ids)))
	return nil
}

// Resolve returns the identity for handle. ok is false for unknown handles.
func (d *Directory) Resolve(handle string) (Identity, bool) {
	handle = storage.NormalizeHandle(handle)
	d.mu.RLock()
	defer d.mu.RUnlock()
	memberships, ok := d.members[handle]
	if !ok {
		return Identity{}, false
	}
	out := make([]Membership, len(memberships))
	copy(out, memberships)
	return Identity{Handle: handle, NumericID: d.ids[handle], Memberships: out}, true
}

// Bind records the numeric id for handle. The store is written only when the
// id changes; a failed write is logged and the in-memory binding is kept.
func (d *Directory) Bind(ctx context.Context, handle string, numericID int64) {
	handle = storage.NormalizeHandle(handle)
	if handle == "" || numericID == 0 {
		return
	}
	d.mu.Lock()
	if d.ids[handle] == numericID {
		d.mu.Unlock()
		return
	}
	d.ids[handle] = numericID
	d.mu.Unlock()

	if err := d.store.UpsertLeaderAccount(ctx, storage.LeaderAccount{Handle: handle, TelegramID: numericID}); err != nil {
		d.logger.Warn("persist account binding failed",
			slog.String("handle", handle),
			slog.Int64("telegram_id", numericID),
			slog.Any("error", err))
	}
}

// NumericID returns the bound id for handle.
func (d *Directory) NumericID(handle string) (int64, bool) {
	handle = storage.NormalizeHandle(handle)
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.ids[handle]
	return id, ok && id != 0
}
