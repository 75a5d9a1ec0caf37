// Package realtime fans row changes out to connected clients. Clients treat
// every change as a signal to re-fetch; payloads carry identifiers only.
package realtime

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aawaaz/ticket-server/internal/lifecycle"
)

// Table names a subscribable change stream.
type Table string

const (
	TableTickets        Table = "tickets"
	TableAdminResponses Table = "admin_responses"
	TableNotifications  Table = "notifications"
	TableGlobalStatus   Table = "global_status"
)

// Tables lists every subscribable table.
var Tables = []Table{TableTickets, TableAdminResponses, TableNotifications, TableGlobalStatus}

func ParseTable(s string) (Table, error) {
	for _, t := range Tables {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown table %q", s)
}

// Op is the kind of row change.
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change describes one row change.
type Change struct {
	Table Table     `json:"table"`
	Op    Op        `json:"op"`
	RowID uuid.UUID `json:"row_id"`
	// OwnerID is the ticket owner, or the recipient for notifications.
	OwnerID uuid.UUID `json:"owner_id"`
	// Public is the ticket's visibility after the change.
	Public bool      `json:"public"`
	At     time.Time `json:"at"`
}

// VisibleTo reports whether a may observe c. Notifications reach only their
// recipient; private ticket changes reach the owner and admins.
func (c Change) VisibleTo(a lifecycle.Actor) bool {
	switch c.Table {
	case TableGlobalStatus:
		return true
	case TableNotifications:
		return a.Owns(c.OwnerID)
	default:
		return a.IsAdmin() || c.Public || a.Owns(c.OwnerID)
	}
}

// Handler receives changes. It runs on the publisher's goroutine and must
// not block.
type Handler func(Change)

// Broker distributes changes to subscribers.
type Broker interface {
	Publish(ctx context.Context, c Change) error
	// Subscribe registers fn for table and returns the function that removes it.
	Subscribe(table Table, fn Handler) (unsubscribe func())
	Ping(ctx context.Context) error
	Close() error
}

// LocalBroker delivers changes to subscribers in this process.
type LocalBroker struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Table]map[uint64]Handler
}

var _ Broker = (*LocalBroker)(nil)

func NewLocalBroker() *LocalBroker {
	return &LocalBroker{subs: make(map[Table]map[uint64]Handler)}
}

func (b *LocalBroker) Publish(ctx context.Context, c Change) error {
	b.deliver(c)
	return nil
}

func (b *LocalBroker) deliver(c Change) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subs[c.Table]))
	for _, fn := range b.subs[c.Table] {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(c)
	}
}

func (b *LocalBroker) Subscribe(table Table, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	if b.subs[table] == nil {
		b.subs[table] = make(map[uint64]Handler)
	}
	b.subs[table][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[table], id)
		})
	}
}

// Subscribers returns the number of handlers registered for table.
func (b *LocalBroker) Subscribers(table Table) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[table])
}

func (b *LocalBroker) Ping(ctx context.Context) error { return nil }

func (b *LocalBroker) Close() error { return nil }
