package provisioner

import (
	"context"
	"sync"
	"testing"
	"time"

	"provisionr/pkg/db"
	"provisionr/pkg/db/dbtest"
	"provisionr/pkg/passphrase"
)

type recordedEvent struct {
	subject string
	event   Event
}

type fakePublisher struct {
	mu     sync.Mutex
	events []recordedEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, subject string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ev, ok := v.(Event); ok {
		p.events = append(p.events, recordedEvent{subject: subject, event: ev})
	}
	return p.err
}

func (p *fakePublisher) count(subject string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, e := range p.events {
		if e.subject == subject {
			n++
		}
	}
	return n
}

// steppingClock returns start, start+step, start+2*step, ...
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(step)
		return t
	}
}

func newTestLedger(t *testing.T, store *db.Store, opts ...LedgerOption) *Ledger {
	t.Helper()
	if store == nil {
		store = dbtest.Open(t)
	}
	return NewLedger(store.ORM, passphrase.New(), opts...)
}

func countCredentials(t *testing.T, store *db.Store) int64 {
	t.Helper()
	var n int64
	if err := store.ORM.Model(&credentialModel{}).Count(&n).Error; err != nil {
		t.Fatalf("count credentials: %v", err)
	}
	return n
}
