// Package memboard is an in-memory reference implementation of
// board.Board, for local tests and the CLI driver (spec.md §4.4, §5). It
// has no network layer: every party accesses the same Go struct, so
// "delivery" is just a mailbox lookup guarded by a mutex.
package memboard

import (
	"context"
	"fmt"
	"sync"

	"github.com/luciehof/smpc-go/core/board"
	"github.com/luciehof/smpc-go/core/protocol"
	"github.com/luciehof/smpc-go/core/share"
	"github.com/luciehof/smpc-go/core/tpg"
)

// mailbox holds one (sender-or-recipient, label) slot. A write closes ready,
// which every concurrent or future reader observes — "published once per
// run, observed by every party including itself" (spec.md §4.6 Phase A),
// without needing a separate broadcast-vs-private code path. This mirrors
// the publish-once mailbox shape of the teacher's core/task/io.go Channel,
// adapted from a buffered queue to a one-shot slot since this protocol's
// labels are each written exactly once.
type mailbox struct {
	mu    sync.Mutex
	ready chan struct{}
	msg   []byte
	sent  bool
}

func newMailbox() *mailbox {
	return &mailbox{ready: make(chan struct{})}
}

func (m *mailbox) set(msg []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sent {
		return fmt.Errorf("label already published")
	}
	m.msg = msg
	m.sent = true
	close(m.ready)
	return nil
}

func (m *mailbox) get(ctx context.Context) ([]byte, error) {
	select {
	case <-m.ready:
		return m.msg, nil
	case <-ctx.Done():
		return nil, protocol.NewTimeoutError(ctx.Err())
	}
}

type key struct {
	id    protocol.ParticipantID
	label string
}

// Board is the in-memory Board. It is safe for concurrent use by every
// party goroutine in a run and is wired to a single tpg.Generator for
// FetchTriple (spec.md §4.5).
type Board struct {
	mu         sync.Mutex
	broadcasts map[key]*mailbox
	privates   map[key]*mailbox

	gen *tpg.Generator
}

var _ board.Board = (*Board)(nil)

// New returns a Board backed by gen for FetchTriple requests.
func New(gen *tpg.Generator) *Board {
	return &Board{
		broadcasts: make(map[key]*mailbox),
		privates:   make(map[key]*mailbox),
		gen:        gen,
	}
}

func lookup(mu *sync.Mutex, m map[key]*mailbox, k key) *mailbox {
	mu.Lock()
	defer mu.Unlock()
	box, ok := m[k]
	if !ok {
		box = newMailbox()
		m[k] = box
	}
	return box
}

// Broadcast publishes msg under (sender, label).
func (b *Board) Broadcast(ctx context.Context, sender protocol.ParticipantID, label string, msg []byte) error {
	box := lookup(&b.mu, b.broadcasts, key{sender, label})
	if err := box.set(msg); err != nil {
		return protocol.NewProtocolError("broadcast (%s, %s): %v", sender, label, err)
	}
	return nil
}

// FetchBroadcast blocks until (sender, label) has been published.
func (b *Board) FetchBroadcast(ctx context.Context, sender protocol.ParticipantID, label string) ([]byte, error) {
	box := lookup(&b.mu, b.broadcasts, key{sender, label})
	return box.get(ctx)
}

// SendPrivate delivers msg to recipient under label.
func (b *Board) SendPrivate(ctx context.Context, recipient protocol.ParticipantID, label string, msg []byte) error {
	box := lookup(&b.mu, b.privates, key{recipient, label})
	if err := box.set(msg); err != nil {
		return protocol.NewProtocolError("private send (%s, %s): %v", recipient, label, err)
	}
	return nil
}

// FetchPrivate blocks until a private message addressed to caller under
// label exists. memboard trusts the caller's claimed identity — there is no
// authentication layer (spec.md §9 Open Question (b)).
func (b *Board) FetchPrivate(ctx context.Context, caller protocol.ParticipantID, label string) ([]byte, error) {
	box := lookup(&b.mu, b.privates, key{caller, label})
	return box.get(ctx)
}

// FetchTriple delegates to the wired Generator.
func (b *Board) FetchTriple(ctx context.Context, participant protocol.ParticipantID, opID [16]byte) (a, b2, c share.Share, err error) {
	return b.gen.Triple(ctx, participant, opID)
}
