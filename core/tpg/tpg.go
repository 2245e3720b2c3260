// Package tpg implements the Trusted Parameter Generator: a third party,
// trusted not to collude, that hands out Beaver triples for multiplication
// (spec.md §4.5). Grounded on _examples/original_source/ttp.py for the
// add-participant-then-serve lifecycle and on the teacher's core/vm/rng.go
// for the Go shape of a stateful generator guarded by a mutex rather than
// Python's single-threaded interpreter.
package tpg

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/luciehof/smpc-go/core/field"
	"github.com/luciehof/smpc-go/core/protocol"
	"github.com/luciehof/smpc-go/core/share"
)

// entry is one op id's cached triple, generated at most once. once guards
// generation itself; shares is only safe to read after once.Do's function
// has returned, which every caller observes by calling once.Do again (a
// no-op for callers after the first).
type entry struct {
	once   sync.Once
	shares map[protocol.ParticipantID][3]share.Share
	err    error
}

// Generator serves Beaver triples for a fixed field and a finalized set of
// participants. It must be constructed with NewGenerator, populated with
// AddParticipant for each participant, and then closed for registration with
// Finalize before it will serve any Triple request.
type Generator struct {
	field field.Field

	mu           sync.Mutex
	participants map[protocol.ParticipantID]int
	finalized    bool

	entriesMu sync.Mutex
	entries   map[[16]byte]*entry

	generations int64
}

// NewGenerator returns a Generator over f, with no participants registered
// and not yet finalized.
func NewGenerator(f field.Field) *Generator {
	return &Generator{
		field:        f,
		participants: make(map[protocol.ParticipantID]int),
		entries:      make(map[[16]byte]*entry),
	}
}

// AddParticipant registers id at the next available index. It is an error
// to call AddParticipant after Finalize.
func (g *Generator) AddParticipant(id protocol.ParticipantID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.finalized {
		return protocol.NewConfigError("cannot add participant %q after the generator is finalized", id)
	}
	if _, dup := g.participants[id]; dup {
		return protocol.NewConfigError("duplicate participant id %q", id)
	}
	g.participants[id] = len(g.participants)
	return nil
}

// Finalize closes participant registration. Triple requests made before
// Finalize fail with protocol.NotReadyError.
func (g *Generator) Finalize() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.finalized = true
}

// Triple returns participant's share of the Beaver triple for opID,
// generating it on the first request for that opID across every
// participant and caching it for the rest (spec.md §4.5). Concurrent
// requests for the same opID block on the same generation via a
// per-entry sync.Once rather than racing to generate twice.
func (g *Generator) Triple(ctx context.Context, participant protocol.ParticipantID, opID [16]byte) (a, b, c share.Share, err error) {
	g.mu.Lock()
	idx, known := g.participants[participant]
	finalized := g.finalized
	n := len(g.participants)
	g.mu.Unlock()

	if !finalized {
		return share.Share{}, share.Share{}, share.Share{}, protocol.NotReadyError()
	}
	if !known {
		return share.Share{}, share.Share{}, share.Share{}, protocol.AuthError(string(participant))
	}

	e := g.entryFor(opID)
	e.once.Do(func() {
		e.shares, e.err = g.generate(n)
	})
	if e.err != nil {
		return share.Share{}, share.Share{}, share.Share{}, e.err
	}

	triple, ok := e.shares[participant]
	if !ok {
		return share.Share{}, share.Share{}, share.Share{}, protocol.NewInternalError(
			"trusted parameter generator has no cached triple for participant %q (index %d) at op %x", participant, idx, opID)
	}
	return triple[0], triple[1], triple[2], nil
}

// Generations returns the number of times this Generator has actually drawn
// a fresh Beaver triple, as opposed to serving one from cache. Exposed for
// the concurrency test that checks generation happens at-most-once per op
// id even under simultaneous requesters (spec.md §4.5).
func (g *Generator) Generations() int64 {
	return atomic.LoadInt64(&g.generations)
}

func (g *Generator) entryFor(opID [16]byte) *entry {
	g.entriesMu.Lock()
	defer g.entriesMu.Unlock()
	e, ok := g.entries[opID]
	if !ok {
		e = &entry{}
		g.entries[opID] = e
	}
	return e
}

// generate draws a fresh Beaver triple and splits it into per-participant
// shares (spec.md §4.5 steps 1-2).
func (g *Generator) generate(n int) (map[protocol.ParticipantID][3]share.Share, error) {
	atomic.AddInt64(&g.generations, 1)

	a := g.field.Random()
	b := g.field.Random()
	c := a.Mul(b)

	g.mu.Lock()
	participants := make([]protocol.ParticipantID, n)
	for id, idx := range g.participants {
		participants[idx] = id
	}
	g.mu.Unlock()

	aShares := share.Split(a, n)
	bShares := share.Split(b, n)
	cShares := share.Split(c, n)

	out := make(map[protocol.ParticipantID][3]share.Share, n)
	for idx, id := range participants {
		out[id] = [3]share.Share{aShares[idx], bShares[idx], cShares[idx]}
	}
	return out, nil
}
