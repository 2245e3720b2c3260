// Package board defines the bulletin-board transport contract every party
// and the Trusted Parameter Generator communicate through (spec.md §4.4).
// Messages are opaque byte strings; labels are namespaced per run.
package board

import (
	"context"

	"github.com/luciehof/smpc-go/core/protocol"
	"github.com/luciehof/smpc-go/core/share"
)

// Board is the external transport contract a Party is built against. It is
// deliberately narrow: a Party never knows whether its peers are goroutines
// in the same process, network peers, or a replay log — only that labels are
// namespaced per run and that fetches block until their data exists (spec.md
// §4.4, §5 "Scheduling model").
type Board interface {
	// Broadcast publishes msg under (sender, label). Each (sender, label)
	// pair is published at most once per run; a second Broadcast under the
	// same pair is a protocol.ProtocolError.
	Broadcast(ctx context.Context, sender protocol.ParticipantID, label string, msg []byte) error

	// FetchBroadcast blocks until (sender, label) has been published, then
	// returns its message. It returns protocol.TimeoutError if ctx is done
	// first.
	FetchBroadcast(ctx context.Context, sender protocol.ParticipantID, label string) ([]byte, error)

	// SendPrivate delivers msg to recipient under label. As with Broadcast,
	// a given (recipient, label) pair may be sent to at most once per run.
	SendPrivate(ctx context.Context, recipient protocol.ParticipantID, label string, msg []byte) error

	// FetchPrivate blocks until a private message addressed to caller under
	// label exists, then returns it. caller identifies the recipient mailbox
	// to read, since memboard has no notion of an authenticated connection
	// (spec.md §9 Open Question (b): unauthenticated transport).
	FetchPrivate(ctx context.Context, caller protocol.ParticipantID, label string) ([]byte, error)

	// FetchTriple requests participant's share of the Beaver triple for
	// opID from the Trusted Parameter Generator this board is wired to
	// (spec.md §4.5).
	FetchTriple(ctx context.Context, participant protocol.ParticipantID, opID [16]byte) (a, b, c share.Share, err error)
}
