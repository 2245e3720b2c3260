package protocol

import (
	"bytes"
	"fmt"

	"github.com/luciehof/smpc-go/core/expr"
)

// SecretID is the opaque, globally-unique identifier of a declared private
// input (spec.md §3). IDs are compared by equality and must not contain the
// comma delimiter used to encode a participant's owned-secret-id list in
// Phase A (spec.md §6). It is a type alias for expr.SecretID so that a
// Secret's id can be used directly to build SecretRef expression leaves.
type SecretID = expr.SecretID

const idDelimiter = ','

func validateID(id SecretID) error {
	if len(id) == 0 {
		return NewConfigError("secret id must not be empty")
	}
	if bytes.IndexByte(id, idDelimiter) != -1 {
		return NewConfigError("secret id %q must not contain the delimiter byte %q", id, idDelimiter)
	}
	return nil
}

// EncodeSecretIDs implements the canonical comma-separated encoding of
// spec.md §4.6 Phase A: the concatenation of owned secret ids, delimited by
// a single comma byte.
func EncodeSecretIDs(ids []SecretID) []byte {
	parts := make([][]byte, len(ids))
	for i, id := range ids {
		parts[i] = id
	}
	return bytes.Join(parts, []byte{idDelimiter})
}

// DecodeSecretIDs is the inverse of EncodeSecretIDs. An empty input decodes
// to zero ids (a participant that owns nothing still publishes Phase A).
func DecodeSecretIDs(encoded []byte) []SecretID {
	if len(encoded) == 0 {
		return nil
	}
	parts := bytes.Split(encoded, []byte{idDelimiter})
	ids := make([]SecretID, len(parts))
	for i, p := range parts {
		ids[i] = SecretID(p)
	}
	return ids
}

// ParticipantID identifies one party in a session. Participants are ordered
// by their position in ProtocolSpec.Participants; that position is the
// party's canonical index, and index 0 is distinguished for scalar
// absorption (spec.md §4.6) and the Beaver d·e term (spec.md §4.6).
type ParticipantID string

// ProtocolSpec is the ordered list of participants plus the expression tree
// they jointly evaluate (spec.md §3). It is agreed on by all parties and the
// TPG before a session starts; it carries no per-party secret values.
type ProtocolSpec struct {
	Participants []ParticipantID
	Expr         expr.Node
}

// New validates and returns a ProtocolSpec. It rejects an empty participant
// list, a duplicate participant id and a nil expression, all of which are
// malformed-spec conditions detected pre-run (spec.md §7, ConfigError).
func New(participants []ParticipantID, root expr.Node) (ProtocolSpec, error) {
	if len(participants) == 0 {
		return ProtocolSpec{}, NewConfigError("protocol spec must declare at least one participant")
	}
	seen := make(map[ParticipantID]struct{}, len(participants))
	for _, p := range participants {
		if _, dup := seen[p]; dup {
			return ProtocolSpec{}, NewConfigError("duplicate participant id %q", p)
		}
		seen[p] = struct{}{}
	}
	if root == nil {
		return ProtocolSpec{}, NewConfigError("protocol spec must carry a non-nil expression")
	}
	return ProtocolSpec{Participants: participants, Expr: root}, nil
}

// Index returns the canonical index of id within the spec's participant
// ordering, and false if id is not a declared participant.
func (s ProtocolSpec) Index(id ParticipantID) (int, bool) {
	for i, p := range s.Participants {
		if p == id {
			return i, true
		}
	}
	return 0, false
}

// N returns the number of declared participants.
func (s ProtocolSpec) N() int {
	return len(s.Participants)
}

// ValidateSecretOwnership checks that every SecretRef leaf in the spec's
// expression resolves to exactly one owner across the given per-participant
// input maps, and that no two participants claim the same secret id. This
// is the pre-run structural check spec.md §3 and §7 require (ConfigError:
// "duplicate secret id across owners, missing secret").
func ValidateSecretOwnership(e expr.Node, inputs map[ParticipantID]map[string]int64) error {
	refs := expr.CollectSecretRefs(e)

	owner := make(map[string]ParticipantID, len(refs))
	for participant, values := range inputs {
		for idStr := range values {
			if prior, dup := owner[idStr]; dup {
				return NewConfigError("secret id %q is owned by both %q and %q", idStr, prior, participant)
			}
			owner[idStr] = participant
		}
	}

	for _, ref := range refs {
		idStr := string(ref.ID)
		if _, ok := owner[idStr]; !ok {
			return NewConfigError("secret id %q referenced by the expression has no owner", ref.ID)
		}
	}
	return nil
}

// Secret is a handle for a declared private input, as constructed by a
// session's bootstrap code before the expression tree is built (spec.md
// §3). It pairs a SecretID with validation of that id's shape.
type Secret struct {
	ID SecretID
}

// NewSecret validates id and returns a Secret wrapping it.
func NewSecret(id SecretID) (Secret, error) {
	if err := validateID(id); err != nil {
		return Secret{}, err
	}
	return Secret{ID: id}, nil
}

// Ref returns the SecretRef expression leaf for this secret.
func (s Secret) Ref() expr.Node {
	return expr.NewSecretRef(s.ID)
}

func (s Secret) String() string {
	return fmt.Sprintf("Secret(%s)", s.ID)
}
