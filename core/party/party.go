// Package party implements the per-participant state machine that jointly
// evaluates an expression tree over secret-shared inputs (spec.md §4.6).
// Grounded on _examples/original_source/smc_party.py for protocol semantics
// — phase order, label names, the Beaver share formula, the scalar-
// absorption-by-index-0 convention — and on the teacher's core/vm dispatch
// shape and core/task.Task actor structure for the Go form.
package party

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/republicprotocol/co-go"

	"github.com/luciehof/smpc-go/core/board"
	"github.com/luciehof/smpc-go/core/expr"
	"github.com/luciehof/smpc-go/core/field"
	"github.com/luciehof/smpc-go/core/protocol"
	"github.com/luciehof/smpc-go/core/share"
	"github.com/luciehof/smpc-go/core/stack"
)

// Stats accumulates the diagnostic counters a run reports alongside its
// result: bytes moved over the board in each direction, and wall-clock
// elapsed time. Grounded on the bytes_in/bytes_out instrumentation in
// _examples/original_source/smc_party.py and the timing in
// _examples/original_source/performance_evaluation.py.
type Stats struct {
	InBytes  int64
	OutBytes int64
	Elapsed  time.Duration
}

// Party is one participant's copy of the protocol run. It holds no
// connection state beyond the Board it was constructed with: all
// cross-party communication is mediated by that Board.
type Party struct {
	id    protocol.ParticipantID
	idx   int
	spec  protocol.ProtocolSpec
	field field.Field
	board board.Board

	// inputs holds this party's cleartext values for the secrets it owns,
	// keyed by decimal-free string form of the SecretID.
	inputs map[string]field.Element

	localShares map[string]field.Element

	// statsMu guards stats: the two operand subtrees of an interactive Mul
	// are evaluated in separate goroutines (see evaluate), and each may
	// broadcast/send/fetch concurrently, so updates to the byte counters
	// below must not race.
	statsMu sync.Mutex
	stats   Stats
}

// New constructs a Party. inputs maps each secret id this party owns to its
// cleartext value; it is an error to pass a ParticipantID not present in
// spec.Participants.
func New(id protocol.ParticipantID, spec protocol.ProtocolSpec, inputs map[string]field.Element, b board.Board, f field.Field) (*Party, error) {
	idx, ok := spec.Index(id)
	if !ok {
		return nil, protocol.NewConfigError("participant %q is not declared in the protocol spec", id)
	}
	return &Party{
		id:          id,
		idx:         idx,
		spec:        spec,
		field:       f,
		board:       b,
		inputs:      inputs,
		localShares: make(map[string]field.Element),
	}, nil
}

// Run drives the four ordered phases of spec.md §4.6 to completion and
// returns the cleartext result every honest party agrees on.
func (p *Party) Run(ctx context.Context) (field.Element, Stats, error) {
	start := time.Now()
	log.Printf("[info] (party %s) starting run as index %d of %d", p.id, p.idx, p.spec.N())

	secretIDsByOwner, err := p.announceInputs(ctx)
	if err != nil {
		return field.Element{}, p.stats, err
	}
	log.Printf("[debug] (party %s) phase A complete: %d owners", p.id, len(secretIDsByOwner))

	if err := p.distributeShares(ctx, secretIDsByOwner); err != nil {
		return field.Element{}, p.stats, err
	}
	log.Printf("[debug] (party %s) phase B complete: %d local shares", p.id, len(p.localShares))

	myShare, err := p.evaluate(ctx, p.spec.Expr)
	if err != nil {
		log.Printf("[error] (party %s) phase C failed: %v", p.id, err)
		return field.Element{}, p.stats, err
	}
	log.Printf("[debug] (party %s) phase C complete", p.id)

	result, err := p.reveal(ctx, myShare)
	if err != nil {
		return field.Element{}, p.stats, err
	}

	p.stats.Elapsed = time.Since(start)
	log.Printf("[info] (party %s) run complete in %s", p.id, p.stats.Elapsed)
	return result, p.stats, nil
}

const labelClientSecretsID = "client_secrets_id"
const labelComputedShare = "computed_share"

// announceInputs implements Phase A: every party publishes which secret ids
// it owns, then learns every other party's ownership claims.
func (p *Party) announceInputs(ctx context.Context) (map[protocol.ParticipantID][]protocol.SecretID, error) {
	owned := make([]protocol.SecretID, 0, len(p.inputs))
	for idStr := range p.inputs {
		owned = append(owned, protocol.SecretID(idStr))
	}
	sort.Slice(owned, func(i, j int) bool { return string(owned[i]) < string(owned[j]) })

	if err := p.broadcast(ctx, labelClientSecretsID, protocol.EncodeSecretIDs(owned)); err != nil {
		return nil, err
	}

	secretIDsByOwner := make(map[protocol.ParticipantID][]protocol.SecretID, p.spec.N())
	for _, owner := range p.spec.Participants {
		encoded, err := p.fetchBroadcast(ctx, owner, labelClientSecretsID)
		if err != nil {
			return nil, err
		}
		secretIDsByOwner[owner] = protocol.DecodeSecretIDs(encoded)
	}
	return secretIDsByOwner, nil
}

// distributeShares implements Phase B: split and privately send every
// secret this party owns, then collect this party's share of every secret
// declared in Phase A.
func (p *Party) distributeShares(ctx context.Context, secretIDsByOwner map[protocol.ParticipantID][]protocol.SecretID) error {
	n := p.spec.N()

	owned := make([]string, 0, len(p.inputs))
	for idStr := range p.inputs {
		owned = append(owned, idStr)
	}
	sort.Strings(owned)

	for _, idStr := range owned {
		value := p.inputs[idStr]
		shares := share.Split(value, n)
		for i, recipient := range p.spec.Participants {
			if err := p.sendPrivate(ctx, recipient, idStr, []byte(shares[i].Value.String())); err != nil {
				return err
			}
		}
	}

	for _, owner := range p.spec.Participants {
		for _, id := range secretIDsByOwner[owner] {
			idStr := string(id)
			raw, err := p.fetchPrivate(ctx, idStr)
			if err != nil {
				return err
			}
			v, err := p.field.ParseDecimal(string(raw))
			if err != nil {
				return protocol.NewProtocolError("party %s: malformed share for secret %q: %v", p.id, idStr, err)
			}
			p.localShares[idStr] = v
		}
	}
	return nil
}

// reveal implements Phase D: broadcast this party's final share, collect
// everyone else's, and reconstruct the cleartext result.
func (p *Party) reveal(ctx context.Context, myShare field.Element) (field.Element, error) {
	if err := p.broadcast(ctx, labelComputedShare, []byte(myShare.String())); err != nil {
		return field.Element{}, err
	}

	shares := make([]share.Share, 0, p.spec.N())
	for _, participant := range p.spec.Participants {
		raw, err := p.fetchBroadcast(ctx, participant, labelComputedShare)
		if err != nil {
			return field.Element{}, err
		}
		v, err := p.field.ParseDecimal(string(raw))
		if err != nil {
			return field.Element{}, protocol.NewProtocolError("party %s: malformed computed share from %q: %v", p.id, participant, err)
		}
		shares = append(shares, share.Share{Value: v})
	}

	return share.Join(shares)
}

// evalFrame is one entry on the explicit Phase-C work stack: either a node
// awaiting its first visit, or an operator node whose operands have been
// pushed and now need combining (visited == true). For a Mul by a public
// Scalar only the non-scalar operand is pushed, and scalar holds the factor.
type evalFrame struct {
	node    expr.Node
	visited bool
	scalar  field.Element
}

// evaluate performs the bottom-up traversal of spec.md §4.6 Phase C using
// an explicit work stack (core/stack) instead of Go-level recursion, so a
// long Add/Sub chain costs O(1) Go-stack frames regardless of its depth
// (spec.md §9 "Recursion depth"). Recursion is used only at a genuinely
// interactive Mul node, where the two operand subtrees are independent and
// are evaluated concurrently via co.ParForAll before the Beaver step
// (spec.md §5 pipelining allowance), matching the teacher's use of
// github.com/republicprotocol/co-go for parallel fan-out.
func (p *Party) evaluate(ctx context.Context, root expr.Node) (field.Element, error) {
	work := stack.New()
	values := stack.New()
	work.Push(evalFrame{node: root})

	for !work.IsEmpty() {
		raw, err := work.Pop()
		if err != nil {
			return field.Element{}, protocol.NewInternalError("party %s: evaluation work stack underflow: %v", p.id, err)
		}
		fr := raw.(evalFrame)

		switch n := fr.node.(type) {
		case expr.SecretRef:
			v, ok := p.localShares[string(n.ID)]
			if !ok {
				return field.Element{}, protocol.NewProtocolError("party %s: no local share for secret %q", p.id, n.ID)
			}
			values.Push(v)

		case expr.Scalar:
			if p.idx == 0 {
				values.Push(n.Value)
			} else {
				values.Push(p.field.Zero())
			}

		case expr.Add:
			if !fr.visited {
				work.Push(evalFrame{node: n, visited: true})
				work.Push(evalFrame{node: n.B})
				work.Push(evalFrame{node: n.A})
				continue
			}
			b, a, err := pop2(&values)
			if err != nil {
				return field.Element{}, protocol.NewInternalError("party %s: %v", p.id, err)
			}
			values.Push(a.Add(b))

		case expr.Sub:
			if !fr.visited {
				work.Push(evalFrame{node: n, visited: true})
				work.Push(evalFrame{node: n.B})
				work.Push(evalFrame{node: n.A})
				continue
			}
			b, a, err := pop2(&values)
			if err != nil {
				return field.Element{}, protocol.NewInternalError("party %s: %v", p.id, err)
			}
			values.Push(a.Sub(b))

		case expr.Mul:
			if scalar, other, ok := scalarOperand(n); ok {
				if !fr.visited {
					work.Push(evalFrame{node: n, visited: true, scalar: scalar})
					work.Push(evalFrame{node: other})
					continue
				}
				v, err := pop1(&values)
				if err != nil {
					return field.Element{}, protocol.NewInternalError("party %s: %v", p.id, err)
				}
				values.Push(v.Mul(fr.scalar))
				continue
			}

			// Both operands require interaction: evaluate them
			// concurrently, then perform the Beaver step.
			var aVal, bVal field.Element
			var aErr, bErr error
			co.ParForAll(make([]struct{}, 2), func(i int) {
				if i == 0 {
					aVal, aErr = p.evaluate(ctx, n.A)
				} else {
					bVal, bErr = p.evaluate(ctx, n.B)
				}
			})
			if aErr != nil {
				return field.Element{}, aErr
			}
			if bErr != nil {
				return field.Element{}, bErr
			}
			result, err := p.beaverMultiply(ctx, n.OpID, aVal, bVal)
			if err != nil {
				return field.Element{}, err
			}
			values.Push(result)

		default:
			return field.Element{}, protocol.NewInternalError("party %s: unexpected expression node %T", p.id, n)
		}
	}

	out, err := pop1(&values)
	if err != nil {
		return field.Element{}, protocol.NewInternalError("party %s: %v", p.id, err)
	}
	return out, nil
}

// scalarOperand reports whether one side of a Mul is a literal Scalar, and
// if so returns its raw (public) value and the other operand node. Per
// spec.md §4.6, this case is handled by local scaling, never Beaver
// multiplication.
func scalarOperand(n expr.Mul) (scalar field.Element, other expr.Node, ok bool) {
	if s, isScalar := n.A.(expr.Scalar); isScalar {
		return s.Value, n.B, true
	}
	if s, isScalar := n.B.(expr.Scalar); isScalar {
		return s.Value, n.A, true
	}
	return field.Element{}, nil, false
}

func pop1(s *stack.Stack) (field.Element, error) {
	raw, err := s.Pop()
	if err != nil {
		return field.Element{}, err
	}
	return raw.(field.Element), nil
}

func pop2(s *stack.Stack) (b, a field.Element, err error) {
	rawB, err := s.Pop()
	if err != nil {
		return field.Element{}, field.Element{}, err
	}
	rawA, err := s.Pop()
	if err != nil {
		return field.Element{}, field.Element{}, err
	}
	return rawB.(field.Element), rawA.(field.Element), nil
}

// beaverMultiply performs the interactive Beaver step for a Mul node with
// op id opID whose operands evaluate to this party's local shares x, y
// (spec.md §4.6 "Beaver multiplication").
func (p *Party) beaverMultiply(ctx context.Context, opID expr.OpID, x, y field.Element) (field.Element, error) {
	a, b, c, err := p.board.FetchTriple(ctx, p.id, [16]byte(opID))
	if err != nil {
		return field.Element{}, err
	}
	p.addInBytes(3 * 32) // approximate: one field element per share component

	d := x.Sub(a.Value)
	e := y.Sub(b.Value)

	maskXLabel := "mask_x:" + opID.String()
	maskYLabel := "mask_y:" + opID.String()

	if err := p.broadcast(ctx, maskXLabel, []byte(d.String())); err != nil {
		return field.Element{}, err
	}
	if err := p.broadcast(ctx, maskYLabel, []byte(e.String())); err != nil {
		return field.Element{}, err
	}

	dSum := p.field.Zero()
	eSum := p.field.Zero()
	for _, participant := range p.spec.Participants {
		rawD, err := p.fetchBroadcast(ctx, participant, maskXLabel)
		if err != nil {
			return field.Element{}, err
		}
		vD, err := p.field.ParseDecimal(string(rawD))
		if err != nil {
			return field.Element{}, protocol.NewProtocolError("party %s: malformed mask_x from %q: %v", p.id, participant, err)
		}
		dSum = dSum.Add(vD)

		rawE, err := p.fetchBroadcast(ctx, participant, maskYLabel)
		if err != nil {
			return field.Element{}, err
		}
		vE, err := p.field.ParseDecimal(string(rawE))
		if err != nil {
			return field.Element{}, protocol.NewProtocolError("party %s: malformed mask_y from %q: %v", p.id, participant, err)
		}
		eSum = eSum.Add(vE)
	}

	// result = c_i + a_i*e + b_i*d (+ d*e for party index 0)
	result := c.Value.Add(a.Value.Mul(eSum)).Add(b.Value.Mul(dSum))
	if p.idx == 0 {
		result = result.Add(dSum.Mul(eSum))
	}
	return result, nil
}

func (p *Party) addOutBytes(n int) {
	p.statsMu.Lock()
	p.stats.OutBytes += int64(n)
	p.statsMu.Unlock()
}

func (p *Party) addInBytes(n int) {
	p.statsMu.Lock()
	p.stats.InBytes += int64(n)
	p.statsMu.Unlock()
}

func (p *Party) broadcast(ctx context.Context, label string, msg []byte) error {
	p.addOutBytes(len(msg))
	return p.board.Broadcast(ctx, p.id, label, msg)
}

func (p *Party) fetchBroadcast(ctx context.Context, sender protocol.ParticipantID, label string) ([]byte, error) {
	msg, err := p.board.FetchBroadcast(ctx, sender, label)
	if err != nil {
		return nil, err
	}
	p.addInBytes(len(msg))
	return msg, nil
}

func (p *Party) sendPrivate(ctx context.Context, recipient protocol.ParticipantID, label string, msg []byte) error {
	p.addOutBytes(len(msg))
	return p.board.SendPrivate(ctx, recipient, label, msg)
}

func (p *Party) fetchPrivate(ctx context.Context, label string) ([]byte, error) {
	msg, err := p.board.FetchPrivate(ctx, p.id, label)
	if err != nil {
		return nil, err
	}
	p.addInBytes(len(msg))
	return msg, nil
}

// Stats returns a snapshot of this party's diagnostic counters. Safe to
// call after Run returns.
func (p *Party) Stats() Stats {
	return p.stats
}
