package main

import (
	"encoding/json"
	"fmt"

	"github.com/luciehof/smpc-go/core/expr"
	"github.com/luciehof/smpc-go/core/field"
	"github.com/luciehof/smpc-go/core/protocol"
)

// sessionFile is the on-disk JSON description of one protocol run: the
// participant ordering, the jointly-agreed expression tree, and each
// participant's cleartext inputs. This is the bootstrap artifact spec.md §6
// assumes already exists by the time Phase A begins — something the
// original Python reference (_examples/original_source/Application.py)
// builds in-process via smc_client, and which this CLI instead reads from a
// file so a session can be reproduced or inspected.
type sessionFile struct {
	Participants []string                     `json:"participants"`
	Expression   nodeJSON                     `json:"expression"`
	Inputs       map[string]map[string]int64  `json:"inputs"`
}

// nodeJSON is the wire encoding of an expr.Node. Type selects the variant;
// only the fields that variant uses are populated (ID for "secret", Value
// for "scalar", A and B for "add", "sub" and "mul").
type nodeJSON struct {
	Type  string      `json:"type"`
	ID    string      `json:"id,omitempty"`
	Value int64       `json:"value,omitempty"`
	A     *nodeJSON   `json:"a,omitempty"`
	B     *nodeJSON   `json:"b,omitempty"`
}

func decodeSession(data []byte, f field.Field) ([]protocol.ParticipantID, protocol.ProtocolSpec, map[protocol.ParticipantID]map[string]field.Element, error) {
	var sf sessionFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, protocol.ProtocolSpec{}, nil, fmt.Errorf("decode session file: %w", err)
	}
	if len(sf.Participants) == 0 {
		return nil, protocol.ProtocolSpec{}, nil, fmt.Errorf("decode session file: no participants declared")
	}

	participants := make([]protocol.ParticipantID, len(sf.Participants))
	for i, p := range sf.Participants {
		participants[i] = protocol.ParticipantID(p)
	}

	root, err := sf.Expression.toNode()
	if err != nil {
		return nil, protocol.ProtocolSpec{}, nil, fmt.Errorf("decode session file: %w", err)
	}

	spec, err := protocol.New(participants, root)
	if err != nil {
		return nil, protocol.ProtocolSpec{}, nil, err
	}

	ownership := make(map[protocol.ParticipantID]map[string]int64, len(sf.Inputs))
	for participant, values := range sf.Inputs {
		ownership[protocol.ParticipantID(participant)] = values
	}
	if err := protocol.ValidateSecretOwnership(root, ownership); err != nil {
		return nil, protocol.ProtocolSpec{}, nil, err
	}

	inputs := make(map[protocol.ParticipantID]map[string]field.Element, len(sf.Inputs))
	for participant, values := range sf.Inputs {
		converted := make(map[string]field.Element, len(values))
		for id, v := range values {
			converted[id] = f.NewElementFromInt64(v)
		}
		inputs[protocol.ParticipantID(participant)] = converted
	}

	return participants, spec, inputs, nil
}

func (n nodeJSON) toNode() (expr.Node, error) {
	switch n.Type {
	case "secret":
		if n.ID == "" {
			return nil, fmt.Errorf("secret node missing id")
		}
		return expr.NewSecretRef(expr.SecretID(n.ID)), nil
	case "scalar":
		return expr.NewScalar(field.Default().NewElementFromInt64(n.Value)), nil
	case "add", "sub", "mul":
		if n.A == nil || n.B == nil {
			return nil, fmt.Errorf("%s node requires both a and b", n.Type)
		}
		a, err := n.A.toNode()
		if err != nil {
			return nil, err
		}
		b, err := n.B.toNode()
		if err != nil {
			return nil, err
		}
		switch n.Type {
		case "add":
			return expr.NewAdd(a, b), nil
		case "sub":
			return expr.NewSub(a, b), nil
		default:
			return expr.NewMul(a, b), nil
		}
	default:
		return nil, fmt.Errorf("unknown expression node type %q", n.Type)
	}
}
