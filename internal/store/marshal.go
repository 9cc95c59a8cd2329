package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/ao20/internal/ir"
	"github.com/roach88/ao20/internal/ledger"
)

// Codec shared by the SQLite and PostgreSQL journals. Both store these
// columns as TEXT in canonical form.

// EncodeTags converts tags to canonical JSON TEXT for storage.
func EncodeTags(tags ir.Tags) (string, error) {
	data, err := ir.MarshalCanonical(tags.Clone())
	if err != nil {
		return "", fmt.Errorf("marshal tags: %w", err)
	}
	return string(data), nil
}

// DecodeTags parses stored tags. Empty input yields an empty, non-nil map.
func DecodeTags(data string) (ir.Tags, error) {
	tags := ir.Tags{}
	if data == "" || data == "{}" {
		return tags, nil
	}
	if err := json.Unmarshal([]byte(data), &tags); err != nil {
		return nil, fmt.Errorf("unmarshal tags: %w", err)
	}
	return tags, nil
}

// EncodeReply stores a reply as canonical JSON, or NULL when there is none.
func EncodeReply(reply *ir.Outbound) (*string, error) {
	if reply == nil {
		return nil, nil
	}
	data, err := ir.MarshalCanonical(reply.CanonicalMap())
	if err != nil {
		return nil, fmt.Errorf("marshal reply: %w", err)
	}
	s := string(data)
	return &s, nil
}

// DecodeReply is the inverse of EncodeReply.
func DecodeReply(data *string) (*ir.Outbound, error) {
	if data == nil {
		return nil, nil
	}
	var out ir.Outbound
	if err := json.Unmarshal([]byte(*data), &out); err != nil {
		return nil, fmt.Errorf("unmarshal reply: %w", err)
	}
	if out.Tags == nil {
		out.Tags = ir.Tags{}
	}
	return &out, nil
}

// EncodeGenesis converts a genesis to JSON TEXT.
// Genesis is a struct, so field order is fixed by its declaration and map
// keys are sorted by encoding/json; HTML escaping is disabled so stored
// text matches canonical output for plain strings.
func EncodeGenesis(g ledger.Genesis) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(g); err != nil {
		return "", fmt.Errorf("marshal genesis: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// DecodeGenesis parses a stored genesis document.
func DecodeGenesis(data string) (ledger.Genesis, error) {
	var g ledger.Genesis
	if err := json.Unmarshal([]byte(data), &g); err != nil {
		return ledger.Genesis{}, fmt.Errorf("unmarshal genesis: %w", err)
	}
	if g.Balances == nil {
		g.Balances = map[string]string{}
	}
	return g, nil
}
