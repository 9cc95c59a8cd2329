package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainNotice = "ao20/notice/v1"
	DomainResult = "ao20/result/v1"
	DomainState  = "ao20/state/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// CanonicalMap renders an outbound record for canonical marshaling.
func (o Outbound) CanonicalMap() map[string]any {
	return map[string]any{
		"target": o.Target,
		"tags":   o.Tags.Clone(),
		"data":   o.Data,
	}
}

// CanonicalMap renders a result for canonical marshaling. Optional fields
// are omitted rather than null.
func (r Result) CanonicalMap() map[string]any {
	notices := make([]any, len(r.Notices))
	for i, n := range r.Notices {
		notices[i] = n.CanonicalMap()
	}
	m := map[string]any{
		"message_id": r.MessageID,
		"seq":        r.Seq,
		"from":       r.From,
		"action":     r.Action,
		"notices":    notices,
	}
	if r.Reply != nil {
		m["reply"] = r.Reply.CanonicalMap()
	}
	if r.Error != "" {
		m["error"] = r.Error
	}
	return m
}

// NoticeID computes the content-addressed ID of the index-th notice
// emitted while handling messageID.
func NoticeID(messageID string, index int, n Outbound) (string, error) {
	obj := map[string]any{
		"message_id": messageID,
		"index":      index,
		"notice":     n.CanonicalMap(),
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("NoticeID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainNotice, canonical), nil
}

// ResultHash fingerprints a result. Replay compares journaled and
// recomputed results by this hash.
func ResultHash(r Result) (string, error) {
	canonical, err := MarshalCanonical(r.CanonicalMap())
	if err != nil {
		return "", fmt.Errorf("ResultHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainResult, canonical), nil
}

// MustResultHash is ResultHash for tests. It panics on error.
func MustResultHash(r Result) string {
	h, err := ResultHash(r)
	if err != nil {
		panic(err)
	}
	return h
}

// StateHash fingerprints an already-canonical ledger state document.
func StateHash(canonical []byte) string {
	return hashWithDomain(DomainState, canonical)
}
