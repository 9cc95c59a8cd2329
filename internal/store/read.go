package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/ao20/internal/ir"
	"github.com/roach88/ao20/internal/ledger"
)

// ReadGenesis returns the stored genesis, or ErrNotFound on an
// uninitialized journal.
func (s *Store) ReadGenesis(ctx context.Context) (ledger.Genesis, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT document FROM genesis WHERE id = 1`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.Genesis{}, fmt.Errorf("read genesis: %w", ErrNotFound)
	}
	if err != nil {
		return ledger.Genesis{}, fmt.Errorf("read genesis: %w", err)
	}
	return DecodeGenesis(doc)
}

// LastSeq returns the highest journaled seq, or 0 for an empty journal.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM messages`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("read last seq: %w", err)
	}
	return seq, nil
}

// ReadMessages returns up to limit messages with seq > after.
// Results are ordered by seq ASC, id COLLATE BINARY ASC.
//
// Returns an empty slice (not nil) if no records exist.
func (s *Store) ReadMessages(ctx context.Context, after int64, limit int) ([]ir.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, caller, action, tags, data
		FROM messages
		WHERE seq > ?
		ORDER BY seq ASC, id COLLATE BINARY ASC
		LIMIT ?
	`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := []ir.Message{}
	for rows.Next() {
		var msg ir.Message
		var tagsJSON string
		if err := rows.Scan(&msg.ID, &msg.Seq, &msg.From, &msg.Action, &tagsJSON, &msg.Data); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		if msg.Tags, err = DecodeTags(tagsJSON); err != nil {
			return nil, fmt.Errorf("message %s: %w", msg.ID, err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

// ReadResults returns up to limit results with seq > after, each with its
// notices in emission order.
//
// Returns an empty slice (not nil) if no records exist.
func (s *Store) ReadResults(ctx context.Context, after int64, limit int) ([]ir.Result, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.message_id, r.seq, m.caller, m.action, r.reply, r.error
		FROM results r
		JOIN messages m ON m.id = r.message_id
		WHERE r.seq > ?
		ORDER BY r.seq ASC, r.message_id COLLATE BINARY ASC
		LIMIT ?
	`, after, limit)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	results, err := scanResults(rows)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return results, nil
	}

	first, last := results[0].Seq, results[len(results)-1].Seq
	notices, err := s.queryNotices(ctx, `
		SELECT id, message_id, seq, idx, target, tags, data
		FROM notices
		WHERE seq >= ? AND seq <= ?
		ORDER BY seq ASC, idx ASC
	`, first, last)
	if err != nil {
		return nil, err
	}
	attachNotices(results, notices)

	return results, nil
}

// LookupResult returns the journaled result of one message.
func (s *Store) LookupResult(ctx context.Context, messageID string) (ir.Result, bool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.message_id, r.seq, m.caller, m.action, r.reply, r.error
		FROM results r
		JOIN messages m ON m.id = r.message_id
		WHERE r.message_id = ?
	`, messageID)
	if err != nil {
		return ir.Result{}, false, fmt.Errorf("query result: %w", err)
	}
	results, err := scanResults(rows)
	if err != nil {
		return ir.Result{}, false, err
	}
	if len(results) == 0 {
		return ir.Result{}, false, nil
	}

	notices, err := s.queryNotices(ctx, `
		SELECT id, message_id, seq, idx, target, tags, data
		FROM notices
		WHERE message_id = ?
		ORDER BY idx ASC
	`, messageID)
	if err != nil {
		return ir.Result{}, false, err
	}
	attachNotices(results, notices)

	return results[0], true, nil
}

// ReadNotices pages the outbound log: notices with seq > after, in
// emission order.
//
// limit bounds the number of notices, but a page never ends part way
// through one message's notices, so the last seq of a page is always a
// safe cursor for the next call. A page may therefore exceed limit by the
// tail of its last message.
//
// Returns an empty slice (not nil) if no records exist.
func (s *Store) ReadNotices(ctx context.Context, after int64, limit int) ([]ir.NoticeRecord, error) {
	return s.queryNotices(ctx, `
		SELECT id, message_id, seq, idx, target, tags, data
		FROM notices
		WHERE seq > ?
		  AND seq <= COALESCE((
		      SELECT MAX(seq) FROM (
		          SELECT seq FROM notices
		          WHERE seq > ?
		          ORDER BY seq ASC, idx ASC
		          LIMIT ?
		      )
		  ), ?)
		ORDER BY seq ASC, idx ASC
	`, after, after, limit, after)
}

func (s *Store) queryNotices(ctx context.Context, query string, args ...any) ([]ir.NoticeRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notices: %w", err)
	}
	defer rows.Close()

	notices := []ir.NoticeRecord{}
	for rows.Next() {
		var n ir.NoticeRecord
		var tagsJSON string
		if err := rows.Scan(&n.ID, &n.MessageID, &n.Seq, &n.Index, &n.Target, &tagsJSON, &n.Data); err != nil {
			return nil, fmt.Errorf("scan notice: %w", err)
		}
		if n.Tags, err = DecodeTags(tagsJSON); err != nil {
			return nil, fmt.Errorf("notice %s: %w", n.ID, err)
		}
		notices = append(notices, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notices: %w", err)
	}

	return notices, nil
}

// scanResults reads result rows and closes rows. Notices are attached by
// the caller.
func scanResults(rows *sql.Rows) ([]ir.Result, error) {
	defer rows.Close()

	results := []ir.Result{}
	for rows.Next() {
		var r ir.Result
		var reply sql.NullString
		if err := rows.Scan(&r.MessageID, &r.Seq, &r.From, &r.Action, &reply, &r.Error); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		var replyJSON *string
		if reply.Valid {
			replyJSON = &reply.String
		}
		out, err := DecodeReply(replyJSON)
		if err != nil {
			return nil, fmt.Errorf("result %s: %w", r.MessageID, err)
		}
		r.Reply = out
		r.Notices = []ir.Outbound{}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}

	return results, nil
}

// attachNotices distributes notices (ordered by seq, idx) to their results.
func attachNotices(results []ir.Result, notices []ir.NoticeRecord) {
	byMessage := make(map[string]int, len(results))
	for i, r := range results {
		byMessage[r.MessageID] = i
	}
	for _, n := range notices {
		if i, ok := byMessage[n.MessageID]; ok {
			results[i].Notices = append(results[i].Notices, n.Outbound)
		}
	}
}
