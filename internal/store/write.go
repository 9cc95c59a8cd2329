package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/ao20/internal/ir"
	"github.com/roach88/ao20/internal/ledger"
)

// WriteGenesis stores the journal's initial configuration.
// Returns ErrGenesisExists if a genesis is already present.
func (s *Store) WriteGenesis(ctx context.Context, g ledger.Genesis) error {
	doc, err := EncodeGenesis(g)
	if err != nil {
		return fmt.Errorf("write genesis: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO genesis (id, process, document, ledger_version)
		VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, g.Process, doc, ir.LedgerVersion)
	if err != nil {
		return fmt.Errorf("write genesis: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write genesis: rows affected: %w", err)
	}
	if n == 0 {
		return ErrGenesisExists
	}
	return nil
}

// AppendResult writes msg, its result and its notices in one transaction.
//
// Appending a message ID that is already journaled is a silent no-op, so a
// retried append after a crash is safe. A different message already holding
// msg.Seq returns ErrSeqConflict.
func (s *Store) AppendResult(ctx context.Context, msg ir.Message, res ir.Result) error {
	if res.MessageID != msg.ID || res.Seq != msg.Seq {
		return fmt.Errorf("append result: result (%s, %d) does not belong to message (%s, %d)",
			res.MessageID, res.Seq, msg.ID, msg.Seq)
	}

	tagsJSON, err := EncodeTags(msg.Tags)
	if err != nil {
		return fmt.Errorf("append result: %w", err)
	}
	replyJSON, err := EncodeReply(res.Reply)
	if err != nil {
		return fmt.Errorf("append result: %w", err)
	}
	hash, err := ir.ResultHash(res)
	if err != nil {
		return fmt.Errorf("append result: %w", err)
	}
	notices, err := res.NoticeRecords()
	if err != nil {
		return fmt.Errorf("append result: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("append result: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	inserted, err := s.insertMessage(ctx, tx, msg, tagsJSON)
	if err != nil {
		return err
	}
	if !inserted {
		return nil
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO results (message_id, seq, reply, error, hash)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, res.MessageID, res.Seq, replyJSON, res.Error, hash)
	if err != nil {
		return fmt.Errorf("append result: insert result: %w", err)
	}

	for _, n := range notices {
		ntags, err := EncodeTags(n.Tags)
		if err != nil {
			return fmt.Errorf("append result: notice %d: %w", n.Index, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO notices (id, message_id, seq, idx, target, action, tags, data)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT DO NOTHING
		`, n.ID, n.MessageID, n.Seq, n.Index, n.Target, n.Action(), ntags, n.Data)
		if err != nil {
			return fmt.Errorf("append result: insert notice %d: %w", n.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("append result: commit: %w", err)
	}
	return nil
}

// insertMessage reports inserted=false when the same message ID is already
// journaled. ON CONFLICT DO NOTHING also swallows a seq collision, so that
// case is told apart by looking the ID up.
func (s *Store) insertMessage(ctx context.Context, tx *sql.Tx, msg ir.Message, tagsJSON string) (bool, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO messages (id, seq, caller, action, tags, data)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, msg.ID, msg.Seq, msg.From, msg.Action, tagsJSON, msg.Data)
	if err != nil {
		return false, fmt.Errorf("append result: insert message: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("append result: rows affected: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	var existing int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages WHERE id = ?`, msg.ID).Scan(&existing)
	if err != nil {
		return false, fmt.Errorf("append result: check existing: %w", err)
	}
	if existing == 0 {
		return false, fmt.Errorf("append result: seq %d: %w", msg.Seq, ErrSeqConflict)
	}
	return false, nil
}
