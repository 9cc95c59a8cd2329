package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/roach88/ao20/internal/ir"
	"github.com/roach88/ao20/internal/ledger"
	"github.com/roach88/ao20/internal/store"
)

// Store is the PostgreSQL journal. It implements engine.Journal with the
// same semantics and sentinel errors as store.Store.
type Store struct {
	pool *Pool
}

// New wraps a migrated pool.
func New(pool *Pool) *Store {
	return &Store{pool: pool}
}

// Open connects to dsn, applies migrations and returns a Store that owns
// the pool.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return New(pool), nil
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// WriteGenesis stores the journal's initial configuration. A unique
// violation on the singleton row maps to store.ErrGenesisExists.
func (s *Store) WriteGenesis(ctx context.Context, g ledger.Genesis) error {
	doc, err := store.EncodeGenesis(g)
	if err != nil {
		return fmt.Errorf("write genesis: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO genesis (id, process, document, ledger_version)
		VALUES (1, $1, $2, $3)
	`, g.Process, doc, ir.LedgerVersion)
	if err != nil {
		if isDuplicateKeyError(err) {
			return store.ErrGenesisExists
		}
		return fmt.Errorf("write genesis: %w", err)
	}
	return nil
}

// ReadGenesis returns the stored genesis, or store.ErrNotFound.
func (s *Store) ReadGenesis(ctx context.Context) (ledger.Genesis, error) {
	var doc string
	err := s.pool.QueryRow(ctx, `SELECT document FROM genesis WHERE id = 1`).Scan(&doc)
	if err != nil {
		if isNotFoundError(err) {
			return ledger.Genesis{}, fmt.Errorf("read genesis: %w", store.ErrNotFound)
		}
		return ledger.Genesis{}, fmt.Errorf("read genesis: %w", err)
	}
	return store.DecodeGenesis(doc)
}

// AppendResult writes msg, its result and its notices in one transaction.
//
// A duplicate message ID is a silent no-op. A seq already held by another
// message surfaces as a unique violation and maps to store.ErrSeqConflict.
func (s *Store) AppendResult(ctx context.Context, msg ir.Message, res ir.Result) error {
	if res.MessageID != msg.ID || res.Seq != msg.Seq {
		return fmt.Errorf("append result: result (%s, %d) does not belong to message (%s, %d)",
			res.MessageID, res.Seq, msg.ID, msg.Seq)
	}

	tagsJSON, err := store.EncodeTags(msg.Tags)
	if err != nil {
		return fmt.Errorf("append result: %w", err)
	}
	replyJSON, err := store.EncodeReply(res.Reply)
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

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("append result: begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if committed

	tag, err := tx.Exec(ctx, `
		INSERT INTO messages (id, seq, caller, action, tags, data)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, msg.ID, msg.Seq, msg.From, msg.Action, tagsJSON, msg.Data)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("append result: seq %d: %w", msg.Seq, store.ErrSeqConflict)
		}
		return fmt.Errorf("append result: insert message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO results (message_id, seq, reply, error, hash)
		VALUES ($1, $2, $3, $4, $5)
	`, res.MessageID, res.Seq, replyJSON, res.Error, hash)
	if err != nil {
		return fmt.Errorf("append result: insert result: %w", err)
	}

	batch := &pgx.Batch{}
	for _, n := range notices {
		ntags, err := store.EncodeTags(n.Tags)
		if err != nil {
			return fmt.Errorf("append result: notice %d: %w", n.Index, err)
		}
		batch.Queue(`
			INSERT INTO notices (id, message_id, seq, idx, target, action, tags, data)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, n.ID, n.MessageID, n.Seq, n.Index, n.Target, n.Action(), ntags, n.Data)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("append result: insert notices: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("append result: commit: %w", err)
	}
	return nil
}

// LastSeq returns the highest journaled seq, or 0 for an empty journal.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.pool.QueryRow(ctx, `SELECT COALESCE(MAX(seq), 0) FROM messages`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("read last seq: %w", err)
	}
	return seq, nil
}

// ReadMessages returns up to limit messages with seq > after.
func (s *Store) ReadMessages(ctx context.Context, after int64, limit int) ([]ir.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, seq, caller, action, tags, data
		FROM messages
		WHERE seq > $1
		ORDER BY seq ASC, id COLLATE "C" ASC
		LIMIT $2
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
		if msg.Tags, err = store.DecodeTags(tagsJSON); err != nil {
			return nil, fmt.Errorf("message %s: %w", msg.ID, err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	return messages, nil
}

// ReadResults returns up to limit results with seq > after, with notices.
func (s *Store) ReadResults(ctx context.Context, after int64, limit int) ([]ir.Result, error) {
	results, err := s.queryResults(ctx, `
		SELECT r.message_id, r.seq, m.caller, m.action, r.reply, r.error
		FROM results r
		JOIN messages m ON m.id = r.message_id
		WHERE r.seq > $1
		ORDER BY r.seq ASC, r.message_id COLLATE "C" ASC
		LIMIT $2
	`, after, limit)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return results, nil
	}

	notices, err := s.queryNotices(ctx, `
		SELECT id, message_id, seq, idx, target, tags, data
		FROM notices
		WHERE seq >= $1 AND seq <= $2
		ORDER BY seq ASC, idx ASC
	`, results[0].Seq, results[len(results)-1].Seq)
	if err != nil {
		return nil, err
	}
	attach(results, notices)
	return results, nil
}

// LookupResult returns the journaled result of one message.
func (s *Store) LookupResult(ctx context.Context, messageID string) (ir.Result, bool, error) {
	results, err := s.queryResults(ctx, `
		SELECT r.message_id, r.seq, m.caller, m.action, r.reply, r.error
		FROM results r
		JOIN messages m ON m.id = r.message_id
		WHERE r.message_id = $1
	`, messageID)
	if err != nil {
		return ir.Result{}, false, err
	}
	if len(results) == 0 {
		return ir.Result{}, false, nil
	}

	notices, err := s.queryNotices(ctx, `
		SELECT id, message_id, seq, idx, target, tags, data
		FROM notices
		WHERE message_id = $1
		ORDER BY idx ASC
	`, messageID)
	if err != nil {
		return ir.Result{}, false, err
	}
	attach(results, notices)
	return results[0], true, nil
}

// ReadNotices pages the outbound log. Like the SQLite journal, a page
// never ends part way through one message's notices.
func (s *Store) ReadNotices(ctx context.Context, after int64, limit int) ([]ir.NoticeRecord, error) {
	return s.queryNotices(ctx, `
		SELECT id, message_id, seq, idx, target, tags, data
		FROM notices
		WHERE seq > $1
		  AND seq <= COALESCE((
		      SELECT MAX(page.seq) FROM (
		          SELECT seq FROM notices
		          WHERE seq > $1
		          ORDER BY seq ASC, idx ASC
		          LIMIT $2
		      ) AS page
		  ), $1)
		ORDER BY seq ASC, idx ASC
	`, after, limit)
}

func (s *Store) queryResults(ctx context.Context, query string, args ...any) ([]ir.Result, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := []ir.Result{}
	for rows.Next() {
		var r ir.Result
		var reply *string
		if err := rows.Scan(&r.MessageID, &r.Seq, &r.From, &r.Action, &reply, &r.Error); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if r.Reply, err = store.DecodeReply(reply); err != nil {
			return nil, fmt.Errorf("result %s: %w", r.MessageID, err)
		}
		r.Notices = []ir.Outbound{}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}

func (s *Store) queryNotices(ctx context.Context, query string, args ...any) ([]ir.NoticeRecord, error) {
	rows, err := s.pool.Query(ctx, query, args...)
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
		if n.Tags, err = store.DecodeTags(tagsJSON); err != nil {
			return nil, fmt.Errorf("notice %s: %w", n.ID, err)
		}
		notices = append(notices, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notices: %w", err)
	}
	return notices, nil
}

func attach(results []ir.Result, notices []ir.NoticeRecord) {
	index := make(map[string]int, len(results))
	for i, r := range results {
		index[r.MessageID] = i
	}
	for _, n := range notices {
		if i, ok := index[n.MessageID]; ok {
			results[i].Notices = append(results[i].Notices, n.Outbound)
		}
	}
}
