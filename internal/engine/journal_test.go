package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/roach88/ao20/internal/ir"
	"github.com/roach88/ao20/internal/ledger"
)

// memJournal is an in-memory Journal for engine tests.
type memJournal struct {
	mu        sync.Mutex
	genesis   *ledger.Genesis
	messages  []ir.Message
	results   []ir.Result
	failNext  error
	appendLog []string
}

func newMemJournal() *memJournal {
	return &memJournal{}
}

func (j *memJournal) WriteGenesis(_ context.Context, g ledger.Genesis) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.genesis != nil {
		return errors.New("genesis exists")
	}
	j.genesis = &g
	return nil
}

func (j *memJournal) ReadGenesis(context.Context) (ledger.Genesis, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.genesis == nil {
		return ledger.Genesis{}, errors.New("no genesis")
	}
	return *j.genesis, nil
}

func (j *memJournal) AppendResult(_ context.Context, msg ir.Message, res ir.Result) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.failNext != nil {
		err := j.failNext
		j.failNext = nil
		return err
	}
	j.messages = append(j.messages, msg)
	j.results = append(j.results, res)
	j.appendLog = append(j.appendLog, msg.ID)
	return nil
}

func (j *memJournal) LookupResult(_ context.Context, id string) (ir.Result, bool, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, r := range j.results {
		if r.MessageID == id {
			return r, true, nil
		}
	}
	return ir.Result{}, false, nil
}

func (j *memJournal) ReadMessages(_ context.Context, after int64, limit int) ([]ir.Message, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := []ir.Message{}
	for _, m := range j.messages {
		if m.Seq > after && len(out) < limit {
			out = append(out, m)
		}
	}
	return out, nil
}

func (j *memJournal) ReadResults(_ context.Context, after int64, limit int) ([]ir.Result, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := []ir.Result{}
	for _, r := range j.results {
		if r.Seq > after && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func (j *memJournal) ReadNotices(_ context.Context, after int64, limit int) ([]ir.NoticeRecord, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := []ir.NoticeRecord{}
	for _, r := range j.results {
		if r.Seq <= after {
			continue
		}
		recs, err := r.NoticeRecords()
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (j *memJournal) LastSeq(context.Context) (int64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.messages) == 0 {
		return 0, nil
	}
	return j.messages[len(j.messages)-1].Seq, nil
}

// tamper rewrites the journaled result at index i.
func (j *memJournal) tamper(i int, fn func(r *ir.Result)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	fn(&j.results[i])
}

// countingRecorder captures Recorder calls.
type countingRecorder struct {
	mu            sync.Mutex
	messages      map[string]int
	notices       map[string]int
	journalErrors int
	supply        float64
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{messages: map[string]int{}, notices: map[string]int{}}
}

func (r *countingRecorder) RecordMessage(action, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[action+"/"+outcome]++
}

func (r *countingRecorder) RecordNotice(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices[kind]++
}

func (r *countingRecorder) RecordJournalError() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.journalErrors++
}

func (r *countingRecorder) SetQueueDepth(int) {}

func (r *countingRecorder) SetTotalSupply(v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.supply = v
}
