package ir

import "slices"

// Tags is a set of named string tags on a message or outbound record.
type Tags map[string]string

// Get returns the tag value and whether it was present.
func (t Tags) Get(name string) (string, bool) {
	v, ok := t[name]
	return v, ok
}

// Clone returns an independent copy. A nil receiver yields an empty map.
func (t Tags) Clone() Tags {
	out := make(Tags, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// SortedKeys returns tag names in RFC 8785 order.
func (t Tags) SortedKeys() []string {
	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// Message is one inbound request addressed to the ledger.
//
// From is the authenticated caller address. Action selects the handler;
// it is carried separately from Tags so a missing Action is distinguishable
// from an empty one.
type Message struct {
	ID     string `json:"id"`
	Seq    int64  `json:"seq"`
	From   string `json:"from"`
	Action string `json:"action"`
	Tags   Tags   `json:"tags"`
	Data   string `json:"data,omitempty"`
}

// Tag returns a named tag. Missing and empty tags both report ok=false,
// matching how handlers treat "required" fields.
func (m Message) Tag(name string) (string, bool) {
	v, ok := m.Tags[name]
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Outbound is a reply to the caller or a notice to a third party.
// Tags["Action"] names the notice kind; replies carry no Action tag.
type Outbound struct {
	Target string `json:"target"`
	Tags   Tags   `json:"tags"`
	Data   string `json:"data"`
}

// Action returns the Action tag, if any.
func (o Outbound) Action() string {
	return o.Tags["Action"]
}

// Result is the complete outcome of handling one message.
//
// A failed result carries Error and nothing else: no reply, no notices.
// Notices are in emission order, which is part of the ledger contract.
type Result struct {
	MessageID string     `json:"message_id"`
	Seq       int64      `json:"seq"`
	From      string     `json:"from"`
	Action    string     `json:"action"`
	Reply     *Outbound  `json:"reply,omitempty"`
	Notices   []Outbound `json:"notices"`
	Error     string     `json:"error,omitempty"`
}

// Failed reports whether the message was rejected.
func (r Result) Failed() bool {
	return r.Error != ""
}

// NoticeActions lists the Action tag of each notice in order.
func (r Result) NoticeActions() []string {
	out := make([]string, len(r.Notices))
	for i, n := range r.Notices {
		out[i] = n.Action()
	}
	return out
}

// NoticesTo returns the notices addressed to target, in order.
func (r Result) NoticesTo(target string) []Outbound {
	var out []Outbound
	for _, n := range r.Notices {
		if n.Target == target {
			out = append(out, n)
		}
	}
	return out
}

// NoticeRecord is a journaled notice: one entry of the outbound log.
type NoticeRecord struct {
	ID        string `json:"id"`
	MessageID string `json:"message_id"`
	Seq       int64  `json:"seq"`
	Index     int    `json:"index"`
	Outbound
}

// NoticeRecords assigns content-addressed IDs to the result's notices.
func (r Result) NoticeRecords() ([]NoticeRecord, error) {
	out := make([]NoticeRecord, 0, len(r.Notices))
	for i, n := range r.Notices {
		id, err := NoticeID(r.MessageID, i, n)
		if err != nil {
			return nil, err
		}
		out = append(out, NoticeRecord{
			ID:        id,
			MessageID: r.MessageID,
			Seq:       r.Seq,
			Index:     i,
			Outbound:  n,
		})
	}
	return out, nil
}
