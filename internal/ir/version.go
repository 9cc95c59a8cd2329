package ir

// Version constants for journal records.
const (
	// RecordVersion is the journal record schema version.
	RecordVersion = "1"

	// LedgerVersion is the ledger implementation version. Stored with every
	// journaled result so replays can detect handler changes.
	LedgerVersion = "0.1.0"
)
