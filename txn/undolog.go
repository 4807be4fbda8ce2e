package txn

// UndoLink names one entry in some transaction's undo log vector. The
// zero value (TxnID 0, LogIndex 0) is never a valid link since real
// transaction ids start at 1; callers test validity with Valid().
type UndoLink struct {
	TxnID    ID
	LogIndex int
}

func (l UndoLink) Valid() bool { return l.TxnID != 0 }

// UndoLog is one prior version of a row: the columns that changed (a
// partial, schema-agnostic diff recorded as a modified-column bitmap over
// a serialized partial row), the commit timestamp of the version it
// restores, and a link to the next-older version.
type UndoLog struct {
	IsDeleted bool

	// ModifiedFields marks which schema columns Partial holds, in schema
	// column order. len(ModifiedFields) == schema.Len() in every log
	// built by package mvcc.
	ModifiedFields []bool

	// Partial holds the pre-image of just the modified columns,
	// concatenated in column order, each fixed-width per its Column.Size().
	Partial []byte

	Ts   int64
	Next UndoLink
}

// VersionLink is the head of one row's undo chain, stored out-of-band from
// the row's page (the spec's version-chain map), plus the in-progress flag
// used for optimistic write-write conflict detection.
type VersionLink struct {
	Prev       UndoLink
	InProgress bool
}
