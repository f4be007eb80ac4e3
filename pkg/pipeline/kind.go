package pipeline

// Kind identifies which of the eleven supported calls an operation represents.
type Kind int

const (
	// KindNone is the degenerate kind used by Empty(): it issues no
	// downstream call and resolves OK immediately.
	KindNone Kind = iota
	KindOpen
	KindClose
	KindStat
	KindRead
	KindPgRead
	KindWrite
	KindPgWrite
	KindSync
	KindTruncate
	KindVectorRead
	KindVectorWrite
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "None"
	case KindOpen:
		return "Open"
	case KindClose:
		return "Close"
	case KindStat:
		return "Stat"
	case KindRead:
		return "Read"
	case KindPgRead:
		return "PgRead"
	case KindWrite:
		return "Write"
	case KindPgWrite:
		return "PgWrite"
	case KindSync:
		return "Sync"
	case KindTruncate:
		return "Truncate"
	case KindVectorRead:
		return "VectorRead"
	case KindVectorWrite:
		return "VectorWrite"
	default:
		return "Unknown"
	}
}

// OpenArgs are the arguments to an Open operation.
type OpenArgs struct {
	URL   string
	Flags uint32
	Mode  uint32
}

// StatArgs are the arguments to a Stat operation.
type StatArgs struct {
	Force bool
}

// ReadArgs are the arguments to a Read or PgRead operation.
type ReadArgs struct {
	Offset uint64
	Length uint32
}

// WriteArgs are the arguments to a Write or PgWrite operation.
type WriteArgs struct {
	Offset uint64
	Buffer []byte
}

// TruncateArgs are the arguments to a Truncate operation.
type TruncateArgs struct {
	Size uint64
}

// VectorReadArgs are the arguments to a VectorRead operation.
type VectorReadArgs struct {
	Requests []VectorReadRequest
}

// VectorReadRequest is one (offset, length) pair of a VectorRead.
type VectorReadRequest struct {
	Offset uint64
	Length uint32
}

// VectorWriteArgs are the arguments to a VectorWrite operation.
type VectorWriteArgs struct {
	Requests []VectorWriteRequest
}

// VectorWriteRequest is one (offset, buffer) pair of a VectorWrite.
type VectorWriteRequest struct {
	Offset uint64
	Buffer []byte
}
