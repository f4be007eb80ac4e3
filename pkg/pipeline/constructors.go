package pipeline

import "github.com/marmos91/dittoflow/pkg/client"

// Empty constructs a pipeline operation that issues no downstream call and
// resolves OK as soon as it runs. It exists so a caller can build a
// Pipeline with zero real operations and still observe the "empty pipeline
// resolves OK immediately" boundary behavior.
func Empty() Operation {
	return Operation{tok: &token{}, op: &operation{kind: KindNone}}
}

// Open constructs an unhandled Open operation against file.
func Open(file client.File, url string, flags, mode uint32, timeout uint16) Operation {
	return Operation{tok: &token{}, op: &operation{
		kind:    KindOpen,
		args:    OpenArgs{URL: url, Flags: flags, Mode: mode},
		file:    file,
		timeout: timeout,
	}}
}

// Close constructs an unhandled Close operation against file.
func Close(file client.File, timeout uint16) Operation {
	return Operation{tok: &token{}, op: &operation{kind: KindClose, file: file, timeout: timeout}}
}

// Stat constructs an unhandled Stat operation against file.
func Stat(file client.File, force bool, timeout uint16) Operation {
	return Operation{tok: &token{}, op: &operation{
		kind:    KindStat,
		args:    StatArgs{Force: force},
		file:    file,
		timeout: timeout,
	}}
}

// Read constructs an unhandled Read operation against file.
func Read(file client.File, offset uint64, length uint32, timeout uint16) Operation {
	return Operation{tok: &token{}, op: &operation{
		kind:    KindRead,
		args:    ReadArgs{Offset: offset, Length: length},
		file:    file,
		timeout: timeout,
	}}
}

// PgRead constructs an unhandled PgRead operation against file.
func PgRead(file client.File, offset uint64, length uint32, timeout uint16) Operation {
	return Operation{tok: &token{}, op: &operation{
		kind:    KindPgRead,
		args:    ReadArgs{Offset: offset, Length: length},
		file:    file,
		timeout: timeout,
	}}
}

// Write constructs an unhandled Write operation against file.
func Write(file client.File, offset uint64, buffer []byte, timeout uint16) Operation {
	return Operation{tok: &token{}, op: &operation{
		kind:    KindWrite,
		args:    WriteArgs{Offset: offset, Buffer: buffer},
		file:    file,
		timeout: timeout,
	}}
}

// PgWrite constructs an unhandled PgWrite operation against file.
func PgWrite(file client.File, offset uint64, buffer []byte, timeout uint16) Operation {
	return Operation{tok: &token{}, op: &operation{
		kind:    KindPgWrite,
		args:    WriteArgs{Offset: offset, Buffer: buffer},
		file:    file,
		timeout: timeout,
	}}
}

// Sync constructs an unhandled Sync operation against file.
func Sync(file client.File, timeout uint16) Operation {
	return Operation{tok: &token{}, op: &operation{kind: KindSync, file: file, timeout: timeout}}
}

// Truncate constructs an unhandled Truncate operation against file.
func Truncate(file client.File, size uint64, timeout uint16) Operation {
	return Operation{tok: &token{}, op: &operation{
		kind:    KindTruncate,
		args:    TruncateArgs{Size: size},
		file:    file,
		timeout: timeout,
	}}
}

// VectorRead constructs an unhandled VectorRead operation against file.
func VectorRead(file client.File, requests []VectorReadRequest, timeout uint16) Operation {
	return Operation{tok: &token{}, op: &operation{
		kind:    KindVectorRead,
		args:    VectorReadArgs{Requests: requests},
		file:    file,
		timeout: timeout,
	}}
}

// VectorWrite constructs an unhandled VectorWrite operation against file.
func VectorWrite(file client.File, requests []VectorWriteRequest, timeout uint16) Operation {
	return Operation{tok: &token{}, op: &operation{
		kind:    KindVectorWrite,
		args:    VectorWriteArgs{Requests: requests},
		file:    file,
		timeout: timeout,
	}}
}
