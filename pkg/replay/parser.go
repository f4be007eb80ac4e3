package replay

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseError reports a malformed trace line: bad field count or an
// unparseable integer field. It carries the 1-based line number so a
// caller can point the operator at the offending row.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("replay: invalid trace line %d (%q): %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// FileStream is one file's ordered action stream: every action recorded
// against that file id, in ascending start-timestamp order, with ties
// broken by trace order (a stable sort preserves insertion order for equal
// keys).
type FileStream struct {
	FileID  uint64
	Actions []*ActionRecord
}

// ParseTrace reads a CSV trace (6 or 7 comma-separated fields per line,
// blank lines skipped) and returns one FileStream per distinct file id, in
// the order each id was first seen. Every action's (stop-start) duration is
// recorded into stats as an original-duration sample, keyed by action name,
// as required by spec.md §4.3 regardless of what the caller does with the
// streams afterward.
func ParseTrace(r io.Reader, stats *statsCollector) ([]*FileStream, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	order := make([]uint64, 0)
	streams := make(map[uint64]*FileStream)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		rec, err := parseLine(line)
		if err != nil {
			return nil, &ParseError{Line: lineNo, Text: line, Err: err}
		}

		if stats != nil {
			stats.updateOriginal(rec.Action, secondsToDuration(rec.Stop-rec.Start))
		}

		stream, ok := streams[rec.FileID]
		if !ok {
			stream = &FileStream{FileID: rec.FileID}
			streams[rec.FileID] = stream
			order = append(order, rec.FileID)
		}
		stream.Actions = append(stream.Actions, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	result := make([]*FileStream, 0, len(order))
	for _, id := range order {
		stream := streams[id]
		stableSortByStart(stream.Actions)
		result = append(result, stream)
	}
	return result, nil
}

func parseLine(line string) (*ActionRecord, error) {
	tokens := strings.Split(line, ",")
	switch len(tokens) {
	case 6:
		tokens = append(tokens, "")
	case 7:
		// already complete
	default:
		return nil, fmt.Errorf("expected 6 or 7 fields, got %d", len(tokens))
	}

	id, err := strconv.ParseUint(tokens[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("file-id: %w", err)
	}
	start, err := strconv.ParseUint(tokens[2], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("start: %w", err)
	}
	stop, err := strconv.ParseUint(tokens[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("stop: %w", err)
	}

	return &ActionRecord{
		FileID:   id,
		Action:   tokens[1],
		Start:    start,
		Args:     tokens[3],
		Stop:     stop,
		Status:   tokens[5],
		Response: tokens[6],
	}, nil
}

// stableSortByStart sorts actions by Start, preserving relative order among
// actions with equal Start (insertion-order multimap semantics).
func stableSortByStart(actions []*ActionRecord) {
	// insertion sort: stable, and trace files are already close to sorted.
	for i := 1; i < len(actions); i++ {
		j := i
		for j > 0 && actions[j-1].Start > actions[j].Start {
			actions[j-1], actions[j] = actions[j], actions[j-1]
			j--
		}
	}
}
