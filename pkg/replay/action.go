package replay

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/marmos91/dittoflow/internal/logger"
	"github.com/marmos91/dittoflow/pkg/client"
	"github.com/marmos91/dittoflow/pkg/pipeline"
	"github.com/marmos91/dittoflow/pkg/status"
)

// fillerByte is the byte reads and writes pre-fill their buffers with before
// issuing the call, so the underlying client always writes into (and reads
// out of) pre-sized storage. It carries no semantic meaning.
const fillerByte = 'A'

// ActionRecord is one immutable row of a parsed trace: a named operation
// with arguments, on a specific file, at recorded start/stop timestamps.
type ActionRecord struct {
	FileID   uint64
	Action   string
	Start    uint64
	Stop     uint64
	Args     string
	Status   string
	Response string
}

// dispatch parses rec's argument string, builds the matching pipeline
// operation against file, and submits it. ending and closing are the
// barrier references this action is responsible for dropping on completion
// (per the schema in §4.4: every action drops ending; every non-Close
// action also drops closing).
//
// Open is special-cased to block the worker until it completes. Every other
// action (Write, Read, Stat, and so on) submits and returns immediately,
// letting the worker move on to the next recorded arrival time. Close
// blocks beforehand on closing, ensuring every non-Close action issued
// since the previous Close on this file has already completed its
// callback.
func (rec *ActionRecord) dispatch(ctx context.Context, f client.File, stats *statsCollector, ending, closing *barrier) {
	logger.Debug("Dispatching %s on file %d: %s", rec.Action, rec.FileID, rec.Args)

	switch rec.Action {
	case "Open":
		op, err := parseOpenArgs(rec.Args)
		if err != nil {
			rec.warnUnparseable(err)
			ending.drop()
			closing.drop()
			return
		}
		handled, err := pipeline.Open(f, op.url, op.flags, op.mode, op.timeout).
			Handle(rec.completionHandler(stats, ending, closing))
		if err != nil {
			rec.warnUnparseable(err)
			ending.drop()
			closing.drop()
			return
		}
		runAndWait(ctx, handled, op.timeout, stats)

	case "Close":
		closing.wait()
		timeout, err := parseSingleTimeout(rec.Args)
		if err != nil {
			rec.warnUnparseable(err)
			ending.drop()
			return
		}
		handled, err := pipeline.Close(f, timeout).Handle(rec.completionHandlerEndingOnly(stats, ending))
		if err != nil {
			rec.warnUnparseable(err)
			ending.drop()
			return
		}
		runAsync(ctx, handled, timeout, stats)

	case "Stat":
		force, timeout, err := parseStatArgs(rec.Args)
		if err != nil {
			rec.warnUnparseable(err)
			ending.drop()
			closing.drop()
			return
		}
		handled, err := pipeline.Stat(f, force, timeout).Handle(rec.completionHandler(stats, ending, closing))
		if err != nil {
			rec.warnUnparseable(err)
			ending.drop()
			closing.drop()
			return
		}
		runAsync(ctx, handled, timeout, stats)

	case "Read", "PgRead":
		offset, length, timeout, err := parseLengthArgs(rec.Args)
		if err != nil {
			rec.warnUnparseable(err)
			ending.drop()
			closing.drop()
			return
		}
		var op pipeline.Operation
		if rec.Action == "Read" {
			op = pipeline.Read(f, offset, length, timeout)
		} else {
			op = pipeline.PgRead(f, offset, length, timeout)
		}
		handled, err := op.Handle(rec.completionHandler(stats, ending, closing))
		if err != nil {
			rec.warnUnparseable(err)
			ending.drop()
			closing.drop()
			return
		}
		runAsync(ctx, handled, timeout, stats)

	case "Write", "PgWrite":
		offset, length, timeout, err := parseLengthArgs(rec.Args)
		if err != nil {
			rec.warnUnparseable(err)
			ending.drop()
			closing.drop()
			return
		}
		buffer := filledBuffer(length)
		var op pipeline.Operation
		if rec.Action == "Write" {
			op = pipeline.Write(f, offset, buffer, timeout)
		} else {
			op = pipeline.PgWrite(f, offset, buffer, timeout)
		}
		handled, err := op.Handle(rec.completionHandler(stats, ending, closing))
		if err != nil {
			rec.warnUnparseable(err)
			ending.drop()
			closing.drop()
			return
		}
		runAsync(ctx, handled, timeout, stats)

	case "Sync":
		timeout, err := parseSingleTimeout(rec.Args)
		if err != nil {
			rec.warnUnparseable(err)
			ending.drop()
			closing.drop()
			return
		}
		handled, err := pipeline.Sync(f, timeout).Handle(rec.completionHandler(stats, ending, closing))
		if err != nil {
			rec.warnUnparseable(err)
			ending.drop()
			closing.drop()
			return
		}
		runAsync(ctx, handled, timeout, stats)

	case "Truncate":
		size, timeout, err := parseTruncateArgs(rec.Args)
		if err != nil {
			rec.warnUnparseable(err)
			ending.drop()
			closing.drop()
			return
		}
		handled, err := pipeline.Truncate(f, size, timeout).Handle(rec.completionHandler(stats, ending, closing))
		if err != nil {
			rec.warnUnparseable(err)
			ending.drop()
			closing.drop()
			return
		}
		runAsync(ctx, handled, timeout, stats)

	case "VectorRead", "VectorWrite":
		requests, timeout, err := parseVectorArgs(rec.Args)
		if err != nil {
			rec.warnUnparseable(err)
			ending.drop()
			closing.drop()
			return
		}
		var handled pipeline.HandledOperation
		if rec.Action == "VectorRead" {
			reqs := make([]pipeline.VectorReadRequest, len(requests))
			for i, r := range requests {
				reqs[i] = pipeline.VectorReadRequest{Offset: r.offset, Length: r.length}
			}
			handled, err = pipeline.VectorRead(f, reqs, timeout).Handle(rec.completionHandler(stats, ending, closing))
		} else {
			reqs := make([]pipeline.VectorWriteRequest, len(requests))
			for i, r := range requests {
				reqs[i] = pipeline.VectorWriteRequest{Offset: r.offset, Buffer: filledBuffer(r.length)}
			}
			handled, err = pipeline.VectorWrite(f, reqs, timeout).Handle(rec.completionHandler(stats, ending, closing))
		}
		if err != nil {
			rec.warnUnparseable(err)
			ending.drop()
			closing.drop()
			return
		}
		runAsync(ctx, handled, timeout, stats)

	default:
		logger.Warn("Cannot replay %s action.", rec.Action)
		ending.drop()
		closing.drop()
	}
}

// runAsync submits handled to a fresh pipeline and returns without waiting
// for it to finish, marking the action in-flight for the metrics gauge from
// submission until its completion handler decrements it back out.
func runAsync(ctx context.Context, handled pipeline.HandledOperation, timeout uint16, stats *statsCollector) {
	pl, err := pipeline.New(handled)
	if err != nil {
		return
	}
	stats.inFlightInc()
	_, _ = pl.Run(ctx, time.Duration(timeout)*time.Second, nil)
}

// runAndWait is runAsync's blocking counterpart, used for Open so the worker
// does not move on to the next recorded action until it completes.
func runAndWait(ctx context.Context, handled pipeline.HandledOperation, timeout uint16, stats *statsCollector) {
	pl, err := pipeline.New(handled)
	if err != nil {
		return
	}
	stats.inFlightInc()
	_, _ = pl.WaitFor(ctx, time.Duration(timeout)*time.Second, nil)
}

// completionHandler returns the per-action response handler: it records the
// observed latency, warns on the documented status-string ambiguity (see
// warnOnStatusMatch), and drops both barrier references this action holds.
func (rec *ActionRecord) completionHandler(stats *statsCollector, ending, closing *barrier) pipeline.HandlerFunc {
	start := time.Now()
	return func(s status.Status, _ any, _ []string) pipeline.ControlFlow {
		stats.updateActual(rec.Action, time.Since(start))
		stats.inFlightDec()
		rec.warnOnStatusMatch(s)
		ending.drop()
		closing.drop()
		return pipeline.Continue()
	}
}

// completionHandlerEndingOnly is completionHandler for Close: Close already
// waited on closing before submission, so its own completion only drops
// ending.
func (rec *ActionRecord) completionHandlerEndingOnly(stats *statsCollector, ending *barrier) pipeline.HandlerFunc {
	start := time.Now()
	return func(s status.Status, _ any, _ []string) pipeline.ControlFlow {
		stats.updateActual(rec.Action, time.Since(start))
		stats.inFlightDec()
		rec.warnOnStatusMatch(s)
		ending.drop()
		return pipeline.Continue()
	}
}

// warnOnStatusMatch reproduces the source's documented inversion literally:
// it warns when the replayed status string MATCHES the recorded one, not
// when it differs. See DESIGN.md's Open Question on status comparison.
func (rec *ActionRecord) warnOnStatusMatch(s status.Status) {
	got := s.String()
	if got == rec.Status {
		logger.Warn("We were expecting status: %s, but received: %s", rec.Status, got)
	}
}

// warnUnparseable reports an action whose recorded arguments could not be
// parsed. The action is dropped entirely rather than submitted, so this is
// an error, not a warning.
func (rec *ActionRecord) warnUnparseable(err error) {
	logger.Error("Failed to parse %s arguments: %v", rec.Action, err)
}

func filledBuffer(length uint32) []byte {
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = fillerByte
	}
	return buf
}

type openArgs struct {
	url     string
	flags   uint32
	mode    uint32
	timeout uint16
}

func parseOpenArgs(args string) (openArgs, error) {
	tokens := strings.Split(args, ";")
	if len(tokens) != 4 {
		return openArgs{}, fmt.Errorf("open: expected 4 tokens, got %d", len(tokens))
	}
	flags, err := strconv.ParseUint(tokens[1], 10, 32)
	if err != nil {
		return openArgs{}, err
	}
	mode, err := strconv.ParseUint(tokens[2], 10, 32)
	if err != nil {
		return openArgs{}, err
	}
	timeout, err := strconv.ParseUint(tokens[3], 10, 16)
	if err != nil {
		return openArgs{}, err
	}
	return openArgs{url: tokens[0], flags: uint32(flags), mode: uint32(mode), timeout: uint16(timeout)}, nil
}

func parseSingleTimeout(args string) (uint16, error) {
	timeout, err := strconv.ParseUint(strings.TrimSpace(args), 10, 16)
	if err != nil {
		return 0, err
	}
	return uint16(timeout), nil
}

func parseStatArgs(args string) (force bool, timeout uint16, err error) {
	tokens := strings.Split(args, ";")
	if len(tokens) != 2 {
		return false, 0, fmt.Errorf("stat: expected 2 tokens, got %d", len(tokens))
	}
	force = tokens[0] == "true"
	t, err := strconv.ParseUint(tokens[1], 10, 16)
	if err != nil {
		return false, 0, err
	}
	return force, uint16(t), nil
}

func parseLengthArgs(args string) (offset uint64, length uint32, timeout uint16, err error) {
	tokens := strings.Split(args, ";")
	if len(tokens) != 3 {
		return 0, 0, 0, fmt.Errorf("expected 3 tokens, got %d", len(tokens))
	}
	offset, err = strconv.ParseUint(tokens[0], 10, 64)
	if err != nil {
		return 0, 0, 0, err
	}
	l, err := strconv.ParseUint(tokens[1], 10, 32)
	if err != nil {
		return 0, 0, 0, err
	}
	t, err := strconv.ParseUint(tokens[2], 10, 16)
	if err != nil {
		return 0, 0, 0, err
	}
	return offset, uint32(l), uint16(t), nil
}

func parseTruncateArgs(args string) (size uint64, timeout uint16, err error) {
	tokens := strings.Split(args, ";")
	if len(tokens) != 2 {
		return 0, 0, fmt.Errorf("truncate: expected 2 tokens, got %d", len(tokens))
	}
	size, err = strconv.ParseUint(tokens[0], 10, 64)
	if err != nil {
		return 0, 0, err
	}
	t, err := strconv.ParseUint(tokens[1], 10, 16)
	if err != nil {
		return 0, 0, err
	}
	return size, uint16(t), nil
}

type vectorEntry struct {
	offset uint64
	length uint32
}

func parseVectorArgs(args string) ([]vectorEntry, uint16, error) {
	tokens := strings.Split(args, ";")
	if len(tokens) < 3 || len(tokens)%2 != 1 {
		return nil, 0, fmt.Errorf("vector: expected an odd number of tokens (offset;length pairs plus timeout), got %d", len(tokens))
	}
	pairs := (len(tokens) - 1) / 2
	entries := make([]vectorEntry, pairs)
	for i := 0; i < pairs; i++ {
		offset, err := strconv.ParseUint(tokens[2*i], 10, 64)
		if err != nil {
			return nil, 0, err
		}
		length, err := strconv.ParseUint(tokens[2*i+1], 10, 32)
		if err != nil {
			return nil, 0, err
		}
		entries[i] = vectorEntry{offset: offset, length: uint32(length)}
	}
	timeout, err := strconv.ParseUint(tokens[len(tokens)-1], 10, 16)
	if err != nil {
		return nil, 0, err
	}
	return entries, uint16(timeout), nil
}
