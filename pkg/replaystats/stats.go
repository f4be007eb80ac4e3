// Package replaystats implements the replay driver's statistics registry: a
// mutex-guarded mapping from action name to cumulative
// duration and sample count, tracked separately for recorded (original) and
// replayed (actual) durations.
package replaystats

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Sample is one action's accumulated (duration, count) pair.
type Sample struct {
	Total time.Duration
	Count uint64
}

// Average returns Total/Count, or 0 if Count is 0.
func (s Sample) Average() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// Store accumulates per-action durations. Implementations must be safe for
// concurrent use: every replay worker and every completion callback updates
// the same store.
type Store interface {
	UpdateOriginal(action string, d time.Duration)
	UpdateActual(action string, d time.Duration)
	Snapshot() (original, actual map[string]Sample)
}

// Registry is the in-memory Store, guarded by a single mutex (lock held only
// across one update, per the source's ActionStatistics). There is no
// package-level instance: each Registry is created by NewRegistry, which
// allocates its maps up front.
type Registry struct {
	mu       sync.Mutex
	original map[string]Sample
	actual   map[string]Sample
}

// NewRegistry creates an empty in-memory statistics registry.
func NewRegistry() *Registry {
	return &Registry{
		original: make(map[string]Sample),
		actual:   make(map[string]Sample),
	}
}

func (r *Registry) UpdateOriginal(action string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.original[action]
	s.Total += d
	s.Count++
	r.original[action] = s
}

func (r *Registry) UpdateActual(action string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.actual[action]
	s.Total += d
	s.Count++
	r.actual[action] = s
}

func (r *Registry) Snapshot() (original, actual map[string]Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()
	original = make(map[string]Sample, len(r.original))
	for k, v := range r.original {
		original[k] = v
	}
	actual = make(map[string]Sample, len(r.actual))
	for k, v := range r.actual {
		actual[k] = v
	}
	return original, actual
}

// Report renders both registries in the source's banner format: reference
// (original) durations first, then replayed (actual) durations, each action
// sorted alphabetically for deterministic output.
func Report(s Store) string {
	original, actual := s.Snapshot()

	var b []byte
	b = append(b, "Reference average durations per action:\n"...)
	b = appendActions(b, original)
	b = append(b, "Average durations per action:\n"...)
	b = appendActions(b, actual)
	return string(b)
}

// reportEntry is one action's reference-vs-actual average durations,
// rendered as strings in ReportJSON so the JSON output is self-describing
// without a client needing to know time.Duration's encoding.
type reportEntry struct {
	Action             string `json:"action"`
	OriginalAverage    string `json:"original_average"`
	ActualAverage      string `json:"actual_average"`
	OriginalSampleSize uint64 `json:"original_sample_size"`
	ActualSampleSize   uint64 `json:"actual_sample_size"`
}

// ReportJSON renders the same data as Report, as a JSON array of per-action
// entries sorted alphabetically, for --dump-config-style machine
// consumption of replay results.
func ReportJSON(s Store) (string, error) {
	original, actual := s.Snapshot()

	names := make(map[string]struct{}, len(original)+len(actual))
	for name := range original {
		names[name] = struct{}{}
	}
	for name := range actual {
		names[name] = struct{}{}
	}
	sorted := make([]string, 0, len(names))
	for name := range names {
		sorted = append(sorted, name)
	}
	sort.Strings(sorted)

	entries := make([]reportEntry, 0, len(sorted))
	for _, name := range sorted {
		o := original[name]
		a := actual[name]
		entries = append(entries, reportEntry{
			Action:             name,
			OriginalAverage:    o.Average().String(),
			ActualAverage:      a.Average().String(),
			OriginalSampleSize: o.Count,
			ActualSampleSize:   a.Count,
		})
	}

	out, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out) + "\n", nil
}

func appendActions(b []byte, m map[string]Sample) []byte {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b = append(b, fmt.Sprintf("\t%s\t: %s\n", name, m[name].Average())...)
	}
	return b
}
