package masking

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// OverlapPolicy controls how spans that share characters are rewritten.
type OverlapPolicy string

const (
	// OverlapLegacy masks every entity independently, right to left by start
	// offset. When two entities overlap, the left one is cut from text that
	// already contains the right one's tag, which garbles the output.
	OverlapLegacy OverlapPolicy = "legacy"
	// OverlapMerge collapses each overlapping run into one tag carrying the
	// label of the longest member (earliest detection on ties).
	OverlapMerge OverlapPolicy = "merge"
)

// ParseOverlapPolicy converts a config value into a policy.
func ParseOverlapPolicy(s string) (OverlapPolicy, error) {
	switch OverlapPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", OverlapLegacy:
		return OverlapLegacy, nil
	case OverlapMerge:
		return OverlapMerge, nil
	default:
		return "", fmt.Errorf("unknown overlap policy %q", s)
	}
}

// Result is the outcome of one masking pass.
type Result struct {
	Masked string
	// Entities are the original detections sorted by start offset,
	// highest first.
	Entities []Entity
	// Overlaps counts entity pairs that share characters.
	Overlaps int
}

// Masker reconciles detections from every registered detector and rewrites
// the text. It holds no mutable state and is safe for concurrent use.
type Masker struct {
	detectors []Detector
	policy    OverlapPolicy
}

// NewMasker registers detectors in priority order.
func NewMasker(policy OverlapPolicy, detectors ...Detector) *Masker {
	if policy == "" {
		policy = OverlapLegacy
	}
	return &Masker{detectors: detectors, policy: policy}
}

// NewDefaultMasker wires the regex detectors and the name detector with the
// legacy overlap policy.
func NewDefaultMasker() *Masker {
	return NewMasker(OverlapLegacy, NewRegexDetector(), NewNameDetector())
}

// Policy reports the configured overlap policy.
func (m *Masker) Policy() OverlapPolicy { return m.policy }

// Detectors lists the registered detector names.
func (m *Masker) Detectors() []string {
	names := make([]string, 0, len(m.detectors))
	for _, d := range m.detectors {
		names = append(names, d.Name())
	}
	return names
}

// Fingerprint identifies the masking configuration: the overlap policy and,
// in order, each detector's name and its own fingerprint when it has one.
func (m *Masker) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "policy=%s\n", m.policy)
	for _, d := range m.detectors {
		fmt.Fprintf(h, "detector=%s", d.Name())
		if f, ok := d.(interface{ Fingerprint() string }); ok {
			fmt.Fprintf(h, ":%s", f.Fingerprint())
		}
		fmt.Fprintln(h)
	}
	return hex.EncodeToString(h.Sum(nil))
}

type detection struct {
	start, end int // character offsets
	label      Label
	order      int
}

// Mask detects PII in text and replaces each entity with its tag. Text
// outside the tags is copied byte for byte, so invalid UTF-8 survives.
func (m *Masker) Mask(ctx context.Context, text string) (Result, error) {
	if text == "" {
		return Result{Masked: text, Entities: []Entity{}}, nil
	}

	index := newRuneIndex(text)
	var found []detection
	for _, d := range m.detectors {
		spans, err := d.Detect(ctx, text)
		if err != nil {
			return Result{}, fmt.Errorf("detector %s: %w", d.Name(), err)
		}
		for _, s := range spans {
			if s.Start < 0 || s.End > len(text) || s.Start >= s.End {
				continue
			}
			found = append(found, detection{
				start: index.char(s.Start),
				end:   index.char(s.End),
				label: s.Label,
				order: len(found),
			})
		}
	}
	if len(found) == 0 {
		return Result{Masked: text, Entities: []Entity{}}, nil
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].start > found[j].start
	})

	entities := make([]Entity, 0, len(found))
	for _, f := range found {
		entities = append(entities, Entity{
			Position:       [2]int{f.start, f.end},
			Classification: f.label,
			Entity:         text[index.byteOf(f.start):index.byteOf(f.end)],
		})
	}

	var masked string
	switch m.policy {
	case OverlapMerge:
		masked = maskMerged(text, index, found)
	default:
		masked = maskLegacy(text, index, found)
	}

	return Result{Masked: masked, Entities: entities, Overlaps: CountOverlaps(entities)}, nil
}

// maskLegacy rewrites right to left using the recorded character offsets
// as-is. found must already be sorted by start descending. Everything before
// the lowest start rewritten so far is untouched, so offsets up to it map
// through the original index; an end past it is counted through the tags
// already spliced into the working text.
func maskLegacy(text string, index runeIndex, found []detection) string {
	working := text
	floor, floorByte := len(index.bytes)-1, len(text)
	for _, f := range found {
		start := index.byteOf(f.start)
		var end int
		if f.end <= floor {
			end = index.byteOf(f.end)
		} else {
			end = advance(working, floorByte, f.end-floor)
		}
		if end < start {
			end = start
		}
		working = working[:start] + f.label.Tag() + working[end:]
		floor, floorByte = f.start, start
	}
	return working
}

// maskMerged collapses overlapping detections into single tags before
// rewriting, so every character is covered by at most one tag.
func maskMerged(text string, index runeIndex, found []detection) string {
	ascending := append([]detection(nil), found...)
	sort.SliceStable(ascending, func(i, j int) bool {
		if ascending[i].start != ascending[j].start {
			return ascending[i].start < ascending[j].start
		}
		return ascending[i].order < ascending[j].order
	})

	type run struct {
		start, end int
		winner     detection
	}
	var runs []run
	for _, d := range ascending {
		if n := len(runs); n > 0 && d.start < runs[n-1].end {
			r := &runs[n-1]
			if d.end > r.end {
				r.end = d.end
			}
			if beats(d, r.winner) {
				r.winner = d
			}
			continue
		}
		runs = append(runs, run{start: d.start, end: d.end, winner: d})
	}

	var b strings.Builder
	cursor := 0
	for _, r := range runs {
		b.WriteString(text[cursor:index.byteOf(r.start)])
		b.WriteString(r.winner.label.Tag())
		cursor = index.byteOf(r.end)
	}
	b.WriteString(text[cursor:])
	return b.String()
}

func beats(candidate, current detection) bool {
	cl, rl := candidate.end-candidate.start, current.end-current.start
	if cl != rl {
		return cl > rl
	}
	return candidate.order < current.order
}

// CountOverlaps returns the number of entity pairs that share characters.
func CountOverlaps(entities []Entity) int {
	count := 0
	for i := range entities {
		for j := i + 1; j < len(entities); j++ {
			if entities[i].Overlaps(entities[j]) {
				count++
			}
		}
	}
	return count
}

func clamp(v, max int) int {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
