package masking

import "unicode/utf8"

// Span is a raw detection expressed in byte offsets of the scanned text.
// Detectors return spans; the masker turns them into entities.
type Span struct {
	Start int
	End   int
	Label Label
}

// Entity is a detected PII occurrence. Position holds half-open character
// offsets into the original, unmasked text.
type Entity struct {
	Position       [2]int `json:"position"`
	Classification Label  `json:"classification"`
	Entity         string `json:"entity"`
}

// Start returns the first character offset of the entity.
func (e Entity) Start() int { return e.Position[0] }

// End returns the character offset just past the entity.
func (e Entity) End() int { return e.Position[1] }

// Overlaps reports whether the two entities share at least one character.
func (e Entity) Overlaps(other Entity) bool {
	return e.Start() < other.End() && other.Start() < e.End()
}

// runeIndex maps between byte offsets and character offsets of a string.
// Each invalid UTF-8 byte counts as one character.
type runeIndex struct {
	chars []int // byte offset -> character offset
	bytes []int // character offset -> byte offset of that character
}

func newRuneIndex(text string) runeIndex {
	idx := runeIndex{
		chars: make([]int, len(text)+1),
		bytes: make([]int, 0, len(text)+1),
	}
	chars := 0
	for i := 0; i < len(text); {
		_, size := utf8.DecodeRuneInString(text[i:])
		for j := 0; j < size; j++ {
			idx.chars[i+j] = chars
		}
		idx.bytes = append(idx.bytes, i)
		i += size
		chars++
	}
	idx.chars[len(text)] = chars
	idx.bytes = append(idx.bytes, len(text))
	return idx
}

func (r runeIndex) char(byteOffset int) int {
	if byteOffset < 0 {
		return 0
	}
	if byteOffset >= len(r.chars) {
		return r.chars[len(r.chars)-1]
	}
	return r.chars[byteOffset]
}

func (r runeIndex) byteOf(char int) int {
	return r.bytes[clamp(char, len(r.bytes)-1)]
}

// advance moves n characters forward from byte offset from, stopping at the
// end of s.
func advance(s string, from, n int) int {
	i := from
	for ; n > 0 && i < len(s); n-- {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return i
}

// TextAt returns characters [start, end) of text, or "" when the range does
// not fit.
func TextAt(text string, start, end int) string {
	idx := newRuneIndex(text)
	if start < 0 || start > end || end > len(idx.bytes)-1 {
		return ""
	}
	return text[idx.bytes[start]:idx.bytes[end]]
}
