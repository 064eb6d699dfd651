package onnxner

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// word is a basic token together with its byte range in the source text.
type word struct {
	text       string
	start, end int
}

// piece is one WordPiece sub-token; wordIndex points back into the word list.
type piece struct {
	id        int64
	wordIndex int
	first     bool
}

type tokenizer struct {
	vocab     *vocab
	lowercase bool
}

// splitWords applies BERT's basic tokenisation while keeping source offsets:
// whitespace separates words, and each punctuation rune or CJK ideograph is
// a word of its own.
func splitWords(text string) []word {
	var words []word
	start := -1
	flush := func(end int) {
		if start >= 0 {
			words = append(words, word{text: text[start:end], start: start, end: end})
			start = -1
		}
	}

	for i, r := range text {
		switch {
		case r == 0 || r == utf8.RuneError || isControl(r):
			flush(i)
		case isWhitespace(r):
			flush(i)
		case isPunctuation(r) || isChineseChar(r):
			flush(i)
			size := utf8.RuneLen(r)
			words = append(words, word{text: text[i : i+size], start: i, end: i + size})
		default:
			if start < 0 {
				start = i
			}
		}
	}
	flush(len(text))
	return words
}

// pieces runs WordPiece over every word.
func (t *tokenizer) pieces(words []word) []piece {
	var out []piece
	for i, w := range words {
		normalized := w.text
		if t.lowercase {
			normalized = stripAccents(strings.ToLower(normalized))
		}
		for j, sub := range t.wordpiece(normalized) {
			out = append(out, piece{id: t.vocab.lookup(sub), wordIndex: i, first: j == 0})
		}
	}
	return out
}

func (t *tokenizer) wordpiece(token string) []string {
	runes := []rune(token)
	if len(runes) == 0 {
		return nil
	}
	if len(runes) > 200 {
		return []string{"[UNK]"}
	}

	var subTokens []string
	start := 0
	for start < len(runes) {
		end := len(runes)
		found := false
		for end > start {
			sub := string(runes[start:end])
			if start > 0 {
				sub = "##" + sub
			}
			if t.vocab.contains(sub) {
				subTokens = append(subTokens, sub)
				found = true
				break
			}
			end--
		}
		if !found {
			return []string{"[UNK]"}
		}
		start = end
	}
	return subTokens
}

// windows cuts pieces into model-sized chunks without splitting a word.
func windows(pieces []piece, maxPieces int) [][]piece {
	var out [][]piece
	for len(pieces) > 0 {
		if len(pieces) <= maxPieces {
			out = append(out, pieces)
			break
		}
		cut := maxPieces
		for cut > 0 && !pieces[cut].first {
			cut--
		}
		if cut == 0 {
			cut = maxPieces
		}
		out = append(out, pieces[:cut])
		pieces = pieces[cut:]
	}
	return out
}

// encode frames a window with [CLS] and [SEP].
func (t *tokenizer) encode(window []piece) (ids, mask, types []int64) {
	n := len(window) + 2
	ids = make([]int64, n)
	mask = make([]int64, n)
	types = make([]int64, n)

	ids[0] = t.vocab.clsID
	for i, p := range window {
		ids[i+1] = p.id
	}
	ids[n-1] = t.vocab.sepID
	for i := range mask {
		mask[i] = 1
	}
	return ids, mask, types
}

func stripAccents(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range norm.NFD.String(text) {
		if unicode.In(r, unicode.Mn) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func isWhitespace(r rune) bool {
	if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.IsControl(r)
}

func isPunctuation(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

func isChineseChar(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) ||
		(r >= 0x3400 && r <= 0x4DBF) ||
		(r >= 0x20000 && r <= 0x2A6DF) ||
		(r >= 0xF900 && r <= 0xFAFF) ||
		(r >= 0x2F800 && r <= 0x2FA1F)
}
