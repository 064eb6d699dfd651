package onnxner

// span is a byte range over the source text.
type span struct{ start, end int }

// argmax picks the best label for every position of a flat logits slice.
func argmax(logits []float32, numLabels int) []int {
	if numLabels <= 0 {
		return nil
	}
	n := len(logits) / numLabels
	out := make([]int, n)
	for i := 0; i < n; i++ {
		row := logits[i*numLabels : (i+1)*numLabels]
		best := 0
		for j := 1; j < len(row); j++ {
			if row[j] > row[best] {
				best = j
			}
		}
		out[i] = best
	}
	return out
}

// decodePersons groups consecutive person-tagged words into spans. A word
// takes the tag of its first sub-token. "B" always opens a new span, "I"
// continues the open one or opens a new one after a non-person word.
func decodePersons(words []word, wordTags []string) []span {
	var spans []span
	open := false
	for i, tag := range wordTags {
		if i >= len(words) {
			break
		}
		prefix, entity := splitTag(tag)
		if !isPerson(entity) {
			open = false
			continue
		}
		if prefix == "B" || prefix == "S" || !open {
			spans = append(spans, span{start: words[i].start, end: words[i].end})
			open = prefix != "S" && prefix != "E"
			continue
		}
		spans[len(spans)-1].end = words[i].end
		if prefix == "E" {
			open = false
		}
	}
	return spans
}
