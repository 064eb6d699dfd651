package onnxner

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// loadLabels reads the model's id→tag table. Both a plain JSON array
// (["O","B-PER",...]) and a Hugging Face style object ({"0":"O",...} or
// {"id2label":{...}}) are accepted.
func loadLabels(path string) ([]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("labels: %w", err)
	}
	return parseLabels(raw)
}

func parseLabels(raw []byte) ([]string, error) {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		if len(list) == 0 {
			return nil, fmt.Errorf("labels: empty label list")
		}
		return list, nil
	}

	var wrapped struct {
		ID2Label map[string]string `json:"id2label"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.ID2Label) > 0 {
		return fromIndexMap(wrapped.ID2Label)
	}

	var byID map[string]string
	if err := json.Unmarshal(raw, &byID); err != nil {
		return nil, fmt.Errorf("labels: unsupported format: %w", err)
	}
	return fromIndexMap(byID)
}

func fromIndexMap(m map[string]string) ([]string, error) {
	if len(m) == 0 {
		return nil, fmt.Errorf("labels: empty label map")
	}
	ids := make([]int, 0, len(m))
	for key := range m {
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			return nil, fmt.Errorf("labels: non-numeric id %q", key)
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]string, len(ids))
	for i, id := range ids {
		if id != i {
			return nil, fmt.Errorf("labels: ids must be contiguous from 0, missing %d", i)
		}
		out[i] = m[strconv.Itoa(id)]
	}
	return out, nil
}

// isPerson reports whether an entity type denotes a person.
func isPerson(entity string) bool {
	switch strings.ToUpper(entity) {
	case "PER", "PERSON":
		return true
	}
	return false
}

// splitTag turns "B-PER" into ("B", "PER"); "O" yields ("O", "").
func splitTag(tag string) (prefix, entity string) {
	if tag == "" || tag == "O" {
		return "O", ""
	}
	if i := strings.IndexAny(tag, "-_"); i > 0 {
		return strings.ToUpper(tag[:i]), tag[i+1:]
	}
	return "I", tag
}
