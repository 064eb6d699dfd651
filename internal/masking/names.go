package masking

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"
)

const maxNameWords = 3

var (
	capitalisedWord = regexp.MustCompile(`\b[A-Z][a-z]+(?:['-][A-Z]?[a-z]+)?\b`)
	honorific       = regexp.MustCompile(`\b(?:Mr|Mrs|Ms|Miss|Dr|Prof|Shri|Smt)\.?[ \t]+$`)
)

var nameCues = []string{
	"name is", "name:", "regards,", "regards", "thanks,", "thank you,", "sincerely,",
	"cheers,", "i am", "i'm", "this is", "dear", "hi", "hello", "hey",
	"contact person", "signed,",
}

var nonNameWords = toSet([]string{
	"the", "this", "that", "please", "thanks", "thank", "regards", "hello", "hi", "hey",
	"dear", "team", "support", "customer", "service", "account", "bank", "card", "order",
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	"january", "february", "march", "april", "june", "july", "august", "september",
	"october", "november", "december", "i", "we", "my", "our", "your", "it", "is",
	"sir", "madam", "best", "kind", "warm", "sincerely", "yours", "urgent", "issue",
	"request", "problem", "incident", "change", "update", "subject", "re", "fw",
})

// NameDetector is a lexicon and context driven person-name recogniser.
// A run of capitalised words is reported when it starts with a known given
// name, follows an honorific, or follows a cue such as "regards,".
type NameDetector struct {
	givenNames map[string]struct{}
}

// NewNameDetector builds the detector with the built-in lexicon plus extras.
func NewNameDetector(extraNames ...string) *NameDetector {
	names := toSet(defaultGivenNames)
	for _, n := range extraNames {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			names[n] = struct{}{}
		}
	}
	return &NameDetector{givenNames: names}
}

func (d *NameDetector) Name() string { return "names" }

// Fingerprint hashes the given-name lexicon.
func (d *NameDetector) Fingerprint() string {
	names := make([]string, 0, len(d.givenNames))
	for n := range d.givenNames {
		names = append(names, n)
	}
	sort.Strings(names)
	sum := sha256.Sum256([]byte(strings.Join(names, "\n")))
	return hex.EncodeToString(sum[:])
}

// Detect returns full_name spans in byte offsets.
func (d *NameDetector) Detect(_ context.Context, text string) ([]Span, error) {
	var spans []Span
	for _, run := range capitalisedRuns(text) {
		start := d.nameStart(text, run)
		if start < 0 {
			continue
		}
		end := start
		for end < len(run) && end-start < maxNameWords {
			if end > start && d.isNonName(text, run[end]) {
				break
			}
			end++
		}
		spans = append(spans, Span{Start: run[start][0], End: run[end-1][1], Label: LabelFullName})
	}
	return spans, nil
}

// nameStart picks the first word of run that begins a name, or -1.
func (d *NameDetector) nameStart(text string, run [][]int) int {
	for i, word := range run {
		lower := strings.ToLower(text[word[0]:word[1]])
		if _, skip := nonNameWords[lower]; skip {
			continue
		}
		if _, ok := d.givenNames[lower]; ok {
			return i
		}
		prefix := text[:word[0]]
		if honorific.MatchString(prefix) || hasCue(prefix) {
			return i
		}
	}
	return -1
}

func (d *NameDetector) isNonName(text string, word []int) bool {
	_, skip := nonNameWords[strings.ToLower(text[word[0]:word[1]])]
	return skip
}

// capitalisedRuns groups capitalised words separated only by single spaces.
func capitalisedRuns(text string) [][][]int {
	words := capitalisedWord.FindAllStringIndex(text, -1)
	var runs [][][]int
	var current [][]int
	for _, w := range words {
		if !wordBoundary(text, w[0]) || !wordBoundary(text, w[1]) {
			continue
		}
		if len(current) > 0 {
			prev := current[len(current)-1]
			if gap := text[prev[1]:w[0]]; gap != " " {
				runs = append(runs, current)
				current = nil
			}
		}
		current = append(current, w)
	}
	if len(current) > 0 {
		runs = append(runs, current)
	}
	return runs
}

func hasCue(prefix string) bool {
	trimmed := strings.ToLower(strings.TrimRight(prefix, " \t\r\n"))
	if trimmed == "" {
		return false
	}
	for _, cue := range nameCues {
		if !strings.HasSuffix(trimmed, cue) {
			continue
		}
		head := trimmed[:len(trimmed)-len(cue)]
		if head == "" || !isWordByte(head[len(head)-1]) {
			return true
		}
	}
	return false
}

func isWordByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9')
}

func toSet(items []string) map[string]struct{} {
	out := make(map[string]struct{}, len(items))
	for _, item := range items {
		out[item] = struct{}{}
	}
	return out
}

var defaultGivenNames = []string{
	"aarav", "aarti", "abhishek", "aditi", "aditya", "ajay", "akash", "alice", "amit", "amy",
	"ananya", "andrew", "angela", "anil", "anita", "anjali", "ankit", "anna", "anthony", "arjun",
	"arun", "ashok", "barbara", "ben", "betty", "bob", "brian", "carol", "charles", "chris",
	"christopher", "daniel", "david", "deepak", "deepika", "divya", "donald", "dorothy", "elizabeth", "emily",
	"emma", "george", "gaurav", "harish", "helen", "isha", "james", "jane", "jennifer", "jessica",
	"john", "jose", "joseph", "karan", "karen", "kavita", "kevin", "kiran", "krishna", "laura",
	"linda", "lisa", "manish", "margaret", "maria", "mark", "mary", "matthew", "meera", "michael",
	"mohan", "nancy", "neha", "nikhil", "nisha", "olivia", "pankaj", "patricia", "paul", "pooja",
	"prakash", "priya", "rahul", "raj", "rajesh", "ramesh", "ravi", "rekha", "richard", "ritu",
	"robert", "rohit", "sachin", "sandra", "sanjay", "sarah", "sandeep", "shreya", "sneha", "sophia",
	"steven", "sunil", "sunita", "susan", "suresh", "thomas", "tom", "vijay", "vikram", "vinod",
	"william", "yash",
}
