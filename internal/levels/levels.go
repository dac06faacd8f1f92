// Package levels parses the compact zoom-level language used on the command
// line. A spec is a comma-separated list of tokens, each either a bare
// non-negative integer or an inclusive range "A..B":
//
//	"1..6, 8, 9, 13..14" -> [1 2 3 4 5 6 8 9 13 14]
//
// Overlapping tokens union; the result is always strictly increasing with no
// duplicates.
package levels

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// LevelSet is an ordered set of zoom levels: strictly increasing, no
// duplicates. It is produced once by Parse and never mutated afterwards.
type LevelSet []int

// Max returns the highest level in the set. It panics on an empty set, which
// Parse never produces.
func (ls LevelSet) Max() int {
	return ls[len(ls)-1]
}

// String renders the set as a comma-joined list of integers. Parsing the
// result yields an equal set.
func (ls LevelSet) String() string {
	parts := make([]string, len(ls))
	for i, l := range ls {
		parts[i] = strconv.Itoa(l)
	}
	return strings.Join(parts, ",")
}

// MalformedSpecError reports a level spec that does not match the grammar.
type MalformedSpecError struct {
	Token  string
	Reason string
}

func (e *MalformedSpecError) Error() string {
	if e.Token == "" {
		return fmt.Sprintf("malformed level spec: %s", e.Reason)
	}
	return fmt.Sprintf("malformed level spec: token %q: %s", e.Token, e.Reason)
}

// Parse turns a level spec into a LevelSet. An empty spec is an error: a
// level selection is mandatory for an export, and silently exporting nothing
// would hide the mistake.
func Parse(spec string) (LevelSet, error) {
	if strings.TrimSpace(spec) == "" {
		return nil, &MalformedSpecError{Reason: "empty spec"}
	}

	set := map[int]struct{}{}
	for _, token := range strings.Split(spec, ",") {
		token = strings.TrimSpace(token)
		if strings.Contains(token, "..") {
			from, to, err := parseRange(token)
			if err != nil {
				return nil, err
			}
			for l := from; l <= to; l++ {
				set[l] = struct{}{}
			}
			continue
		}
		l, err := parseLevel(token)
		if err != nil {
			return nil, &MalformedSpecError{Token: token, Reason: err.Error()}
		}
		set[l] = struct{}{}
	}

	result := make(LevelSet, 0, len(set))
	for l := range set {
		result = append(result, l)
	}
	sort.Ints(result)
	return result, nil
}

func parseRange(token string) (from, to int, err error) {
	bounds := strings.SplitN(token, "..", 2)
	from, err = parseLevel(strings.TrimSpace(bounds[0]))
	if err != nil {
		return 0, 0, &MalformedSpecError{Token: token, Reason: fmt.Sprintf("lower bound: %v", err)}
	}
	to, err = parseLevel(strings.TrimSpace(bounds[1]))
	if err != nil {
		return 0, 0, &MalformedSpecError{Token: token, Reason: fmt.Sprintf("upper bound: %v", err)}
	}
	if from > to {
		return 0, 0, &MalformedSpecError{Token: token, Reason: fmt.Sprintf("lower bound %d above upper bound %d", from, to)}
	}
	return from, to, nil
}

func parseLevel(s string) (int, error) {
	l, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}
	if l < 0 {
		return 0, fmt.Errorf("negative level")
	}
	return l, nil
}
