// Package features maps persons to fixed-layout numeric vectors.
package features

import (
	"regexp"
	"strconv"
	"strings"
)

// SlotCount is the size of the availability token universe.
const SlotCount = 14

// Slots is the availability token universe in bitmap order.
var Slots = [SlotCount]string{
	"MonMorn", "MonEve", "TueMorn", "TueEve", "WedMorn", "WedEve", "ThuMorn", "ThuEve",
	"FriMorn", "FriEve", "SatMorn", "SatEve", "SunMorn", "SunEve",
}

// Hour windows used when expanding "weekdays H1-H2".
const (
	morningStartsBefore = 12
	morningEndsAfter    = 9
	eveningStartsBefore = 20
	eveningEndsAfter    = 13
)

var (
	weekdays     = [...]string{"Mon", "Tue", "Wed", "Thu", "Fri"}
	weekdayRange = regexp.MustCompile(`^weekdays\s+(\d+)-(\d+)`)
	slotIndex    = func() map[string]int {
		m := make(map[string]int, SlotCount)
		for i, s := range Slots {
			m[s] = i
		}
		return m
	}()
)

// TokenSet is a set of known availability tokens, one bit per slot.
type TokenSet uint16

// Has reports whether the slot at index i is set.
func (s TokenSet) Has(i int) bool { return s&(1<<uint(i)) != 0 }

// Len returns the number of tokens in the set.
func (s TokenSet) Len() int {
	n := 0
	for v := s; v != 0; v &= v - 1 {
		n++
	}
	return n
}

// Tokens lists the set members in slot order.
func (s TokenSet) Tokens() []string {
	out := make([]string, 0, s.Len())
	for i, name := range Slots {
		if s.Has(i) {
			out = append(out, name)
		}
	}
	return out
}

// ExpandAvailability normalizes an availability string to its token list.
// Range expressions are expanded; token lists are split and trimmed.
// Tokens are returned as written, including ones outside the known universe.
func ExpandAvailability(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if m := weekdayRange.FindStringSubmatch(raw); m != nil {
		start, errStart := strconv.Atoi(m[1])
		end, errEnd := strconv.Atoi(m[2])
		if errStart != nil || errEnd != nil {
			return nil
		}
		var out []string
		for _, day := range weekdays {
			if start <= morningStartsBefore && end > morningEndsAfter {
				out = append(out, day+"Morn")
			}
			if start <= eveningStartsBefore && end > eveningEndsAfter {
				out = append(out, day+"Eve")
			}
		}
		return out
	}
	var out []string
	for _, tok := range strings.Split(raw, ";") {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}

// ParseAvailability returns the set of known tokens in raw. It never fails:
// unknown tokens are dropped and unparseable input yields the empty set.
func ParseAvailability(raw string) TokenSet {
	var set TokenSet
	for _, tok := range ExpandAvailability(raw) {
		if i, ok := slotIndex[tok]; ok {
			set |= 1 << uint(i)
		}
	}
	return set
}

// Jaccard returns |a∩b| / |a∪b|, or 0 when both sets are empty.
func Jaccard(a, b TokenSet) float64 {
	union := (a | b).Len()
	if union == 0 {
		return 0
	}
	return float64((a & b).Len()) / float64(union)
}
