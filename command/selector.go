package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/timgluz/nrwatch/monitor"
)

// Selector picks an entity either by its position in the source listing or
// by its exact name.
type Selector struct {
	raw     string
	index   int
	byIndex bool
}

func ByIndex(n int) Selector {
	return Selector{raw: strconv.Itoa(n), index: n, byIndex: true}
}

func ByName(name string) Selector {
	return Selector{raw: name}
}

// ParseSelector treats an all-digit argument as an index and anything else
// as a name.
func ParseSelector(s string) Selector {
	s = strings.TrimSpace(s)
	if isDigits(s) {
		if n, err := strconv.Atoi(s); err == nil {
			// keep the argument as typed for replies, e.g. "007"
			sel := ByIndex(n)
			sel.raw = s
			return sel
		}
	}
	return ByName(s)
}

func (s Selector) IsIndex() bool {
	return s.byIndex
}

func (s Selector) String() string {
	return s.raw
}

func (s Selector) Resolve(entities []monitor.Entity) (monitor.Entity, error) {
	if s.byIndex {
		if s.index >= 0 && s.index < len(entities) {
			return entities[s.index], nil
		}
		return monitor.Entity{}, &ResolutionError{Selector: s}
	}

	for _, entity := range entities {
		if entity.Name == s.raw {
			return entity, nil
		}
	}
	return monitor.Entity{}, &ResolutionError{Selector: s}
}

type ResolutionError struct {
	Selector Selector
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("application %q not found", e.Selector.String())
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
