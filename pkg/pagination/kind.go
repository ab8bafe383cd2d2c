package pagination

import (
	"fmt"
	"strings"
)

// Kind selects the pagination dialect of an endpoint.
type Kind string

const (
	KindCursorQuery  Kind = "cursor_query"
	KindCursorBody   Kind = "cursor_body"
	KindPagedFilters Kind = "paged_filters"
	KindOffset       Kind = "offset"
)

// Kinds lists every supported dialect.
var Kinds = []Kind{KindCursorQuery, KindCursorBody, KindPagedFilters, KindOffset}

// ParseKind parses a dialect name. Hyphens and case are ignored.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_"))
	if !k.Valid() {
		return "", fmt.Errorf("unknown pagination strategy %q", s)
	}
	return k, nil
}

// Valid reports whether k is a supported dialect.
func (k Kind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

func (k Kind) String() string {
	return string(k)
}
