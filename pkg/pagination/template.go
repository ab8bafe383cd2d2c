package pagination

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	// DefaultPageSize is used when a template carries no page size.
	DefaultPageSize = 100

	// MaxReportPageSize is the upper bound accepted by report endpoints.
	MaxReportPageSize = 100

	// DefaultMaxRequests caps the requests of one aggregation.
	DefaultMaxRequests = 100

	// DefaultCursorParam is the query parameter carrying the cursor.
	DefaultCursorParam = "pageToken"

	// BodyCursorField is the JSON field carrying the cursor in request bodies.
	BodyCursorField = "pageToken"
)

// Template is the immutable skeleton of every page request of one
// aggregation. Strategies copy it; they never mutate it.
type Template struct {
	Method   string
	Path     string
	ItemsKey string
	Query    url.Values
	Body     map[string]any

	// FilterBy is nested into the filters object of KindPagedFilters.
	FilterBy any

	Kind     Kind
	PageSize int

	// CursorParam names the query parameter for KindCursorQuery. Some
	// endpoints want "nextPageToken".
	CursorParam string
}

// Validate checks the fields every strategy relies on.
func (t Template) Validate() error {
	switch {
	case strings.TrimSpace(t.Path) == "":
		return fmt.Errorf("path is required")
	case t.ItemsKey == "":
		return fmt.Errorf("items key is required")
	case !t.Kind.Valid():
		return fmt.Errorf("unknown pagination strategy %q", t.Kind)
	case t.PageSize < 0:
		return fmt.Errorf("page size must be >= 0 (got %d)", t.PageSize)
	}
	return nil
}

func (t Template) method() string {
	m := strings.ToUpper(strings.TrimSpace(t.Method))
	if m == "" {
		return http.MethodGet
	}
	return m
}

func (t Template) pageSize() int {
	if t.PageSize <= 0 {
		return DefaultPageSize
	}
	return t.PageSize
}

func (t Template) cursorParam() string {
	if t.CursorParam == "" {
		return DefaultCursorParam
	}
	return t.CursorParam
}

// ClampReportPageSize bounds n to 1..MaxReportPageSize; 0 means the default.
func ClampReportPageSize(n int) int {
	switch {
	case n == 0:
		return DefaultPageSize
	case n < 1:
		return 1
	case n > MaxReportPageSize:
		return MaxReportPageSize
	default:
		return n
	}
}

func cloneQuery(q url.Values) url.Values {
	if q == nil {
		return nil
	}
	out := make(url.Values, len(q))
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	return out
}

func cloneBody(b map[string]any) map[string]any {
	if b == nil {
		return nil
	}
	out := make(map[string]any, len(b))
	for k, v := range b {
		out[k] = v
	}
	return out
}
