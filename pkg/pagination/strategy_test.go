package pagination

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/Sternrassler/msp-client/pkg/client"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startedGuard() *Guard {
	g := NewGuard(DefaultMaxRequests, zerolog.Nop())
	g.Begin()
	return g
}

func TestCursorQuery_FirstFullThenCursorOnly(t *testing.T) {
	tmpl := Template{
		Method:   http.MethodGet,
		Path:     "/v1/customers",
		ItemsKey: "items",
		Query:    url.Values{"status": {"active"}, "pageSize": {"50"}},
		Kind:     KindCursorQuery,
	}
	s := cursorQuery{}

	first := s.Initial(tmpl)
	assert.Equal(t, tmpl.Query, first.Query)
	assert.Empty(t, first.Query.Get(DefaultCursorParam))

	next, stop := s.Next(tmpl, Page{Number: 1, Envelope: envelope("items", 1, 2, "tok-1")}, startedGuard())
	require.Equal(t, StopNone, stop)
	assert.Equal(t, http.MethodGet, next.Method)
	assert.Equal(t, url.Values{"pageToken": {"tok-1"}}, next.Query)
	assert.Nil(t, next.Body)

	// The template is never mutated.
	assert.Equal(t, "active", tmpl.Query.Get("status"))
}

func TestCursorStrategies_PageSizeOnFirstRequestOnly(t *testing.T) {
	t.Run("query", func(t *testing.T) {
		tmpl := Template{Path: "/v1/customers", ItemsKey: "items", Kind: KindCursorQuery, PageSize: 50}
		s := cursorQuery{}

		first := s.Initial(tmpl)
		assert.Equal(t, "50", first.Query.Get("pageSize"))

		next, stop := s.Next(tmpl, Page{Number: 1, Envelope: envelope("items", 1, 1, "t")}, startedGuard())
		require.Equal(t, StopNone, stop)
		assert.NotContains(t, next.Query, "pageSize")
		assert.Nil(t, tmpl.Query, "template must not be mutated")
	})

	t.Run("query default", func(t *testing.T) {
		first := cursorQuery{}.Initial(Template{Path: "/v1/x", ItemsKey: "items", Kind: KindCursorQuery})
		assert.Equal(t, "100", first.Query.Get("pageSize"))
	})

	t.Run("body", func(t *testing.T) {
		tmpl := Template{Method: http.MethodPost, Path: "/v1/search", ItemsKey: "items", Kind: KindCursorBody, PageSize: 25}
		s := cursorBody{}

		first := s.Initial(tmpl)
		assert.Equal(t, 25, first.Body["pageSize"])

		next, stop := s.Next(tmpl, Page{Number: 1, Envelope: envelope("items", 1, 1, "t")}, startedGuard())
		require.Equal(t, StopNone, stop)
		assert.Equal(t, map[string]any{"pageToken": "t"}, next.Body)
		assert.Nil(t, tmpl.Body, "template must not be mutated")
	})

	t.Run("template value wins", func(t *testing.T) {
		tmpl := Template{
			Method: http.MethodPost, Path: "/v1/search", ItemsKey: "items", Kind: KindCursorBody,
			PageSize: 25, Body: map[string]any{"pageSize": 10},
		}
		assert.Equal(t, 10, cursorBody{}.Initial(tmpl).Body["pageSize"])
	})
}

func TestCursorQuery_CustomParam(t *testing.T) {
	tmpl := Template{Path: "/v1/x", ItemsKey: "items", Kind: KindCursorQuery, CursorParam: "nextPageToken"}

	next, stop := cursorQuery{}.Next(tmpl, Page{Envelope: envelope("items", 1, 1, "t")}, startedGuard())
	require.Equal(t, StopNone, stop)
	assert.Equal(t, url.Values{"nextPageToken": {"t"}}, next.Query)
}

func TestCursorQuery_CompletesWithoutToken(t *testing.T) {
	tmpl := Template{Path: "/v1/x", ItemsKey: "items", Kind: KindCursorQuery}

	_, stop := cursorQuery{}.Next(tmpl, Page{Envelope: envelope("items", 1, 5, "")}, startedGuard())
	assert.Equal(t, StopComplete, stop)
}

func TestCursorBody_FirstFullThenCursorOnly(t *testing.T) {
	tmpl := Template{
		Method:   http.MethodPost,
		Path:     "/v1/search",
		ItemsKey: "items",
		Query:    url.Values{"customerId": {"7"}},
		Body:     map[string]any{"status": "active", "types": []string{"a", "b"}},
		Kind:     KindCursorBody,
	}
	s := cursorBody{}

	first := s.Initial(tmpl)
	assert.Equal(t, "active", first.Body["status"])
	assert.Equal(t, DefaultPageSize, first.Body["pageSize"])
	assert.NotContains(t, first.Body, BodyCursorField)

	next, stop := s.Next(tmpl, Page{Number: 1, Envelope: envelope("items", 1, 1, "tok")}, startedGuard())
	require.Equal(t, StopNone, stop)
	assert.Equal(t, map[string]any{"pageToken": "tok"}, next.Body)
	assert.Empty(t, next.Query)
	assert.Equal(t, http.MethodPost, next.Method)
	assert.Equal(t, "active", tmpl.Body["status"])
}

func TestPagedFilters_Requests(t *testing.T) {
	tmpl := Template{
		Method:   http.MethodPost,
		Path:     "/v2/reports/backups",
		ItemsKey: "data",
		Body:     map[string]any{"reportType": "daily"},
		FilterBy: map[string]any{"status": "failed"},
		Kind:     KindPagedFilters,
		PageSize: 500,
	}
	s := pagedFilters{}

	first := s.Initial(tmpl)
	assert.Equal(t, map[string]any{
		"reportType": "daily",
		"filters": map[string]any{
			"pageSize": 100,
			"filterBy": map[string]any{"status": "failed"},
		},
	}, first.Body)

	next, stop := s.Next(tmpl, Page{Number: 1, Envelope: envelope("data", 1, 100, "r-1")}, startedGuard())
	require.Equal(t, StopNone, stop)
	assert.Equal(t, map[string]any{
		"reportType": "daily",
		"filters":    map[string]any{"pageToken": "r-1"},
	}, next.Body)
	assert.NotContains(t, tmpl.Body, "filters", "template body must stay untouched")
}

func TestPagedFilters_NoFilterBy(t *testing.T) {
	tmpl := Template{Method: http.MethodPost, Path: "/v2/reports/x", ItemsKey: "data", Kind: KindPagedFilters}

	first := pagedFilters{}.Initial(tmpl)
	assert.Equal(t, map[string]any{"filters": map[string]any{"pageSize": 100}}, first.Body)
}

func TestPagedFilters_Completion(t *testing.T) {
	tmpl := Template{Method: http.MethodPost, Path: "/v2/reports/x", ItemsKey: "data", Kind: KindPagedFilters}
	s := pagedFilters{}

	// Empty items end the aggregation even when a token is present.
	env := envelope("data", 1, 0, "dangling")
	_, stop := s.Next(tmpl, Page{Envelope: env, Items: nil}, startedGuard())
	assert.Equal(t, StopComplete, stop)

	env = envelope("data", 1, 3, "")
	items, err := env.Items("data")
	require.NoError(t, err)
	_, stop = s.Next(tmpl, Page{Envelope: env, Items: items}, startedGuard())
	assert.Equal(t, StopComplete, stop)
}

func TestOffset_GetUsesQuery(t *testing.T) {
	tmpl := Template{
		Method:   http.MethodGet,
		Path:     "/v1/devices",
		ItemsKey: "items",
		Query:    url.Values{"customerId": {"9"}},
		Kind:     KindOffset,
		PageSize: 50,
	}
	s := offsetPage{}

	first := s.Initial(tmpl)
	assert.Equal(t, url.Values{"customerId": {"9"}, "page": {"1"}, "pageSize": {"50"}}, first.Query)

	env := envelope("items", 1, 50, "")
	items, _ := env.Items("items")
	next, stop := s.Next(tmpl, Page{Number: 1, Envelope: env, Items: items}, startedGuard())
	require.Equal(t, StopNone, stop)
	assert.Equal(t, url.Values{"customerId": {"9"}, "page": {"2"}, "pageSize": {"50"}}, next.Query)
	assert.Empty(t, tmpl.Query.Get("page"))
}

func TestOffset_PostUsesBody(t *testing.T) {
	tmpl := Template{
		Method:   http.MethodPost,
		Path:     "/v1/devices/search",
		ItemsKey: "items",
		Body:     map[string]any{"os": "linux"},
		Kind:     KindOffset,
	}

	first := offsetPage{}.Initial(tmpl)
	assert.Equal(t, map[string]any{"os": "linux", "page": 1, "pageSize": DefaultPageSize}, first.Body)
	assert.Nil(t, first.Query)
}

func TestInitialRequest_DefaultsToGet(t *testing.T) {
	req := initialRequest(Template{Path: "/v1/x"})
	assert.Equal(t, client.Request{Method: http.MethodGet, Path: "/v1/x"}, req)
}
