package pagination

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/Sternrassler/msp-client/pkg/client"
)

// Page is one fetched response of an aggregation.
type Page struct {
	// Number is 1-based.
	Number   int
	Envelope client.Envelope
	Items    []json.RawMessage
}

// Strategy builds the page requests of one pagination dialect.
type Strategy interface {
	Kind() Kind

	// Initial builds the first request from the template.
	Initial(t Template) client.Request

	// Next returns the request following page, or the reason to stop.
	// The guard is consulted before any request is returned.
	Next(t Template, page Page, guard *Guard) (client.Request, StopReason)
}

// StrategyFor returns the strategy of kind. The dialect is a property of
// the endpoint and is never inferred from responses.
func StrategyFor(kind Kind) (Strategy, error) {
	switch kind {
	case KindCursorQuery:
		return cursorQuery{}, nil
	case KindCursorBody:
		return cursorBody{}, nil
	case KindPagedFilters:
		return pagedFilters{}, nil
	case KindOffset:
		return offsetPage{}, nil
	default:
		return nil, fmt.Errorf("unknown pagination strategy %q", kind)
	}
}

// initialRequest is the full template without any cursor.
func initialRequest(t Template) client.Request {
	return client.Request{
		Method: t.method(),
		Path:   t.Path,
		Query:  cloneQuery(t.Query),
		Body:   cloneBody(t.Body),
	}
}

// pageSizeField carries the page size hint. A value already present in the
// template wins.
const pageSizeField = "pageSize"

type cursorQuery struct{}

func (cursorQuery) Kind() Kind { return KindCursorQuery }

// Initial sends the template query plus the page size. Only the first request
// carries it; continuations are cursor only.
func (cursorQuery) Initial(t Template) client.Request {
	req := initialRequest(t)
	if req.Query == nil {
		req.Query = make(url.Values, 1)
	}
	if _, ok := req.Query[pageSizeField]; !ok {
		req.Query.Set(pageSizeField, strconv.Itoa(t.pageSize()))
	}
	return req
}

func (cursorQuery) Next(t Template, page Page, guard *Guard) (client.Request, StopReason) {
	token := page.Envelope.NextPageToken()
	if stop := guard.CheckCursor(token); stop != StopNone {
		return client.Request{}, stop
	}

	// The API rejects a cursor combined with any other filter.
	return client.Request{
		Method: t.method(),
		Path:   t.Path,
		Query:  url.Values{t.cursorParam(): {token}},
	}, StopNone
}

type cursorBody struct{}

func (cursorBody) Kind() Kind { return KindCursorBody }

func (cursorBody) Initial(t Template) client.Request {
	req := initialRequest(t)
	if req.Body == nil {
		req.Body = make(map[string]any, 1)
	}
	if _, ok := req.Body[pageSizeField]; !ok {
		req.Body[pageSizeField] = t.pageSize()
	}
	return req
}

func (cursorBody) Next(t Template, page Page, guard *Guard) (client.Request, StopReason) {
	token := page.Envelope.NextPageToken()
	if stop := guard.CheckCursor(token); stop != StopNone {
		return client.Request{}, stop
	}

	return client.Request{
		Method: t.method(),
		Path:   t.Path,
		Body:   map[string]any{BodyCursorField: token},
	}, StopNone
}

// pagedFilters is the report v2 dialect: the body carries a "filters" object
// that holds either {pageSize, filterBy} or, on continuation, {pageToken}.
type pagedFilters struct{}

const filtersField = "filters"

func (pagedFilters) Kind() Kind { return KindPagedFilters }

func (pagedFilters) Initial(t Template) client.Request {
	filters := map[string]any{"pageSize": ClampReportPageSize(t.PageSize)}
	if t.FilterBy != nil {
		filters["filterBy"] = t.FilterBy
	}

	req := initialRequest(t)
	if req.Body == nil {
		req.Body = make(map[string]any, 1)
	}
	req.Body[filtersField] = filters
	return req
}

func (pagedFilters) Next(t Template, page Page, guard *Guard) (client.Request, StopReason) {
	if len(page.Items) == 0 {
		return client.Request{}, StopComplete
	}

	token := page.Envelope.NextPageToken()
	if stop := guard.CheckCursor(token); stop != StopNone {
		return client.Request{}, stop
	}

	req := initialRequest(t)
	if req.Body == nil {
		req.Body = make(map[string]any, 1)
	}
	req.Body[filtersField] = map[string]any{BodyCursorField: token}
	return req, StopNone
}

// offsetPage sends page (from 1) and pageSize in the query for GET and in the
// body otherwise.
type offsetPage struct{}

func (offsetPage) Kind() Kind { return KindOffset }

func (offsetPage) Initial(t Template) client.Request {
	return offsetRequest(t, 1)
}

func (offsetPage) Next(t Template, page Page, guard *Guard) (client.Request, StopReason) {
	if stop := guard.CheckOffset(len(page.Items), t.pageSize()); stop != StopNone {
		return client.Request{}, stop
	}
	return offsetRequest(t, page.Number+1), StopNone
}

func offsetRequest(t Template, page int) client.Request {
	req := initialRequest(t)
	size := t.pageSize()

	if req.Method == http.MethodGet {
		if req.Query == nil {
			req.Query = make(url.Values, 2)
		}
		req.Query.Set("page", strconv.Itoa(page))
		req.Query.Set(pageSizeField, strconv.Itoa(size))
		return req
	}

	if req.Body == nil {
		req.Body = make(map[string]any, 2)
	}
	req.Body["page"] = page
	req.Body[pageSizeField] = size
	return req
}
