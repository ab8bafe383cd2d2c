// Package pagination turns one "fetch all records" request into a finite,
// sequential series of MSP API calls.
//
// The MSP API speaks four pagination dialects, selected per endpoint by the
// caller through Kind:
//
//   - KindCursorQuery: cursor in the query string, all other query params dropped after page 1
//   - KindCursorBody: cursor as the only JSON body field after page 1
//   - KindPagedFilters: body "filters" object {pageSize, filterBy}, replaced by {pageToken}
//   - KindOffset: explicit page/pageSize, ends on a short page
//
// Cursors are exclusive with filters on the remote side: the first request of
// a cursor dialect carries the full filters and no cursor, every later request
// carries the cursor only.
//
// Every aggregation owns a Guard that caps the number of requests (default 100)
// and stops on a repeated cursor. A guard stop is not an error: CollectAll
// returns the records gathered so far with Result.Partial set. Transport, auth
// and shape errors abort the aggregation and discard everything gathered.
//
// Example usage:
//
//	agg := pagination.NewAggregator(mspClient, pagination.DefaultConfig())
//	res, err := agg.CollectAll(ctx, pagination.Template{
//		Method:   http.MethodGet,
//		Path:     "/v1/customers",
//		ItemsKey: "items",
//		Kind:     pagination.KindCursorQuery,
//	})
package pagination
