package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/Sternrassler/msp-client/pkg/client"
	"github.com/rs/zerolog"
)

// fakeExecutor answers page requests from a function of the request index.
type fakeExecutor struct {
	mu       sync.Mutex
	requests []client.Request
	respond  func(i int, req client.Request) (client.Envelope, error)
}

func (f *fakeExecutor) Execute(_ context.Context, req client.Request) (client.Envelope, error) {
	f.mu.Lock()
	i := len(f.requests)
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.respond(i, req)
}

func (f *fakeExecutor) Requests() []client.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]client.Request(nil), f.requests...)
}

// envelope builds a response with n records under key, ids starting at start.
func envelope(key string, start, n int, next string) client.Envelope {
	items := make([]json.RawMessage, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, json.RawMessage(fmt.Sprintf(`{"id":%d}`, start+i)))
	}
	raw, _ := json.Marshal(items)
	env := client.Envelope{key: raw}
	if next != "" {
		tok, _ := json.Marshal(next)
		env[client.NextPageTokenField] = tok
	}
	return env
}

func newTestAggregator(exec Executor, maxRequests int) *Aggregator {
	logger := zerolog.Nop()
	return NewAggregator(exec, Config{MaxRequests: maxRequests, Logger: &logger})
}

func ids(records []json.RawMessage) []int {
	out := make([]int, 0, len(records))
	for _, r := range records {
		var rec struct {
			ID int `json:"id"`
		}
		_ = json.Unmarshal(r, &rec)
		out = append(out, rec.ID)
	}
	return out
}

func seq(start, n int) []int {
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, start+i)
	}
	return out
}

func itoa(i int) string {
	return fmt.Sprint(i)
}
