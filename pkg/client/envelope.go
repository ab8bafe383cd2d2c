package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// NextPageTokenField is the envelope field carrying the continuation cursor.
const NextPageTokenField = "nextPageToken"

// Envelope is the decoded top-level object of one response. Values stay raw
// so records pass through unmodified.
type Envelope map[string]json.RawMessage

func decodeEnvelope(body []byte) (Envelope, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return Envelope{}, nil
	}
	var env Envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, err
	}
	if env == nil {
		return nil, fmt.Errorf("response body is null")
	}
	return env, nil
}

// Items returns the records stored under key. A missing key or a non-array
// value is a *ShapeError; an explicit null is an empty page.
func (e Envelope) Items(key string) ([]json.RawMessage, error) {
	raw, ok := e[key]
	if !ok {
		return nil, &ShapeError{ItemsKey: key, Keys: e.Keys(), Reason: "missing"}
	}
	if isNull(raw) {
		return []json.RawMessage{}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, &ShapeError{ItemsKey: key, Keys: e.Keys(), Reason: "is not an array"}
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	return items, nil
}

// NextPageToken returns the opaque continuation cursor, "" when absent.
func (e Envelope) NextPageToken() string {
	raw, ok := e[NextPageTokenField]
	if !ok || isNull(raw) {
		return ""
	}
	var token string
	if err := json.Unmarshal(raw, &token); err != nil {
		// Non-string cursors are passed back verbatim.
		return string(bytes.TrimSpace(raw))
	}
	return token
}

// Keys returns the top-level field names in sorted order.
func (e Envelope) Keys() []string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// arrayLengths counts elements of every top-level array field.
func (e Envelope) arrayLengths() map[string]int {
	counts := make(map[string]int)
	for k, raw := range e {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 || trimmed[0] != '[' {
			continue
		}
		var items []json.RawMessage
		if json.Unmarshal(trimmed, &items) == nil {
			counts[k] = len(items)
		}
	}
	return counts
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
