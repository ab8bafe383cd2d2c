package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// CacheKey identifies the snapshot of one aggregation.
type CacheKey struct {
	// Tenant distinguishes credentials (base URL and client id).
	Tenant string

	Method   string
	Path     string
	ItemsKey string
	Strategy string
	PageSize int

	// CursorParam is the cursor query parameter name, if the strategy uses one.
	CursorParam string

	Query    url.Values
	Body     map[string]any
	FilterBy any
}

// String generates a deterministic key.
// Format: msp:<tenant>:<method>:<path>:<strategy>:<items key>[:size=N][:cursor=P][:q=k=v&...][:body=<sha256>]
// The body hash covers Body and FilterBy.
//
// Example:
//
//	msp:3f1a9c0e2b7d4a51:GET:v1/customers:cursor_query:items:q=status=active
func (k CacheKey) String() string {
	parts := []string{
		"msp",
		shortHash([]byte(k.Tenant)),
		strings.ToUpper(k.Method),
		strings.Trim(k.Path, "/"),
		k.Strategy,
		k.ItemsKey,
	}

	if k.PageSize > 0 {
		parts = append(parts, fmt.Sprintf("size=%d", k.PageSize))
	}

	if k.CursorParam != "" {
		parts = append(parts, "cursor="+k.CursorParam)
	}

	if len(k.Query) > 0 {
		queryKeys := make([]string, 0, len(k.Query))
		for key := range k.Query {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		pairs := make([]string, 0, len(queryKeys))
		for _, key := range queryKeys {
			values := append([]string(nil), k.Query[key]...)
			sort.Strings(values)
			for _, v := range values {
				pairs = append(pairs, key+"="+v)
			}
		}
		parts = append(parts, "q="+strings.Join(pairs, "&"))
	}

	// encoding/json sorts map keys, so equal bodies hash equally.
	if len(k.Body) > 0 || k.FilterBy != nil {
		payload := []any{k.Body, k.FilterBy}
		data, err := json.Marshal(payload)
		if err != nil {
			data = []byte(fmt.Sprintf("%v", payload))
		}
		sum := sha256.Sum256(data)
		parts = append(parts, "body="+hex.EncodeToString(sum[:]))
	}

	return strings.Join(parts, ":")
}

func shortHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}
