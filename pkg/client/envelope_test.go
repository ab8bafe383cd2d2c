package client

import (
	"errors"
	"reflect"
	"testing"
)

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
		keys    []string
	}{
		{"object", `{"items":[],"nextPageToken":"a"}`, false, []string{"items", "nextPageToken"}},
		{"empty body", "  ", false, []string{}},
		{"null", "null", true, nil},
		{"array", "[1]", true, nil},
		{"garbage", "<html>", true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := decodeEnvelope([]byte(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeEnvelope() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(env.Keys(), tt.keys) {
				t.Errorf("Keys() = %v, want %v", env.Keys(), tt.keys)
			}
		})
	}
}

func TestEnvelope_Items(t *testing.T) {
	env, err := decodeEnvelope([]byte(`{"items":[{"id":1},{"id":2}],"data":null,"count":3}`))
	if err != nil {
		t.Fatal(err)
	}

	items, err := env.Items("items")
	if err != nil {
		t.Fatalf("Items(items) error = %v", err)
	}
	if len(items) != 2 || string(items[0]) != `{"id":1}` {
		t.Errorf("Items(items) = %s", items)
	}

	empty, err := env.Items("data")
	if err != nil {
		t.Fatalf("Items(data) error = %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("Items(null) = %v, want empty non-nil", empty)
	}

	var shapeErr *ShapeError
	if _, err := env.Items("wrongKey"); !errors.As(err, &shapeErr) {
		t.Errorf("Items(missing) error = %v, want *ShapeError", err)
	} else if shapeErr.Reason != "missing" {
		t.Errorf("Reason = %q, want missing", shapeErr.Reason)
	}

	if _, err := env.Items("count"); !errors.As(err, &shapeErr) {
		t.Errorf("Items(non-array) error = %v, want *ShapeError", err)
	}
}

func TestEnvelope_NextPageToken(t *testing.T) {
	tests := []struct {
		body string
		want string
	}{
		{`{"nextPageToken":"abc"}`, "abc"},
		{`{"nextPageToken":""}`, ""},
		{`{"nextPageToken":null}`, ""},
		{`{}`, ""},
		{`{"nextPageToken":42}`, "42"},
	}

	for _, tt := range tests {
		env, err := decodeEnvelope([]byte(tt.body))
		if err != nil {
			t.Fatal(err)
		}
		if got := env.NextPageToken(); got != tt.want {
			t.Errorf("NextPageToken(%s) = %q, want %q", tt.body, got, tt.want)
		}
	}
}

func TestEnvelope_ArrayLengths(t *testing.T) {
	env, _ := decodeEnvelope([]byte(`{"a":[1,2,3],"b":[],"c":{"x":[1]},"d":"[1]"}`))

	got := env.arrayLengths()
	want := map[string]int{"a": 3, "b": 0}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("arrayLengths() = %v, want %v", got, want)
	}
}
