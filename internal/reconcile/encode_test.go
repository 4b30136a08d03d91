package reconcile

import (
	"testing"
	"time"
)

func TestEncodeValue(t *testing.T) {
	s := "Machine"
	n := 12
	f := 72.5
	var nilStr *string
	var nilInt *int

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"timestamp", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), "2024-01-02 03:04:05"},
		{"string pointer", &s, "Machine"},
		{"int pointer", &n, 12},
		{"float pointer", &f, 72.5},
		{"nil string pointer", nilStr, nil},
		{"nil int pointer", nilInt, nil},
		{"plain int", 3, 3},
		{"plain string", "x", "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := encodeValue(tt.in); got != tt.want {
				t.Errorf("encodeValue(%v) = %#v, want %#v", tt.in, got, tt.want)
			}
		})
	}
}

func TestIdentityKey(t *testing.T) {
	if _, ok := identityKey(nil); ok {
		t.Error("nil identity should be rejected")
	}
	if _, ok := identityKey(""); ok {
		t.Error("empty identity should be rejected")
	}
	if got, ok := identityKey([]byte("abc")); !ok || got != "abc" {
		t.Errorf("identityKey([]byte) = %q, %v", got, ok)
	}
	if got, _ := identityKey(int64(7)); got != "7" {
		t.Errorf("identityKey(int64) = %q, want 7", got)
	}
}
