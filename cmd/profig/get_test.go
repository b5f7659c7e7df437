package main

import (
	"testing"
	"time"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  string
	}{
		{name: "string prints bare", value: "hello", want: "hello"},
		{name: "int", value: 42, want: "42"},
		{name: "bool", value: true, want: "true"},
		{name: "duration", value: 2 * time.Second, want: "2s"},
		{name: "string list", value: []string{"a", "b"}, want: "a,b"},
		{name: "any list", value: []any{"a", 1, true}, want: "a,1,true"},
		{name: "float", value: 1.5, want: "1.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := formatValue(tt.value); got != tt.want {
				t.Errorf("formatValue(%v) = %q, want %q", tt.value, got, tt.want)
			}
		})
	}
}
