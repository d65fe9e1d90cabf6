package fault

import (
	"errors"
	"fmt"
	"testing"
)

type fakeRuntimeError struct{ msg string }

func (e fakeRuntimeError) Error() string { return e.msg }
func (e fakeRuntimeError) RuntimeError() {}

func TestIsMemoryFault(t *testing.T) {
	tests := []struct {
		name string
		r    any
		want bool
	}{
		{"invalid memory address", fakeRuntimeError{"runtime error: invalid memory address or nil pointer dereference"}, true},
		{"nil pointer dereference", fakeRuntimeError{"nil pointer dereference"}, true},
		{"misaligned", fakeRuntimeError{"misaligned access"}, true},
		{"unrelated runtime error", fakeRuntimeError{"index out of range [3] with length 2"}, false},
		{"plain error, not runtime.Error", errors.New("boom"), false},
		{"non-error panic value", "just a string", false},
		{"formatted panic", fmt.Errorf("wrapped: %w", fakeRuntimeError{"invalid memory address"}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isMemoryFault(tt.r); got != tt.want {
				t.Errorf("isMemoryFault(%v) = %v, want %v", tt.r, got, tt.want)
			}
		})
	}
}
