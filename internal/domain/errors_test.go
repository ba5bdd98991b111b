package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"nil", nil, ""},
		{"not host", fmt.Errorf("start question: %w", ErrNotHost), ClassPermission},
		{"permission denied", ErrPermissionDenied, ClassPermission},
		{"not found", fmt.Errorf("session: %w", ErrNotFound), ClassNotFound},
		{"invalid answer", ErrInvalidAnswer, ClassValidation},
		{"invalid transition", fmt.Errorf("advance: %w", ErrInvalidTransition), ClassValidation},
		{"nickname taken", ErrNicknameTaken, ClassValidation},
		{"plain error", errors.New("disk on fire"), ClassInternal},
	}
	for _, tc := range cases {
		if got := Classify(tc.err); got != tc.want {
			t.Errorf("%s: Classify = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestClassifyRemoteComputeFailure(t *testing.T) {
	// The shape an ending transition produces: the state machine wraps
	// the client error, which wraps the sentinel.
	err := fmt.Errorf("computeRankingResults failed: %w",
		fmt.Errorf("invoke computeRankingResults: %w: status 500", ErrRemoteCompute))

	if got := Classify(err); got != ClassRemote {
		t.Fatalf("Classify = %q, want %q", got, ClassRemote)
	}
}
