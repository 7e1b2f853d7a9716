package scanerr

import (
	"errors"
	"testing"
)

func TestPermissionDeniedUnwrap(t *testing.T) {
	base := errors.New("denied")
	err := NewPermissionDenied("/root/secret", base)
	if !errors.Is(err, base) {
		t.Errorf("expected wrapped error to unwrap to base, got %v", err)
	}
	var pd *PermissionDeniedError
	if !errors.As(err, &pd) {
		t.Fatal("expected errors.As to match *PermissionDeniedError")
	}
	if pd.Path != "/root/secret" {
		t.Errorf("Path = %q, want /root/secret", pd.Path)
	}
}

func TestTransientIOUnwrap(t *testing.T) {
	base := errors.New("disk error")
	err := NewTransientIO("/root/x.bin", base)
	if !errors.Is(err, base) {
		t.Errorf("expected wrapped error to unwrap to base, got %v", err)
	}
}

func TestDecodeFailureUnwrap(t *testing.T) {
	base := errors.New("bad image")
	err := NewDecodeFailure("/root/x.jpg", base)
	if !errors.Is(err, base) {
		t.Errorf("expected wrapped error to unwrap to base, got %v", err)
	}
}

func TestIsFatal(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		fatal bool
	}{
		{"invalid input", ErrInvalidInput, true},
		{"wrapped invalid input", fmtWrap(ErrInvalidInput), true},
		{"merge error", NewMergeError("/a", "/b"), true},
		{"internal invariant", NewInternalInvariant("tree-path-prefix", "detail"), true},
		{"cancelled", ErrCancelled, false},
		{"permission denied", NewPermissionDenied("/x", errors.New("e")), false},
		{"transient io", NewTransientIO("/x", errors.New("e")), false},
		{"decode failure", NewDecodeFailure("/x", errors.New("e")), false},
		{"nil", nil, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := IsFatal(c.err); got != c.fatal {
				t.Errorf("IsFatal(%v) = %v, want %v", c.err, got, c.fatal)
			}
		})
	}
}

func fmtWrap(err error) error {
	return errors.Join(err)
}
