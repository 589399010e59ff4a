package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	err := New(KindConflict, "paper %s version mismatch", "p1")
	if KindOf(err) != KindConflict {
		t.Errorf("expected KindConflict, got %s", KindOf(err))
	}
	if err.Error() != "paper p1 version mismatch" {
		t.Errorf("unexpected message: %s", err.Error())
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	cause := errors.New("UNIQUE constraint failed")
	err := Wrap(KindAlreadyAssigned, cause, "reviewer r1 already assigned")

	// Kind survives further wrapping with %w
	outer := fmt.Errorf("assigning reviewer: %w", err)
	if KindOf(outer) != KindAlreadyAssigned {
		t.Errorf("expected KindAlreadyAssigned through wrap, got %s", KindOf(outer))
	}
	if !errors.Is(outer, cause) {
		t.Error("expected cause to be reachable via errors.Is")
	}
}

func TestKindOf_Unclassified(t *testing.T) {
	if KindOf(errors.New("plain")) != KindUnknown {
		t.Error("plain errors should classify as unknown")
	}
	if KindOf(nil) != KindUnknown {
		t.Error("nil should classify as unknown")
	}
}

func TestIsInvalidState(t *testing.T) {
	cases := []struct {
		kind Kind
		want bool
	}{
		{KindInvalidState, true},
		{KindImmutablePaper, true},
		{KindImmutableReview, true},
		{KindAlreadySubmitted, true},
		{KindConflict, false},
		{KindNotFound, false},
	}
	for _, c := range cases {
		if got := IsInvalidState(New(c.kind, "x")); got != c.want {
			t.Errorf("IsInvalidState(%s) = %v, want %v", c.kind, got, c.want)
		}
	}
}

func TestIsConflict(t *testing.T) {
	for _, kind := range []Kind{KindConflict, KindAlreadyAssigned, KindDuplicateCitation, KindDuplicateLink} {
		if !IsConflict(New(kind, "x")) {
			t.Errorf("expected %s to be a conflict-class fault", kind)
		}
	}
	if IsConflict(New(KindValidation, "x")) {
		t.Error("validation should not be a conflict-class fault")
	}
}
