package paper

import "testing"

func TestStatusCanTransition(t *testing.T) {
	cases := []struct {
		from, to Status
		want     bool
	}{
		{StatusDraft, StatusSubmitted, true},
		{StatusSubmitted, StatusUnderReview, true},
		{StatusUnderReview, StatusAccepted, true},
		{StatusUnderReview, StatusRejected, true},
		{StatusUnderReview, StatusRevisionRequested, true},
		{StatusRevisionRequested, StatusSubmitted, true},
		{StatusAccepted, StatusPublished, true},

		{StatusDraft, StatusUnderReview, false},
		{StatusDraft, StatusAccepted, false},
		{StatusSubmitted, StatusAccepted, false},
		{StatusRejected, StatusSubmitted, false},
		{StatusPublished, StatusDraft, false},
		{StatusAccepted, StatusRejected, false},
	}

	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.want {
			t.Errorf("CanTransition(%s -> %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestStatusTerminal(t *testing.T) {
	terminal := []Status{StatusAccepted, StatusRejected, StatusPublished}
	for _, s := range terminal {
		if !s.Terminal() {
			t.Errorf("expected %s to be terminal", s)
		}
	}
	open := []Status{StatusDraft, StatusSubmitted, StatusUnderReview, StatusRevisionRequested}
	for _, s := range open {
		if s.Terminal() {
			t.Errorf("expected %s to be non-terminal", s)
		}
	}
}

func TestStatusEditable(t *testing.T) {
	if !StatusDraft.Editable() || !StatusRevisionRequested.Editable() {
		t.Error("draft and revision_requested should be editable")
	}
	for _, s := range []Status{StatusSubmitted, StatusUnderReview, StatusAccepted, StatusRejected, StatusPublished} {
		if s.Editable() {
			t.Errorf("expected %s to be non-editable", s)
		}
	}
}

func TestStatusValid(t *testing.T) {
	if !StatusDraft.Valid() {
		t.Error("draft should be valid")
	}
	if Status("shredded").Valid() {
		t.Error("unknown status should be invalid")
	}
}
