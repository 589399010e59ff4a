package paper

import (
	"testing"
	"time"

	"github.com/peerflow/peerflow/internal/fault"
)

var testTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestPaper(t *testing.T) *Paper {
	t.Helper()
	p, err := Create(CreateInput{
		Title:        "Adaptive Mesh Refinement for Coastal Models",
		Abstract:     "We refine meshes adaptively.",
		ResearchArea: "computational fluid dynamics",
		Authors: []Author{
			{Name: "R. Okafor", IdentityRef: "user-okafor", IsCorresponding: true},
			{Name: "L. Tran"},
		},
		CreatedBy: "user-okafor",
	}, "paper-1", testTime)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	return p
}

func TestCreate(t *testing.T) {
	p := newTestPaper(t)

	if p.Status != StatusDraft {
		t.Errorf("new paper status = %s, want draft", p.Status)
	}
	if p.Version != 1 {
		t.Errorf("new paper version = %d, want 1", p.Version)
	}
	if p.ReviewCycle != 1 {
		t.Errorf("new paper cycle = %d, want 1", p.ReviewCycle)
	}
	if p.ParentPaperID != "" {
		t.Error("version-1 paper should have no parent")
	}
	if p.CorrespondingAuthorID != "user-okafor" {
		t.Errorf("corresponding author = %q, want user-okafor", p.CorrespondingAuthorID)
	}
}

func TestCreate_Validation(t *testing.T) {
	cases := []struct {
		name  string
		input CreateInput
	}{
		{"missing title", CreateInput{ResearchArea: "x", Authors: []Author{{Name: "A"}}, CreatedBy: "u"}},
		{"missing area", CreateInput{Title: "T", Authors: []Author{{Name: "A"}}, CreatedBy: "u"}},
		{"no authors", CreateInput{Title: "T", ResearchArea: "x", CreatedBy: "u"}},
		{"no creator", CreateInput{Title: "T", ResearchArea: "x", Authors: []Author{{Name: "A"}}}},
	}
	for _, c := range cases {
		_, err := Create(c.input, "p", testTime)
		if !fault.Is(err, fault.KindValidation) {
			t.Errorf("%s: expected validation fault, got %v", c.name, err)
		}
	}
}

func TestSubmit(t *testing.T) {
	p := newTestPaper(t)
	target := SubmissionTarget{ConferenceRef: "conf-ocean-2026", Track: "modeling"}

	if err := p.Submit(target, testTime); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if p.Status != StatusSubmitted {
		t.Errorf("status = %s, want submitted", p.Status)
	}
	if p.SubmissionDate.IsZero() {
		t.Error("submission date not recorded")
	}
	if p.Submission == nil || p.Submission.ConferenceRef != "conf-ocean-2026" {
		t.Error("submission target not recorded")
	}
	if p.ReviewCycle != 1 {
		t.Errorf("first submission should not bump cycle, got %d", p.ReviewCycle)
	}
}

func TestSubmit_IllegalState(t *testing.T) {
	p := newTestPaper(t)
	p.Status = StatusUnderReview

	err := p.Submit(SubmissionTarget{ConferenceRef: "conf"}, testTime)
	if !fault.Is(err, fault.KindInvalidState) {
		t.Errorf("expected invalid_state fault, got %v", err)
	}
	if p.Status != StatusUnderReview {
		t.Error("failed submit must leave paper unchanged")
	}
}

func TestResubmit_BumpsCycle(t *testing.T) {
	p := newTestPaper(t)
	p.Status = StatusRevisionRequested

	if err := p.Submit(SubmissionTarget{ConferenceRef: "conf"}, testTime); err != nil {
		t.Fatalf("resubmit failed: %v", err)
	}
	if p.ReviewCycle != 2 {
		t.Errorf("resubmission should open cycle 2, got %d", p.ReviewCycle)
	}
	if p.Status != StatusSubmitted {
		t.Errorf("status = %s, want submitted", p.Status)
	}
}

func TestDecide(t *testing.T) {
	p := newTestPaper(t)
	p.Status = StatusUnderReview

	if err := p.Decide(DecisionAccept, testTime); err != nil {
		t.Fatalf("Decide failed: %v", err)
	}
	if p.Status != StatusAccepted {
		t.Errorf("status = %s, want accepted", p.Status)
	}

	// Accepted is terminal for decisions; a second decision must fail.
	err := p.Decide(DecisionReject, testTime)
	if !fault.Is(err, fault.KindImmutablePaper) {
		t.Errorf("expected immutable_paper fault, got %v", err)
	}
}

func TestDecide_Unknown(t *testing.T) {
	p := newTestPaper(t)
	p.Status = StatusUnderReview
	if err := p.Decide(Decision("shrug"), testTime); !fault.Is(err, fault.KindValidation) {
		t.Errorf("expected validation fault, got %v", err)
	}
}

func TestPublish(t *testing.T) {
	p := newTestPaper(t)
	p.Status = StatusAccepted
	if err := p.Publish(testTime); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if p.Status != StatusPublished {
		t.Errorf("status = %s, want published", p.Status)
	}

	if err := p.Publish(testTime); !fault.Is(err, fault.KindImmutablePaper) {
		t.Errorf("expected immutable_paper fault on double publish, got %v", err)
	}
}

func TestApplyPatch(t *testing.T) {
	p := newTestPaper(t)
	title := "Adaptive Mesh Refinement, Revisited"

	if err := p.ApplyPatch(Patch{Title: &title}, testTime); err != nil {
		t.Fatalf("ApplyPatch failed: %v", err)
	}
	if p.Title != title {
		t.Errorf("title = %q, want %q", p.Title, title)
	}
}

func TestApplyPatch_Immutable(t *testing.T) {
	p := newTestPaper(t)
	p.Status = StatusPublished
	title := "x"

	err := p.ApplyPatch(Patch{Title: &title}, testTime)
	if !fault.Is(err, fault.KindImmutablePaper) {
		t.Errorf("expected immutable_paper fault, got %v", err)
	}
	if p.Title == "x" {
		t.Error("failed edit must leave paper unchanged")
	}
}

func TestApplyPatch_SubmittedNotEditable(t *testing.T) {
	p := newTestPaper(t)
	p.Status = StatusSubmitted
	title := "x"

	err := p.ApplyPatch(Patch{Title: &title}, testTime)
	if !fault.Is(err, fault.KindInvalidState) {
		t.Errorf("expected invalid_state fault, got %v", err)
	}
}

func TestCanDelete(t *testing.T) {
	p := newTestPaper(t)
	if err := p.CanDelete(); err != nil {
		t.Errorf("draft should be deletable: %v", err)
	}

	for _, s := range []Status{StatusSubmitted, StatusUnderReview, StatusAccepted, StatusPublished} {
		p.Status = s
		if err := p.CanDelete(); !fault.Is(err, fault.KindImmutablePaper) {
			t.Errorf("status %s: expected immutable_paper fault, got %v", s, err)
		}
	}
}

func TestFork(t *testing.T) {
	p := newTestPaper(t)
	p.Status = StatusRevisionRequested
	p.ReviewCycle = 2

	child, err := p.Fork("paper-2", "Rewrote evaluation section per reviews", "user-okafor", testTime)
	if err != nil {
		t.Fatalf("Fork failed: %v", err)
	}

	if child.Version != p.Version+1 {
		t.Errorf("child version = %d, want %d", child.Version, p.Version+1)
	}
	if child.ParentPaperID != p.ID {
		t.Errorf("child parent = %q, want %q", child.ParentPaperID, p.ID)
	}
	if child.Status != StatusDraft {
		t.Errorf("child status = %s, want draft", child.Status)
	}
	if child.ReviewCycle != 1 {
		t.Errorf("child cycle = %d, want 1", child.ReviewCycle)
	}
	if len(child.ChangeLog) != 1 || child.ChangeLog[0].Description != "Rewrote evaluation section per reviews" {
		t.Error("fork should log the changes description")
	}
	if child.Title != p.Title || len(child.Authors) != len(p.Authors) {
		t.Error("fork should copy content and author state")
	}

	// Parent keeps its status and version but is marked superseded.
	if p.Status != StatusRevisionRequested || p.Version != 1 {
		t.Error("fork must not change the parent's status or version")
	}
	if p.SupersededByID != child.ID {
		t.Errorf("parent superseded_by = %q, want %q", p.SupersededByID, child.ID)
	}
}

func TestFork_ParentBecomesImmutable(t *testing.T) {
	p := newTestPaper(t)
	if _, err := p.Fork("paper-2", "tightened the proofs", "user-okafor", testTime); err != nil {
		t.Fatalf("Fork failed: %v", err)
	}

	title := "New Title"
	if err := p.ApplyPatch(Patch{Title: &title}, testTime); !fault.Is(err, fault.KindImmutablePaper) {
		t.Errorf("edit after fork: expected immutable_paper fault, got %v", err)
	}
	if err := p.Submit(SubmissionTarget{ConferenceRef: "icml-2026"}, testTime); !fault.Is(err, fault.KindImmutablePaper) {
		t.Errorf("submit after fork: expected immutable_paper fault, got %v", err)
	}
	if err := p.CanDelete(); !fault.Is(err, fault.KindImmutablePaper) {
		t.Errorf("delete after fork: expected immutable_paper fault, got %v", err)
	}
	if _, err := p.Fork("paper-3", "changes", "u", testTime); !fault.Is(err, fault.KindImmutablePaper) {
		t.Errorf("second fork: expected immutable_paper fault, got %v", err)
	}
}

func TestFork_IllegalState(t *testing.T) {
	p := newTestPaper(t)
	p.Status = StatusUnderReview

	if _, err := p.Fork("paper-2", "changes", "u", testTime); !fault.Is(err, fault.KindInvalidState) {
		t.Errorf("expected invalid_state fault, got %v", err)
	}
}

func TestFork_RequiresDescription(t *testing.T) {
	p := newTestPaper(t)
	if _, err := p.Fork("paper-2", "   ", "u", testTime); !fault.Is(err, fault.KindValidation) {
		t.Errorf("expected validation fault, got %v", err)
	}
}

func TestReviewProgress(t *testing.T) {
	p := newTestPaper(t)
	p.ReviewCycle = 1
	p.AssignedReviewers = []Assignment{
		{ReviewerID: "r1", Cycle: 1, Status: AssignmentCompleted},
		{ReviewerID: "r2", Cycle: 1, Status: AssignmentActive},
		{ReviewerID: "r3", Cycle: 1, Status: AssignmentDeclined},
		{ReviewerID: "r4", Cycle: 2, Status: AssignmentActive}, // other cycle
	}

	completed, total := p.ReviewProgress()
	if completed != 1 || total != 2 {
		t.Errorf("progress = %d/%d, want 1/2", completed, total)
	}
}

func TestActiveAssignment(t *testing.T) {
	p := newTestPaper(t)
	p.AssignedReviewers = []Assignment{
		{ReviewerID: "r1", Cycle: 1, Status: AssignmentDeclined},
		{ReviewerID: "r1", Cycle: 1, Status: AssignmentActive},
	}

	if a := p.ActiveAssignment("r1"); a == nil || !a.Active() {
		t.Error("expected active assignment for r1")
	}
	if a := p.ActiveAssignment("r2"); a != nil {
		t.Error("expected no assignment for r2")
	}
}
