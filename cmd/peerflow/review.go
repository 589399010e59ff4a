package main

import (
	"fmt"
	"time"

	"github.com/peerflow/peerflow/internal/review"
	"github.com/spf13/cobra"
)

var (
	assignDueDays int
	assignDue     string
	assignBlind   bool

	declineReason string

	draftText         string
	draftOriginality  int
	draftSignificance int
	draftTechnical    int
	draftClarity      int
	draftOverall      int

	commentSection string
	commentPage    int

	submitDecision   string
	submitConfidence int
	submitRationale  string
)

func init() {
	assignCmd.Flags().IntVar(&assignDueDays, "due-days", 0, "Due date as days from now (defaults to repository config)")
	assignCmd.Flags().StringVar(&assignDue, "due", "", "Due date as YYYY-MM-DD (overrides --due-days)")
	assignCmd.Flags().BoolVar(&assignBlind, "blind", false, "Hide the reviewer's identity from authors")

	declineCmd.Flags().StringVar(&declineReason, "reason", "", "Why the assignment is declined")

	draftCmd.Flags().StringVar(&draftText, "text", "", "Review summary text")
	draftCmd.Flags().IntVar(&draftOriginality, "originality", 0, "Originality score 1-5")
	draftCmd.Flags().IntVar(&draftSignificance, "significance", 0, "Significance score 1-5")
	draftCmd.Flags().IntVar(&draftTechnical, "technical", 0, "Technical quality score 1-5")
	draftCmd.Flags().IntVar(&draftClarity, "clarity", 0, "Clarity score 1-5")
	draftCmd.Flags().IntVar(&draftOverall, "overall", 0, "Overall score 1-5")

	commentCmd.Flags().StringVar(&commentSection, "section", "", "Section the comment refers to")
	commentCmd.Flags().IntVar(&commentPage, "page", 0, "Page number the comment refers to")

	submitReviewCmd.Flags().StringVar(&draftText, "text", "", "Review summary text (required)")
	submitReviewCmd.Flags().IntVar(&draftOriginality, "originality", 0, "Originality score 1-5 (required)")
	submitReviewCmd.Flags().IntVar(&draftSignificance, "significance", 0, "Significance score 1-5 (required)")
	submitReviewCmd.Flags().IntVar(&draftTechnical, "technical", 0, "Technical quality score 1-5 (required)")
	submitReviewCmd.Flags().IntVar(&draftClarity, "clarity", 0, "Clarity score 1-5 (required)")
	submitReviewCmd.Flags().IntVar(&draftOverall, "overall", 0, "Overall score 1-5 (required)")
	submitReviewCmd.Flags().StringVar(&submitDecision, "decision", "", "accept|minor_revision|major_revision|reject (required)")
	submitReviewCmd.Flags().IntVar(&submitConfidence, "confidence", 0, "Confidence 1-5")
	submitReviewCmd.Flags().StringVar(&submitRationale, "rationale", "", "Recommendation rationale")
	submitReviewCmd.MarkFlagRequired("decision")
	submitReviewCmd.MarkFlagRequired("text")

	reviewCmd.AddCommand(declineCmd, draftCmd, commentCmd, submitReviewCmd,
		reviewGetCmd, reviewListCmd, overdueCmd, authorViewCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(assignCmd)
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Work on assigned reviews",
}

var assignCmd = &cobra.Command{
	Use:   "assign <paper-id> <reviewer-id>",
	Short: "Assign a reviewer to a paper's current cycle (editors)",
	Long: `Assign a reviewer to the paper's current review cycle. Eligibility is
checked at call time; a concurrent duplicate assignment loses cleanly with
nothing persisted.

Example:
  peerflow assign paper-1 rev-1 --as ed --role editor --due-days 14 --blind`,
	Args: cobra.ExactArgs(2),
	RunE: runAssign,
}

func runAssign(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	var due time.Time
	if assignDue != "" {
		parsed, err := time.Parse("2006-01-02", assignDue)
		if err != nil {
			exitWithError(ExitDataError, "invalid --due date %q: %v", assignDue, err)
		}
		due = parsed
	} else {
		days := assignDueDays
		if days <= 0 {
			days = cfg.DefaultDueDays
		}
		if days <= 0 {
			days = 14
		}
		due = time.Now().AddDate(0, 0, days)
	}

	r, err := e.AssignReviewer(caller(), args[0], args[1], due, assignBlind)
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		outputHuman("Assigned %s to paper %s (review %s, due %s)\n",
			args[1], args[0], r.ID, formatDate(r.DueDate))
	} else {
		outputJSON(r)
	}
	return nil
}

var declineCmd = &cobra.Command{
	Use:   "decline <review-id>",
	Short: "Decline an assignment before starting work",
	Args:  cobra.ExactArgs(1),
	RunE:  runDecline,
}

func runDecline(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	r, err := e.DeclineAssignment(caller(), args[0], declineReason)
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		outputHuman("Declined review %s\n", r.ID)
	} else {
		outputJSON(r)
	}
	return nil
}

// draftRating builds a Rating from the score flags; zero scores stay unset.
func draftRating() review.Rating {
	return review.Rating{
		Originality:      review.CategoryRating{Score: draftOriginality},
		Significance:     review.CategoryRating{Score: draftSignificance},
		TechnicalQuality: review.CategoryRating{Score: draftTechnical},
		Clarity:          review.CategoryRating{Score: draftClarity},
		Overall:          review.CategoryRating{Score: draftOverall},
	}
}

var draftCmd = &cobra.Command{
	Use:   "draft <review-id>",
	Short: "Save partial review content",
	Long: `Save partial ratings or summary text on an open review. The first
draft moves the review to in_progress. Unset scores are left alone.

Example:
  peerflow review draft rvw-1 --as rev-1 --role reviewer --clarity 4 --text "So far so good"`,
	Args: cobra.ExactArgs(1),
	RunE: runDraft,
}

func runDraft(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	patch := review.DraftPatch{Rating: draftRating()}
	if cmd.Flags().Changed("text") {
		patch.ReviewText = &draftText
	}

	r, err := e.SaveReviewDraft(caller(), args[0], patch)
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		outputHuman("Saved draft for review %s (%s)\n", r.ID, r.Status)
	} else {
		outputJSON(r)
	}
	return nil
}

var commentCmd = &cobra.Command{
	Use:   "comment <review-id> <text>",
	Short: "Attach an inline comment to an open review",
	Args:  cobra.ExactArgs(2),
	RunE:  runComment,
}

func runComment(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	r, err := e.AddReviewComment(caller(), args[0], commentSection, args[1], commentPage)
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		outputHuman("Added comment to review %s (%d total)\n", r.ID, len(r.Comments))
	} else {
		outputJSON(r)
	}
	return nil
}

var submitReviewCmd = &cobra.Command{
	Use:   "submit <review-id>",
	Short: "Submit a completed review",
	Long: `Submit the review with all five rating categories, a summary, and a
recommendation. Completed reviews are immutable; submitting twice fails.

Example:
  peerflow review submit rvw-1 --as rev-1 --role reviewer \
    --originality 4 --significance 4 --technical 3 --clarity 5 --overall 4 \
    --text "Solid contribution." --decision minor_revision --confidence 4`,
	Args: cobra.ExactArgs(1),
	RunE: runSubmitReview,
}

func runSubmitReview(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	rec := review.Recommendation{
		Decision:   review.RecommendationDecision(submitDecision),
		Confidence: submitConfidence,
		Rationale:  submitRationale,
	}
	r, err := e.SubmitReview(caller(), args[0], draftRating(), draftText, rec)
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		outputHuman("Submitted review %s (average %.1f)\n", r.ID, r.AverageRating)
	} else {
		outputJSON(r)
	}
	return nil
}

var reviewGetCmd = &cobra.Command{
	Use:   "get <review-id>",
	Short: "Get a single review by id",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewGet,
}

func runReviewGet(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	r, err := e.GetReview(args[0])
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		printReviewDetail(r)
	} else {
		outputJSON(r)
	}
	return nil
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List reviews for a paper or a reviewer",
	Args:  cobra.NoArgs,
	RunE:  runReviewList,
}

func init() {
	reviewListCmd.Flags().String("paper", "", "List reviews of this paper")
	reviewListCmd.Flags().String("reviewer", "", "List reviews by this reviewer")
}

func runReviewList(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	paperID, _ := cmd.Flags().GetString("paper")
	reviewerID, _ := cmd.Flags().GetString("reviewer")
	if (paperID == "") == (reviewerID == "") {
		exitWithError(ExitError, "exactly one of --paper or --reviewer is required")
	}

	var reviews []*review.Review
	var err error
	if paperID != "" {
		reviews, err = e.ListReviewsForPaper(paperID)
	} else {
		reviews, err = e.ListReviewsForReviewer(reviewerID)
	}
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		printReviewList(reviews)
	} else {
		outputJSON(reviews)
	}
	return nil
}

var overdueCmd = &cobra.Command{
	Use:   "overdue",
	Short: "List open reviews past their due date (editors)",
	Args:  cobra.NoArgs,
	RunE:  runOverdue,
}

func runOverdue(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	reviews, err := e.ListOverdueReviews(caller())
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		printReviewList(reviews)
	} else {
		outputJSON(reviews)
	}
	return nil
}

var authorViewCmd = &cobra.Command{
	Use:   "author-view <paper-id>",
	Short: "Show a paper's reviews as its authors see them",
	Long: `Show the paper's reviews with blind reviewer identities replaced by
stable pseudonymous handles.`,
	Args: cobra.ExactArgs(1),
	RunE: runAuthorView,
}

func runAuthorView(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	views, err := e.AuthorViews(args[0])
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		for _, v := range views {
			who := v.Review.ReviewerID
			if v.ReviewerHandle != "" {
				who = v.ReviewerHandle
			}
			fmt.Printf("  %s  cycle %d  %-12s %s\n", who, v.Review.Cycle, v.Review.Status, formatDate(v.Review.DueDate))
		}
	} else {
		outputJSON(views)
	}
	return nil
}

func printReviewList(reviews []*review.Review) {
	now := time.Now()
	for _, r := range reviews {
		late := ""
		if r.IsLate(now) {
			late = "  LATE"
		}
		fmt.Printf("  %s  paper %s  cycle %d  %-12s due %s%s\n",
			r.ID, r.PaperID, r.Cycle, r.Status, formatDate(r.DueDate), late)
	}
	fmt.Printf("%d review(s)\n", len(reviews))
}
