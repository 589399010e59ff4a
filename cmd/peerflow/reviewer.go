package main

import (
	"fmt"
	"time"

	"github.com/peerflow/peerflow/internal/reviewer"
	"github.com/spf13/cobra"
)

var (
	reviewerName      string
	reviewerAreas     []string
	reviewerExpertise []string
	reviewerMaxPerYr  int
	reviewerWilling   bool
	reviewerVerified  bool

	matchExpertise string
	matchLimit     int
)

func init() {
	reviewerRegisterCmd.Flags().StringVar(&reviewerName, "name", "", "Reviewer display name (required)")
	reviewerRegisterCmd.Flags().StringArrayVar(&reviewerAreas, "area", nil, "Review area (repeatable)")
	reviewerRegisterCmd.Flags().StringArrayVar(&reviewerExpertise, "expertise", nil, "Expertise keyword (repeatable)")
	reviewerRegisterCmd.Flags().IntVar(&reviewerMaxPerYr, "max-per-year", 5, "Maximum reviews per year")
	reviewerRegisterCmd.Flags().BoolVar(&reviewerWilling, "willing", true, "Willing to review")
	reviewerRegisterCmd.Flags().BoolVar(&reviewerVerified, "verified", false, "Profile is verified")
	reviewerRegisterCmd.MarkFlagRequired("name")

	matchCmd.Flags().StringVar(&matchExpertise, "expertise", "", "Narrow candidates to this expertise keyword")
	matchCmd.Flags().IntVar(&matchLimit, "limit", 0, "Maximum candidates to return (default 3)")

	reviewerCmd.AddCommand(reviewerRegisterCmd, reviewerGetCmd, reviewerListCmd, reviewerLoadCmd)
	rootCmd.AddCommand(reviewerCmd)
	rootCmd.AddCommand(matchCmd)
}

var reviewerCmd = &cobra.Command{
	Use:   "reviewer",
	Short: "Manage reviewer profiles",
}

var reviewerRegisterCmd = &cobra.Command{
	Use:   "register <id>",
	Short: "Create or replace a reviewer profile",
	Long: `Create or replace a reviewer profile. Reviewers manage their own
profile; editors can manage anyone's.

Example:
  peerflow reviewer register rev-1 --as rev-1 --role reviewer \
    --name "R. One" --area "machine learning" --expertise transformers`,
	Args: cobra.ExactArgs(1),
	RunE: runReviewerRegister,
}

func runReviewerRegister(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	profile := reviewer.Profile{
		ID:                    args[0],
		Name:                  reviewerName,
		WillingToReview:       reviewerWilling,
		ReviewAreas:           reviewerAreas,
		MaximumReviewsPerYear: reviewerMaxPerYr,
		Expertise:             reviewerExpertise,
		Verified:              reviewerVerified,
	}
	if err := e.RegisterReviewer(caller(), profile); err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		outputHuman("Registered reviewer %s\n", profile.ID)
	} else {
		outputJSON(profile)
	}
	return nil
}

var reviewerGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get a reviewer profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewerGet,
}

func runReviewerGet(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	profile, err := e.GetReviewer(args[0])
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		fmt.Printf("%s  %s\n", profile.ID, profile.Name)
		fmt.Printf("  Areas:     %v\n", profile.ReviewAreas)
		fmt.Printf("  Expertise: %v\n", profile.Expertise)
		fmt.Printf("  Capacity:  %d/year, willing=%v, verified=%v\n",
			profile.MaximumReviewsPerYear, profile.WillingToReview, profile.Verified)
	} else {
		outputJSON(profile)
	}
	return nil
}

var reviewerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all reviewer profiles",
	Args:  cobra.NoArgs,
	RunE:  runReviewerList,
}

func runReviewerList(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	profiles, err := e.ListReviewers()
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		for _, p := range profiles {
			fmt.Printf("  %s  %s (%d/year)\n", p.ID, p.Name, p.MaximumReviewsPerYear)
		}
		fmt.Printf("%d reviewer(s)\n", len(profiles))
	} else {
		outputJSON(profiles)
	}
	return nil
}

var reviewerLoadCmd = &cobra.Command{
	Use:   "load <id>",
	Short: "Show a reviewer's derived load and remaining capacity",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewerLoad,
}

// LoadResponse reports a reviewer's derived load.
type LoadResponse struct {
	ReviewerID     string `json:"reviewer_id"`
	CurrentLoad    int    `json:"current_load"`
	AvailableSlots int    `json:"available_slots"`
}

func runReviewerLoad(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	load, slots, err := e.ReviewerLoad(args[0], time.Now())
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		outputHuman("%d active review(s), %d slot(s) available\n", load, slots)
	} else {
		outputJSON(LoadResponse{ReviewerID: args[0], CurrentLoad: load, AvailableSlots: slots})
	}
	return nil
}

var matchCmd = &cobra.Command{
	Use:   "match <paper-id>",
	Short: "Rank eligible reviewers for a paper (editors)",
	Long: `Rank eligible reviewers for the paper's current review cycle:
available capacity first, verified profiles breaking ties.

The result is advisory. Assignment re-checks eligibility at call time.

Example:
  peerflow match paper-1 --as ed --role editor --expertise transformers`,
	Args: cobra.ExactArgs(1),
	RunE: runMatch,
}

func runMatch(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	candidates, err := e.MatchReviewers(caller(), args[0], matchExpertise, matchLimit)
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		for i, c := range candidates {
			fmt.Printf("%d. %s  %s (%d slot(s), load %d)\n",
				i+1, c.Profile.ID, c.Profile.Name, c.AvailableSlots(), c.CurrentLoad)
		}
		if len(candidates) == 0 {
			fmt.Println("No eligible reviewers.")
		}
	} else {
		outputJSON(candidates)
	}
	return nil
}
