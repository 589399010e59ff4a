package main

import (
	"fmt"
	"strings"

	"github.com/peerflow/peerflow/internal/paper"
	"github.com/spf13/cobra"
)

var (
	paperTitle         string
	paperAbstract      string
	paperArea          string
	paperMethodology   string
	paperAuthors       []string
	paperCorresponding string

	paperVenue string
	paperTrack string

	paperChanges string
)

func init() {
	paperCreateCmd.Flags().StringVar(&paperTitle, "title", "", "Paper title (required)")
	paperCreateCmd.Flags().StringVar(&paperAbstract, "abstract", "", "Paper abstract")
	paperCreateCmd.Flags().StringVar(&paperArea, "area", "", "Research area (required)")
	paperCreateCmd.Flags().StringVar(&paperMethodology, "methodology", "", "Methodology description")
	paperCreateCmd.Flags().StringArrayVar(&paperAuthors, "author", nil, "Author as 'Name' or 'Name=identity_ref' (repeatable, required)")
	paperCreateCmd.Flags().StringVar(&paperCorresponding, "corresponding", "", "Identity ref of the corresponding author")
	paperCreateCmd.MarkFlagRequired("title")
	paperCreateCmd.MarkFlagRequired("area")
	paperCreateCmd.MarkFlagRequired("author")

	paperEditCmd.Flags().StringVar(&paperTitle, "title", "", "New title")
	paperEditCmd.Flags().StringVar(&paperAbstract, "abstract", "", "New abstract")
	paperEditCmd.Flags().StringVar(&paperArea, "area", "", "New research area")
	paperEditCmd.Flags().StringVar(&paperMethodology, "methodology", "", "New methodology")

	paperSubmitCmd.Flags().StringVar(&paperVenue, "venue", "", "Conference or venue ref (defaults to repository config)")
	paperSubmitCmd.Flags().StringVar(&paperTrack, "track", "", "Submission track")

	paperForkCmd.Flags().StringVar(&paperChanges, "changes", "", "Description of the changes in the new version (required)")
	paperForkCmd.MarkFlagRequired("changes")

	paperListCmd.Flags().String("status", "", "Filter by status")
	paperListCmd.Flags().String("creator", "", "Filter by creator id")

	paperCmd.AddCommand(paperCreateCmd, paperGetCmd, paperListCmd, paperEditCmd,
		paperSubmitCmd, paperStartReviewCmd, paperDecideCmd, paperPublishCmd,
		paperForkCmd, paperDeleteCmd, paperVersionsCmd, paperProgressCmd,
		paperViewCmd, paperDownloadCmd)
	rootCmd.AddCommand(paperCmd)
}

var paperCmd = &cobra.Command{
	Use:   "paper",
	Short: "Manage papers through their lifecycle",
}

var paperCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new draft paper",
	Long: `Create a new version-1 draft paper owned by the acting user.

Example:
  peerflow paper create --as alice --title "My Result" --area "machine learning" \
    --author "Alice A=alice" --corresponding alice`,
	Args: cobra.NoArgs,
	RunE: runPaperCreate,
}

func runPaperCreate(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	p, err := e.CreatePaper(caller(), paper.CreateInput{
		Title:        paperTitle,
		Abstract:     paperAbstract,
		ResearchArea: paperArea,
		Methodology:  paperMethodology,
		Authors:      parseAuthors(paperAuthors, paperCorresponding),
	})
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		outputHuman("Created paper %s (draft)\n", p.ID)
	} else {
		outputJSON(p)
	}
	return nil
}

// parseAuthors parses "Name" or "Name=identity_ref" entries.
func parseAuthors(entries []string, corresponding string) []paper.Author {
	authors := make([]paper.Author, 0, len(entries))
	for _, entry := range entries {
		a := paper.Author{Name: entry}
		if name, ref, ok := strings.Cut(entry, "="); ok {
			a.Name = strings.TrimSpace(name)
			a.IdentityRef = strings.TrimSpace(ref)
		}
		a.IsCorresponding = corresponding != "" && a.IdentityRef == corresponding
		authors = append(authors, a)
	}
	return authors
}

var paperGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get a single paper by id",
	Args:  cobra.ExactArgs(1),
	RunE:  runPaperGet,
}

func runPaperGet(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	p, err := e.GetPaper(args[0])
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		printPaperDetail(p)
	} else {
		outputJSON(p)
	}
	return nil
}

var paperListCmd = &cobra.Command{
	Use:   "list",
	Short: "List papers by status or creator",
	Long: `List papers filtered by status or creator.

Examples:
  peerflow paper list --status under_review
  peerflow paper list --creator alice --human`,
	Args: cobra.NoArgs,
	RunE: runPaperList,
}

func runPaperList(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	status, _ := cmd.Flags().GetString("status")
	creator, _ := cmd.Flags().GetString("creator")
	if (status == "") == (creator == "") {
		exitWithError(ExitError, "exactly one of --status or --creator is required")
	}

	var papers []*paper.Paper
	var err error
	if status != "" {
		if !paper.Status(status).Valid() {
			exitWithError(ExitDataError, "unknown status %q", status)
		}
		papers, err = e.DB().ListPapersByStatus(paper.Status(status))
	} else {
		papers, err = e.DB().ListPapersByCreator(creator)
	}
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		for _, p := range papers {
			fmt.Printf("  %s  %-18s v%d  %s\n", p.ID, p.Status, p.Version, truncateString(p.Title, ListTitleMaxLen))
		}
		fmt.Printf("%d paper(s)\n", len(papers))
	} else {
		outputJSON(papers)
	}
	return nil
}

var paperEditCmd = &cobra.Command{
	Use:   "edit <id>",
	Short: "Edit paper content while it is editable",
	Args:  cobra.ExactArgs(1),
	RunE:  runPaperEdit,
}

func runPaperEdit(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	var patch paper.Patch
	if cmd.Flags().Changed("title") {
		patch.Title = &paperTitle
	}
	if cmd.Flags().Changed("abstract") {
		patch.Abstract = &paperAbstract
	}
	if cmd.Flags().Changed("area") {
		patch.ResearchArea = &paperArea
	}
	if cmd.Flags().Changed("methodology") {
		patch.Methodology = &paperMethodology
	}
	if patch.Empty() {
		exitWithError(ExitError, "nothing to edit; pass at least one field flag")
	}

	p, err := e.EditPaper(caller(), args[0], patch)
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		outputHuman("Updated paper %s\n", p.ID)
	} else {
		outputJSON(p)
	}
	return nil
}

var paperSubmitCmd = &cobra.Command{
	Use:   "submit <id>",
	Short: "Submit a draft or revision for review",
	Long: `Submit a paper to a venue. Resubmitting after a revision request opens
the next review cycle.

Example:
  peerflow paper submit paper-1 --venue icml-2027`,
	Args: cobra.ExactArgs(1),
	RunE: runPaperSubmit,
}

func runPaperSubmit(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	cfg := mustLoadConfig(repoRoot)
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	venue := paperVenue
	if venue == "" {
		venue = cfg.Venue
	}
	p, err := e.SubmitPaper(caller(), args[0], paper.SubmissionTarget{
		ConferenceRef: venue,
		Track:         paperTrack,
	})
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		outputHuman("Submitted paper %s to %s (cycle %d)\n", p.ID, venue, p.ReviewCycle)
	} else {
		outputJSON(p)
	}
	return nil
}

var paperStartReviewCmd = &cobra.Command{
	Use:   "start-review <id>",
	Short: "Move a submitted paper under review (editors)",
	Args:  cobra.ExactArgs(1),
	RunE:  runPaperStartReview,
}

func runPaperStartReview(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	p, err := e.StartReview(caller(), args[0])
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		outputHuman("Paper %s is under review (cycle %d)\n", p.ID, p.ReviewCycle)
	} else {
		outputJSON(p)
	}
	return nil
}

var paperDecideCmd = &cobra.Command{
	Use:   "decide <id> <accept|reject|request_revisions>",
	Short: "Apply an editorial decision (editors)",
	Args:  cobra.ExactArgs(2),
	RunE:  runPaperDecide,
}

func runPaperDecide(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	p, err := e.Decide(caller(), args[0], paper.Decision(args[1]))
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		outputHuman("Paper %s is now %s\n", p.ID, p.Status)
	} else {
		outputJSON(p)
	}
	return nil
}

var paperPublishCmd = &cobra.Command{
	Use:   "publish <id>",
	Short: "Publish an accepted paper (editors)",
	Args:  cobra.ExactArgs(1),
	RunE:  runPaperPublish,
}

func runPaperPublish(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	p, err := e.Publish(caller(), args[0])
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		outputHuman("Published paper %s\n", p.ID)
	} else {
		outputJSON(p)
	}
	return nil
}

var paperForkCmd = &cobra.Command{
	Use:   "fork <id>",
	Short: "Create the next version of a paper as a fresh draft",
	Long: `Fork a paper into its next version. The parent is left unchanged and
stays queryable; the new draft records the described changes in its log.

Example:
  peerflow paper fork paper-1 --changes "rewrote evaluation section"`,
	Args: cobra.ExactArgs(1),
	RunE: runPaperFork,
}

func runPaperFork(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	child, err := e.ForkPaper(caller(), args[0], paperChanges)
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		outputHuman("Forked %s into %s (version %d)\n", args[0], child.ID, child.Version)
	} else {
		outputJSON(child)
	}
	return nil
}

var paperDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a paper that never entered review",
	Args:  cobra.ExactArgs(1),
	RunE:  runPaperDelete,
}

func runPaperDelete(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	if err := e.DeletePaper(caller(), args[0]); err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		outputHuman("Deleted paper %s\n", args[0])
	} else {
		outputJSON(StatusResponse{Status: "deleted"})
	}
	return nil
}

var paperVersionsCmd = &cobra.Command{
	Use:   "versions <id>",
	Short: "Show a paper's version chain, oldest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runPaperVersions,
}

func runPaperVersions(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	chain, err := e.VersionChain(args[0])
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		for _, p := range chain {
			fmt.Printf("  v%d  %s  %-18s %s\n", p.Version, p.ID, p.Status, formatDate(p.CreatedAt))
		}
	} else {
		outputJSON(chain)
	}
	return nil
}

var paperProgressCmd = &cobra.Command{
	Use:   "progress <id>",
	Short: "Show review progress for the current cycle",
	Args:  cobra.ExactArgs(1),
	RunE:  runPaperProgress,
}

// ProgressResponse reports review completion for the current cycle.
type ProgressResponse struct {
	PaperID   string `json:"paper_id"`
	Completed int    `json:"completed"`
	Total     int    `json:"total"`
}

func runPaperProgress(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	completed, total, err := e.ReviewProgress(args[0])
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		outputHuman("%d of %d reviews completed\n", completed, total)
	} else {
		outputJSON(ProgressResponse{PaperID: args[0], Completed: completed, Total: total})
	}
	return nil
}

var paperViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Record a view of the paper",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPaperCounter(args[0], "view")
	},
}

var paperDownloadCmd = &cobra.Command{
	Use:   "download <id>",
	Short: "Record a download of the paper",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPaperCounter(args[0], "download")
	},
}

func runPaperCounter(id, kind string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	var err error
	if kind == "view" {
		err = e.RecordView(id)
	} else {
		err = e.RecordDownload(id)
	}
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		outputHuman("Recorded %s for paper %s\n", kind, id)
	} else {
		outputJSON(StatusResponse{Status: "recorded"})
	}
	return nil
}
