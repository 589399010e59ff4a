package main

import (
	"fmt"

	"github.com/peerflow/peerflow/internal/citation"
	"github.com/spf13/cobra"
)

var (
	citeTitle    string
	citeType     string
	citeAuthors  []string
	citeYear     int
	citeDOI      string
	citeArxiv    string
	citeCount    int
	citeVerified bool
	citeFullText bool

	linkContext   string
	linkRelevance string
)

func init() {
	citationAddCmd.Flags().StringVar(&citeTitle, "title", "", "Cited work title (required)")
	citationAddCmd.Flags().StringVar(&citeType, "type", string(citation.TypeOther), "journal_article|conference_paper|preprint|book|other")
	citationAddCmd.Flags().StringArrayVar(&citeAuthors, "author", nil, "Author name (repeatable)")
	citationAddCmd.Flags().IntVar(&citeYear, "year", 0, "Publication year")
	citationAddCmd.Flags().StringVar(&citeDOI, "doi", "", "DOI (unique across citations)")
	citationAddCmd.Flags().StringVar(&citeArxiv, "arxiv", "", "arXiv id (unique across citations)")
	citationAddCmd.Flags().IntVar(&citeCount, "citations", 0, "Total citation count of the cited work")
	citationAddCmd.Flags().BoolVar(&citeVerified, "verified", false, "Citation metadata is verified")
	citationAddCmd.Flags().BoolVar(&citeFullText, "full-text", false, "Full text is available")
	citationAddCmd.MarkFlagRequired("title")

	citationVerifyCmd.Flags().BoolVar(&citeVerified, "verified", true, "Citation metadata is verified")
	citationVerifyCmd.Flags().BoolVar(&citeFullText, "full-text", false, "Full text is available")

	citationLinkCmd.Flags().StringVar(&linkContext, "context", "", "Where in the paper the work is cited")
	citationLinkCmd.Flags().StringVar(&linkRelevance, "relevance", "", "Why the work is cited")

	citationCmd.AddCommand(citationAddCmd, citationGetCmd, citationLinkCmd,
		citationVerifyCmd, citationListCmd)
	rootCmd.AddCommand(citationCmd)
	rootCmd.AddCommand(hindexCmd)
}

var citationCmd = &cobra.Command{
	Use:   "citation",
	Short: "Manage citations and their links to papers",
}

var citationAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a citation",
	Long: `Create a citation. DOI and arXiv identifiers are normalized and must
be unique across all citations; a duplicate fails with the id of the
conflict rather than creating a second record.

Example:
  peerflow citation add --as alice --title "Prior Work" --doi 10.1000/xyz --year 2024`,
	Args: cobra.NoArgs,
	RunE: runCitationAdd,
}

func runCitationAdd(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	c, err := e.CreateCitation(caller(), &citation.Citation{
		Type:            citation.Type(citeType),
		Title:           citeTitle,
		Authors:         citeAuthors,
		PublicationYear: citeYear,
		Identifiers:     citation.Identifiers{DOI: citeDOI, ArxivID: citeArxiv},
		Metrics:         citation.Metrics{TotalCitations: citeCount},
		Quality:         citation.Quality{IsVerified: citeVerified, HasFullText: citeFullText},
	})
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		outputHuman("Created citation %s (quality %.1f)\n", c.ID, c.Quality.QualityScore)
	} else {
		outputJSON(c)
	}
	return nil
}

var citationGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Get a single citation by id",
	Args:  cobra.ExactArgs(1),
	RunE:  runCitationGet,
}

func runCitationGet(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	c, err := e.GetCitation(args[0])
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		printCitationDetail(c)
	} else {
		outputJSON(c)
	}
	return nil
}

var citationLinkCmd = &cobra.Command{
	Use:   "link <citation-id> <paper-id>",
	Short: "Link a citation to a paper",
	Long: `Link a citation to a paper. The paper's citation count is refreshed in
the same transaction. Linking the same pair twice fails without changing
the count.

Example:
  peerflow citation link cite-1 paper-1 --as alice --context "section 2"`,
	Args: cobra.ExactArgs(2),
	RunE: runCitationLink,
}

func runCitationLink(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	link, err := e.LinkCitation(caller(), args[0], args[1], linkContext, linkRelevance)
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		outputHuman("Linked citation %s to paper %s\n", link.CitationID, link.PaperID)
	} else {
		outputJSON(link)
	}
	return nil
}

var citationVerifyCmd = &cobra.Command{
	Use:   "verify <id>",
	Short: "Set verification flags and recompute quality (editors)",
	Args:  cobra.ExactArgs(1),
	RunE:  runCitationVerify,
}

func runCitationVerify(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	c, err := e.UpdateCitationQuality(caller(), args[0], citeVerified, citeFullText)
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		outputHuman("Citation %s quality is now %.1f\n", c.ID, c.Quality.QualityScore)
	} else {
		outputJSON(c)
	}
	return nil
}

var citationListCmd = &cobra.Command{
	Use:   "list <paper-id>",
	Short: "List citations linked to a paper",
	Args:  cobra.ExactArgs(1),
	RunE:  runCitationList,
}

func runCitationList(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	citations, err := e.ListCitationsForPaper(args[0])
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		for _, c := range citations {
			fmt.Printf("  %s  %s\n", c.ID, truncateString(c.Title, ListTitleMaxLen))
		}
		fmt.Printf("%d citation(s)\n", len(citations))
	} else {
		outputJSON(citations)
	}
	return nil
}

var hindexCmd = &cobra.Command{
	Use:   "hindex <author-id>",
	Short: "Compute an author's h-index from linked citations",
	Long: `Compute the author's h-index: the largest h such that at least h of
their papers have h or more linked citations each.`,
	Args: cobra.ExactArgs(1),
	RunE: runHIndex,
}

// HIndexResponse reports an author's h-index.
type HIndexResponse struct {
	AuthorID string `json:"author_id"`
	HIndex   int    `json:"h_index"`
}

func runHIndex(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	h, err := e.HIndexForAuthor(args[0])
	if err != nil {
		exitWithFault(err)
	}

	if humanOutput {
		outputHuman("h-index for %s: %d\n", args[0], h)
	} else {
		outputJSON(HIndexResponse{AuthorID: args[0], HIndex: h})
	}
	return nil
}

func printCitationDetail(c *citation.Citation) {
	fmt.Printf("%s  %s\n", c.ID, c.Type)
	fmt.Printf("Title:    %s\n", wrapText(c.Title, TextWrapWidth, "          "))
	if len(c.Authors) > 0 {
		fmt.Printf("Authors:  %s\n", wrapText(fmt.Sprint(c.Authors), TextWrapWidth, "          "))
	}
	if c.PublicationYear > 0 {
		fmt.Printf("Year:     %d\n", c.PublicationYear)
	}
	if c.Identifiers.DOI != "" {
		fmt.Printf("DOI:      %s\n", c.Identifiers.DOI)
	}
	if c.Identifiers.ArxivID != "" {
		fmt.Printf("arXiv:    %s\n", c.Identifiers.ArxivID)
	}
	fmt.Printf("Quality:  %.1f (verified=%v, full text=%v)\n",
		c.Quality.QualityScore, c.Quality.IsVerified, c.Quality.HasFullText)
	if len(c.PaperIDs) > 0 {
		fmt.Printf("Papers:   %v\n", c.PaperIDs)
	}
}
