package main

import (
	"github.com/peerflow/peerflow/internal/citation"
	"github.com/peerflow/peerflow/internal/export"
	"github.com/spf13/cobra"
)

var exportOutput string

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Append entries to this .bib file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}

var exportCmd = &cobra.Command{
	Use:   "export <paper-id>",
	Short: "Export a paper's linked citations as BibTeX",
	Long: `Export the citations linked to a paper as BibTeX entries.

With --output, entries are appended to the file; entries already present
(matched by DOI, falling back to citation key) are skipped.

Examples:
  peerflow export paper-1
  peerflow export paper-1 -o refs.bib`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

// ExportResponse reports the outcome of a BibTeX export.
type ExportResponse struct {
	Path     string `json:"path"`
	Exported int    `json:"exported"`
	Skipped  int    `json:"skipped"`
}

func runExport(cmd *cobra.Command, args []string) error {
	repoRoot := mustFindRepository()
	e, db := mustOpenEngine(repoRoot)
	defer db.Close()

	citations, err := e.ListCitationsForPaper(args[0])
	if err != nil {
		exitWithFault(err)
	}

	if exportOutput == "" {
		outputHuman("%s", export.ToBibTeXList(citations))
		return nil
	}

	idx, err := export.ParseBibTeXFile(exportOutput)
	if err != nil {
		exitWithError(ExitError, "reading %s: %v", exportOutput, err)
	}

	var fresh []*citation.Citation
	skipped := 0
	for _, c := range citations {
		if idx.HasEntry(c.ID, c.Identifiers.DOI) {
			skipped++
			continue
		}
		fresh = append(fresh, c)
	}
	if len(fresh) > 0 {
		if err := export.AppendToBibFile(exportOutput, export.ToBibTeXList(fresh)); err != nil {
			exitWithError(ExitError, "writing %s: %v", exportOutput, err)
		}
	}

	if humanOutput {
		outputHuman("Exported %d entr(ies) to %s, skipped %d duplicate(s)\n",
			len(fresh), exportOutput, skipped)
	} else {
		outputJSON(ExportResponse{Path: exportOutput, Exported: len(fresh), Skipped: skipped})
	}
	return nil
}
