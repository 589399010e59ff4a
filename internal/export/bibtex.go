// Package export renders citations to BibTeX and maintains .bib files.
package export

import (
	"fmt"
	"strings"

	"github.com/peerflow/peerflow/internal/citation"
)

// entryTypes maps citation types to BibTeX entry types.
var entryTypes = map[citation.Type]string{
	citation.TypeJournalArticle: "article",
	citation.TypeConference:     "inproceedings",
	citation.TypePreprint:       "article",
	citation.TypeBook:           "book",
	citation.TypeOther:          "misc",
}

// ToBibTeX converts one citation to a BibTeX entry. The citation id is used
// as the citation key.
func ToBibTeX(c *citation.Citation) string {
	entryType, ok := entryTypes[c.Type]
	if !ok {
		entryType = "misc"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("@%s{%s,\n", entryType, c.ID))

	if len(c.Authors) > 0 {
		b.WriteString(fmt.Sprintf("  author = {%s},\n", strings.Join(c.Authors, " and ")))
	}
	b.WriteString(fmt.Sprintf("  title = {%s},\n", escapeLatex(c.Title)))
	if c.PublicationYear > 0 {
		b.WriteString(fmt.Sprintf("  year = {%d},\n", c.PublicationYear))
	}
	if c.Identifiers.DOI != "" {
		b.WriteString(fmt.Sprintf("  doi = {%s},\n", c.Identifiers.DOI))
	}
	if c.Identifiers.ArxivID != "" {
		b.WriteString(fmt.Sprintf("  eprint = {%s},\n", c.Identifiers.ArxivID))
		b.WriteString("  archiveprefix = {arXiv},\n")
	}

	b.WriteString("}\n")
	return b.String()
}

// ToBibTeXList converts multiple citations to BibTeX entries separated by
// blank lines.
func ToBibTeXList(citations []*citation.Citation) string {
	var entries []string
	for _, c := range citations {
		entries = append(entries, ToBibTeX(c))
	}
	return strings.Join(entries, "\n")
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	replacer := strings.NewReplacer(
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
