package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/peerflow/peerflow/internal/citation"
)

func TestToBibTeX_JournalArticle(t *testing.T) {
	c := &citation.Citation{
		ID:              "cite-001",
		Type:            citation.TypeJournalArticle,
		Title:           "Test Paper Title",
		Authors:         []string{"Smith, John", "Doe, Jane"},
		PublicationYear: 2026,
		Identifiers:     citation.Identifiers{DOI: "10.1234/test"},
	}

	got := ToBibTeX(c)

	if !strings.HasPrefix(got, "@article{cite-001,") {
		t.Errorf("ToBibTeX() should start with @article{cite-001, got:\n%s", got)
	}
	if !strings.Contains(got, `author = {Smith, John and Doe, Jane}`) {
		t.Errorf("ToBibTeX() should contain joined authors, got:\n%s", got)
	}
	if !strings.Contains(got, `title = {Test Paper Title}`) {
		t.Errorf("ToBibTeX() should contain title, got:\n%s", got)
	}
	if !strings.Contains(got, `year = {2026}`) {
		t.Errorf("ToBibTeX() should contain year, got:\n%s", got)
	}
	if !strings.Contains(got, `doi = {10.1234/test}`) {
		t.Errorf("ToBibTeX() should contain DOI, got:\n%s", got)
	}
	if !strings.HasSuffix(strings.TrimSpace(got), "}") {
		t.Errorf("ToBibTeX() should end with }, got:\n%s", got)
	}
}

func TestToBibTeX_EntryTypes(t *testing.T) {
	tests := []struct {
		ctype citation.Type
		want  string
	}{
		{citation.TypeJournalArticle, "@article{"},
		{citation.TypeConference, "@inproceedings{"},
		{citation.TypePreprint, "@article{"},
		{citation.TypeBook, "@book{"},
		{citation.TypeOther, "@misc{"},
		{citation.Type("unclassified"), "@misc{"},
	}

	for _, tt := range tests {
		t.Run(string(tt.ctype), func(t *testing.T) {
			c := &citation.Citation{ID: "x", Type: tt.ctype, Title: "T"}
			got := ToBibTeX(c)
			if !strings.HasPrefix(got, tt.want) {
				t.Errorf("ToBibTeX(%s) = %q, want prefix %q", tt.ctype, got, tt.want)
			}
		})
	}
}

func TestToBibTeX_ArxivPreprint(t *testing.T) {
	c := &citation.Citation{
		ID:          "cite-arxiv",
		Type:        citation.TypePreprint,
		Title:       "A Preprint",
		Identifiers: citation.Identifiers{ArxivID: "2301.00001"},
	}

	got := ToBibTeX(c)

	if !strings.Contains(got, `eprint = {2301.00001}`) {
		t.Errorf("ToBibTeX() should carry the arXiv id as eprint, got:\n%s", got)
	}
	if !strings.Contains(got, `archiveprefix = {arXiv}`) {
		t.Errorf("ToBibTeX() should mark the archive prefix, got:\n%s", got)
	}
}

func TestToBibTeX_OptionalFields(t *testing.T) {
	c := &citation.Citation{
		ID:    "minimal",
		Type:  citation.TypeOther,
		Title: "Minimal Entry",
	}

	got := ToBibTeX(c)

	if strings.Contains(got, "author = ") {
		t.Errorf("ToBibTeX() should not include empty authors, got:\n%s", got)
	}
	if strings.Contains(got, "doi = ") {
		t.Errorf("ToBibTeX() should not include empty DOI, got:\n%s", got)
	}
	if strings.Contains(got, "year = ") {
		t.Errorf("ToBibTeX() should not include zero year, got:\n%s", got)
	}
}

func TestEscapeLatex(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"plain text", "plain text"},
		{"100% effective", `100\% effective`},
		{"A & B", `A \& B`},
		{"$100 price", `\$100 price`},
		{"section #1", `section \#1`},
		{"under_score", `under\_score`},
		{"{braces}", `\{braces\}`},
		{"test~tilde", `test\textasciitilde{}tilde`},
		{"x^2", `x\textasciicircum{}2`},
		{"A & B: $100 for {item} #1", `A \& B: \$100 for \{item\} \#1`},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := escapeLatex(tt.input)
			if got != tt.want {
				t.Errorf("escapeLatex(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestToBibTeXList(t *testing.T) {
	citations := []*citation.Citation{
		{ID: "first", Type: citation.TypeJournalArticle, Title: "First Paper"},
		{ID: "second", Type: citation.TypeJournalArticle, Title: "Second Paper"},
	}

	got := ToBibTeXList(citations)

	if !strings.Contains(got, "@article{first,") {
		t.Errorf("ToBibTeXList() should contain first entry, got:\n%s", got)
	}
	if !strings.Contains(got, "@article{second,") {
		t.Errorf("ToBibTeXList() should contain second entry, got:\n%s", got)
	}

	parts := strings.Split(got, "@article{")
	if len(parts) != 3 { // Empty first part + 2 entries
		t.Errorf("ToBibTeXList() should have 2 entries separated properly, got %d parts", len(parts)-1)
	}
}

func TestToBibTeXList_Empty(t *testing.T) {
	got := ToBibTeXList(nil)
	if got != "" {
		t.Errorf("ToBibTeXList(nil) should return empty string, got: %q", got)
	}
}

func TestParseBibTeXFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "refs.bib")
	content := `@article{known2026,
  title = {Known Work},
  doi = {https://doi.org/10.5555/KNOWN},
}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	idx, err := ParseBibTeXFile(path)
	if err != nil {
		t.Fatalf("ParseBibTeXFile: %v", err)
	}

	if !idx.HasEntry("known2026", "") {
		t.Error("HasEntry by key = false, want true")
	}
	// DOI matching is normalized: resolver prefix stripped, lowercased.
	if !idx.HasEntry("other-key", "10.5555/known") {
		t.Error("HasEntry by normalized DOI = false, want true")
	}
	if idx.HasEntry("missing", "10.5555/other") {
		t.Error("HasEntry for unknown entry = true, want false")
	}
}

func TestParseBibTeXFile_Missing(t *testing.T) {
	idx, err := ParseBibTeXFile(filepath.Join(t.TempDir(), "absent.bib"))
	if err != nil {
		t.Fatalf("ParseBibTeXFile: %v", err)
	}
	if len(idx.Keys) != 0 || len(idx.DOIs) != 0 {
		t.Error("missing file should yield an empty index")
	}
}

func TestAppendToBibFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.bib")

	if err := AppendToBibFile(path, "@misc{a,\n}\n"); err != nil {
		t.Fatalf("AppendToBibFile: %v", err)
	}
	if err := AppendToBibFile(path, "@misc{b,\n}\n"); err != nil {
		t.Fatalf("AppendToBibFile: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "@misc{a,") || !strings.Contains(string(data), "@misc{b,") {
		t.Errorf("appended file missing entries:\n%s", data)
	}
}
