package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/peerflow/peerflow/internal/fault"
	"github.com/peerflow/peerflow/internal/paper"
	"github.com/peerflow/peerflow/internal/review"
)

// Title truncation lengths by context.
const (
	ListTitleMaxLen   = 50 // Used in list command output
	DetailTitleMaxLen = 70 // Used in detail views
	TextWrapWidth     = 60 // Standard text wrap width
)

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputHuman writes a human-readable string to stdout.
func outputHuman(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// outputError writes an error message to stderr and returns the exit code.
func outputError(code int, format string, args ...interface{}) int {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	return code
}

// exitWithError outputs an error in the appropriate format and exits.
func exitWithError(code int, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", msg)
	} else {
		outputJSON(ErrorResponse{Error: msg})
	}
	os.Exit(code)
}

// exitWithFault outputs a classified error with its kind and exits with the
// matching code.
func exitWithFault(err error) {
	if humanOutput {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
	} else {
		outputJSON(ErrorResponse{Error: err.Error(), Kind: string(fault.KindOf(err))})
	}
	os.Exit(exitCodeFor(err))
}

// StatusResponse is a generic response for commands that return status.
type StatusResponse struct {
	Status string `json:"status"`
	Path   string `json:"path,omitempty"`
}

// ErrorResponse is a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// truncateString truncates a string to maxLen, adding "..." if truncated.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// wrapText wraps text to the specified width with indentation on subsequent lines.
func wrapText(text string, width int, indent string) string {
	if len(text) <= width {
		return text
	}

	var lines []string
	words := strings.Fields(text)
	var currentLine strings.Builder

	for _, word := range words {
		if currentLine.Len() == 0 {
			currentLine.WriteString(word)
		} else if currentLine.Len()+1+len(word) <= width {
			currentLine.WriteString(" ")
			currentLine.WriteString(word)
		} else {
			lines = append(lines, currentLine.String())
			currentLine.Reset()
			currentLine.WriteString(word)
		}
	}
	if currentLine.Len() > 0 {
		lines = append(lines, currentLine.String())
	}

	return strings.Join(lines, "\n"+indent)
}

// formatDate renders a timestamp as a date, or "-" when unset.
func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

// formatPaperAuthors joins author names for list output.
func formatPaperAuthors(authors []paper.Author) string {
	names := make([]string, len(authors))
	for i, a := range authors {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}

// printPaperDetail prints one paper in human-readable format.
func printPaperDetail(p *paper.Paper) {
	fmt.Println(p.ID)
	fmt.Println(strings.Repeat("=", DetailTitleMaxLen))
	fmt.Println()

	fmt.Printf("Title:    %s\n", wrapText(p.Title, TextWrapWidth, "          "))
	fmt.Printf("Status:   %s (version %d, cycle %d)\n", p.Status, p.Version, p.ReviewCycle)
	fmt.Printf("Area:     %s\n", p.ResearchArea)
	if len(p.Authors) > 0 {
		fmt.Printf("Authors:  %s\n", wrapText(formatPaperAuthors(p.Authors), TextWrapWidth, "          "))
	}
	if p.ParentPaperID != "" {
		fmt.Printf("Parent:   %s\n", p.ParentPaperID)
	}
	if p.SupersededByID != "" {
		fmt.Printf("Superseded by: %s\n", p.SupersededByID)
	}
	if p.Submission != nil {
		fmt.Printf("Venue:    %s", p.Submission.ConferenceRef)
		if p.Submission.Track != "" {
			fmt.Printf(" (%s)", p.Submission.Track)
		}
		fmt.Printf(", submitted %s\n", formatDate(p.SubmissionDate))
	}
	fmt.Printf("Metrics:  %d views, %d downloads, %d citations\n",
		p.Metrics.Views, p.Metrics.Downloads, p.Metrics.CitationCount)

	if len(p.AssignedReviewers) > 0 {
		fmt.Println()
		fmt.Println("Reviewers:")
		for _, a := range p.AssignedReviewers {
			name := a.ReviewerID
			if a.IsBlind {
				name += " (blind)"
			}
			fmt.Printf("  cycle %d  %-10s %s  due %s\n", a.Cycle, a.Status, name, formatDate(a.DueDate))
		}
	}
	if p.Abstract != "" {
		fmt.Println()
		fmt.Printf("Abstract: %s\n", wrapText(p.Abstract, TextWrapWidth, "          "))
	}
}

// printReviewDetail prints one review in human-readable format.
func printReviewDetail(r *review.Review) {
	fmt.Printf("%s  (paper %s, cycle %d)\n", r.ID, r.PaperID, r.Cycle)
	fmt.Printf("Reviewer: %s\n", r.ReviewerID)
	fmt.Printf("Status:   %s, due %s\n", r.Status, formatDate(r.DueDate))
	if r.AverageRating > 0 {
		fmt.Printf("Rating:   %.1f average\n", r.AverageRating)
	}
	if r.Recommendation != nil {
		fmt.Printf("Verdict:  %s (confidence %d)\n", r.Recommendation.Decision, r.Recommendation.Confidence)
	}
	if r.ReviewText != "" {
		fmt.Printf("Summary:  %s\n", wrapText(r.ReviewText, TextWrapWidth, "          "))
	}
	for _, c := range r.Comments {
		loc := c.Section
		if c.PageNumber > 0 {
			loc = fmt.Sprintf("%s p.%d", c.Section, c.PageNumber)
		}
		fmt.Printf("  [%s] %s\n", loc, c.Text)
	}
}
