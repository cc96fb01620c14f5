package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
)

var (
	okStyle      = color.New(color.FgGreen).SprintFunc()
	warnStyle    = color.New(color.FgYellow).SprintFunc()
	deniedStyle  = color.New(color.FgRed).SprintFunc()
	dimStyle     = color.New(color.Faint).SprintFunc()
	headingStyle = color.New(color.Bold).SprintFunc()
)

// structured writes data as JSON or YAML. It reports false for table
// output, which each command renders itself.
func (a *app) structured(w io.Writer, data any) (bool, error) {
	switch a.outputFormat {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(data)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return true, err
		}
		return true, enc.Close()
	}
	return false, nil
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func statusLabel(s domain.ArticleStatus) string {
	switch s {
	case domain.StatusPublished:
		return okStyle(s.String())
	case domain.StatusPending:
		return warnStyle(s.String())
	case domain.StatusRejected:
		return deniedStyle(s.String())
	}
	return s.String()
}

func allowedLabel(ok bool) string {
	if ok {
		return okStyle("allowed")
	}
	return deniedStyle("denied")
}

func printArticles(w io.Writer, articles []domain.Article) error {
	tw := newTable(w)
	fmt.Fprintln(tw, headingStyle("ID\tTITLE\tSTATUS\tAUTHOR\tUPDATED"))
	for _, a := range articles {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			a.ID, truncate(a.Title, 40), statusLabel(a.Status), authorName(a), a.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func printArticle(w io.Writer, a *domain.Article) error {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID:\t%s\n", a.ID)
	fmt.Fprintf(tw, "Title:\t%s\n", a.Title)
	fmt.Fprintf(tw, "Status:\t%s\n", statusLabel(a.Status))
	if a.RejectionReason != "" {
		fmt.Fprintf(tw, "Reason:\t%s\n", a.RejectionReason)
	}
	category := a.CategoryName
	if category == "" {
		category = a.CategoryID
	}
	fmt.Fprintf(tw, "Category:\t%s\n", category)
	fmt.Fprintf(tw, "Author:\t%s\n", authorName(*a))
	if a.CoverImage != "" {
		fmt.Fprintf(tw, "Cover:\t%s\n", a.CoverImage)
	}
	fmt.Fprintf(tw, "Created:\t%s\n", a.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(tw, "Updated:\t%s\n", a.UpdatedAt.Format("2006-01-02 15:04:05"))
	if err := tw.Flush(); err != nil {
		return err
	}
	if a.Content != "" {
		fmt.Fprintf(w, "\n%s\n", a.Content)
	}
	return nil
}

func authorName(a domain.Article) string {
	name := strings.TrimSpace(a.AuthorFirstName + " " + a.AuthorLastName)
	if name == "" {
		return a.AuthorID
	}
	return name
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
