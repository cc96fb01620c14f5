package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
	"github.com/ibtissamelhani/induspress/internal/core/engine"
	"github.com/ibtissamelhani/induspress/internal/core/workflow"
)

func (a *app) articlesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "articles",
		Aliases: []string{"article", "a"},
		Short:   "List, write and moderate articles",
	}
	cmd.AddCommand(
		a.articlesListCmd(),
		a.articlesGetCmd(),
		a.articlesCreateCmd(),
		a.articlesEditCmd(),
		a.articlesDeleteCmd(),
		a.articlesTransitionCmd(domain.MutationPublish),
		a.articlesTransitionCmd(domain.MutationReject),
	)
	return cmd
}

func (a *app) articlesListCmd() *cobra.Command {
	var scope string
	var page, size int
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List articles",
		Long: `List one page of articles.

Scopes:
  published  published articles (default, no sign-in needed)
  mine       your own articles in any status
  all        every article in any status (editors only)

Examples:
  pressctl articles list
  pressctl articles list --scope mine --page 1
  pressctl articles list --scope all --all-pages -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, ok := workflow.ParseQueryKind(scope)
			if !ok || !kind.Listing() {
				return &domain.Error{Kind: domain.KindValidation, Op: "list articles", Msg: fmt.Sprintf("unknown scope %q", scope)}
			}

			if all {
				items, err := a.collect(cmd, kind, size)
				if err != nil {
					return err
				}
				if ok, err := a.structured(cmd.OutOrStdout(), items); ok {
					return err
				}
				return printArticles(cmd.OutOrStdout(), items)
			}

			res, err := a.engine.Query(cmd.Context(), kind, engine.Params{Page: page, Size: size})
			if err != nil {
				return err
			}
			if ok, err := a.structured(cmd.OutOrStdout(), res.Page); ok {
				return err
			}
			if err := printArticles(cmd.OutOrStdout(), res.Page.Content); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dimStyle(fmt.Sprintf("page %d of %d, %d articles", res.Page.Number+1, max(res.Page.TotalPages, 1), res.Page.TotalElements)))
			return nil
		},
	}
	cmd.Flags().StringVar(&scope, "scope", "published", "published, mine or all")
	cmd.Flags().IntVar(&page, "page", 0, "Zero-based page number")
	cmd.Flags().IntVar(&size, "size", workflow.DefaultPageSize, "Page size")
	cmd.Flags().BoolVar(&all, "all-pages", false, "Walk every page")
	return cmd
}

// collect walks every page of kind.
func (a *app) collect(cmd *cobra.Command, kind workflow.QueryKind, size int) ([]domain.Article, error) {
	pager := a.engine.Pages(kind, size)
	items := []domain.Article{}
	for {
		p, err := pager.Next(cmd.Context())
		if errors.Is(err, workflow.ErrNoMorePages) {
			return items, nil
		}
		if err != nil {
			return nil, err
		}
		items = append(items, p.Content...)
	}
}

func (a *app) articlesGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.engine.Query(cmd.Context(), workflow.QueryArticle, engine.Params{ID: args[0]})
			if err != nil {
				return err
			}
			if ok, err := a.structured(cmd.OutOrStdout(), res.Article); ok {
				return err
			}
			return printArticle(cmd.OutOrStdout(), res.Article)
		},
	}
}

// draftFlags collects a draft from flags or a YAML file. Flags override
// the file field by field.
type draftFlags struct {
	file  string
	draft domain.Draft
}

func (d *draftFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&d.file, "file", "f", "", "Read the draft from a YAML file")
	cmd.Flags().StringVar(&d.draft.Title, "title", "", "Title (at least 5 characters)")
	cmd.Flags().StringVar(&d.draft.Content, "content", "", "Content (at least 50 characters)")
	cmd.Flags().StringVar(&d.draft.CategoryID, "category", "", "Category id")
	cmd.Flags().StringVar(&d.draft.CoverImage, "cover", "", "Cover image URL")
}

func (d *draftFlags) load(cmd *cobra.Command) (domain.Draft, error) {
	var out domain.Draft
	if d.file != "" {
		raw, err := os.ReadFile(d.file)
		if err != nil {
			return out, fmt.Errorf("read draft: %w", err)
		}
		if err := yaml.Unmarshal(raw, &out); err != nil {
			return out, &domain.Error{Kind: domain.KindValidation, Op: "read draft", Err: err}
		}
	}
	set := func(name string, dst *string, v string) {
		if cmd.Flags().Changed(name) {
			*dst = v
		}
	}
	set("title", &out.Title, d.draft.Title)
	set("content", &out.Content, d.draft.Content)
	set("category", &out.CategoryID, d.draft.CategoryID)
	set("cover", &out.CoverImage, d.draft.CoverImage)
	// The workflow decides the status.
	out.Status = ""
	return out, nil
}

func (a *app) articlesCreateCmd() *cobra.Command {
	var df draftFlags

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Submit a new article for review",
		Long: `Submit a new article. Articles by authors always start PENDING.

Examples:
  pressctl articles create --title "Plant tour" --category tech --content "..."
  pressctl articles create -f draft.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			draft, err := df.load(cmd)
			if err != nil {
				return err
			}
			art, err := a.engine.Dispatch(cmd.Context(), engine.Command{Kind: domain.MutationCreate, Draft: draft})
			if err != nil {
				return err
			}
			return a.printMutation(cmd, "Submitted", art)
		},
	}
	df.register(cmd)
	return cmd
}

func (a *app) articlesEditCmd() *cobra.Command {
	var df draftFlags
	var since string

	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Revise an article",
		Long: `Replace the content of an article. Unset fields keep their current value.

An author's edit of a rejected article sends it back to review.
With --if-unmodified-since the edit fails if the article changed after
the given instant.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cur, err := a.engine.Query(cmd.Context(), workflow.QueryArticle, engine.Params{ID: args[0]})
			if err != nil {
				return err
			}
			patch, err := df.load(cmd)
			if err != nil {
				return err
			}
			draft := merge(cur.Article, patch)

			var expected time.Time
			if since != "" {
				expected, err = time.Parse(time.RFC3339, since)
				if err != nil {
					return &domain.Error{Kind: domain.KindValidation, Op: "edit article", Msg: "--if-unmodified-since must be RFC 3339"}
				}
			}

			art, err := a.engine.Dispatch(cmd.Context(), engine.Command{
				Kind:            domain.MutationEdit,
				ID:              args[0],
				Draft:           draft,
				ExpectedUpdated: expected,
			})
			if err != nil {
				return err
			}
			return a.printMutation(cmd, "Updated", art)
		},
	}
	df.register(cmd)
	cmd.Flags().StringVar(&since, "if-unmodified-since", "", "Fail if the article was updated after this RFC 3339 instant")
	return cmd
}

// merge overlays the non-empty fields of patch on the current article.
func merge(cur *domain.Article, patch domain.Draft) domain.Draft {
	d := domain.Draft{
		Title:      cur.Title,
		Content:    cur.Content,
		CategoryID: cur.CategoryID,
		CoverImage: cur.CoverImage,
	}
	if patch.Title != "" {
		d.Title = patch.Title
	}
	if patch.Content != "" {
		d.Content = patch.Content
	}
	if patch.CategoryID != "" {
		d.CategoryID = patch.CategoryID
	}
	if patch.CoverImage != "" {
		d.CoverImage = patch.CoverImage
	}
	return d
}

func (a *app) articlesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete an article",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			art, err := a.engine.Dispatch(cmd.Context(), engine.Command{Kind: domain.MutationDelete, ID: args[0]})
			if err != nil {
				return err
			}
			return a.printMutation(cmd, "Deleted", art)
		},
	}
}

func (a *app) articlesTransitionCmd(kind domain.MutationKind) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:  kind.String() + " ID",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			art, err := a.engine.Dispatch(cmd.Context(), engine.Command{Kind: kind, ID: args[0], Reason: reason})
			if err != nil {
				return err
			}
			verb := "Published"
			if kind == domain.MutationReject {
				verb = "Rejected"
			}
			return a.printMutation(cmd, verb, art)
		},
	}
	switch kind {
	case domain.MutationPublish:
		cmd.Short = "Publish a pending article (editors only)"
	case domain.MutationReject:
		cmd.Short = "Reject a pending article with a reason (editors only)"
		cmd.Flags().StringVar(&reason, "reason", "", "Why the article is rejected")
		_ = cmd.MarkFlagRequired("reason")
	}
	return cmd
}

func (a *app) printMutation(cmd *cobra.Command, verb string, art *domain.Article) error {
	if ok, err := a.structured(cmd.OutOrStdout(), art); ok {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s [%s]\n", okStyle("✓"), verb, art.ID, statusLabel(art.Status))
	return nil
}
