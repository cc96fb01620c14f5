package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ibtissamelhani/induspress/internal/core/domain"
	"github.com/ibtissamelhani/induspress/internal/core/engine"
	"github.com/ibtissamelhani/induspress/internal/core/workflow"
)

// IdentityOutput is the JSON/YAML rendering of the signed-in identity.
type IdentityOutput struct {
	ID        string    `json:"id" yaml:"id"`
	Email     string    `json:"email" yaml:"email"`
	Name      string    `json:"name" yaml:"name"`
	Role      string    `json:"role" yaml:"role"`
	ExpiresAt time.Time `json:"expires_at" yaml:"expires_at"`
}

func identityOutput(id domain.Identity) IdentityOutput {
	return IdentityOutput{
		ID:        id.SubjectID,
		Email:     id.Email,
		Name:      id.FullName(),
		Role:      id.Role.String(),
		ExpiresAt: id.ExpiresAt,
	}
}

func (a *app) loginCmd() *cobra.Command {
	var creds domain.Credentials
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and keep the session",
		Long: `Authenticate against the press API and persist the returned session.

A failed login leaves any previous session in place.

Examples:
  pressctl login --email ada@example.com --password s3cret
  echo s3cret | pressctl login --email ada@example.com --password-stdin`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if passwordStdin {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}
				creds.Password = strings.TrimRight(line, "\r\n")
			}
			id, err := a.engine.Login(cmd.Context(), creds)
			if err != nil {
				return err
			}
			if ok, err := a.structured(cmd.OutOrStdout(), identityOutput(id)); ok {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Signed in as %s (%s)\n", okStyle("✓"), id.FullName(), id.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&creds.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&creds.Password, "password", "", "Account password")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.engine.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}

func (a *app) whoamiCmd() *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in identity",
		Long: `Display the identity of the current session.

With --remote the account is fetched from the press API instead of being
read from the session token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, ok := a.engine.CurrentIdentity(cmd.Context())
			if !ok {
				return domain.ErrNoSession
			}
			if remote {
				u, err := a.engine.Me(cmd.Context())
				if err != nil {
					return err
				}
				id.Email, id.FirstName, id.LastName = u.Email, u.FirstName, u.LastName
			}

			out := identityOutput(id)
			if ok, err := a.structured(cmd.OutOrStdout(), out); ok {
				return err
			}
			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintf(tw, "Name:\t%s\n", out.Name)
			fmt.Fprintf(tw, "Email:\t%s\n", out.Email)
			fmt.Fprintf(tw, "Role:\t%s\n", out.Role)
			fmt.Fprintf(tw, "Expires:\t%s %s\n", out.ExpiresAt.Format(time.RFC3339), dimStyle("("+time.Until(out.ExpiresAt).Round(time.Minute).String()+" left)"))
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "Fetch the account from the API")
	return cmd
}

func (a *app) registerCmd() *cobra.Command {
	var reg domain.Registration
	var role string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account",
		Long: `Create an AUTHOR or EDITOR account. Registration does not sign in.

Examples:
  pressctl register --email ada@example.com --password s3cret1 \
    --first-name Ada --last-name Lovelace --role AUTHOR`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := domain.ParseRole(role)
			if err != nil {
				return &domain.Error{Kind: domain.KindValidation, Op: "register", Err: err}
			}
			reg.Role = r
			u, err := a.engine.Register(cmd.Context(), reg)
			if err != nil {
				return err
			}
			if ok, err := a.structured(cmd.OutOrStdout(), u); ok {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Registered %s as %s\n", okStyle("✓"), u.Email, u.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&reg.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&reg.Password, "password", "", "Account password (at least 6 characters)")
	cmd.Flags().StringVar(&reg.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&reg.LastName, "last-name", "", "Last name")
	cmd.Flags().StringVar(&role, "role", "AUTHOR", "AUTHOR or EDITOR")
	for _, f := range []string{"email", "password", "first-name", "last-name"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func (a *app) canCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "can ACTION [ARTICLE_ID]",
		Short: "Check whether the current session may perform an action",
		Long: `Evaluate a permission locally for the current session.

ACTION is one of CREATE_ARTICLE, EDIT_ARTICLE, DELETE_ARTICLE,
PUBLISH_ARTICLE, REJECT_ARTICLE, VIEW_UNPUBLISHED. Ownership-sensitive
actions take the article id they apply to.

Examples:
  pressctl can CREATE_ARTICLE
  pressctl can EDIT_ARTICLE 64f0c2`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, ok := domain.ParseAction(strings.ToUpper(args[0]))
			if !ok {
				return &domain.Error{Kind: domain.KindValidation, Op: "can", Msg: fmt.Sprintf("unknown action %q", args[0])}
			}

			var resource *domain.Article
			if len(args) == 2 {
				res, err := a.engine.Query(cmd.Context(), workflow.QueryArticle, engine.Params{ID: args[1]})
				if err != nil && !errors.Is(err, domain.ErrPermissionDenied) {
					return err
				}
				if res != nil {
					resource = res.Article
				}
			}

			allowed := a.engine.Can(cmd.Context(), action, resource)
			out := map[string]any{"action": action.String(), "allowed": allowed}
			if ok, err := a.structured(cmd.OutOrStdout(), out); ok {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", action, allowedLabel(allowed))
			return nil
		},
	}
}
