package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/redmonkez12/account-service/cmd/accountctl/ui"
	"github.com/redmonkez12/account-service/internal/auth"
	"github.com/redmonkez12/account-service/internal/config"
	"github.com/redmonkez12/account-service/internal/database"
	"github.com/redmonkez12/account-service/internal/password"
	"github.com/redmonkez12/account-service/internal/token"
)

// deps are the side effects the commands need, swapped out in tests.
type deps struct {
	openDB         func() (*sql.DB, string, error)
	loadTokens     func() (*token.Service, error)
	hasher         *password.Hasher
	isTerminal     func() bool
	promptPassword func(validate func(string) error) (string, error)
}

func defaultDeps() deps {
	return deps{
		openDB: func() (*sql.DB, string, error) {
			cfg := config.LoadDatabase()
			db, err := database.Open(cfg.ConnectionString(), database.PoolConfig{MaxOpenConns: 1, MaxIdleConns: 1})
			return db, database.DialectPostgres, err
		},
		loadTokens: func() (*token.Service, error) {
			cfg, err := config.Load()
			if err != nil {
				return nil, err
			}
			return token.NewService(cfg.Auth.SecretKey, cfg.Auth.Algorithm)
		},
		hasher:         password.NewHasher(password.DefaultParams),
		isTerminal:     func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
		promptPassword: ui.PromptPassword,
	}
}

func newRootCmd(d deps) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "accountctl",
		Short:         "Operate the account service",
		Long:          "Admin tooling for the account service: schema migrations, password digests and bearer tokens.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newMigrateCmd(d),
		newHashPasswordCmd(d),
		newIssueTokenCmd(d),
		newVerifyTokenCmd(d),
	)

	return rootCmd
}

func newMigrateCmd(d deps) *cobra.Command {
	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the database schema",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, d, func(ctx context.Context, db *sql.DB, dialect string) error {
				if err := database.Migrate(ctx, db, dialect); err != nil {
					return err
				}
				version, err := database.Version(ctx, db, dialect)
				if err != nil {
					return err
				}
				ui.PrintSuccess(cmd.OutOrStdout(), fmt.Sprintf("schema at version %d", version))
				return nil
			})
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the schema version and every migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withDB(cmd, d, func(ctx context.Context, db *sql.DB, dialect string) error {
				version, err := database.Version(ctx, db, dialect)
				if err != nil {
					return err
				}
				states, err := database.MigrationStatus(ctx, db, dialect)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				ui.PrintTitle(out, "Database schema")
				ui.PrintField(out, "version", fmt.Sprint(version))
				for _, m := range states {
					state := "pending"
					if m.Applied {
						state = "applied " + m.AppliedAt.UTC().Format(time.RFC3339)
					}
					ui.PrintField(out, m.Name, state)
				}
				return nil
			})
		},
	}

	migrateCmd.AddCommand(upCmd, statusCmd)
	return migrateCmd
}

func withDB(cmd *cobra.Command, d deps, fn func(ctx context.Context, db *sql.DB, dialect string) error) error {
	db, dialect, err := d.openDB()
	if err != nil {
		return fail(cmd, fmt.Errorf("open database: %w", err))
	}
	defer db.Close()

	if err := fn(cmd.Context(), db, dialect); err != nil {
		return fail(cmd, err)
	}
	return nil
}

func newHashPasswordCmd(d deps) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Print an argon2id digest for a password",
		Long:  "Prompts for a password when run in a terminal, otherwise reads one line from stdin.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				pw  string
				err error
			)
			if d.isTerminal() {
				pw, err = d.promptPassword(auth.ValidatePassword)
			} else {
				pw, err = readLine(cmd.InOrStdin())
				if err == nil {
					err = auth.ValidatePassword(pw)
				}
			}
			if err != nil {
				return fail(cmd, err)
			}

			digest, err := d.hasher.Hash(pw)
			if err != nil {
				return fail(cmd, err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), digest)
			return nil
		},
	}
}

func newIssueTokenCmd(d deps) *cobra.Command {
	issueCmd := &cobra.Command{
		Use:   "issue-token",
		Short: "Issue a bearer token for an account email",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			ttl, _ := cmd.Flags().GetDuration("ttl")

			tokens, err := d.loadTokens()
			if err != nil {
				return fail(cmd, err)
			}

			tok, err := tokens.Issue(subject, ttl)
			if err != nil {
				return fail(cmd, err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	issueCmd.Flags().String("subject", "", "Account email placed in the token subject")
	issueCmd.Flags().Duration("ttl", 30*time.Minute, "Token lifetime")
	_ = issueCmd.MarkFlagRequired("subject")

	return issueCmd
}

func newVerifyTokenCmd(d deps) *cobra.Command {
	return &cobra.Command{
		Use:   "verify-token TOKEN",
		Short: "Verify a bearer token and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := d.loadTokens()
			if err != nil {
				return fail(cmd, err)
			}

			claims, err := tokens.Parse(strings.TrimSpace(args[0]))
			if err != nil {
				return fail(cmd, err)
			}

			out := cmd.OutOrStdout()
			ui.PrintSuccess(out, "token is valid")
			ui.PrintField(out, "subject", claims.Subject)
			ui.PrintField(out, "issued", claims.IssuedAt.UTC().Format(time.RFC3339))
			ui.PrintField(out, "expires", claims.ExpiresAt.UTC().Format(time.RFC3339))
			ui.PrintField(out, "algorithm", tokens.Algorithm())
			return nil
		},
	}
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// fail prints err in the error style and returns it for the exit code.
func fail(cmd *cobra.Command, err error) error {
	ui.PrintError(cmd.ErrOrStderr(), err.Error())
	return err
}
