package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	iauth "github.com/charlesng35/issuerelay/internal/auth"
	"github.com/charlesng35/issuerelay/pkg/crypto"
)

func newTokenCommand(opts *options) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin token for the HTTP API",
		Long: `Token signs an admin JWT with auth.jwt.secret. The secret must be configured
explicitly; a secret generated at start-up by "serve" is not visible here.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			defer syncLogger()

			if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
				return errors.New("auth.jwt.secret must be configured")
			}

			jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
			if err != nil {
				return fmt.Errorf("initialise jwt service: %w", err)
			}

			token, expiresAt, err := jwtSvc.GenerateToken(iauth.TokenInput{
				Subject: subject,
				Scopes:  []string{iauth.ScopeAdmin},
				TTL:     ttl,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.UTC().Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&subject, "subject", "admin", "Token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime (defaults to auth.jwt.access_token_ttl)")
	return cmd
}

func newHashPasswordCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password",
		Short: "Read a password from stdin and print its bcrypt hash for auth.admin_password_hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scanner := bufio.NewScanner(cmd.InOrStdin())
			if !scanner.Scan() {
				if err := scanner.Err(); err != nil {
					return fmt.Errorf("read password: %w", err)
				}
				return errors.New("no password provided on stdin")
			}

			password := strings.TrimRight(scanner.Text(), "\r")
			if password == "" {
				return errors.New("password must not be empty")
			}

			hash, err := crypto.HashPassword(password)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hash)
			return err
		},
	}
}
