package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/nerrad567/notice-client/internal/auth"
	"github.com/nerrad567/notice-client/internal/infrastructure/config"
)

var (
	tokenSubject string
	tokenRole    string
	tokenSecret  string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for the HTTP API",
	Long: `Mint a bearer token for the daemon's HTTP API.

The token is signed with security.api_secret from the settings file unless
--secret is given. Viewers may read state and watch events; operators may also
change the client record and connect or disconnect.`,
	Example: `  noticed token --subject tray --role viewer
  noticed token --subject ui --role operator --ttl 24h`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		token, err := mintToken(cfg, tokenSubject, auth.Role(tokenRole), tokenSecret, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	f := tokenCmd.Flags()
	f.StringVar(&tokenSubject, "subject", "", "Token subject, e.g. the front-end name (required)")
	f.StringVar(&tokenRole, "role", string(auth.RoleViewer), "Role: viewer or operator")
	f.StringVar(&tokenSecret, "secret", "", "Signing secret (defaults to security.api_secret)")
	f.DurationVar(&tokenTTL, "ttl", 0, "Token lifetime (defaults to security.token_ttl)")

	rootCmd.AddCommand(tokenCmd)
}

// mintToken applies the settings-file fallbacks and signs the token.
func mintToken(cfg *config.Config, subject string, role auth.Role, secret string, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("--subject is required")
	}
	if secret == "" {
		secret = cfg.Security.APISecret
	}
	if ttl <= 0 {
		ttl = time.Duration(cfg.Security.TokenTTL) * time.Minute
	}

	return auth.GenerateToken(subject, role, secret, ttl)
}
