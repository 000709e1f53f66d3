package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mycelian/servicenow-mcp/internal/auth"
	"github.com/mycelian/servicenow-mcp/internal/config"
	"github.com/mycelian/servicenow-mcp/internal/logger"
	"github.com/mycelian/servicenow-mcp/mcp"
)

var version = "dev"

func main() {
	if err := NewRootCmd().Execute(); err != nil {
		log.Error().Err(err).Msg("command failed")
		os.Exit(1)
	}
}

// NewRootCmd constructs the root CLI command; exposed for unit testing.
func NewRootCmd() *cobra.Command {
	var logLevel, transport, httpAddr string

	serve := func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.New()
		if err != nil {
			logger.Init("servicenow-mcp", "info", "json")
			log.Error().Err(err).Msg("Invalid configuration")
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}
		if cmd.Flags().Changed("transport") {
			cfg.Transport = transport
		}
		if cmd.Flags().Changed("http-addr") {
			cfg.HTTPAddr = httpAddr
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger.Init(cfg.ServerName, cfg.LogLevel, cfg.LogFormat)
		return mcp.RunMCPServer(cmd.Context(), cfg)
	}

	rootCmd := &cobra.Command{
		Use:           "servicenow-mcp-server",
		Short:         "MCP server answering questions from the ServiceNow knowledge base",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve,
	}
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	rootCmd.PersistentFlags().StringVar(&transport, "transport", "auto", "Transport: auto|stdio|http")
	rootCmd.PersistentFlags().StringVar(&httpAddr, "http-addr", ":11546", "Listen address for the HTTP transport")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server (default)",
		RunE:  serve,
	})
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func newTokenCmd() *cobra.Command {
	var (
		userID, username, roles, secret, alg string
		ttl                                  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a signed session token for testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return fmt.Errorf("a signing secret is required (--secret or JWT_SECRET_KEY)")
			}
			if userID == "" {
				return fmt.Errorf("--user-id is required")
			}
			if username == "" {
				username = userID
			}
			tok, err := auth.IssueToken(secret, alg, userID, username, splitRoles(roles), time.Now(), ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), tok)
			return err
		},
	}

	cmd.Flags().StringVar(&userID, "user-id", "", "Subject (user sys_id)")
	cmd.Flags().StringVar(&username, "username", "", "Username claim (defaults to user id)")
	cmd.Flags().StringVar(&roles, "roles", "knowledge", "Comma-separated roles")
	cmd.Flags().StringVar(&secret, "secret", os.Getenv("JWT_SECRET_KEY"), "Signing secret")
	cmd.Flags().StringVar(&alg, "alg", getEnv("JWT_ALGORITHM", "HS256"), "Signing algorithm (HS256|HS384|HS512)")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "Token lifetime")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the server version",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version)
			return err
		},
	}
}

func splitRoles(s string) []string {
	var out []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
