package main

// root.go has the cobra commands

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/andrewwphillips/gqlview/settings"
)

// flagKeys maps command line flags to settings keys
var flagKeys = map[string]string{
	"addr":              "server.addr",
	"path":              "server.path",
	"metrics":           "server.metrics",
	"graphiql":          "graphiql",
	"header-editor":     "graphiql_header_editor_enabled",
	"pretty":            "pretty",
	"batch":             "batch",
	"subscription-path": "subscription_path",
	"atomic-mutations":  "atomic_mutations",
	"db-driver":         "database.driver",
	"db-dsn":            "database.dsn",
	"jwt-secret":        "auth.jwt_secret",
	"issuer":            "auth.issuer",
	"log-level":         "log.level",
	"log-format":        "log.format",
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gqlview",
		Short:         "GraphQL over HTTP server for the notes schema",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("config", "",
		"Configuration file (yaml, json or toml). Overridden by environment variables and flags.")
	root.AddCommand(newServeCmd(), newTokenCmd())
	return root
}

// loadSettings reads the settings using the config file and any flags of cmd
func loadSettings(cmd *cobra.Command) (*settings.Settings, error) {
	v := settings.New()
	if err := settings.BindFlags(v, cmd.Flags(), flagKeys); err != nil {
		return nil, err
	}
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	return settings.Load(v, configFile)
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the GraphQL server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			log, err := newLogger(s.Log)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, s, log)
		},
	}
	addServeFlags(cmd.Flags())
	return cmd
}

func addServeFlags(flags *pflag.FlagSet) {
	d := settings.Defaults()
	flags.String("addr", d.Server.Addr, "Address to listen on")
	flags.String("path", d.Server.Path, "URL path of the GraphQL endpoint")
	flags.String("metrics", d.Server.Metrics, "URL path of the prometheus metrics (empty to disable)")
	flags.Bool("graphiql", d.GraphiQL, "Serve GraphiQL to browsers")
	flags.Bool("header-editor", d.GraphiQLHeaderEditorEnabled, "Enable the GraphiQL request headers editor")
	flags.Bool("pretty", d.Pretty, "Indent all JSON responses")
	flags.Bool("batch", d.Batch, "Expect a list of requests in each POST")
	flags.String("subscription-path", d.SubscriptionPath, "URL path GraphiQL uses for subscriptions")
	flags.Bool("atomic-mutations", d.AtomicMutations, "Run each mutation in a database transaction")
	flags.String("db-driver", d.Database.Driver, `Database driver, "pgx" or "mysql" (empty to keep notes in memory)`)
	flags.String("db-dsn", d.Database.DSN, "Database connection string")
	flags.String("jwt-secret", d.Auth.JWTSecret, "HMAC secret of bearer tokens (empty disables authentication)")
	flags.String("issuer", d.Auth.Issuer, "Required issuer of bearer tokens")
	flags.String("log-level", d.Log.Level, "Log level (debug, info, warn, error)")
	flags.String("log-format", d.Log.Format, `Log format, "json" or "console"`)
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a bearer token for a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			user, _ := cmd.Flags().GetString("user")
			ttl, _ := cmd.Flags().GetDuration("ttl")
			token, err := newToken(s.Auth, user, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().String("user", "", "User name (token subject)")
	cmd.Flags().Duration("ttl", 24*time.Hour, "How long the token is valid")
	cmd.Flags().String("jwt-secret", "", "HMAC secret used to sign the token")
	cmd.Flags().String("issuer", "", "Token issuer")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
