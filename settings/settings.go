// Package settings holds the project-wide GraphQL view settings, loaded with viper from defaults, an
// optional config file, GQLVIEW_* environment variables and command line flags (in increasing priority).
package settings

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variables that override settings, eg GQLVIEW_SERVER_ADDR
const EnvPrefix = "GQLVIEW"

type (
	// Settings are the options of the GraphQL view plus the server that hosts it
	Settings struct {
		SubscriptionPath            string `mapstructure:"subscription_path"`
		GraphiQL                    bool   `mapstructure:"graphiql"`
		GraphiQLHeaderEditorEnabled bool   `mapstructure:"graphiql_header_editor_enabled"`
		Pretty                      bool   `mapstructure:"pretty"`
		Batch                       bool   `mapstructure:"batch"`
		AtomicMutations             bool   `mapstructure:"atomic_mutations"`

		Server   Server   `mapstructure:"server"`
		Database Database `mapstructure:"database"`
		Auth     Auth     `mapstructure:"auth"`
		Log      Log      `mapstructure:"log"`
	}

	Server struct {
		Addr    string `mapstructure:"addr"`
		Path    string `mapstructure:"path"`
		Metrics string `mapstructure:"metrics"` // path of the prometheus endpoint, empty to disable
	}

	// Database is the connection used for atomic mutations (and by the example resolvers)
	Database struct {
		Driver          string `mapstructure:"driver"` // "pgx" or "mysql", empty for no database
		DSN             string `mapstructure:"dsn"`
		AtomicMutations bool   `mapstructure:"atomic_mutations"`
	}

	Auth struct {
		JWTSecret string `mapstructure:"jwt_secret"` // empty disables bearer token auth
		Issuer    string `mapstructure:"issuer"`
	}

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"` // "json" or "console"
	}
)

// Defaults returns the settings used when nothing is configured
func Defaults() Settings {
	return Settings{
		GraphiQL: true,
		Server: Server{
			Addr:    "localhost:8080",
			Path:    "/graphql",
			Metrics: "/metrics",
		},
		Log: Log{Level: "info", Format: "json"},
	}
}

// AtomicMutationsEnabled reports whether mutations should run in a transaction, which is the case if
// enabled globally or for the database connection
func (s *Settings) AtomicMutationsEnabled() bool {
	return s.AtomicMutations || s.Database.AtomicMutations
}

// Validate checks for inconsistent settings
func (s *Settings) Validate() error {
	if s.GraphiQL && s.Batch {
		return errors.New("use either graphiql or batch processing")
	}
	switch s.Database.Driver {
	case "", "pgx", "mysql":
	default:
		return errors.Errorf("unsupported database driver %q", s.Database.Driver)
	}
	if s.Database.Driver != "" && s.Database.DSN == "" {
		return errors.New("database.dsn is required when a database driver is set")
	}
	if s.AtomicMutationsEnabled() && s.Database.Driver == "" {
		return errors.New("atomic mutations need a database")
	}
	if s.Server.Path == "" || s.Server.Path[0] != '/' {
		return errors.Errorf("server.path must start with '/', got %q", s.Server.Path)
	}
	return nil
}

// New returns a viper instance with the defaults registered and environment variables bound
func New() *viper.Viper {
	v := viper.New()
	d := Defaults()
	v.SetDefault("subscription_path", d.SubscriptionPath)
	v.SetDefault("graphiql", d.GraphiQL)
	v.SetDefault("graphiql_header_editor_enabled", d.GraphiQLHeaderEditorEnabled)
	v.SetDefault("pretty", d.Pretty)
	v.SetDefault("batch", d.Batch)
	v.SetDefault("atomic_mutations", d.AtomicMutations)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.path", d.Server.Path)
	v.SetDefault("server.metrics", d.Server.Metrics)
	v.SetDefault("database.driver", d.Database.Driver)
	v.SetDefault("database.dsn", d.Database.DSN)
	v.SetDefault("database.atomic_mutations", d.Database.AtomicMutations)
	v.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)
	v.SetDefault("auth.issuer", d.Auth.Issuer)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds command line flags to settings keys, eg {"addr": "server.addr"}.  Flags that
// are not defined in the set are ignored.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for name, key := range keys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errors.Wrapf(err, "binding flag %s", name)
		}
	}
	return nil
}

// Load reads the settings.  If configFile is not empty it is read first (format from its extension).
func Load(v *viper.Viper, configFile string) (*Settings, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "reading config %s", configFile)
		}
	}

	s := &Settings{}
	if err := v.Unmarshal(s); err != nil {
		return nil, errors.Wrap(err, "decoding settings")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
