package main

import (
	"context"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/likearthian/singlemodel"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config holds everything needed to reach one single model table.
type Config struct {
	Driver        string
	DSN           string
	MongoDatabase string
	Table         string
	KeyColumn     string
	ValueColumn   string
	AutoCreate    bool
	Timeout       time.Duration
	LogLevel      string
	LogFormat     string
}

func setupFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String("driver", "sqlite3", "store driver (pgx, postgres, sqlite3, mysql, mongo)")
	flags.String("dsn", "singlemodel.db", "data source name or mongo URI")
	flags.String("mongo-database", "singlemodel", "mongo database holding the table collections")
	flags.String("table", "settings", "name of the key/value table")
	flags.String("key-column", singlemodel.DefaultKeyField, "name of the key column")
	flags.String("value-column", singlemodel.DefaultValueField, "name of the value column")
	flags.Bool("auto-create", false, "create the table on first access if it is missing")
	flags.Int("timeout", 10, "timeout in seconds for store calls")
	flags.String("log-level", "warn", "log level (trace, debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json, color)")
}

// initConfig loads .env files and binds environment variables prefixed with SINGLEMODEL_.
func initConfig() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	viper.SetEnvPrefix("singlemodel")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func bindFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

func loadConfig() Config {
	return Config{
		Driver:        viper.GetString("driver"),
		DSN:           viper.GetString("dsn"),
		MongoDatabase: viper.GetString("mongo-database"),
		Table:         viper.GetString("table"),
		KeyColumn:     viper.GetString("key-column"),
		ValueColumn:   viper.GetString("value-column"),
		AutoCreate:    viper.GetBool("auto-create"),
		Timeout:       time.Duration(viper.GetInt("timeout")) * time.Second,
		LogLevel:      viper.GetString("log-level"),
		LogFormat:     viper.GetString("log-format"),
	}
}

func initLog(cfg Config) error {
	switch cfg.LogFormat {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "color":
		log.SetFormatter(&log.TextFormatter{ForceColors: true})
	default:
		log.SetFormatter(&log.TextFormatter{})
	}

	lvl, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errors.Wrapf(err, "invalid log level %q", cfg.LogLevel)
	}
	log.SetLevel(lvl)
	return nil
}

// openBackend connects to the configured store. The returned func releases it.
func openBackend(ctx context.Context, cfg Config) (singlemodel.Backend, func(), error) {
	if cfg.Driver == "mongo" {
		client, err := singlemodel.ConnectMongo(ctx, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() { _ = client.Disconnect(context.Background()) }
		return singlemodel.NewMongoBackend(client.Database(cfg.MongoDatabase)), closeFn, nil
	}

	backend, err := singlemodel.OpenSQL(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() { _ = backend.DB().Close() }
	return backend, closeFn, nil
}

func (cfg Config) registryOptions() []singlemodel.RegistryOption {
	opts := []singlemodel.RegistryOption{
		singlemodel.WithColumns(cfg.KeyColumn, cfg.ValueColumn),
	}
	if cfg.AutoCreate {
		opts = append(opts, singlemodel.WithAutoCreate())
	}
	return opts
}
