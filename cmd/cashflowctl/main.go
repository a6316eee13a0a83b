package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"cashflow/internal/backend"
	applog "cashflow/internal/log"
)

var version = "dev"

// app carries the per-invocation configuration shared by every subcommand.
type app struct {
	v       *viper.Viper
	cfgFile string
	// open builds the record store; tests swap it for an in-memory one.
	open func(ctx context.Context, cfg backend.Config) (*backend.Result, error)
}

func newApp() *app {
	a := &app{v: viper.New()}
	a.open = func(ctx context.Context, cfg backend.Config) (*backend.Result, error) {
		return backend.NewFactory(applog.New(a.logConfig()).Slog()).CreateBackend(ctx, cfg)
	}
	return a
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "cashflowctl",
		Short:         "Inspect and maintain cashflow records from the terminal",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initConfig()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: $HOME/.config/cashflow/config.yaml)")
	flags.String("user", "", "user id the command acts for")
	flags.String("backend", string(backend.MemoryBackend), "record store: "+strings.Join(backend.GetBackendTypeStrings(), ", "))
	flags.String("sqlite-path", "./data/cashflow.db", "SQLite database path")
	flags.String("database-url", "", "PostgreSQL connection string")
	flags.String("supabase-url", "", "Supabase project URL")
	flags.String("supabase-key", "", "Supabase service key")
	flags.String("seed-file", "", "JSON seed for the memory backend")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")

	for _, name := range []string{"user", "backend", "sqlite-path", "database-url", "supabase-url", "supabase-key", "seed-file", "log-level", "log-format"} {
		_ = a.v.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name))
	}

	root.AddCommand(forecastCmd(a))
	root.AddCommand(budgetCmd(a))
	root.AddCommand(billsCmd(a))
	root.AddCommand(paycheckCmd(a))
	root.AddCommand(templatesCmd(a))
	return root
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd(newApp()).ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) initConfig() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			a.v.AddConfigPath(home + "/.config/cashflow")
		}
		a.v.AddConfigPath(".")
		a.v.SetConfigName("cashflow")
		a.v.SetConfigType("yaml")
	}

	a.v.SetEnvPrefix("CASHFLOW")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && a.cfgFile != "" {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	applog.SetDefault(applog.New(a.logConfig()))
	return nil
}

func (a *app) logConfig() applog.Config {
	cfg := applog.DefaultConfig()
	cfg.Level = applog.ParseLevel(a.v.GetString("log_level"))
	cfg.Format = a.v.GetString("log_format")
	cfg.Component = "cli"
	cfg.Output = os.Stderr
	return cfg
}

func (a *app) userID() (string, error) {
	uid := strings.TrimSpace(a.v.GetString("user"))
	if uid == "" {
		return "", errors.New("a user is required: pass --user or set CASHFLOW_USER")
	}
	return uid, nil
}

func (a *app) backendConfig() backend.Config {
	return backend.Config{
		Type:         backend.BackendType(a.v.GetString("backend")),
		SQLiteDBPath: a.v.GetString("sqlite_path"),
		DatabaseURL:  a.v.GetString("database_url"),
		SupabaseURL:  a.v.GetString("supabase_url"),
		SupabaseKey:  a.v.GetString("supabase_key"),
		SeedFile:     a.v.GetString("seed_file"),
	}
}

// withStore opens the configured backend for the duration of fn.
func (a *app) withStore(ctx context.Context, fn func(res *backend.Result) error) error {
	res, err := a.open(ctx, a.backendConfig())
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	defer func() {
		if res.Cleanup != nil {
			_ = res.Cleanup()
		}
	}()
	return fn(res)
}
