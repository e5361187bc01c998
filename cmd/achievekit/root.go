package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"achievekit/achieve"
	"achievekit/config"
	"achievekit/core"
	"achievekit/engine"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Storage    string
	File       string
	Namespace  string
	Catalog    string
	Algorithm  string
	Format     string // "json" | "text"
	Verbose    bool
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the achievekit CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "achievekit",
		Short: "Inspect and edit achievement state",
		Long: `achievekit reads and writes achievement state in the configured storage
backend, with the same integrity hashing the server uses. Configuration comes
from ACHIEVEKIT_* environment variables or --config, and flags override both.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "JSON config file (default: environment only)")
	flags.StringVar(&opts.Storage, "storage", "", "storage adapter (memory|file|redis|sql)")
	flags.StringVar(&opts.File, "file", "", "state file for the file adapter")
	flags.StringVar(&opts.Namespace, "namespace", "", "key namespace")
	flags.StringVar(&opts.Catalog, "catalog", "", "achievement definition file (default: built-in demo catalogue)")
	flags.StringVar(&opts.Algorithm, "integrity", "", "integrity digest (fnv1a|xxhash|sha256)")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(newStateCommand(opts))
	cmd.AddCommand(newUnlockCommand(opts))
	cmd.AddCommand(newProgressCommand(opts))
	cmd.AddCommand(newIncrementCommand(opts))
	cmd.AddCommand(newCollectCommand(opts))
	cmd.AddCommand(newResetCommand(opts))
	cmd.AddCommand(newVerifyCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// loadConfig applies flag overrides on top of file or environment config.
func (o *RootOptions) loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.ConfigPath != "" {
		cfg, err = config.LoadFromFile(o.ConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if o.Storage != "" {
		cfg.Storage.Adapter = o.Storage
	}
	if o.File != "" {
		cfg.Storage.File.Path = o.File
		if o.Storage == "" {
			cfg.Storage.Adapter = "file"
		}
	}
	if o.Namespace != "" {
		cfg.Storage.Namespace = o.Namespace
	}
	if o.Catalog != "" {
		cfg.Catalog.Path = o.Catalog
	}
	if o.Algorithm != "" {
		cfg.Integrity.Algorithm = o.Algorithm
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// session is one open engine plus the resources behind it.
type session struct {
	cfg      *config.Config
	eng      *engine.Engine
	store    engine.Storage
	hasher   engine.Hasher
	tampered []string
	close    func() error
}

func (o *RootOptions) open(cmd *cobra.Command) (*session, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	logger := o.logger(cmd.ErrOrStderr())
	cat, err := achieve.CatalogueFromConfig(cfg.Catalog)
	if err != nil {
		return nil, err
	}
	store, closeStore, err := achieve.StorageFromConfig(cfg.Storage, logger)
	if err != nil {
		return nil, err
	}
	hasher, err := achieve.HasherFromConfig(cfg.Integrity)
	if err != nil {
		_ = closeStore()
		return nil, err
	}

	s := &session{cfg: cfg, store: store, hasher: hasher}
	s.eng = achieve.New(cat,
		achieve.WithStorage(store),
		achieve.WithHasher(hasher),
		achieve.WithNamespace(cfg.Storage.Namespace),
		achieve.WithDispatchMode(engine.DispatchSync),
		achieve.WithLogger(logger),
		achieve.OnTamper(func(key string) { s.tampered = append(s.tampered, key) }),
	)
	s.close = func() error {
		s.eng.Close()
		return closeStore()
	}
	return s, nil
}

// withSession opens a session, runs fn and prints the resulting state.
func (o *RootOptions) withSession(cmd *cobra.Command, fn func(*session) error) error {
	s, err := o.open(cmd)
	if err != nil {
		return err
	}
	defer s.close()
	for _, key := range s.tampered {
		fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s failed its integrity check and was reset\n", key)
	}
	if err := fn(s); err != nil {
		return err
	}
	return printState(cmd.OutOrStdout(), o.Format, s.eng)
}

func requireKnown(eng *engine.Engine, id core.ID) error {
	if !eng.Catalogue().Contains(id) {
		return fmt.Errorf("unknown achievement %q", id)
	}
	return nil
}
