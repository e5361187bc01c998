package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"achievekit/achieve"
	"achievekit/engine"
)

// errTampered makes verify exit non-zero when any field fails.
var errTampered = errors.New("integrity check failed")

func newVerifyCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check stored fields against their integrity hashes",
		Long: `Check every persisted field against its integrity hash without loading
it into an engine, so nothing is reset or rewritten. Exits non-zero when any
field fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			store, closeStore, err := achieve.StorageFromConfig(cfg.Storage, opts.logger(cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer closeStore()
			hasher, err := achieve.HasherFromConfig(cfg.Integrity)
			if err != nil {
				return err
			}

			reports := engine.Inspect(store, hasher, cfg.Storage.Namespace)
			out := cmd.OutOrStdout()
			if opts.Format == "json" {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(reports); err != nil {
					return err
				}
			} else {
				for _, r := range reports {
					fmt.Fprintf(out, "%-9s %s\n", r.Key, describe(r))
				}
			}
			for _, r := range reports {
				if !r.Intact {
					return errTampered
				}
			}
			return nil
		},
	}
}

func describe(r engine.FieldReport) string {
	switch {
	case !r.Intact:
		return "TAMPERED"
	case !r.Present:
		return "empty"
	case !r.Hashed:
		return "ok (unhashed)"
	default:
		return "ok"
	}
}
