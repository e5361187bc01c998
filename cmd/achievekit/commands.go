package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"achievekit/core"
)

func newStateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the stored achievement state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(*session) error { return nil })
		},
	}
}

func newUnlockCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unlock <id>",
		Short: "Unlock an achievement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *session) error {
				id := core.ID(args[0])
				if err := requireKnown(s.eng, id); err != nil {
					return err
				}
				s.eng.Unlock(id)
				return nil
			})
		},
	}
}

func newProgressCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <id> <value>",
		Short: "Set the progress of a tracked achievement",
		Long: `Set the progress of a tracked achievement. The value is clamped to the
achievement's maximum and reaching the maximum unlocks it.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("value must be an integer: %w", err)
			}
			return opts.withSession(cmd, func(s *session) error {
				id := core.ID(args[0])
				if err := requireTracked(s, id); err != nil {
					return err
				}
				s.eng.SetProgress(id, value)
				return nil
			})
		},
	}
}

func newIncrementCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "increment <id>",
		Short: "Add one to the progress of a tracked achievement",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *session) error {
				id := core.ID(args[0])
				if err := requireTracked(s, id); err != nil {
					return err
				}
				s.eng.IncrementProgress(id)
				return nil
			})
		},
	}
}

func newCollectCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "collect <id> <item>",
		Short: "Record a collected item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.withSession(cmd, func(s *session) error {
				id := core.ID(args[0])
				if err := requireKnown(s.eng, id); err != nil {
					return err
				}
				s.eng.CollectItem(id, args[1])
				return nil
			})
		},
	}
}

func newResetCommand(opts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Erase all achievement state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to reset without --yes")
			}
			return opts.withSession(cmd, func(s *session) error {
				s.eng.Reset()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}

func requireTracked(s *session, id core.ID) error {
	if err := requireKnown(s.eng, id); err != nil {
		return err
	}
	if _, ok := s.eng.MaxProgress(id); !ok {
		return fmt.Errorf("achievement %q has no progress maximum", id)
	}
	return nil
}
