// Command httm is a minimal entrypoint over the core engine. The
// interactive fuzzy-finder UI, ANSI renderer, and rich argument parsing
// are external collaborators out of scope for this core (spec §1); this
// binary exists so the engine's three interfaces are reachable from a
// shell and emits plain JSON for those collaborators to consume.
package main

import (
	"encoding/json"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/kimono-koans/httm/internal/config"
	"github.com/kimono-koans/httm/internal/engine"
	"github.com/kimono-koans/httm/internal/herr"
	"github.com/kimono-koans/httm/internal/log"
	"github.com/kimono-koans/httm/internal/rollforward"
)

func main() {
	cmd := generateCommands()

	if err := cmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps any error to a non-zero status (spec §6: "0 success,
// non-zero on any HttmError").
func exitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}

func generateCommands() *cobra.Command {
	var flagVerbosity int
	var flagAliases []string
	var flagAltReplicated bool

	var eng *engine.Engine

	rootCmd := &cobra.Command{
		Use:   "httm",
		Short: "Query and restore prior file versions from local filesystem snapshots",
		Long: `httm discovers ZFS, Btrfs, NILFS2, and APFS Time Machine snapshots on the
local machine and lets you list and restore prior versions of a file
without knowing its dataset or snapshot name up front.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			config.SetVerboseMode(flagVerbosity > 0)
			if flagVerbosity > 1 {
				log.SetLevel(logrus.DebugLevel)
			} else if flagVerbosity > 0 {
				log.SetLevel(logrus.InfoLevel)
			}

			e, err := engine.New(cmd.Context(), flagAliases, flagAltReplicated)
			if err != nil {
				return err
			}
			eng = e
			return nil
		},
	}
	rootCmd.PersistentFlags().CountVarP(&flagVerbosity, "verbose", "v", "issue INFO (-v) and DEBUG (-vv) output")
	rootCmd.PersistentFlags().StringSliceVar(&flagAliases, "map-aliases", nil, "local:remote alias pairs, comma-separated")
	rootCmd.PersistentFlags().BoolVar(&flagAltReplicated, "alt-replicated", false, "also search alt-replicated peer datasets")

	rootCmd.AddCommand(
		versionsCmd(&eng),
		mountsCmd(&eng),
		deletedCmd(&eng),
		restoreCmd(&eng),
		rollForwardCmd(),
	)

	return rootCmd
}

func versionsCmd(eng **engine.Engine) *cobra.Command {
	return &cobra.Command{
		Use:   "versions <path>...",
		Short: "List every available prior version of the given paths",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := (*eng).VersionsMap(cmd.Context(), args)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func mountsCmd(eng **engine.Engine) *cobra.Command {
	return &cobra.Command{
		Use:   "mount-for-file <path>...",
		Short: "Show which dataset each given path belongs to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := (*eng).MountsForFiles(cmd.Context(), args)
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func deletedCmd(eng **engine.Engine) *cobra.Command {
	return &cobra.Command{
		Use:   "deleted <dir>",
		Short: "List names deleted from a live directory but present in a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := (*eng).DeletedIn(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
}

func restoreCmd(eng **engine.Engine) *cobra.Command {
	var dataset string
	cmd := &cobra.Command{
		Use:   "restore <snap-path> <live-path>",
		Short: "Restore a live path's content and metadata from a snapshot path",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dataset == "" {
				return herr.New(herr.Other, "restore: --dataset is required")
			}
			return (*eng).Restore(cmd.Context(), dataset, args[0], args[1])
		},
	}
	cmd.Flags().StringVar(&dataset, "dataset", "", "live dataset the guard snapshots before restoring")
	return cmd
}

func rollForwardCmd() *cobra.Command {
	var snapMount, liveMount string
	cmd := &cobra.Command{
		Use:   "roll-forward <dataset> <snapshot>",
		Short: "Replay a zfs diff stream from a snapshot onto the live dataset",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rollforward.Execute(cmd.Context(), args[0], args[1], snapMount, liveMount)
		},
	}
	cmd.Flags().StringVar(&snapMount, "snap-mount", "", "root of the snapshot's mounted tree")
	cmd.Flags().StringVar(&liveMount, "live-mount", "", "root of the live dataset's mounted tree")
	return cmd
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return herr.Wrap(herr.Other, err, "encoding result")
	}
	return nil
}
