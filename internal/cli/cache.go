package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"distill/internal/storage"
)

var errNoPersistentCache = errors.New("the persistent cache is disabled (cache.enabled=false or --no-cache)")

// NewCacheCmd creates the cache command group.
func NewCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the ask cache",
	}

	cmd.AddCommand(newCacheStatsCmd())
	cmd.AddCommand(newCacheClearCmd())

	return cmd
}

func openAskStore(cmd *cobra.Command) (*storage.AskStore, string, error) {
	cliCtx, err := mustContext(cmd)
	if err != nil {
		return nil, "", err
	}
	eng, err := cliCtx.Engine()
	if err != nil {
		return nil, "", err
	}
	store := eng.AskStore()
	if store == nil {
		return nil, "", errNoPersistentCache
	}
	path, _ := cliCtx.Config.CachePath()
	return store, path, nil
}

func newCacheStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cached answers per provider identity",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, path, err := openAskStore(cmd)
			if err != nil {
				return err
			}
			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				data, err := json.MarshalIndent(stats, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			fmt.Fprintf(out, "Cache: %s\n", path)
			if len(stats) == 0 {
				fmt.Fprintln(out, "  (empty)")
				return nil
			}
			fmt.Fprintf(out, "  %-40s %8s %12s\n", "Identity", "Entries", "Prompt bytes")
			for _, s := range stats {
				fmt.Fprintf(out, "  %-40s %8d %12d\n", s.Identity, s.Entries, s.PromptBytes)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}

func newCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every cached answer",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, err := openAskStore(cmd)
			if err != nil {
				return err
			}
			n, err := store.Clear(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d cached answers\n", n)
			return nil
		},
	}
}
