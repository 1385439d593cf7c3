package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

type splitOutput struct {
	Segments []string `json:"segments"`
	Tokens   []int    `json:"tokens"`
}

// NewSplitCmd creates the split command.
func NewSplitCmd() *cobra.Command {
	var (
		budget     int
		merge      bool
		hierarchy  string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "split [file]",
		Short: "Show how text is cut into budget-sized segments",
		Long: `Split a file, or stdin, into segments that each fit the token budget,
without calling the model. With --merge adjacent segments are packed
together the way summarize does it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := mustContext(cmd)
			if err != nil {
				return err
			}
			var file string
			if len(args) == 1 {
				file = args[0]
			}
			text, err := readInput(cmd, file)
			if err != nil {
				return err
			}

			if hierarchy != "" {
				cliCtx.Config.Summarize.Hierarchy = hierarchy
			}
			eng, err := cliCtx.Engine()
			if err != nil {
				return err
			}
			segments, err := eng.Split(text, budget, merge)
			if err != nil {
				return err
			}

			tokens := make([]int, len(segments))
			for i, s := range segments {
				tokens[i] = eng.Provider.TokenCount(s)
			}

			out := cmd.OutOrStdout()
			if jsonOutput {
				data, err := json.MarshalIndent(splitOutput{Segments: segments, Tokens: tokens}, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(out, string(data))
				return nil
			}

			for i, s := range segments {
				fmt.Fprintf(out, "--- segment %d/%d (%d tokens) ---\n", i+1, len(segments), tokens[i])
				fmt.Fprint(out, ensureNewline(s))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&budget, "budget", "b", 0, "token budget (default: derived from the context window)")
	cmd.Flags().BoolVarP(&merge, "merge", "m", false, "pack adjacent segments up to the budget")
	cmd.Flags().StringVar(&hierarchy, "hierarchy", "", "split hierarchy: markdown or plain (overrides config)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}
