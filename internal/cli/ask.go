package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/spf13/cobra"
)

// NewAskCmd creates the ask command.
func NewAskCmd() *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "ask [prompt...]",
		Short: "Send one prompt through the ask cache",
		Long: `Send a prompt to the configured model and print the answer. The prompt is
the joined arguments, or stdin when there are none. Answers are cached, so
asking the same question twice costs one model call.`,
		Example: `  distill ask "Explain the difference between a mutex and a semaphore."
  echo "Translate to French: good morning, how are you today?" | distill ask`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := mustContext(cmd)
			if err != nil {
				return err
			}

			prompt := strings.Join(args, " ")
			if prompt == "" {
				if prompt, err = readInput(cmd, ""); err != nil {
					return err
				}
			}

			eng, err := cliCtx.Engine()
			if err != nil {
				return err
			}
			answer, err := eng.Ask(cmd.Context(), prompt)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !raw {
				answer = ansi.Wrap(answer, outputWidth(out), "")
			}
			fmt.Fprint(out, ensureNewline(answer))
			fmt.Fprintln(cmd.ErrOrStderr(), eng.Counters.String())
			return nil
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print the answer without wrapping")

	return cmd
}
