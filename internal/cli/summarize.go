package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"distill/internal/engine"
	"distill/internal/gateway"
	"distill/internal/summarizer"
)

type summarizeOptions struct {
	budget        int
	prompt        string
	maxIterations int
	hierarchy     string
	watch         bool
	jsonOutput    bool
}

type roundOutput struct {
	Parts        int `json:"parts"`
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type summarizeOutput struct {
	Text       string           `json:"text"`
	Tokens     int              `json:"tokens"`
	Budget     int              `json:"budget"`
	Fits       bool             `json:"fits"`
	Iterations int              `json:"iterations"`
	Asks       int              `json:"asks"`
	Rounds     []roundOutput    `json:"rounds"`
	Counters   map[string]int64 `json:"counters"`
}

// NewSummarizeCmd creates the summarize command.
func NewSummarizeCmd() *cobra.Command {
	var opts summarizeOptions

	cmd := &cobra.Command{
		Use:   "summarize [file]",
		Short: "Condense text until it fits a token budget",
		Long: `Condense a file, or stdin, until it fits the token budget.

The text is split along its structure, packed into budget-sized parts and
each part is sent to the model with the summarization prompt. The answers are
joined and the process repeats until the result fits or the iteration cap is
reached. The summary goes to stdout; statistics go to stderr.`,
		Example: `  distill summarize notes.md
  cat notes.md | distill summarize --budget 2000
  distill summarize --watch draft.md`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var file string
			if len(args) == 1 {
				file = args[0]
			}
			return runSummarize(cmd, file, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.budget, "budget", "b", 0, "token budget (default: derived from the context window)")
	cmd.Flags().StringVar(&opts.prompt, "prompt", "", "summarization prompt (overrides config)")
	cmd.Flags().IntVarP(&opts.maxIterations, "max-iterations", "n", 0, "iteration cap (overrides config)")
	cmd.Flags().StringVar(&opts.hierarchy, "hierarchy", "", "split hierarchy: markdown or plain (overrides config)")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "re-run whenever the file changes")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "output as JSON")

	return cmd
}

func runSummarize(cmd *cobra.Command, file string, opts summarizeOptions) error {
	cliCtx, err := mustContext(cmd)
	if err != nil {
		return err
	}
	if opts.watch && (file == "" || file == "-") {
		return fmt.Errorf("--watch needs a file argument")
	}

	if opts.hierarchy != "" {
		cliCtx.Config.Summarize.Hierarchy = opts.hierarchy
	}
	eng, err := cliCtx.Engine()
	if err != nil {
		return err
	}

	run := func(ctx context.Context) error {
		text, err := readInput(cmd, file)
		if err != nil {
			return err
		}
		res, err := eng.Summarize(ctx, summarizer.Request{
			Text:          text,
			Prompt:        opts.prompt,
			Budget:        opts.budget,
			MaxIterations: opts.maxIterations,
		})
		if err != nil {
			return err
		}
		return printSummary(cmd, eng, res, opts.jsonOutput)
	}

	if !opts.watch {
		return run(cmd.Context())
	}
	return watchSummarize(cmd, file, run)
}

func watchSummarize(cmd *cobra.Command, file string, run func(context.Context) error) error {
	cliCtx, _ := mustContext(cmd)
	log := cliCtx.Log()

	abs, err := filepath.Abs(file)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := run(ctx); err != nil {
		log.Error().Err(err).Msg("Summarize failed")
	}

	// Runs are serialized through this channel so the engine is used by one
	// goroutine at a time.
	changed := make(chan struct{}, 1)
	w, err := gateway.NewWatcher(func(path string) {
		if filepath.Clean(path) != abs {
			return
		}
		select {
		case changed <- struct{}{}:
		default:
		}
	}, filepath.Dir(abs))
	if err != nil {
		return fmt.Errorf("watch %s: %w", file, err)
	}
	if err := w.Start(); err != nil {
		return fmt.Errorf("watch %s: %w", file, err)
	}
	defer w.Stop()

	fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s (Ctrl-C to stop)\n", file)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-sigCh:
			return nil
		case <-changed:
			log.Info().Str("file", file).Msg("File changed, summarizing")
			if err := run(ctx); err != nil {
				log.Error().Err(err).Msg("Summarize failed")
			}
		}
	}
}

func printSummary(cmd *cobra.Command, eng *engine.Engine, res *summarizer.Result, jsonOutput bool) error {
	out := cmd.OutOrStdout()

	if jsonOutput {
		o := summarizeOutput{
			Text:       res.Text,
			Tokens:     res.Tokens,
			Budget:     res.Budget,
			Fits:       res.Fits,
			Iterations: res.Iterations,
			Asks:       res.Asks,
			Rounds:     make([]roundOutput, 0, len(res.Rounds)),
			Counters:   eng.Counters.Snapshot(),
		}
		for _, r := range res.Rounds {
			o.Rounds = append(o.Rounds, roundOutput(r))
		}
		data, err := json.MarshalIndent(o, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, string(data))
		return nil
	}

	fmt.Fprint(out, ensureNewline(res.Text))

	errOut := cmd.ErrOrStderr()
	status := "fits"
	if !res.Fits {
		status = "over budget"
	}
	fmt.Fprintf(errOut, "%d tokens, budget %d (%s) after %d rounds and %d asks\n",
		res.Tokens, res.Budget, status, res.Iterations, res.Asks)
	for i, r := range res.Rounds {
		fmt.Fprintf(errOut, "  round %d: %d parts, %d -> %d tokens\n", i+1, r.Parts, r.InputTokens, r.OutputTokens)
	}
	if c := eng.Counters.String(); c != "" {
		fmt.Fprintln(errOut, c)
	}
	return nil
}
