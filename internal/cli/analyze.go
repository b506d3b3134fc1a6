package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/ppiankov/creditlens/internal/benchmark"
	"github.com/ppiankov/creditlens/internal/model"
	"github.com/ppiankov/creditlens/internal/worker"
	"github.com/spf13/cobra"
)

var (
	analyzeTimeout time.Duration
	rbProfile      string
	rbAll          bool
	rbFromFile     string
)

// analyzeCmd represents the analyze command
var analyzeCmd = &cobra.Command{
	Use:   "analyze <id>",
	Short: "Extract terms from a session's document and benchmark them",
	Long: `Analyze sends the session's document and the configured term list to the
LLM provider, replaces the session's extraction results, and records variance
against the active benchmark profile. Results for other profiles are kept.

If the provider fails, the session is left exactly as it was.

Example:
  creditlens analyze 3f0c...
  creditlens analyze 3f0c... --llm-provider anthropic`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			ctx, cancel := context.WithTimeout(ctx, analyzeTimeout)
			defer cancel()

			analyst, err := a.analyst(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "⚙️  Extracting terms with %s...\n", analyst.Name())
			s, err := a.orch.RunAnalysis(ctx, args[0], analyst)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			profile, err := a.manager.Active(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "✓ Extracted %d terms, %d benchmarked against %q\n\n",
				len(s.ExtractionResults), len(s.BenchmarkResults[profile.ID]), profile.Name)
			printSession(s, profile)
			return nil
		})
	},
}

// rebenchmarkCmd represents the rebenchmark command
var rebenchmarkCmd = &cobra.Command{
	Use:   "rebenchmark [id...]",
	Short: "Grade analyzed sessions against another benchmark profile",
	Long: `Rebenchmark re-derives variance for each session from its stored extraction
results, without re-reading the document. Sessions are processed concurrently
and each one succeeds or fails on its own.

Example:
  creditlens rebenchmark --profile conservative --all
  creditlens rebenchmark --profile conservative 3f0c... 9a1b...
  creditlens rebenchmark --profile conservative --from-file ids.txt`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			ctx, cancel := context.WithTimeout(ctx, analyzeTimeout)
			defer cancel()

			ids, err := rebenchmarkTargets(ctx, a, args)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				return fmt.Errorf("no sessions given (pass ids, --all, or --from-file)")
			}

			profileID := rbProfile
			if profileID == "" {
				active, err := a.manager.Active(ctx)
				if err != nil {
					return err
				}
				profileID = active.ID
			}

			analyst, err := a.analyst(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(os.Stderr, "\n")
			fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
			fmt.Fprintf(os.Stderr, "  CreditLens Rebenchmark\n")
			fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
			fmt.Fprintf(os.Stderr, "\n")
			fmt.Fprintf(os.Stderr, "  Profile:   %s\n", profileID)
			fmt.Fprintf(os.Stderr, "  Sessions:  %d\n", len(ids))
			fmt.Fprintf(os.Stderr, "  Workers:   %d\n", a.cfg.Concurrency.Workers)
			fmt.Fprintf(os.Stderr, "\n")

			report, err := a.orch.Rebenchmark(ctx, ids, profileID, analyst)
			if err != nil {
				return err
			}

			for _, id := range report.Updated {
				fmt.Fprintf(os.Stderr, "✓ %s\n", id)
			}
			failed := make([]string, 0, len(report.Failed))
			for id := range report.Failed {
				failed = append(failed, id)
			}
			sort.Strings(failed)
			for _, id := range failed {
				fmt.Fprintf(os.Stderr, "✗ %s: %v\n", id, report.Failed[id])
			}

			fmt.Fprintf(os.Stderr, "\n")
			fmt.Fprintf(os.Stderr, "  Updated:   %d\n", len(report.Updated))
			fmt.Fprintf(os.Stderr, "  Failures:  %d\n", len(report.Failed))
			fmt.Fprintf(os.Stderr, "\n")

			if !report.OK() {
				return fmt.Errorf("%d of %d session(s) failed", len(report.Failed), len(ids))
			}
			return nil
		})
	},
}

func rebenchmarkTargets(ctx context.Context, a *app, args []string) ([]string, error) {
	ids := append([]string{}, args...)
	if rbFromFile != "" {
		fromFile, err := worker.ReadIDsFromFile(rbFromFile)
		if err != nil {
			return nil, err
		}
		ids = append(ids, fromFile...)
	}
	if rbAll {
		sessions, err := a.orch.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, s := range sessions {
			if s.Analysis() == model.StateAnalyzed {
				ids = append(ids, s.ID)
			}
		}
	}
	return ids, nil
}

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat <id> <message>",
	Short: "Ask a question about a session's document",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			ctx, cancel := context.WithTimeout(ctx, analyzeTimeout)
			defer cancel()

			analyst, err := a.analyst(ctx)
			if err != nil {
				return err
			}

			s, err := a.orch.SendChat(ctx, args[0], strings.Join(args[1:], " "), analyst)
			if err != nil && !errors.Is(err, model.ErrExtraction) {
				return err
			}
			if n := len(s.ChatHistory); n > 0 {
				fmt.Println(s.ChatHistory[n-1].Text)
			}
			return err
		})
	},
}

// financialsCmd represents the financials command
var financialsCmd = &cobra.Command{
	Use:   "financials <id>",
	Short: "Refresh public financial data for a session's borrower",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			ctx, cancel := context.WithTimeout(ctx, analyzeTimeout)
			defer cancel()

			analyst, err := a.analyst(ctx)
			if err != nil {
				return err
			}
			s, err := a.orch.RefreshFinancials(ctx, args[0], analyst)
			if err != nil {
				return fmt.Errorf("financials refresh failed: %w", err)
			}

			settings, err := a.manager.Load(ctx)
			if err != nil {
				return err
			}
			printSession(s, benchmark.ActiveProfile(settings))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd, rebenchmarkCmd, chatCmd, financialsCmd)

	for _, c := range []*cobra.Command{analyzeCmd, rebenchmarkCmd, chatCmd, financialsCmd} {
		c.Flags().DurationVar(&analyzeTimeout, "timeout", 5*time.Minute, "overall timeout")
	}

	rebenchmarkCmd.Flags().StringVar(&rbProfile, "profile", "", "benchmark profile id (default: active profile)")
	rebenchmarkCmd.Flags().BoolVar(&rbAll, "all", false, "rebenchmark every analyzed session")
	rebenchmarkCmd.Flags().StringVar(&rbFromFile, "from-file", "", "read session ids from a file (one per line)")
}
