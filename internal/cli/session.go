package cli

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ppiankov/creditlens/internal/benchmark"
	"github.com/ppiankov/creditlens/internal/model"
	"github.com/ppiankov/creditlens/internal/objstore"
	"github.com/ppiankov/creditlens/internal/session"
	"github.com/ppiankov/creditlens/internal/store"
	"github.com/spf13/cobra"
)

var (
	exportOut     string
	importReplace bool
	showProfile   string
)

// sessionCmd groups deal session commands
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage deal sessions",
	Long: `A deal session is one uploaded credit agreement plus everything derived
from it: extracted terms, per-profile benchmark results, chat, and financials.

Example:
  creditlens session new agreement.pdf
  creditlens session list
  creditlens session show <id> --profile conservative
  creditlens session export --out sessions.json`,
}

var sessionNewCmd = &cobra.Command{
	Use:   "new <file>",
	Short: "Create a session from a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := readDocument(args[0])
		if err != nil {
			return err
		}
		return withApp(func(ctx context.Context, a *app) error {
			s, err := a.orch.CreateSession(ctx, file)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Created session %s (%s, %d bytes)\n", s.ID, file.Name, s.File.Size)
			fmt.Printf("\nNext:\n  creditlens analyze %s\n", s.ID)
			return nil
		})
	},
}

var sessionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			sessions, err := a.orch.List(ctx)
			if err != nil {
				return err
			}
			active, err := a.manager.Active(ctx)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				fmt.Println("No sessions yet. Create one with: creditlens session new <file>")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "ID\tBORROWER\tFILE\tSTATE\t%s\tMODIFIED\n", strings.ToUpper(active.Name))
			for _, s := range sessions {
				st := session.StatusOf(s, active.ID)
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					s.ID, s.BorrowerName, s.File.Name, st.Analysis, st.Benchmark,
					s.LastModified.Local().Format(time.DateTime))
			}
			return w.Flush()
		})
	},
}

var sessionShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a session's extraction and benchmark results",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			s, err := a.orch.Get(ctx, args[0])
			if err != nil {
				return err
			}
			settings, err := a.manager.Load(ctx)
			if err != nil {
				return err
			}
			profile := benchmark.ActiveProfile(settings)
			if showProfile != "" {
				p, ok := settings.Profile(showProfile)
				if !ok {
					return fmt.Errorf("profile %s: %w", showProfile, model.ErrNotFound)
				}
				profile = p
			}
			printSession(s, profile)
			return nil
		})
	},
}

var sessionRenameCmd = &cobra.Command{
	Use:   "rename <id> <borrower name>",
	Short: "Set a session's borrower name",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			s, err := a.orch.RenameBorrower(ctx, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Printf("✓ Session %s is now %q\n", s.ID, s.BorrowerName)
			return nil
		})
	},
}

var sessionDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			for _, id := range args {
				if err := a.orch.DeleteSession(ctx, id); err != nil {
					return err
				}
				fmt.Printf("✓ Deleted %s\n", id)
			}
			return nil
		})
	},
}

var sessionExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export every session as a JSON array",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			data, err := a.sessions.ExportAll(ctx)
			if err != nil {
				return err
			}
			if exportOut == "" || exportOut == "-" {
				_, err = os.Stdout.Write(append(data, '\n'))
				return err
			}
			if err := objstore.AtomicWriteFile(exportOut, data, 0644); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(os.Stderr, "✓ Exported sessions to %s\n", exportOut)
			return nil
		})
	},
}

var sessionImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import sessions from a JSON export",
	Long: `Import sessions from a JSON array produced by "session export".

Sessions are merged by id: imported sessions overwrite local ones with the same
id and other local sessions are kept. With --replace, local sessions missing
from the file are removed. The file is rejected as a whole if any session in
it cannot be read.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		blob, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read import file: %w", err)
		}
		return withApp(func(ctx context.Context, a *app) error {
			res, err := a.sessions.ImportAll(ctx, blob, store.ImportOptions{Replace: importReplace})
			if err != nil {
				return err
			}
			fmt.Printf("✓ Imported %d session(s)", res.Imported)
			if res.Removed > 0 {
				fmt.Printf(", removed %d", res.Removed)
			}
			fmt.Println()
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionNewCmd, sessionListCmd, sessionShowCmd, sessionRenameCmd,
		sessionDeleteCmd, sessionExportCmd, sessionImportCmd)

	sessionShowCmd.Flags().StringVar(&showProfile, "profile", "", "benchmark profile id (default: active profile)")
	sessionExportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default: stdout)")
	sessionImportCmd.Flags().BoolVar(&importReplace, "replace", false, "remove local sessions missing from the file")
}

// readDocument loads a file from disk as an uploaded document
func readDocument(path string) (model.DocumentFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.DocumentFile{}, fmt.Errorf("read document: %w", err)
	}
	mimeType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return model.DocumentFile{
		Name:     filepath.Base(path),
		MimeType: mimeType,
		Size:     int64(len(data)),
		Data:     data,
	}, nil
}

func printSession(s model.DealSession, profile model.BenchmarkProfile) {
	st := session.StatusOf(s, profile.ID)

	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  %s\n", s.BorrowerName)
	fmt.Println("═══════════════════════════════════════════════════════════")
	fmt.Printf("  Session:   %s\n", s.ID)
	fmt.Printf("  Document:  %s (%s, %d bytes)\n", s.File.Name, s.File.MimeType, s.File.Size)
	fmt.Printf("  Modified:  %s\n", s.LastModified.Local().Format(time.DateTime))
	fmt.Printf("  State:     %s, %s against %q\n", st.Analysis, st.Benchmark, profile.Name)
	fmt.Println()

	if st.Analysis == model.StateFresh {
		fmt.Printf("Not analyzed yet. Run: creditlens analyze %s\n", s.ID)
		return
	}

	variance := make(map[string]model.BenchmarkResult)
	for _, r := range s.BenchmarkResults[profile.ID] {
		variance[strings.ToLower(r.Term)] = r
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TERM\tVALUE\tBENCHMARK\tVARIANCE\tCONFIDENCE")
	for _, r := range s.ExtractionResults {
		bench, grade := "-", "-"
		if v, ok := variance[strings.ToLower(r.Term)]; ok {
			bench, grade = v.BenchmarkValue, varianceMark(v.Variance)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Term, truncate(r.Value, 48), truncate(bench, 32), grade, r.Confidence)
	}
	_ = w.Flush()

	if verbose {
		fmt.Println()
		for _, r := range s.BenchmarkResults[profile.ID] {
			if r.Commentary != "" {
				fmt.Printf("  %s %s: %s\n", varianceMark(r.Variance), r.Term, r.Commentary)
			}
		}
	}

	if wf := s.WebFinancials; wf != nil {
		fmt.Println()
		fmt.Printf("Financials (updated %s):\n", wf.LastUpdated.Local().Format(time.DateTime))
		for _, m := range wf.Metrics {
			if m.Period != "" {
				fmt.Printf("  %s (%s): %s\n", m.Name, m.Period, m.Value)
				continue
			}
			fmt.Printf("  %s: %s\n", m.Name, m.Value)
		}
	}

	if n := len(s.ChatHistory); n > 0 {
		fmt.Printf("\n%d chat message(s)\n", n)
	}
}

func varianceMark(v model.Variance) string {
	switch v {
	case model.VarianceGreen:
		return "🟢 Green"
	case model.VarianceYellow:
		return "🟡 Yellow"
	case model.VarianceRed:
		return "🔴 Red"
	}
	return string(v)
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
