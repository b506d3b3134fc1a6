package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/ppiankov/creditlens/internal/filesync"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// syncCmd groups manual file-sync commands. They run with sync forced on.
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Inspect and drive the file-sync mirror",
	Long: `With sync enabled every read pulls from the file-sync server first and every
write pushes the full store afterwards. Both are best-effort: an unreachable
server never fails a command. These commands run one step explicitly.`,
}

var syncStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Pull once and report the outcome for each channel",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSyncedApp(func(ctx context.Context, a *app) error {
			a.sessionBridge.Pull(ctx)
			a.settingsBridge.Pull(ctx)
			return printSyncStatus(a)
		})
	},
}

var syncPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Merge the server's sessions and settings into the local store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSyncedApp(func(ctx context.Context, a *app) error {
			a.sessionBridge.Pull(ctx)
			a.settingsBridge.Pull(ctx)
			for _, st := range []filesync.Status{a.sessionBridge.Status(), a.settingsBridge.Status()} {
				if st.LastPullErr != "" {
					fmt.Fprintf(os.Stderr, "✗ %s: %s\n", st.Resource, st.LastPullErr)
					continue
				}
				fmt.Printf("✓ %s: imported %d, skipped %d\n", st.Resource, st.PullImported, st.PullSkipped)
			}
			return nil
		})
	},
}

var syncPushCmd = &cobra.Command{
	Use:   "push",
	Short: "Overwrite the server's files with the local store",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withSyncedApp(func(ctx context.Context, a *app) error {
			var failed int
			for name, push := range map[filesync.Resource]func() error{
				filesync.ResourceSessions: a.sessionBridge.Push,
				filesync.ResourceSettings: a.settingsBridge.Push,
			} {
				if err := push(); err != nil {
					failed++
					fmt.Fprintf(os.Stderr, "✗ %s: %v\n", name, err)
					continue
				}
				fmt.Printf("✓ pushed %s\n", name)
			}
			if failed > 0 {
				return fmt.Errorf("%d channel(s) failed to push", failed)
			}
			return nil
		})
	},
}

func withSyncedApp(fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Sync.Enabled = true
	a := newApp(cfg)
	defer a.close()

	fmt.Fprintf(os.Stderr, "File-sync server: %s\n\n", cfg.Sync.BaseURL)
	return fn(context.Background(), a)
}

func printSyncStatus(a *app) error {
	out, err := yaml.Marshal([]filesync.Status{a.sessionBridge.Status(), a.settingsBridge.Status()})
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	fmt.Print(string(out))
	return nil
}

func init() {
	rootCmd.AddCommand(syncCmd)
	syncCmd.AddCommand(syncStatusCmd, syncPullCmd, syncPushCmd)
}
