package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/ppiankov/creditlens/internal/model"
	"github.com/spf13/cobra"
)

var (
	termDescription string
	termCategory    string
	termName        string
)

// profileCmd groups benchmark profile commands
var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage benchmark profiles",
	Long: `A benchmark profile is a named set of market-standard values, one per term.
Sessions are graded against the active profile; results for each profile are
kept separately.

Example:
  creditlens profile list
  creditlens profile clone default "Sponsor Deals"
  creditlens profile set <id> "Max Total Net Leverage" 5.25x
  creditlens profile activate <id>`,
}

var profileListCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles and their benchmark values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			settings, err := a.manager.Load(ctx)
			if err != nil {
				return err
			}
			for _, p := range settings.BenchmarkProfiles {
				marker := " "
				if p.ID == settings.ActiveProfileID {
					marker = "*"
				}
				fmt.Printf("%s %s  %s (%d values)\n", marker, p.ID, p.Name, len(p.Data))
				if !verbose {
					continue
				}
				terms := make([]string, 0, len(p.Data))
				for term := range p.Data {
					terms = append(terms, term)
				}
				sort.Strings(terms)
				for _, term := range terms {
					fmt.Printf("      %s: %s\n", term, p.Data[term])
				}
			}
			return nil
		})
	},
}

var profileAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add an empty profile",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			p, err := a.manager.AddProfile(ctx, strings.Join(args, " "), nil)
			if err != nil {
				return err
			}
			fmt.Printf("✓ Added profile %s (%s)\n", p.ID, p.Name)
			return nil
		})
	},
}

var profileCloneCmd = &cobra.Command{
	Use:   "clone <id> [new name]",
	Short: "Copy a profile and its values",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			p, err := a.manager.CloneProfile(ctx, args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Printf("✓ Cloned into profile %s (%s)\n", p.ID, p.Name)
			return nil
		})
	},
}

var profileRenameCmd = &cobra.Command{
	Use:   "rename <id> <name>",
	Short: "Rename a profile",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if _, err := a.manager.RenameProfile(ctx, args[0], strings.Join(args[1:], " ")); err != nil {
				return err
			}
			fmt.Printf("✓ Renamed profile %s\n", args[0])
			return nil
		})
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set <id> <term> [value]",
	Short: "Set a profile's benchmark value for a term (no value removes it)",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		value := ""
		if len(args) == 3 {
			value = args[2]
		}
		return withApp(func(ctx context.Context, a *app) error {
			if _, err := a.manager.SetBenchmark(ctx, args[0], args[1], value); err != nil {
				return err
			}
			if value == "" {
				fmt.Printf("✓ Removed %q from profile %s\n", args[1], args[0])
				return nil
			}
			fmt.Printf("✓ %s: %s = %s\n", args[0], args[1], value)
			return nil
		})
	},
}

var profileDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a profile (the last profile cannot be deleted)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			settings, err := a.manager.DeleteProfile(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("✓ Deleted profile %s (active: %s)\n", args[0], settings.ActiveProfileID)
			return nil
		})
	},
}

var profileActivateCmd = &cobra.Command{
	Use:   "activate <id>",
	Short: "Make a profile the active one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if _, err := a.manager.SetActive(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("✓ Active profile: %s\n", args[0])
			return nil
		})
	},
}

// termCmd groups standard term commands
var termCmd = &cobra.Command{
	Use:   "term",
	Short: "Manage the standard terms extracted from every document",
}

var termListCmd = &cobra.Command{
	Use:   "list",
	Short: "List standard terms",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			settings, err := a.manager.Load(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tDESCRIPTION")
			for _, t := range settings.Terms {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.ID, t.Name, t.Category, truncate(t.Description, 60))
			}
			return w.Flush()
		})
	},
}

var termAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a standard term",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			t, err := a.manager.AddTerm(ctx, model.StandardTerm{
				Name:        strings.Join(args, " "),
				Description: termDescription,
				Category:    termCategory,
			})
			if err != nil {
				return err
			}
			fmt.Printf("✓ Added term %s (%s)\n", t.ID, t.Name)
			return nil
		})
	},
}

var termUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a term; renaming moves its benchmark values in every profile",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			settings, err := a.manager.Load(ctx)
			if err != nil {
				return err
			}
			var current *model.StandardTerm
			for i := range settings.Terms {
				if settings.Terms[i].ID == args[0] {
					current = &settings.Terms[i]
				}
			}
			if current == nil {
				return fmt.Errorf("term %s: %w", args[0], model.ErrNotFound)
			}

			updated := *current
			if cmd.Flags().Changed("name") {
				updated.Name = termName
			}
			if cmd.Flags().Changed("description") {
				updated.Description = termDescription
			}
			if cmd.Flags().Changed("category") {
				updated.Category = termCategory
			}

			if _, err := a.manager.UpdateTerm(ctx, args[0], updated); err != nil {
				return err
			}
			fmt.Printf("✓ Updated term %s (%s)\n", args[0], updated.Name)
			return nil
		})
	},
}

var termRemoveCmd = &cobra.Command{
	Use:   "remove <id>",
	Short: "Remove a term and its benchmark values",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if _, err := a.manager.RemoveTerm(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("✓ Removed term %s\n", args[0])
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(profileCmd, termCmd)
	profileCmd.AddCommand(profileListCmd, profileAddCmd, profileCloneCmd, profileRenameCmd,
		profileSetCmd, profileDeleteCmd, profileActivateCmd)
	termCmd.AddCommand(termListCmd, termAddCmd, termUpdateCmd, termRemoveCmd)

	for _, c := range []*cobra.Command{termAddCmd, termUpdateCmd} {
		c.Flags().StringVar(&termDescription, "description", "", "what the term means")
		c.Flags().StringVar(&termCategory, "category", "", "grouping, e.g. Pricing or Covenants")
	}
	termUpdateCmd.Flags().StringVar(&termName, "name", "", "new term name")
}
