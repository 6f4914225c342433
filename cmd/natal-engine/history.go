// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/natal-engine/internal/chartstore"
	"github.com/pdiddy/natal-engine/internal/report"
	"github.com/pdiddy/natal-engine/pkg/types"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse archived charts (list, show, export, delete)",
	Long: `History reads the SQLite chart archive written by chart --save.
Chart IDs may be abbreviated to any unique prefix of eight or more characters.`,
}

// --- list subcommand ---

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived charts, newest first",
	RunE:  runHistoryList,
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	store, err := chartstore.Open(appCfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	summaries, err := store.List(cmd.Context(), listOptsFromFlags(cmd))
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}

	if len(summaries) == 0 {
		fmt.Println("No charts saved.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-36s  %-16s  %-20s  %-22s  %s\n", "ID", "Name", "Instant (UTC)", "Location", "Saved")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 120))
	for _, s := range summaries {
		name := truncate(s.FirstName, 16)
		fmt.Fprintf(os.Stdout, "%-36s  %-16s  %-20s  %-22s  %s\n",
			s.ID, name,
			s.Instant.UTC().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%.4f, %.4f", s.Location.Latitude, s.Location.Longitude),
			s.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	fmt.Fprintf(os.Stdout, "\n%d charts\n", len(summaries))
	return nil
}

// truncate shortens s to at most width runes, marking the cut with "...".
func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

// --- show subcommand ---

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Render an archived chart as a report on stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	store, err := chartstore.Open(appCfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	rec, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	format, err := report.ParseFormat(string(appCfg.Report.Format))
	if err != nil {
		return err
	}
	lang, err := report.LookupLanguage(appCfg.Report.Language)
	if err != nil {
		return err
	}
	return report.Render(os.Stdout, report.Chart{
		FirstName: rec.FirstName,
		Email:     rec.Email,
		Positions: rec.Positions,
	}, format, lang)
}

// --- export subcommand ---

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export archived charts to YAML or JSON",
	RunE:  runHistoryExport,
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	out, _ := cmd.Flags().GetString("out")

	store, err := chartstore.Open(appCfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	w := os.Stdout
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating export file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := store.Export(cmd.Context(), w, types.ReportFormat(format), listOptsFromFlags(cmd)); err != nil {
		return err
	}
	if out != "" {
		fmt.Fprintf(os.Stderr, "Exported to %s\n", out)
	}
	return nil
}

// --- delete subcommand ---

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Remove an archived chart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := chartstore.Open(appCfg.Store)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Printf("Deleted chart %s\n", args[0])
		return nil
	},
}

// --- shared helpers ---

func listOptsFromFlags(cmd *cobra.Command) chartstore.ListOptions {
	name, _ := cmd.Flags().GetString("name")
	limit, _ := cmd.Flags().GetInt("limit")
	return chartstore.ListOptions{FirstName: name, Limit: limit}
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	historyCmd.PersistentFlags().String("store-dir", "", "chart store directory (default data)")

	historyListCmd.Flags().String("name", "", "filter by first name")
	historyListCmd.Flags().Int("limit", 0, "maximum charts to list (0 = 50)")
	historyListCmd.Flags().Bool("json", false, "output as JSON")

	historyShowCmd.Flags().String("format", "", "report format: text, yaml, or json")
	historyShowCmd.Flags().String("lang", "", "report language: en or es")

	historyExportCmd.Flags().String("format", "yaml", "export format: yaml or json")
	historyExportCmd.Flags().String("name", "", "export only charts for this first name")
	historyExportCmd.Flags().String("out", "", "write to a file instead of stdout")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyExportCmd)
	historyCmd.AddCommand(historyDeleteCmd)

	rootCmd.AddCommand(historyCmd)
}
