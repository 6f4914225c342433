// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pdiddy/natal-engine/internal/chartstore"
	"github.com/pdiddy/natal-engine/internal/mail"
	"github.com/pdiddy/natal-engine/internal/report"
)

var chartCmd = &cobra.Command{
	Use:   "chart",
	Short: "Compute a birth chart and write it as a report",
	Long: `Chart computes positions like the positions command, then writes a
report named planetary_positions_<name>.<ext> to --out-dir. With --save the
chart is archived for the history command. With --send and --email the
report is mailed as an attachment; a delivery failure is reported but
leaves the written report in place.`,
	Example: `  natal-engine chart --name Ana --date 1994-04-18 --time 00:00 --tz America/New_York --city "New York" --country US
  natal-engine chart --name Ana --at 1994-04-18T04:00:00Z --lat 40.7128 --lon -74.006 --format yaml --save`,
	RunE: runChart,
}

func init() {
	addComputeFlags(chartCmd)
	chartCmd.Flags().String("name", "", "first name of the chart subject (required)")
	chartCmd.Flags().String("email", "", "subject's email, shown in the report and used by --send")
	chartCmd.Flags().String("format", "", "report format: text, yaml, or json")
	chartCmd.Flags().String("lang", "", "report language: en or es")
	chartCmd.Flags().String("out-dir", "", "directory for reports (default reports)")
	chartCmd.Flags().Bool("send", false, "email the report to --email")
	chartCmd.Flags().Bool("save", false, "archive the chart in the chart store")
	chartCmd.Flags().String("store-dir", "", "chart store directory (default data)")

	rootCmd.AddCommand(chartCmd)
}

func runChart(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	email, _ := cmd.Flags().GetString("email")
	send, _ := cmd.Flags().GetBool("send")
	save, _ := cmd.Flags().GetBool("save")

	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("--name is required")
	}
	if send && email == "" {
		return fmt.Errorf("--send needs --email")
	}
	lang, err := report.LookupLanguage(appCfg.Report.Language)
	if err != nil {
		return err
	}

	rs, address, err := computeFromFlags(cmd)
	if err != nil {
		return err
	}
	if address != "" {
		fmt.Fprintf(os.Stdout, "Location: %s\n", address)
	}

	path, err := report.Write(report.Chart{FirstName: name, Email: email, Positions: rs}, appCfg.Report)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Calculation completed for %s\n", name)
	fmt.Fprintf(os.Stdout, "Results saved to: %s\n\n", path)
	printPositions(rs, lang)

	if save {
		store, err := chartstore.Open(appCfg.Store)
		if err != nil {
			return err
		}
		defer store.Close()
		id, err := store.Save(cmd.Context(), name, email, rs)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "\nSaved chart %s\n", id)
	}

	if send {
		if err := sendReport(cmd.Context(), email, name, path); err != nil {
			logger.Error("mail delivery failed", zap.String("to", email), zap.Error(err))
			return fmt.Errorf("report written to %s but sending failed: %w", path, err)
		}
		fmt.Fprintf(os.Stdout, "Results emailed to %s\n", email)
	}
	return nil
}

func sendReport(ctx context.Context, to, name, path string) error {
	msg, err := mail.ChartMessage(to, name, path)
	if err != nil {
		return err
	}
	var sender mail.Sender = mail.NewSMTP(appCfg.Mail, logger)
	return sender.Send(ctx, msg)
}
