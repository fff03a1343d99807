// Command rmi-cmms runs the CMMS health calculators over CSV exports
// without a running server. It is the offline companion to the scoring
// service, meant for quick checks during site visits.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/maintiq/rmi/internal/adapters/tabular"
	"github.com/maintiq/rmi/internal/domain/cmms"
	"github.com/spf13/cobra"
)

var (
	jsonOutput bool
	graceDays  int
	sampleSize int
)

var rootCmd = &cobra.Command{
	Use:   "rmi-cmms",
	Short: "Analyze CMMS work order and PM exports for reliability red flags",
	Long: `rmi-cmms runs the maintenance data calculators over raw CSV exports:
reactive work ratio, PM compliance, closure note quality and the work
type distribution. Column headers are matched against common CMMS
aliases, so exports from most systems work unmodified.`,
}

var workOrdersCmd = &cobra.Command{
	Use:   "workorders <file.csv>",
	Short: "Analyze a work order export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadTable(args[0], tabular.New())
		if err != nil {
			return err
		}

		report, err := cmms.AnalyzeWorkOrders(table)
		if err != nil {
			return fmt.Errorf("analyze %s: %w", args[0], err)
		}

		if jsonOutput {
			return printJSON(report)
		}
		printWorkOrderReport(report)
		return nil
	},
}

var pmCmd = &cobra.Command{
	Use:   "pm <file.csv>",
	Short: "Analyze a preventive maintenance export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadTable(args[0], tabular.New(tabular.WithAliases(tabular.DefaultPMAliases())))
		if err != nil {
			return err
		}

		result, err := cmms.PMCompliance(table, cmms.WithGraceDays(graceDays))
		if err != nil {
			return fmt.Errorf("analyze %s: %w", args[0], err)
		}

		if jsonOutput {
			return printJSON(result)
		}
		printPMResult(result)
		return nil
	},
}

var integrityCmd = &cobra.Command{
	Use:   "integrity <file.csv>",
	Short: "Audit a CMMS export against ISO 14224 data structure requirements",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		table, err := loadTable(args[0], tabular.New(tabular.WithAliases(tabular.DefaultIntegrityAliases())))
		if err != nil {
			return err
		}

		audit, err := cmms.AuditDataIntegrity(table)
		if err != nil {
			return fmt.Errorf("audit %s: %w", args[0], err)
		}

		if jsonOutput {
			return printJSON(audit)
		}
		printIntegrityAudit(audit)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output result as JSON")
	rootCmd.PersistentFlags().IntVar(&sampleSize, "sample", 0, "Analyze a random sample of N rows (0 = all)")
	pmCmd.Flags().IntVar(&graceDays, "grace-days", cmms.DefaultGraceDays, "Days past due still counted as on time")

	rootCmd.AddCommand(workOrdersCmd)
	rootCmd.AddCommand(pmCmd)
	rootCmd.AddCommand(integrityCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadTable(path string, loader *tabular.Loader) (*cmms.Table, error) {
	table, err := loader.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if sampleSize > 0 && sampleSize < table.Len() {
		table = &cmms.Table{
			Columns: table.Columns,
			Rows:    tabular.Sample(table, sampleSize, 0),
		}
	}
	return table, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printWorkOrderReport(r cmms.WorkOrderReport) {
	fmt.Printf("Work orders analyzed: %d\n", r.Reactive.TotalWorkOrders)
	fmt.Printf("Reactive: %d (%.1f%%)  Planned: %d\n",
		r.Reactive.ReactiveCount, r.Reactive.ReactivePercentage, r.Reactive.PreventiveCount)
	fmt.Printf("Verdict: %s (score %d/5)\n", r.Reactive.Severity, r.Reactive.Score)
	if r.Reactive.ReactiveSpiral {
		fmt.Println("WARNING: site is in a reactive spiral")
	}

	if r.NoteQuality != nil {
		fmt.Printf("\nClosure notes: %d of %d too thin for root cause analysis (%.1f%%)\n",
			r.NoteQuality.PoorQualityCount, r.NoteQuality.TotalRecords, r.NoteQuality.PoorQualityPercentage)
		fmt.Printf("Verdict: %s (score %d/5)\n", r.NoteQuality.Severity, r.NoteQuality.Score)
	}

	if len(r.Distribution) > 0 {
		fmt.Println("\nWork type distribution:")
		for _, share := range r.Distribution {
			fmt.Printf("  %-30s %5d  %5.1f%%\n", share.Type, share.Count, share.Percentage)
		}
	}

	if len(r.BadActors) > 0 {
		fmt.Println("\nBad actors (failure work orders per asset):")
		for _, actor := range r.BadActors {
			fmt.Printf("  %-30s %5d\n", actor.Asset, actor.FailureCount)
		}
	}
}

func printIntegrityAudit(a cmms.IntegrityAudit) {
	fmt.Printf("Checks: %d  Passed: %d  Failed: %d  Pass rate: %.1f%%\n",
		a.TotalChecks, a.PassedChecks, a.FailedChecks, a.PassRate)
	fmt.Printf("Verdict: %s (score %d/5)\n\n", a.ComplianceLabel, a.ComplianceScore)
	for _, c := range a.Checks {
		status := "PASS"
		if !c.Passed {
			status = "FAIL"
		}
		fmt.Printf("  [%s] %-50s %s\n", status, c.Item, c.Notes)
	}
}

func printPMResult(r cmms.PMResult) {
	fmt.Printf("PMs analyzed: %d (grace window %d days)\n", r.TotalPMs, r.GraceDays)
	fmt.Printf("On time: %d  Late: %d  Compliance: %.1f%%\n", r.OnTimeCount, r.LateCount, r.CompliancePercentage)
	if r.LateCount > 0 {
		fmt.Printf("Average days late: %.1f\n", r.AverageDaysLate)
	}
	fmt.Printf("Verdict: %s (score %d/5)\n", r.Severity, r.Score)
}
