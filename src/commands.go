package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"FlightsDashboard/src/dashboard"
	"FlightsDashboard/src/export"
	"FlightsDashboard/src/processor"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Print the column overview of the dataset",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.logger.Close()
		a.logger.SetConsole(nil)

		env, err := a.server.Env()
		if err != nil {
			return err
		}
		printProfile(env)
		return nil
	},
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write the PDF report and an Excel workbook of every chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.logger.Close()

		if _, err := a.server.Env(); err != nil {
			return err
		}

		out := viper.GetString("report.out")
		if out == "" {
			out = a.cfg.ReportDir
		}
		if err := os.MkdirAll(out, 0755); err != nil {
			return err
		}

		rep, tables := a.server.Report(dashboard.DefaultParams(a.dcfg))

		var pdf bytes.Buffer
		if err := export.WritePDF(&pdf, rep); err != nil {
			return fmt.Errorf("write pdf: %w", err)
		}
		pdfPath := filepath.Join(out, "report.pdf")
		if err := os.WriteFile(pdfPath, pdf.Bytes(), 0644); err != nil {
			return err
		}

		var xlsx bytes.Buffer
		if err := export.WriteWorkbook(&xlsx, tables); err != nil {
			return fmt.Errorf("write workbook: %w", err)
		}
		xlsxPath := filepath.Join(out, "charts.xlsx")
		if err := os.WriteFile(xlsxPath, xlsx.Bytes(), 0644); err != nil {
			return err
		}

		failed := 0
		for _, sec := range rep.Sections {
			if sec.Err != nil {
				failed++
			}
		}
		a.logger.Infof("report written: %s, %s (%d sections, %d failed)", pdfPath, xlsxPath, len(rep.Sections), failed)
		return nil
	},
}

var chartsCmd = &cobra.Command{
	Use:   "charts",
	Short: "List the registered charts",
	Run: func(cmd *cobra.Command, args []string) {
		bold := color.New(color.Bold)
		cyan := color.New(color.FgCyan)
		for _, e := range dashboard.ListCharts() {
			bold.Printf("%-15s", e.Name)
			fmt.Printf(" %s", e.Title)
			if len(e.Widgets) > 0 {
				cyan.Printf("  [%s]", strings.Join(e.Widgets, ", "))
			}
			fmt.Println()
		}
	},
}

func init() {
	reportCmd.Flags().String("out", "", "output directory, defaults to report_dir")
	viper.BindPFlag("report.out", reportCmd.Flags().Lookup("out"))
}

// printProfile 彩色打印列概览, 缺失比例高的列标红
func printProfile(env *dashboard.Env) {
	profiles := processor.ProfileColumns(env.Dataset, processor.ProfileOptions{
		TimestampColumn: env.Data.TimestampColumn,
		NonNumeric:      env.Data.NonNumericColumns,
	})

	header := color.New(color.FgBlue, color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed, color.Bold)

	header.Printf("%-24s %-8s %9s %9s %8s %14s %14s %14s\n",
		"Column", "Type", "Distinct", "Missing", "Miss %", "Min", "Max", "Mean")
	for _, p := range profiles {
		c := green
		switch {
		case p.MissingFrac >= 0.5:
			c = red
		case p.MissingFrac > 0:
			c = yellow
		}
		fmt.Printf("%-24s %-8s %9s ", p.Name, p.Type, processor.FormatCount(p.Distinct))
		c.Printf("%9s %8s", processor.FormatCount(p.Missing), p.MissingPct)
		fmt.Printf(" %14s %14s %14s\n", p.Min, p.Max, p.Mean)
	}
	fmt.Printf("\n%s rows, %d columns, fingerprint %s\n",
		processor.FormatCount(env.Dataset.Flights.Nrow()), env.Dataset.Flights.Ncol(), env.Dataset.Fingerprint)
}
