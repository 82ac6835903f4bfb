package cmd

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/google/renameio"
	"github.com/kozaktomas/attendai/internal/attendance"
	"github.com/kozaktomas/attendai/internal/database"
	"github.com/kozaktomas/attendai/internal/facematch"
	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export attendance records as CSV",
	Long: `Export attendance records as CSV, newest first. Without --output the
CSV is written to standard output.

Examples:
  attendai export --class 10-A --output attendance.csv
  attendai export --date 2026-03-16 --period "Period 2"`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().String("class", "", "Only export this class")
	exportCmd.Flags().String("date", "", "Only export this date (YYYY-MM-DD)")
	exportCmd.Flags().String("period", "", `Only export this period ("3", "P3" or "Period 3")`)
	exportCmd.Flags().Int64("student", 0, "Only export this student ID")
	exportCmd.Flags().StringP("output", "o", "", "Write to this file instead of standard output")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	var filter database.AttendanceFilter
	if class := mustGetString(cmd, "class"); class != "" {
		filter.ClassName = facematch.CanonicalClassName(class)
	}
	if s := mustGetString(cmd, "date"); s != "" {
		date, err := database.ParseDate(s)
		if err != nil {
			return fmt.Errorf("invalid --date %q, expected %s", s, database.DateLayout)
		}
		filter.Date = date
	}
	if s := mustGetString(cmd, "period"); s != "" {
		period, err := attendance.ParsePeriod(s)
		if err != nil {
			return err
		}
		filter.Period = period
	}
	filter.StudentID = mustGetInt64(cmd, "student")

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	records, err := a.backend.Attendance.ListAttendance(ctx, filter)
	if err != nil {
		return fmt.Errorf("listing attendance: %w", err)
	}

	output := mustGetString(cmd, "output")
	if output == "" {
		return attendance.WriteCSV(os.Stdout, records)
	}

	var buf bytes.Buffer
	if err := attendance.WriteCSV(&buf, records); err != nil {
		return err
	}
	if err := renameio.WriteFile(output, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	fmt.Printf("Exported %d records to %s\n", len(records), output)
	return nil
}
