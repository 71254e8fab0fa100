package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/kozaktomas/facewatch/internal/attendance"
	"github.com/kozaktomas/facewatch/internal/config"
	"github.com/kozaktomas/facewatch/internal/logger"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var attendanceCmd = &cobra.Command{
	Use:   "attendance",
	Short: "Daily attendance commands",
}

var attendanceGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Aggregate presence events into attendance rows",
	Long: `Aggregate the closed presence windows of known people into one attendance
row per person and day. Re-running a day overwrites its rows.

Examples:
  facewatch attendance generate                       # yesterday
  facewatch attendance generate --date 2024-05-01
  facewatch attendance generate --from 2024-05-01 --to 2024-05-31
  facewatch attendance generate --date 2024-05-01 --json`,
	Args: cobra.NoArgs,
	RunE: runAttendanceGenerate,
}

func init() {
	rootCmd.AddCommand(attendanceCmd)
	attendanceCmd.AddCommand(attendanceGenerateCmd)

	attendanceGenerateCmd.Flags().String("date", "", "Day to aggregate (YYYY-MM-DD, default yesterday)")
	attendanceGenerateCmd.Flags().String("from", "", "First day of a range (YYYY-MM-DD)")
	attendanceGenerateCmd.Flags().String("to", "", "Last day of a range, inclusive (YYYY-MM-DD)")
	attendanceGenerateCmd.Flags().Bool("json", false, "Output as JSON")
}

// attendanceDays resolves the --date/--from/--to flags into a list of days.
func attendanceDays(date, from, to string, now time.Time, loc *time.Location) ([]time.Time, error) {
	if date != "" && (from != "" || to != "") {
		return nil, errors.New("--date cannot be combined with --from/--to")
	}
	if date != "" {
		d, err := attendance.ParseDate(date, loc)
		if err != nil {
			return nil, err
		}
		return []time.Time{d}, nil
	}
	if from == "" && to == "" {
		return []time.Time{attendance.Yesterday(now, loc)}, nil
	}
	if from == "" || to == "" {
		return nil, errors.New("--from and --to must be used together")
	}
	start, err := attendance.ParseDate(from, loc)
	if err != nil {
		return nil, err
	}
	end, err := attendance.ParseDate(to, loc)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("--to %s is before --from %s", to, from)
	}
	var days []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days, nil
}

func runAttendanceGenerate(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger.Setup(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	jsonOutput := mustGetBool(cmd, "json")

	if cfg.Database.URL == "" {
		return errors.New("DATABASE_URL environment variable is required")
	}

	loc := cfg.Attendance.Location()
	days, err := attendanceDays(mustGetString(cmd, "date"), mustGetString(cmd, "from"), mustGetString(cmd, "to"), time.Now(), loc)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeStore()

	agg := attendance.NewAggregator(store, loc, nil)

	var bar *progressbar.ProgressBar
	if !jsonOutput && len(days) > 1 {
		bar = progressbar.NewOptions(len(days),
			progressbar.OptionSetDescription("Aggregating attendance"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetItsString("days"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
		)
	}

	results := make([]*attendance.Result, 0, len(days))
	var errs []error
	for _, day := range days {
		res, err := agg.Generate(ctx, day)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", day.Format(time.DateOnly), err))
		}
		if res != nil {
			results = append(results, res)
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		fmt.Println()
	}

	if jsonOutput {
		if err := outputJSON(results); err != nil {
			return err
		}
	} else {
		for _, res := range results {
			fmt.Printf("%s: %d events, %d people, %d skipped\n",
				res.Date.Format(time.DateOnly), res.Events, len(res.Records), res.Skipped)
		}
	}
	return errors.Join(errs...)
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}
