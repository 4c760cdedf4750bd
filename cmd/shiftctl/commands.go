package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mamadbah2/shiftlog/internal/domain/models"
	"github.com/mamadbah2/shiftlog/internal/repository/records"
	"github.com/mamadbah2/shiftlog/internal/service/deletion"
	"github.com/mamadbah2/shiftlog/internal/service/notify"
	"github.com/mamadbah2/shiftlog/internal/service/shift"
)

type rootOptions struct {
	envFile  string
	logLevel string
}

func newRootCmd(open opener) *cobra.Command {
	var opts rootOptions

	root := &cobra.Command{
		Use:           "shiftctl",
		Short:         "Inspect and maintain the shift production logs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", "", "dotenv file to load before the environment")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level written to stderr")

	// withApp opens the app around a command body.
	var withApp wrapper = func(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			a, err := open(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = a.close() }()
			return run(cmd, a, args)
		}
	}

	root.AddCommand(
		newMachinesCmd(withApp),
		newSummaryCmd(withApp),
		newExportCmd(withApp),
		newReportCmd(withApp),
		newRowsCmd(withApp),
		newDeleteCmd(withApp),
	)
	return root
}

type wrapper func(run func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error

func newMachinesCmd(with wrapper) *cobra.Command {
	return &cobra.Command{
		Use:   "machines",
		Short: "List the machines entries can be logged against",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, a *app, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME")
			for _, m := range a.roster.Machines() {
				fmt.Fprintf(w, "%s\t%s\n", m.ID, m.Name)
			}
			return w.Flush()
		}),
	}
}

func newSummaryCmd(with wrapper) *cobra.Command {
	var by string
	cmd := &cobra.Command{
		Use:   "summary <table>",
		Short: "Print the shift or monthly totals of a table as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(cmd *cobra.Command, a *app, args []string) error {
			table, err := models.ParseTableName(args[0])
			if err != nil {
				return err
			}
			switch by {
			case "shift":
				return a.reporting.ExportShiftCSV(cmd.Context(), table, cmd.OutOrStdout())
			case "month":
				return a.reporting.ExportMonthlyCSV(cmd.Context(), table, cmd.OutOrStdout())
			default:
				return fmt.Errorf("--by must be shift or month, got %q", by)
			}
		}),
	}
	cmd.Flags().StringVar(&by, "by", "shift", "grouping: shift or month")
	return cmd
}

func newExportCmd(with wrapper) *cobra.Command {
	var (
		out  string
		xlsx bool
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the summaries of every table to a directory",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, a *app, _ []string) error {
			paths, err := a.reporting.ExportAll(cmd.Context(), out, xlsx)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&out, "out", "exports", "output directory")
	cmd.Flags().BoolVar(&xlsx, "xlsx", false, "also write one workbook per table")
	return cmd
}

func newReportCmd(with wrapper) *cobra.Command {
	var date, label string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the report of a shift, the last closed one by default",
		Args:  cobra.NoArgs,
		RunE: with(func(cmd *cobra.Command, a *app, _ []string) error {
			last := a.reporting.LastClosedShift()
			d, l := last.Date, last.Shift
			if date != "" {
				d = date
			}
			if label != "" {
				parsed, err := shift.ParseLabel(label)
				if err != nil {
					return err
				}
				l = parsed
			}
			report, err := a.reporting.ShiftReport(cmd.Context(), d, l)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), notify.FormatShiftReport(report))
			return nil
		}),
	}
	cmd.Flags().StringVar(&date, "date", "", "date the shift started, 2006-01-02")
	cmd.Flags().StringVar(&label, "shift", "", "shift label, A or B")
	return cmd
}

func newRowsCmd(with wrapper) *cobra.Command {
	var filter struct {
		date, shift, machine string
	}
	cmd := &cobra.Command{
		Use:   "rows <table>",
		Short: "List rows narrowed by date, shift and machine with their delete index",
		Args:  cobra.ExactArgs(1),
		RunE: with(func(cmd *cobra.Command, a *app, args []string) error {
			table, err := models.ParseTableName(args[0])
			if err != nil {
				return err
			}
			f := deletion.Filter{Date: filter.date, Machine: filter.machine}
			if filter.shift != "" {
				if f.Shift, err = shift.ParseLabel(filter.shift); err != nil {
					return err
				}
			}
			return printCandidates(cmd, table, a, f)
		}),
	}
	cmd.Flags().StringVar(&filter.date, "date", "", "keep rows of this date")
	cmd.Flags().StringVar(&filter.shift, "shift", "", "keep rows of this shift")
	cmd.Flags().StringVar(&filter.machine, "machine", "", "keep rows of this machine")
	return cmd
}

func printCandidates(cmd *cobra.Command, table models.TableName, a *app, f deletion.Filter) error {
	rows, err := a.deletion.Candidates(cmd.Context(), table, f)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "no entries")
		return nil
	}

	columns := models.MustSchema(table).Columns
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	header := []string{"INDEX", "ENTRY ID", "DATE & TIME", "SHIFT", "MACHINE"}
	for _, c := range columns {
		header = append(header, strings.ToUpper(c.Name))
	}
	fmt.Fprintln(w, strings.Join(header, "\t"))
	for _, r := range rows {
		cells := []string{strconv.Itoa(r.Index), r.ID, r.Values[models.ColDateTime], r.Values[models.ColShift], r.Values[models.ColMachine]}
		for _, c := range columns {
			cells = append(cells, r.Values[c.Name])
		}
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	return w.Flush()
}

func newDeleteCmd(with wrapper) *cobra.Command {
	var id string
	cmd := &cobra.Command{
		Use:   "delete <table> <index>",
		Short: "Delete one row, refusing if the table changed since it was listed",
		Args:  cobra.ExactArgs(2),
		RunE: with(func(cmd *cobra.Command, a *app, args []string) error {
			table, err := models.ParseTableName(args[0])
			if err != nil {
				return err
			}
			index, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("row index %q: %w", args[1], err)
			}
			if err := a.deletion.Delete(cmd.Context(), table, records.RowRef{Index: index, ID: id}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted row %d from %s\n", index, table)
			return nil
		}),
	}
	cmd.Flags().StringVar(&id, "id", "", "entry id the row must still carry")
	return cmd
}
