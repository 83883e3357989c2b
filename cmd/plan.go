package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilianp07/vaxcal/app"
	"github.com/kilianp07/vaxcal/core/bounds"
	"github.com/kilianp07/vaxcal/core/calendar"
	"github.com/kilianp07/vaxcal/core/planner"
	"github.com/kilianp07/vaxcal/core/schedule"
	"github.com/kilianp07/vaxcal/pkg/export"
)

const formatTable = "table"

type planFlags struct {
	dob     string
	first   string
	scheme  string
	selects []int
	drops   []int
	moves   []string
	format  string
	out     string
	license bool
}

var planOpts planFlags

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Compute a vaccination calendar",
	RunE:  runPlan,
}

func init() {
	f := planCmd.Flags()
	f.StringVar(&planOpts.dob, "dob", "", "date of birth (YYYY-MM-DD)")
	f.StringVar(&planOpts.first, "first", "", "first vaccination date, defaults to the date of birth")
	f.StringVar(&planOpts.scheme, "scheme", "", "scheme id, defaults to the configured scheme")
	f.IntSliceVar(&planOpts.selects, "select", nil, "exact set of vaccine ids to schedule")
	f.IntSliceVar(&planOpts.drops, "drop", nil, "vaccine ids to remove after scheduling")
	f.StringSliceVar(&planOpts.moves, "move", nil, "entry moves as FROM=TO")
	f.StringVarP(&planOpts.format, "format", "f", formatTable, "output format: table, csv, json, ics or html")
	f.StringVarP(&planOpts.out, "out", "o", "", "output file, defaults to stdout")
	f.BoolVar(&planOpts.license, "accept-license", true, "accept the license terms")
	_ = planCmd.MarkFlagRequired("dob")
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	if planOpts.format != formatTable && !export.Supported(planOpts.format) {
		return fmt.Errorf("%w: %q", export.ErrUnknownFormat, planOpts.format)
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	s, err := svc.NewSession(planOpts.scheme)
	if err != nil {
		return err
	}
	entries, err := buildPlan(cmd.Context(), s, planOpts)
	if err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if planOpts.out != "" {
		f, err := os.Create(planOpts.out)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	if planOpts.format == formatTable {
		return writeTable(w, entries)
	}
	return export.Write(w, planOpts.format, entries)
}

func buildPlan(ctx context.Context, s *planner.Session, o planFlags) ([]schedule.EntryView, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if o.selects != nil {
		if err := s.Select(ctx, o.selects...); err != nil {
			return nil, err
		}
	}
	form := bounds.Form{LicenseAccepted: o.license}
	form.SetDateOfBirth(o.dob)
	if o.first != "" {
		form.FirstVaccination = o.first
	}
	s.SetForm(form)
	if _, err := s.Submit(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", planner.Reason(err), err)
	}
	for _, m := range o.moves {
		from, to, ok := strings.Cut(m, "=")
		if !ok {
			return nil, fmt.Errorf("move %q: expected FROM=TO", m)
		}
		d, err := calendar.Parse(from)
		if err != nil {
			return nil, err
		}
		if err := s.MoveEntry(ctx, d, to); err != nil {
			return nil, fmt.Errorf("move %s: %w", m, err)
		}
	}
	for _, id := range o.drops {
		if _, err := s.RemoveAllOfType(ctx, id); err != nil {
			return nil, fmt.Errorf("drop %d: %w", id, err)
		}
	}
	return s.View()
}

func writeTable(w io.Writer, entries []schedule.EntryView) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	bold := color.New(color.Bold)
	fmt.Fprintln(tw, bold.Sprint("DATE")+"\t"+bold.Sprint("DOSES")+"\t")
	doses := 0
	for _, e := range entries {
		names := make([]string, len(e.Doses))
		for i, d := range e.Doses {
			names[i] = d.Name
		}
		doses += len(e.Doses)
		fmt.Fprintf(tw, "%s\t%s\t\n", color.CyanString(e.Date.String()), strings.Join(names, ", "))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d visits, %d doses\n", len(entries), doses)
	return err
}
