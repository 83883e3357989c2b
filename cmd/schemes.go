package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilianp07/vaxcal/core/catalog"
)

var schemesCmd = &cobra.Command{
	Use:   "schemes [scheme]",
	Short: "List schemes, or the vaccines of one scheme",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSchemes,
}

func init() {
	rootCmd.AddCommand(schemesCmd)
}

func runSchemes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Catalog.File != "" {
		if err := registerCatalog(cfg.Catalog.File); err != nil {
			return err
		}
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	bold := color.New(color.Bold)
	if len(args) == 0 {
		fmt.Fprintln(tw, bold.Sprint("ID")+"\t"+bold.Sprint("NAME")+"\t")
		for _, s := range catalog.Schemes() {
			name := s.Name
			if s.Default {
				name += " " + color.GreenString("(default)")
			}
			fmt.Fprintf(tw, "%s\t%s\t\n", s.ID, name)
		}
		return tw.Flush()
	}

	p, err := catalog.NewProvider(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(tw, bold.Sprint("ID")+"\t"+bold.Sprint("VACCINE")+"\t"+bold.Sprint("SELECTED")+"\t"+bold.Sprint("OFFSETS (days)")+"\t")
	for _, v := range p.Vaccines() {
		offsets := make([]string, len(v.Offsets()))
		for i, o := range v.Offsets() {
			offsets[i] = fmt.Sprint(o)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t\n", v.ID(), v.Name(), mark(v.Selected()), strings.Join(offsets, ", "))
	}
	return tw.Flush()
}

func mark(ok bool) string {
	if ok {
		return color.New(color.Bold, color.FgGreen).Sprint("yes")
	}
	return color.New(color.FgRed).Sprint("no")
}

func registerCatalog(path string) error {
	f, err := catalog.LoadFile(path)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	if catalog.DefaultScheme() == f.Scheme.ID {
		return nil
	}
	for _, name := range catalog.Registered() {
		if name == f.Scheme.ID {
			return nil
		}
	}
	return catalog.RegisterFile(f)
}
