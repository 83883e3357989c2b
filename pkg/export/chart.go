package export

import (
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/kilianp07/vaxcal/core/schedule"
)

// ChartOptions tune WriteChart.
type ChartOptions struct {
	Title string
}

// WriteChart renders an HTML page with a stacked bar chart of doses per
// calendar year, one series per vaccine.
func WriteChart(w io.Writer, entries []schedule.EntryView, o ChartOptions) error {
	if o.Title == "" {
		o.Title = "Vaccination calendar"
	}
	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: o.Title}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Year"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Doses"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)

	years, series, order := bucketByYear(entries)
	xAxis := make([]string, len(years))
	for i, y := range years {
		xAxis[i] = strconv.Itoa(y)
	}
	bar.SetXAxis(xAxis)
	for _, name := range order {
		data := make([]opts.BarData, len(years))
		for i, y := range years {
			data[i] = opts.BarData{Value: series[name][y]}
		}
		bar.AddSeries(name, data, charts.WithBarChartOpts(opts.BarChart{Stack: "doses"}))
	}
	return bar.Render(w)
}

// bucketByYear counts doses per vaccine and year. Years span the first to
// the last visit without gaps; vaccine order follows first appearance.
func bucketByYear(entries []schedule.EntryView) ([]int, map[string]map[int]int, []string) {
	series := map[string]map[int]int{}
	var order []string
	if len(entries) == 0 {
		return nil, series, nil
	}
	first, last := entries[0].Date.Year(), entries[len(entries)-1].Date.Year()
	for _, e := range entries {
		for _, d := range e.Doses {
			counts, ok := series[d.Vaccine]
			if !ok {
				counts = map[int]int{}
				series[d.Vaccine] = counts
				order = append(order, d.Vaccine)
			}
			counts[e.Date.Year()]++
		}
	}
	years := make([]int, 0, last-first+1)
	for y := first; y <= last; y++ {
		years = append(years, y)
	}
	return years, series, order
}
