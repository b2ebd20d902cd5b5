package charts

import (
	"encoding/json"
	"fmt"

	"github.com/digitalka/monthly-sales/consts"
	"github.com/digitalka/monthly-sales/report"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// BuildMonthlySalesChart returns a bar chart with one bar per month, or nil when there is no data
func BuildMonthlySalesChart(sales report.MonthlySales, currency string) *charts.Bar {
	if sales.Len() == 0 {
		return nil
	}

	data := make([]opts.BarData, sales.Len())
	for i, pt := range sales {
		data[i] = opts.BarData{Value: pt.Total.InexactFloat64()}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Width:           consts.ChartWidth,
			Height:          consts.ChartHeight,
			BackgroundColor: consts.ChartBackgroundColor,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:      consts.MenuTitle,
			TitleStyle: &opts.TextStyle{Color: consts.ChartTextColor},
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(false),
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:         consts.CSVMonthHeader,
			NameLocation: "center",
			NameGap:      30,
			AxisLabel: &opts.AxisLabel{
				Color: consts.ChartTextColor,
			},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:         fmt.Sprintf("%s (%s)", consts.CSVTotalHeader, currency),
			NameLocation: "center",
			NameGap:      70,
			AxisLabel: &opts.AxisLabel{
				Color: consts.ChartTextColor,
			},
		}),
		charts.WithGridOpts(opts.Grid{
			Left:   "100",
			Bottom: "60",
		}),
	)

	bar.SetXAxis(sales.Periods()).
		AddSeries(consts.CSVTotalHeader, data, charts.WithItemStyleOpts(opts.ItemStyle{
			Color: consts.ChartBarColor,
		}))

	return bar
}

// OptionsJSON renders the chart options for echarts.setOption. Returns nil when there is no data.
func OptionsJSON(sales report.MonthlySales, currency string) ([]byte, error) {
	bar := BuildMonthlySalesChart(sales, currency)
	if bar == nil {
		return nil, nil
	}
	bar.Validate()
	data, err := json.Marshal(bar.JSON())
	if err != nil {
		return nil, fmt.Errorf("marshalling chart options: %w", err)
	}
	return data, nil
}
