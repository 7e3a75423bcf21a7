package report

import "bilancio/internal/core"

// ChartPoint is a single data point of a line dataset.
type ChartPoint struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// LineDataset is one line of a line chart.
type LineDataset struct {
	Label           string       `json:"label"`
	Data            []ChartPoint `json:"data"`
	BorderColor     string       `json:"borderColor"`
	BackgroundColor string       `json:"backgroundColor"`
	Tension         float64      `json:"tension"`
}

// LineChart represents data for the amounts-over-time chart.
type LineChart struct {
	ChartType string        `json:"chart_type"`
	Title     string        `json:"title"`
	Datasets  []LineDataset `json:"datasets"`
}

// PieSlice represents a single pie slice.
type PieSlice struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
	Color string  `json:"color,omitempty"`
}

// PieChart represents data for pie charts.
type PieChart struct {
	ChartType string     `json:"chart_type"`
	Title     string     `json:"title"`
	Data      []PieSlice `json:"data"`
	Total     float64    `json:"total"`
}

var typeColors = map[core.TransactionType][2]string{
	core.Income:  {"rgba(75, 192, 192, 1)", "rgba(75, 192, 192, 0.2)"},
	core.Expense: {"rgba(255, 99, 132, 1)", "rgba(255, 99, 132, 0.2)"},
}

// Palette colors pie slices by position, wrapping around.
var Palette = []string{
	"#FF6384", "#36A2EB", "#FFCE56", "#4BC0C0",
	"#9966FF", "#FF9F40", "#C9CBCF", "#8BC34A",
}

func paletteColor(i int) string {
	return Palette[i%len(Palette)]
}

var typeLabels = map[core.TransactionType]string{
	core.Income:  "Income",
	core.Expense: "Expenses",
}

// NewLineChart builds one dataset per transaction type, income first.
func NewLineChart(ts TimeSeries) LineChart {
	chart := LineChart{ChartType: "line", Title: "Transactions over time"}
	for _, t := range core.TransactionTypes() {
		points := ts.For(t)
		data := make([]ChartPoint, 0, len(points))
		for _, p := range points {
			data = append(data, ChartPoint{Label: p.Label, Value: p.Amount.Float()})
		}
		colors := typeColors[t]
		chart.Datasets = append(chart.Datasets, LineDataset{
			Label:           typeLabels[t],
			Data:            data,
			BorderColor:     colors[0],
			BackgroundColor: colors[1],
			Tension:         0.1,
		})
	}
	return chart
}

// NewCategoryPie builds the expenses-by-category pie.
func NewCategoryPie(byCategory []core.CategoryAmount) PieChart {
	chart := PieChart{ChartType: "pie", Title: "Expenses by category", Data: []PieSlice{}}
	var total core.Money
	for i, c := range byCategory {
		chart.Data = append(chart.Data, PieSlice{
			Label: c.Name,
			Value: c.Amount.Float(),
			Color: paletteColor(i),
		})
		total = total.Add(c.Amount)
	}
	chart.Total = total.Float()
	return chart
}

// NewTypePie builds the income-versus-expenses pie. Types with no amount
// are left out.
func NewTypePie(t Totals) PieChart {
	chart := PieChart{ChartType: "pie", Title: "Income vs expenses", Data: []PieSlice{}}
	amounts := map[core.TransactionType]core.Money{core.Income: t.Income, core.Expense: t.Expense}
	for _, typ := range core.TransactionTypes() {
		m := amounts[typ]
		if m.Cents == 0 {
			continue
		}
		chart.Data = append(chart.Data, PieSlice{
			Label: typeLabels[typ],
			Value: m.Float(),
			Color: typeColors[typ][0],
		})
	}
	chart.Total = t.Income.Add(t.Expense).Float()
	return chart
}
