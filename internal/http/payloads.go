package http

import (
	"bilancio/internal/core"
	"bilancio/internal/report"
	"bilancio/internal/services"
)

type transactionJSON struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	CategoryID  string `json:"category_id"`
	Category    string `json:"category"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Date        string `json:"date"`
	Description string `json:"description,omitempty"`
}

type categoryJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type paramsJSON struct {
	Filter string `json:"filter"`
	Sort   string `json:"sort"`
	Order  string `json:"order"`
	Page   int    `json:"page"`
}

type paginationJSON struct {
	Page       int `json:"page"`
	TotalPages int `json:"total_pages"`
	Count      int `json:"count"`
	PageSize   int `json:"page_size"`
}

type transactionsPageJSON struct {
	Params       paramsJSON        `json:"params"`
	Transactions []transactionJSON `json:"transactions"`
	Pagination   paginationJSON    `json:"pagination"`
}

type amountJSON struct {
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
}

type categoryAmountJSON struct {
	Name string `json:"name"`
	amountJSON
}

type totalsJSON struct {
	Income  amountJSON `json:"income"`
	Expense amountJSON `json:"expense"`
	Balance amountJSON `json:"balance"`
}

type summaryJSON struct {
	Totals     totalsJSON           `json:"totals"`
	ByCategory []categoryAmountJSON `json:"by_category"`
}

type chartsJSON struct {
	Line        report.LineChart `json:"line"`
	CategoryPie report.PieChart  `json:"category_pie"`
	TypePie     report.PieChart  `json:"type_pie"`
}

type dashboardJSON struct {
	transactionsPageJSON
	Summary    summaryJSON    `json:"summary"`
	Charts     chartsJSON     `json:"charts"`
	Categories []categoryJSON `json:"categories"`
	Error      string         `json:"error,omitempty"`
	Busy       bool           `json:"busy"`
}

func toTransactionJSON(tx core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          tx.ID,
		Type:        tx.Type.String(),
		CategoryID:  tx.CategoryID,
		Category:    tx.CategoryName,
		Amount:      tx.Amount.String(),
		AmountCents: tx.Amount.Cents,
		Date:        tx.Date.String(),
		Description: tx.Description,
	}
}

func toCategoriesJSON(cats []core.Category) []categoryJSON {
	out := make([]categoryJSON, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryJSON{ID: c.ID, Name: c.Name})
	}
	return out
}

func toParamsJSON(p core.Params) paramsJSON {
	return paramsJSON{Filter: string(p.Filter), Sort: string(p.Sort), Order: string(p.Order), Page: p.Page}
}

func toAmountJSON(cents int64) amountJSON {
	return amountJSON{Amount: core.Money{Cents: cents}.String(), AmountCents: cents}
}

func toPageJSON(v services.View, pageSize int) transactionsPageJSON {
	txs := make([]transactionJSON, 0, len(v.Page.Transactions))
	for _, tx := range v.Page.Transactions {
		txs = append(txs, toTransactionJSON(tx))
	}
	return transactionsPageJSON{
		Params:       toParamsJSON(v.Params),
		Transactions: txs,
		Pagination: paginationJSON{
			Page:       v.Page.Pagination.Page,
			TotalPages: v.Page.Pagination.TotalPages,
			Count:      v.Page.Pagination.Count,
			PageSize:   pageSize,
		},
	}
}

func toSummaryJSON(s report.Summary) summaryJSON {
	out := summaryJSON{
		Totals: totalsJSON{
			Income:  toAmountJSON(s.Totals.Income.Cents),
			Expense: toAmountJSON(s.Totals.Expense.Cents),
			Balance: toAmountJSON(s.Totals.Balance()),
		},
		ByCategory: make([]categoryAmountJSON, 0, len(s.ByCategory)),
	}
	for _, c := range s.ByCategory {
		out.ByCategory = append(out.ByCategory, categoryAmountJSON{Name: c.Name, amountJSON: toAmountJSON(c.Amount.Cents)})
	}
	return out
}

func toChartsJSON(v services.View) chartsJSON {
	return chartsJSON{
		Line:        report.NewLineChart(v.Series),
		CategoryPie: report.NewCategoryPie(v.Summary.ByCategory),
		TypePie:     report.NewTypePie(v.Summary.Totals),
	}
}

func toDashboardJSON(v services.View, st services.SessionState, pageSize int) dashboardJSON {
	return dashboardJSON{
		transactionsPageJSON: toPageJSON(v, pageSize),
		Summary:              toSummaryJSON(v.Summary),
		Charts:               toChartsJSON(v),
		Categories:           toCategoriesJSON(v.Categories),
		Error:                st.Error,
		Busy:                 st.Busy,
	}
}
