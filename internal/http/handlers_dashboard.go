package http

import (
	"net/http"
	"strings"

	"bilancio/internal/report"
)

// handleDashboard returns everything a client renders for one set of params:
// the page, the aggregates, the charts and the session status.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	v, ok := s.view(w, r, sess)
	if !ok {
		return
	}

	st := sess.State()
	st.Busy = st.Busy || s.svc.Busy()
	NewJSONResponse().Body(toDashboardJSON(v, st, s.svc.PageSize())).Write(w)
}

func (s *Server) handleLineChart(w http.ResponseWriter, r *http.Request) {
	v, ok := s.view(w, r, s.session(w, r))
	if !ok {
		return
	}
	NewJSONResponse().Body(report.NewLineChart(v.Series)).Write(w)
}

// handlePieChart serves the expenses-by-category pie, or with kind=type the
// income-versus-expenses pie.
func (s *Server) handlePieChart(w http.ResponseWriter, r *http.Request) {
	kind := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("kind")))
	if kind != "" && kind != "category" && kind != "type" {
		BadRequestError("Kind must be category or type").Write(w)
		return
	}

	v, ok := s.view(w, r, s.session(w, r))
	if !ok {
		return
	}
	if kind == "type" {
		NewJSONResponse().Body(report.NewTypePie(v.Summary.Totals)).Write(w)
		return
	}
	NewJSONResponse().Body(report.NewCategoryPie(v.Summary.ByCategory)).Write(w)
}
