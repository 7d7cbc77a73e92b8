package http

import (
	"log/slog"
	"net/http"

	"salarybook/internal/core"
)

type summaryView struct {
	EmployeeCount  int
	TotalSalary    string
	TotalWithdrawn string
	TotalRemaining string
	Recent         []recentRowView
}

type recentRowView struct {
	EmployeeID   int64
	EmployeeName string
	Date         string
	Amount       string
	Note         string
}

func newSummaryView(sum core.DashboardSummary) summaryView {
	v := summaryView{
		EmployeeCount:  sum.EmployeeCount,
		TotalSalary:    core.FormatAmount(sum.TotalSalary),
		TotalWithdrawn: core.FormatAmount(sum.TotalWithdrawn),
		TotalRemaining: core.FormatAmount(sum.TotalRemaining),
	}
	for _, rw := range sum.Recent {
		v.Recent = append(v.Recent, recentRowView{
			EmployeeID:   rw.EmployeeID,
			EmployeeName: rw.EmployeeName,
			Date:         rw.Date.String(),
			Amount:       core.FormatAmount(rw.Amount),
			Note:         rw.Note,
		})
	}
	return v
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	sum, err := s.service.DashboardSummary(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "dashboard summary failed", "error", err)
		http.Error(w, "failed to load dashboard", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "dashboard.html", newSummaryView(sum))
}

// handleSummaryPartial re-renders the totals block after a ledger change.
func (s *Server) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	sum, err := s.service.DashboardSummary(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "summary partial failed", "error", err)
		InternalServerError("Failed to load summary.").Write(w)
		return
	}
	s.render(w, r, "summary.html", newSummaryView(sum))
}
