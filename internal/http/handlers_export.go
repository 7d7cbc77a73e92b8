package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"salarybook/internal/core"
	"salarybook/internal/export"
)

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	mode := core.ExportMode(r.URL.Query().Get("mode"))
	if mode == "" {
		mode = core.ExportEmployees
	}
	if !mode.IsValid() {
		http.Error(w, "unknown export mode", http.StatusBadRequest)
		return
	}

	rows, err := s.service.ExportRows(r.Context(), mode)
	if err != nil {
		slog.ErrorContext(r.Context(), "export failed", "mode", string(mode), "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(mode, time.Now())+`"`)
	if err := export.WriteCSV(w, rows); err != nil {
		slog.ErrorContext(r.Context(), "write csv failed", "error", err)
	}
}

// employeeBalancePayload is the JSON the withdrawal form fetches to show
// the remaining balance before submitting. Cached per employee; writes
// invalidate through invalidateBalance.
type employeeBalancePayload struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	MonthlySalary string `json:"monthly_salary"`
	Withdrawn     string `json:"withdrawn"`
	Remaining     string `json:"remaining"`
}

func balanceCacheKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

func (s *Server) invalidateBalance(id int64) {
	s.balances.Delete(balanceCacheKey(id))
}

func (s *Server) handleEmployeeJSON(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	resp, ok := s.balances.Get(balanceCacheKey(id))
	if !ok {
		detail, err := s.service.Employee(r.Context(), id)
		if err != nil {
			if core.IsNotFound(err) {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			slog.ErrorContext(r.Context(), "employee lookup failed", "employee_id", id, "error", err)
			http.Error(w, "lookup failed", http.StatusInternalServerError)
			return
		}
		resp = employeeBalancePayload{
			ID:            detail.Balance.Employee.ID,
			Name:          detail.Balance.Employee.Name,
			MonthlySalary: core.FormatAmount(detail.Balance.Employee.MonthlySalary),
			Withdrawn:     core.FormatAmount(detail.Balance.Withdrawn),
			Remaining:     core.FormatAmount(detail.Balance.Remaining),
		}
		s.balances.Set(balanceCacheKey(id), resp)
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(r.Context(), "encode employee json failed", "error", err)
	}
}
