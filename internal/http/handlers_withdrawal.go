package http

import (
	"html/template"
	"net/http"
	"strconv"

	"salarybook/internal/core"
	"salarybook/internal/ledger"
)

func (s *Server) handleCreateWithdrawal(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		ErrorResponse(http.StatusBadRequest, "Invalid form data.").Write(w)
		return
	}

	employeeID, err := strconv.ParseInt(sanitizeInput(r.Form.Get("employee_id")), 10, 64)
	if err != nil || employeeID <= 0 {
		UnprocessableEntityError("Select an employee.").Write(w)
		return
	}

	in := ledger.WithdrawalInput{
		EmployeeID: employeeID,
		Amount:     sanitizeInput(r.Form.Get("amount")),
		Date:       sanitizeInput(r.Form.Get("date")),
		Note:       sanitizeInput(r.Form.Get("note")),
	}

	wd, err := s.service.RecordWithdrawal(r.Context(), in)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	s.invalidateBalance(employeeID)

	NewHTMXResponse().
		TriggerLedgerChanged().
		TriggerFormReset().
		BodyHTML(`<div class="success">Recorded withdrawal of ` +
			template.HTMLEscapeString(core.FormatAmount(wd.Amount)) +
			` on ` + template.HTMLEscapeString(wd.Date.String()) + `.</div>`).
		Write(w)
}
