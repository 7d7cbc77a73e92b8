package http

import (
	"fmt"
	"html/template"
	"log/slog"
	"net/http"

	"salarybook/internal/core"
	"salarybook/internal/ledger"
)

type employeeRowView struct {
	ID            int64
	Name          string
	Designation   string
	JoinDate      string
	MonthlySalary string
	Withdrawn     string
	Remaining     string
	Overdrawn     bool
}

func newEmployeeRowView(b core.EmployeeBalance) employeeRowView {
	return employeeRowView{
		ID:            b.Employee.ID,
		Name:          b.Employee.Name,
		Designation:   b.Employee.Designation,
		JoinDate:      b.Employee.JoinDate.String(),
		MonthlySalary: core.FormatAmount(b.Employee.MonthlySalary),
		Withdrawn:     core.FormatAmount(b.Withdrawn),
		Remaining:     core.FormatAmount(b.Remaining),
		Overdrawn:     b.Remaining.IsNegative(),
	}
}

type employeesView struct {
	Search    string
	Employees []employeeRowView
}

func (s *Server) employeesView(r *http.Request) (employeesView, error) {
	search := sanitizeInput(r.URL.Query().Get("q"))
	balances, err := s.service.EmployeeBalances(r.Context(), search)
	if err != nil {
		return employeesView{}, err
	}
	view := employeesView{Search: search}
	for _, b := range balances {
		view.Employees = append(view.Employees, newEmployeeRowView(b))
	}
	return view, nil
}

func (s *Server) handleEmployeesPage(w http.ResponseWriter, r *http.Request) {
	view, err := s.employeesView(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "list employees failed", "error", err)
		http.Error(w, "failed to load employees", http.StatusInternalServerError)
		return
	}
	s.render(w, r, "employees.html", view)
}

// handleEmployeesPartial re-renders the employee table, used by the search
// box and by ledger:changed refreshes.
func (s *Server) handleEmployeesPartial(w http.ResponseWriter, r *http.Request) {
	view, err := s.employeesView(r)
	if err != nil {
		slog.ErrorContext(r.Context(), "employees partial failed", "error", err)
		InternalServerError("Failed to load employees.").Write(w)
		return
	}
	s.render(w, r, "employee_table.html", view)
}

func (s *Server) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		ErrorResponse(http.StatusBadRequest, "Invalid form data.").Write(w)
		return
	}

	in := ledger.EmployeeInput{
		Name:        sanitizeInput(r.Form.Get("name")),
		Designation: sanitizeInput(r.Form.Get("designation")),
		Salary:      sanitizeInput(r.Form.Get("monthly_salary")),
		JoinDate:    sanitizeInput(r.Form.Get("join_date")),
	}

	e, err := s.service.AddEmployee(r.Context(), in)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}

	NewHTMXResponse().
		TriggerLedgerChanged().
		TriggerFormReset().
		BodyHTML(`<div class="success">Added ` + template.HTMLEscapeString(e.Name) + `.</div>`).
		Write(w)
}

type employeeDetailView struct {
	Employee    employeeRowView
	Withdrawals []withdrawalRowView
}

type withdrawalRowView struct {
	Date   string
	Amount string
	Note   string
}

func (s *Server) handleEmployeePage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	detail, err := s.service.Employee(r.Context(), id)
	if err != nil {
		if core.IsNotFound(err) {
			http.NotFound(w, r)
			return
		}
		slog.ErrorContext(r.Context(), "employee detail failed", "employee_id", id, "error", err)
		http.Error(w, "failed to load employee", http.StatusInternalServerError)
		return
	}

	view := employeeDetailView{Employee: newEmployeeRowView(detail.Balance)}
	for _, wd := range detail.Withdrawals {
		view.Withdrawals = append(view.Withdrawals, withdrawalRowView{
			Date:   wd.Date.String(),
			Amount: core.FormatAmount(wd.Amount),
			Note:   wd.Note,
		})
	}
	s.render(w, r, "employee.html", view)
}

func (s *Server) handleEditEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		NotFoundError("Employee not found.").Write(w)
		return
	}
	if err := r.ParseForm(); err != nil {
		ErrorResponse(http.StatusBadRequest, "Invalid form data.").Write(w)
		return
	}

	// Absent fields keep their stored value; blank name is a validation
	// error, not a skip.
	var upd ledger.EmployeeUpdate
	if r.Form.Has("name") {
		v := sanitizeInput(r.Form.Get("name"))
		upd.Name = &v
	}
	if r.Form.Has("designation") {
		v := sanitizeInput(r.Form.Get("designation"))
		upd.Designation = &v
	}
	if r.Form.Has("monthly_salary") {
		v := sanitizeInput(r.Form.Get("monthly_salary"))
		upd.Salary = &v
	}
	if r.Form.Has("join_date") {
		v := sanitizeInput(r.Form.Get("join_date"))
		upd.JoinDate = &v
	}

	e, err := s.service.EditEmployee(r.Context(), id, upd)
	if err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	s.invalidateBalance(id)

	NewHTMXResponse().
		TriggerLedgerChanged().
		BodyHTML(`<div class="success">Updated ` + template.HTMLEscapeString(e.Name) + `.</div>`).
		Write(w)
}

func (s *Server) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		NotFoundError("Employee not found.").Write(w)
		return
	}

	if err := s.service.DeleteEmployee(r.Context(), id); err != nil {
		s.writeLedgerError(w, r, err)
		return
	}
	s.invalidateBalance(id)

	// A delete from the detail page needs a redirect; table rows just
	// refresh in place.
	if isHTMX(r) {
		NewHTMXResponse().
			TriggerLedgerChanged().
			Header("HX-Redirect", "/employees").
			Write(w)
		return
	}
	http.Redirect(w, r, "/employees", http.StatusSeeOther)
}

// writeLedgerError maps service errors onto fragment responses.
func (s *Server) writeLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case core.IsValidation(err):
		UnprocessableEntityError(err.Error()).Write(w)
	case core.IsNotFound(err):
		NotFoundError(err.Error()).Write(w)
	case core.IsConflict(err):
		ConflictError(err.Error()).Write(w)
	default:
		slog.ErrorContext(r.Context(), "ledger operation failed", "error", err)
		InternalServerError(fmt.Sprintf("Operation failed: %v", err)).Write(w)
	}
}
