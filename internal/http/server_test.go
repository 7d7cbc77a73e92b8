package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"salarybook/internal/auth"
	"salarybook/internal/ledger"
	"salarybook/internal/storage/memory"
)

const (
	testUsername = "admin"
	testPassword = "letmein"
	testSecret   = "0123456789abcdef0123456789abcdef"
)

func newTestServer(t *testing.T) (*Server, *ledger.Service) {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)

	sessions, err := auth.NewManager(auth.Config{
		Username:     testUsername,
		PasswordHash: string(hash),
		Secret:       testSecret,
		TTL:          time.Hour,
	})
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := ledger.New(memory.New(), nil, logger)

	srv := NewServer(":0", service, sessions)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv, service
}

func sessionCookie(t *testing.T, srv *Server) *http.Cookie {
	t.Helper()

	form := url.Values{"username": {testUsername}, "password": {testPassword}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusSeeOther, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	for _, c := range cookies {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	t.Fatal("no session cookie set after login")
	return nil
}

func do(srv *Server, req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	srv.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func postForm(srv *Server, path string, form url.Values, cookie *http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return do(srv, req, cookie)
}

func seedEmployee(t *testing.T, service *ledger.Service, name, salary string) int64 {
	t.Helper()
	e, err := service.AddEmployee(context.Background(), ledger.EmployeeInput{
		Name:     name,
		Salary:   salary,
		JoinDate: "2024-01-15",
	})
	require.NoError(t, err)
	return e.ID
}

func TestHealthEndpointsNeedNoSession(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = do(srv, httptest.NewRequest(http.MethodGet, "/readyz", nil), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnauthenticatedRequestsRedirectToLogin(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, path := range []string{"/", "/employees", "/export"} {
		rec := do(srv, httptest.NewRequest(http.MethodGet, path, nil), nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, "/login", rec.Header().Get("Location"), path)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	srv, _ := newTestServer(t)

	form := url.Values{"username": {testUsername}, "password": {"wrong"}}
	rec := postForm(srv, "/login", form, nil)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid username or password")
	assert.Empty(t, rec.Result().Cookies())
}

func TestLoginIssuesSessionCookie(t *testing.T) {
	srv, _ := newTestServer(t)

	cookie := sessionCookie(t, srv)
	assert.True(t, cookie.HttpOnly)

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/", nil), cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Recent withdrawals")
}

func TestLogoutClearsSession(t *testing.T) {
	srv, _ := newTestServer(t)
	cookie := sessionCookie(t, srv)

	rec := do(srv, httptest.NewRequest(http.MethodPost, "/logout", nil), cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	var cleared *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			cleared = c
		}
	}
	require.NotNil(t, cleared)
	assert.Less(t, cleared.MaxAge, 0)
}

func TestCreateEmployeeFragment(t *testing.T) {
	srv, _ := newTestServer(t)
	cookie := sessionCookie(t, srv)

	form := url.Values{
		"name":           {"Priya Shah"},
		"designation":    {"Head Chef"},
		"monthly_salary": {"42000"},
		"join_date":      {"2024-03-01"},
	}
	rec := postForm(srv, "/employees", form, cookie)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Added Priya Shah")
	assert.Contains(t, rec.Header().Get("HX-Trigger"), "ledger:changed")
	assert.Contains(t, rec.Header().Get("HX-Trigger"), "form:reset")
}

func TestCreateEmployeeValidationError(t *testing.T) {
	srv, _ := newTestServer(t)
	cookie := sessionCookie(t, srv)

	form := url.Values{
		"name":           {""},
		"monthly_salary": {"42000"},
		"join_date":      {"2024-03-01"},
	}
	rec := postForm(srv, "/employees", form, cookie)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "error")
}

func TestWithdrawalOverdrawRejected(t *testing.T) {
	srv, service := newTestServer(t)
	cookie := sessionCookie(t, srv)
	id := seedEmployee(t, service, "Marco Ruiz", "30000")

	form := url.Values{
		"employee_id": {intToString(id)},
		"amount":      {"10000"},
		"date":        {"2024-04-02"},
		"note":        {"advance"},
	}
	rec := postForm(srv, "/withdrawals", form, cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Recorded withdrawal of 10000.00")

	form.Set("amount", "25000")
	rec = postForm(srv, "/withdrawals", form, cookie)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "20000.00")
}

func TestDeleteEmployeeHTMXRedirect(t *testing.T) {
	srv, service := newTestServer(t)
	cookie := sessionCookie(t, srv)
	id := seedEmployee(t, service, "Lena Okafor", "25000")

	req := httptest.NewRequest(http.MethodPost, "/employees/"+intToString(id)+"/delete", nil)
	req.Header.Set("HX-Request", "true")
	rec := do(srv, req, cookie)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "/employees", rec.Header().Get("HX-Redirect"))

	rec = do(srv, httptest.NewRequest(http.MethodGet, "/employees/"+intToString(id), nil), cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmployeesSearchPartial(t *testing.T) {
	srv, service := newTestServer(t)
	cookie := sessionCookie(t, srv)
	seedEmployee(t, service, "Anita Rao", "20000")
	seedEmployee(t, service, "Bruno Costa", "22000")

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/ui/employees?q=anita", nil), cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Anita Rao")
	assert.NotContains(t, rec.Body.String(), "Bruno Costa")
}

func TestExportCSV(t *testing.T) {
	srv, service := newTestServer(t)
	cookie := sessionCookie(t, srv)
	seedEmployee(t, service, "Anita Rao", "20000")

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/export", nil), cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "salarybook_employees_")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Name,Designation,Join Date,Monthly Salary,Withdrawn,Remaining", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "Anita Rao")

	rec = do(srv, httptest.NewRequest(http.MethodGet, "/export?mode=bogus", nil), cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEmployeeJSON(t *testing.T) {
	srv, service := newTestServer(t)
	cookie := sessionCookie(t, srv)
	id := seedEmployee(t, service, "Anita Rao", "20000")

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/api/employees/"+intToString(id), nil), cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, `"name":"Anita Rao"`)
	assert.Contains(t, body, `"monthly_salary":"20000.00"`)
	assert.Contains(t, body, `"remaining":"20000.00"`)

	rec = do(srv, httptest.NewRequest(http.MethodGet, "/api/employees/9999", nil), cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEmployeeJSONCacheInvalidatedOnWithdrawal(t *testing.T) {
	srv, service := newTestServer(t)
	cookie := sessionCookie(t, srv)
	id := seedEmployee(t, service, "Anita Rao", "20000")
	path := "/api/employees/" + intToString(id)

	rec := do(srv, httptest.NewRequest(http.MethodGet, path, nil), cookie)
	assert.Contains(t, rec.Body.String(), `"withdrawn":"0.00"`)

	form := url.Values{
		"employee_id": {intToString(id)},
		"amount":      {"5000"},
		"date":        {"2024-04-02"},
	}
	rec = postForm(srv, "/withdrawals", form, cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(srv, httptest.NewRequest(http.MethodGet, path, nil), cookie)
	assert.Contains(t, rec.Body.String(), `"withdrawn":"5000.00"`)
	assert.Contains(t, rec.Body.String(), `"remaining":"15000.00"`)
}

func TestSecurityHeadersPresent(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := do(srv, httptest.NewRequest(http.MethodGet, "/healthz", nil), nil)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func intToString(id int64) string {
	return strconv.FormatInt(id, 10)
}
