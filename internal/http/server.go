// Package http is the web UI of the ledger: server-rendered pages with HTMX
// partial updates for the forms and tables.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"salarybook/internal/auth"
	"salarybook/internal/cache"
	"salarybook/internal/ledger"
	"salarybook/internal/middleware/ratelimit"
	"salarybook/internal/middleware/security"
	"salarybook/internal/middleware/trace"
	appweb "salarybook/web"
)

type Server struct {
	http.Server

	templates *template.Template
	service   *ledger.Service
	sessions  *auth.Manager

	loginLimiter *ratelimit.Limiter
	balances     *cache.LRUCache[employeeBalancePayload]
	caches       *cache.Manager
	shutdownOnce sync.Once
}

// NewServer wires routes, templates, and middleware into a ready-to-run
// server.
func NewServer(addr string, service *ledger.Service, sessions *auth.Manager) *Server {
	mux := http.NewServeMux()

	s := &Server{
		service:      service,
		sessions:     sessions,
		loginLimiter: ratelimit.NewLimiter(10),
		// Balance lookups come in bursts while the withdrawal form is open;
		// writes invalidate, so a longer TTL only covers eviction.
		balances: cache.NewLRUCache[employeeBalancePayload](256, 30*time.Second),
		caches:   cache.NewManager(),
	}
	s.caches.Register(s.balances)
	s.caches.StartCleanup(5 * time.Minute)

	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("failed parsing templates", "error", err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		slog.Warn("failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.Handle("POST /login", s.loginLimiter.Middleware(clientIP)(http.HandlerFunc(s.handleLogin)))
	mux.HandleFunc("POST /logout", s.handleLogout)

	protected := func(h http.HandlerFunc) http.Handler {
		return sessions.RequireSession(h)
	}

	mux.Handle("GET /{$}", protected(s.handleDashboard))
	mux.Handle("GET /ui/summary", protected(s.handleSummaryPartial))

	mux.Handle("GET /employees", protected(s.handleEmployeesPage))
	mux.Handle("GET /ui/employees", protected(s.handleEmployeesPartial))
	mux.Handle("POST /employees", protected(s.handleCreateEmployee))
	mux.Handle("GET /employees/{id}", protected(s.handleEmployeePage))
	mux.Handle("POST /employees/{id}/edit", protected(s.handleEditEmployee))
	mux.Handle("POST /employees/{id}/delete", protected(s.handleDeleteEmployee))

	mux.Handle("POST /withdrawals", protected(s.handleCreateWithdrawal))

	mux.Handle("GET /export", protected(s.handleExport))
	mux.Handle("GET /api/employees/{id}", protected(s.handleEmployeeJSON))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(clientIP)

	s.Server = http.Server{
		Addr:         addr,
		Handler:      tracer.Middleware(headers.Middleware(mux)),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Shutdown stops the background limiters and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.loginLimiter.Stop()
		s.caches.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
