package http

import (
	"errors"
	"log/slog"
	"net/http"

	"salarybook/internal/auth"
)

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	// Already signed in: straight to the dashboard.
	if cookie, err := r.Cookie(auth.SessionCookieName); err == nil {
		if _, err := s.sessions.Validate(cookie.Value); err == nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}
	s.render(w, r, "login.html", struct{ Error string }{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}

	username := sanitizeInput(r.Form.Get("username"))
	password := r.Form.Get("password")

	token, err := s.sessions.Login(username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			slog.WarnContext(r.Context(), "login rejected",
				"username", username,
				"client_ip", clientIP(r))
			w.WriteHeader(http.StatusUnauthorized)
			s.render(w, r, "login.html", struct{ Error string }{Error: "Invalid username or password."})
			return
		}
		slog.ErrorContext(r.Context(), "login failed", "error", err)
		http.Error(w, "login failed", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, s.sessions.SessionCookie(token))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, s.sessions.ClearCookie())
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
