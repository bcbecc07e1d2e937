package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"expensed/internal/core"
	"expensed/internal/ledger"
	"expensed/internal/session"

	"github.com/go-chi/chi/v5"
)

// HandlerFunc implements one tool. The session carries the authenticated
// identity for tools that require it and is zero otherwise. Results are
// either a plain human-readable string or a JSON-marshalable object.
type HandlerFunc func(ctx context.Context, sess session.Session, args Args) (any, error)

// Tool is one entry of the callable catalog.
type Tool struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	RequiresAuth bool   `json:"requires_auth"`

	handler HandlerFunc
}

// Server is the HTTP boundary dispatching tool calls. All failures are
// rendered into descriptive string results here, at the very edge; no tool
// call ever terminates the process.
type Server struct {
	http.Server

	sessions *session.Manager
	ledger   *ledger.Service

	tools  []Tool
	byName map[string]Tool

	shutdownOnce sync.Once
}

func NewServer(addr string, sessions *session.Manager, ledgerSvc *ledger.Service) *Server {
	s := &Server{
		sessions: sessions,
		ledger:   ledgerSvc,
		byName:   make(map[string]Tool),
	}
	s.registerAll()

	r := chi.NewRouter()
	r.Get("/healthz", s.handleHealth)
	r.Get("/tools", s.handleCatalog)
	r.Post("/tools/{name}", s.handleCall)

	s.Addr = addr
	s.Handler = r
	return s
}

func (s *Server) register(name, description string, requiresAuth bool, handler HandlerFunc) {
	tool := Tool{
		Name:         name,
		Description:  description,
		RequiresAuth: requiresAuth,
		handler:      handler,
	}
	s.tools = append(s.tools, tool)
	s.byName[name] = tool
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": s.tools})
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	tool, ok := s.byName[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": fmt.Sprintf("unknown tool: %s", name)})
		return
	}

	args, err := decodeArgs(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON arguments"})
		return
	}

	var sess session.Session
	if tool.RequiresAuth {
		// Authentication is checked before any store access happens.
		sess, err = s.sessions.Authenticate(bearerToken(r))
		if err != nil {
			writeResult(w, renderError(err))
			return
		}
	}

	result, err := tool.handler(r.Context(), sess, args)
	if err != nil {
		slog.ErrorContext(r.Context(), "Tool call failed", "tool", name, "error", err)
		writeResult(w, renderError(err))
		return
	}
	writeResult(w, result)
}

// decodeArgs reads the JSON body; an empty body means no arguments.
func decodeArgs(r *http.Request) (Args, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return Args{}, nil
	}

	args := Args{}
	if err := json.Unmarshal(body, &args); err != nil {
		return nil, err
	}
	return args, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// renderError converts any failure into the descriptive string result shown
// to the caller.
func renderError(err error) string {
	switch {
	case errors.Is(err, core.ErrNotAuthenticated):
		return "Please log in first using the 'login' tool."
	case errors.Is(err, core.ErrDuplicateUser):
		return "Username already exists. Please choose another."
	case errors.Is(err, core.ErrInvalidCredentials):
		return "Invalid username or password."
	case errors.Is(err, core.ErrInvalidDate):
		return "Invalid date. Please use YYYY-MM-DD."
	case errors.Is(err, core.ErrInvalidPeriod):
		return "Invalid period. Use 'week', 'month', or 'year'"
	case errors.Is(err, core.ErrInvalidRange):
		return "Limit must be between 1 and 20"
	case errors.Is(err, core.ErrNoAmount):
		return "Could not find amount in the text. Please include a number like '$15' or '25.50'"
	default:
		return fmt.Sprintf("Error: %v", err)
	}
}

func writeResult(w http.ResponseWriter, result any) {
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// Shutdown stops the server once, even when called from several paths.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		err = s.Server.Shutdown(ctx)
	})
	return err
}
