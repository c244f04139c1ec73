// Package dashboard serves a read-only JSON view of the trading floor:
// each trader's portfolio, holdings, transactions, recent activity logs
// and portfolio value series.
package dashboard

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tradefloor/internal/account"
	"tradefloor/internal/storage"
	"tradefloor/internal/trader"
)

const defaultLogLimit = 13

// Server is a lightweight HTTP API over the accounts and logs store.
type Server struct {
	httpServer *http.Server
	accounts   *account.Service
	store      *storage.Store
	personas   []trader.Persona
	logger     *zap.Logger
	startedAt  time.Time
}

func NewServer(addr string, accounts *account.Service, store *storage.Store, personas []trader.Persona, logger *zap.Logger) *Server {
	s := &Server{
		accounts:  accounts,
		store:     store,
		personas:  personas,
		logger:    logger,
		startedAt: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/api/traders", s.handleTraders)
	mux.HandleFunc("/api/traders/", s.handleTrader)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start begins serving in the background.
func (s *Server) Start(_ context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	s.logger.Info("dashboard listening", zap.String("addr", s.httpServer.Addr))
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("dashboard server", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GET /healthz — liveness plus uptime.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":   "ok",
		"uptime_s": time.Since(s.startedAt).Seconds(),
	})
}

// GET /api/traders — headline figures for every trader.
func (s *Server) handleTraders(w http.ResponseWriter, r *http.Request) {
	type row struct {
		Name           string `json:"name"`
		Lastname       string `json:"lastname"`
		PortfolioValue string `json:"portfolio_value"`
		ProfitLoss     string `json:"profit_loss"`
		Positions      int    `json:"positions"`
	}

	rows := make([]row, 0, len(s.personas))
	for _, persona := range s.personas {
		acct, err := s.accounts.Lookup(r.Context(), persona.Name)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		value, err := acct.PortfolioValue(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		rows = append(rows, row{
			Name:           persona.Name,
			Lastname:       persona.Lastname,
			PortfolioValue: value.StringFixed(2),
			ProfitLoss:     acct.ProfitLoss(value).StringFixed(2),
			Positions:      len(acct.Holdings),
		})
	}
	s.writeJSON(w, rows)
}

// GET /api/traders/{name}            — full account detail
// GET /api/traders/{name}/logs?n=13  — recent activity, oldest first
// GET /api/traders/{name}/series     — portfolio value over time
func (s *Server) handleTrader(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/traders/"), "/")
	name, sub, _ := strings.Cut(rest, "/")
	if name == "" || !s.knownTrader(name) {
		http.Error(w, "unknown trader", http.StatusNotFound)
		return
	}

	switch sub {
	case "":
		s.serveDetail(w, r, name)
	case "logs":
		s.serveLogs(w, r, name)
	case "series":
		s.serveSeries(w, r, name)
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) knownTrader(name string) bool {
	for _, persona := range s.personas {
		if strings.EqualFold(persona.Name, name) {
			return true
		}
	}
	return false
}

// serveDetail composes the detail payload from loaded state only; value
// series points are appended by trader cycles, never by a dashboard read.
func (s *Server) serveDetail(w http.ResponseWriter, r *http.Request, name string) {
	acct, err := s.accounts.Lookup(r.Context(), name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	value, err := acct.PortfolioValue(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, struct {
		*account.Account
		TotalPortfolioValue decimal.Decimal `json:"total_portfolio_value"`
		TotalProfitLoss     decimal.Decimal `json:"total_profit_loss"`
	}{acct, value, acct.ProfitLoss(value)})
}

func (s *Server) serveLogs(w http.ResponseWriter, r *http.Request, name string) {
	limit := defaultLogLimit
	if raw := r.URL.Query().Get("n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			http.Error(w, "invalid n", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := s.store.ReadLog(r.Context(), name, limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type row struct {
		Timestamp string `json:"timestamp"`
		Type      string `json:"type"`
		Message   string `json:"message"`
	}
	rows := make([]row, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, row{
			Timestamp: entry.Timestamp.Format("2006-01-02 15:04:05"),
			Type:      entry.Type,
			Message:   entry.Message,
		})
	}
	s.writeJSON(w, rows)
}

func (s *Server) serveSeries(w http.ResponseWriter, r *http.Request, name string) {
	acct, err := s.accounts.Lookup(r.Context(), name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	series := acct.PortfolioValueSeries
	if series == nil {
		series = []account.ValuePoint{}
	}
	s.writeJSON(w, series)
}
