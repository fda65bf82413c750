package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"telegram-coin-bot/internal/usecase"
)

// Server exposes health, metrics and a small read-only admin API.
type Server struct {
	statsUC  usecase.StatsUseCase
	walletUC usecase.WalletUseCase
	apiKey   string
	log      *zerolog.Logger
}

func NewServer(statsUC usecase.StatsUseCase, walletUC usecase.WalletUseCase, apiKey string, logger *zerolog.Logger) *Server {
	return &Server{statsUC: statsUC, walletUC: walletUC, apiKey: apiKey, log: logger}
}

// Router builds the chi router for the ops endpoint.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/stats", s.handleStats)
		r.Get("/users", s.handleUsers)
		r.Get("/users/{tgID}/ledger", s.handleLedger)
	})
	return r
}

// authMiddleware provides simple Bearer token authentication for the admin API.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("admin API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if token == auth || token != s.apiKey {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statsResponse struct {
	Users      int   `json:"users"`
	TotalCoins int64 `json:"total_coins"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	users, coins, err := s.statsUC.Totals(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("stats totals failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, statsResponse{Users: users, TotalCoins: coins})
}

type userResponse struct {
	TelegramID       int64     `json:"telegram_id"`
	Username         string    `json:"username"`
	Balance          int64     `json:"balance"`
	RegisteredAt     time.Time `json:"registered_at"`
	ReferralCode     string    `json:"referral_code"`
	InvitedBy        string    `json:"invited_by,omitempty"`
	InvitedCount     int       `json:"invited_count"`
	ReferralEarnings int64     `json:"referral_earnings"`
	ReferralPercent  int       `json:"referral_percent"`
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.statsUC.ListUsers(r.Context())
	if err != nil {
		s.log.Error().Err(err).Msg("list users failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	out := make([]userResponse, 0, len(profiles))
	for _, p := range profiles {
		out = append(out, userResponse{
			TelegramID:       p.TelegramID,
			Username:         p.Username,
			Balance:          p.Balance,
			RegisteredAt:     p.RegisteredAt,
			ReferralCode:     p.ReferralCode,
			InvitedBy:        p.InvitedBy,
			InvitedCount:     p.InvitedCount,
			ReferralEarnings: p.ReferralEarnings,
			ReferralPercent:  p.ReferralPercent,
		})
	}
	writeJSON(w, out)
}

// maxLedgerLimit caps the ?limit= query parameter; the repository default
// applies when no limit is given.
const maxLedgerLimit = 500

type ledgerEntryResponse struct {
	ID        string    `json:"id"`
	Amount    int64     `json:"amount"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	tgID, err := strconv.ParseInt(chi.URLParam(r, "tgID"), 10, 64)
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 0 {
		limit = 0
	}
	if limit > maxLedgerLimit {
		limit = maxLedgerLimit
	}
	entries, err := s.walletUC.History(r.Context(), tgID, limit)
	if err != nil {
		s.log.Error().Err(err).Int64("tg_id", tgID).Msg("ledger history failed")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	out := make([]ledgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, ledgerEntryResponse{ID: e.ID, Amount: e.Amount, Reason: e.Reason, CreatedAt: e.CreatedAt})
	}
	writeJSON(w, out)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
