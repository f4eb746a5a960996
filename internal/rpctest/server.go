// Package rpctest is a fake procedure host standing in for the external
// remote-procedure surface admission.Procedures can be configured to call
// instead of running check_subscription_limits, deduct_wallet_balance,
// increment_subscription_usage and calculate_topup_bonus in-process. It
// exists for integration tests of internal/rpc.Client against admission
// pipeline scenarios, and is never linked into the running gateway.
package rpctest

import (
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/felipe/wagateway/internal/db/models"
	"github.com/gorilla/mux"
	"github.com/justinas/alice"
)

// Server is an in-memory stand-in for the external procedure host, scripted
// per test by setting its exported fields before calling Start.
type Server struct {
	mu sync.Mutex

	// LimitsResult is returned verbatim by check_subscription_limits.
	LimitsResult models.AdmissionResult
	// DebitErr, when true, makes deduct_wallet_balance answer 402.
	DebitErr bool
	// BonusIQD is returned by calculate_topup_bonus.
	BonusIQD int64

	// Calls records every procedure name invoked, in order, so a test can
	// assert the pipeline called (or skipped) a given step.
	Calls []string

	httpServer *httptest.Server
}

// New builds the fake host and its router but does not start listening.
func New() *Server {
	return &Server{}
}

// URL returns the base URL to pass as AdmissionConfig.RPCBaseURL once
// Start has been called.
func (s *Server) URL() string {
	if s.httpServer == nil {
		return ""
	}
	return s.httpServer.URL
}

// Start brings the fake host up on a random local port.
func (s *Server) Start() {
	router := mux.NewRouter()
	chain := alice.New(s.logRequest, s.jsonContentType)

	router.Handle("/procedures/check_subscription_limits", chain.ThenFunc(s.handleCheckLimits)).Methods(http.MethodPost)
	router.Handle("/procedures/deduct_wallet_balance", chain.ThenFunc(s.handleDeduct)).Methods(http.MethodPost)
	router.Handle("/procedures/credit_wallet_balance", chain.ThenFunc(s.handleCredit)).Methods(http.MethodPost)
	router.Handle("/procedures/increment_subscription_usage", chain.ThenFunc(s.handleIncrement)).Methods(http.MethodPost)
	router.Handle("/procedures/calculate_topup_bonus", chain.ThenFunc(s.handleBonus)).Methods(http.MethodPost)

	s.httpServer = httptest.NewServer(router)
}

// Close tears the fake host down.
func (s *Server) Close() {
	if s.httpServer != nil {
		s.httpServer.Close()
	}
}

func (s *Server) record(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, name)
}

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("rpctest: %s %s (%s)", r.Method, r.URL.Path, time.Since(start))
	})
}

func (s *Server) jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCheckLimits(w http.ResponseWriter, r *http.Request) {
	s.record("check_subscription_limits")
	json.NewEncoder(w).Encode(s.LimitsResult)
}

type walletTxnResponse struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Amount      int64  `json:"amount"`
	ReferenceID string `json:"reference_id"`
}

func (s *Server) handleDeduct(w http.ResponseWriter, r *http.Request) {
	s.record("deduct_wallet_balance")
	if s.DebitErr {
		w.WriteHeader(http.StatusPaymentRequired)
		return
	}
	var req struct {
		UserID      string `json:"user_id"`
		Amount      int64  `json:"amount"`
		ReferenceID string `json:"reference_id"`
	}
	json.NewDecoder(r.Body).Decode(&req)
	json.NewEncoder(w).Encode(walletTxnResponse{UserID: req.UserID, Amount: -req.Amount, ReferenceID: req.ReferenceID})
}

func (s *Server) handleCredit(w http.ResponseWriter, r *http.Request) {
	s.record("credit_wallet_balance")
	var req struct {
		UserID      string `json:"user_id"`
		Amount      int64  `json:"amount"`
		ReferenceID string `json:"reference_id"`
	}
	json.NewDecoder(r.Body).Decode(&req)
	json.NewEncoder(w).Encode(walletTxnResponse{UserID: req.UserID, Amount: req.Amount, ReferenceID: req.ReferenceID})
}

func (s *Server) handleIncrement(w http.ResponseWriter, r *http.Request) {
	s.record("increment_subscription_usage")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleBonus(w http.ResponseWriter, r *http.Request) {
	s.record("calculate_topup_bonus")
	json.NewEncoder(w).Encode(map[string]int64{"bonus_iqd": s.BonusIQD})
}
