package rpc

import (
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"nftmarket/crypto"
	"nftmarket/history"
	"nftmarket/native/market"
	"nftmarket/native/token"
	"nftmarket/observability"
	"nftmarket/state"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020
)

// Config wires the server's collaborators.
type Config struct {
	Engine        *market.Engine
	Registry      *token.Registry
	State         *state.Manager
	History       *history.Store
	Logger        *slog.Logger
	AuthToken     string
	JWTSecret     string
	RatePerMinute float64
	RateBurst     int
	FaucetEnabled bool
}

// Server exposes the marketplace engine over JSON-RPC.
type Server struct {
	engine        *market.Engine
	registry      *token.Registry
	state         *state.Manager
	history       *history.Store
	logger        *slog.Logger
	authToken     string
	jwtSecret     []byte
	limiter       *rateLimiter
	faucetEnabled bool
	metrics       *observability.ModuleMetricsRegistry
}

// NewServer builds the RPC server. Engine, registry and state are required.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var secret []byte
	if trimmed := strings.TrimSpace(cfg.JWTSecret); trimmed != "" {
		secret = []byte(trimmed)
	}
	return &Server{
		engine:        cfg.Engine,
		registry:      cfg.Registry,
		state:         cfg.State,
		history:       cfg.History,
		logger:        logger,
		authToken:     strings.TrimSpace(cfg.AuthToken),
		jwtSecret:     secret,
		limiter:       newRateLimiter(cfg.RatePerMinute, cfg.RateBurst),
		faucetEnabled: cfg.FaucetEnabled,
		metrics:       observability.ModuleMetrics(),
	}
}

// Router returns the HTTP handler serving /rpc, /healthz and /metrics.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.With(s.limiter.middleware).Post("/rpc", s.handle)
	return r
}

// Start serves the router until the listener fails.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting JSON-RPC server", "addr", addr)
	server := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return server.ListenAndServe()
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      int               `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type handlerFunc func(w http.ResponseWriter, r *http.Request, req *RPCRequest)

// statusWriter records the status code a handler wrote so the dispatch loop
// can label its metrics.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	var req RPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, 0, codeParseError, "parse_error", err.Error())
		s.metrics.ObserveError("rpc", "parse", strconv.Itoa(http.StatusBadRequest))
		return
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		writeError(w, http.StatusBadRequest, req.ID, codeInvalidRequest, "invalid_request", "unsupported jsonrpc version")
		s.metrics.ObserveError("rpc", "request", strconv.Itoa(http.StatusBadRequest))
		return
	}
	handler, ok := s.methods()[req.Method]
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMethodNotFound, "method_not_found", req.Method)
		s.metrics.ObserveError("rpc", req.Method, strconv.Itoa(http.StatusNotFound))
		return
	}
	start := time.Now()
	sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	handler(sw, r, &req)
	module := "rpc"
	if idx := strings.IndexByte(req.Method, '_'); idx > 0 {
		module = req.Method[:idx]
	}
	outcome := "ok"
	if sw.status >= http.StatusBadRequest {
		outcome = "error"
		s.metrics.ObserveError(module, req.Method, strconv.Itoa(sw.status))
	}
	s.metrics.Observe(module, req.Method, outcome, time.Since(start))
}

func (s *Server) methods() map[string]handlerFunc {
	return map[string]handlerFunc{
		"market_listFixedPrice":  s.handleMarketListFixedPrice,
		"market_listAuction":     s.handleMarketListAuction,
		"market_buy":             s.handleMarketBuy,
		"market_updatePrice":     s.handleMarketUpdatePrice,
		"market_cancelListing":   s.handleMarketCancelListing,
		"market_bid":             s.handleMarketBid,
		"market_buyNow":          s.handleMarketBuyNow,
		"market_completeAuction": s.handleMarketCompleteAuction,
		"market_placeOffer":      s.handleMarketPlaceOffer,
		"market_matchOffer":      s.handleMarketMatchOffer,
		"market_cancelOffer":     s.handleMarketCancelOffer,
		"market_getListing":      s.handleMarketGetListing,
		"market_getOffer":        s.handleMarketGetOffer,
		"token_mint":             s.handleTokenMint,
		"token_setDirectReceive": s.handleTokenSetDirectReceive,
		"token_claim":            s.handleTokenClaim,
		"token_getToken":         s.handleTokenGetToken,
		"token_container":        s.handleTokenContainer,
		"account_getBalance":     s.handleAccountGetBalance,
		"account_fund":           s.handleAccountFund,
		"history_settlements":    s.handleHistorySettlements,
		"history_listingEvents":  s.handleHistoryListingEvents,
	}
}

func writeResult(w http.ResponseWriter, id int, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result})
}

func writeError(w http.ResponseWriter, status, id, code int, message string, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(RPCResponse{
		JSONRPC: jsonRPCVersion,
		ID:      id,
		Error:   &RPCError{Code: code, Message: message, Data: data},
	})
}

// requireAuth guards mutating methods. With a JWT secret configured a valid
// HMAC bearer token is accepted; otherwise the static auth token applies. An
// empty configuration leaves the server open (local development).
func (s *Server) requireAuth(r *http.Request) *RPCError {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(s.jwtSecret) > 0 {
		if err := s.verifyJWT(header); err != nil {
			return &RPCError{Code: codeUnauthorized, Message: "unauthorized", Data: err.Error()}
		}
		return nil
	}
	if s.authToken == "" {
		return nil
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return &RPCError{Code: codeUnauthorized, Message: "unauthorized", Data: "missing bearer token"}
	}
	supplied := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	if subtle.ConstantTimeCompare([]byte(supplied), []byte(s.authToken)) != 1 {
		return &RPCError{Code: codeUnauthorized, Message: "unauthorized", Data: "invalid token"}
	}
	return nil
}

func decodeParams(req *RPCRequest, out interface{}) error {
	if len(req.Params) != 1 {
		return fmt.Errorf("exactly one parameter object expected")
	}
	return json.Unmarshal(req.Params[0], out)
}

func parseAddress(value string) ([20]byte, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(value))
	if err != nil {
		return [20]byte{}, err
	}
	return addr.Raw(), nil
}

func parseHash(value string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(value), "0x"))
	if err != nil {
		return out, fmt.Errorf("invalid hex id: %w", err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("id must be 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func parsePositiveBigInt(value string) (*big.Int, error) {
	trimmed := strings.TrimSpace(value)
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("amount must be positive")
	}
	return amount, nil
}
