package rpc

import (
	"bytes"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"nftmarket/crypto"
	"nftmarket/native/fees"
	"nftmarket/native/market"
	"nftmarket/native/token"
	"nftmarket/state"
	"nftmarket/storage"
)

type testResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

type testEnv struct {
	handler http.Handler
	engine  *market.Engine
	state   *state.Manager
	clock   int64
}

func testAddr(fill byte) [20]byte {
	var addr [20]byte
	for i := range addr {
		addr[i] = fill
	}
	return addr
}

var testVault = testAddr(0xEE)

func newTestEnv(t *testing.T, mutate func(*Config)) *testEnv {
	t.Helper()
	manager := state.NewManager(storage.NewMemDB())

	registry := token.NewRegistry()
	registry.SetState(manager)
	if err := registry.SetDirectReceive(testVault, true); err != nil {
		t.Fatalf("vault direct receive: %v", err)
	}

	env := &testEnv{state: manager, clock: 1_700_000_000}

	engine := market.NewEngine()
	engine.SetState(manager)
	engine.SetCustody(registry)
	engine.SetVault(testVault)
	engine.SetNowFunc(func() int64 { return env.clock })
	schedule, err := fees.NewBasisPoints(250, 100, testAddr(0xFE))
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	engine.RegisterSchedule("standard", schedule)
	env.engine = engine

	cfg := Config{
		Engine:        engine,
		Registry:      registry,
		State:         manager,
		FaucetEnabled: true,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	env.handler = NewServer(cfg).Router()
	return env
}

func (e *testEnv) call(t *testing.T, method string, params interface{}, headers map[string]string) *testResponse {
	t.Helper()
	body := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		body["params"] = []interface{}{params}
	}
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/rpc", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var resp testResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return &resp
}

func (e *testEnv) mustCall(t *testing.T, method string, params interface{}) json.RawMessage {
	t.Helper()
	resp := e.call(t, method, params, nil)
	if resp.Error != nil {
		t.Fatalf("%s: rpc error %d %s (%v)", method, resp.Error.Code, resp.Error.Message, resp.Error.Data)
	}
	return resp.Result
}

func bech(addr [20]byte) string {
	return crypto.MustNewAddress(addr).String()
}

func (e *testEnv) fund(t *testing.T, addr [20]byte, amount int64) {
	t.Helper()
	if err := e.state.Credit(addr, big.NewInt(amount)); err != nil {
		t.Fatalf("credit: %v", err)
	}
}

func decodeID(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var result idResult
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("decode id: %v", err)
	}
	return result.ID
}

func TestFixedPriceLifecycleOverRPC(t *testing.T) {
	env := newTestEnv(t, nil)
	seller := testAddr(0x01)
	buyer := testAddr(0x02)
	env.fund(t, seller, 1_000)
	env.fund(t, buyer, 20_000)

	tokenID := decodeID(t, env.mustCall(t, "token_mint", mintParams{
		Creator:    bech(seller),
		Collection: "drops",
		Name:       "genesis",
		Standard:   "object",
	}))

	listingID := decodeID(t, env.mustCall(t, "market_listFixedPrice", listFixedPriceParams{
		Seller:     bech(seller),
		AssetID:    tokenID,
		ScheduleID: "standard",
		Price:      "10000",
	}))

	var listing listingJSON
	if err := json.Unmarshal(env.mustCall(t, "market_getListing", listingIDParams{ListingID: listingID}), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if listing.SaleType != "fixed_price" || listing.Price == nil || *listing.Price != "10000" {
		t.Fatalf("listing = %+v", listing)
	}

	env.mustCall(t, "market_buy", listingActorParams{Actor: bech(buyer), ListingID: listingID})

	var record tokenJSON
	if err := json.Unmarshal(env.mustCall(t, "token_getToken", tokenIDParams{TokenID: tokenID}), &record); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	if record.Owner != bech(buyer) {
		t.Fatalf("owner = %q, want buyer", record.Owner)
	}

	var balance balanceJSON
	if err := json.Unmarshal(env.mustCall(t, "account_getBalance", balanceParams{Address: bech(seller)}), &balance); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	// 1_000 - 100 listing fee + 9_750 proceeds (no royalty, 2.5% commission).
	if balance.Balance != "10650" {
		t.Fatalf("seller balance = %q, want 10650", balance.Balance)
	}

	resp := env.call(t, "market_getListing", listingIDParams{ListingID: listingID}, nil)
	if resp.Error == nil || resp.Error.Code != codeMarketNotFound {
		t.Fatalf("expected not_found after settlement, got %+v", resp.Error)
	}
}

func TestAuctionLifecycleOverRPC(t *testing.T) {
	env := newTestEnv(t, nil)
	seller := testAddr(0x01)
	bidder := testAddr(0x02)
	env.fund(t, seller, 1_000)
	env.fund(t, bidder, 20_000)

	tokenID := decodeID(t, env.mustCall(t, "token_mint", mintParams{
		Creator:    bech(seller),
		Collection: "drops",
		Name:       "genesis",
		Standard:   "object",
	}))

	listingID := decodeID(t, env.mustCall(t, "market_listAuction", listAuctionParams{
		Seller:          bech(seller),
		AssetID:         tokenID,
		ScheduleID:      "standard",
		StartingBid:     "100",
		MinIncrement:    "10",
		EndTime:         env.clock + 1000,
		ExtensionWindow: 60,
	}))

	env.mustCall(t, "market_bid", bidParams{Bidder: bech(bidder), ListingID: listingID, Amount: "400"})

	resp := env.call(t, "market_completeAuction", listingIDParams{ListingID: listingID}, nil)
	if resp.Error == nil || resp.Error.Code != codeMarketConflict {
		t.Fatalf("expected conflict before end time, got %+v", resp.Error)
	}

	env.clock += 1000
	env.mustCall(t, "market_completeAuction", listingIDParams{ListingID: listingID})

	var record tokenJSON
	if err := json.Unmarshal(env.mustCall(t, "token_getToken", tokenIDParams{TokenID: tokenID}), &record); err != nil {
		t.Fatalf("decode token: %v", err)
	}
	if record.Owner != bech(bidder) {
		t.Fatalf("owner = %q, want bidder", record.Owner)
	}
}

func TestMethodNotFound(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.call(t, "market_unknown", nil, nil)
	if resp.Error == nil || resp.Error.Code != codeMethodNotFound {
		t.Fatalf("error = %+v, want method not found", resp.Error)
	}
}

func TestInvalidParams(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.call(t, "market_buy", listingActorParams{Actor: "garbage", ListingID: "zz"}, nil)
	if resp.Error == nil || resp.Error.Code != codeMarketInvalidParams {
		t.Fatalf("error = %+v, want invalid params", resp.Error)
	}
}

func TestStaticTokenAuth(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) { cfg.AuthToken = "sekrit" })
	addr := testAddr(0x01)

	params := directReceiveParams{Address: bech(addr), Enabled: true}
	resp := env.call(t, "token_setDirectReceive", params, nil)
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("error = %+v, want unauthorized", resp.Error)
	}

	resp = env.call(t, "token_setDirectReceive", params, map[string]string{"Authorization": "Bearer wrong"})
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("error = %+v, want unauthorized for bad token", resp.Error)
	}

	resp = env.call(t, "token_setDirectReceive", params, map[string]string{"Authorization": "Bearer sekrit"})
	if resp.Error != nil {
		t.Fatalf("authorized call failed: %+v", resp.Error)
	}

	// Read-only methods stay open.
	resp = env.call(t, "account_getBalance", balanceParams{Address: bech(addr)}, nil)
	if resp.Error != nil {
		t.Fatalf("read call failed: %+v", resp.Error)
	}
}

func TestJWTAuth(t *testing.T) {
	const secret = "jwt-secret"
	env := newTestEnv(t, func(cfg *Config) { cfg.JWTSecret = secret })
	addr := testAddr(0x01)
	params := directReceiveParams{Address: bech(addr), Enabled: true}

	resp := env.call(t, "token_setDirectReceive", params, nil)
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("error = %+v, want unauthorized", resp.Error)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ops",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	resp = env.call(t, "token_setDirectReceive", params, map[string]string{"Authorization": "Bearer " + signed})
	if resp.Error != nil {
		t.Fatalf("jwt call failed: %+v", resp.Error)
	}

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ops",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("other-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	resp = env.call(t, "token_setDirectReceive", params, map[string]string{"Authorization": "Bearer " + forged})
	if resp.Error == nil || resp.Error.Code != codeUnauthorized {
		t.Fatalf("error = %+v, want unauthorized for forged token", resp.Error)
	}
}

func TestFaucetDisabled(t *testing.T) {
	env := newTestEnv(t, func(cfg *Config) { cfg.FaucetEnabled = false })
	resp := env.call(t, "account_fund", fundParams{Address: bech(testAddr(0x01)), Amount: "100"}, nil)
	if resp.Error == nil || resp.Error.Code != codeFaucetDisabled {
		t.Fatalf("error = %+v, want faucet disabled", resp.Error)
	}
}

func TestFaucetCredits(t *testing.T) {
	env := newTestEnv(t, nil)
	addr := testAddr(0x01)

	env.mustCall(t, "account_fund", fundParams{Address: bech(addr), Amount: "500"})

	var balance balanceJSON
	if err := json.Unmarshal(env.mustCall(t, "account_getBalance", balanceParams{Address: bech(addr)}), &balance); err != nil {
		t.Fatalf("decode balance: %v", err)
	}
	if balance.Balance != "500" {
		t.Fatalf("balance = %q, want 500", balance.Balance)
	}
}

func TestHistoryUnavailable(t *testing.T) {
	env := newTestEnv(t, nil)
	resp := env.call(t, "history_settlements", settlementsParams{Limit: 10}, nil)
	if resp.Error == nil || resp.Error.Code != codeHistoryUnavailable {
		t.Fatalf("error = %+v, want history unavailable", resp.Error)
	}
}

func TestMetricsCountHandlerErrors(t *testing.T) {
	env := newTestEnv(t, nil)

	missing := strings.Repeat("00", 32)
	resp := env.call(t, "market_getListing", listingIDParams{ListingID: missing}, nil)
	if resp.Error == nil || resp.Error.Code != codeMarketNotFound {
		t.Fatalf("error = %+v, want not found", resp.Error)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	series := `nftmarket_module_errors_total{method="market_getListing",module="market",status="404"}`
	if !strings.Contains(rec.Body.String(), series) {
		t.Fatalf("metrics output missing %s", series)
	}
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
