package rpc

import (
	"net/http"
)

const (
	codeAccountInvalidParams = -32041
	codeAccountInternal      = -32045
	codeFaucetDisabled       = -32046
)

type balanceParams struct {
	Address string `json:"address"`
}

type fundParams struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

type balanceJSON struct {
	Address string `json:"address"`
	Balance string `json:"balance"`
	Nonce   uint64 `json:"nonce"`
}

func (s *Server) handleAccountGetBalance(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params balanceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAccountInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAccountInvalidParams, "invalid_params", err.Error())
		return
	}
	account, err := s.state.GetAccount(addr[:])
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeAccountInternal, "internal_error", err.Error())
		return
	}
	writeResult(w, req.ID, balanceJSON{
		Address: params.Address,
		Balance: account.Balance.String(),
		Nonce:   account.Nonce,
	})
}

// handleAccountFund credits an account from thin air. It exists for local
// development and only responds when the faucet is enabled in configuration.
func (s *Server) handleAccountFund(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if !s.faucetEnabled {
		writeError(w, http.StatusForbidden, req.ID, codeFaucetDisabled, "faucet_disabled", "faucet is not enabled on this node")
		return
	}
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params fundParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAccountInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAccountInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeAccountInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.state.Credit(addr, amount); err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeAccountInternal, "internal_error", err.Error())
		return
	}
	writeResult(w, req.ID, ackOK)
}
