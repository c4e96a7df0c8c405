package rpc

import (
	"encoding/hex"
	"errors"
	"net/http"

	"nftmarket/crypto"
	"nftmarket/native/token"
)

const (
	codeTokenInvalidParams = -32031
	codeTokenNotFound      = -32032
	codeTokenForbidden     = -32033
	codeTokenConflict      = -32034
	codeTokenInternal      = -32035
)

func writeTokenError(w http.ResponseWriter, req *RPCRequest, err error) {
	switch {
	case errors.Is(err, token.ErrTokenNotFound):
		writeError(w, http.StatusNotFound, req.ID, codeTokenNotFound, "not_found", err.Error())
	case errors.Is(err, token.ErrNotTokenOwner):
		writeError(w, http.StatusForbidden, req.ID, codeTokenForbidden, "forbidden", err.Error())
	case errors.Is(err, token.ErrTokenExists),
		errors.Is(err, token.ErrTokenParked),
		errors.Is(err, token.ErrNotParked),
		errors.Is(err, token.ErrHandleConsumed):
		writeError(w, http.StatusConflict, req.ID, codeTokenConflict, "conflict", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, req.ID, codeTokenInternal, "internal_error", err.Error())
	}
}

type royaltyParams struct {
	Recipient   string `json:"recipient"`
	Numerator   uint64 `json:"numerator"`
	Denominator uint64 `json:"denominator"`
}

type mintParams struct {
	Creator    string         `json:"creator"`
	Collection string         `json:"collection"`
	Name       string         `json:"name"`
	Standard   string         `json:"standard"`
	Royalty    *royaltyParams `json:"royalty,omitempty"`
}

type directReceiveParams struct {
	Address string `json:"address"`
	Enabled bool   `json:"enabled"`
}

type claimParams struct {
	Owner   string `json:"owner"`
	TokenID string `json:"tokenId"`
}

type tokenIDParams struct {
	TokenID string `json:"tokenId"`
}

type containerParams struct {
	Owner string `json:"owner"`
}

type royaltyJSON struct {
	Recipient   string `json:"recipient"`
	Numerator   uint64 `json:"numerator"`
	Denominator uint64 `json:"denominator"`
}

type tokenJSON struct {
	ID         string       `json:"id"`
	Creator    string       `json:"creator"`
	Collection string       `json:"collection"`
	Name       string       `json:"name"`
	Standard   string       `json:"standard"`
	Owner      string       `json:"owner"`
	Parked     bool         `json:"parked"`
	Royalty    *royaltyJSON `json:"royalty,omitempty"`
	MintedAt   int64        `json:"mintedAt"`
}

type containerJSON struct {
	Owner  string   `json:"owner"`
	Tokens []string `json:"tokens"`
}

func standardName(s token.Standard) string {
	switch s {
	case token.StandardLegacy:
		return "legacy"
	case token.StandardObject:
		return "object"
	default:
		return "unknown"
	}
}

func parseStandard(value string) (token.Standard, error) {
	switch value {
	case "legacy":
		return token.StandardLegacy, nil
	case "object":
		return token.StandardObject, nil
	default:
		return 0, errors.New("standard must be \"legacy\" or \"object\"")
	}
}

func tokenToJSON(t *token.Token) *tokenJSON {
	out := &tokenJSON{
		ID:         hex.EncodeToString(t.ID[:]),
		Creator:    crypto.MustNewAddress(t.Creator).String(),
		Collection: t.Collection,
		Name:       t.Name,
		Standard:   standardName(t.Standard),
		Owner:      crypto.MustNewAddress(t.Owner).String(),
		Parked:     t.Parked,
		MintedAt:   t.MintedAt,
	}
	if t.Royalty != nil {
		out.Royalty = &royaltyJSON{
			Recipient:   crypto.MustNewAddress(t.Royalty.Recipient).String(),
			Numerator:   t.Royalty.Numerator,
			Denominator: t.Royalty.Denominator,
		}
	}
	return out
}

func (s *Server) handleTokenMint(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params mintParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTokenInvalidParams, "invalid_params", err.Error())
		return
	}
	creator, err := parseAddress(params.Creator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTokenInvalidParams, "invalid_params", err.Error())
		return
	}
	standard, err := parseStandard(params.Standard)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTokenInvalidParams, "invalid_params", err.Error())
		return
	}
	var royalty *token.Royalty
	if params.Royalty != nil {
		recipient, err := parseAddress(params.Royalty.Recipient)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeTokenInvalidParams, "invalid_params", err.Error())
			return
		}
		royalty = &token.Royalty{
			Recipient:   recipient,
			Numerator:   params.Royalty.Numerator,
			Denominator: params.Royalty.Denominator,
		}
	}
	id, err := s.registry.Mint(creator, params.Collection, params.Name, standard, royalty)
	if err != nil {
		writeTokenError(w, req, err)
		return
	}
	writeResult(w, req.ID, idResult{ID: hex.EncodeToString(id[:])})
}

func (s *Server) handleTokenSetDirectReceive(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params directReceiveParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTokenInvalidParams, "invalid_params", err.Error())
		return
	}
	addr, err := parseAddress(params.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTokenInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.registry.SetDirectReceive(addr, params.Enabled); err != nil {
		writeTokenError(w, req, err)
		return
	}
	writeResult(w, req.ID, ackOK)
}

func (s *Server) handleTokenClaim(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params claimParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTokenInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTokenInvalidParams, "invalid_params", err.Error())
		return
	}
	tokenID, err := parseHash(params.TokenID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTokenInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.registry.Claim(owner, tokenID); err != nil {
		writeTokenError(w, req, err)
		return
	}
	writeResult(w, req.ID, ackOK)
}

func (s *Server) handleTokenGetToken(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params tokenIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTokenInvalidParams, "invalid_params", err.Error())
		return
	}
	tokenID, err := parseHash(params.TokenID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTokenInvalidParams, "invalid_params", err.Error())
		return
	}
	record, err := s.registry.Token(tokenID)
	if err != nil {
		writeTokenError(w, req, err)
		return
	}
	writeResult(w, req.ID, tokenToJSON(record))
}

func (s *Server) handleTokenContainer(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params containerParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTokenInvalidParams, "invalid_params", err.Error())
		return
	}
	owner, err := parseAddress(params.Owner)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeTokenInvalidParams, "invalid_params", err.Error())
		return
	}
	ids, err := s.registry.ContainerContents(owner)
	if err != nil {
		writeTokenError(w, req, err)
		return
	}
	result := containerJSON{Owner: params.Owner, Tokens: make([]string, 0, len(ids))}
	for _, id := range ids {
		result.Tokens = append(result.Tokens, hex.EncodeToString(id[:]))
	}
	writeResult(w, req.ID, result)
}
