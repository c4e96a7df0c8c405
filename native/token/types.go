package token

import (
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Standard identifies the asset representation a token uses. Legacy tokens
// require the recipient to have opted into direct receipt; otherwise deposits
// are parked in a pickup container the recipient extracts from later. Object
// tokens always deposit directly.
type Standard uint8

const (
	StandardLegacy Standard = iota + 1
	StandardObject
)

// Valid reports whether the standard value is within the supported range.
func (s Standard) Valid() bool {
	switch s {
	case StandardLegacy, StandardObject:
		return true
	default:
		return false
	}
}

// Royalty describes the creator cut attached to a token, expressed as a
// fraction of the settled amount.
type Royalty struct {
	Recipient   [20]byte `json:"recipient"`
	Numerator   uint64   `json:"numerator"`
	Denominator uint64   `json:"denominator"`
}

// Token is the registry record for one uniquely-owned asset. Parked tokens sit
// in their owner's pickup container and must be claimed before they can be
// withdrawn again.
type Token struct {
	ID         [32]byte `json:"id"`
	Creator    [20]byte `json:"creator"`
	Collection string   `json:"collection"`
	Name       string   `json:"name"`
	Standard   Standard `json:"standard"`
	Owner      [20]byte `json:"owner"`
	Parked     bool     `json:"parked"`
	Royalty    *Royalty `json:"royalty,omitempty"`
	MintedAt   int64    `json:"mintedAt"`
}

// Clone returns a deep copy of the token record.
func (t *Token) Clone() *Token {
	if t == nil {
		return nil
	}
	clone := *t
	if t.Royalty != nil {
		royalty := *t.Royalty
		clone.Royalty = &royalty
	}
	return &clone
}

// AssetInfo is the read-only view of a token handed to consumers such as the
// marketplace engine.
type AssetInfo struct {
	ID         [32]byte
	Creator    [20]byte
	Collection string
	Name       string
	Standard   Standard
	Royalty    *Royalty
}

// Handle represents exclusive custody of a token between a withdraw and the
// matching deposit. A handle is single use: depositing consumes it and any
// further use fails.
type Handle struct {
	id       [32]byte
	consumed bool
}

// ID returns the token the handle holds custody of.
func (h *Handle) ID() [32]byte {
	if h == nil {
		return [32]byte{}
	}
	return h.id
}

// TokenID derives the deterministic identifier for a token from its creator,
// collection and name.
func TokenID(creator [20]byte, collection, name string) [32]byte {
	return [32]byte(ethcrypto.Keccak256Hash(creator[:], []byte(collection), []byte(name)))
}

// SanitizeToken validates and normalises a token record, returning a clone
// with trimmed naming fields. The original value is not mutated.
func SanitizeToken(t *Token) (*Token, error) {
	if t == nil {
		return nil, fmt.Errorf("token: nil token")
	}
	clone := t.Clone()
	clone.Collection = strings.TrimSpace(clone.Collection)
	clone.Name = strings.TrimSpace(clone.Name)
	if clone.Collection == "" {
		return nil, fmt.Errorf("token: collection required")
	}
	if clone.Name == "" {
		return nil, fmt.Errorf("token: name required")
	}
	if !clone.Standard.Valid() {
		return nil, fmt.Errorf("token: invalid standard: %d", clone.Standard)
	}
	if clone.Royalty != nil {
		if clone.Royalty.Denominator == 0 {
			return nil, fmt.Errorf("token: royalty denominator must be positive")
		}
		if clone.Royalty.Numerator > clone.Royalty.Denominator {
			return nil, fmt.Errorf("token: royalty ratio exceeds one")
		}
	}
	return clone, nil
}
