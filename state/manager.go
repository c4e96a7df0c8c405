package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"nftmarket/core/types"
	"nftmarket/native/market"
	"nftmarket/native/token"
	"nftmarket/storage"
)

var (
	keyPrefixAccount   = []byte("acct/")
	keyPrefixListing   = []byte("listing/")
	keyPrefixOffer     = []byte("offer/")
	keyPrefixToken     = []byte("token/")
	keyPrefixOptIn     = []byte("optin/")
	keyPrefixContainer = []byte("container/")
)

// Manager persists marketplace state as JSON records over a key-value store.
// It is the state backend consumed by the market engine and token registry.
type Manager struct {
	mu sync.RWMutex
	db storage.Database
}

// NewManager wraps the supplied database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

func prefixed(prefix, key []byte) []byte {
	out := make([]byte, 0, len(prefix)+len(key))
	out = append(out, prefix...)
	return append(out, key...)
}

func (m *Manager) getJSON(key []byte, out interface{}) (bool, error) {
	raw, err := m.db.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("state: decode record: %w", err)
	}
	return true, nil
}

func (m *Manager) putJSON(key []byte, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("state: encode record: %w", err)
	}
	return m.db.Put(key, raw)
}

// --- accounts ---

// GetAccount loads the account for an address, returning a zero-balance
// account when none is stored yet.
func (m *Manager) GetAccount(addr []byte) (*types.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var acc types.Account
	ok, err := m.getJSON(prefixed(keyPrefixAccount, addr), &acc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &types.Account{Balance: big.NewInt(0)}, nil
	}
	if acc.Balance == nil {
		acc.Balance = big.NewInt(0)
	}
	return &acc, nil
}

// PutAccount stores the account for an address.
func (m *Manager) PutAccount(addr []byte, account *types.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putJSON(prefixed(keyPrefixAccount, addr), account.Clone())
}

// Credit adds funds to an account balance. Used by genesis allocation and the
// config-gated development faucet.
func (m *Manager) Credit(addr [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("state: credit amount must be non-negative")
	}
	acc, err := m.GetAccount(addr[:])
	if err != nil {
		return err
	}
	acc.Balance = new(big.Int).Add(acc.Balance, amount)
	return m.PutAccount(addr[:], acc)
}

// --- listings ---

func (m *Manager) ListingPut(l *market.Listing) error {
	sanitized, err := market.SanitizeListing(l)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putJSON(prefixed(keyPrefixListing, sanitized.ID[:]), sanitized)
}

func (m *Manager) ListingGet(id [32]byte) (*market.Listing, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var listing market.Listing
	ok, err := m.getJSON(prefixed(keyPrefixListing, id[:]), &listing)
	if err != nil || !ok {
		return nil, false
	}
	return &listing, true
}

func (m *Manager) ListingDelete(id [32]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Delete(prefixed(keyPrefixListing, id[:]))
}

// --- collection offers ---

func (m *Manager) OfferPut(o *market.CollectionOffer) error {
	sanitized, err := market.SanitizeOffer(o)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putJSON(prefixed(keyPrefixOffer, sanitized.ID[:]), sanitized)
}

func (m *Manager) OfferGet(id [32]byte) (*market.CollectionOffer, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var offer market.CollectionOffer
	ok, err := m.getJSON(prefixed(keyPrefixOffer, id[:]), &offer)
	if err != nil || !ok {
		return nil, false
	}
	return &offer, true
}

func (m *Manager) OfferDelete(id [32]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Delete(prefixed(keyPrefixOffer, id[:]))
}

// --- tokens ---

func (m *Manager) TokenPut(t *token.Token) error {
	sanitized, err := token.SanitizeToken(t)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.putJSON(prefixed(keyPrefixToken, sanitized.ID[:]), sanitized)
}

func (m *Manager) TokenGet(id [32]byte) (*token.Token, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var tok token.Token
	ok, err := m.getJSON(prefixed(keyPrefixToken, id[:]), &tok)
	if err != nil || !ok {
		return nil, false, err
	}
	return &tok, true, nil
}

func (m *Manager) DirectReceiveSet(addr [20]byte, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := prefixed(keyPrefixOptIn, addr[:])
	if !enabled {
		return m.db.Delete(key)
	}
	return m.db.Put(key, []byte{1})
}

func (m *Manager) DirectReceiveEnabled(addr [20]byte) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db.Has(prefixed(keyPrefixOptIn, addr[:]))
}

// --- pickup containers ---

func (m *Manager) containerKey(owner [20]byte) []byte {
	return prefixed(keyPrefixContainer, owner[:])
}

func (m *Manager) loadContainer(owner [20]byte) ([][32]byte, error) {
	var ids [][32]byte
	if _, err := m.getJSON(m.containerKey(owner), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func (m *Manager) ContainerAdd(owner [20]byte, id [32]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids, err := m.loadContainer(owner)
	if err != nil {
		return err
	}
	for _, existing := range ids {
		if existing == id {
			return nil
		}
	}
	return m.putJSON(m.containerKey(owner), append(ids, id))
}

func (m *Manager) ContainerRemove(owner [20]byte, id [32]byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids, err := m.loadContainer(owner)
	if err != nil {
		return false, err
	}
	for i, existing := range ids {
		if existing == id {
			ids = append(ids[:i], ids[i+1:]...)
			if len(ids) == 0 {
				return true, m.db.Delete(m.containerKey(owner))
			}
			return true, m.putJSON(m.containerKey(owner), ids)
		}
	}
	return false, nil
}

func (m *Manager) ContainerList(owner [20]byte) ([][32]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loadContainer(owner)
}
