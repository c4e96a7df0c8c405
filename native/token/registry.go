package token

import (
	"errors"
	"sync"
	"time"

	"nftmarket/core/events"
)

var (
	errNilState = errors.New("token registry: state not configured")

	// ErrTokenNotFound is returned when no token exists with the given id.
	ErrTokenNotFound = errors.New("token registry: token not found")
	// ErrTokenExists is returned when minting a token whose id is taken.
	ErrTokenExists = errors.New("token registry: token already exists")
	// ErrNotTokenOwner is returned when the caller does not own the token.
	ErrNotTokenOwner = errors.New("token registry: caller does not own token")
	// ErrHandleConsumed is returned when a custody handle is used twice.
	ErrHandleConsumed = errors.New("token registry: custody handle already consumed")
	// ErrTokenParked is returned when withdrawing a token that is still in a
	// pickup container; the owner must claim it first.
	ErrTokenParked = errors.New("token registry: token parked in pickup container")
	// ErrNotParked is returned when claiming a token that is not parked.
	ErrNotParked = errors.New("token registry: token not parked")
)

type registryState interface {
	TokenPut(*Token) error
	TokenGet(id [32]byte) (*Token, bool, error)
	DirectReceiveSet(addr [20]byte, enabled bool) error
	DirectReceiveEnabled(addr [20]byte) (bool, error)
	ContainerAdd(owner [20]byte, id [32]byte) error
	ContainerRemove(owner [20]byte, id [32]byte) (bool, error)
	ContainerList(owner [20]byte) ([][32]byte, error)
}

// Registry tracks ownership of unique assets and mediates every transfer of
// custody. It is the marketplace engine's asset-custody backend.
type Registry struct {
	mu      sync.Mutex
	state   registryState
	emitter events.Emitter
	nowFn   func() int64
}

// NewRegistry creates a registry with a no-op emitter.
func NewRegistry() *Registry {
	return &Registry{
		emitter: events.NoopEmitter{},
		nowFn:   func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the registry.
func (r *Registry) SetState(state registryState) { r.state = state }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetNowFunc overrides the time source, primarily for deterministic tests.
func (r *Registry) SetNowFunc(now func() int64) {
	if now == nil {
		r.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	r.nowFn = now
}

func (r *Registry) now() int64 {
	if r == nil || r.nowFn == nil {
		return time.Now().Unix()
	}
	return r.nowFn()
}

func (r *Registry) loadToken(id [32]byte) (*Token, error) {
	if r == nil || r.state == nil {
		return nil, errNilState
	}
	tok, ok, err := r.state.TokenGet(id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTokenNotFound
	}
	return tok, nil
}

// Mint registers a new token owned by its creator. The id is derived from the
// creator, collection and name, so a collection cannot hold two tokens with
// the same name.
func (r *Registry) Mint(creator [20]byte, collection, name string, standard Standard, royalty *Royalty) ([32]byte, error) {
	if r == nil || r.state == nil {
		return [32]byte{}, errNilState
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	tok, err := SanitizeToken(&Token{
		Creator:    creator,
		Collection: collection,
		Name:       name,
		Standard:   standard,
		Owner:      creator,
		Royalty:    royalty,
		MintedAt:   r.now(),
	})
	if err != nil {
		return [32]byte{}, err
	}
	tok.ID = TokenID(tok.Creator, tok.Collection, tok.Name)
	if _, ok, err := r.state.TokenGet(tok.ID); err != nil {
		return [32]byte{}, err
	} else if ok {
		return [32]byte{}, ErrTokenExists
	}
	if err := r.state.TokenPut(tok); err != nil {
		return [32]byte{}, err
	}
	r.emit(newMintedEvent(tok))
	return tok.ID, nil
}

// AssetInfo returns the read-only view of a token.
func (r *Registry) AssetInfo(id [32]byte) (*AssetInfo, bool, error) {
	if r == nil || r.state == nil {
		return nil, false, errNilState
	}
	tok, ok, err := r.state.TokenGet(id)
	if err != nil || !ok {
		return nil, false, err
	}
	info := &AssetInfo{
		ID:         tok.ID,
		Creator:    tok.Creator,
		Collection: tok.Collection,
		Name:       tok.Name,
		Standard:   tok.Standard,
	}
	if tok.Royalty != nil {
		royalty := *tok.Royalty
		info.Royalty = &royalty
	}
	return info, true, nil
}

// Token returns a copy of the full registry record for a token.
func (r *Registry) Token(id [32]byte) (*Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok, err := r.loadToken(id)
	if err != nil {
		return nil, err
	}
	return tok.Clone(), nil
}

// OwnerOf returns the current owner of a token.
func (r *Registry) OwnerOf(id [32]byte) ([20]byte, error) {
	tok, err := r.loadToken(id)
	if err != nil {
		return [20]byte{}, err
	}
	return tok.Owner, nil
}

// Withdraw removes the token from its owner and returns a single-use custody
// handle. The token has no owner until the handle is deposited.
func (r *Registry) Withdraw(owner [20]byte, id [32]byte) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tok, err := r.loadToken(id)
	if err != nil {
		return nil, err
	}
	if tok.Owner != owner {
		return nil, ErrNotTokenOwner
	}
	if tok.Parked {
		return nil, ErrTokenParked
	}
	return &Handle{id: id}, nil
}

// Deposit releases custody of the token to the recipient, consuming the
// handle. Legacy-standard tokens are parked in the recipient's pickup
// container unless the recipient has opted into direct receipt; this fallback
// never fails the deposit.
func (r *Registry) Deposit(recipient [20]byte, h *Handle) error {
	if r == nil || r.state == nil {
		return errNilState
	}
	if h == nil || h.consumed {
		return ErrHandleConsumed
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	tok, err := r.loadToken(h.id)
	if err != nil {
		return err
	}
	direct, err := r.canReceiveDirectly(recipient, tok)
	if err != nil {
		return err
	}
	tok.Owner = recipient
	tok.Parked = !direct
	if err := r.state.TokenPut(tok); err != nil {
		return err
	}
	if !direct {
		if err := r.state.ContainerAdd(recipient, tok.ID); err != nil {
			return err
		}
		r.emit(newParkedEvent(tok))
	}
	h.consumed = true
	return nil
}

// CanReceiveDirectly reports whether a deposit of the token to the recipient
// would transfer ownership outright rather than park it in a container.
func (r *Registry) CanReceiveDirectly(recipient [20]byte, id [32]byte) bool {
	if r == nil || r.state == nil {
		return false
	}
	tok, ok, err := r.state.TokenGet(id)
	if err != nil || !ok {
		return false
	}
	direct, err := r.canReceiveDirectly(recipient, tok)
	if err != nil {
		return false
	}
	return direct
}

func (r *Registry) canReceiveDirectly(recipient [20]byte, tok *Token) (bool, error) {
	if tok.Standard == StandardObject {
		return true, nil
	}
	return r.state.DirectReceiveEnabled(recipient)
}

// SetDirectReceive records the account's opt-in for direct receipt of
// legacy-standard tokens.
func (r *Registry) SetDirectReceive(addr [20]byte, enabled bool) error {
	if r == nil || r.state == nil {
		return errNilState
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.DirectReceiveSet(addr, enabled)
}

// Claim extracts a parked token from the caller's pickup container, making it
// withdrawable again.
func (r *Registry) Claim(owner [20]byte, id [32]byte) error {
	if r == nil || r.state == nil {
		return errNilState
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	tok, err := r.loadToken(id)
	if err != nil {
		return err
	}
	if tok.Owner != owner {
		return ErrNotTokenOwner
	}
	if !tok.Parked {
		return ErrNotParked
	}
	removed, err := r.state.ContainerRemove(owner, id)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotParked
	}
	tok.Parked = false
	if err := r.state.TokenPut(tok); err != nil {
		return err
	}
	r.emit(newClaimedEvent(tok))
	return nil
}

// ContainerContents lists the tokens parked in an account's pickup container.
func (r *Registry) ContainerContents(owner [20]byte) ([][32]byte, error) {
	if r == nil || r.state == nil {
		return nil, errNilState
	}
	return r.state.ContainerList(owner)
}
