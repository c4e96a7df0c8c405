package market

import (
	"math/big"
	"sync"
	"time"

	"nftmarket/core/events"
	"nftmarket/core/types"
	"nftmarket/native/common"
	"nftmarket/native/fees"
	"nftmarket/native/token"
)

type engineState interface {
	ListingPut(*Listing) error
	ListingGet(id [32]byte) (*Listing, bool)
	ListingDelete(id [32]byte) error
	OfferPut(*CollectionOffer) error
	OfferGet(id [32]byte) (*CollectionOffer, bool)
	OfferDelete(id [32]byte) error
	GetAccount(addr []byte) (*types.Account, error)
	PutAccount(addr []byte, account *types.Account) error
}

// AssetCustody abstracts the thing being sold: it moves uniquely-owned tokens
// between owners and exposes the royalty metadata settlement needs. The
// engine consumes it, never implements it.
type AssetCustody interface {
	AssetInfo(id [32]byte) (*token.AssetInfo, bool, error)
	Withdraw(owner [20]byte, id [32]byte) (*token.Handle, error)
	Deposit(recipient [20]byte, h *token.Handle) error
	CanReceiveDirectly(recipient [20]byte, id [32]byte) bool
}

// Engine wires the marketplace escrow logic with external state, asset
// custody, fee schedules and event emission. Every exported operation executes
// as one serialised unit: all guards run before the first mutation, so a
// failed call leaves funds, assets and records exactly where they were.
type Engine struct {
	mu        sync.Mutex
	state     engineState
	custody   AssetCustody
	emitter   events.Emitter
	pauses    common.PauseView
	schedules map[string]fees.Schedule
	vault     [20]byte
	nowFn     func() int64
}

// NewEngine creates a marketplace engine with a no-op emitter. Callers must
// configure state, custody, the escrow vault and at least one fee schedule
// before use.
func NewEngine() *Engine {
	return &Engine{
		emitter:   events.NoopEmitter{},
		schedules: make(map[string]fees.Schedule),
		nowFn:     func() int64 { return time.Now().Unix() },
	}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state engineState) { e.state = state }

// SetCustody configures the asset custody backend.
func (e *Engine) SetCustody(custody AssetCustody) { e.custody = custody }

// SetVault configures the escrow account holding listed assets and escrowed
// funds.
func (e *Engine) SetVault(addr [20]byte) { e.vault = addr }

// SetPauses configures the administrative pause switchboard.
func (e *Engine) SetPauses(p common.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used by the engine. Primarily intended
// for tests to provide deterministic timestamps.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// RegisterSchedule makes a fee schedule available under the given id.
func (e *Engine) RegisterSchedule(id string, schedule fees.Schedule) {
	if schedule == nil {
		return
	}
	e.schedules[fees.NormalizeID(id)] = schedule
}

func (e *Engine) scheduleFor(id string) (fees.Schedule, error) {
	schedule, ok := e.schedules[fees.NormalizeID(id)]
	if !ok {
		return nil, ErrScheduleNotFound
	}
	return schedule, nil
}

func (e *Engine) now() int64 {
	if e == nil || e.nowFn == nil {
		return time.Now().Unix()
	}
	return e.nowFn()
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.custody == nil {
		return errNilCustody
	}
	if e.vault == ([20]byte{}) {
		return errNilVault
	}
	return common.Guard(e.pauses, common.ModuleMarket)
}

func ensureAccount(acc *types.Account) *types.Account {
	if acc == nil || acc.Balance == nil {
		return acc.Clone()
	}
	return acc
}

// transferFunds moves a fungible balance between accounts. A zero amount is a
// no-op; a shortfall surfaces as ErrInsufficientFunds.
func (e *Engine) transferFunds(from, to [20]byte, amount *big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	amt := cloneBigInt(amount)
	if amt.Sign() == 0 {
		return nil
	}
	if amt.Sign() < 0 {
		return errNegativeTransfer
	}
	fromAcc, err := e.state.GetAccount(from[:])
	if err != nil {
		return err
	}
	fromAcc = ensureAccount(fromAcc)
	if fromAcc.Balance.Cmp(amt) < 0 {
		return ErrInsufficientFunds
	}
	// Paying yourself is a net no-op. Both loads would alias the same account
	// and the second PutAccount would undo the debit.
	if from == to {
		return nil
	}
	toAcc, err := e.state.GetAccount(to[:])
	if err != nil {
		return err
	}
	toAcc = ensureAccount(toAcc)
	fromAcc.Balance = new(big.Int).Sub(fromAcc.Balance, amt)
	toAcc.Balance = new(big.Int).Add(toAcc.Balance, amt)
	if err := e.state.PutAccount(from[:], fromAcc); err != nil {
		return err
	}
	return e.state.PutAccount(to[:], toAcc)
}

// balanceOf returns the spendable balance for an address.
func (e *Engine) balanceOf(addr [20]byte) (*big.Int, error) {
	acc, err := e.state.GetAccount(addr[:])
	if err != nil {
		return nil, err
	}
	return ensureAccount(acc).Balance, nil
}

// openListing charges the listing fee, moves the asset into the escrow vault
// and persists the record. The custody handle is taken before any mutation so
// a fee shortfall aborts with nothing moved.
func (e *Engine) openListing(listing *Listing, initialPrice *big.Int) error {
	sanitized, err := SanitizeListing(listing)
	if err != nil {
		return err
	}
	schedule, err := e.scheduleFor(sanitized.ScheduleID)
	if err != nil {
		return err
	}
	if _, exists := e.state.ListingGet(sanitized.ID); exists {
		return ErrListingExists
	}
	handle, err := e.custody.Withdraw(sanitized.Seller, sanitized.AssetID)
	if err != nil {
		return err
	}
	if err := e.transferFunds(sanitized.Seller, schedule.FeeRecipient(), schedule.ListingFee(initialPrice)); err != nil {
		return err
	}
	if err := e.custody.Deposit(e.vault, handle); err != nil {
		return err
	}
	if err := e.state.ListingPut(sanitized); err != nil {
		return err
	}
	e.emit(newListedEvent(sanitized, initialPrice))
	return nil
}

// releaseAsset moves the escrowed asset out of the vault to the recipient and
// clears the listing record. This is the one-shot close transition: once the
// record is gone, every further operation on the id fails with
// ErrListingNotFound.
func (e *Engine) releaseAsset(listing *Listing, recipient [20]byte) error {
	handle, err := e.custody.Withdraw(e.vault, listing.AssetID)
	if err != nil {
		return err
	}
	if err := e.custody.Deposit(recipient, handle); err != nil {
		return err
	}
	return e.state.ListingDelete(listing.ID)
}

// computeRoyalty resolves the royalty split for a settlement of the given
// price from the asset's metadata. Assets without royalty metadata settle
// with a zero royalty.
func (e *Engine) computeRoyalty(assetID [32]byte, price *big.Int) ([20]byte, *big.Int, error) {
	info, ok, err := e.custody.AssetInfo(assetID)
	if err != nil {
		return [20]byte{}, nil, err
	}
	if !ok || info.Royalty == nil || info.Royalty.Denominator == 0 {
		return [20]byte{}, big.NewInt(0), nil
	}
	amount := new(big.Int).Mul(cloneBigInt(price), new(big.Int).SetUint64(info.Royalty.Numerator))
	amount.Div(amount, new(big.Int).SetUint64(info.Royalty.Denominator))
	return info.Royalty.Recipient, amount, nil
}

// assertStarted loads a listing and verifies its start time has passed.
func (e *Engine) assertStarted(id [32]byte) (*Listing, error) {
	listing, ok := e.state.ListingGet(id)
	if !ok {
		return nil, ErrListingNotFound
	}
	if e.now() < listing.StartTime {
		return nil, ErrNotStarted
	}
	return listing, nil
}

// ListFixedPrice escrows the asset and opens a fixed-price listing. The
// listing fee on the asking price is charged to the seller up front.
func (e *Engine) ListFixedPrice(seller [20]byte, assetID [32]byte, scheduleID string, price *big.Int) ([32]byte, error) {
	if err := e.ready(); err != nil {
		return [32]byte{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	listing := &Listing{
		ID:         ListingID(seller, assetID),
		Seller:     seller,
		AssetID:    assetID,
		ScheduleID: scheduleID,
		StartTime:  now,
		CreatedAt:  now,
		Kind:       SaleFixedPrice,
		FixedPrice: &FixedPriceSale{Price: cloneBigInt(price)},
	}
	if err := e.openListing(listing, price); err != nil {
		return [32]byte{}, err
	}
	return listing.ID, nil
}

// Buy purchases a fixed-price listing outright: exactly the asking price is
// withdrawn from the purchaser and settlement runs in the same unit. A
// listing that is an auction, or that has already settled, surfaces as
// ErrListingNotFound.
func (e *Engine) Buy(purchaser [20]byte, listingID [32]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	listing, err := e.assertStarted(listingID)
	if err != nil {
		return err
	}
	if listing.Kind != SaleFixedPrice || listing.FixedPrice == nil {
		return ErrListingNotFound
	}
	schedule, err := e.scheduleFor(listing.ScheduleID)
	if err != nil {
		return err
	}
	price := cloneBigInt(listing.FixedPrice.Price)
	if err := e.transferFunds(purchaser, e.vault, price); err != nil {
		return err
	}
	return e.settle(listing, purchaser, price, schedule)
}

// UpdatePrice changes the asking price of a fixed-price listing. Only the
// seller may do this; the start time is unaffected.
func (e *Engine) UpdatePrice(seller [20]byte, listingID [32]byte, newPrice *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	listing, ok := e.state.ListingGet(listingID)
	if !ok || listing.Kind != SaleFixedPrice || listing.FixedPrice == nil {
		return ErrListingNotFound
	}
	if listing.Seller != seller {
		return ErrNotSeller
	}
	if newPrice == nil || newPrice.Sign() <= 0 {
		return errInvalidPrice
	}
	listing.FixedPrice.Price = new(big.Int).Set(newPrice)
	if err := e.state.ListingPut(listing); err != nil {
		return err
	}
	e.emit(newPriceUpdatedEvent(listing))
	return nil
}

// CancelListing closes a listing early, returning the asset to the seller
// with no funds moved. Auctions can only be cancelled while no bid stands.
func (e *Engine) CancelListing(seller [20]byte, listingID [32]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	listing, ok := e.state.ListingGet(listingID)
	if !ok {
		return ErrListingNotFound
	}
	if listing.Seller != seller {
		return ErrNotSeller
	}
	if listing.Kind == SaleAuction && listing.Auction != nil && listing.Auction.Bidder != nil {
		return ErrStandingBid
	}
	if err := e.releaseAsset(listing, listing.Seller); err != nil {
		return err
	}
	e.emit(newCancelledEvent(listing))
	return nil
}

// GetListing returns a copy of the listing record, if present.
func (e *Engine) GetListing(id [32]byte) (*Listing, bool) {
	if e == nil || e.state == nil {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.ListingGet(id)
}

// GetOffer returns a copy of the collection offer record, if present.
func (e *Engine) GetOffer(id [32]byte) (*CollectionOffer, bool) {
	if e == nil || e.state == nil {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.OfferGet(id)
}
