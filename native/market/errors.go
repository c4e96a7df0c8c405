package market

import "errors"

var (
	errNilState         = errors.New("market engine: state not configured")
	errNilCustody       = errors.New("market engine: asset custody not configured")
	errNilVault         = errors.New("market engine: escrow vault not configured")
	errNegativeTransfer = errors.New("market engine: negative transfer amount")
	errInvalidPrice     = errors.New("market engine: price must be positive")
)

var (
	// ErrListingNotFound is returned when no escrow exists at the given id,
	// including the case where a fixed-price operation targets an auction (or
	// vice versa) and the case where the listing has already settled.
	ErrListingNotFound = errors.New("market engine: listing not found")
	// ErrOfferNotFound is returned when no collection offer exists at the id.
	ErrOfferNotFound = errors.New("market engine: offer not found")
	// ErrNotStarted is returned for buyer-facing operations before the
	// listing's start time.
	ErrNotStarted = errors.New("market engine: listing not started")
	// ErrNotSeller is returned when a seller-only operation is invoked by
	// another party.
	ErrNotSeller = errors.New("market engine: caller is not the seller")
	// ErrNotOwner is returned when an offer operation is invoked by someone
	// other than the offer's bidder.
	ErrNotOwner = errors.New("market engine: caller does not own the offer")
	// ErrInsufficientFunds is returned when a withdrawal cannot be covered.
	// It is always surfaced, never retried internally.
	ErrInsufficientFunds = errors.New("market engine: insufficient funds")
	// ErrBidTooLow is returned when a bid is below the required minimum.
	ErrBidTooLow = errors.New("market engine: bid below required minimum")
	// ErrAuctionEnded is returned for bids placed at or after the end time.
	ErrAuctionEnded = errors.New("market engine: auction has ended")
	// ErrAuctionNotEnded is returned when completing an auction early.
	ErrAuctionNotEnded = errors.New("market engine: auction has not ended")
	// ErrNoBuyItNow is returned for outright purchases of an auction without
	// a buy-it-now price.
	ErrNoBuyItNow = errors.New("market engine: auction has no buy-it-now price")
	// ErrWrongCollection is returned when a presented asset does not satisfy
	// an offer's collection or qualifier constraints.
	ErrWrongCollection = errors.New("market engine: asset does not match offer")
	// ErrOfferExpired is returned when matching an offer past its expiration.
	ErrOfferExpired = errors.New("market engine: offer expired")
	// ErrStandingBid is returned when cancelling an auction that already has
	// an accepted bid.
	ErrStandingBid = errors.New("market engine: auction has a standing bid")
	// ErrScheduleNotFound is returned when a fee schedule id is not
	// registered with the engine.
	ErrScheduleNotFound = errors.New("market engine: fee schedule not found")
	// ErrListingExists is returned when the seller already has an open
	// listing for the asset.
	ErrListingExists = errors.New("market engine: listing already exists")
	// ErrOfferExists is returned when an offer id is already taken.
	ErrOfferExists = errors.New("market engine: offer already exists")
)
