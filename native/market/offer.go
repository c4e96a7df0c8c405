package market

import "math/big"

// PlaceOffer escrows a standing offer against a collection. The full amount
// is withdrawn from the bidder up front and held until the offer is matched
// or cancelled. Token name qualifiers, when given, restrict the offer to
// specific assets within the collection.
func (e *Engine) PlaceOffer(bidder [20]byte, creator [20]byte, collection, scheduleID string, amount *big.Int, expiration int64, nonce uint64, tokenNames ...string) ([32]byte, error) {
	if err := e.ready(); err != nil {
		return [32]byte{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	offer, err := SanitizeOffer(&CollectionOffer{
		Bidder:     bidder,
		Creator:    creator,
		Collection: collection,
		TokenNames: tokenNames,
		ScheduleID: scheduleID,
		Amount:     cloneBigInt(amount),
		Expiration: expiration,
		CreatedAt:  e.now(),
	})
	if err != nil {
		return [32]byte{}, err
	}
	if _, err := e.scheduleFor(offer.ScheduleID); err != nil {
		return [32]byte{}, err
	}
	offer.ID = OfferID(offer.Bidder, offer.Creator, offer.Collection, nonce)
	if _, exists := e.state.OfferGet(offer.ID); exists {
		return [32]byte{}, ErrOfferExists
	}
	if err := e.transferFunds(offer.Bidder, e.vault, offer.Amount); err != nil {
		return [32]byte{}, err
	}
	if err := e.state.OfferPut(offer); err != nil {
		return [32]byte{}, err
	}
	e.emit(newOfferPlacedEvent(offer))
	return offer.ID, nil
}

// qualifies reports whether the asset satisfies the offer's collection and
// qualifier constraints.
func (o *CollectionOffer) qualifies(creator [20]byte, collection, name string) bool {
	if o.Creator != creator || o.Collection != collection {
		return false
	}
	if len(o.TokenNames) == 0 {
		return true
	}
	for _, qualifier := range o.TokenNames {
		if qualifier == name {
			return true
		}
	}
	return false
}

// MatchOffer settles a standing offer against an asset the seller holds. The
// asset moves seller to bidder; recipients that cannot receive the legacy
// representation directly get the asset parked in their pickup container,
// which never blocks settlement of funds. Expiry is a guard here, not a
// stored state.
func (e *Engine) MatchOffer(seller [20]byte, offerID [32]byte, assetID [32]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	offer, ok := e.state.OfferGet(offerID)
	if !ok {
		return ErrOfferNotFound
	}
	if e.now() >= offer.Expiration {
		return ErrOfferExpired
	}
	info, found, err := e.custody.AssetInfo(assetID)
	if err != nil {
		return err
	}
	if !found || !offer.qualifies(info.Creator, info.Collection, info.Name) {
		return ErrWrongCollection
	}
	schedule, err := e.scheduleFor(offer.ScheduleID)
	if err != nil {
		return err
	}
	split, err := e.splitPayment(assetID, offer.Amount, schedule)
	if err != nil {
		return err
	}
	handle, err := e.custody.Withdraw(seller, assetID)
	if err != nil {
		return err
	}
	direct := e.custody.CanReceiveDirectly(offer.Bidder, assetID)
	if err := e.custody.Deposit(offer.Bidder, handle); err != nil {
		return err
	}
	if err := e.paySplit(split, seller, schedule); err != nil {
		return err
	}
	if err := e.state.OfferDelete(offer.ID); err != nil {
		return err
	}
	e.emit(newOfferMatchedEvent(offer, seller, assetID, split, direct))
	return nil
}

// CancelOffer refunds the escrowed amount to the bidder and destroys the
// offer record. Only the bidder may cancel; an expired offer can still be
// cancelled for a full refund.
func (e *Engine) CancelOffer(bidder [20]byte, offerID [32]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	offer, ok := e.state.OfferGet(offerID)
	if !ok {
		return ErrOfferNotFound
	}
	if offer.Bidder != bidder {
		return ErrNotOwner
	}
	if err := e.transferFunds(e.vault, offer.Bidder, offer.Amount); err != nil {
		return err
	}
	if err := e.state.OfferDelete(offer.ID); err != nil {
		return err
	}
	e.emit(newOfferCancelledEvent(offer))
	return nil
}
