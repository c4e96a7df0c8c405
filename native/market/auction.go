package market

import "math/big"

// ListAuction escrows the asset and opens a timed auction. The listing fee is
// charged on the starting bid. A nil buyItNowPrice disables outright purchase.
func (e *Engine) ListAuction(seller [20]byte, assetID [32]byte, scheduleID string, startingBid, minIncrement *big.Int, endTime, extensionWindow int64, buyItNowPrice *big.Int) ([32]byte, error) {
	if err := e.ready(); err != nil {
		return [32]byte{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	auction := &AuctionSale{
		StartingBid:     cloneBigInt(startingBid),
		MinIncrement:    cloneBigInt(minIncrement),
		EndTime:         endTime,
		ExtensionWindow: extensionWindow,
	}
	if buyItNowPrice != nil {
		auction.BuyItNowPrice = new(big.Int).Set(buyItNowPrice)
	}
	listing := &Listing{
		ID:         ListingID(seller, assetID),
		Seller:     seller,
		AssetID:    assetID,
		ScheduleID: scheduleID,
		StartTime:  now,
		CreatedAt:  now,
		Kind:       SaleAuction,
		Auction:    auction,
	}
	if err := e.openListing(listing, startingBid); err != nil {
		return [32]byte{}, err
	}
	return listing.ID, nil
}

// minimumBid returns the floor the next bid must reach: the starting bid
// until a bid stands, then the standing amount plus the minimum increment
// (whichever of the two is higher).
func minimumBid(auction *AuctionSale) *big.Int {
	floor := cloneBigInt(auction.StartingBid)
	if auction.Amount != nil {
		stepped := new(big.Int).Add(auction.Amount, auction.MinIncrement)
		if stepped.Cmp(floor) > 0 {
			floor = stepped
		}
	}
	return floor
}

// Bid places a bid on an auction. An accepted bid fully supersedes the
// previous one: the prior bidder is refunded in the same unit, so the escrow
// never holds funds for two bidders at once. A bid landing inside the
// extension window pushes the end time forward, never back. A bid at or above
// the buy-it-now price settles immediately.
func (e *Engine) Bid(bidder [20]byte, listingID [32]byte, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	listing, err := e.assertStarted(listingID)
	if err != nil {
		return err
	}
	if listing.Kind != SaleAuction || listing.Auction == nil {
		return ErrListingNotFound
	}
	auction := listing.Auction
	now := e.now()
	if now >= auction.EndTime {
		return ErrAuctionEnded
	}
	amt := cloneBigInt(amount)
	if amt.Cmp(minimumBid(auction)) < 0 {
		return ErrBidTooLow
	}
	schedule, err := e.scheduleFor(listing.ScheduleID)
	if err != nil {
		return err
	}
	if err := e.transferFunds(bidder, e.vault, amt); err != nil {
		return err
	}
	var prevBidder *[20]byte
	var prevAmount *big.Int
	prevEndTime := auction.EndTime
	if auction.Bidder != nil {
		prev := *auction.Bidder
		prevBidder = &prev
		prevAmount = cloneBigInt(auction.Amount)
		if err := e.transferFunds(e.vault, prev, prevAmount); err != nil {
			return err
		}
	}
	auction.Bidder = &bidder
	auction.Amount = amt
	if auction.EndTime-now <= auction.ExtensionWindow {
		if extended := now + auction.ExtensionWindow; extended > auction.EndTime {
			auction.EndTime = extended
		}
	}
	if err := e.state.ListingPut(listing); err != nil {
		return err
	}
	e.emit(newBidEvent(listing, prevBidder, prevAmount, prevEndTime))
	if auction.BuyItNowPrice != nil && amt.Cmp(auction.BuyItNowPrice) >= 0 {
		return e.settle(listing, bidder, amt, schedule)
	}
	return nil
}

// BuyNow purchases an auction outright at its buy-it-now price, refunding any
// standing bidder first.
func (e *Engine) BuyNow(purchaser [20]byte, listingID [32]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	listing, err := e.assertStarted(listingID)
	if err != nil {
		return err
	}
	if listing.Kind != SaleAuction || listing.Auction == nil {
		return ErrListingNotFound
	}
	auction := listing.Auction
	if auction.BuyItNowPrice == nil {
		return ErrNoBuyItNow
	}
	schedule, err := e.scheduleFor(listing.ScheduleID)
	if err != nil {
		return err
	}
	price := new(big.Int).Set(auction.BuyItNowPrice)
	if err := e.transferFunds(purchaser, e.vault, price); err != nil {
		return err
	}
	if auction.Bidder != nil {
		if err := e.transferFunds(e.vault, *auction.Bidder, auction.Amount); err != nil {
			return err
		}
		auction.Bidder = nil
		auction.Amount = nil
	}
	return e.settle(listing, purchaser, price, schedule)
}

// CompleteAuction finalises an auction whose end time has passed. Anyone may
// call it. With a standing bid the escrowed amount settles to the bidder;
// without one the asset returns to the seller under a zero-value settlement.
// A second call finds no listing and moves no funds.
func (e *Engine) CompleteAuction(listingID [32]byte) error {
	if err := e.ready(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	listing, ok := e.state.ListingGet(listingID)
	if !ok {
		return ErrListingNotFound
	}
	if listing.Kind != SaleAuction || listing.Auction == nil {
		return ErrListingNotFound
	}
	auction := listing.Auction
	if e.now() < auction.EndTime {
		return ErrAuctionNotEnded
	}
	schedule, err := e.scheduleFor(listing.ScheduleID)
	if err != nil {
		return err
	}
	if auction.Bidder == nil {
		if err := e.releaseAsset(listing, listing.Seller); err != nil {
			return err
		}
		e.emit(newFilledEvent(listing, listing.Seller, big.NewInt(0), big.NewInt(0), big.NewInt(0)))
		return nil
	}
	return e.settle(listing, *auction.Bidder, cloneBigInt(auction.Amount), schedule)
}
