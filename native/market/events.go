package market

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"nftmarket/core/types"
	"nftmarket/crypto"
)

const (
	EventTypeListed         = "market.listed"
	EventTypePriceUpdated   = "market.price_updated"
	EventTypeCancelled      = "market.cancelled"
	EventTypeFilled         = "market.filled"
	EventTypeBid            = "market.bid"
	EventTypeOfferPlaced    = "market.offer_placed"
	EventTypeOfferMatched   = "market.offer_matched"
	EventTypeOfferCancelled = "market.offer_cancelled"
)

type marketEvent struct {
	evt *types.Event
}

func (e marketEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e marketEvent) Event() *types.Event { return e.evt }

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(marketEvent{evt: evt})
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func newListingEvent(eventType string, l *Listing) *types.Event {
	attrs := make(map[string]string)
	if l != nil {
		attrs["listingId"] = hex.EncodeToString(l.ID[:])
		attrs["seller"] = crypto.MustNewAddress(l.Seller).String()
		attrs["assetId"] = hex.EncodeToString(l.AssetID[:])
		attrs["saleType"] = l.Kind.String()
		attrs["scheduleId"] = l.ScheduleID
		attrs["startTime"] = strconv.FormatInt(l.StartTime, 10)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

func newListedEvent(l *Listing, initialPrice *big.Int) *types.Event {
	evt := newListingEvent(EventTypeListed, l)
	evt.Attributes["price"] = formatAmount(initialPrice)
	if l != nil && l.Auction != nil {
		evt.Attributes["endTime"] = strconv.FormatInt(l.Auction.EndTime, 10)
		evt.Attributes["minIncrement"] = formatAmount(l.Auction.MinIncrement)
		if l.Auction.BuyItNowPrice != nil {
			evt.Attributes["buyItNowPrice"] = formatAmount(l.Auction.BuyItNowPrice)
		}
	}
	return evt
}

func newPriceUpdatedEvent(l *Listing) *types.Event {
	evt := newListingEvent(EventTypePriceUpdated, l)
	if l != nil && l.FixedPrice != nil {
		evt.Attributes["price"] = formatAmount(l.FixedPrice.Price)
	}
	return evt
}

func newCancelledEvent(l *Listing) *types.Event {
	return newListingEvent(EventTypeCancelled, l)
}

// newFilledEvent is the settlement notification. The same attribute set is
// produced for every settlement path, including the zero-value close of an
// auction that received no bids.
func newFilledEvent(l *Listing, recipient [20]byte, total, commission, royalty *big.Int) *types.Event {
	evt := newListingEvent(EventTypeFilled, l)
	evt.Attributes["purchaser"] = crypto.MustNewAddress(recipient).String()
	evt.Attributes["price"] = formatAmount(total)
	evt.Attributes["commission"] = formatAmount(commission)
	evt.Attributes["royalty"] = formatAmount(royalty)
	return evt
}

func newBidEvent(l *Listing, prevBidder *[20]byte, prevAmount *big.Int, prevEndTime int64) *types.Event {
	evt := newListingEvent(EventTypeBid, l)
	if l != nil && l.Auction != nil {
		if l.Auction.Bidder != nil {
			evt.Attributes["newBidder"] = crypto.MustNewAddress(*l.Auction.Bidder).String()
		}
		evt.Attributes["newAmount"] = formatAmount(l.Auction.Amount)
		evt.Attributes["newEndTime"] = strconv.FormatInt(l.Auction.EndTime, 10)
	}
	evt.Attributes["prevEndTime"] = strconv.FormatInt(prevEndTime, 10)
	if prevBidder != nil {
		evt.Attributes["prevBidder"] = crypto.MustNewAddress(*prevBidder).String()
		evt.Attributes["prevAmount"] = formatAmount(prevAmount)
	}
	return evt
}

func newOfferEvent(eventType string, o *CollectionOffer) *types.Event {
	attrs := make(map[string]string)
	if o != nil {
		attrs["offerId"] = hex.EncodeToString(o.ID[:])
		attrs["bidder"] = crypto.MustNewAddress(o.Bidder).String()
		attrs["creator"] = crypto.MustNewAddress(o.Creator).String()
		attrs["collection"] = o.Collection
		attrs["amount"] = formatAmount(o.Amount)
		attrs["expiration"] = strconv.FormatInt(o.Expiration, 10)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}

func newOfferPlacedEvent(o *CollectionOffer) *types.Event {
	return newOfferEvent(EventTypeOfferPlaced, o)
}

func newOfferMatchedEvent(o *CollectionOffer, seller [20]byte, assetID [32]byte, split *settlementSplit, direct bool) *types.Event {
	evt := newOfferEvent(EventTypeOfferMatched, o)
	evt.Attributes["seller"] = crypto.MustNewAddress(seller).String()
	evt.Attributes["assetId"] = hex.EncodeToString(assetID[:])
	evt.Attributes["commission"] = formatAmount(split.commission)
	evt.Attributes["royalty"] = formatAmount(split.royalty)
	evt.Attributes["directDeposit"] = strconv.FormatBool(direct)
	return evt
}

func newOfferCancelledEvent(o *CollectionOffer) *types.Event {
	return newOfferEvent(EventTypeOfferCancelled, o)
}
