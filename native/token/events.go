package token

import (
	"encoding/hex"
	"strconv"

	"nftmarket/core/types"
	"nftmarket/crypto"
)

const (
	EventTypeTokenMinted  = "token.minted"
	EventTypeTokenParked  = "token.parked"
	EventTypeTokenClaimed = "token.claimed"
)

type tokenEvent struct {
	evt *types.Event
}

func (e tokenEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e tokenEvent) Event() *types.Event { return e.evt }

func (r *Registry) emit(evt *types.Event) {
	if r == nil || r.emitter == nil || evt == nil {
		return
	}
	r.emitter.Emit(tokenEvent{evt: evt})
}

func newMintedEvent(t *Token) *types.Event {
	evt := newTokenEvent(EventTypeTokenMinted, t)
	if t != nil && t.Royalty != nil {
		evt.Attributes["royaltyRecipient"] = crypto.MustNewAddress(t.Royalty.Recipient).String()
		evt.Attributes["royaltyNumerator"] = strconv.FormatUint(t.Royalty.Numerator, 10)
		evt.Attributes["royaltyDenominator"] = strconv.FormatUint(t.Royalty.Denominator, 10)
	}
	return evt
}

func newParkedEvent(t *Token) *types.Event { return newTokenEvent(EventTypeTokenParked, t) }

func newClaimedEvent(t *Token) *types.Event { return newTokenEvent(EventTypeTokenClaimed, t) }

func newTokenEvent(eventType string, t *Token) *types.Event {
	attrs := make(map[string]string)
	if t != nil {
		attrs["id"] = hex.EncodeToString(t.ID[:])
		attrs["creator"] = crypto.MustNewAddress(t.Creator).String()
		attrs["collection"] = t.Collection
		attrs["name"] = t.Name
		attrs["owner"] = crypto.MustNewAddress(t.Owner).String()
		attrs["standard"] = strconv.FormatUint(uint64(t.Standard), 10)
	}
	return &types.Event{Type: eventType, Attributes: attrs}
}
