package market

import (
	"errors"
	"math/big"
	"testing"

	"nftmarket/native/token"
)

func TestPlaceOfferEscrowsFunds(t *testing.T) {
	f := newTestFixture(t)
	f.registerSchedule(t, "standard")
	bidder := newTestAddress(0x02)
	creator := newTestAddress(0x01)
	f.fund(bidder, 10_000)

	offerID, err := f.engine.PlaceOffer(bidder, creator, "drops", "standard", big.NewInt(2_000), testTimestamp+3600, 1)
	if err != nil {
		t.Fatalf("place offer: %v", err)
	}

	f.requireBalance(t, bidder, 8_000)
	f.requireBalance(t, vaultAddr, 2_000)

	offer, ok := f.engine.GetOffer(offerID)
	if !ok {
		t.Fatalf("offer not stored")
	}
	if offer.Amount.Cmp(big.NewInt(2_000)) != 0 {
		t.Fatalf("amount = %s, want 2000", offer.Amount)
	}
	evt := f.emitter.lastOfType(t, EventTypeOfferPlaced)
	if evt.Attributes["amount"] != "2000" {
		t.Fatalf("amount attr = %q", evt.Attributes["amount"])
	}
}

func TestPlaceOfferDuplicateNonce(t *testing.T) {
	f := newTestFixture(t)
	f.registerSchedule(t, "standard")
	bidder := newTestAddress(0x02)
	creator := newTestAddress(0x01)
	f.fund(bidder, 10_000)

	if _, err := f.engine.PlaceOffer(bidder, creator, "drops", "standard", big.NewInt(2_000), testTimestamp+3600, 1); err != nil {
		t.Fatalf("place offer: %v", err)
	}
	if _, err := f.engine.PlaceOffer(bidder, creator, "drops", "standard", big.NewInt(3_000), testTimestamp+3600, 1); !errors.Is(err, ErrOfferExists) {
		t.Fatalf("err = %v, want ErrOfferExists", err)
	}
	// A fresh nonce opens a second offer against the same collection.
	if _, err := f.engine.PlaceOffer(bidder, creator, "drops", "standard", big.NewInt(3_000), testTimestamp+3600, 2); err != nil {
		t.Fatalf("place offer with new nonce: %v", err)
	}
	f.requireBalance(t, bidder, 5_000)
}

func TestPlaceOfferInsufficientFunds(t *testing.T) {
	f := newTestFixture(t)
	f.registerSchedule(t, "standard")
	bidder := newTestAddress(0x02)
	creator := newTestAddress(0x01)
	f.fund(bidder, 100)

	if _, err := f.engine.PlaceOffer(bidder, creator, "drops", "standard", big.NewInt(2_000), testTimestamp+3600, 1); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("err = %v, want ErrInsufficientFunds", err)
	}
	if len(f.state.offers) != 0 {
		t.Fatalf("offer persisted after failed escrow")
	}
}

func TestMatchOfferSettlesDirectly(t *testing.T) {
	f := newTestFixture(t)
	f.registerSchedule(t, "standard")
	creator := newTestAddress(0x01)
	seller := newTestAddress(0x03)
	bidder := newTestAddress(0x02)
	f.fund(bidder, 10_000)
	// 10% royalty; the creator minted, then sold to the current seller.
	assetID := f.mintWithRoyalty(t, creator, "drops", "genesis", 1, 10)
	transferToken(t, f.registry, creator, seller, assetID)

	offerID, err := f.engine.PlaceOffer(bidder, creator, "drops", "standard", big.NewInt(2_000), testTimestamp+3600, 1)
	if err != nil {
		t.Fatalf("place offer: %v", err)
	}
	if err := f.engine.MatchOffer(seller, offerID, assetID); err != nil {
		t.Fatalf("match offer: %v", err)
	}

	// 2_000 gross: 200 royalty, 50 commission, 1_750 proceeds.
	f.requireBalance(t, royaltyAddr, 200)
	f.requireBalance(t, feeRecipientAddr, 50)
	f.requireBalance(t, seller, 1_750)
	f.requireBalance(t, vaultAddr, 0)
	f.requireOwner(t, assetID, bidder)

	if _, ok := f.engine.GetOffer(offerID); ok {
		t.Fatalf("offer survived match")
	}
	evt := f.emitter.lastOfType(t, EventTypeOfferMatched)
	if evt.Attributes["directDeposit"] != "true" {
		t.Fatalf("directDeposit attr = %q", evt.Attributes["directDeposit"])
	}
	if evt.Attributes["commission"] != "50" || evt.Attributes["royalty"] != "200" {
		t.Fatalf("matched attrs = %v", evt.Attributes)
	}
}

func TestMatchOfferParksLegacyTokenForUnoptedRecipient(t *testing.T) {
	f := newTestFixture(t)
	f.registerSchedule(t, "standard")
	seller := newTestAddress(0x01)
	bidder := newTestAddress(0x02)
	f.fund(bidder, 10_000)

	assetID, err := f.registry.Mint(seller, "drops", "relic", token.StandardLegacy, nil)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}

	offerID, err := f.engine.PlaceOffer(bidder, seller, "drops", "standard", big.NewInt(2_000), testTimestamp+3600, 1)
	if err != nil {
		t.Fatalf("place offer: %v", err)
	}
	if err := f.engine.MatchOffer(seller, offerID, assetID); err != nil {
		t.Fatalf("match offer: %v", err)
	}

	// Funds settle in full even though the asset parked.
	f.requireBalance(t, seller, 1_950)
	f.requireOwner(t, assetID, bidder)

	record, err := f.registry.Token(assetID)
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if !record.Parked {
		t.Fatalf("token not parked for unopted recipient")
	}
	contents, err := f.registry.ContainerContents(bidder)
	if err != nil {
		t.Fatalf("container: %v", err)
	}
	if len(contents) != 1 || contents[0] != assetID {
		t.Fatalf("container contents = %v", contents)
	}
	evt := f.emitter.lastOfType(t, EventTypeOfferMatched)
	if evt.Attributes["directDeposit"] != "false" {
		t.Fatalf("directDeposit attr = %q", evt.Attributes["directDeposit"])
	}

	// The bidder claims the parked token and can then move it.
	if err := f.registry.Claim(bidder, assetID); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if _, err := f.registry.Withdraw(bidder, assetID); err != nil {
		t.Fatalf("withdraw after claim: %v", err)
	}
}

func TestMatchOfferExpired(t *testing.T) {
	f := newTestFixture(t)
	f.registerSchedule(t, "standard")
	seller := newTestAddress(0x01)
	bidder := newTestAddress(0x02)
	f.fund(bidder, 10_000)
	assetID := f.mintObject(t, seller, "drops", "genesis")

	offerID, err := f.engine.PlaceOffer(bidder, seller, "drops", "standard", big.NewInt(2_000), testTimestamp+100, 1)
	if err != nil {
		t.Fatalf("place offer: %v", err)
	}

	f.engine.SetNowFunc(func() int64 { return testTimestamp + 100 })
	if err := f.engine.MatchOffer(seller, offerID, assetID); !errors.Is(err, ErrOfferExpired) {
		t.Fatalf("err = %v, want ErrOfferExpired", err)
	}
	// Expiry does not destroy the record; the escrow stays until cancel.
	if _, ok := f.engine.GetOffer(offerID); !ok {
		t.Fatalf("offer destroyed by expired match attempt")
	}
	f.requireBalance(t, vaultAddr, 2_000)
}

func TestMatchOfferWrongCollection(t *testing.T) {
	f := newTestFixture(t)
	f.registerSchedule(t, "standard")
	seller := newTestAddress(0x01)
	bidder := newTestAddress(0x02)
	f.fund(bidder, 10_000)
	assetID := f.mintObject(t, seller, "other", "genesis")

	offerID, err := f.engine.PlaceOffer(bidder, seller, "drops", "standard", big.NewInt(2_000), testTimestamp+3600, 1)
	if err != nil {
		t.Fatalf("place offer: %v", err)
	}
	if err := f.engine.MatchOffer(seller, offerID, assetID); !errors.Is(err, ErrWrongCollection) {
		t.Fatalf("err = %v, want ErrWrongCollection", err)
	}
}

func TestMatchOfferTokenQualifiers(t *testing.T) {
	f := newTestFixture(t)
	f.registerSchedule(t, "standard")
	seller := newTestAddress(0x01)
	bidder := newTestAddress(0x02)
	f.fund(bidder, 10_000)
	wanted := f.mintObject(t, seller, "drops", "alpha")
	other := f.mintObject(t, seller, "drops", "beta")

	offerID, err := f.engine.PlaceOffer(bidder, seller, "drops", "standard", big.NewInt(2_000), testTimestamp+3600, 1, "alpha")
	if err != nil {
		t.Fatalf("place offer: %v", err)
	}
	if err := f.engine.MatchOffer(seller, offerID, other); !errors.Is(err, ErrWrongCollection) {
		t.Fatalf("err = %v, want ErrWrongCollection for unqualified token", err)
	}
	if err := f.engine.MatchOffer(seller, offerID, wanted); err != nil {
		t.Fatalf("match qualified token: %v", err)
	}
	f.requireOwner(t, wanted, bidder)
}

func TestCancelOfferRefunds(t *testing.T) {
	f := newTestFixture(t)
	f.registerSchedule(t, "standard")
	bidder := newTestAddress(0x02)
	stranger := newTestAddress(0x03)
	creator := newTestAddress(0x01)
	f.fund(bidder, 10_000)

	offerID, err := f.engine.PlaceOffer(bidder, creator, "drops", "standard", big.NewInt(2_000), testTimestamp+3600, 1)
	if err != nil {
		t.Fatalf("place offer: %v", err)
	}

	if err := f.engine.CancelOffer(stranger, offerID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}
	if err := f.engine.CancelOffer(bidder, offerID); err != nil {
		t.Fatalf("cancel offer: %v", err)
	}

	f.requireBalance(t, bidder, 10_000)
	f.requireBalance(t, vaultAddr, 0)
	if _, ok := f.engine.GetOffer(offerID); ok {
		t.Fatalf("offer survived cancel")
	}
	f.emitter.lastOfType(t, EventTypeOfferCancelled)
}

func TestCancelOfferAfterExpiry(t *testing.T) {
	f := newTestFixture(t)
	f.registerSchedule(t, "standard")
	bidder := newTestAddress(0x02)
	creator := newTestAddress(0x01)
	f.fund(bidder, 10_000)

	offerID, err := f.engine.PlaceOffer(bidder, creator, "drops", "standard", big.NewInt(2_000), testTimestamp+100, 1)
	if err != nil {
		t.Fatalf("place offer: %v", err)
	}

	f.engine.SetNowFunc(func() int64 { return testTimestamp + 5_000 })
	if err := f.engine.CancelOffer(bidder, offerID); err != nil {
		t.Fatalf("cancel expired offer: %v", err)
	}
	f.requireBalance(t, bidder, 10_000)
}

// transferToken moves a token between owners outside the marketplace.
func transferToken(t *testing.T, registry *token.Registry, from, to [20]byte, id [32]byte) {
	t.Helper()
	handle, err := registry.Withdraw(from, id)
	if err != nil {
		t.Fatalf("withdraw: %v", err)
	}
	if err := registry.SetDirectReceive(to, true); err != nil {
		t.Fatalf("direct receive: %v", err)
	}
	if err := registry.Deposit(to, handle); err != nil {
		t.Fatalf("deposit: %v", err)
	}
}
