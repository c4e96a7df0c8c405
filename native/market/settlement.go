package market

import (
	"fmt"
	"math/big"

	"nftmarket/native/fees"
)

// settlementSplit is the deterministic decomposition of a payment. The parts
// always sum exactly to the total; all divisions truncate.
type settlementSplit struct {
	total            *big.Int
	commission       *big.Int
	royalty          *big.Int
	proceeds         *big.Int
	royaltyRecipient [20]byte
}

// splitPayment decomposes a gross payment into royalty, commission and seller
// proceeds. Fee-schedule and royalty ratios are fractions of the total, so the
// remainder can never go negative; a breach is a configuration fault and
// aborts the settlement.
func (e *Engine) splitPayment(assetID [32]byte, total *big.Int, schedule fees.Schedule) (*settlementSplit, error) {
	gross := cloneBigInt(total)
	royaltyRecipient, royaltyAmount, err := e.computeRoyalty(assetID, gross)
	if err != nil {
		return nil, err
	}
	commission := cloneBigInt(schedule.Commission(gross))
	proceeds := new(big.Int).Sub(gross, royaltyAmount)
	proceeds.Sub(proceeds, commission)
	if proceeds.Sign() < 0 {
		return nil, fmt.Errorf("market engine: commission %s and royalty %s exceed total %s", commission, royaltyAmount, gross)
	}
	return &settlementSplit{
		total:            gross,
		commission:       commission,
		royalty:          royaltyAmount,
		proceeds:         proceeds,
		royaltyRecipient: royaltyRecipient,
	}, nil
}

// paySplit disburses a split from the escrow vault: royalty first, then
// commission, then seller proceeds.
func (e *Engine) paySplit(split *settlementSplit, seller [20]byte, schedule fees.Schedule) error {
	if split.royalty.Sign() > 0 {
		if err := e.transferFunds(e.vault, split.royaltyRecipient, split.royalty); err != nil {
			return err
		}
	}
	if split.commission.Sign() > 0 {
		if err := e.transferFunds(e.vault, schedule.FeeRecipient(), split.commission); err != nil {
			return err
		}
	}
	if err := e.transferFunds(e.vault, seller, split.proceeds); err != nil {
		return err
	}
	return nil
}

// settle is the shared routine behind every path that transfers a listed
// asset out: it disburses the payment held in the vault, releases the asset
// to the recipient, closes the escrow and emits the settlement notification.
func (e *Engine) settle(listing *Listing, recipient [20]byte, total *big.Int, schedule fees.Schedule) error {
	split, err := e.splitPayment(listing.AssetID, total, schedule)
	if err != nil {
		return err
	}
	if err := e.paySplit(split, listing.Seller, schedule); err != nil {
		return err
	}
	if err := e.releaseAsset(listing, recipient); err != nil {
		return err
	}
	e.emit(newFilledEvent(listing, recipient, split.total, split.commission, split.royalty))
	return nil
}
