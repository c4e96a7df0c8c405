package fees

import (
	"fmt"
	"math/big"
	"strings"
)

const bpsDenominator = 10_000

// Schedule is the external fee policy consumed by the marketplace engine. It
// is never implemented by the engine itself; settlement calls back into it at
// every point funds change hands.
type Schedule interface {
	// Commission returns the marketplace cut for a settlement of the given
	// gross total. The result must never exceed the total.
	Commission(total *big.Int) *big.Int
	// ListingFee returns the up-front fee charged when an asset is listed at
	// the given price.
	ListingFee(price *big.Int) *big.Int
	// FeeRecipient returns the account credited with commissions and listing
	// fees.
	FeeRecipient() [20]byte
}

// BasisPoints is a Schedule expressing commission and listing fee as basis
// points of the settled amount. All math uses truncating integer division.
type BasisPoints struct {
	CommissionBps uint32
	ListingFeeBps uint32
	Recipient     [20]byte
}

// NewBasisPoints validates the bps ratios and returns the schedule.
func NewBasisPoints(commissionBps, listingFeeBps uint32, recipient [20]byte) (*BasisPoints, error) {
	if commissionBps > bpsDenominator {
		return nil, fmt.Errorf("fees: commission bps out of range: %d", commissionBps)
	}
	if listingFeeBps > bpsDenominator {
		return nil, fmt.Errorf("fees: listing fee bps out of range: %d", listingFeeBps)
	}
	return &BasisPoints{CommissionBps: commissionBps, ListingFeeBps: listingFeeBps, Recipient: recipient}, nil
}

// Commission implements the Schedule interface.
func (b *BasisPoints) Commission(total *big.Int) *big.Int {
	return applyBps(total, b.CommissionBps)
}

// ListingFee implements the Schedule interface.
func (b *BasisPoints) ListingFee(price *big.Int) *big.Int {
	return applyBps(price, b.ListingFeeBps)
}

// FeeRecipient implements the Schedule interface.
func (b *BasisPoints) FeeRecipient() [20]byte { return b.Recipient }

func applyBps(amount *big.Int, bps uint32) *big.Int {
	if amount == nil || amount.Sign() <= 0 || bps == 0 {
		return big.NewInt(0)
	}
	fee := new(big.Int).Mul(amount, big.NewInt(int64(bps)))
	return fee.Div(fee, big.NewInt(bpsDenominator))
}

// NormalizeID canonicalises schedule identifiers for consistent lookups.
func NormalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
