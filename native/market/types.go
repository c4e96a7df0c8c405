package market

import (
	"fmt"
	"math/big"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"nftmarket/native/fees"
)

// SaleKind tags the sale-mode record attached to a listing. A listing carries
// exactly one sale-mode record for its whole lifetime.
type SaleKind uint8

const (
	SaleFixedPrice SaleKind = iota + 1
	SaleAuction
)

// Valid reports whether the kind value is within the supported range.
func (k SaleKind) Valid() bool {
	switch k {
	case SaleFixedPrice, SaleAuction:
		return true
	default:
		return false
	}
}

func (k SaleKind) String() string {
	switch k {
	case SaleFixedPrice:
		return "fixed_price"
	case SaleAuction:
		return "auction"
	default:
		return fmt.Sprintf("sale_kind(%d)", uint8(k))
	}
}

// FixedPriceSale is the sale-mode record for an immediate purchase listing.
type FixedPriceSale struct {
	Price *big.Int `json:"price"`
}

// AuctionSale is the sale-mode record for a timed auction. Bidder and Amount
// are nil until the first accepted bid; while set, the escrow vault holds
// exactly Amount on the bidder's behalf.
type AuctionSale struct {
	StartingBid     *big.Int  `json:"startingBid"`
	MinIncrement    *big.Int  `json:"minIncrement"`
	EndTime         int64     `json:"endTime"`
	ExtensionWindow int64     `json:"extensionWindow"`
	BuyItNowPrice   *big.Int  `json:"buyItNowPrice,omitempty"`
	Bidder          *[20]byte `json:"bidder,omitempty"`
	Amount          *big.Int  `json:"amount,omitempty"`
}

// Listing is the escrow record for one asset offered for sale. The asset is
// owned by the escrow vault for the listing's lifetime; the record is deleted
// exactly once, at settlement or early close.
type Listing struct {
	ID         [32]byte        `json:"id"`
	Seller     [20]byte        `json:"seller"`
	AssetID    [32]byte        `json:"assetId"`
	ScheduleID string          `json:"scheduleId"`
	StartTime  int64           `json:"startTime"`
	CreatedAt  int64           `json:"createdAt"`
	Kind       SaleKind        `json:"kind"`
	FixedPrice *FixedPriceSale `json:"fixedPrice,omitempty"`
	Auction    *AuctionSale    `json:"auction,omitempty"`
}

// CollectionOffer is a standing buyer offer against any qualifying asset in a
// collection. It is independent of any listing; the offered amount sits in the
// escrow vault until the offer is matched or cancelled.
type CollectionOffer struct {
	ID         [32]byte `json:"id"`
	Bidder     [20]byte `json:"bidder"`
	Creator    [20]byte `json:"creator"`
	Collection string   `json:"collection"`
	TokenNames []string `json:"tokenNames,omitempty"`
	ScheduleID string   `json:"scheduleId"`
	Amount     *big.Int `json:"amount"`
	Expiration int64    `json:"expiration"`
	CreatedAt  int64    `json:"createdAt"`
}

// ListingID derives the deterministic identifier for a listing.
func ListingID(seller [20]byte, assetID [32]byte) [32]byte {
	return [32]byte(ethcrypto.Keccak256Hash(seller[:], assetID[:]))
}

// OfferID derives the deterministic identifier for a collection offer. The
// caller-supplied nonce lets one bidder hold several offers against the same
// collection.
func OfferID(bidder [20]byte, creator [20]byte, collection string, nonce uint64) [32]byte {
	var nonceBytes [8]byte
	for i := 0; i < 8; i++ {
		nonceBytes[7-i] = byte(nonce >> (8 * i))
	}
	return [32]byte(ethcrypto.Keccak256Hash(bidder[:], creator[:], []byte(collection), nonceBytes[:]))
}

// Clone returns a deep copy of the listing.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	clone := *l
	if l.FixedPrice != nil {
		clone.FixedPrice = &FixedPriceSale{Price: cloneBigInt(l.FixedPrice.Price)}
	}
	if l.Auction != nil {
		auction := AuctionSale{
			StartingBid:     cloneBigInt(l.Auction.StartingBid),
			MinIncrement:    cloneBigInt(l.Auction.MinIncrement),
			EndTime:         l.Auction.EndTime,
			ExtensionWindow: l.Auction.ExtensionWindow,
		}
		if l.Auction.BuyItNowPrice != nil {
			auction.BuyItNowPrice = new(big.Int).Set(l.Auction.BuyItNowPrice)
		}
		if l.Auction.Bidder != nil {
			bidder := *l.Auction.Bidder
			auction.Bidder = &bidder
		}
		if l.Auction.Amount != nil {
			auction.Amount = new(big.Int).Set(l.Auction.Amount)
		}
		clone.Auction = &auction
	}
	return &clone
}

// Clone returns a deep copy of the offer.
func (o *CollectionOffer) Clone() *CollectionOffer {
	if o == nil {
		return nil
	}
	clone := *o
	clone.Amount = cloneBigInt(o.Amount)
	if o.TokenNames != nil {
		clone.TokenNames = append([]string(nil), o.TokenNames...)
	}
	return &clone
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

// SanitizeListing validates a listing record, checking that exactly one
// sale-mode record is attached and that it matches the declared kind. It
// returns a clone; the original value is not mutated.
func SanitizeListing(l *Listing) (*Listing, error) {
	if l == nil {
		return nil, fmt.Errorf("market: nil listing")
	}
	clone := l.Clone()
	clone.ScheduleID = fees.NormalizeID(clone.ScheduleID)
	if clone.ScheduleID == "" {
		return nil, fmt.Errorf("market: fee schedule id required")
	}
	if !clone.Kind.Valid() {
		return nil, fmt.Errorf("market: invalid sale kind: %d", clone.Kind)
	}
	switch clone.Kind {
	case SaleFixedPrice:
		if clone.FixedPrice == nil || clone.Auction != nil {
			return nil, fmt.Errorf("market: fixed-price listing requires exactly one fixed-price record")
		}
		if clone.FixedPrice.Price == nil || clone.FixedPrice.Price.Sign() <= 0 {
			return nil, fmt.Errorf("market: listing price must be positive")
		}
	case SaleAuction:
		if clone.Auction == nil || clone.FixedPrice != nil {
			return nil, fmt.Errorf("market: auction listing requires exactly one auction record")
		}
		auction := clone.Auction
		if auction.StartingBid == nil || auction.StartingBid.Sign() <= 0 {
			return nil, fmt.Errorf("market: starting bid must be positive")
		}
		if auction.MinIncrement == nil || auction.MinIncrement.Sign() <= 0 {
			return nil, fmt.Errorf("market: minimum increment must be positive")
		}
		if auction.EndTime <= clone.CreatedAt {
			return nil, fmt.Errorf("market: auction end time before creation time")
		}
		if auction.ExtensionWindow < 0 {
			return nil, fmt.Errorf("market: extension window must be non-negative")
		}
		if auction.BuyItNowPrice != nil && auction.BuyItNowPrice.Sign() <= 0 {
			return nil, fmt.Errorf("market: buy-it-now price must be positive")
		}
		if (auction.Bidder == nil) != (auction.Amount == nil) {
			return nil, fmt.Errorf("market: auction bid fields must be set together")
		}
	}
	return clone, nil
}

// SanitizeOffer validates a collection offer record, returning a clone with
// trimmed naming fields.
func SanitizeOffer(o *CollectionOffer) (*CollectionOffer, error) {
	if o == nil {
		return nil, fmt.Errorf("market: nil offer")
	}
	clone := o.Clone()
	clone.Collection = strings.TrimSpace(clone.Collection)
	if clone.Collection == "" {
		return nil, fmt.Errorf("market: collection required")
	}
	clone.ScheduleID = fees.NormalizeID(clone.ScheduleID)
	if clone.ScheduleID == "" {
		return nil, fmt.Errorf("market: fee schedule id required")
	}
	if clone.Amount == nil || clone.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("market: offer amount must be positive")
	}
	for i, name := range clone.TokenNames {
		trimmed := strings.TrimSpace(name)
		if trimmed == "" {
			return nil, fmt.Errorf("market: token qualifier must not be empty")
		}
		clone.TokenNames[i] = trimmed
	}
	return clone, nil
}
