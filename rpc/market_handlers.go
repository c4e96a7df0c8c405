package rpc

import (
	"encoding/hex"
	"errors"
	"math/big"
	"net/http"

	"nftmarket/crypto"
	"nftmarket/native/common"
	"nftmarket/native/market"
	"nftmarket/native/token"
)

const (
	codeMarketInvalidParams = -32021
	codeMarketNotFound      = -32022
	codeMarketForbidden     = -32023
	codeMarketConflict      = -32024
	codeMarketInternal      = -32025
)

// writeMarketError maps engine errors onto the module's error codes.
func writeMarketError(w http.ResponseWriter, req *RPCRequest, err error) {
	switch {
	case errors.Is(err, market.ErrListingNotFound),
		errors.Is(err, market.ErrOfferNotFound),
		errors.Is(err, token.ErrTokenNotFound):
		writeError(w, http.StatusNotFound, req.ID, codeMarketNotFound, "not_found", err.Error())
	case errors.Is(err, market.ErrNotSeller),
		errors.Is(err, market.ErrNotOwner),
		errors.Is(err, token.ErrNotTokenOwner):
		writeError(w, http.StatusForbidden, req.ID, codeMarketForbidden, "forbidden", err.Error())
	case errors.Is(err, market.ErrScheduleNotFound):
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
	case errors.Is(err, common.ErrModulePaused):
		writeError(w, http.StatusServiceUnavailable, req.ID, codeMarketConflict, "module_paused", err.Error())
	case errors.Is(err, market.ErrInsufficientFunds),
		errors.Is(err, market.ErrBidTooLow),
		errors.Is(err, market.ErrAuctionEnded),
		errors.Is(err, market.ErrAuctionNotEnded),
		errors.Is(err, market.ErrNoBuyItNow),
		errors.Is(err, market.ErrWrongCollection),
		errors.Is(err, market.ErrOfferExpired),
		errors.Is(err, market.ErrNotStarted),
		errors.Is(err, market.ErrStandingBid),
		errors.Is(err, market.ErrListingExists),
		errors.Is(err, market.ErrOfferExists),
		errors.Is(err, token.ErrTokenParked):
		writeError(w, http.StatusConflict, req.ID, codeMarketConflict, "conflict", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, req.ID, codeMarketInternal, "internal_error", err.Error())
	}
}

type listFixedPriceParams struct {
	Seller     string `json:"seller"`
	AssetID    string `json:"assetId"`
	ScheduleID string `json:"scheduleId"`
	Price      string `json:"price"`
}

type listAuctionParams struct {
	Seller          string `json:"seller"`
	AssetID         string `json:"assetId"`
	ScheduleID      string `json:"scheduleId"`
	StartingBid     string `json:"startingBid"`
	MinIncrement    string `json:"minIncrement"`
	EndTime         int64  `json:"endTime"`
	ExtensionWindow int64  `json:"extensionWindow"`
	BuyItNowPrice   string `json:"buyItNowPrice,omitempty"`
}

type listingActorParams struct {
	Actor     string `json:"actor"`
	ListingID string `json:"listingId"`
}

type updatePriceParams struct {
	Seller    string `json:"seller"`
	ListingID string `json:"listingId"`
	Price     string `json:"price"`
}

type bidParams struct {
	Bidder    string `json:"bidder"`
	ListingID string `json:"listingId"`
	Amount    string `json:"amount"`
}

type listingIDParams struct {
	ListingID string `json:"listingId"`
}

type placeOfferParams struct {
	Bidder     string   `json:"bidder"`
	Creator    string   `json:"creator"`
	Collection string   `json:"collection"`
	ScheduleID string   `json:"scheduleId"`
	Amount     string   `json:"amount"`
	Expiration int64    `json:"expiration"`
	Nonce      uint64   `json:"nonce"`
	TokenNames []string `json:"tokenNames,omitempty"`
}

type matchOfferParams struct {
	Seller  string `json:"seller"`
	OfferID string `json:"offerId"`
	AssetID string `json:"assetId"`
}

type offerActorParams struct {
	Bidder  string `json:"bidder"`
	OfferID string `json:"offerId"`
}

type offerIDParams struct {
	OfferID string `json:"offerId"`
}

type idResult struct {
	ID string `json:"id"`
}

type ackResult struct {
	Status string `json:"status"`
}

var ackOK = ackResult{Status: "ok"}

type listingJSON struct {
	ID         string       `json:"id"`
	Seller     string       `json:"seller"`
	AssetID    string       `json:"assetId"`
	ScheduleID string       `json:"scheduleId"`
	SaleType   string       `json:"saleType"`
	StartTime  int64        `json:"startTime"`
	CreatedAt  int64        `json:"createdAt"`
	Price      *string      `json:"price,omitempty"`
	Auction    *auctionJSON `json:"auction,omitempty"`
}

type auctionJSON struct {
	StartingBid     string  `json:"startingBid"`
	MinIncrement    string  `json:"minIncrement"`
	EndTime         int64   `json:"endTime"`
	ExtensionWindow int64   `json:"extensionWindow"`
	BuyItNowPrice   *string `json:"buyItNowPrice,omitempty"`
	Bidder          *string `json:"bidder,omitempty"`
	Amount          *string `json:"amount,omitempty"`
}

type offerJSON struct {
	ID         string   `json:"id"`
	Bidder     string   `json:"bidder"`
	Creator    string   `json:"creator"`
	Collection string   `json:"collection"`
	TokenNames []string `json:"tokenNames,omitempty"`
	ScheduleID string   `json:"scheduleId"`
	Amount     string   `json:"amount"`
	Expiration int64    `json:"expiration"`
	CreatedAt  int64    `json:"createdAt"`
}

func listingToJSON(l *market.Listing) *listingJSON {
	out := &listingJSON{
		ID:         hex.EncodeToString(l.ID[:]),
		Seller:     crypto.MustNewAddress(l.Seller).String(),
		AssetID:    hex.EncodeToString(l.AssetID[:]),
		ScheduleID: l.ScheduleID,
		SaleType:   l.Kind.String(),
		StartTime:  l.StartTime,
		CreatedAt:  l.CreatedAt,
	}
	if l.FixedPrice != nil {
		price := l.FixedPrice.Price.String()
		out.Price = &price
	}
	if l.Auction != nil {
		auction := &auctionJSON{
			StartingBid:     l.Auction.StartingBid.String(),
			MinIncrement:    l.Auction.MinIncrement.String(),
			EndTime:         l.Auction.EndTime,
			ExtensionWindow: l.Auction.ExtensionWindow,
		}
		if l.Auction.BuyItNowPrice != nil {
			price := l.Auction.BuyItNowPrice.String()
			auction.BuyItNowPrice = &price
		}
		if l.Auction.Bidder != nil {
			bidder := crypto.MustNewAddress(*l.Auction.Bidder).String()
			auction.Bidder = &bidder
			amount := l.Auction.Amount.String()
			auction.Amount = &amount
		}
		out.Auction = auction
	}
	return out
}

func offerToJSON(o *market.CollectionOffer) *offerJSON {
	return &offerJSON{
		ID:         hex.EncodeToString(o.ID[:]),
		Bidder:     crypto.MustNewAddress(o.Bidder).String(),
		Creator:    crypto.MustNewAddress(o.Creator).String(),
		Collection: o.Collection,
		TokenNames: o.TokenNames,
		ScheduleID: o.ScheduleID,
		Amount:     o.Amount.String(),
		Expiration: o.Expiration,
		CreatedAt:  o.CreatedAt,
	}
}

func (s *Server) handleMarketListFixedPrice(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params listFixedPriceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	seller, err := parseAddress(params.Seller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	assetID, err := parseHash(params.AssetID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	price, err := parsePositiveBigInt(params.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := s.engine.ListFixedPrice(seller, assetID, params.ScheduleID, price)
	if err != nil {
		writeMarketError(w, req, err)
		return
	}
	writeResult(w, req.ID, idResult{ID: hex.EncodeToString(id[:])})
}

func (s *Server) handleMarketListAuction(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params listAuctionParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	seller, err := parseAddress(params.Seller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	assetID, err := parseHash(params.AssetID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	startingBid, err := parsePositiveBigInt(params.StartingBid)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	minIncrement, err := parsePositiveBigInt(params.MinIncrement)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	var buyItNow *big.Int
	if params.BuyItNowPrice != "" {
		buyItNow, err = parsePositiveBigInt(params.BuyItNowPrice)
		if err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
			return
		}
	}
	id, err := s.engine.ListAuction(seller, assetID, params.ScheduleID, startingBid, minIncrement, params.EndTime, params.ExtensionWindow, buyItNow)
	if err != nil {
		writeMarketError(w, req, err)
		return
	}
	writeResult(w, req.ID, idResult{ID: hex.EncodeToString(id[:])})
}

func (s *Server) handleMarketBuy(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params listingActorParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	purchaser, err := parseAddress(params.Actor)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	listingID, err := parseHash(params.ListingID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.Buy(purchaser, listingID); err != nil {
		writeMarketError(w, req, err)
		return
	}
	writeResult(w, req.ID, ackOK)
}

func (s *Server) handleMarketUpdatePrice(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params updatePriceParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	seller, err := parseAddress(params.Seller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	listingID, err := parseHash(params.ListingID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	price, err := parsePositiveBigInt(params.Price)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.UpdatePrice(seller, listingID, price); err != nil {
		writeMarketError(w, req, err)
		return
	}
	writeResult(w, req.ID, ackOK)
}

func (s *Server) handleMarketCancelListing(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params listingActorParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	seller, err := parseAddress(params.Actor)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	listingID, err := parseHash(params.ListingID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.CancelListing(seller, listingID); err != nil {
		writeMarketError(w, req, err)
		return
	}
	writeResult(w, req.ID, ackOK)
}

func (s *Server) handleMarketBid(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params bidParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	bidder, err := parseAddress(params.Bidder)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	listingID, err := parseHash(params.ListingID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.Bid(bidder, listingID, amount); err != nil {
		writeMarketError(w, req, err)
		return
	}
	writeResult(w, req.ID, ackOK)
}

func (s *Server) handleMarketBuyNow(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params listingActorParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	purchaser, err := parseAddress(params.Actor)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	listingID, err := parseHash(params.ListingID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.BuyNow(purchaser, listingID); err != nil {
		writeMarketError(w, req, err)
		return
	}
	writeResult(w, req.ID, ackOK)
}

func (s *Server) handleMarketCompleteAuction(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	var params listingIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	listingID, err := parseHash(params.ListingID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.CompleteAuction(listingID); err != nil {
		writeMarketError(w, req, err)
		return
	}
	writeResult(w, req.ID, ackOK)
}

func (s *Server) handleMarketPlaceOffer(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params placeOfferParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	bidder, err := parseAddress(params.Bidder)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	creator, err := parseAddress(params.Creator)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	amount, err := parsePositiveBigInt(params.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	id, err := s.engine.PlaceOffer(bidder, creator, params.Collection, params.ScheduleID, amount, params.Expiration, params.Nonce, params.TokenNames...)
	if err != nil {
		writeMarketError(w, req, err)
		return
	}
	writeResult(w, req.ID, idResult{ID: hex.EncodeToString(id[:])})
}

func (s *Server) handleMarketMatchOffer(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params matchOfferParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	seller, err := parseAddress(params.Seller)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	offerID, err := parseHash(params.OfferID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	assetID, err := parseHash(params.AssetID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.MatchOffer(seller, offerID, assetID); err != nil {
		writeMarketError(w, req, err)
		return
	}
	writeResult(w, req.ID, ackOK)
}

func (s *Server) handleMarketCancelOffer(w http.ResponseWriter, r *http.Request, req *RPCRequest) {
	if authErr := s.requireAuth(r); authErr != nil {
		writeError(w, http.StatusUnauthorized, req.ID, authErr.Code, authErr.Message, authErr.Data)
		return
	}
	var params offerActorParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	bidder, err := parseAddress(params.Bidder)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	offerID, err := parseHash(params.OfferID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	if err := s.engine.CancelOffer(bidder, offerID); err != nil {
		writeMarketError(w, req, err)
		return
	}
	writeResult(w, req.ID, ackOK)
}

func (s *Server) handleMarketGetListing(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params listingIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	listingID, err := parseHash(params.ListingID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	listing, ok := s.engine.GetListing(listingID)
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMarketNotFound, "not_found", "listing not found")
		return
	}
	writeResult(w, req.ID, listingToJSON(listing))
}

func (s *Server) handleMarketGetOffer(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	var params offerIDParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	offerID, err := parseHash(params.OfferID)
	if err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeMarketInvalidParams, "invalid_params", err.Error())
		return
	}
	offer, ok := s.engine.GetOffer(offerID)
	if !ok {
		writeError(w, http.StatusNotFound, req.ID, codeMarketNotFound, "not_found", "offer not found")
		return
	}
	writeResult(w, req.ID, offerToJSON(offer))
}
