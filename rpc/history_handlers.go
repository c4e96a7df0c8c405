package rpc

import (
	"net/http"
	"time"

	"nftmarket/history"
)

const (
	codeHistoryInvalidParams = -32051
	codeHistoryUnavailable   = -32052
	codeHistoryInternal      = -32055
)

type settlementsParams struct {
	Limit int `json:"limit"`
}

type listingEventsParams struct {
	ListingID string `json:"listingId"`
}

type settlementJSON struct {
	ListingID  string `json:"listingId,omitempty"`
	OfferID    string `json:"offerId,omitempty"`
	SaleType   string `json:"saleType"`
	Seller     string `json:"seller"`
	Purchaser  string `json:"purchaser"`
	Price      string `json:"price"`
	Commission string `json:"commission"`
	Royalty    string `json:"royalty"`
	RecordedAt string `json:"recordedAt"`
}

type listingEventJSON struct {
	Type       string `json:"type"`
	ListingID  string `json:"listingId,omitempty"`
	OfferID    string `json:"offerId,omitempty"`
	Attributes string `json:"attributes"`
	RecordedAt string `json:"recordedAt"`
}

func settlementToJSON(record history.SettlementRecord) settlementJSON {
	return settlementJSON{
		ListingID:  record.ListingID,
		OfferID:    record.OfferID,
		SaleType:   record.SaleType,
		Seller:     record.Seller,
		Purchaser:  record.Purchaser,
		Price:      record.Price,
		Commission: record.Commission,
		Royalty:    record.Royalty,
		RecordedAt: record.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Server) handleHistorySettlements(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, req.ID, codeHistoryUnavailable, "history_unavailable", "history store is not configured")
		return
	}
	params := settlementsParams{}
	if len(req.Params) > 0 {
		if err := decodeParams(req, &params); err != nil {
			writeError(w, http.StatusBadRequest, req.ID, codeHistoryInvalidParams, "invalid_params", err.Error())
			return
		}
	}
	records, err := s.history.RecentSettlements(params.Limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeHistoryInternal, "internal_error", err.Error())
		return
	}
	out := make([]settlementJSON, 0, len(records))
	for _, record := range records {
		out = append(out, settlementToJSON(record))
	}
	writeResult(w, req.ID, out)
}

func (s *Server) handleHistoryListingEvents(w http.ResponseWriter, _ *http.Request, req *RPCRequest) {
	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, req.ID, codeHistoryUnavailable, "history_unavailable", "history store is not configured")
		return
	}
	var params listingEventsParams
	if err := decodeParams(req, &params); err != nil {
		writeError(w, http.StatusBadRequest, req.ID, codeHistoryInvalidParams, "invalid_params", err.Error())
		return
	}
	if params.ListingID == "" {
		writeError(w, http.StatusBadRequest, req.ID, codeHistoryInvalidParams, "invalid_params", "listingId is required")
		return
	}
	records, err := s.history.EventsByListing(params.ListingID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, req.ID, codeHistoryInternal, "internal_error", err.Error())
		return
	}
	out := make([]listingEventJSON, 0, len(records))
	for _, record := range records {
		out = append(out, listingEventJSON{
			Type:       record.Type,
			ListingID:  record.ListingID,
			OfferID:    record.OfferID,
			Attributes: record.Attributes,
			RecordedAt: record.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeResult(w, req.ID, out)
}
