package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"nftmarket/core/events"
	"nftmarket/core/types"
	"nftmarket/native/market"
)

// ListingEvent is one marketplace event as observed on the emitter stream.
type ListingEvent struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Type       string    `gorm:"index"`
	ListingID  string    `gorm:"index"`
	OfferID    string    `gorm:"index"`
	Attributes string
	CreatedAt  time.Time
}

// SettlementRecord captures the fee split of one completed settlement.
type SettlementRecord struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	ListingID  string    `gorm:"index"`
	OfferID    string    `gorm:"index"`
	SaleType   string
	Seller     string
	Purchaser  string
	Price      string
	Commission string
	Royalty    string
	CreatedAt  time.Time
}

// Store persists the marketplace event stream to a relational database. It
// implements events.Emitter and sits outside the engine's transactional
// boundary: persistence failures are logged, never surfaced to settlement.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects to the history database and migrates the schema. Supported
// drivers are "sqlite" (the default, embedded) and "postgres".
func Open(driver, dsn string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("history: unsupported driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}
	if err := db.AutoMigrate(&ListingEvent{}, &SettlementRecord{}); err != nil {
		return nil, fmt.Errorf("history: migrate schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

type eventCarrier interface {
	Event() *types.Event
}

// Emit implements the events.Emitter interface.
func (s *Store) Emit(evt events.Event) {
	if s == nil || s.db == nil {
		return
	}
	carrier, ok := evt.(eventCarrier)
	if !ok {
		return
	}
	payload := carrier.Event()
	if payload == nil {
		return
	}
	attrs, err := json.Marshal(payload.Attributes)
	if err != nil {
		s.logger.Warn("history: encode event attributes", "type", payload.Type, "err", err)
		return
	}
	record := &ListingEvent{
		ID:         uuid.New(),
		Type:       payload.Type,
		ListingID:  payload.Attributes["listingId"],
		OfferID:    payload.Attributes["offerId"],
		Attributes: string(attrs),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.db.Create(record).Error; err != nil {
		s.logger.Warn("history: persist event", "type", payload.Type, "err", err)
		return
	}
	switch payload.Type {
	case market.EventTypeFilled, market.EventTypeOfferMatched:
		s.recordSettlement(payload)
	}
}

func (s *Store) recordSettlement(payload *types.Event) {
	record := &SettlementRecord{
		ID:         uuid.New(),
		ListingID:  payload.Attributes["listingId"],
		OfferID:    payload.Attributes["offerId"],
		SaleType:   payload.Attributes["saleType"],
		Seller:     payload.Attributes["seller"],
		Purchaser:  payload.Attributes["purchaser"],
		Price:      payload.Attributes["price"],
		Commission: payload.Attributes["commission"],
		Royalty:    payload.Attributes["royalty"],
		CreatedAt:  time.Now().UTC(),
	}
	if payload.Type == market.EventTypeOfferMatched {
		record.SaleType = "collection_offer"
		record.Price = payload.Attributes["amount"]
		record.Purchaser = payload.Attributes["bidder"]
	}
	if err := s.db.Create(record).Error; err != nil {
		s.logger.Warn("history: persist settlement", "err", err)
	}
}

// RecentSettlements returns the most recent settlements, newest first.
func (s *Store) RecentSettlements(limit int) ([]SettlementRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	var records []SettlementRecord
	err := s.db.Order("created_at desc").Limit(limit).Find(&records).Error
	return records, err
}

// EventsByListing returns every recorded event for a listing, oldest first.
func (s *Store) EventsByListing(listingID string) ([]ListingEvent, error) {
	var records []ListingEvent
	err := s.db.Where("listing_id = ?", listingID).Order("created_at asc").Find(&records).Error
	return records, err
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
