package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/npearse/matchhall/internal/game"
	"github.com/npearse/matchhall/internal/store"
)

// ListingService serves the read-only projections. Every call goes
// straight to the store; there is no cache that could show a game as
// joinable after it started or expired.
type ListingService struct {
	db    *sqlx.DB
	store *store.GameStore
}

func NewListingService(db *sqlx.DB, gameStore *store.GameStore) *ListingService {
	return &ListingService{db: db, store: gameStore}
}

// Listing is one row of a games list, sized for rendering.
type Listing struct {
	ID            int64   `json:"id"`
	HostID        string  `json:"host_id"`
	Size          string  `json:"size"`
	Filled        int     `json:"filled"`
	Total         int     `json:"total"`
	HoursToExpiry int     `json:"hours_to_expiry"`
	Notes         *string `json:"notes,omitempty"`
}

func (s *ListingService) Pending(ctx context.Context, guildID int64) ([]Listing, error) {
	games, err := s.store.ListPending(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return s.project(ctx, games)
}

func (s *ListingService) OpenWithCapacity(ctx context.Context, guildID int64) ([]Listing, error) {
	games, err := s.store.ListOpenWithCapacity(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return s.project(ctx, games)
}

func (s *ListingService) WaitingToStart(ctx context.Context, guildID int64, hostID *uuid.UUID) ([]Listing, error) {
	games, err := s.store.ListWaitingToStart(ctx, guildID, hostID)
	if err != nil {
		return nil, err
	}
	return s.project(ctx, games)
}

func (s *ListingService) project(ctx context.Context, games []game.Game) ([]Listing, error) {
	now := time.Now()
	listings := make([]Listing, 0, len(games))
	for _, g := range games {
		d, err := s.store.GetDetail(ctx, g.ID)
		if errors.Is(err, game.ErrNotFound) {
			// Purged between the list query and the detail read.
			continue
		}
		if err != nil {
			return nil, err
		}
		filled, total := d.Capacity()
		listings = append(listings, Listing{
			ID:            g.ID,
			HostID:        g.HostID.String(),
			Size:          d.SizeString(),
			Filled:        filled,
			Total:         total,
			HoursToExpiry: g.HoursToExpiry(now),
			Notes:         g.Notes,
		})
	}
	return listings, nil
}
