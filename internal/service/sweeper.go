package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Notifier delivers an open-games summary to one broadcast destination.
// Implementations talk to whatever gateway the guild is configured with.
type Notifier interface {
	NotifyOpenGames(ctx context.Context, guildID int64, games []Listing) error
}

// Sweeper is the recurring background pass: purge expired pending games,
// then broadcast the open games of each configured guild. It shares no
// state with request handling beyond the store itself.
type Sweeper struct {
	interval time.Duration
	guilds   []int64
	matches  *MatchService
	listing  *ListingService
	notifier Notifier
	logger   *zap.Logger
}

func NewSweeper(interval time.Duration, guilds []int64, matches *MatchService,
	listing *ListingService, notifier Notifier, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		interval: interval,
		guilds:   guilds,
		matches:  matches,
		listing:  listing,
		notifier: notifier,
		logger:   logger,
	}
}

// Run loops until ctx is cancelled. The delay comes before the first pass
// so a restart-looping process does not spam its destinations.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopping")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep performs one purge-and-broadcast pass. A failure at one
// destination is logged and swallowed; the others still get theirs.
func (s *Sweeper) sweep(ctx context.Context) {
	purged, err := s.matches.PurgeExpired(ctx)
	if err != nil {
		s.logger.Error("expired-game purge failed", zap.Error(err))
	} else if purged > 0 {
		s.logger.Info("purged expired games", zap.Int("count", purged))
	}

	for _, guildID := range s.guilds {
		games, err := s.listing.OpenWithCapacity(ctx, guildID)
		if err != nil {
			s.logger.Error("open-games query failed",
				zap.Int64("guild_id", guildID),
				zap.Error(err))
			continue
		}
		if len(games) == 0 {
			continue
		}

		if err := s.notifier.NotifyOpenGames(ctx, guildID, games); err != nil {
			s.logger.Error("open-games broadcast failed",
				zap.Int64("guild_id", guildID),
				zap.Error(err))
		}
	}
}
