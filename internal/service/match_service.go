package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/npearse/matchhall/internal/game"
	players "github.com/npearse/matchhall/internal/player"
	"github.com/npearse/matchhall/internal/store"
	"github.com/npearse/matchhall/internal/utils"
)

// Perms carries the caller's already-verified role predicates. The engine
// only branches on them; it never evaluates roles itself.
type Perms struct {
	Staff     bool
	PowerUser bool
}

// IdentityResolver maps a stored player to their live platform identity.
// Resolution failing for any player aborts the whole start.
type IdentityResolver interface {
	Resolve(ctx context.Context, playerID uuid.UUID) (*players.Player, error)
}

// TeamPolicy decides the team allegiance of a side when a game starts.
// A nil team id means the side plays unaffiliated.
type TeamPolicy interface {
	TeamFor(ctx context.Context, tx *sqlx.Tx, guildID int64, side []*players.Player) (*uuid.UUID, error)
}

type MatchService struct {
	db       *sqlx.DB
	store    *store.GameStore
	squads   *store.SquadStore
	resolver IdentityResolver
	teams    TeamPolicy
	logger   *zap.Logger
}

func NewMatchService(db *sqlx.DB, gameStore *store.GameStore, squadStore *store.SquadStore,
	resolver IdentityResolver, teams TeamPolicy, logger *zap.Logger) *MatchService {
	return &MatchService{
		db:       db,
		store:    gameStore,
		squads:   squadStore,
		resolver: resolver,
		teams:    teams,
		logger:   logger,
	}
}

const maxPendingHosted = 5

// Open creates a pending game with one side per requested size and seats
// the host on side 1. The open-game cap is counted inside the transaction.
func (s *MatchService) Open(ctx context.Context, host *players.Player, req game.OpenRequest) (*game.Detail, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	hosted, err := s.store.CountPendingHostedTx(ctx, tx, host.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count hosted games: %w", err)
	}
	if hosted > maxPendingHosted {
		return nil, game.ErrTooManyOpenGames
	}

	g := &game.Game{
		HostID:     host.ID,
		GuildID:    host.GuildID,
		Expiration: time.Now().Add(time.Duration(req.DurationHours) * time.Hour),
		Notes:      utils.StringOrNil(req.Notes),
		IsPending:  true,
	}
	if err := s.store.CreateGame(ctx, tx, g); err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}

	var firstSide *game.Side
	for i, size := range req.Sizes {
		side := &game.Side{GameID: g.ID, Position: i + 1, Size: size}
		if err := s.store.CreateSide(ctx, tx, side); err != nil {
			return nil, fmt.Errorf("failed to create side %d: %w", i+1, err)
		}
		if firstSide == nil {
			firstSide = side
		}
	}

	lineup := &game.Lineup{GameID: g.ID, SideID: firstSide.ID, PlayerID: host.ID}
	if err := s.store.CreateLineup(ctx, tx, lineup); err != nil {
		return nil, fmt.Errorf("failed to seat host: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.store.GetDetail(ctx, g.ID)
}

// NameSide labels a side of a pending game, looked up by position or name.
func (s *MatchService) NameSide(ctx context.Context, actor uuid.UUID, perms Perms, gameID int64, lookup, label string) (*game.Detail, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	d, err := s.store.GetDetailTx(ctx, tx, gameID)
	if err != nil {
		return nil, err
	}
	if !d.IsPending {
		return nil, game.ErrNotPending
	}
	if d.HostID != actor && !perms.Staff {
		return nil, game.ErrNotAuthorized
	}

	side, err := d.ResolveSide(lookup)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateSideName(ctx, tx, side.ID, label); err != nil {
		return nil, fmt.Errorf("failed to name side: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.store.GetDetail(ctx, gameID)
}

// Join seats target on a side of a pending game. With no lookup the first
// side with room is used. Capacity is re-validated against the transaction's
// own reads immediately before the insert, so of two concurrent joins racing
// for a last slot exactly one commits and the other observes ErrSideFull.
func (s *MatchService) Join(ctx context.Context, gameID int64, target uuid.UUID, lookup string) (*game.Detail, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	d, err := s.store.GetDetailTx(ctx, tx, gameID)
	if err != nil {
		return nil, err
	}
	if !d.IsPending {
		return nil, game.ErrNotPending
	}
	if d.Player(target) != nil {
		return nil, game.ErrAlreadyJoined
	}

	var side *game.SideDetail
	if lookup == "" {
		if side = d.FirstOpenSide(); side == nil {
			return nil, game.ErrMatchFull
		}
	} else {
		if side, err = d.ResolveSide(lookup); err != nil {
			return nil, err
		}
	}

	seated, err := s.store.CountLineupsForSideTx(ctx, tx, side.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to recheck capacity: %w", err)
	}
	if seated >= side.Size {
		return nil, game.ErrSideFull
	}

	lineup := &game.Lineup{GameID: gameID, SideID: side.ID, PlayerID: target}
	if err := s.store.CreateLineup(ctx, tx, lineup); err != nil {
		return nil, fmt.Errorf("failed to add lineup: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.store.GetDetail(ctx, gameID)
}

// Leave removes the actor's lineup from a pending game. A host may leave
// their own game only as a power user, and stays host when they do.
func (s *MatchService) Leave(ctx context.Context, actor uuid.UUID, perms Perms, gameID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	d, err := s.store.GetDetailTx(ctx, tx, gameID)
	if err != nil {
		return err
	}
	if !d.IsPending {
		return game.ErrNotPending
	}
	if d.HostID == actor && !perms.PowerUser {
		return game.ErrHostCannotLeave
	}

	lineup := d.Player(actor)
	if lineup == nil {
		return game.ErrNotInMatch
	}
	if err := s.store.DeleteLineup(ctx, tx, lineup.ID); err != nil {
		return fmt.Errorf("failed to remove lineup: %w", err)
	}
	return tx.Commit()
}

// Kick removes another player from a pending game, host/staff only.
func (s *MatchService) Kick(ctx context.Context, actor uuid.UUID, perms Perms, gameID int64, target uuid.UUID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	d, err := s.store.GetDetailTx(ctx, tx, gameID)
	if err != nil {
		return err
	}
	if d.HostID != actor && !perms.Staff {
		return game.ErrNotAuthorized
	}
	if !d.IsPending {
		return game.ErrNotPending
	}
	if target == actor {
		return game.ErrKickSelf
	}

	lineup := d.Player(target)
	if lineup == nil {
		return game.ErrNotInMatch
	}
	if err := s.store.DeleteLineup(ctx, tx, lineup.ID); err != nil {
		return fmt.Errorf("failed to remove lineup: %w", err)
	}
	return tx.Commit()
}

// SetNotes replaces the notes of a pending game. Once a game has started
// the old notes are kept struck-through and the new text is appended, so
// the history stays visible.
func (s *MatchService) SetNotes(ctx context.Context, actor uuid.UUID, perms Perms, gameID int64, text string) (*game.Detail, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	d, err := s.store.GetDetailTx(ctx, tx, gameID)
	if err != nil {
		return nil, err
	}
	if d.HostID != actor && !perms.Staff {
		return nil, game.ErrNotAuthorized
	}

	text = game.Truncate(strings.TrimSpace(text), game.MaxNoteLength)

	var notes *string
	if d.IsPending {
		notes = utils.StringOrNil(text)
	} else {
		var redacted string
		if d.Notes != nil {
			redacted = "~~" + *d.Notes + "~~ "
		}
		notes = utils.StringOrNil(strings.TrimSpace(redacted + text))
	}

	if err := s.store.UpdateNotes(ctx, tx, gameID, notes); err != nil {
		return nil, fmt.Errorf("failed to update notes: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return s.store.GetDetail(ctx, gameID)
}

// Start converts a full pending game into a tracked in-progress game:
// every lineup player is resolved, each side gets its team allegiance and,
// for multi-player sides, its squad, and the game is named and flipped out
// of pending. Everything commits as one transaction; any resolution
// failure leaves the game pending and untouched.
func (s *MatchService) Start(ctx context.Context, actor uuid.UUID, perms Perms, gameID int64, name string) (*game.Detail, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, game.ErrNameRequired
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	d, err := s.store.GetDetailTx(ctx, tx, gameID)
	if err != nil {
		return nil, err
	}
	if d.HostID != actor && !perms.Staff {
		return nil, game.ErrNotAuthorized
	}
	if !d.IsPending {
		return nil, game.ErrNotPending
	}
	if !d.IsFull() {
		return nil, game.ErrNotFull
	}

	for i := range d.Sides {
		side := &d.Sides[i]

		sidePlayers := make([]*players.Player, 0, len(side.Lineups))
		for _, lineup := range side.Lineups {
			p, err := s.resolver.Resolve(ctx, lineup.PlayerID)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", game.ErrPlayerUnavailable, err)
			}
			sidePlayers = append(sidePlayers, p)
		}

		teamID, err := s.teams.TeamFor(ctx, tx, d.GuildID, sidePlayers)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve team for side %d: %w", side.Position, err)
		}
		for _, lineup := range side.Lineups {
			if err := s.store.UpdateLineupTeam(ctx, tx, lineup.ID, teamID); err != nil {
				return nil, fmt.Errorf("failed to assign lineup team: %w", err)
			}
		}

		var squadID *uuid.UUID
		if len(side.Lineups) > 1 {
			memberIDs := make([]uuid.UUID, len(side.Lineups))
			for j, lineup := range side.Lineups {
				memberIDs[j] = lineup.PlayerID
			}
			squad, err := s.squads.FindOrCreate(ctx, tx, d.GuildID, memberIDs)
			if err != nil {
				return nil, fmt.Errorf("failed to attach squad: %w", err)
			}
			squadID = &squad.ID
		}

		if err := s.store.UpdateSideAssignments(ctx, tx, side.ID, teamID, squadID); err != nil {
			return nil, fmt.Errorf("failed to assign side %d: %w", side.Position, err)
		}
	}

	if err := s.store.MarkStarted(ctx, tx, gameID, name); err != nil {
		return nil, fmt.Errorf("failed to start game: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.logger.Info("game started and tracked",
		zap.Int64("game_id", gameID),
		zap.String("name", name))
	return s.store.GetDetail(ctx, gameID)
}

// Delete removes a pending game outright, host/staff only. Sides and
// lineups cascade; players, teams, and squads are untouched.
func (s *MatchService) Delete(ctx context.Context, actor uuid.UUID, perms Perms, gameID int64) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	d, err := s.store.GetDetailTx(ctx, tx, gameID)
	if err != nil {
		return err
	}
	if d.HostID != actor && !perms.Staff {
		return game.ErrNotAuthorized
	}
	if !d.IsPending {
		return game.ErrNotPending
	}

	if err := s.store.DeleteGame(ctx, tx, gameID); err != nil {
		return fmt.Errorf("failed to delete game: %w", err)
	}
	return tx.Commit()
}

// PurgeExpired deletes every pending game past its expiration, one game
// per statement so an in-flight user transaction serializes cleanly before
// or after each delete. Idempotent; a game already gone purges to nothing.
func (s *MatchService) PurgeExpired(ctx context.Context) (int, error) {
	now := time.Now()
	ids, err := s.store.ExpiredPendingIDs(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired games: %w", err)
	}

	purged := 0
	for _, id := range ids {
		if err := s.store.DeleteExpired(ctx, id, now); err != nil {
			s.logger.Error("failed to purge expired game",
				zap.Int64("game_id", id),
				zap.Error(err))
			continue
		}
		purged++
	}
	return purged, nil
}

// Detail is the read-side projection of one game.
func (s *MatchService) Detail(ctx context.Context, gameID int64) (*game.Detail, error) {
	return s.store.GetDetail(ctx, gameID)
}
