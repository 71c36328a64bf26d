package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/npearse/matchhall/internal/game"
)

type GameStore struct {
	db *sqlx.DB
}

func NewGameStore(db *sqlx.DB) *GameStore {
	return &GameStore{db: db}
}

func (s *GameStore) CreateGame(ctx context.Context, tx *sqlx.Tx, g *game.Game) error {
	res, err := tx.NamedExecContext(ctx, `INSERT INTO games (host_id, guild_id, expiration, notes, name, is_pending)
        VALUES (:host_id, :guild_id, :expiration, :notes, :name, :is_pending)`, g)
	if err != nil {
		return err
	}
	g.ID, err = res.LastInsertId()
	return err
}

func (s *GameStore) CreateSide(ctx context.Context, tx *sqlx.Tx, side *game.Side) error {
	res, err := tx.NamedExecContext(ctx, `INSERT INTO game_sides (game_id, position, size, sidename, team_id, squad_id)
        VALUES (:game_id, :position, :size, :sidename, :team_id, :squad_id)`, side)
	if err != nil {
		return err
	}
	side.ID, err = res.LastInsertId()
	return err
}

func (s *GameStore) CreateLineup(ctx context.Context, tx *sqlx.Tx, lineup *game.Lineup) error {
	res, err := tx.NamedExecContext(ctx, `INSERT INTO lineups (game_id, side_id, player_id, team_id)
        VALUES (:game_id, :side_id, :player_id, :team_id)`, lineup)
	if err != nil {
		return err
	}
	lineup.ID, err = res.LastInsertId()
	return err
}

func (s *GameStore) DeleteLineup(ctx context.Context, tx *sqlx.Tx, lineupID int64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM lineups WHERE id = ?", lineupID)
	return err
}

// GetDetailTx loads a game with its sides and lineups inside tx so that
// capacity checks and the writes that depend on them commit atomically.
func (s *GameStore) GetDetailTx(ctx context.Context, tx *sqlx.Tx, gameID int64) (*game.Detail, error) {
	var d game.Detail
	err := tx.GetContext(ctx, &d.Game, "SELECT * FROM games WHERE id = ?", gameID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var sides []game.Side
	if err := tx.SelectContext(ctx, &sides, "SELECT * FROM game_sides WHERE game_id = ? ORDER BY position ASC", gameID); err != nil {
		return nil, err
	}

	var lineups []game.Lineup
	if err := tx.SelectContext(ctx, &lineups, "SELECT * FROM lineups WHERE game_id = ? ORDER BY id ASC", gameID); err != nil {
		return nil, err
	}

	d.Sides = assembleSides(sides, lineups)
	return &d, nil
}

// GetDetail is the read-only variant used by projections.
func (s *GameStore) GetDetail(ctx context.Context, gameID int64) (*game.Detail, error) {
	var d game.Detail
	err := s.db.GetContext(ctx, &d.Game, "SELECT * FROM games WHERE id = ?", gameID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var sides []game.Side
	if err := s.db.SelectContext(ctx, &sides, "SELECT * FROM game_sides WHERE game_id = ? ORDER BY position ASC", gameID); err != nil {
		return nil, err
	}

	var lineups []game.Lineup
	if err := s.db.SelectContext(ctx, &lineups, "SELECT * FROM lineups WHERE game_id = ? ORDER BY id ASC", gameID); err != nil {
		return nil, err
	}

	d.Sides = assembleSides(sides, lineups)
	return &d, nil
}

func assembleSides(sides []game.Side, lineups []game.Lineup) []game.SideDetail {
	details := make([]game.SideDetail, len(sides))
	bySide := make(map[int64]int, len(sides))
	for i, side := range sides {
		details[i] = game.SideDetail{Side: side}
		bySide[side.ID] = i
	}
	for _, l := range lineups {
		if i, ok := bySide[l.SideID]; ok {
			details[i].Lineups = append(details[i].Lineups, l)
		}
	}
	return details
}

// CountLineupsForSideTx re-reads a side's seat count inside the caller's
// transaction, immediately before inserting into it.
func (s *GameStore) CountLineupsForSideTx(ctx context.Context, tx *sqlx.Tx, sideID int64) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM lineups WHERE side_id = ?", sideID)
	return count, err
}

// CountPendingHostedTx counts the pending games hosted by a player,
// queried at transaction time rather than cached.
func (s *GameStore) CountPendingHostedTx(ctx context.Context, tx *sqlx.Tx, hostID uuid.UUID) (int, error) {
	var count int
	err := tx.GetContext(ctx, &count, "SELECT COUNT(*) FROM games WHERE host_id = ? AND is_pending = 1", hostID)
	return count, err
}

func (s *GameStore) UpdateSideName(ctx context.Context, tx *sqlx.Tx, sideID int64, name string) error {
	_, err := tx.ExecContext(ctx, "UPDATE game_sides SET sidename = ? WHERE id = ?", name, sideID)
	return err
}

func (s *GameStore) UpdateNotes(ctx context.Context, tx *sqlx.Tx, gameID int64, notes *string) error {
	_, err := tx.ExecContext(ctx, "UPDATE games SET notes = ? WHERE id = ?", notes, gameID)
	return err
}

func (s *GameStore) UpdateSideAssignments(ctx context.Context, tx *sqlx.Tx, sideID int64, teamID, squadID *uuid.UUID) error {
	_, err := tx.ExecContext(ctx, "UPDATE game_sides SET team_id = ?, squad_id = ? WHERE id = ?", teamID, squadID, sideID)
	return err
}

func (s *GameStore) UpdateLineupTeam(ctx context.Context, tx *sqlx.Tx, lineupID int64, teamID *uuid.UUID) error {
	_, err := tx.ExecContext(ctx, "UPDATE lineups SET team_id = ? WHERE id = ?", teamID, lineupID)
	return err
}

// MarkStarted flips the game out of pending and records its name.
func (s *GameStore) MarkStarted(ctx context.Context, tx *sqlx.Tx, gameID int64, name string) error {
	_, err := tx.ExecContext(ctx, "UPDATE games SET is_pending = 0, name = ? WHERE id = ?", name, gameID)
	return err
}

// DeleteGame removes a game; sides and lineups go with it via cascade.
func (s *GameStore) DeleteGame(ctx context.Context, tx *sqlx.Tx, gameID int64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM games WHERE id = ?", gameID)
	return err
}

// ExpiredPendingIDs lists pending games whose expiration has passed.
func (s *GameStore) ExpiredPendingIDs(ctx context.Context, now time.Time) ([]int64, error) {
	var ids []int64
	err := s.db.SelectContext(ctx, &ids, "SELECT id FROM games WHERE is_pending = 1 AND expiration < ? ORDER BY id ASC", now)
	return ids, err
}

// DeleteExpired removes one pending game only if it is still expired,
// so a purge never races a start or an ordinary mutation into partial state.
func (s *GameStore) DeleteExpired(ctx context.Context, gameID int64, now time.Time) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM games WHERE id = ? AND is_pending = 1 AND expiration < ?", gameID, now)
	return err
}

func (s *GameStore) ListPending(ctx context.Context, guildID int64) ([]game.Game, error) {
	var games []game.Game
	err := s.db.SelectContext(ctx, &games,
		"SELECT * FROM games WHERE is_pending = 1 AND guild_id = ? ORDER BY id ASC", guildID)
	return games, err
}

func (s *GameStore) ListOpenWithCapacity(ctx context.Context, guildID int64) ([]game.Game, error) {
	var games []game.Game
	err := s.db.SelectContext(ctx, &games, `SELECT g.* FROM games g
        WHERE g.is_pending = 1 AND g.guild_id = ?
        AND (SELECT COUNT(*) FROM lineups l WHERE l.game_id = g.id) <
            (SELECT SUM(s.size) FROM game_sides s WHERE s.game_id = g.id)
        ORDER BY g.id DESC`, guildID)
	return games, err
}

func (s *GameStore) ListWaitingToStart(ctx context.Context, guildID int64, hostID *uuid.UUID) ([]game.Game, error) {
	query := `SELECT g.* FROM games g
        WHERE g.is_pending = 1 AND g.guild_id = ?
        AND (SELECT COUNT(*) FROM lineups l WHERE l.game_id = g.id) =
            (SELECT SUM(s.size) FROM game_sides s WHERE s.game_id = g.id)`
	args := []interface{}{guildID}
	if hostID != nil {
		query += " AND g.host_id = ?"
		args = append(args, *hostID)
	}
	query += " ORDER BY g.id ASC"

	var games []game.Game
	err := s.db.SelectContext(ctx, &games, query, args...)
	return games, err
}

func (s *GameStore) ListStarted(ctx context.Context, guildID int64) ([]game.Game, error) {
	var games []game.Game
	err := s.db.SelectContext(ctx, &games,
		"SELECT * FROM games WHERE is_pending = 0 AND guild_id = ? ORDER BY id ASC", guildID)
	return games, err
}
