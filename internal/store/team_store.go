package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/npearse/matchhall/internal/game"
)

type TeamStore struct {
	db *sqlx.DB
}

func NewTeamStore(db *sqlx.DB) *TeamStore {
	return &TeamStore{db: db}
}

func (s *TeamStore) Get(ctx context.Context, id uuid.UUID) (*game.Team, error) {
	var team game.Team
	err := s.db.GetContext(ctx, &team, "SELECT * FROM teams WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// GetOrCreateTx resolves a team by name within a guild, creating it on
// first reference. Runs in the caller's transaction so a start commits
// its team assignments atomically.
func (s *TeamStore) GetOrCreateTx(ctx context.Context, tx *sqlx.Tx, guildID int64, name string) (*game.Team, error) {
	var team game.Team
	err := tx.GetContext(ctx, &team, "SELECT * FROM teams WHERE guild_id = ? AND name = ?", guildID, name)
	if err == nil {
		return &team, nil
	}

	team = game.Team{ID: uuid.New(), GuildID: guildID, Name: name}
	_, err = tx.NamedExecContext(ctx, "INSERT INTO teams (id, guild_id, name) VALUES (:id, :guild_id, :name)", &team)
	if isUniqueViolation(err) {
		err = tx.GetContext(ctx, &team, "SELECT * FROM teams WHERE guild_id = ? AND name = ?", guildID, name)
	}
	if err != nil {
		return nil, err
	}
	return &team, nil
}
