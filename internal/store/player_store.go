package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	players "github.com/npearse/matchhall/internal/player"
)

type PlayerStore struct {
	db *sqlx.DB
}

const (
	getPlayerQuery          = "SELECT * FROM players WHERE id = ?"
	getPlayerByDiscordQuery = `
        SELECT * FROM players
        WHERE discord_id = ?
        AND guild_id = ?
    `
	createPlayerQuery = `
		INSERT INTO players (id, discord_id, guild_id, name) VALUES
		(:id, :discord_id, :guild_id, :name)
	`
	updatePlayerNameQuery = `
		UPDATE players SET
		name = :name
		WHERE id = :id
	`
)

func NewPlayerStore(db *sqlx.DB) *PlayerStore {
	return &PlayerStore{db: db}
}

func (s *PlayerStore) Get(ctx context.Context, id uuid.UUID) (*players.Player, error) {
	var p players.Player
	err := s.db.GetContext(ctx, &p, getPlayerQuery, id)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PlayerStore) GetByDiscordID(ctx context.Context, discordID, guildID int64) (*players.Player, error) {
	var p players.Player
	err := s.db.GetContext(ctx, &p, getPlayerByDiscordQuery, discordID, guildID)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindOrCreate registers a player on first sight and refreshes a stale
// display name afterwards.
func (s *PlayerStore) FindOrCreate(ctx context.Context, discordID, guildID int64, name string) (*players.Player, error) {
	p, err := s.GetByDiscordID(ctx, discordID, guildID)
	if err == nil {
		if p.Name != name {
			p.Name = name
			if _, err := s.db.NamedExecContext(ctx, updatePlayerNameQuery, p); err != nil {
				return nil, err
			}
		}
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	newPlayer := &players.Player{
		ID:        uuid.New(),
		DiscordID: discordID,
		GuildID:   guildID,
		Name:      name,
	}
	if _, err := s.db.NamedExecContext(ctx, createPlayerQuery, newPlayer); err != nil {
		return nil, err
	}
	return s.GetByDiscordID(ctx, discordID, guildID)
}
