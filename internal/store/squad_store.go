package store

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/mattn/go-sqlite3"

	"github.com/npearse/matchhall/internal/game"
)

type SquadStore struct {
	db *sqlx.DB
}

func NewSquadStore(db *sqlx.DB) *SquadStore {
	return &SquadStore{db: db}
}

// MemberKey canonicalizes a player set into the unique squad key:
// duplicates collapsed, ids sorted, joined with ":". Order of the input
// never matters.
func MemberKey(playerIDs []uuid.UUID) string {
	seen := make(map[uuid.UUID]struct{}, len(playerIDs))
	ids := make([]string, 0, len(playerIDs))
	for _, id := range playerIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id.String())
	}
	sort.Strings(ids)
	return strings.Join(ids, ":")
}

// FindOrCreate returns the squad whose member set exactly matches
// playerIDs, creating it when absent. The UNIQUE(guild_id, member_key)
// constraint makes the insert the arbiter under concurrent identical
// calls: the loser fetches the winner's row.
func (s *SquadStore) FindOrCreate(ctx context.Context, tx *sqlx.Tx, guildID int64, playerIDs []uuid.UUID) (*game.Squad, error) {
	key := MemberKey(playerIDs)

	var existing game.Squad
	err := tx.GetContext(ctx, &existing, "SELECT * FROM squads WHERE guild_id = ? AND member_key = ?", guildID, key)
	if err == nil {
		return &existing, nil
	}

	squad := &game.Squad{ID: uuid.New(), GuildID: guildID, MemberKey: key}
	_, err = tx.NamedExecContext(ctx, `INSERT INTO squads (id, guild_id, member_key)
        VALUES (:id, :guild_id, :member_key)`, squad)
	if isUniqueViolation(err) {
		var squad game.Squad
		if err := tx.GetContext(ctx, &squad, "SELECT * FROM squads WHERE guild_id = ? AND member_key = ?", guildID, key); err != nil {
			return nil, err
		}
		return &squad, nil
	}
	if err != nil {
		return nil, err
	}

	for _, playerID := range playerIDs {
		_, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO squad_members (squad_id, player_id) VALUES (?, ?)", squad.ID, playerID)
		if err != nil {
			return nil, err
		}
	}
	return squad, nil
}

// Members returns the player ids belonging to a squad.
func (s *SquadStore) Members(ctx context.Context, squadID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := s.db.SelectContext(ctx, &ids, "SELECT player_id FROM squad_members WHERE squad_id = ? ORDER BY player_id ASC", squadID)
	return ids, err
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
