package game

import (
	"time"

	"github.com/google/uuid"
)

// Game is a matchmaking session. It is created pending and either starts
// (irreversibly) or is deleted/expired while still pending.
type Game struct {
	ID         int64     `db:"id"`
	HostID     uuid.UUID `db:"host_id"`
	GuildID    int64     `db:"guild_id"`
	Expiration time.Time `db:"expiration"`
	Notes      *string   `db:"notes"`
	Name       *string   `db:"name"`
	IsPending  bool      `db:"is_pending"`
	CreatedAt  time.Time `db:"created_at"`
}

// Side is one slot-group within a game. Size and position are fixed at
// creation; team and squad are assigned only when the game starts.
type Side struct {
	ID       int64      `db:"id"`
	GameID   int64      `db:"game_id"`
	Position int        `db:"position"`
	Size     int        `db:"size"`
	SideName *string    `db:"sidename"`
	TeamID   *uuid.UUID `db:"team_id"`
	SquadID  *uuid.UUID `db:"squad_id"`
}

// Lineup seats a player on a side. TeamID is set at start.
type Lineup struct {
	ID       int64      `db:"id"`
	GameID   int64      `db:"game_id"`
	SideID   int64      `db:"side_id"`
	PlayerID uuid.UUID  `db:"player_id"`
	TeamID   *uuid.UUID `db:"team_id"`
}

// Squad is the canonical identity for a recurring group of players,
// keyed by the order-independent set of members.
type Squad struct {
	ID        uuid.UUID `db:"id"`
	GuildID   int64     `db:"guild_id"`
	MemberKey string    `db:"member_key"`
	CreatedAt time.Time `db:"created_at"`
}

type Team struct {
	ID      uuid.UUID `db:"id"`
	GuildID int64     `db:"guild_id"`
	Name    string    `db:"name"`
}

func (g *Game) HoursToExpiry(now time.Time) int {
	return int(g.Expiration.Sub(now).Hours())
}
