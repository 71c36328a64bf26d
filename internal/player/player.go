package players

import (
	"time"

	"github.com/google/uuid"
)

// Player is a registered community member. Players are created on first
// registration and never deleted; lineups keep referencing them forever.
type Player struct {
	ID        uuid.UUID `db:"id"`
	DiscordID int64     `db:"discord_id"`
	GuildID   int64     `db:"guild_id"`
	Name      string    `db:"name"`
	CreatedAt time.Time `db:"created_at"`
}
