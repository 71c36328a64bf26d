package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	players "github.com/npearse/matchhall/internal/player"
	"github.com/npearse/matchhall/internal/store"
)

// RosterResolver resolves players against the local roster. It stands in
// for the chat-gateway member lookup: a player missing from the roster is
// reported unavailable, exactly like a member who left the server.
type RosterResolver struct {
	Players *store.PlayerStore
}

func (r *RosterResolver) Resolve(ctx context.Context, playerID uuid.UUID) (*players.Player, error) {
	return r.Players.Get(ctx, playerID)
}

// NoTeamPolicy leaves every side unaffiliated. Guilds that track team
// allegiance plug in their own policy.
type NoTeamPolicy struct{}

func (NoTeamPolicy) TeamFor(ctx context.Context, tx *sqlx.Tx, guildID int64, side []*players.Player) (*uuid.UUID, error) {
	return nil, nil
}
