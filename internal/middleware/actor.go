package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/google/uuid"
)

// Actor is the already-authorized caller of a command, as asserted by the
// gateway in front of this service. Permission checks happened upstream;
// the predicates are carried through so the engine can branch on them.
type Actor struct {
	PlayerID  uuid.UUID
	GuildID   int64
	Staff     bool
	PowerUser bool
}

type contextKey string

const actorKey contextKey = "actor"

// WithActor extracts the actor from the gateway headers and rejects
// requests that carry none.
func WithActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		playerID, err := uuid.Parse(r.Header.Get("X-Player-ID"))
		if err != nil {
			http.Error(w, "missing or invalid X-Player-ID header", http.StatusBadRequest)
			return
		}
		guildID, err := strconv.ParseInt(r.Header.Get("X-Guild-ID"), 10, 64)
		if err != nil {
			http.Error(w, "missing or invalid X-Guild-ID header", http.StatusBadRequest)
			return
		}

		actor := Actor{
			PlayerID:  playerID,
			GuildID:   guildID,
			Staff:     r.Header.Get("X-Staff") == "true",
			PowerUser: r.Header.Get("X-Power-User") == "true",
		}

		ctx := context.WithValue(r.Context(), actorKey, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}
