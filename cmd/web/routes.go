package main

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/npearse/matchhall/internal/game"
	"github.com/npearse/matchhall/internal/gameio"
	"github.com/npearse/matchhall/internal/httputil"
	"github.com/npearse/matchhall/internal/middleware"
	"github.com/npearse/matchhall/internal/service"
	"github.com/npearse/matchhall/internal/store"
)

type routerDeps struct {
	matches  *service.MatchService
	listing  *service.ListingService
	players  *store.PlayerStore
	exporter *gameio.Exporter
}

func newRouter(deps routerDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.WithActor)

	r.Post("/players", func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFromContext(r.Context())

		var body struct {
			DiscordID int64  `json:"discord_id"`
			Name      string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httputil.BadRequest(w, "invalid request body", err)
			return
		}

		p, err := deps.players.FindOrCreate(r.Context(), body.DiscordID, actor.GuildID, body.Name)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, p)
	})

	r.Post("/games", func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFromContext(r.Context())

		var body struct {
			Args string `json:"args"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httputil.BadRequest(w, "invalid request body", err)
			return
		}

		req, err := game.ParseOpenArgs(body.Args)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}

		host, err := deps.players.Get(r.Context(), actor.PlayerID)
		if err != nil {
			httputil.NotFound(w, "you must be a registered player before hosting a game")
			return
		}

		d, err := deps.matches.Open(r.Context(), host, req)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusCreated, gameView(d))
	})

	r.Get("/games", func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFromContext(r.Context())

		var (
			listings []service.Listing
			err      error
		)
		switch r.URL.Query().Get("filter") {
		case "open":
			listings, err = deps.listing.OpenWithCapacity(r.Context(), actor.GuildID)
		case "waiting":
			var hostID *uuid.UUID
			if r.URL.Query().Get("host") == "me" {
				hostID = &actor.PlayerID
			}
			listings, err = deps.listing.WaitingToStart(r.Context(), actor.GuildID, hostID)
		case "":
			listings, err = deps.listing.Pending(r.Context(), actor.GuildID)
		default:
			httputil.BadRequest(w, "filter must be open or waiting", nil)
			return
		}
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, listings)
	})

	r.Get("/games/{id}", func(w http.ResponseWriter, r *http.Request) {
		gameID, err := parseGameID(r)
		if err != nil {
			httputil.BadRequest(w, "invalid game ID", err)
			return
		}

		d, err := deps.matches.Detail(r.Context(), gameID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, gameView(d))
	})

	r.Delete("/games/{id}", func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFromContext(r.Context())
		gameID, err := parseGameID(r)
		if err != nil {
			httputil.BadRequest(w, "invalid game ID", err)
			return
		}

		if err := deps.matches.Delete(r.Context(), actor.PlayerID, perms(actor), gameID); err != nil {
			httputil.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/games/{id}/join", func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFromContext(r.Context())
		gameID, err := parseGameID(r)
		if err != nil {
			httputil.BadRequest(w, "invalid game ID", err)
			return
		}

		var body struct {
			Target string `json:"target,omitempty"`
			Side   string `json:"side,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httputil.BadRequest(w, "invalid request body", err)
			return
		}

		target := actor.PlayerID
		if body.Target != "" {
			target, err = uuid.Parse(body.Target)
			if err != nil {
				httputil.BadRequest(w, "invalid target player ID", err)
				return
			}
			// Seating someone else needs elevated permission.
			if target != actor.PlayerID && !actor.PowerUser && !actor.Staff {
				httputil.WriteError(w, game.ErrNotAuthorized)
				return
			}
		}

		d, err := deps.matches.Join(r.Context(), gameID, target, body.Side)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, gameView(d))
	})

	r.Post("/games/{id}/leave", func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFromContext(r.Context())
		gameID, err := parseGameID(r)
		if err != nil {
			httputil.BadRequest(w, "invalid game ID", err)
			return
		}

		if err := deps.matches.Leave(r.Context(), actor.PlayerID, perms(actor), gameID); err != nil {
			httputil.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/games/{id}/kick", func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFromContext(r.Context())
		gameID, err := parseGameID(r)
		if err != nil {
			httputil.BadRequest(w, "invalid game ID", err)
			return
		}

		var body struct {
			Target string `json:"target"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httputil.BadRequest(w, "invalid request body", err)
			return
		}
		target, err := uuid.Parse(body.Target)
		if err != nil {
			httputil.BadRequest(w, "invalid target player ID", err)
			return
		}

		if err := deps.matches.Kick(r.Context(), actor.PlayerID, perms(actor), gameID, target); err != nil {
			httputil.WriteError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Post("/games/{id}/sides/{lookup}/name", func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFromContext(r.Context())
		gameID, err := parseGameID(r)
		if err != nil {
			httputil.BadRequest(w, "invalid game ID", err)
			return
		}

		var body struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httputil.BadRequest(w, "invalid request body", err)
			return
		}

		d, err := deps.matches.NameSide(r.Context(), actor.PlayerID, perms(actor), gameID, chi.URLParam(r, "lookup"), body.Name)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, gameView(d))
	})

	r.Put("/games/{id}/notes", func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFromContext(r.Context())
		gameID, err := parseGameID(r)
		if err != nil {
			httputil.BadRequest(w, "invalid game ID", err)
			return
		}

		var body struct {
			Notes string `json:"notes"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httputil.BadRequest(w, "invalid request body", err)
			return
		}

		d, err := deps.matches.SetNotes(r.Context(), actor.PlayerID, perms(actor), gameID, body.Notes)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, gameView(d))
	})

	r.Post("/games/{id}/start", func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFromContext(r.Context())
		gameID, err := parseGameID(r)
		if err != nil {
			httputil.BadRequest(w, "invalid game ID", err)
			return
		}

		var body struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httputil.BadRequest(w, "invalid request body", err)
			return
		}

		d, err := deps.matches.Start(r.Context(), actor.PlayerID, perms(actor), gameID, body.Name)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, gameView(d))
	})

	r.Post("/draw", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Size       string   `json:"size"`
			Exclusions []string `json:"exclusions,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			httputil.BadRequest(w, "invalid request body", err)
			return
		}
		if body.Size == "" {
			body.Size = "1v1"
		}

		teamSize, err := game.ParseDrawSize(body.Size)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		home, away, err := game.DrawTribes(teamSize, body.Exclusions)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string][]string{"home": home, "away": away})
	})

	r.Get("/export", func(w http.ResponseWriter, r *http.Request) {
		actor, _ := middleware.ActorFromContext(r.Context())
		if !actor.Staff {
			httputil.WriteError(w, game.ErrNotAuthorized)
			return
		}

		switch r.URL.Query().Get("format") {
		case "csv":
			w.Header().Set("Content-Type", "text/csv")
			if _, err := deps.exporter.ExportCSV(r.Context(), w, actor.GuildID); err != nil {
				httputil.WriteError(w, err)
			}
		case "json", "":
			w.Header().Set("Content-Type", "application/json")
			if _, err := deps.exporter.ExportJSON(r.Context(), w, actor.GuildID); err != nil {
				httputil.WriteError(w, err)
			}
		default:
			httputil.BadRequest(w, "format must be json or csv", nil)
		}
	})

	return r
}

func parseGameID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

func perms(actor middleware.Actor) service.Perms {
	return service.Perms{Staff: actor.Staff, PowerUser: actor.PowerUser}
}

type sideView struct {
	Position int      `json:"position"`
	Size     int      `json:"size"`
	Name     *string  `json:"name,omitempty"`
	TeamID   *string  `json:"team_id,omitempty"`
	SquadID  *string  `json:"squad_id,omitempty"`
	Players  []string `json:"players"`
}

type detailView struct {
	ID        int64      `json:"id"`
	HostID    string     `json:"host_id"`
	GuildID   int64      `json:"guild_id"`
	Size      string     `json:"size"`
	Filled    int        `json:"filled"`
	Total     int        `json:"total"`
	IsPending bool       `json:"is_pending"`
	Name      *string    `json:"name,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
	Sides     []sideView `json:"sides"`
}

func gameView(d *game.Detail) detailView {
	filled, total := d.Capacity()
	view := detailView{
		ID:        d.ID,
		HostID:    d.HostID.String(),
		GuildID:   d.GuildID,
		Size:      d.SizeString(),
		Filled:    filled,
		Total:     total,
		IsPending: d.IsPending,
		Name:      d.Name,
		Notes:     d.Notes,
	}
	for i := range d.Sides {
		side := &d.Sides[i]
		sv := sideView{
			Position: side.Position,
			Size:     side.Size,
			Name:     side.SideName,
			Players:  make([]string, 0, len(side.Lineups)),
		}
		if side.TeamID != nil {
			id := side.TeamID.String()
			sv.TeamID = &id
		}
		if side.SquadID != nil {
			id := side.SquadID.String()
			sv.SquadID = &id
		}
		for _, lineup := range side.Lineups {
			sv.Players = append(sv.Players, lineup.PlayerID.String())
		}
		view.Sides = append(view.Sides, sv)
	}
	return view
}
