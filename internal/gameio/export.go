package gameio

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/npearse/matchhall/internal/game"
	"github.com/npearse/matchhall/internal/store"
)

// Exporter writes started games out as flat records for external
// record-keeping. Only two-sided games with matching lineups can be
// paired into home/away rows; the rest are counted, not silently dropped.
type Exporter struct {
	games   *store.GameStore
	players *store.PlayerStore
	teams   *store.TeamStore
}

func NewExporter(games *store.GameStore, players *store.PlayerStore, teams *store.TeamStore) *Exporter {
	return &Exporter{games: games, players: players, teams: teams}
}

type ExportResult struct {
	Exported int `json:"exported"`
	Skipped  int `json:"skipped"`
}

type exportPlayer struct {
	PlayerID   int64   `json:"player_id"`
	PlayerName string  `json:"player_name"`
	Team       *string `json:"team"`
}

type exportGame struct {
	ID   int64          `json:"id"`
	Date string         `json:"date"`
	Name string         `json:"name"`
	Home []exportPlayer `json:"home"`
	Away []exportPlayer `json:"away"`
}

// ExportJSON writes every exportable started game in the guild as a JSON
// document with the skip count alongside the records.
func (e *Exporter) ExportJSON(ctx context.Context, w io.Writer, guildID int64) (ExportResult, error) {
	records, result, err := e.collect(ctx, guildID)
	if err != nil {
		return ExportResult{}, err
	}

	doc := struct {
		Games   []exportGame `json:"games"`
		Skipped int          `json:"skipped"`
	}{Games: records, Skipped: result.Skipped}

	if err := json.NewEncoder(w).Encode(doc); err != nil {
		return ExportResult{}, err
	}
	return result, nil
}

// ExportCSV writes one row per exportable game, players padded out to the
// maximum side size.
func (e *Exporter) ExportCSV(ctx context.Context, w io.Writer, guildID int64) (ExportResult, error) {
	records, result, err := e.collect(ctx, guildID)
	if err != nil {
		return ExportResult{}, err
	}

	cw := csv.NewWriter(w)
	header := []string{"ID", "Name", "Date", "HomeTeam", "AwayTeam"}
	for i := 1; i <= game.MaxSideSize; i++ {
		header = append(header, fmt.Sprintf("Home%d", i))
	}
	for i := 1; i <= game.MaxSideSize; i++ {
		header = append(header, fmt.Sprintf("Away%d", i))
	}
	if err := cw.Write(header); err != nil {
		return ExportResult{}, err
	}

	for _, rec := range records {
		row := []string{
			strconv.FormatInt(rec.ID, 10),
			rec.Name,
			rec.Date,
			teamName(rec.Home),
			teamName(rec.Away),
		}
		row = append(row, paddedNames(rec.Home)...)
		row = append(row, paddedNames(rec.Away)...)
		if err := cw.Write(row); err != nil {
			return ExportResult{}, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return ExportResult{}, err
	}
	return result, nil
}

func (e *Exporter) collect(ctx context.Context, guildID int64) ([]exportGame, ExportResult, error) {
	started, err := e.games.ListStarted(ctx, guildID)
	if err != nil {
		return nil, ExportResult{}, err
	}

	var records []exportGame
	var result ExportResult
	for _, g := range started {
		d, err := e.games.GetDetail(ctx, g.ID)
		if err != nil {
			return nil, ExportResult{}, err
		}

		rec, ok := e.record(ctx, d)
		if !ok {
			result.Skipped++
			continue
		}
		records = append(records, rec)
		result.Exported++
	}
	return records, result, nil
}

// record pairs a started game's sides into a home/away row. Games with
// more than two sides, empty or unequal sides, or unresolvable players
// cannot be paired.
func (e *Exporter) record(ctx context.Context, d *game.Detail) (exportGame, bool) {
	if len(d.Sides) != 2 {
		return exportGame{}, false
	}
	home, ok := e.sidePlayers(ctx, &d.Sides[0])
	if !ok {
		return exportGame{}, false
	}
	away, ok := e.sidePlayers(ctx, &d.Sides[1])
	if !ok {
		return exportGame{}, false
	}
	if len(home) == 0 || len(home) != len(away) {
		return exportGame{}, false
	}

	name := ""
	if d.Name != nil {
		name = *d.Name
	}
	return exportGame{
		ID:   d.ID,
		Date: d.CreatedAt.Format("2006-01-02"),
		Name: name,
		Home: home,
		Away: away,
	}, true
}

func (e *Exporter) sidePlayers(ctx context.Context, side *game.SideDetail) ([]exportPlayer, bool) {
	out := make([]exportPlayer, 0, len(side.Lineups))
	for _, lineup := range side.Lineups {
		p, err := e.players.Get(ctx, lineup.PlayerID)
		if err != nil {
			return nil, false
		}

		var team *string
		if lineup.TeamID != nil {
			t, err := e.teams.Get(ctx, *lineup.TeamID)
			if err != nil {
				return nil, false
			}
			team = &t.Name
		}
		out = append(out, exportPlayer{
			PlayerID:   p.DiscordID,
			PlayerName: p.Name,
			Team:       team,
		})
	}
	return out, true
}

func teamName(side []exportPlayer) string {
	for _, p := range side {
		if p.Team != nil {
			return *p.Team
		}
	}
	return ""
}

func paddedNames(side []exportPlayer) []string {
	names := make([]string, game.MaxSideSize)
	for i := 0; i < len(side) && i < game.MaxSideSize; i++ {
		names[i] = side[i].PlayerName
	}
	return names
}
