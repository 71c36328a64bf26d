package gameio

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/npearse/matchhall/internal/game"
	players "github.com/npearse/matchhall/internal/player"
	"github.com/npearse/matchhall/internal/service"
	"github.com/npearse/matchhall/internal/store"
)

const testGuildID = int64(1000)

var ctx = context.Background()

// setupTestDB creates an in-memory SQLite database and applies migrations
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err, "Failed to connect to in-memory DB")

	// A second pool connection would see a different empty memory DB.
	database.SetMaxOpenConns(1)

	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)

	driver, err := sqlite3.WithInstance(database.DB, &sqlite3.Config{})
	require.NoError(t, err, "Failed to create migrate driver instance")

	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"sqlite3",
		driver,
	)
	require.NoError(t, err, "Failed to create migrate instance")

	err = m.Up()
	if err != nil && err != migrate.ErrNoChange {
		require.NoError(t, err, "Failed to apply migrations")
	}

	return database
}

type exportEnv struct {
	db       *sqlx.DB
	matches  *service.MatchService
	players  *store.PlayerStore
	exporter *Exporter
}

func setupExportEnv(t *testing.T) *exportEnv {
	t.Helper()

	db := setupTestDB(t)
	t.Cleanup(func() { db.Close() })

	gameStore := store.NewGameStore(db)
	playerStore := store.NewPlayerStore(db)
	teamStore := store.NewTeamStore(db)

	matches := service.NewMatchService(db, gameStore, store.NewSquadStore(db),
		&service.RosterResolver{Players: playerStore}, service.NoTeamPolicy{}, zap.NewNop())

	return &exportEnv{
		db:       db,
		matches:  matches,
		players:  playerStore,
		exporter: NewExporter(gameStore, playerStore, teamStore),
	}
}

func (e *exportEnv) player(t *testing.T, discordID int64, name string) *players.Player {
	t.Helper()

	p, err := e.players.FindOrCreate(ctx, discordID, testGuildID, name)
	require.NoError(t, err)
	return p
}

// startGame opens a game with the given sizes, fills it with the given
// players (host first), and starts it.
func (e *exportEnv) startGame(t *testing.T, sizes string, name string, ps ...*players.Player) *game.Detail {
	t.Helper()

	req, err := game.ParseOpenArgs(sizes)
	require.NoError(t, err)

	d, err := e.matches.Open(ctx, ps[0], req)
	require.NoError(t, err)
	for _, p := range ps[1:] {
		_, err = e.matches.Join(ctx, d.ID, p.ID, "")
		require.NoError(t, err)
	}

	d, err = e.matches.Start(ctx, ps[0].ID, service.Perms{}, d.ID, name)
	require.NoError(t, err)
	return d
}

func TestExportJSON(t *testing.T) {
	env := setupExportEnv(t)
	p1 := env.player(t, 1, "nelluk")
	p2 := env.player(t, 2, "rickdaheals")

	env.startGame(t, "1v1", "Fields of Fire", p1, p2)

	var buf bytes.Buffer
	result, err := env.exporter.ExportJSON(ctx, &buf, testGuildID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Exported)
	assert.Zero(t, result.Skipped)

	var doc struct {
		Games []struct {
			Name string `json:"name"`
			Home []struct {
				PlayerID   int64  `json:"player_id"`
				PlayerName string `json:"player_name"`
			} `json:"home"`
			Away []struct {
				PlayerName string `json:"player_name"`
			} `json:"away"`
		} `json:"games"`
		Skipped int `json:"skipped"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Games, 1)
	assert.Equal(t, "Fields of Fire", doc.Games[0].Name)
	require.Len(t, doc.Games[0].Home, 1)
	assert.Equal(t, int64(1), doc.Games[0].Home[0].PlayerID)
	assert.Equal(t, "nelluk", doc.Games[0].Home[0].PlayerName)
	require.Len(t, doc.Games[0].Away, 1)
	assert.Equal(t, "rickdaheals", doc.Games[0].Away[0].PlayerName)
}

func TestExportCSV(t *testing.T) {
	env := setupExportEnv(t)
	p1 := env.player(t, 1, "nelluk")
	p2 := env.player(t, 2, "rickdaheals")
	p3 := env.player(t, 3, "koric")
	p4 := env.player(t, 4, "jonathan")

	env.startGame(t, "2v2", "Fields of Fire", p1, p2, p3, p4)

	var buf bytes.Buffer
	result, err := env.exporter.ExportCSV(ctx, &buf, testGuildID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Exported)

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "ID", rows[0][0])
	assert.Len(t, rows[0], 5+2*game.MaxSideSize)

	assert.Equal(t, "Fields of Fire", rows[1][1])
	assert.Equal(t, "nelluk", rows[1][5])
	assert.Equal(t, "rickdaheals", rows[1][6])
	assert.Equal(t, "", rows[1][7], "unused seats pad out to blank")
	assert.Equal(t, "koric", rows[1][5+game.MaxSideSize])
}

func TestExportSkipsUnpairableGames(t *testing.T) {
	env := setupExportEnv(t)
	p1 := env.player(t, 1, "nelluk")
	p2 := env.player(t, 2, "rickdaheals")
	p3 := env.player(t, 3, "koric")

	// A three-sided game cannot be paired into home/away.
	env.startGame(t, "1v1v1", "Triangle", p1, p2, p3)
	// A plain two-sided game still exports.
	env.startGame(t, "1v1", "Duel", p1, p2)

	var buf bytes.Buffer
	result, err := env.exporter.ExportJSON(ctx, &buf, testGuildID)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Exported)
	assert.Equal(t, 1, result.Skipped, "unpairable games are counted, not silently dropped")
}

func TestExportIgnoresPendingGames(t *testing.T) {
	env := setupExportEnv(t)
	p1 := env.player(t, 1, "nelluk")

	req, err := game.ParseOpenArgs("2v2")
	require.NoError(t, err)
	_, err = env.matches.Open(ctx, p1, req)
	require.NoError(t, err)

	var buf bytes.Buffer
	result, err := env.exporter.ExportJSON(ctx, &buf, testGuildID)
	require.NoError(t, err)
	assert.Zero(t, result.Exported)
	assert.Zero(t, result.Skipped)
}
