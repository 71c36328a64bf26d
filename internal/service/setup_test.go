package service

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	players "github.com/npearse/matchhall/internal/player"
	"github.com/npearse/matchhall/internal/store"
)

const testGuildID = int64(1000)

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

// setupFileTestDB creates a file-backed database with the production
// connection options, so tests can run transactions over separate
// connections at the same time.
func setupFileTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "test.db") +
		"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate&_foreign_keys=on"
	database, err := sqlx.Connect("sqlite3", dsn)
	require.NoError(t, err, "Failed to connect to file DB")

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

// homeAwayTeamPolicy alternates sides between two fixed teams, the way a
// two-faction guild would.
type homeAwayTeamPolicy struct {
	teams *store.TeamStore
	calls int
}

func (p *homeAwayTeamPolicy) TeamFor(ctx context.Context, tx *sqlx.Tx, guildID int64, side []*players.Player) (*uuid.UUID, error) {
	names := []string{"The Ronin", "The Jets"}
	team, err := p.teams.GetOrCreateTx(ctx, tx, guildID, names[p.calls%2])
	if err != nil {
		return nil, err
	}
	p.calls++
	return &team.ID, nil
}

// failingResolver refuses one player, standing in for a member who left
// the platform between joining and starting.
type failingResolver struct {
	inner  IdentityResolver
	broken uuid.UUID
}

func (r *failingResolver) Resolve(ctx context.Context, playerID uuid.UUID) (*players.Player, error) {
	if playerID == r.broken {
		return nil, fmt.Errorf("player %s not found on this server", playerID)
	}
	return r.inner.Resolve(ctx, playerID)
}

type testEnv struct {
	db      *sqlx.DB
	matches *MatchService
	listing *ListingService
	players *store.PlayerStore
	games   *store.GameStore
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnv(t, setupTestDB(t))
}

func setupFileTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnv(t, setupFileTestDB(t))
}

func newTestEnv(t *testing.T, db *sqlx.DB) *testEnv {
	t.Helper()

	t.Cleanup(func() { db.Close() })

	gameStore := store.NewGameStore(db)
	playerStore := store.NewPlayerStore(db)
	squadStore := store.NewSquadStore(db)
	teamStore := store.NewTeamStore(db)

	matches := NewMatchService(db, gameStore, squadStore,
		&RosterResolver{Players: playerStore},
		&homeAwayTeamPolicy{teams: teamStore},
		zap.NewNop())

	return &testEnv{
		db:      db,
		matches: matches,
		listing: NewListingService(db, gameStore),
		players: playerStore,
		games:   gameStore,
	}
}

func (e *testEnv) player(t *testing.T, discordID int64, name string) *players.Player {
	t.Helper()

	p, err := e.players.FindOrCreate(context.Background(), discordID, testGuildID, name)
	require.NoError(t, err)
	return p
}
