package store

import (
	"context"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/npearse/matchhall/internal/game"
	players "github.com/npearse/matchhall/internal/player"
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

func createTestPlayer(t *testing.T, db *sqlx.DB, discordID int64, name string) *players.Player {
	t.Helper()

	p, err := NewPlayerStore(db).FindOrCreate(context.Background(), discordID, testGuildID, name)
	require.NoError(t, err)
	return p
}

// createTestGame inserts a pending game with the given side sizes and no
// lineups, bypassing the service layer.
func createTestGame(t *testing.T, db *sqlx.DB, host *players.Player, sizes []int) *game.Detail {
	t.Helper()

	store := NewGameStore(db)
	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)

	g := &game.Game{
		HostID:     host.ID,
		GuildID:    testGuildID,
		Expiration: time.Now().Add(24 * time.Hour),
		IsPending:  true,
	}
	require.NoError(t, store.CreateGame(context.Background(), tx, g))
	for i, size := range sizes {
		side := &game.Side{GameID: g.ID, Position: i + 1, Size: size}
		require.NoError(t, store.CreateSide(context.Background(), tx, side))
	}
	require.NoError(t, tx.Commit())

	d, err := store.GetDetail(context.Background(), g.ID)
	require.NoError(t, err)
	return d
}

func seatPlayer(t *testing.T, db *sqlx.DB, gameID, sideID int64, playerID uuid.UUID) {
	t.Helper()

	store := NewGameStore(db)
	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	require.NoError(t, store.CreateLineup(context.Background(), tx, &game.Lineup{
		GameID:   gameID,
		SideID:   sideID,
		PlayerID: playerID,
	}))
	require.NoError(t, tx.Commit())
}
