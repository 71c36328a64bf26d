package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingNotifier struct {
	failFor int64
	sent    map[int64][]Listing
	failed  []int64
}

func (n *recordingNotifier) NotifyOpenGames(ctx context.Context, guildID int64, games []Listing) error {
	if guildID == n.failFor {
		n.failed = append(n.failed, guildID)
		return errors.New("destination unreachable")
	}
	if n.sent == nil {
		n.sent = map[int64][]Listing{}
	}
	n.sent[guildID] = games
	return nil
}

func TestSweepPurgesAndBroadcasts(t *testing.T) {
	env := setupTestEnv(t)
	host := env.player(t, 1, "nelluk")

	open, err := env.matches.Open(ctx, host, mustParse(t, "2v2"))
	require.NoError(t, err)
	expired, err := env.matches.Open(ctx, host, mustParse(t, "1v1"))
	require.NoError(t, err)
	_, err = env.db.Exec("UPDATE games SET expiration = ? WHERE id = ?",
		time.Now().Add(-time.Minute), expired.ID)
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	sweeper := NewSweeper(time.Hour, []int64{testGuildID}, env.matches, env.listing, notifier, zap.NewNop())
	sweeper.sweep(ctx)

	// The expired game is purged before the broadcast, so only the live
	// open game is announced.
	require.Len(t, notifier.sent[testGuildID], 1)
	assert.Equal(t, open.ID, notifier.sent[testGuildID][0].ID)
}

func TestSweepIsolatesDestinationFailures(t *testing.T) {
	env := setupTestEnv(t)
	host := env.player(t, 1, "nelluk")

	// Open games exist in two guilds; one destination is broken.
	_, err := env.matches.Open(ctx, host, mustParse(t, "2v2"))
	require.NoError(t, err)

	otherGuild := int64(2000)
	otherHost, err := env.players.FindOrCreate(ctx, 99, otherGuild, "jonathan")
	require.NoError(t, err)
	_, err = env.matches.Open(ctx, otherHost, mustParse(t, "2v2"))
	require.NoError(t, err)

	notifier := &recordingNotifier{failFor: testGuildID}
	sweeper := NewSweeper(time.Hour, []int64{testGuildID, otherGuild}, env.matches, env.listing, notifier, zap.NewNop())
	sweeper.sweep(ctx)

	assert.Equal(t, []int64{testGuildID}, notifier.failed)
	assert.Len(t, notifier.sent[otherGuild], 1, "the healthy destination still gets its broadcast")
}

func TestSweepSkipsEmptyGuilds(t *testing.T) {
	env := setupTestEnv(t)

	notifier := &recordingNotifier{}
	sweeper := NewSweeper(time.Hour, []int64{testGuildID}, env.matches, env.listing, notifier, zap.NewNop())
	sweeper.sweep(ctx)

	assert.Empty(t, notifier.sent, "no open games, no broadcast")
}

func TestSweeperStopsOnCancel(t *testing.T) {
	env := setupTestEnv(t)

	runCtx, cancel := context.WithCancel(context.Background())
	sweeper := NewSweeper(10*time.Millisecond, nil, env.matches, env.listing, &recordingNotifier{}, zap.NewNop())

	done := make(chan struct{})
	go func() {
		sweeper.Run(runCtx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}
