package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/npearse/matchhall/internal/utils"
)

func twoSideDetail() *Detail {
	d := &Detail{
		Sides: []SideDetail{
			{Side: Side{ID: 1, Position: 1, Size: 2, SideName: utils.StringOrNil("Ronin")}},
			{Side: Side{ID: 2, Position: 2, Size: 2}},
		},
	}
	d.Sides[0].Lineups = []Lineup{{ID: 1, SideID: 1, PlayerID: uuid.New()}}
	return d
}

func TestCapacity(t *testing.T) {
	d := twoSideDetail()
	filled, total := d.Capacity()
	assert.Equal(t, 1, filled)
	assert.Equal(t, 4, total)
	assert.False(t, d.IsFull())
	assert.Equal(t, "2v2", d.SizeString())
}

func TestFirstOpenSide(t *testing.T) {
	d := twoSideDetail()
	side := d.FirstOpenSide()
	require.NotNil(t, side)
	assert.Equal(t, 1, side.Position)

	d.Sides[0].Lineups = append(d.Sides[0].Lineups, Lineup{ID: 2, SideID: 1, PlayerID: uuid.New()})
	side = d.FirstOpenSide()
	require.NotNil(t, side)
	assert.Equal(t, 2, side.Position)

	d.Sides[1].Lineups = []Lineup{
		{ID: 3, SideID: 2, PlayerID: uuid.New()},
		{ID: 4, SideID: 2, PlayerID: uuid.New()},
	}
	assert.Nil(t, d.FirstOpenSide())
	assert.True(t, d.IsFull())
}

func TestResolveSide(t *testing.T) {
	d := twoSideDetail()

	side, err := d.ResolveSide("2")
	require.NoError(t, err)
	assert.Equal(t, 2, side.Position)

	side, err = d.ResolveSide("ronin")
	require.NoError(t, err)
	assert.Equal(t, 1, side.Position)

	_, err = d.ResolveSide("3")
	assert.ErrorIs(t, err, ErrSideNotFound)
	_, err = d.ResolveSide("shogun")
	assert.ErrorIs(t, err, ErrSideNotFound)
}
