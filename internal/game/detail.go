package game

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// SideDetail is a side together with its current lineup.
type SideDetail struct {
	Side
	Lineups []Lineup
}

func (s *SideDetail) Open() bool {
	return len(s.Lineups) < s.Size
}

// Detail is the full projection of a game: the row plus its sides and
// lineups in position order. All capacity queries are answered from it.
type Detail struct {
	Game
	Sides []SideDetail
}

// Capacity returns (filled, total) aggregated across all sides.
func (d *Detail) Capacity() (int, int) {
	var filled, total int
	for i := range d.Sides {
		filled += len(d.Sides[i].Lineups)
		total += d.Sides[i].Size
	}
	return filled, total
}

func (d *Detail) IsFull() bool {
	filled, total := d.Capacity()
	return filled == total
}

// FirstOpenSide returns the lowest-position side with room, or nil.
func (d *Detail) FirstOpenSide() *SideDetail {
	for i := range d.Sides {
		if d.Sides[i].Open() {
			return &d.Sides[i]
		}
	}
	return nil
}

// ResolveSide finds a side by position number or case-insensitive name.
func (d *Detail) ResolveSide(lookup string) (*SideDetail, error) {
	if pos, err := strconv.Atoi(lookup); err == nil {
		for i := range d.Sides {
			if d.Sides[i].Position == pos {
				return &d.Sides[i], nil
			}
		}
		return nil, ErrSideNotFound
	}
	for i := range d.Sides {
		name := d.Sides[i].SideName
		if name != nil && strings.EqualFold(*name, lookup) {
			return &d.Sides[i], nil
		}
	}
	return nil, ErrSideNotFound
}

// Player returns the lineup holding the given player, or nil.
func (d *Detail) Player(playerID uuid.UUID) *Lineup {
	for i := range d.Sides {
		for j := range d.Sides[i].Lineups {
			if d.Sides[i].Lineups[j].PlayerID == playerID {
				return &d.Sides[i].Lineups[j]
			}
		}
	}
	return nil
}

// SizeString renders the side sizes as "2v2v1".
func (d *Detail) SizeString() string {
	parts := make([]string, len(d.Sides))
	for i := range d.Sides {
		parts[i] = fmt.Sprintf("%d", d.Sides[i].Size)
	}
	return strings.Join(parts, "v")
}
