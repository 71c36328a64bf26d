package game

import (
	"regexp"
	"strconv"
	"strings"
)

const (
	MaxSideSize     = 6
	MaxGameSize     = 12
	MaxNoteLength   = 100
	DefaultDuration = 24
	MaxDuration     = 96
)

var (
	sizeTokenRe     = regexp.MustCompile(`^\d+(?:(v|vs)\d+)+$`)
	durationTokenRe = regexp.MustCompile(`^(\d+)h$`)
)

// OpenRequest is the parsed form of the free-form arguments to opening a
// game: "2v2 48h large map" -> sizes [2 2], 48 hours, note "large map".
type OpenRequest struct {
	Sizes         []int
	DurationHours int
	Notes         string
}

// ParseOpenArgs splits args on spaces and classifies each token as a size
// such as "2v2", a duration such as "48h", or note text. A size token is
// required; when several appear the last one wins, same for durations.
func ParseOpenArgs(args string) (OpenRequest, error) {
	req := OpenRequest{DurationHours: DefaultDuration}
	var noteTokens []string

	for _, tok := range strings.Fields(args) {
		lower := strings.ToLower(tok)

		if m := sizeTokenRe.FindStringSubmatch(lower); m != nil {
			sizes, err := parseSizes(lower, m[1])
			if err != nil {
				return OpenRequest{}, err
			}
			req.Sizes = sizes
			continue
		}

		if m := durationTokenRe.FindStringSubmatch(lower); m != nil {
			hours, err := strconv.Atoi(m[1])
			if err != nil || hours < 1 || hours > MaxDuration {
				return OpenRequest{}, ErrInvalidDuration
			}
			req.DurationHours = hours
			continue
		}

		noteTokens = append(noteTokens, tok)
	}

	if req.Sizes == nil {
		return OpenRequest{}, ErrInvalidSizeFormat
	}

	req.Notes = Truncate(strings.Join(noteTokens, " "), MaxNoteLength)
	return req, nil
}

// parseSizes splits "2v2v1" (or "2vs2") on whichever separator the token
// regexp matched.
func parseSizes(token, sep string) ([]int, error) {
	parts := strings.Split(token, sep)
	sizes := make([]int, 0, len(parts))
	total := 0
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, ErrInvalidSizeFormat
		}
		if n < 1 {
			return nil, ErrInvalidSizeFormat
		}
		if n > MaxSideSize {
			return nil, ErrSideTooLarge
		}
		sizes = append(sizes, n)
		total += n
	}
	if total > MaxGameSize {
		return nil, ErrTotalTooLarge
	}
	if len(sizes) < 2 {
		return nil, ErrInvalidSizeFormat
	}
	return sizes, nil
}

// Truncate cuts s to at most n characters, never splitting a rune.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
