package game

import (
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
)

// The tribe catalogue, tagged with rough power tiers. A draw keeps the two
// teams balanced by handing both sides a tribe from the same tier.
var tribeCatalogue = []struct {
	Name string
	Tier int
}{
	{"Bardur", 1},
	{"Kickoo", 1},
	{"Luxidoor", 1},
	{"Imperius", 1},
	{"Elyrion", 2},
	{"Zebasi", 2},
	{"Hoodrick", 2},
	{"Aquarion", 2},
	{"Oumaji", 3},
	{"Quetzali", 3},
	{"Vengir", 3},
	{"Ai-mo", 3},
	{"Xin-xi", 3},
}

var drawSizeRe = regexp.MustCompile(`^(\d+)v(\d+)$`)

// ParseDrawSize parses an "NvN" size for a tribe draw. Sides must be equal
// and between 1 and 6.
func ParseDrawSize(size string) (int, error) {
	m := drawSizeRe.FindStringSubmatch(strings.ToLower(size))
	if m == nil {
		return 0, ErrInvalidDrawSize
	}
	home, _ := strconv.Atoi(m[1])
	away, _ := strconv.Atoi(m[2])
	if home != away || home < 1 || home > MaxSideSize {
		return 0, ErrInvalidDrawSize
	}
	return home, nil
}

// DrawTribes produces teamSize balanced tribe pairs. Each draw picks a tier
// uniformly among tiers with at least two remaining tribes, then two
// distinct tribes from it, one per team. Excluded tribes never enter the
// pool; an unknown exclusion is an error. The pool is rebuilt on every call.
func DrawTribes(teamSize int, exclusions []string) (home, away []string, err error) {
	pool := map[int][]string{}
	for _, t := range tribeCatalogue {
		if excluded(t.Name, exclusions) {
			continue
		}
		pool[t.Tier] = append(pool[t.Tier], t.Name)
	}

	for _, ex := range exclusions {
		if !knownTribe(ex) {
			return nil, nil, ErrUnknownTribe
		}
	}

	home = []string{}
	away = []string{}
	for range teamSize {
		var tiers []int
		for tier, tribes := range pool {
			if len(tribes) >= 2 {
				tiers = append(tiers, tier)
			}
		}
		if len(tiers) == 0 {
			return nil, nil, ErrInsufficientPool
		}

		tier := tiers[rand.IntN(len(tiers))]
		tribes := pool[tier]

		i := rand.IntN(len(tribes))
		j := rand.IntN(len(tribes) - 1)
		if j >= i {
			j++
		}
		home = append(home, tribes[i])
		away = append(away, tribes[j])

		remaining := make([]string, 0, len(tribes)-2)
		for k, name := range tribes {
			if k != i && k != j {
				remaining = append(remaining, name)
			}
		}
		pool[tier] = remaining
	}

	return home, away, nil
}

func excluded(name string, exclusions []string) bool {
	for _, ex := range exclusions {
		if strings.EqualFold(strings.TrimPrefix(ex, "-"), name) {
			return true
		}
	}
	return false
}

func knownTribe(name string) bool {
	name = strings.TrimPrefix(name, "-")
	for _, t := range tribeCatalogue {
		if strings.EqualFold(t.Name, name) {
			return true
		}
	}
	return false
}
