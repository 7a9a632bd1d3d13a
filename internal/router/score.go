package router

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/spigell/talent-agent/internal/directory"
	"github.com/spigell/talent-agent/internal/filtering"
)

var experienceNumberRe = regexp.MustCompile(`\d+`)

// DefaultScore rates a candidate on the fields the directory carries: experience, skills,
// languages, location, availability and a known position. The maximum is 100.
func DefaultScore(c directory.Candidate, position string) float64 {
	var score float64

	exp := strings.ToLower(c.Experience)
	if n, ok := leadingNumber(exp); ok {
		switch {
		case strings.Contains(exp, "año") || strings.Contains(exp, "year"):
			score += math.Min(n*2, 30)
		case strings.Contains(exp, "mes") || strings.Contains(exp, "month"):
			score += math.Min(n/2, 10)
		}
	}

	score += math.Min(float64(len(c.Skills))*3, 25)

	switch {
	case hasEnglish(c.Languages):
		score += 15
	case len(c.Languages) > 0:
		score += 5
	}

	switch loc := strings.ToLower(c.Location); {
	case strings.Contains(loc, "panamá") || strings.Contains(loc, "panama"):
		score += 10
	case loc != "":
		score += 5
	}

	switch av := strings.ToLower(c.Availability); {
	case strings.Contains(av, "presencial") || strings.Contains(av, "on-site"):
		score += 10
	case av != "":
		score += 5
	}

	if c.HasKnownPosition() && (position == "" || filtering.PositionMatches(c.Position, position)) {
		score += 10
	}
	return score
}

func leadingNumber(s string) (float64, bool) {
	m := experienceNumberRe.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return float64(n), true
}

func hasEnglish(languages []string) bool {
	for _, l := range languages {
		l = strings.ToLower(l)
		if strings.Contains(l, "inglés") || strings.Contains(l, "ingles") || strings.Contains(l, "english") {
			return true
		}
	}
	return false
}
