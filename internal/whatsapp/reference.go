package whatsapp

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/spigell/talent-agent/internal/store"
)

var (
	referenceKeywords = []string{
		"referencia", "reference", "candidato", "candidate", "trabajo", "work", "empleo", "job",
		"recomendación", "recommendation", "evaluación", "evaluation", "desempeño", "performance",
		"supervisor", "colaborador", "colleague", "cliente", "client", "proyecto", "project",
		"empresa", "company", "puesto", "position", "responsabilidades", "responsibilities",
		"habilidades", "skills", "fortalezas", "strengths", "áreas de mejora",
		"areas for improvement", "recomendaría", "would recommend", "calificación", "rating",
		"puntuación", "score",
	}

	ratingOutOfTenRe  = regexp.MustCompile(`\b(\d{1,2})\s*(?:/|de)\s*10\b`)
	ratingOutOfFiveRe = regexp.MustCompile(`\b(\d)\s*(?:/|de)\s*5\b`)
	yesRe             = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(sí|si|yes)(?:[^\p{L}]|$)`)
	noRe              = regexp.MustCompile(`(?i)(?:^|[^\p{L}])no(?:[^\p{L}]|$)`)
	maybeRe           = regexp.MustCompile(`(?i)tal vez|quizás|quizas|maybe`)

	durationRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+)\s*(años|año|years|year)`),
		regexp.MustCompile(`(?i)(\d+)\s*(meses|mes|months|month)`),
		regexp.MustCompile(`(?i)(\d+)\s*(semanas|semana|weeks|week)`),
	}
)

// IsReferenceResponse reports whether text reads like an answer to the reference request:
// reference vocabulary, a rating or a plain yes/no.
func IsReferenceResponse(text string) bool {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return false
	}
	for _, k := range referenceKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	if ratingOutOfTenRe.MatchString(lower) || ratingOutOfFiveRe.MatchString(lower) {
		return true
	}
	return yesRe.MatchString(lower) || noRe.MatchString(lower)
}

// ParseReferenceResponse extracts the overall rating, willingness to recommend, relationship,
// duration and answer quality from free text. Ratings out of 5 are scaled to 10.
func ParseReferenceResponse(text string) store.ReferenceResponse {
	lower := strings.ToLower(text)
	r := store.ReferenceResponse{
		RawText:            text,
		Relationship:       "unknown",
		Duration:           "Unknown",
		WillingToRecommend: store.RecommendUnknown,
		Status:             store.StatusPendingReview,
	}

	if m := ratingOutOfTenRe.FindStringSubmatch(lower); len(m) == 2 {
		if v, err := strconv.Atoi(m[1]); err == nil && v > 0 && v <= 10 {
			r.Rating.Overall = float64(v)
		}
	} else if m := ratingOutOfFiveRe.FindStringSubmatch(lower); len(m) == 2 {
		if v, err := strconv.Atoi(m[1]); err == nil && v > 0 && v <= 5 {
			r.Rating.Overall = float64(v * 2)
		}
	}

	switch {
	case maybeRe.MatchString(lower):
		r.WillingToRecommend = store.RecommendMaybe
	case yesRe.MatchString(lower):
		r.WillingToRecommend = store.RecommendYes
	case noRe.MatchString(lower):
		r.WillingToRecommend = store.RecommendNo
	}

	switch {
	case containsAny(lower, "supervisor", "jefe", "manager"):
		r.Relationship = "supervisor"
	case containsAny(lower, "colaborador", "colleague", "compañero"):
		r.Relationship = "colleague"
	case containsAny(lower, "cliente", "client"):
		r.Relationship = "client"
	}

	for _, re := range durationRes {
		if m := re.FindStringSubmatch(lower); len(m) == 3 {
			r.Duration = m[1] + " " + m[2]
			break
		}
	}

	switch n := len([]rune(text)); {
	case n > 200:
		r.ResponseQuality = store.QualityDetailed
	case n > 50:
		r.ResponseQuality = store.QualityBrief
	default:
		r.ResponseQuality = store.QualityIncomplete
	}
	return r
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
