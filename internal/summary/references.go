package summary

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spigell/talent-agent/internal/store"
)

const (
	topRatedLimit   = 5
	recentResponses = 5
	activityWindow  = 7 * 24 * time.Hour
)

// Dimensions holds per-dimension average ratings. Unrated entries are left out of each average.
type Dimensions struct {
	Overall         float64 `json:"overall"`
	Reliability     float64 `json:"reliability"`
	Teamwork        float64 `json:"teamwork"`
	Communication   float64 `json:"communication"`
	TechnicalSkills float64 `json:"technical_skills"`
	Leadership      float64 `json:"leadership"`
	ProblemSolving  float64 `json:"problem_solving"`
	WorkEthic       float64 `json:"work_ethic"`
}

// CandidateRating is the average overall rating a candidate received.
type CandidateRating struct {
	Name      string  `json:"name"`
	Average   float64 `json:"average"`
	Responses int     `json:"responses"`
}

// ReferenceStats aggregates reference responses.
type ReferenceStats struct {
	Total              int               `json:"total"`
	Candidates         int               `json:"candidates"`
	Rated              int               `json:"rated"`
	AverageOverall     float64           `json:"averageOverall"`
	Averages           Dimensions        `json:"averages"`
	RecommendationRate float64           `json:"recommendationRate"`
	Recommendation     map[string]int    `json:"recommendation"`
	Quality            map[string]int    `json:"quality"`
	Relationships      map[string]int    `json:"relationships"`
	TopRated           []CandidateRating `json:"topRated"`
	LastWeek           int               `json:"lastWeek"`
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v float64) {
	if v > 0 {
		m.sum += v
		m.n++
	}
}

func (m mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return round2(m.sum / float64(m.n))
}

func candidateKey(r store.ReferenceResponse) string {
	name := strings.TrimSpace(r.CandidateName)
	if name == "" {
		return "Unknown"
	}
	return name
}

// AnalyzeReferences computes totals, rating averages over rated entries only, recommendation
// and quality breakdowns, the five best rated candidates and the activity of the last week.
func AnalyzeReferences(responses []store.ReferenceResponse, now time.Time) ReferenceStats {
	stats := ReferenceStats{
		Total:          len(responses),
		Recommendation: map[string]int{},
		Quality:        map[string]int{},
		Relationships:  map[string]int{},
		TopRated:       []CandidateRating{},
	}

	var dims [8]mean
	perCandidate := make(map[string]*mean)
	responsesPer := make(map[string]int)
	order := make([]string, 0)

	for _, r := range responses {
		key := candidateKey(r)
		if _, ok := responsesPer[key]; !ok {
			order = append(order, key)
			perCandidate[key] = &mean{}
		}
		responsesPer[key]++

		if r.Rating.Overall > 0 {
			stats.Rated++
			perCandidate[key].add(r.Rating.Overall)
		}
		for i, v := range []float64{
			r.Rating.Overall, r.Rating.Reliability, r.Rating.Teamwork, r.Rating.Communication,
			r.Rating.TechnicalSkills, r.Rating.Leadership, r.Rating.ProblemSolving, r.Rating.WorkEthic,
		} {
			dims[i].add(v)
		}

		stats.Recommendation[orDefault(r.WillingToRecommend, store.RecommendUnknown)]++
		stats.Quality[orDefault(r.ResponseQuality, store.QualityUnknown)]++
		stats.Relationships[strings.ToLower(orDefault(r.Relationship, "unknown"))]++

		if when := r.When(); !when.IsZero() && now.Sub(when) <= activityWindow && !when.After(now) {
			stats.LastWeek++
		}
	}

	stats.Candidates = len(order)
	stats.Averages = Dimensions{
		Overall:         dims[0].value(),
		Reliability:     dims[1].value(),
		Teamwork:        dims[2].value(),
		Communication:   dims[3].value(),
		TechnicalSkills: dims[4].value(),
		Leadership:      dims[5].value(),
		ProblemSolving:  dims[6].value(),
		WorkEthic:       dims[7].value(),
	}
	stats.AverageOverall = stats.Averages.Overall
	if stats.Total > 0 {
		stats.RecommendationRate = round2(float64(stats.Recommendation[store.RecommendYes]) * 100 / float64(stats.Total))
	}

	for _, key := range order {
		m := perCandidate[key]
		if m.n == 0 {
			continue
		}
		stats.TopRated = append(stats.TopRated, CandidateRating{Name: key, Average: m.value(), Responses: responsesPer[key]})
	}
	sort.SliceStable(stats.TopRated, func(i, j int) bool { return stats.TopRated[i].Average > stats.TopRated[j].Average })
	if len(stats.TopRated) > topRatedLimit {
		stats.TopRated = stats.TopRated[:topRatedLimit]
	}
	return stats
}

// RenderReferences writes the detailed reference-response summary with the most recent entries.
func RenderReferences(responses []store.ReferenceResponse, lang string) string {
	if len(responses) == 0 {
		return tr(lang, "No hay respuestas de referencia.", "No reference responses.")
	}

	stats := AnalyzeReferences(responses, time.Now())

	var b strings.Builder
	b.WriteString(tr(lang, "📞 Resumen de Respuestas de Referencia Laboral\n\n", "📞 Reference Responses Summary\n\n"))
	b.WriteString(tr(lang, "📊 Estadísticas Generales:\n", "📊 General Statistics:\n"))
	fmt.Fprintf(&b, tr(lang, "• Total de respuestas: %d\n", "• Total responses: %d\n"), stats.Total)
	fmt.Fprintf(&b, tr(lang, "• Candidatos con referencias: %d\n", "• Candidates with references: %d\n"), stats.Candidates)
	if stats.Rated > 0 {
		fmt.Fprintf(&b, tr(lang, "• Calificación promedio: %.1f/10\n", "• Average rating: %.1f/10\n"), stats.AverageOverall)
	}
	fmt.Fprintf(&b, tr(lang, "• Dispuestos a recomendar: %d\n", "• Willing to recommend: %d\n"), stats.Recommendation[store.RecommendYes])
	fmt.Fprintf(&b, tr(lang, "• No dispuestos a recomendar: %d\n", "• Not willing to recommend: %d\n"), stats.Recommendation[store.RecommendNo])
	fmt.Fprintf(&b, tr(lang, "• Tal vez recomendarían: %d\n", "• Maybe would recommend: %d\n"), stats.Recommendation[store.RecommendMaybe])
	fmt.Fprintf(&b, tr(lang, "• Respuestas detalladas: %d\n", "• Detailed responses: %d\n"), stats.Quality[store.QualityDetailed])
	fmt.Fprintf(&b, tr(lang, "• Respuestas breves: %d\n", "• Brief responses: %d\n"), stats.Quality[store.QualityBrief])
	fmt.Fprintf(&b, tr(lang, "• Respuestas incompletas: %d\n", "• Incomplete responses: %d\n"), stats.Quality[store.QualityIncomplete])

	sorted := make([]store.ReferenceResponse, len(responses))
	copy(sorted, responses)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].When().After(sorted[j].When()) })
	if len(sorted) > recentResponses {
		sorted = sorted[:recentResponses]
	}

	b.WriteString(tr(lang, "\n📈 Respuestas Recientes:\n", "\n📈 Recent Responses:\n"))
	for i, r := range sorted {
		rating := "N/A"
		if r.Rating.Overall > 0 {
			rating = fmt.Sprintf("%g", r.Rating.Overall)
		}
		fmt.Fprintf(&b, "%d. %s - %s - Rating: %s/10 - Recommend: %s - Quality: %s\n",
			i+1,
			r.When().Format(timeLayout),
			orDefault(r.ReferenceName, "Unknown"),
			rating,
			orDefault(r.WillingToRecommend, store.RecommendUnknown),
			orDefault(r.ResponseQuality, store.QualityUnknown),
		)
	}
	return b.String()
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
