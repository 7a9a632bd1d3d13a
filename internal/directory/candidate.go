package directory

import (
	"sort"
	"strings"
)

// Status is the hiring pipeline stage of a candidate.
type Status string

const (
	StatusNew                Status = "new"
	StatusInReview           Status = "in_review"
	StatusInterviewScheduled Status = "interview_scheduled"
	StatusInterviewCompleted Status = "interview_completed"
	StatusHired              Status = "hired"
	StatusRejected           Status = "rejected"
)

const (
	UnknownName     = "Unknown Candidate"
	UnknownPosition = "Unknown Position"
)

// ParseStatus maps an upstream status to a known Status, defaulting to StatusNew.
func ParseStatus(s string) Status {
	switch st := Status(strings.TrimSpace(strings.ToLower(s))); st {
	case StatusNew, StatusInReview, StatusInterviewScheduled, StatusInterviewCompleted, StatusHired, StatusRejected:
		return st
	default:
		return StatusNew
	}
}

// Relationship of a reference to the candidate.
type Relationship string

const (
	RelationshipSupervisor Relationship = "supervisor"
	RelationshipColleague  Relationship = "colleague"
	RelationshipClient     Relationship = "client"
	RelationshipUnknown    Relationship = "unknown"
)

func ParseRelationship(s string) Relationship {
	switch r := Relationship(strings.TrimSpace(strings.ToLower(s))); r {
	case RelationshipSupervisor, RelationshipColleague, RelationshipClient:
		return r
	default:
		return RelationshipUnknown
	}
}

type Contact struct {
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

// Reference is a third party who can vouch for a candidate.
type Reference struct {
	Name         string       `json:"name"`
	Position     string       `json:"position,omitempty"`
	Company      string       `json:"company,omitempty"`
	Contact      Contact      `json:"contact"`
	Relationship Relationship `json:"relationship"`
}

// TestResult is one evaluation result attached to a candidate.
type TestResult struct {
	TestType string `json:"testType"`
	Score    string `json:"score"`
	Date     string `json:"date,omitempty"`
	Status   string `json:"status"`
}

// Candidate is the merged view of an applicant across upstream sources.
type Candidate struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Email             string       `json:"email,omitempty"`
	Phone             string       `json:"phone,omitempty"`
	Position          string       `json:"position"`
	Status            Status       `json:"status"`
	Experience        string       `json:"experience,omitempty"`
	Skills            []string     `json:"skills"`
	Languages         []string     `json:"languages"`
	Location          string       `json:"location,omitempty"`
	SalaryExpectation string       `json:"salary_expectation,omitempty"`
	Availability      string       `json:"availability,omitempty"`
	References        []Reference  `json:"references"`
	Source            string       `json:"source"`
	OfferID           string       `json:"offerId,omitempty"`
	Results           []TestResult `json:"results,omitempty"`
}

// HasKnownPosition reports whether the candidate is linked to a real position.
func (c Candidate) HasKnownPosition() bool {
	p := strings.TrimSpace(c.Position)
	return p != "" && p != UnknownPosition
}

// PositionCount is the number of candidates applying to one position.
type PositionCount struct {
	Position string
	Count    int
}

// Positions returns the distinct known positions in first-seen order.
func Positions(candidates []Candidate) []string {
	seen := make(map[string]struct{})
	positions := make([]string, 0)
	for _, c := range candidates {
		if !c.HasKnownPosition() {
			continue
		}
		if _, ok := seen[c.Position]; ok {
			continue
		}
		seen[c.Position] = struct{}{}
		positions = append(positions, c.Position)
	}
	return positions
}

// CountByPosition counts candidates per position, most populated first.
func CountByPosition(candidates []Candidate) []PositionCount {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, c := range candidates {
		p := strings.TrimSpace(c.Position)
		if p == "" {
			p = UnknownPosition
		}
		if _, ok := counts[p]; !ok {
			order = append(order, p)
		}
		counts[p]++
	}

	result := make([]PositionCount, 0, len(order))
	for _, p := range order {
		result = append(result, PositionCount{Position: p, Count: counts[p]})
	}
	sort.SliceStable(result, func(i, j int) bool { return result[i].Count > result[j].Count })
	return result
}

// Names returns candidate names in order.
func Names(candidates []Candidate) []string {
	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		names = append(names, c.Name)
	}
	return names
}

// FindByPhone returns the first candidate whose phone ends with the same last eight digits as
// phone, tolerating country prefixes on either side.
func FindByPhone(candidates []Candidate, phone string) (Candidate, bool) {
	want := lastDigits(phone, 8)
	if len(want) < 8 {
		return Candidate{}, false
	}
	for _, c := range candidates {
		if lastDigits(c.Phone, 8) == want {
			return c, true
		}
	}
	return Candidate{}, false
}

func lastDigits(s string, n int) string {
	digits := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			digits = append(digits, s[i])
		}
	}
	if len(digits) > n {
		digits = digits[len(digits)-n:]
	}
	return string(digits)
}
