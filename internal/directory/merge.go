package directory

import (
	"fmt"
	"strings"
)

// merge builds the unified candidate list: users first, then offer-linked users, then results.
// Order follows first appearance.
func merge(users []userRecord, offers []offerRecord, results []resultRecord) []Candidate {
	candidates := make([]Candidate, 0, len(users))
	index := make(map[string]int, len(users))

	add := func(c Candidate) {
		index[c.ID] = len(candidates)
		candidates = append(candidates, c)
	}

	for i, u := range users {
		c := fromUser(u, fmt.Sprintf("user_%d", i))
		c.Source = "users"
		add(c)
	}

	for i, offer := range offers {
		for j, u := range offer.Users {
			if pos, ok := index[u.ID]; ok && u.ID != "" {
				existing := &candidates[pos]
				if strings.TrimSpace(offer.Title) != "" {
					existing.Position = offer.Title
				}
				existing.Source = "offers"
				existing.OfferID = offer.ID
				continue
			}

			c := fromUser(u, fmt.Sprintf("offer_%d_%d", i, j))
			if strings.TrimSpace(offer.Title) != "" {
				c.Position = offer.Title
			}
			c.Source = "offers"
			c.OfferID = offer.ID
			add(c)
		}
	}

	for _, r := range results {
		pos, ok := index[r.candidateID()]
		if !ok || r.candidateID() == "" {
			continue
		}
		c := &candidates[pos]
		c.Results = append(c.Results, TestResult{
			TestType: orDefault(r.TestType, "Unknown"),
			Score:    orDefault(r.Score, "N/A"),
			Date:     orDefault(r.Date, r.CreatedAt),
			Status:   orDefault(r.Status, "completed"),
		})
		if c.Source == "" {
			c.Source = "results"
		} else if !strings.HasSuffix(c.Source, "+results") {
			c.Source += "+results"
		}
	}

	return candidates
}

func fromUser(u userRecord, fallbackID string) Candidate {
	languages := splitList(u.Languaje)
	if len(languages) == 0 {
		languages = []string{"English"}
	}

	phone := strings.TrimSpace(u.Phone)
	if phone == "" {
		phone = strings.TrimSpace(u.Tel)
	}

	refs := make([]Reference, 0, len(u.References))
	for _, r := range u.References {
		if strings.TrimSpace(r.Name) == "" {
			continue
		}
		refs = append(refs, Reference{
			Name:         strings.TrimSpace(r.Name),
			Position:     r.Position,
			Company:      r.Company,
			Contact:      Contact{Phone: strings.TrimSpace(r.Phone), Email: r.Email},
			Relationship: ParseRelationship(r.Relationship),
		})
	}

	return Candidate{
		ID:                orDefault(u.ID, fallbackID),
		Name:              orDefault(u.Name, UnknownName),
		Email:             strings.TrimSpace(u.Email),
		Phone:             phone,
		Position:          UnknownPosition,
		Status:            ParseStatus(u.Status),
		Experience:        orDefault(u.Experience, "Unknown"),
		Skills:            splitList(u.Talents),
		Languages:         languages,
		Location:          orDefault(u.Country, "Unknown"),
		SalaryExpectation: orDefault(u.Salary, "Not specified"),
		Availability:      orDefault(u.Availability, "Unknown"),
		References:        refs,
	}
}

func resultsRequest(users []userRecord, offers []offerRecord) ResultsRequest {
	req := ResultsRequest{
		Users: make([]ResultsUser, 0, len(users)),
		Offer: make([]ResultsOffer, 0, len(offers)),
	}
	for _, u := range users {
		req.Users = append(req.Users, ResultsUser{
			Name:       u.Name,
			Experience: u.Experience,
			Talents:    u.Talents,
			Languajes:  u.Languaje,
		})
	}
	for _, o := range offers {
		req.Offer = append(req.Offer, ResultsOffer{
			Title:       o.Title,
			Description: o.Description,
			Area:        o.Area,
			Experience:  o.Experience,
			Languajes:   o.Languajes,
		})
	}
	return req
}

func orDefault(s, fallback string) string {
	if s = strings.TrimSpace(s); s == "" {
		return fallback
	}
	return s
}
