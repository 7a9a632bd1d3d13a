package store

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	referenceResponsesFile = "reference-responses.json"
	referenceHistoryFile   = "reference-history.json"
)

// ReferenceLog keeps structured reference responses in two files: the working log and the
// history. Reads merge both.
type ReferenceLog struct {
	mu        sync.Mutex
	responses string
	history   string
	now       func() time.Time
}

func NewReferenceLog(dir string) *ReferenceLog {
	return &ReferenceLog{
		responses: filepath.Join(dir, referenceResponsesFile),
		history:   filepath.Join(dir, referenceHistoryFile),
		now:       time.Now,
	}
}

// Save fills defaults and appends r to both files.
func (l *ReferenceLog) Save(r ReferenceResponse) (ReferenceResponse, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now().UTC()
	if r.ID == "" {
		r.ID = "ref_" + uuid.NewString()
	}
	if r.Timestamp.IsZero() {
		r.Timestamp = now
	}
	r.SavedAt = now
	r.ReferenceName = orUnknown(r.ReferenceName, "Unknown")
	r.CandidateName = orUnknown(r.CandidateName, "Unknown")
	r.Relationship = orUnknown(r.Relationship, "unknown")
	r.Duration = orUnknown(r.Duration, "Unknown")
	r.WillingToRecommend = orUnknown(r.WillingToRecommend, RecommendUnknown)
	r.ResponseQuality = orUnknown(r.ResponseQuality, QualityUnknown)
	r.Status = orUnknown(r.Status, StatusPendingReview)

	for _, path := range []string{l.responses, l.history} {
		var existing []ReferenceResponse
		if err := readJSON(path, &existing); err != nil {
			return ReferenceResponse{}, err
		}
		existing = append(existing, r)
		if err := writeJSON(path, existing); err != nil {
			return ReferenceResponse{}, err
		}
	}
	return r, nil
}

// All merges both files, drops entries duplicated by id and timestamp and returns the newest
// first.
func (l *ReferenceLog) All() ([]ReferenceResponse, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var merged []ReferenceResponse
	for _, path := range []string{l.responses, l.history} {
		var items []ReferenceResponse
		if err := readJSON(path, &items); err != nil {
			return nil, err
		}
		merged = append(merged, items...)
	}

	type key struct {
		id string
		ts int64
	}
	seen := make(map[key]struct{}, len(merged))
	out := make([]ReferenceResponse, 0, len(merged))
	for _, r := range merged {
		k := key{id: r.ID, ts: r.Timestamp.UnixNano()}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].When().After(out[j].When()) })
	return out, nil
}

// ByCandidate returns the responses about the named candidate or their phone.
func (l *ReferenceLog) ByCandidate(name, phone string) ([]ReferenceResponse, error) {
	all, err := l.All()
	if err != nil {
		return nil, err
	}

	lname := strings.ToLower(strings.TrimSpace(name))
	dphone := digits(phone)
	out := make([]ReferenceResponse, 0)
	for _, r := range all {
		rname := strings.ToLower(strings.TrimSpace(r.CandidateName))
		switch {
		case dphone != "" && digits(r.CandidatePhone) == dphone:
			out = append(out, r)
		case lname != "" && rname != "" && rname != "unknown" &&
			(strings.Contains(rname, lname) || strings.Contains(lname, rname)):
			out = append(out, r)
		}
	}
	return out, nil
}

func orUnknown(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
