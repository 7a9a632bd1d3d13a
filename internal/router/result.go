package router

import (
	"github.com/spigell/talent-agent/internal/directory"
	"github.com/spigell/talent-agent/internal/dispatch"
	"github.com/spigell/talent-agent/internal/intent"
	"github.com/spigell/talent-agent/internal/memory"
	"github.com/spigell/talent-agent/internal/store"
)

// Kind classifies the way a turn failed to do what was asked.
type Kind string

const (
	KindCandidateNotFound  Kind = "candidate_not_found"
	KindAmbiguousCandidate Kind = "ambiguous_candidate"
	KindMissingPhone       Kind = "missing_phone"
	KindSafetyBlocked      Kind = "safety_blocked"
	KindNoData             Kind = "no_data"
	KindUpstreamLLM        Kind = "upstream_llm_error"
	KindInvalidRequest     Kind = "invalid_request"
)

// BatchKind tells how a dispatch batch should be explained.
type BatchKind string

const (
	BatchSingle    BatchKind = "single"
	BatchBulk      BatchKind = "bulk"
	BatchReference BatchKind = "reference"
)

// Turn is everything a handler may read.
type Turn struct {
	Record     intent.Record
	Context    memory.Context
	Candidates []directory.Candidate
	History    []store.ChatTurn
	Language   string
}

func (t Turn) lang() string {
	if t.Language != "" {
		return t.Language
	}
	if t.Record.Language != "" {
		return t.Record.Language
	}
	return intent.LanguageES
}

func (t Turn) prompt() string {
	if t.Record.OriginalPrompt != "" {
		return t.Record.OriginalPrompt
	}
	return t.Record.Intent
}

// Result is the uniform outcome of a routed action. Clarifications and apologies are successful
// results carrying a Kind; only safety refusals and invalid requests are unsuccessful.
type Result struct {
	Action         intent.Action         `json:"action"`
	Success        bool                  `json:"success"`
	Kind           Kind                  `json:"kind,omitempty"`
	Message        string                `json:"message,omitempty"`
	Explanation    string                `json:"explanation,omitempty"`
	Data           any                   `json:"data,omitempty"`
	Candidates     []directory.Candidate `json:"candidates,omitempty"`
	Total          int                   `json:"total,omitempty"`
	JobPosition    string                `json:"jobPosition,omitempty"`
	Unfiltered     bool                  `json:"unfiltered,omitempty"`
	NeedsAnalysis  bool                  `json:"needsAnalysis,omitempty"`
	AnalysisPrompt string                `json:"-"`
	Batch          []dispatch.Item       `json:"batch,omitempty"`
	BatchKind      BatchKind             `json:"batchKind,omitempty"`
}

// Fail is an unsuccessful result.
func Fail(kind Kind, message string) Result {
	return Result{Kind: kind, Message: message}
}

// Clarify is a successful result asking the user for more input.
func Clarify(kind Kind, message string) Result {
	return Result{Success: true, Kind: kind, Message: message}
}

// MessagesData is the payload of a message retrieval for one number.
type MessagesData struct {
	Phone     string          `json:"phone"`
	Candidate string          `json:"candidate,omitempty"`
	Count     int             `json:"count"`
	Messages  []store.Message `json:"messages"`
	Summary   string          `json:"summary"`
}

// ReferencesData is the payload of reference listings and reference response retrievals.
type ReferencesData struct {
	Candidate  string                    `json:"candidate,omitempty"`
	References []directory.Reference     `json:"references,omitempty"`
	Responses  []store.ReferenceResponse `json:"responses,omitempty"`
	Count      int                       `json:"count"`
	Stats      any                       `json:"stats,omitempty"`
}
