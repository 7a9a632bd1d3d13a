package intent

import (
	"strings"

	"github.com/mitchellh/mapstructure"
)

const (
	LanguageES = "es"
	LanguageEN = "en"

	// AllCandidates is the literal selector meaning every candidate in scope.
	AllCandidates = "all"
)

// Source tells which resolver produced a record.
type Source string

const (
	SourceLLM   Source = "llm"
	SourceRules Source = "rules"
)

// Record is the structured reading of one user turn.
type Record struct {
	Action         Action         `json:"action"`
	Intent         string         `json:"intent"`
	Reasoning      string         `json:"reasoning"`
	Parameters     map[string]any `json:"parameters"`
	OriginalPrompt string         `json:"originalPrompt"`
	Language       string         `json:"language"`
	Source         Source         `json:"source"`
}

// Params is the typed view of Record.Parameters.
type Params struct {
	CandidateName      string   `mapstructure:"candidate_name"`
	CandidateNames     []string `mapstructure:"candidate_names"`
	JobPosition        string   `mapstructure:"job_position"`
	PhoneNumber        string   `mapstructure:"phone_number"`
	PhoneNumbers       []string `mapstructure:"phone_numbers"`
	Message            string   `mapstructure:"message"`
	Language           string   `mapstructure:"language"`
	ExcludeCandidates  []string `mapstructure:"exclude_candidates"`
	ExcludeReferences  []string `mapstructure:"exclude_references"`
	NumberOfCandidates int      `mapstructure:"number_of_candidates"`
	AllReferences      bool     `mapstructure:"all_references"`
	DirectPhone        bool     `mapstructure:"direct_phone"`
	ReferenceName      string   `mapstructure:"reference_name"`
	NeedsContext       bool     `mapstructure:"needs_context"`
	ResumeText         string   `mapstructure:"resume_text"`
}

// AllSelected reports whether candidate_name is the literal "all" selector.
func (p Params) AllSelected() bool {
	return strings.EqualFold(strings.TrimSpace(p.CandidateName), AllCandidates)
}

// Params decodes the open parameter map. Loosely typed values are accepted: "3" for a number, a
// single string for a list. Undecodable keys are left at their zero value.
func (r Record) Params() Params {
	var p Params
	if len(r.Parameters) == 0 {
		return p
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &p,
	})
	if err != nil {
		return p
	}
	if err := decoder.Decode(r.Parameters); err != nil {
		// retry key by key so one malformed value does not discard the rest
		p = Params{}
		for k, v := range r.Parameters {
			single, _ := mapstructure.NewDecoder(&mapstructure.DecoderConfig{WeaklyTypedInput: true, Result: &p})
			_ = single.Decode(map[string]any{k: v})
		}
	}

	p.CandidateName = strings.TrimSpace(p.CandidateName)
	p.CandidateNames = compact(p.CandidateNames)
	p.PhoneNumbers = compact(p.PhoneNumbers)
	p.ExcludeCandidates = compact(p.ExcludeCandidates)
	p.ExcludeReferences = compact(p.ExcludeReferences)
	p.JobPosition = strings.TrimSpace(p.JobPosition)
	p.PhoneNumber = strings.TrimSpace(p.PhoneNumber)
	p.ReferenceName = strings.TrimSpace(p.ReferenceName)
	return p
}

// Param returns a raw parameter.
func (r Record) Param(key string) (any, bool) {
	v, ok := r.Parameters[key]
	return v, ok
}

// WithParam returns a copy of r with key set.
func (r Record) WithParam(key string, value any) Record {
	params := make(map[string]any, len(r.Parameters)+1)
	for k, v := range r.Parameters {
		params[k] = v
	}
	params[key] = value
	r.Parameters = params
	return r
}

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
