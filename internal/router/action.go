package router

import (
	"errors"
	"fmt"

	"github.com/spigell/talent-agent/internal/intent"
)

// ErrUnknownAction is returned by Parse for names outside the vocabulary.
var ErrUnknownAction = errors.New("unknown action")

// Action is one routable request. The set of variants is closed: only this package can add one.
type Action interface {
	Name() intent.Action
	action()
}

type (
	SendMessage                struct{ intent.Params }
	SendReferenceMessage       struct{ intent.Params }
	SendDirectReferenceMessage struct{ intent.Params }
	ReceiveReferenceMessage    struct{ intent.Params }
	ProvideInfo                struct{ intent.Params }
	AnalyzeMessages            struct{ intent.Params }
	RetrieveReferenceResponses struct{ intent.Params }
	ShowCandidates             struct{ intent.Params }
	ShowPositions              struct{ intent.Params }
	ShowReferences             struct{ intent.Params }
	GenerateQuestions          struct{ intent.Params }
	CompareCandidates          struct{ intent.Params }
	AnalyzeResume              struct{ intent.Params }
	ScheduleInterview          struct{ intent.Params }
	AnalyzeAIHistory           struct{ intent.Params }
	GeneralChat                struct{ intent.Params }

	// RetrieveMessages covers both the single and the several numbers forms.
	RetrieveMessages struct {
		intent.Params
		Multiple bool
	}
)

func (SendMessage) Name() intent.Action          { return intent.ActionSendMessage }
func (SendReferenceMessage) Name() intent.Action { return intent.ActionSendReferenceMessage }
func (SendDirectReferenceMessage) Name() intent.Action {
	return intent.ActionSendDirectReferenceMessage
}
func (ReceiveReferenceMessage) Name() intent.Action { return intent.ActionReceiveReferenceMessage }
func (ProvideInfo) Name() intent.Action             { return intent.ActionProvideInfo }
func (AnalyzeMessages) Name() intent.Action         { return intent.ActionAnalyzeMessages }
func (RetrieveMessages) Name() intent.Action        { return intent.ActionRetrieveMessages }
func (RetrieveReferenceResponses) Name() intent.Action {
	return intent.ActionRetrieveReferenceResponses
}
func (ShowCandidates) Name() intent.Action    { return intent.ActionShowCandidates }
func (ShowPositions) Name() intent.Action     { return intent.ActionShowPositions }
func (ShowReferences) Name() intent.Action    { return intent.ActionShowReferences }
func (GenerateQuestions) Name() intent.Action { return intent.ActionGenerateQuestions }
func (CompareCandidates) Name() intent.Action { return intent.ActionCompareCandidates }
func (AnalyzeResume) Name() intent.Action     { return intent.ActionAnalyzeResume }
func (ScheduleInterview) Name() intent.Action { return intent.ActionScheduleInterview }
func (AnalyzeAIHistory) Name() intent.Action  { return intent.ActionAnalyzeAIHistory }
func (GeneralChat) Name() intent.Action       { return intent.ActionGeneralChat }

func (SendMessage) action()                {}
func (SendReferenceMessage) action()       {}
func (SendDirectReferenceMessage) action() {}
func (ReceiveReferenceMessage) action()    {}
func (ProvideInfo) action()                {}
func (AnalyzeMessages) action()            {}
func (RetrieveMessages) action()           {}
func (RetrieveReferenceResponses) action() {}
func (ShowCandidates) action()             {}
func (ShowPositions) action()              {}
func (ShowReferences) action()             {}
func (GenerateQuestions) action()          {}
func (CompareCandidates) action()          {}
func (AnalyzeResume) action()              {}
func (ScheduleInterview) action()          {}
func (AnalyzeAIHistory) action()           {}
func (GeneralChat) action()                {}

// Phones returns every number named by the request, single form first.
func (a RetrieveMessages) Phones() []string {
	out := make([]string, 0, 1+len(a.PhoneNumbers))
	seen := make(map[string]struct{})
	for _, p := range append([]string{a.PhoneNumber}, a.PhoneNumbers...) {
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Parse maps a record to its action variant. It is the only place where action names are
// interpreted.
func Parse(rec intent.Record) (Action, error) {
	p := rec.Params()

	switch rec.Action {
	case intent.ActionSendMessage:
		return SendMessage{p}, nil
	case intent.ActionSendReferenceMessage:
		return SendReferenceMessage{p}, nil
	case intent.ActionSendDirectReferenceMessage:
		return SendDirectReferenceMessage{p}, nil
	case intent.ActionReceiveReferenceMessage:
		return ReceiveReferenceMessage{p}, nil
	case intent.ActionProvideInfo:
		return ProvideInfo{p}, nil
	case intent.ActionAnalyzeMessages:
		return AnalyzeMessages{p}, nil
	case intent.ActionRetrieveMessages:
		return RetrieveMessages{Params: p, Multiple: len(p.PhoneNumbers) > 1}, nil
	case intent.ActionRetrieveMultipleMessages:
		return RetrieveMessages{Params: p, Multiple: true}, nil
	case intent.ActionRetrieveReferenceResponses:
		return RetrieveReferenceResponses{p}, nil
	case intent.ActionShowCandidates:
		return ShowCandidates{p}, nil
	case intent.ActionShowPositions:
		return ShowPositions{p}, nil
	case intent.ActionShowReferences:
		return ShowReferences{p}, nil
	case intent.ActionGenerateQuestions:
		return GenerateQuestions{p}, nil
	case intent.ActionCompareCandidates:
		return CompareCandidates{p}, nil
	case intent.ActionAnalyzeResume:
		return AnalyzeResume{p}, nil
	case intent.ActionScheduleInterview:
		return ScheduleInterview{p}, nil
	case intent.ActionAnalyzeAIHistory:
		return AnalyzeAIHistory{p}, nil
	case intent.ActionGeneralChat:
		return GeneralChat{p}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, rec.Action)
	}
}

// ParseOrChat is Parse with unknown actions degraded to GeneralChat.
func ParseOrChat(rec intent.Record) Action {
	a, err := Parse(rec)
	if err != nil {
		return GeneralChat{rec.Params()}
	}
	return a
}
