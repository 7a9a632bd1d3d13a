package intent

// Action is one entry of the fixed action vocabulary.
type Action string

const (
	ActionSendMessage                Action = "send_message"
	ActionSendReferenceMessage       Action = "send_reference_message"
	ActionSendDirectReferenceMessage Action = "send_direct_reference_message"
	ActionReceiveReferenceMessage    Action = "receive_reference_message"
	ActionProvideInfo                Action = "provide_info"
	ActionAnalyzeMessages            Action = "analyze_messages"
	ActionRetrieveMessages           Action = "retrieve_messages"
	ActionRetrieveMultipleMessages   Action = "retrieve_multiple_messages"
	ActionRetrieveReferenceResponses Action = "retrieve_reference_responses"
	ActionShowCandidates             Action = "show_candidates"
	ActionShowPositions              Action = "show_positions"
	ActionShowReferences             Action = "show_references"
	ActionGenerateQuestions          Action = "generate_questions"
	ActionCompareCandidates          Action = "compare_candidates"
	ActionAnalyzeResume              Action = "analyze_resume"
	ActionScheduleInterview          Action = "schedule_interview"
	ActionAnalyzeAIHistory           Action = "analyze_aihistory"
	ActionGeneralChat                Action = "general_chat"
)

// Vocabulary lists every action the resolver may produce.
var Vocabulary = []Action{
	ActionSendMessage,
	ActionSendReferenceMessage,
	ActionSendDirectReferenceMessage,
	ActionReceiveReferenceMessage,
	ActionProvideInfo,
	ActionAnalyzeMessages,
	ActionRetrieveMessages,
	ActionRetrieveMultipleMessages,
	ActionRetrieveReferenceResponses,
	ActionShowCandidates,
	ActionShowPositions,
	ActionShowReferences,
	ActionGenerateQuestions,
	ActionCompareCandidates,
	ActionAnalyzeResume,
	ActionScheduleInterview,
	ActionAnalyzeAIHistory,
	ActionGeneralChat,
}

// Valid reports whether a belongs to the vocabulary.
func (a Action) Valid() bool {
	for _, v := range Vocabulary {
		if v == a {
			return true
		}
	}
	return false
}

// NeedsDirectory reports whether handling a needs the candidate directory loaded.
func (a Action) NeedsDirectory() bool {
	switch a {
	case ActionRetrieveReferenceResponses, ActionAnalyzeAIHistory:
		return false
	default:
		return true
	}
}
