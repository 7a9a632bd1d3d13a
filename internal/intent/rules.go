package intent

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/spigell/talent-agent/internal/directory"
	"github.com/spigell/talent-agent/internal/memory"
)

// Hints is what a resolver may look at besides the text.
type Hints struct {
	Context    memory.Context
	Candidates []directory.Candidate
}

// Resolver turns free text into an intent record.
type Resolver interface {
	Resolve(ctx context.Context, text string, hints Hints) (Record, error)
}

const fullStackPosition = "Programador Full Stack"

var (
	referenceResponsesRe = []*regexp.Regexp{
		regexp.MustCompile(`(?i)recuperar\s+respuestas\s+(?:de\s+)?referencia`),
		regexp.MustCompile(`(?i)ver\s+respuestas\s+(?:de\s+)?referencia`),
		regexp.MustCompile(`(?i)respuestas\s+a\s+referencias`),
		regexp.MustCompile(`(?i)(?:retrieve|get|show)\s+reference\s+responses`),
	}

	phonePart = `(\+?\d[\d \-]{6,18}\d)`

	retrieveWithPhoneRe = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:recuperar|ver|mostrar)\s+(?:los\s+)?mensajes\s+(?:de|con)\s+` + phonePart),
		regexp.MustCompile(`(?i)ver\s+(?:la\s+)?conversaci[oó]n\s+con\s+` + phonePart),
		regexp.MustCompile(`(?i)(?:puedes\s+)?recibir\s+(?:los\s+)?mensajes\s+de\s+` + phonePart),
		regexp.MustCompile(`(?i)(?:retrieve|get|show)\s+(?:the\s+)?messages\s+from\s+` + phonePart),
		regexp.MustCompile(`(?i)get\s+(?:the\s+)?conversation\s+with\s+` + phonePart),
		regexp.MustCompile(`(?i)can\s+you\s+get\s+(?:the\s+)?messages\s+from\s+` + phonePart),
	}

	messagePhraseRe = regexp.MustCompile(`(?i)recibir\s+los?\s+mensajes|puedes\s+recibir|(?:ver|mostrar|recuperar)\s+(?:los\s+)?mensajes|(?:get|retrieve|show)\s+(?:the\s+)?messages|can\s+you\s+get`)

	messageRetrievalRe = regexp.MustCompile(`(?i)(?:show|get|retrieve|see|view)\s+(?:the\s+)?(?:messages|conversation|chat)` +
		`|(?:mostrar|ver|recuperar|obtener)\s+(?:los\s+|la\s+|el\s+)?(?:mensajes|conversaci[oó]n|chat)` +
		`|mensajes\s+(?:de|con)|messages\s+(?:from|with)` +
		`|(?:these|those|the)\s+\d+\s+candidates|(?:estos|esos|los|las)\s+\d+\s+candidat[oa]s`)

	candidateQuestionRe = regexp.MustCompile(`(?i)what\s+did\s+(?:this|the|these)\s+candidates?\s+(?:say|answer|reply|respond)` +
		`|qu[eé]\s+(?:dijo|respondi[oó]|contest[oó])\s+(?:este|esta|el|la|estos)\s+candidat[oa]s?` +
		`|qu[eé]\s+(?:ha|han)\s+dicho`)

	sayingRe = []*regexp.Regexp{
		regexp.MustCompile(`(?i)diciendo\s+"([^"]+)"`),
		regexp.MustCompile(`(?i)saying\s+"([^"]+)"`),
		regexp.MustCompile(`(?i)diciendo\s+(.+?)(?:\s+al?\s|$)`),
		regexp.MustCompile(`(?i)saying\s+(.+?)(?:\s+to\s|$)`),
	}

	positionKeywordRe = regexp.MustCompile(`(?i)program+ador|full\s*-?stack`)
	firstNumberRe     = regexp.MustCompile(`\b(\d{1,2})\b`)
)

// Rules is the deterministic resolver. The first matching rule wins; general_chat is the default.
type Rules struct {
	CountryCode string
}

var _ Resolver = Rules{}

func (r Rules) Resolve(_ context.Context, text string, hints Hints) (Record, error) {
	return Normalize(r.resolve(text, hints)), nil
}

func (r Rules) resolve(text string, hints Hints) Record {
	lower := strings.ToLower(text)
	rec := func(action Action, intent, reasoning string, params map[string]any) Record {
		if params == nil {
			params = map[string]any{}
		}
		lang := DetectLanguage(text)
		params["language"] = lang
		return Record{
			Action:         action,
			Intent:         intent,
			Reasoning:      reasoning,
			Parameters:     params,
			OriginalPrompt: text,
			Language:       lang,
			Source:         SourceRules,
		}
	}

	for _, re := range referenceResponsesRe {
		if re.MatchString(text) {
			return rec(ActionRetrieveReferenceResponses, "retrieve_reference_responses",
				"keyword detection: reference responses request", nil)
		}
	}

	for _, re := range retrieveWithPhoneRe {
		if m := re.FindStringSubmatch(text); len(m) == 2 {
			return rec(ActionRetrieveMessages, "retrieve_messages",
				"pattern detection: retrieve messages for a phone number",
				map[string]any{"phone_number": compactPhone(m[1])})
		}
	}

	phones := FindPhones(text)

	if messagePhraseRe.MatchString(text) {
		for _, p := range phones {
			if PlausiblePhone(p, r.CountryCode) {
				return rec(ActionRetrieveMessages, "retrieve_messages",
					"pattern detection: message phrase with phone number",
					map[string]any{"phone_number": p})
			}
		}
	}

	question := candidateQuestionRe.MatchString(text)
	if len(phones) > 0 && (messageRetrievalRe.MatchString(text) || question) {
		if len(phones) == 1 {
			return rec(ActionRetrieveMessages, "retrieve_messages",
				"pattern detection: conversation request for one number",
				map[string]any{"phone_number": phones[0]})
		}
		list := make([]any, 0, len(phones))
		for _, p := range phones {
			list = append(list, p)
		}
		return rec(ActionRetrieveMessages, "retrieve_multiple_messages",
			"pattern detection: conversation request for several numbers",
			map[string]any{"phone_numbers": list})
	}

	if question {
		return rec(ActionRetrieveMessages, "retrieve_messages",
			"pattern detection: candidate question without a number",
			map[string]any{"needs_context": true})
	}

	if len(phones) > 0 {
		return rec(ActionSendMessage, "send_direct_message",
			"pattern detection: phone number in request",
			map[string]any{"phone_number": phones[0], "message": extractSaying(text)})
	}

	name := candidateInText(lower, hints.Candidates)

	if positionKeywordRe.MatchString(text) {
		params := map[string]any{"candidate_name": AllCandidates, "job_position": fullStackPosition}
		if n := firstNumber(text); n > 0 {
			params["number_of_candidates"] = n
		}
		return rec(ActionShowCandidates, "show_candidates_by_position",
			"keyword detection: developer position", params)
	}

	if strings.Contains(lower, "reference") || strings.Contains(lower, "referencia") {
		params := map[string]any{}
		if name != "" {
			params["candidate_name"] = name
		}
		if isSend(lower) {
			return rec(ActionSendReferenceMessage, "send_reference_message",
				"keyword detection: send to references", params)
		}
		return rec(ActionShowReferences, "show_references",
			"keyword detection: reference request", params)
	}

	if isSend(lower) && (strings.Contains(lower, "message") || strings.Contains(lower, "mensaje")) {
		params := map[string]any{}
		if name != "" {
			params["candidate_name"] = name
		}
		if msg := extractSaying(text); msg != "Hola" {
			params["message"] = msg
		}
		return rec(ActionSendMessage, "send_message", "keyword detection: send + message", params)
	}

	if strings.Contains(lower, "candidate") || strings.Contains(lower, "candidato") {
		params := map[string]any{"candidate_name": AllCandidates}
		if name != "" {
			params["candidate_name"] = name
		}
		if n := firstNumber(text); n > 0 {
			params["number_of_candidates"] = n
		}
		return rec(ActionShowCandidates, "show_candidates", "keyword detection: candidate request", params)
	}

	if strings.Contains(lower, "question") || strings.Contains(lower, "pregunta") {
		params := map[string]any{}
		if name != "" {
			params["candidate_name"] = name
		}
		return rec(ActionGenerateQuestions, "generate_questions", "keyword detection: question generation", params)
	}

	return rec(ActionGeneralChat, "general_chat", "no specific intent detected", nil)
}

func isSend(lower string) bool {
	for _, verb := range []string{"send", "enviar", "envía", "envia", "manda", "mandar"} {
		if strings.Contains(lower, verb) {
			return true
		}
	}
	return false
}

func extractSaying(text string) string {
	for _, re := range sayingRe {
		if m := re.FindStringSubmatch(text); len(m) == 2 {
			if msg := strings.TrimSpace(m[1]); msg != "" {
				return msg
			}
		}
	}
	return "Hola"
}

func candidateInText(lower string, candidates []directory.Candidate) string {
	for _, c := range candidates {
		name := strings.ToLower(strings.TrimSpace(c.Name))
		if name == "" || c.Name == directory.UnknownName {
			continue
		}
		if strings.Contains(lower, name) {
			return c.Name
		}
	}
	return ""
}

func firstNumber(text string) int {
	m := firstNumberRe.FindStringSubmatch(text)
	if len(m) != 2 {
		return 0
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}
	return n
}

func compactPhone(s string) string {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	return strings.ReplaceAll(s, "-", "")
}
