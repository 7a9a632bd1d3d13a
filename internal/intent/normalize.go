package intent

import "strings"

// Normalize applies the post-resolution rewrite rules and fills the language. A reference
// message aimed at an explicit phone number becomes a direct reference message whose reference
// name is the candidate the reference is about.
func Normalize(r Record) Record {
	if r.Action == ActionSendReferenceMessage {
		if phone, ok := r.Parameters["phone_number"].(string); ok && strings.TrimSpace(phone) != "" {
			r.Action = ActionSendDirectReferenceMessage
			if name, ok := r.Parameters["candidate_name"].(string); ok && strings.TrimSpace(name) != "" {
				r = r.WithParam("reference_name", name)
			}
		}
	}

	if r.Action == ActionRetrieveMultipleMessages {
		r.Action = ActionRetrieveMessages
	}

	lang := strings.ToLower(strings.TrimSpace(r.Language))
	if lang == "" {
		if v, ok := r.Parameters["language"].(string); ok {
			lang = strings.ToLower(strings.TrimSpace(v))
		}
	}
	if lang != LanguageEN {
		lang = LanguageES
	}
	r.Language = lang
	if r.Parameters == nil || r.Parameters["language"] != lang {
		r = r.WithParam("language", lang)
	}
	return r
}
