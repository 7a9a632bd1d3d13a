package router

import (
	"fmt"
	"strings"

	"github.com/spigell/talent-agent/internal/dispatch"
	"github.com/spigell/talent-agent/internal/intent"
)

const bulkPreviewLength = 100

func explain(action intent.Action, res Result, lang string) string {
	if res.Kind != "" {
		return res.Message
	}

	switch action {
	case intent.ActionShowCandidates:
		if res.NeedsAnalysis {
			return fmt.Sprintf(tr(lang, "Seleccioné %d candidatos para %s y los analizaré.",
				"I selected %d candidates for %s and will analyze them."), len(res.Candidates), res.JobPosition)
		}
		if res.Total > len(res.Candidates) {
			return fmt.Sprintf(tr(lang, "Mostré %d de %d candidatos.", "Showed %d of %d candidates."), len(res.Candidates), res.Total)
		}
		return fmt.Sprintf(tr(lang, "Mostré %d candidatos.", "Showed %d candidates."), len(res.Candidates))
	case intent.ActionShowPositions:
		return tr(lang, "Listé las posiciones de trabajo disponibles.", "Listed the available job positions.")
	case intent.ActionProvideInfo:
		if len(res.Candidates) == 1 {
			return fmt.Sprintf(tr(lang, "Mostré el perfil de %s.", "Showed the profile of %s."), res.Candidates[0].Name)
		}
	case intent.ActionShowReferences:
		return tr(lang, "Mostré las referencias solicitadas.", "Showed the requested references.")
	case intent.ActionRetrieveMessages, intent.ActionRetrieveMultipleMessages:
		return fmt.Sprintf(tr(lang, "Recuperé %d mensajes.", "Retrieved %d messages."), res.Total)
	case intent.ActionRetrieveReferenceResponses, intent.ActionReceiveReferenceMessage:
		return fmt.Sprintf(tr(lang, "✅ Se encontraron %d respuestas de referencia.", "✅ Found %d reference responses."), res.Total)
	}
	return res.Message
}

// ExplainDispatch describes what happened to a dispatched batch. outcomes are in the order of
// res.Batch.
func ExplainDispatch(res Result, outcomes []dispatch.Result, lang string) string {
	sent, _ := dispatch.Summary(outcomes)

	var failed, skipped []string
	for _, o := range outcomes {
		switch {
		case o.Skipped:
			skipped = append(skipped, describeTarget(o, res.BatchKind, lang))
		case !o.Success:
			failed = append(failed, fmt.Sprintf("%s: %s", describeTarget(o, res.BatchKind, lang), o.Error))
		}
	}
	if names, ok := res.Data.([]string); ok && res.BatchKind == BatchBulk {
		skipped = append(skipped, names...)
	}

	var b strings.Builder
	switch res.BatchKind {
	case BatchSingle:
		if len(outcomes) == 1 && outcomes[0].Success && len(res.Batch) == 1 {
			item := res.Batch[0]
			if item.Template != nil {
				fmt.Fprintf(&b, tr(lang, "Envié la plantilla %s a %s.", "Sent the %s template to %s."), item.Template.Name, item.Label)
			} else {
				fmt.Fprintf(&b, tr(lang, "Envié un mensaje a %s. Esto es lo que le envié:\n\n%s",
					"I sent a message to %s. This is what I sent:\n\n%s"), item.Label, item.Body)
			}
			return b.String()
		}
	case BatchBulk:
		if sent > 0 {
			fmt.Fprintf(&b, tr(lang, "Envié mensajes a %d candidatos:\n", "I sent messages to %d candidates:\n"), sent)
			for i, o := range outcomes {
				if !o.Success || i >= len(res.Batch) {
					continue
				}
				fmt.Fprintf(&b, "• %s: %s\n", o.Label, preview(res.Batch[i].Body, bulkPreviewLength))
			}
		}
	case BatchReference:
		if sent > 0 {
			fmt.Fprintf(&b, tr(lang, "✅ Se enviaron %d mensajes a referencias de candidatos exitosamente.\n",
				"✅ Sent %d messages to candidate references successfully.\n"), sent)
		}
	}

	if sent == 0 && len(failed) == 0 && len(skipped) > 0 {
		b.WriteString(tr(lang, "No se envió ningún mensaje.\n", "No messages were sent.\n"))
	}
	if len(failed) > 0 {
		b.WriteString(tr(lang, "\n❌ No se pudo enviar a:\n", "\n❌ Could not send to:\n"))
		for _, f := range failed {
			fmt.Fprintf(&b, "• %s\n", f)
		}
	}
	if len(skipped) > 0 {
		b.WriteString(tr(lang, "\n⚠️ Sin número de teléfono válido:\n", "\n⚠️ No valid phone number:\n"))
		for _, s := range skipped {
			fmt.Fprintf(&b, "• %s\n", s)
		}
	}
	return strings.TrimSpace(b.String())
}

func describeTarget(o dispatch.Result, kind BatchKind, lang string) string {
	if kind == BatchReference && o.Subject != "" && o.Subject != o.Label {
		return fmt.Sprintf(tr(lang, "%s (referencia de %s)", "%s (reference for %s)"), o.Label, o.Subject)
	}
	return o.Label
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
