package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/talent-agent/internal/directory"
	"github.com/spigell/talent-agent/internal/intent"
	"github.com/spigell/talent-agent/internal/matcher"
	"github.com/spigell/talent-agent/internal/store"
	"github.com/spigell/talent-agent/internal/summary"
	"go.uber.org/zap"
)

const insightsSystem = "Analiza las conversaciones de WhatsApp de un reclutador con sus candidatos. " +
	"Resume el nivel de interés de cada contacto, los temas principales y los siguientes pasos recomendados."

// resolvePhones finds the numbers a message request is about: explicit numbers, the named
// candidates, the remembered candidates, then numbers written in the prompt. Labels name the
// directory candidate behind each number when there is one.
func (r *Router) resolvePhones(p intent.Params, t Turn) ([]string, map[string]string, Result, bool) {
	lang := t.lang()
	labels := make(map[string]string)
	phones := make([]string, 0)
	seen := make(map[string]struct{})

	add := func(raw, label string) {
		phone, ok := r.phones.Normalize(raw)
		if !ok {
			r.logger.Debug("ignoring unusable phone", zap.String("phone", raw))
			return
		}
		if _, dup := seen[phone]; dup {
			return
		}
		seen[phone] = struct{}{}
		phones = append(phones, phone)
		if label == "" {
			if c, found := directory.FindByPhone(t.Candidates, phone); found {
				label = c.Name
			}
		}
		if label != "" {
			labels[phone] = label
		}
	}

	for _, raw := range append([]string{p.PhoneNumber}, p.PhoneNumbers...) {
		if raw != "" {
			add(raw, "")
		}
	}
	if len(phones) > 0 {
		return phones, labels, Result{}, true
	}

	switch {
	case len(p.CandidateNames) > 0:
		for _, c := range byNames(p.CandidateNames, t.Candidates) {
			add(c.Phone, c.Name)
		}
	case p.CandidateName != "":
		c, res, ok := r.resolveCandidate(p.CandidateName, t)
		if !ok {
			return nil, nil, res, false
		}
		if _, valid := r.phones.Normalize(c.Phone); !valid {
			return nil, nil, Clarify(KindMissingPhone, fmt.Sprintf(tr(lang,
				"No encontré un número de teléfono válido para %s.",
				"No valid phone number found for candidate %s."), c.Name)), false
		}
		add(c.Phone, c.Name)
	}
	if len(phones) > 0 {
		return phones, labels, Result{}, true
	}

	for _, c := range t.Context.Candidates {
		add(c.Phone, c.Name)
	}
	if len(phones) > 0 {
		return phones, labels, Result{}, true
	}

	for _, raw := range intent.FindPhones(t.prompt()) {
		add(raw, "")
	}
	if len(phones) > 0 {
		return phones, labels, Result{}, true
	}

	return nil, nil, Clarify(KindMissingPhone, tr(lang,
		"Indica el número de teléfono o el nombre del candidato cuyos mensajes quieres ver.",
		"Please give the phone number or the candidate name whose messages you want to see.")), false
}

func (r *Router) retrieveMessages(a RetrieveMessages, t Turn) Result {
	lang := t.lang()
	if r.messages == nil {
		return Clarify(KindNoData, tr(lang, "El registro de mensajes no está disponible.", "The message log is not available."))
	}

	phones, labels, res, ok := r.resolvePhones(a.Params, t)
	if !ok {
		return res
	}

	if a.Multiple || len(phones) > 1 {
		byPhone := make(map[string][]store.Message, len(phones))
		for _, phone := range phones {
			msgs, err := r.messages.ByPhone(phone)
			if err != nil {
				return r.storeFailure(err, lang)
			}
			byPhone[phone] = msgs
		}
		cmp := summary.Compare(byPhone, labels, lang)
		return Result{Success: true, Message: cmp.Render(), Data: cmp, Total: cmp.Total}
	}

	phone := phones[0]
	msgs, err := r.messages.ByPhone(phone)
	if err != nil {
		return r.storeFailure(err, lang)
	}

	conv := summary.NewConversation(msgs, phone, labels[phone], lang)
	data := MessagesData{Phone: phone, Candidate: labels[phone], Count: len(msgs), Messages: msgs, Summary: conv.Render()}
	msg := data.Summary
	if len(msgs) == 0 {
		msg = fmt.Sprintf(tr(lang, "No se encontraron mensajes para %s.\n\n%s", "No messages found for %s.\n\n%s"),
			orDefault(labels[phone], phone), data.Summary)
	}
	return Result{Success: true, Message: msg, Data: data, Total: len(msgs)}
}

func (r *Router) analyzeMessages(ctx context.Context, a AnalyzeMessages, t Turn) Result {
	lang := t.lang()
	if r.messages == nil {
		return Clarify(KindNoData, tr(lang, "El registro de mensajes no está disponible.", "The message log is not available."))
	}

	phones, labels, res, ok := r.resolvePhones(a.Params, t)
	if !ok {
		return res
	}

	byPhone := make(map[string][]store.Message, len(phones))
	for _, phone := range phones {
		msgs, err := r.messages.ByPhone(phone)
		if err != nil {
			return r.storeFailure(err, lang)
		}
		byPhone[phone] = msgs
	}
	cmp := summary.Compare(byPhone, labels, lang)
	digest := cmp.Render()
	if len(phones) == 1 {
		digest = cmp.Conversations[0].Render()
	}
	if cmp.Total == 0 {
		return Result{Success: true, Message: digest, Data: cmp}
	}

	var b strings.Builder
	for _, conv := range cmp.Conversations {
		fmt.Fprintf(&b, "\n## %s\n", orDefault(conv.Label, conv.Phone))
		for _, m := range byPhone[conv.Phone] {
			direction := "recruiter"
			if matcher.Digits(m.From) == matcher.Digits(conv.Phone) {
				direction = "contact"
			}
			fmt.Fprintf(&b, "[%s] %s: %s\n", m.When().Format("2006-01-02 15:04"), direction, m.Body)
		}
	}

	system := insightsSystem + " " + tr(lang, "Responde en español.", "Answer in English.")
	if insights, ok := r.ask(ctx, system, b.String()); ok {
		return Result{Success: true, Message: insights, Data: cmp, Explanation: insights}
	}
	return Result{Success: true, Message: digest, Data: cmp}
}

func (r *Router) retrieveReferenceResponses(t Turn) Result {
	lang := t.lang()
	if r.references == nil {
		return Clarify(KindNoData, tr(lang, "El registro de referencias no está disponible.", "The reference log is not available."))
	}

	all, err := r.references.All()
	if err != nil {
		return r.storeFailure(err, lang)
	}
	if len(all) == 0 {
		return Result{
			Success: true,
			Message: tr(lang, "Aún no se han recibido respuestas de referencias.", "No reference responses have been received yet."),
			Data:    ReferencesData{Responses: all},
		}
	}

	stats := summary.AnalyzeReferences(all, r.now())
	return Result{
		Success: true,
		Message: summary.RenderReferences(all, lang),
		Data:    ReferencesData{Responses: all, Count: len(all), Stats: stats},
		Total:   len(all),
	}
}

func (r *Router) receiveReferenceMessage(a ReceiveReferenceMessage, t Turn) Result {
	lang := t.lang()
	if r.references == nil {
		return Clarify(KindNoData, tr(lang, "El registro de referencias no está disponible.", "The reference log is not available."))
	}

	name, phone := a.CandidateName, a.PhoneNumber
	if name == "" && phone == "" {
		if c, res, ok := r.resolveCandidate("", t); ok {
			name, phone = c.Name, c.Phone
		} else {
			return res
		}
	}

	responses, err := r.references.ByCandidate(name, phone)
	if err != nil {
		return r.storeFailure(err, lang)
	}
	subject := orDefault(name, phone)
	data := ReferencesData{Candidate: subject, Responses: responses, Count: len(responses)}
	if len(responses) == 0 {
		return Result{
			Success: true,
			Message: fmt.Sprintf(tr(lang, "No se encontraron respuestas de referencia para %s.",
				"No reference responses found for %s."), subject),
			Data: data,
		}
	}

	data.Stats = summary.AnalyzeReferences(responses, r.now())
	return Result{
		Success: true,
		Message: fmt.Sprintf(tr(lang, "✅ Se encontraron %d respuestas de referencia para %s\n\n%s",
			"✅ Found %d reference responses for %s\n\n%s"), len(responses), subject, summary.RenderReferences(responses, lang)),
		Data:  data,
		Total: len(responses),
	}
}

func (r *Router) storeFailure(err error, lang string) Result {
	r.logger.Error("local store read failed", zap.Error(err))
	return Clarify(KindNoData, tr(lang,
		"No pude leer el registro local en este momento.", "I could not read the local log right now."))
}
