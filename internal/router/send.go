package router

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/spigell/talent-agent/internal/directory"
	"github.com/spigell/talent-agent/internal/dispatch"
	"github.com/spigell/talent-agent/internal/filtering"
	"github.com/spigell/talent-agent/internal/intent"
	"github.com/spigell/talent-agent/internal/matcher"
	"go.uber.org/zap"
)

var (
	pronounRe        = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(her|him|them|ella|ellas|ellos|él)(?:[^\p{L}]|$)`)
	questionPrefixRe = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s*`)
)

func safetyBlocked(lang string) Result {
	return Fail(KindSafetyBlocked, tr(lang,
		"Por seguridad no puedo enviar mensajes a todos los candidatos. Indica un candidato, una lista de nombres o una posición de trabajo.",
		"For safety reasons, I cannot send messages to all candidates. Please specify a candidate, a list of names or a job position."))
}

// sendMessage builds the dispatch batch of a send request. The branches are tried in order: a
// direct number, every reference of a candidate set, a bulk candidate set, one reference, a full
// name written in the request, then the candidate_name parameter.
func (r *Router) sendMessage(ctx context.Context, p intent.Params, t Turn) Result {
	lang := t.lang()

	if p.PhoneNumber != "" {
		return r.sendDirect(ctx, p, t)
	}
	if len(t.Candidates) == 0 && len(t.Context.Candidates) == 0 {
		return noData(lang)
	}
	if p.AllReferences {
		return r.sendAllReferences(ctx, p, t)
	}
	if p.AllSelected() || len(p.CandidateNames) > 0 {
		return r.sendBulk(ctx, p, t)
	}
	if p.ReferenceName != "" {
		return r.sendOneReference(ctx, p, t)
	}

	found := uniqueCandidates(matcher.FindAllInText(t.Record.Intent+"\n"+t.prompt(), t.Candidates))
	switch len(found) {
	case 1:
		return r.sendTo(ctx, found[0], p, t)
	case 0:
	default:
		res := Clarify(KindAmbiguousCandidate, fmt.Sprintf(tr(lang,
			"Encontré varios candidatos con nombres similares. Por favor sé más específico: %s",
			"Multiple candidates found with similar names. Please be more specific: %s"),
			strings.Join(directory.Names(found), ", ")))
		res.Data = directory.Names(found)
		return res
	}

	if p.CandidateName != "" {
		c, err := matcher.Find(p.CandidateName, t.Candidates)
		if err == nil {
			return r.sendTo(ctx, c, p, t)
		}
		// a pronoun the model copied into candidate_name points back at the remembered candidate
		if !isAmbiguous(err) && pronounRe.MatchString(t.prompt()) && len(t.Context.Candidates) == 1 {
			r.logger.Info("candidate not found, using remembered candidate",
				zap.String("candidate_name", p.CandidateName),
				zap.String("remembered", t.Context.Candidates[0].Name),
			)
			return r.sendTo(ctx, t.Context.Candidates[0], p, t)
		}
		return matchError(err, p.CandidateName, lang)
	}

	if pronounRe.MatchString(t.prompt()) && len(t.Context.Candidates) == 1 {
		return r.sendTo(ctx, t.Context.Candidates[0], p, t)
	}

	return Clarify(KindCandidateNotFound, tr(lang,
		"Indica el nombre del candidato al que quieres enviar el mensaje.",
		"Please specify a candidate name to send a message to."))
}

func (r *Router) sendDirect(ctx context.Context, p intent.Params, t Turn) Result {
	lang := t.lang()
	phone, ok := r.phones.Normalize(p.PhoneNumber)
	if !ok {
		return Clarify(KindMissingPhone, fmt.Sprintf(tr(lang,
			"El número %s no tiene un formato válido.", "The number %s is not a valid phone number."), p.PhoneNumber))
	}

	label := fmt.Sprintf(tr(lang, "Mensaje directo (%s)", "Direct message (%s)"), phone)
	name := ""
	res := Result{Success: true, BatchKind: BatchSingle}
	if c, found := directory.FindByPhone(t.Candidates, phone); found {
		if matcher.Excluded(c.Name, p.ExcludeCandidates) {
			return excludedTarget(c.Name, lang)
		}
		label, name = c.Name, c.Name
		res.Candidates = []directory.Candidate{c}
	}

	body := r.messageBody(ctx, p, t, name, "")
	res.Batch = []dispatch.Item{{Label: label, Phone: phone, Body: body}}
	return res
}

func (r *Router) sendTo(ctx context.Context, c directory.Candidate, p intent.Params, t Turn) Result {
	lang := t.lang()
	if matcher.Excluded(c.Name, p.ExcludeCandidates) {
		return excludedTarget(c.Name, lang)
	}

	phone, ok := r.phones.Normalize(c.Phone)
	if !ok {
		res := Clarify(KindMissingPhone, fmt.Sprintf(tr(lang,
			"No encontré un número de teléfono válido para %s.",
			"No valid phone number found for candidate %s."), c.Name))
		res.Candidates = []directory.Candidate{c}
		return res
	}

	return Result{
		Success:    true,
		Candidates: []directory.Candidate{c},
		Batch:      []dispatch.Item{{Label: c.Name, Subject: c.ID, Phone: phone, Body: r.messageBody(ctx, p, t, c.Name, "")}},
		BatchKind:  BatchSingle,
	}
}

// sendBulk messages a named subset: remembered candidates referred to by a pronoun, a list of
// names, or every candidate of a position. Anything wider is refused.
func (r *Router) sendBulk(ctx context.Context, p intent.Params, t Turn) Result {
	lang := t.lang()

	var scope []directory.Candidate
	cfg := &filtering.Config{Exclude: p.ExcludeCandidates}
	switch {
	case pronounRe.MatchString(t.prompt()) && len(t.Context.Candidates) > 0:
		if coversDirectory(t) {
			r.logger.Warn("blocked a send to a remembered listing of every candidate",
				zap.Int("remembered", len(t.Context.Candidates)),
			)
			return safetyBlocked(lang)
		}
		scope = t.Context.Candidates
	case len(p.CandidateNames) > 0:
		named, res, ok := namedTargets(p.CandidateNames, t.Candidates, lang)
		if !ok {
			return res
		}
		scope = named
	case p.JobPosition != "":
		scope = t.Candidates
		cfg.Position = p.JobPosition
	default:
		r.logger.Warn("blocked a send to every candidate")
		return safetyBlocked(lang)
	}

	if len(scope) == 0 {
		return Clarify(KindCandidateNotFound, tr(lang,
			"No encontré candidatos que coincidan con los criterios indicados.",
			"No candidates found matching the specified criteria."))
	}

	sel, _, err := r.filter(ctx, cfg, filtering.BulkSendSteps(), scope)
	if err != nil {
		return Fail(KindInvalidRequest, err.Error())
	}

	if sel.Len() == 0 {
		kind := KindCandidateNotFound
		msg := tr(lang, "No quedaron candidatos después de aplicar los filtros.", "No candidates left after applying the filters.")
		if len(sel.DroppedBy(filtering.PhoneFilterName)) > 0 {
			kind = KindMissingPhone
			msg = tr(lang, "Ninguno de los candidatos seleccionados tiene un número de teléfono válido.",
				"None of the selected candidates has a valid phone number.")
		}
		return Clarify(kind, msg)
	}

	items := make([]dispatch.Item, 0, sel.Len())
	for _, c := range sel.Items {
		items = append(items, dispatch.Item{Label: c.Name, Subject: c.ID, Phone: c.Phone, Body: r.messageBody(ctx, p, t, c.Name, "")})
	}

	return Result{
		Success:     true,
		Candidates:  sel.Items,
		Total:       len(scope),
		JobPosition: cfg.Position,
		Batch:       items,
		BatchKind:   BatchBulk,
		Data:        directory.Names(sel.DroppedBy(filtering.PhoneFilterName)),
	}
}

// sendAllReferences messages every reference of the selected candidates.
func (r *Router) sendAllReferences(ctx context.Context, p intent.Params, t Turn) Result {
	lang := t.lang()

	scope, res, ok := r.referenceScope(ctx, p, t)
	if !ok {
		return res
	}

	items := make([]dispatch.Item, 0)
	for _, c := range scope {
		for _, ref := range matcher.FilterExcludedReferences(c.References, p.ExcludeReferences) {
			phone, ok := r.phones.Normalize(ref.Contact.Phone)
			if !ok {
				r.logger.Info("skipping reference without a valid phone",
					zap.String("reference", ref.Name),
					zap.String("candidate", c.Name),
				)
				continue
			}
			items = append(items, dispatch.Item{
				Label:   ref.Name,
				Subject: c.Name,
				Phone:   phone,
				Body:    r.messageBody(ctx, p, t, ref.Name, c.Name),
			})
		}
	}

	if len(items) == 0 {
		return Clarify(KindMissingPhone, tr(lang,
			"No encontré referencias con número de teléfono para los candidatos indicados.",
			"No references with a phone number were found for the specified candidates."))
	}
	return Result{Success: true, Candidates: scope, Batch: items, BatchKind: BatchReference}
}

// referenceScope selects the candidates whose references a request targets. Exclusions are applied
// before any reference is looked at.
func (r *Router) referenceScope(ctx context.Context, p intent.Params, t Turn) ([]directory.Candidate, Result, bool) {
	lang := t.lang()

	var scope []directory.Candidate
	cfg := &filtering.Config{Exclude: p.ExcludeCandidates}
	switch {
	case len(p.CandidateNames) > 0:
		named, res, ok := namedTargets(p.CandidateNames, t.Candidates, lang)
		if !ok {
			return nil, res, false
		}
		scope = named
	case p.CandidateName != "" && !p.AllSelected():
		c, res, ok := r.resolveCandidate(p.CandidateName, t)
		if !ok {
			return nil, res, false
		}
		scope = []directory.Candidate{c}
	case p.JobPosition != "":
		scope = t.Candidates
		cfg.Position = p.JobPosition
	case !p.AllSelected() && len(t.Context.Candidates) == 1:
		scope = t.Context.Candidates
	default:
		r.logger.Warn("blocked a send to the references of every candidate")
		return nil, safetyBlocked(lang), false
	}

	sel, _, err := r.filter(ctx, cfg, filtering.ListingSteps(), scope)
	if err != nil {
		return nil, Fail(KindInvalidRequest, err.Error()), false
	}
	kept, _ := matcher.FilterExcluded(sel.Items, p.ExcludeCandidates)
	if len(kept) == 0 {
		return nil, Clarify(KindCandidateNotFound, tr(lang,
			"No encontré candidatos para enviar mensajes a sus referencias.",
			"No candidates found for reference messaging.")), false
	}
	return kept, Result{}, true
}

func (r *Router) sendOneReference(ctx context.Context, p intent.Params, t Turn) Result {
	lang := t.lang()

	c, res, ok := r.resolveCandidate(p.CandidateName, t)
	if !ok {
		return res
	}
	if matcher.Excluded(c.Name, p.ExcludeCandidates) {
		return excludedTarget(c.Name, lang)
	}

	want := matcher.Fold(p.ReferenceName)
	var ref *directory.Reference
	for i := range c.References {
		if strings.Contains(matcher.Fold(c.References[i].Name), want) {
			ref = &c.References[i]
			break
		}
	}
	if ref == nil {
		return Clarify(KindCandidateNotFound, fmt.Sprintf(tr(lang,
			"No encontré la referencia %s de %s.", "Reference %s not found for %s."), p.ReferenceName, c.Name))
	}

	phone, ok := r.phones.Normalize(ref.Contact.Phone)
	if !ok {
		return Clarify(KindMissingPhone, fmt.Sprintf(tr(lang,
			"No encontré un número de teléfono válido para la referencia %s.",
			"No valid phone number found for reference %s."), ref.Name))
	}

	label := fmt.Sprintf(tr(lang, "%s (referencia de %s)", "%s (reference for %s)"), ref.Name, c.Name)
	return Result{
		Success:    true,
		Candidates: []directory.Candidate{c},
		Batch:      []dispatch.Item{{Label: label, Subject: c.Name, Phone: phone, Body: r.messageBody(ctx, p, t, ref.Name, c.Name)}},
		BatchKind:  BatchSingle,
	}
}

// sendReferenceMessage contacts references with the approved template. References without a
// usable number stay in the batch with no phone so the dispatcher reports them.
func (r *Router) sendReferenceMessage(ctx context.Context, a SendReferenceMessage, t Turn) Result {
	lang := t.lang()
	if len(t.Candidates) == 0 {
		return noData(lang)
	}
	if a.CandidateName == "" && a.JobPosition == "" && len(a.CandidateNames) == 0 && !a.AllSelected() && len(t.Context.Candidates) != 1 {
		return Clarify(KindInvalidRequest, tr(lang,
			"Indica un candidato, una posición o varios nombres para enviar mensajes a sus referencias.",
			"Please specify a candidate name, a job position or several candidate names for reference messaging."))
	}

	scope, res, ok := r.referenceScope(ctx, a.Params, t)
	if !ok {
		return res
	}

	items := make([]dispatch.Item, 0)
	for _, c := range scope {
		refs := matcher.FilterExcludedReferences(c.References, a.ExcludeReferences)
		for _, ref := range refs {
			// an empty phone is reported by the dispatcher
			phone, _ := r.phones.Normalize(ref.Contact.Phone)
			items = append(items, dispatch.Item{
				Label:    ref.Name,
				Subject:  c.Name,
				Phone:    phone,
				Template: r.referenceTemplate(c.Name),
			})
		}
	}

	if len(items) == 0 {
		return Clarify(KindCandidateNotFound, tr(lang,
			"Los candidatos indicados no tienen referencias registradas.",
			"The specified candidates have no references on file."))
	}
	return Result{Success: true, Candidates: scope, Batch: items, BatchKind: BatchReference, JobPosition: a.JobPosition}
}

func (r *Router) sendDirectReferenceMessage(a SendDirectReferenceMessage, t Turn) Result {
	lang := t.lang()
	phone, ok := r.phones.Normalize(a.PhoneNumber)
	if !ok {
		return Clarify(KindMissingPhone, tr(lang,
			"Necesito un número de teléfono válido para enviar el mensaje de referencia.",
			"I need a valid phone number to send the reference message."))
	}

	name := orDefault(a.ReferenceName, fallbackReference)
	return Result{
		Success:   true,
		Batch:     []dispatch.Item{{Label: phone, Subject: name, Phone: phone, Template: r.referenceTemplate(name)}},
		BatchKind: BatchReference,
	}
}

func (r *Router) referenceTemplate(candidate string) *dispatch.Template {
	return &dispatch.Template{
		Name:       r.template,
		Language:   intent.LanguageES,
		Params:     []dispatch.TemplateParam{{Name: "name", Text: orDefault(candidate, fallbackReference)}},
		FlowButton: true,
	}
}

func (r *Router) generateQuestions(ctx context.Context, a GenerateQuestions, t Turn) Result {
	lang := t.lang()
	if len(t.Candidates) == 0 && len(t.Context.Candidates) == 0 {
		return noData(lang)
	}

	c, res, ok := r.resolveCandidate(a.CandidateName, t)
	if !ok {
		return res
	}

	questions := r.followUpQuestions(ctx, c, lang)
	lines := make([]string, 0, len(questions))
	for i, q := range questions {
		lines = append(lines, fmt.Sprintf("%d. %s", i+1, q))
	}

	p := a.Params
	p.Message = fmt.Sprintf(tr(lang, "Hola %s, te envío algunas preguntas de seguimiento:\n\n%s",
		"Hello %s, here are some follow-up questions:\n\n%s"), c.Name, strings.Join(lines, "\n"))

	out := r.sendTo(ctx, c, p, t)
	if out.Success && len(out.Batch) > 0 {
		out.Data = questions
	}
	return out
}

func (r *Router) followUpQuestions(ctx context.Context, c directory.Candidate, lang string) []string {
	system := fmt.Sprintf("Genera 2-3 preguntas de seguimiento concisas para un candidato, en %s. Una pregunta por línea, sin texto adicional.",
		tr(lang, "español", "inglés"))
	message := fmt.Sprintf("Candidato: %s\nPosición: %s\nExperiencia: %s\nHabilidades: %s",
		c.Name, c.Position, c.Experience, strings.Join(c.Skills, ", "))

	if out, ok := r.ask(ctx, system, message); ok {
		questions := make([]string, 0, 3)
		for _, line := range strings.Split(out, "\n") {
			line = strings.TrimSpace(questionPrefixRe.ReplaceAllString(line, ""))
			if line == "" {
				continue
			}
			questions = append(questions, line)
			if len(questions) == 3 {
				break
			}
		}
		if len(questions) > 0 {
			return questions
		}
	}

	position := orDefault(c.Position, tr(lang, "la posición", "the position"))
	return []string{
		fmt.Sprintf(tr(lang, "¿Qué te motivó a aplicar a %s?", "What motivated you to apply for %s?"), position),
		tr(lang, "¿Cuál ha sido el proyecto más retador de tu experiencia reciente?",
			"What has been the most challenging project in your recent experience?"),
		tr(lang, "¿Cuál es tu disponibilidad para una entrevista esta semana?",
			"What is your availability for an interview this week?"),
	}
}

// messageBody is the requested text, or a short message written by the model, or a fixed
// greeting. recipient is empty for a number outside the directory; about names the candidate
// when the recipient is one of their references.
func (r *Router) messageBody(ctx context.Context, p intent.Params, t Turn, recipient, about string) string {
	if msg := strings.TrimSpace(p.Message); msg != "" {
		return msg
	}
	lang := t.lang()

	target := "un candidato"
	if recipient != "" {
		target = fmt.Sprintf("un candidato (%s)", recipient)
	}
	if about != "" {
		target = fmt.Sprintf("una referencia (%s) del candidato %s", recipient, about)
	}
	system := fmt.Sprintf("Genera un mensaje casual de WhatsApp para %s. Escribe en %s, máximo 2-3 oraciones, "+
		"sin marcadores de posición ni cierres formales.", target, tr(lang, "español", "inglés"))
	if out, ok := r.ask(ctx, system, t.prompt()); ok {
		return out
	}

	greeting := tr(lang, defaultGreeting, "Hello")
	if fields := strings.Fields(recipient); len(fields) > 0 {
		greeting += " " + fields[0]
	}
	if about != "" {
		return fmt.Sprintf(tr(lang,
			"%s, te contactamos porque %s te indicó como referencia laboral. ¿Podrías compartirnos tu opinión sobre su desempeño?",
			"%s, we are reaching out because %s listed you as a work reference. Could you share your opinion about their performance?"),
			greeting, about)
	}
	return fmt.Sprintf(tr(lang,
		"%s, te escribimos del equipo de reclutamiento. ¿Tienes unos minutos para conversar?",
		"%s, this is the recruiting team. Do you have a few minutes to talk?"), greeting)
}

func excludedTarget(name, lang string) Result {
	return Clarify(KindCandidateNotFound, fmt.Sprintf(tr(lang,
		"%s está en la lista de candidatos excluidos, no le enviaré el mensaje.",
		"%s is on the excluded list, so no message will be sent."), name))
}

// coversDirectory reports whether the remembered candidates are an unfiltered listing or, with no
// position behind them, every candidate of the directory.
func coversDirectory(t Turn) bool {
	if t.Context.Unfiltered {
		return true
	}
	if t.Context.JobPosition != "" || len(t.Candidates) < 2 {
		return false
	}
	remembered := make(map[string]struct{}, len(t.Context.Candidates))
	for _, c := range t.Context.Candidates {
		remembered[c.ID] = struct{}{}
	}
	for _, c := range t.Candidates {
		if _, ok := remembered[c.ID]; !ok {
			return false
		}
	}
	return true
}

// namedTargets resolves each name to one candidate. Names matching nobody are skipped; a name
// tied between several candidates stops the send.
func namedTargets(names []string, candidates []directory.Candidate, lang string) ([]directory.Candidate, Result, bool) {
	picked := make(map[string]struct{})
	for _, name := range names {
		c, err := matcher.Find(name, candidates)
		switch {
		case err == nil:
			picked[c.ID] = struct{}{}
		case isAmbiguous(err):
			return nil, matchError(err, name, lang), false
		}
	}

	out := make([]directory.Candidate, 0, len(picked))
	for _, c := range candidates {
		if _, ok := picked[c.ID]; ok {
			out = append(out, c)
		}
	}
	return out, Result{}, true
}

// byNames returns the candidates matching any of names at their strongest tier, directory order.
// Ties are all kept, which suits listings and comparisons but not sends.
func byNames(names []string, candidates []directory.Candidate) []directory.Candidate {
	picked := make(map[string]struct{})
	for _, name := range names {
		ranked := matcher.Rank(name, candidates)
		if len(ranked) == 0 {
			continue
		}
		for _, rk := range ranked {
			if rk.Tier != ranked[0].Tier {
				break
			}
			picked[rk.Candidate.ID] = struct{}{}
		}
	}

	out := make([]directory.Candidate, 0, len(picked))
	for _, c := range candidates {
		if _, ok := picked[c.ID]; ok {
			out = append(out, c)
		}
	}
	return out
}

func uniqueCandidates(in []directory.Candidate) []directory.Candidate {
	seen := make(map[string]struct{})
	out := make([]directory.Candidate, 0, len(in))
	for _, c := range in {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		out = append(out, c)
	}
	return out
}

func isAmbiguous(err error) bool {
	return errors.Is(err, matcher.ErrAmbiguous)
}
