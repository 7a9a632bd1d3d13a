package router

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/spigell/talent-agent/internal/directory"
	"github.com/spigell/talent-agent/internal/filtering"
	"github.com/spigell/talent-agent/internal/matcher"
)

var (
	bestWords     = []string{"top", "best", "mejor", "mejores"}
	firstNumberRe = regexp.MustCompile(`\d+`)

	namePhraseRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:n[uú]mero|tel[eé]fono|phone|number|informaci[oó]n|info|perfil|profile)\s+(?:de|of|del|about)\s+([\p{L}\s]+)`),
		regexp.MustCompile(`(?i)([\p{L}\s]+?)\s+(?:n[uú]mero|tel[eé]fono|phone|number)`),
	}
)

func (r *Router) showCandidates(ctx context.Context, a ShowCandidates, t Turn) Result {
	lang := t.lang()
	if len(t.Candidates) == 0 {
		return noData(lang)
	}

	position := r.resolvePosition(ctx, a.JobPosition, t)
	lower := strings.ToLower(t.prompt())

	if a.AllSelected() || containsWord(lower, bestWords...) {
		return r.bestCandidates(ctx, a, t, position)
	}

	if position != "" {
		matched := make([]directory.Candidate, 0)
		for _, c := range t.Candidates {
			if strings.EqualFold(strings.TrimSpace(c.Position), strings.TrimSpace(position)) {
				matched = append(matched, c)
			}
		}
		if len(matched) == 0 {
			sel, _, err := r.filter(ctx, &filtering.Config{Position: position}, filtering.ListingSteps(), t.Candidates)
			if err == nil {
				matched = sel.Items
			}
		}
		if len(matched) == 0 {
			positions := directory.Positions(t.Candidates)
			res := Clarify(KindCandidateNotFound, fmt.Sprintf(
				tr(lang, "No se encontraron candidatos para la posición \"%s\". Las posiciones disponibles son: %s",
					"No candidates found for the position \"%s\". Available positions are: %s"),
				position, strings.Join(positions, ", ")))
			res.Data = positions
			res.JobPosition = position
			return res
		}

		total := len(matched)
		shown := capList(matched)
		return Result{
			Success: true,
			Message: fmt.Sprintf(tr(lang, "Candidatos para %s:\n\n%s", "Candidates for %s:\n\n%s"),
				position, formatCandidates(shown, lang, 3)),
			Candidates:  shown,
			Total:       total,
			JobPosition: position,
		}
	}

	total := len(t.Candidates)
	shown := capList(t.Candidates)
	var msg string
	if total > listCap {
		msg = fmt.Sprintf(tr(lang, "Estos son los primeros %d de tus %d candidatos:\n\n%s",
			"Here are the first %d of your %d candidates:\n\n%s"), len(shown), total, formatCandidates(shown, lang, 2))
	} else {
		msg = fmt.Sprintf(tr(lang, "Estos son tus %d candidatos:\n\n%s", "Here are your %d candidates:\n\n%s"),
			total, formatCandidates(shown, lang, 2))
	}
	return Result{Success: true, Message: msg, Candidates: shown, Total: total, Unfiltered: true}
}

// bestCandidates selects the strongest candidates of a position by score and hands them to the
// caller for a narrative analysis.
func (r *Router) bestCandidates(ctx context.Context, a ShowCandidates, t Turn, position string) Result {
	lang := t.lang()
	if position == "" {
		return Clarify(KindInvalidRequest, tr(lang,
			"Necesito saber qué posición de trabajo estás preguntando. ¿Podrías especificar la posición?",
			"I need to know which job position you are asking about. Could you specify it?"))
	}

	count := a.NumberOfCandidates
	if count <= 0 {
		count = firstNumber(t.prompt())
	}
	if count <= 0 {
		count = defaultBestCount
	}

	cfg := &filtering.Config{Exclude: a.ExcludeCandidates, Position: position, Top: count}
	sel, scores, err := r.filter(ctx, cfg, filtering.BestSteps(), t.Candidates)
	if err != nil {
		return Fail(KindInvalidRequest, err.Error())
	}
	if sel.Len() == 0 {
		res := Clarify(KindCandidateNotFound, tr(lang,
			"No pude encontrar candidatos calificados con posiciones específicas para "+position+".",
			"I could not find qualified candidates with a specific position for "+position+"."))
		res.JobPosition = position
		return res
	}

	return Result{
		Success: true,
		Message: fmt.Sprintf(tr(lang,
			"Analizaré los mejores %d candidatos para ti basándome en sus habilidades, experiencia, expectativas salariales y ajuste general.",
			"I will analyze the best %d candidates for you based on their skills, experience, salary expectations and overall fit."), sel.Len()),
		Candidates:     sel.Items,
		Total:          sel.Len(),
		JobPosition:    position,
		NeedsAnalysis:  true,
		AnalysisPrompt: analysisPrompt(sel.Items, position, count),
		Data:           scores,
	}
}

func analysisPrompt(candidates []directory.Candidate, position string, count int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analyze and rank the top %d candidates for the %q position from this list based on their skills, "+
		"experience, salary expectations and overall fit. Consider skills match, experience quality, salary "+
		"expectations and the overall profile (languages, location, availability).\n\nCandidates:\n", count, position)
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s (%s)\n   - Experience: %s\n   - Skills: %s\n   - Salary: %s\n   - Location: %s\n   - Availability: %s\n   - Languages: %s\n\n",
			i+1, c.Name, c.Position, c.Experience, strings.Join(c.Skills, ", "), c.SalaryExpectation,
			c.Location, c.Availability, strings.Join(c.Languages, ", "))
	}
	fmt.Fprintf(&b, "Provide: the top %d ranked by fit, why each was selected, key strengths and concerns, and an overall recommendation.", count)
	return b.String()
}

func (r *Router) showPositions(t Turn) Result {
	lang := t.lang()
	counts := directory.CountByPosition(t.Candidates)
	if len(counts) == 0 {
		return noData(lang)
	}

	lines := make([]string, 0, len(counts))
	for _, pc := range counts {
		lines = append(lines, fmt.Sprintf(tr(lang, "%s: %d candidatos", "%s: %d candidates"), pc.Position, pc.Count))
	}
	return Result{
		Success: true,
		Message: tr(lang, "Aquí están las posiciones de trabajo disponibles:\n\n", "Here are the available job positions:\n\n") +
			strings.Join(lines, "\n"),
		Data: counts,
	}
}

func (r *Router) provideInfo(a ProvideInfo, t Turn) Result {
	lang := t.lang()
	if len(t.Candidates) == 0 {
		return noData(lang)
	}

	c, res, ok := r.resolveCandidate(a.CandidateName, t)
	if !ok {
		return res
	}

	return Result{
		Success:    true,
		Message:    profile(c, lang),
		Candidates: []directory.Candidate{c},
		Data:       c,
	}
}

func (r *Router) showReferences(a ShowReferences, t Turn) Result {
	lang := t.lang()
	if len(t.Candidates) == 0 {
		return noData(lang)
	}

	if a.CandidateName != "" && !a.AllSelected() {
		c, res, ok := r.resolveCandidate(a.CandidateName, t)
		if !ok {
			return res
		}
		return candidateReferences(c, lang)
	}

	if a.JobPosition != "" {
		inPosition := make([]directory.Candidate, 0)
		lines := make([]string, 0)
		refs := make([]directory.Reference, 0)
		for _, c := range t.Candidates {
			if !c.HasKnownPosition() || !filtering.PositionMatches(c.Position, a.JobPosition) || len(c.References) == 0 {
				continue
			}
			inPosition = append(inPosition, c)
			for _, ref := range c.References {
				refs = append(refs, ref)
				lines = append(lines, fmt.Sprintf(tr(lang, "%d. %s (referencia de %s)\n%s", "%d. %s (reference for %s)\n%s"),
					len(refs), ref.Name, c.Name, referenceDetails(ref, lang)))
			}
		}
		if len(refs) == 0 {
			res := Clarify(KindCandidateNotFound, fmt.Sprintf(tr(lang,
				"No se encontraron referencias para candidatos de la posición %s.",
				"No references found for any candidates in the %s position."), a.JobPosition))
			res.JobPosition = a.JobPosition
			return res
		}
		return Result{
			Success: true,
			Message: fmt.Sprintf(tr(lang, "Referencias de candidatos para %s:\n\n%s", "References for %s candidates:\n\n%s"),
				a.JobPosition, strings.Join(lines, "\n\n")),
			Candidates:  inPosition,
			JobPosition: a.JobPosition,
			Data:        ReferencesData{References: refs, Count: len(refs)},
		}
	}

	if len(t.Context.Candidates) == 1 {
		return candidateReferences(t.Context.Candidates[0], lang)
	}

	return Clarify(KindInvalidRequest, tr(lang,
		"¿De qué candidato o posición quieres ver las referencias?",
		"Which candidate or position do you want to see references for?"))
}

func candidateReferences(c directory.Candidate, lang string) Result {
	data := ReferencesData{Candidate: c.Name, References: c.References, Count: len(c.References)}
	if len(c.References) == 0 {
		return Result{
			Success:    true,
			Message:    fmt.Sprintf(tr(lang, "%s no tiene referencias registradas.", "%s does not have any references on file."), c.Name),
			Candidates: []directory.Candidate{c},
			Data:       data,
		}
	}

	lines := make([]string, 0, len(c.References))
	for i, ref := range c.References {
		lines = append(lines, fmt.Sprintf("%d. %s\n%s", i+1, ref.Name, referenceDetails(ref, lang)))
	}
	return Result{
		Success: true,
		Message: fmt.Sprintf(tr(lang, "Referencias de %s:\n\n%s", "References for %s:\n\n%s"),
			c.Name, strings.Join(lines, "\n\n")),
		Candidates: []directory.Candidate{c},
		Data:       data,
	}
}

// resolveCandidate finds the candidate a request is about: the named one, a directory name written
// in the prompt, a name following "number of" style phrases, or the single remembered candidate.
func (r *Router) resolveCandidate(name string, t Turn) (directory.Candidate, Result, bool) {
	lang := t.lang()
	if name == "" {
		if found := matcher.FindAllInText(t.prompt(), t.Candidates); len(found) == 1 {
			return found[0], Result{}, true
		}
		name = nameFromPhrase(t.prompt())
	}
	if name == "" && len(t.Context.Candidates) == 1 {
		return t.Context.Candidates[0], Result{}, true
	}
	if name == "" {
		return directory.Candidate{}, Clarify(KindCandidateNotFound, tr(lang,
			"¿De qué candidato hablas? Indica su nombre, por favor.",
			"Which candidate do you mean? Please give me their name.")), false
	}

	c, err := matcher.Find(name, t.Candidates)
	if err == nil {
		return c, Result{}, true
	}
	return directory.Candidate{}, matchError(err, name, lang), false
}

func matchError(err error, name, lang string) Result {
	var amb *matcher.AmbiguousError
	if errors.As(err, &amb) {
		res := Clarify(KindAmbiguousCandidate, fmt.Sprintf(tr(lang,
			"Encontré varios candidatos que coinciden con \"%s\": %s. ¿Podrías ser más específico?",
			"I found several candidates matching \"%s\": %s. Could you be more specific?"),
			name, strings.Join(amb.Names, ", ")))
		res.Data = amb.Names
		return res
	}
	return Clarify(KindCandidateNotFound, fmt.Sprintf(tr(lang,
		"No pude encontrar un candidato llamado \"%s\". ¿Podrías verificar la ortografía o proporcionar un nombre diferente?",
		"I could not find a candidate named \"%s\". Could you check the spelling or give a different name?"), name))
}

func nameFromPhrase(prompt string) string {
	for _, re := range namePhraseRes {
		if m := re.FindStringSubmatch(prompt); len(m) == 2 {
			if name := strings.TrimSpace(m[1]); len([]rune(name)) > 2 {
				return name
			}
		}
	}
	return ""
}

// resolvePosition returns the requested position, the remembered one, or the one the prompt and
// recent history point to.
func (r *Router) resolvePosition(ctx context.Context, requested string, t Turn) string {
	if requested = strings.TrimSpace(requested); requested != "" {
		return requested
	}
	if t.Context.JobPosition != "" {
		return t.Context.JobPosition
	}

	positions := directory.Positions(t.Candidates)
	if len(positions) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(t.prompt())
	start := len(t.History) - recentHistory
	if start < 0 {
		start = 0
	}
	for _, turn := range t.History[start:] {
		fmt.Fprintf(&b, "\n%s: %s", turn.Sender, turn.Message)
	}

	if p, ok := r.positions.MatchPosition(ctx, b.String(), positions); ok {
		return p
	}
	return ""
}

func profile(c directory.Candidate, lang string) string {
	na := tr(lang, "No especificado", "Not specified")
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n", c.Name)
	fmt.Fprintf(&b, "Email: %s\n", orDefault(c.Email, na))
	fmt.Fprintf(&b, tr(lang, "Teléfono: %s\n", "Phone: %s\n"), orDefault(c.Phone, na))
	fmt.Fprintf(&b, tr(lang, "Posición: %s\n", "Position: %s\n"), orDefault(c.Position, na))
	fmt.Fprintf(&b, tr(lang, "Estado: %s\n", "Status: %s\n"), c.Status)
	fmt.Fprintf(&b, tr(lang, "Experiencia: %s\n", "Experience: %s\n"), orDefault(c.Experience, na))
	fmt.Fprintf(&b, tr(lang, "Habilidades: %s\n", "Skills: %s\n"), orDefault(strings.Join(c.Skills, ", "), na))
	fmt.Fprintf(&b, tr(lang, "Idiomas: %s\n", "Languages: %s\n"), orDefault(strings.Join(c.Languages, ", "), na))
	fmt.Fprintf(&b, tr(lang, "Ubicación: %s\n", "Location: %s\n"), orDefault(c.Location, na))
	fmt.Fprintf(&b, tr(lang, "Expectativa salarial: %s\n", "Salary expectation: %s\n"), orDefault(c.SalaryExpectation, na))
	fmt.Fprintf(&b, tr(lang, "Disponibilidad: %s", "Availability: %s"), orDefault(c.Availability, na))

	if len(c.Results) > 0 {
		b.WriteString(tr(lang, "\n\nEvaluaciones:\n", "\n\nEvaluations:\n"))
		for _, res := range c.Results {
			fmt.Fprintf(&b, "• %s: %s (%s)\n", res.TestType, res.Score, res.Status)
		}
	}

	if len(c.References) == 0 {
		b.WriteString(tr(lang, "\n\nReferencias: No disponibles", "\n\nReferences: Not available"))
		return b.String()
	}
	fmt.Fprintf(&b, tr(lang, "\n\nReferencias (%d):\n", "\n\nReferences (%d):\n"), len(c.References))
	for i, ref := range c.References {
		fmt.Fprintf(&b, "%d. %s\n%s\n", i+1, ref.Name, referenceDetails(ref, lang))
	}
	return strings.TrimRight(b.String(), "\n")
}

func referenceDetails(ref directory.Reference, lang string) string {
	na := tr(lang, "No disponible", "Not available")
	return fmt.Sprintf(tr(lang,
		"   • Posición: %s\n   • Empresa: %s\n   • Teléfono: %s\n   • Email: %s",
		"   • Position: %s\n   • Company: %s\n   • Phone: %s\n   • Email: %s"),
		orDefault(ref.Position, na), orDefault(ref.Company, na), orDefault(ref.Contact.Phone, na), orDefault(ref.Contact.Email, na))
}

func formatCandidates(candidates []directory.Candidate, lang string, skills int) string {
	na := tr(lang, "No especificado", "Not specified")
	var b strings.Builder
	for i, c := range candidates {
		shown := c.Skills
		more := ""
		if len(shown) > skills {
			shown = shown[:skills]
			more = "..."
		}
		fmt.Fprintf(&b, "**%d. %s**\n", i+1, c.Name)
		fmt.Fprintf(&b, tr(lang, "   Posición: %s\n", "   Position: %s\n"), c.Position)
		fmt.Fprintf(&b, tr(lang, "   Experiencia: %s\n", "   Experience: %s\n"), orDefault(c.Experience, na))
		fmt.Fprintf(&b, tr(lang, "   Habilidades: %s%s\n", "   Skills: %s%s\n"), strings.Join(shown, ", "), more)
		fmt.Fprintf(&b, tr(lang, "   Ubicación: %s\n", "   Location: %s\n"), orDefault(c.Location, na))
		fmt.Fprintf(&b, tr(lang, "   Salario: %s\n\n", "   Salary: %s\n\n"), orDefault(c.SalaryExpectation, na))
	}
	return strings.TrimRight(b.String(), "\n")
}

func capList(candidates []directory.Candidate) []directory.Candidate {
	if len(candidates) > listCap {
		return candidates[:listCap]
	}
	return candidates
}

func noData(lang string) Result {
	return Clarify(KindNoData, tr(lang,
		"No tengo acceso a los datos de candidatos en este momento. Puede deberse a un problema de autenticación o a que los datos no estén disponibles.",
		"I do not have access to candidate data right now. This may be an authentication problem or the data may be unavailable."))
}

func firstNumber(text string) int {
	m := firstNumberRe.FindString(text)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil || n > listCap {
		return 0
	}
	return n
}

// containsWord reports whether any of words appears in lower as a whole word.
func containsWord(lower string, words ...string) bool {
	for _, field := range strings.FieldsFunc(lower, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	}) {
		for _, w := range words {
			if field == w {
				return true
			}
		}
	}
	return false
}
