package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/talent-agent/internal/directory"
	"github.com/spigell/talent-agent/internal/filtering"
	"github.com/spigell/talent-agent/internal/intent"
	"github.com/spigell/talent-agent/internal/store"
)

var historyKeywords = []string{"recommend", "recomiendo", "recomendación", "best", "mejor", "top", "analysis", "análisis", "candidate", "candidato"}

// narrativeScope picks the candidates a comparison or analysis talks about: the named ones, else
// the first of the resolved position, else the first of the directory.
func (r *Router) narrativeScope(ctx context.Context, p intent.Params, t Turn, limit int) ([]directory.Candidate, string) {
	if len(p.CandidateNames) > 0 {
		if named := byNames(p.CandidateNames, t.Candidates); len(named) > 0 {
			return named, p.JobPosition
		}
	}

	position := r.resolvePosition(ctx, p.JobPosition, t)
	cfg := &filtering.Config{Position: position, Limit: limit, Exclude: p.ExcludeCandidates}
	steps := append([]filtering.Filter{filtering.NewExclude()}, filtering.ListingSteps()...)
	sel, _, err := r.filter(ctx, cfg, steps, t.Candidates)
	if err != nil || sel.Len() == 0 {
		return nil, position
	}
	return sel.Items, position
}

func describeCandidates(candidates []directory.Candidate) string {
	var b strings.Builder
	for i, c := range candidates {
		fmt.Fprintf(&b, "CANDIDATO %d: %s\n- Posición: %s\n- Experiencia: %s\n- Habilidades: %s\n- Idiomas: %s\n- Ubicación: %s\n- Disponibilidad: %s\n\n",
			i+1, c.Name, c.Position, c.Experience, strings.Join(c.Skills, ", "), strings.Join(c.Languages, ", "), c.Location, c.Availability)
	}
	return b.String()
}

func briefList(candidates []directory.Candidate, lang string) string {
	lines := make([]string, 0, len(candidates))
	for _, c := range candidates {
		lines = append(lines, fmt.Sprintf(tr(lang, "- %s: %s de experiencia, habilidades: %s", "- %s: %s experience, skills: %s"),
			c.Name, orDefault(c.Experience, "?"), orDefault(strings.Join(c.Skills, ", "), tr(lang, "ninguna", "none"))))
	}
	return strings.Join(lines, "\n")
}

func (r *Router) compareCandidates(ctx context.Context, a CompareCandidates, t Turn) Result {
	lang := t.lang()
	if len(t.Candidates) == 0 {
		return noData(lang)
	}

	count := a.NumberOfCandidates
	if count <= 0 {
		count = defaultBestCount
	}
	scope, position := r.narrativeScope(ctx, a.Params, t, count)
	if len(scope) == 0 {
		return Clarify(KindCandidateNotFound, tr(lang,
			"No encontré candidatos para comparar. Indica una posición o los nombres de los candidatos.",
			"No candidates found to compare. Please specify a job position or candidate names."))
	}

	target := orDefault(position, tr(lang, "especificada", "specified"))
	system := fmt.Sprintf("Compara los siguientes candidatos para la posición %q. Incluye comparación de habilidades técnicas, "+
		"evaluación de experiencia, dominio de idiomas, un ranking general del mejor al peor con razonamiento breve y "+
		"preguntas de seguimiento para el mejor candidato. %s", target, tr(lang, "Responde en español.", "Answer in English."))

	res := Result{Success: true, Candidates: scope, Total: len(scope), JobPosition: position, Data: directory.Names(scope)}
	if out, ok := r.ask(ctx, system, describeCandidates(scope)); ok {
		res.Message = out
		return res
	}
	res.Message = fmt.Sprintf(tr(lang,
		"No pude generar la comparación en este momento. Estos son los candidatos encontrados:\n\n%s",
		"I could not generate the comparison right now. Here are the candidates found:\n\n%s"), briefList(scope, lang))
	return res
}

func (r *Router) analyzeResume(ctx context.Context, a AnalyzeResume, t Turn) Result {
	lang := t.lang()
	answer := tr(lang, "Responde en español.", "Answer in English.")

	if resume := strings.TrimSpace(a.ResumeText); resume != "" {
		sample := t.Candidates
		if len(sample) > defaultBestCount {
			sample = sample[:defaultBestCount]
		}
		system := "Analiza este currículum en el contexto de los candidatos actuales. Resume fortalezas, debilidades, " +
			"posiciones adecuadas y cómo se compara con los candidatos de muestra. " + answer
		message := fmt.Sprintf("CURRÍCULUM:\n%s\n\nCANDIDATOS DE MUESTRA:\n%s", resume, describeCandidates(sample))
		if out, ok := r.ask(ctx, system, message); ok {
			return Result{Success: true, Message: out}
		}
		return Result{Success: true, Kind: KindUpstreamLLM, Message: tr(lang,
			"No pude analizar el currículum en este momento. Inténtalo de nuevo más tarde.",
			"I could not analyze the resume right now. Please try again later.")}
	}

	if len(t.Candidates) == 0 {
		return noData(lang)
	}
	scope, position := r.narrativeScope(ctx, a.Params, t, narrativeSlice)
	if len(scope) == 0 {
		return Clarify(KindCandidateNotFound, tr(lang,
			"No encontré candidatos para analizar.", "No candidates found to analyze."))
	}

	target := orDefault(position, tr(lang, "la posición abierta", "the open position"))
	system := fmt.Sprintf("Eres un experto en reclutamiento. Analiza los siguientes candidatos y determina cuál es el mejor "+
		"ajuste para %s. Incluye la recomendación del mejor candidato, evaluación de habilidades y experiencia, "+
		"dominio de idiomas, un ranking general y preguntas de seguimiento. %s", target, answer)

	res := Result{Success: true, Candidates: scope, Total: len(scope), JobPosition: position, Data: directory.Names(scope)}
	if out, ok := r.ask(ctx, system, describeCandidates(scope)); ok {
		res.Message = out
		return res
	}
	res.Message = fmt.Sprintf(tr(lang,
		"No pude analizar los candidatos en este momento. Estos son los candidatos para %s:\n\n%s",
		"I could not analyze the candidates right now. Here are the candidates for %s:\n\n%s"), target, briefList(scope, lang))
	return res
}

func (r *Router) scheduleInterview(ctx context.Context, a ScheduleInterview, t Turn) Result {
	lang := t.lang()
	if len(t.Candidates) == 0 && len(t.Context.Candidates) == 0 {
		return noData(lang)
	}

	c, res, ok := r.resolveCandidate(a.CandidateName, t)
	if !ok {
		return res
	}

	position := orDefault(a.JobPosition, c.Position)
	system := "Propón un plan de entrevista para el candidato: formato sugerido, temas clave, preguntas específicas " +
		"y consideraciones para el entrevistador. " + tr(lang, "Responde en español.", "Answer in English.")
	message := fmt.Sprintf("Candidato: %s\nPosición: %s\nExperiencia: %s\nHabilidades: %s\nDisponibilidad: %s",
		c.Name, position, c.Experience, strings.Join(c.Skills, ", "), c.Availability)

	out := Result{Success: true, Candidates: []directory.Candidate{c}, JobPosition: position}
	if plan, ok := r.ask(ctx, system, message); ok {
		out.Message = plan
		return out
	}

	skills := orDefault(strings.Join(c.Skills, ", "), tr(lang, "sus habilidades principales", "their main skills"))
	out.Message = fmt.Sprintf(tr(lang,
		"Plan de entrevista para %s (%s):\n\n• Formato: videollamada de 45 minutos\n• Temas: experiencia reciente, %s\n• Disponibilidad indicada: %s\n• Siguiente paso: confirmar fecha y hora con el candidato",
		"Interview plan for %s (%s):\n\n• Format: 45 minute video call\n• Topics: recent experience, %s\n• Stated availability: %s\n• Next step: confirm date and time with the candidate"),
		c.Name, orDefault(position, "?"), skills, orDefault(c.Availability, "?"))
	return out
}

// analyzeAIHistory answers from the assistant's own recent turns: the last recommendation it gave,
// else a count of the conversation so far.
func (r *Router) analyzeAIHistory(ctx context.Context, t Turn) Result {
	lang := t.lang()
	if len(t.History) == 0 {
		return Result{Success: true, Message: tr(lang,
			"Aún no hay historial en esta conversación.", "There is no history in this conversation yet.")}
	}

	var last *store.ChatTurn
	users, assistant := 0, 0
	for i := range t.History {
		turn := &t.History[i]
		if turn.Sender == store.SenderAI {
			assistant++
			if containsAny(strings.ToLower(turn.Message), historyKeywords) {
				last = turn
			}
			continue
		}
		users++
	}

	if last == nil {
		return Result{Success: true, Message: fmt.Sprintf(tr(lang,
			"Esta conversación tiene %d mensajes tuyos y %d respuestas mías, pero aún no he dado una recomendación.",
			"This conversation has %d messages from you and %d answers from me, but I have not given a recommendation yet."),
			users, assistant)}
	}

	system := "Responde la pregunta del usuario usando solo el análisis previo del asistente. Sé breve. " +
		tr(lang, "Responde en español.", "Answer in English.")
	message := fmt.Sprintf("Análisis previo:\n%s\n\nPregunta: %s", last.Message, t.prompt())
	if out, ok := r.ask(ctx, system, message); ok {
		return Result{Success: true, Message: out, Data: last}
	}
	return Result{Success: true, Message: fmt.Sprintf(tr(lang,
		"Esto fue lo último que recomendé:\n\n%s", "This is what I last recommended:\n\n%s"), last.Message), Data: last}
}

func (r *Router) generalChat(ctx context.Context, t Turn) Result {
	lang := t.lang()
	if len(t.Candidates) == 0 {
		return noData(lang)
	}

	counts := directory.CountByPosition(t.Candidates)
	positions := make([]string, 0, len(counts))
	for _, pc := range counts {
		positions = append(positions, fmt.Sprintf("%s (%d)", pc.Position, pc.Count))
	}

	var history strings.Builder
	start := len(t.History) - recentHistory
	if start < 0 {
		start = 0
	}
	for _, turn := range t.History[start:] {
		fmt.Fprintf(&history, "%s: %s\n", turn.Sender, turn.Message)
	}

	system := fmt.Sprintf("%s Hay %d candidatos en las posiciones: %s. Responde brevemente y sugiere una acción concreta. %s",
		analysisSystemRole, len(t.Candidates), strings.Join(positions, ", "), tr(lang, "Responde en español.", "Answer in English."))
	if out, ok := r.ask(ctx, system, history.String()+"user: "+t.prompt()); ok {
		return Result{Success: true, Message: out}
	}

	return Result{Success: true, Message: fmt.Sprintf(tr(lang,
		"Tengo %d candidatos en %d posiciones. Puedes pedirme, por ejemplo, \"Muestra todos los candidatos\" o \"Muestra las posiciones\".",
		"I have %d candidates across %d positions. You can ask me, for example, \"Show all candidates\" or \"Show positions\"."),
		len(t.Candidates), len(counts))}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
