package summary

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/spigell/talent-agent/internal/store"
)

const samplesPerContact = 3

// Comparison is the joint digest of conversations with several numbers.
type Comparison struct {
	Conversations []Conversation `json:"conversations"`
	Total         int            `json:"total"`
	Incoming      int            `json:"incoming"`
	Outgoing      int            `json:"outgoing"`
	First         time.Time      `json:"first"`
	Last          time.Time      `json:"last"`
	MostActive    string         `json:"mostActive,omitempty"`
	MostRecent    string         `json:"mostRecent,omitempty"`
	WithMessages  int            `json:"withMessages"`

	lang     string
	messages map[string][]store.Message
}

// Compare summarizes each number's conversation and the set as a whole. Numbers are reported in
// lexical order; labels name the contacts when known.
func Compare(byPhone map[string][]store.Message, labels map[string]string, lang string) Comparison {
	phones := make([]string, 0, len(byPhone))
	for p := range byPhone {
		phones = append(phones, p)
	}
	sort.Strings(phones)

	cmp := Comparison{Conversations: make([]Conversation, 0, len(phones)), lang: lang, messages: byPhone}
	bestCount := -1
	var latest time.Time
	for _, p := range phones {
		c := NewConversation(byPhone[p], p, labels[p], lang)
		cmp.Conversations = append(cmp.Conversations, c)

		cmp.Total += c.Total
		cmp.Incoming += c.Incoming
		cmp.Outgoing += c.Outgoing
		if c.Total == 0 {
			continue
		}
		cmp.WithMessages++
		if cmp.First.IsZero() || c.First.Before(cmp.First) {
			cmp.First = c.First
		}
		if c.Last.After(cmp.Last) {
			cmp.Last = c.Last
		}
		if c.Total > bestCount {
			bestCount = c.Total
			cmp.MostActive = p
		}
		if c.Last.After(latest) {
			latest = c.Last
			cmp.MostRecent = p
		}
	}
	return cmp
}

func (c Comparison) Render() string {
	lang := c.lang
	if len(c.Conversations) == 0 {
		return tr(lang, "No hay conversaciones para analizar.", "No conversations to analyze.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, tr(lang, "📊 Análisis de %d candidatos\n\n", "📊 Analysis of %d candidates\n\n"), len(c.Conversations))
	b.WriteString(tr(lang, "📈 Estadísticas generales:\n", "📈 General statistics:\n"))
	fmt.Fprintf(&b, tr(lang, "• Total de mensajes: %d\n", "• Total messages: %d\n"), c.Total)
	fmt.Fprintf(&b, tr(lang, "• Mensajes entrantes: %d\n", "• Incoming messages: %d\n"), c.Incoming)
	fmt.Fprintf(&b, tr(lang, "• Mensajes salientes: %d\n", "• Outgoing messages: %d\n"), c.Outgoing)
	if c.WithMessages > 0 {
		fmt.Fprintf(&b, tr(lang, "• Rango de fechas: %s - %s\n", "• Date range: %s - %s\n"),
			c.First.Format("2006-01-02"), c.Last.Format("2006-01-02"))
		fmt.Fprintf(&b, tr(lang, "\n🏆 Más activo: %s\n", "\n🏆 Most active: %s\n"), c.label(c.MostActive))
		fmt.Fprintf(&b, tr(lang, "🕒 Última actividad: %s\n", "🕒 Last activity: %s\n"), c.label(c.MostRecent))
	}

	b.WriteString(tr(lang, "\nResúmenes por candidato:\n", "\nCandidate summaries:\n"))
	for i, conv := range c.Conversations {
		fmt.Fprintf(&b, tr(lang, "\n%d. 📱 %s: %d mensajes\n", "\n%d. 📱 %s: %d messages\n"), i+1, c.label(conv.Phone), conv.Total)
		if conv.Total == 0 {
			continue
		}
		last := conv.Recent[len(conv.Recent)-1]
		fmt.Fprintf(&b, tr(lang, "   📝 Último mensaje: \"%s\"\n", "   📝 Last message: \"%s\"\n"), preview(last.Body, 50))

		own := c.fromContact(conv)
		fmt.Fprintf(&b, tr(lang, "   💬 Mensajes del candidato: %d\n", "   💬 Candidate messages: %d\n"), len(own))
		for j, m := range own {
			if j == samplesPerContact {
				fmt.Fprintf(&b, tr(lang, "      ... y %d mensajes más\n", "      ... and %d more messages\n"), len(own)-samplesPerContact)
				break
			}
			fmt.Fprintf(&b, "      %d. %s: \"%s\"\n", j+1, m.When().Format(timeLayout), preview(m.Body, 100))
		}
	}

	b.WriteString("\n💡 Insights:\n")
	if c.Total > 0 {
		avg := int(math.Round(float64(c.Total) / float64(len(c.Conversations))))
		fmt.Fprintf(&b, tr(lang, "• Promedio de mensajes por candidato: %d\n", "• Average messages per candidate: %d\n"), avg)
	}
	fmt.Fprintf(&b, tr(lang, "• Candidatos con mensajes: %d/%d\n", "• Candidates with messages: %d/%d\n"), c.WithMessages, len(c.Conversations))
	return b.String()
}

func (c Comparison) label(phone string) string {
	for _, conv := range c.Conversations {
		if conv.Phone == phone && conv.Label != "" {
			return fmt.Sprintf("%s (%s)", conv.Label, phone)
		}
	}
	return phone
}

func (c Comparison) fromContact(conv Conversation) []store.Message {
	out := make([]store.Message, 0)
	msgs := make([]store.Message, len(c.messages[conv.Phone]))
	copy(msgs, c.messages[conv.Phone])
	sort.SliceStable(msgs, func(i, j int) bool { return msgs[i].When().Before(msgs[j].When()) })
	for _, m := range msgs {
		if incoming(m, conv.phoneDigits) {
			out = append(out, m)
		}
	}
	return out
}
