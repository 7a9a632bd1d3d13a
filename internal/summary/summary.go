// Package summary turns message and reference-response logs into statistics and bilingual text.
// It performs no I/O.
package summary

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/spigell/talent-agent/internal/store"
)

const (
	recentMessages  = 5
	previewLength   = 80
	timeLayout      = "2006-01-02 15:04"
	languageEnglish = "en"
)

func tr(lang, es, en string) string {
	if lang == languageEnglish {
		return en
	}
	return es
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func preview(s string, n int) string {
	r := []rune(strings.TrimSpace(s))
	if len(r) <= n {
		return string(r)
	}
	return string(r[:n]) + "..."
}

func digits(s string) string {
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b = append(b, s[i])
		}
	}
	return string(b)
}

// incoming reports whether m was written by the contact behind phone.
func incoming(m store.Message, phoneDigits string) bool {
	switch m.Type {
	case store.MessageIncoming:
		return true
	case store.MessageOutgoing:
		return false
	default:
		return phoneDigits != "" && digits(m.From) == phoneDigits
	}
}

// Conversation is the digest of the messages exchanged with one number.
type Conversation struct {
	Phone         string          `json:"phone"`
	Label         string          `json:"label,omitempty"`
	Total         int             `json:"total"`
	Incoming      int             `json:"incoming"`
	Outgoing      int             `json:"outgoing"`
	DurationHours float64         `json:"durationHours"`
	First         time.Time       `json:"first"`
	Last          time.Time       `json:"last"`
	Recent        []store.Message `json:"recent"`

	lang        string
	phoneDigits string
}

// NewConversation summarizes messages exchanged with phone. Label names the contact when known.
func NewConversation(messages []store.Message, phone, label, lang string) Conversation {
	sorted := make([]store.Message, len(messages))
	copy(sorted, messages)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].When().Before(sorted[j].When()) })

	c := Conversation{Phone: phone, Label: label, Total: len(sorted), lang: lang, phoneDigits: digits(phone)}
	if len(sorted) == 0 {
		c.Recent = []store.Message{}
		return c
	}

	for _, m := range sorted {
		if incoming(m, c.phoneDigits) {
			c.Incoming++
		} else {
			c.Outgoing++
		}
	}

	c.First = sorted[0].When()
	c.Last = sorted[len(sorted)-1].When()
	if len(sorted) > 1 {
		c.DurationHours = round2(c.Last.Sub(c.First).Hours())
	}

	start := len(sorted) - recentMessages
	if start < 0 {
		start = 0
	}
	c.Recent = sorted[start:]
	return c
}

func (c Conversation) Render() string {
	lang := c.lang
	if c.Total == 0 {
		return tr(lang, "No hay mensajes en esta conversación.", "No messages in this conversation.")
	}

	name := c.Label
	if name == "" {
		name = c.Phone
	}

	var b strings.Builder
	fmt.Fprintf(&b, tr(lang, "📱 Conversación con %s\n\n", "📱 Conversation with %s\n\n"), name)
	b.WriteString(tr(lang, "📊 Resumen:\n", "📊 Summary:\n"))
	fmt.Fprintf(&b, tr(lang, "• Total de mensajes: %d\n", "• Total messages: %d\n"), c.Total)
	fmt.Fprintf(&b, tr(lang, "• Mensajes entrantes: %d\n", "• Incoming messages: %d\n"), c.Incoming)
	fmt.Fprintf(&b, tr(lang, "• Mensajes salientes: %d\n", "• Outgoing messages: %d\n"), c.Outgoing)
	fmt.Fprintf(&b, tr(lang, "• Duración: %g horas\n", "• Duration: %g hours\n"), c.DurationHours)
	fmt.Fprintf(&b, tr(lang, "• Primer mensaje: %s\n", "• First message: %s\n"), c.First.Format(timeLayout))
	fmt.Fprintf(&b, tr(lang, "• Último mensaje: %s\n", "• Last message: %s\n"), c.Last.Format(timeLayout))

	b.WriteString(tr(lang, "\n📈 Últimos 5 mensajes:\n", "\n📈 Last 5 messages:\n"))
	for i, m := range c.Recent {
		direction := "📤"
		if incoming(m, c.phoneDigits) {
			direction = "📥"
		}
		body := m.Body
		if strings.TrimSpace(body) == "" {
			body = tr(lang, "Sin contenido", "No content")
		}
		fmt.Fprintf(&b, "%d. %s %s: %s\n", i+1, direction, m.When().Format(timeLayout), preview(body, previewLength))
	}
	return b.String()
}
