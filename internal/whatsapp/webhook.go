package whatsapp

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spigell/talent-agent/internal/logger"
	"github.com/spigell/talent-agent/internal/store"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const unknownContact = "Unknown"

// Incoming is a message received through the webhook.
type Incoming struct {
	ID          string    `json:"id"`
	From        string    `json:"from"`
	Text        string    `json:"text"`
	Timestamp   time.Time `json:"timestamp"`
	ContactName string    `json:"contact_name"`
	Type        string    `json:"type"`
}

// ParseWebhook extracts the first message from either a Business Account notification or the
// simple {"from", "message"} shape. It reports false when the payload carries no message.
func ParseWebhook(body []byte, now time.Time) (Incoming, bool) {
	if !gjson.ValidBytes(body) {
		return Incoming{}, false
	}
	doc := gjson.ParseBytes(body)

	if doc.Get("object").String() == "whatsapp_business_account" {
		value := doc.Get("entry.0.changes.0.value")
		msg := value.Get("messages.0")
		if !msg.Exists() {
			return Incoming{}, false
		}

		in := Incoming{
			ID:          msg.Get("id").String(),
			From:        msg.Get("from").String(),
			Text:        msg.Get("text.body").String(),
			Type:        msg.Get("type").String(),
			ContactName: value.Get("contacts.0.profile.name").String(),
			Timestamp:   now.UTC(),
		}
		if secs, err := strconv.ParseInt(msg.Get("timestamp").String(), 10, 64); err == nil && secs > 0 {
			in.Timestamp = time.Unix(secs, 0).UTC()
		}
		if in.ContactName == "" {
			in.ContactName = unknownContact
		}
		if in.ID == "" {
			in.ID = "wa_" + uuid.NewString()
		}
		return in, in.From != ""
	}

	from := doc.Get("from").String()
	text := doc.Get("message").String()
	if from == "" || text == "" {
		return Incoming{}, false
	}
	return Incoming{
		ID:          "simple_" + uuid.NewString(),
		From:        from,
		Text:        text,
		Timestamp:   now.UTC(),
		ContactName: unknownContact,
		Type:        "text",
	}, true
}

// Inbox stores incoming messages and structures the ones that answer a reference request.
type Inbox struct {
	phoneNumberID string
	messages      *store.MessageLog
	references    *store.ReferenceLog
	logger        *zap.Logger
}

func NewInbox(phoneNumberID string, messages *store.MessageLog, references *store.ReferenceLog, log *zap.Logger) *Inbox {
	return &Inbox{phoneNumberID: phoneNumberID, messages: messages, references: references, logger: logger.OrNop(log)}
}

// Received is the outcome of processing one incoming message.
type Received struct {
	Message   store.Message            `json:"message"`
	Reference *store.ReferenceResponse `json:"reference,omitempty"`
}

// Receive saves in to the message log and, when it looks like a reference answer, a structured
// reference response as well.
func (i *Inbox) Receive(in Incoming) (Received, error) {
	isReference := IsReferenceResponse(in.Text)

	saved, err := i.messages.Append(store.Message{
		ID:                  in.ID,
		From:                in.From,
		To:                  i.phoneNumberID,
		Body:                in.Text,
		Type:                store.MessageIncoming,
		Timestamp:           in.Timestamp,
		ContactName:         in.ContactName,
		Status:              "received",
		IsReferenceResponse: isReference,
	})
	if err != nil {
		return Received{}, err
	}
	out := Received{Message: saved}

	if !isReference || i.references == nil {
		return out, nil
	}

	ref := ParseReferenceResponse(in.Text)
	ref.ID = in.ID
	ref.Timestamp = in.Timestamp
	ref.ReferencePhone = in.From
	if strings.TrimSpace(in.ContactName) != "" {
		ref.ReferenceName = in.ContactName
	}

	stored, err := i.references.Save(ref)
	if err != nil {
		i.logger.Warn("saving reference response failed", zap.String("message_id", in.ID), zap.Error(err))
		return out, nil
	}
	i.logger.Info("reference response stored",
		zap.String("reference_phone", stored.ReferencePhone),
		zap.Float64("overall", stored.Rating.Overall),
	)
	out.Reference = &stored
	return out, nil
}
