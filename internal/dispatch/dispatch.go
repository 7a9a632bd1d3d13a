package dispatch

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spigell/talent-agent/internal/logger"
	"github.com/spigell/talent-agent/internal/utils"
	"go.uber.org/zap"
)

// NoPhoneError is recorded for items that could not be attempted because no number is known.
const NoPhoneError = "No phone number available"

// TemplateParam is a named body parameter of a template message.
type TemplateParam struct {
	Name string
	Text string
}

// Template is a pre-approved provider template.
type Template struct {
	Name       string
	Language   string
	Params     []TemplateParam
	FlowButton bool
}

// Sender delivers single messages and returns the provider message id.
type Sender interface {
	SendText(ctx context.Context, to, body string) (string, error)
	SendTemplate(ctx context.Context, to string, tmpl Template) (string, error)
}

// Item is one message of a batch. Template wins over Body when both are set.
type Item struct {
	Label    string
	Subject  string
	Phone    string
	Body     string
	Template *Template
}

// Result is the per-item outcome of a batch.
type Result struct {
	Label     string `json:"label"`
	Subject   string `json:"subject,omitempty"`
	Phone     string `json:"phone"`
	Success   bool   `json:"success"`
	Skipped   bool   `json:"skipped,omitempty"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Dispatcher sends batches one item at a time.
type Dispatcher struct {
	sender   Sender
	interval time.Duration
	logger   *zap.Logger
}

func New(sender Sender, interval time.Duration, log *zap.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, interval: interval, logger: logger.OrNop(log)}
}

// SendBatch sends items sequentially. A failing item never stops the batch, and items without
// a phone are reported without being attempted. Cancellation marks the remaining items failed.
func (d *Dispatcher) SendBatch(ctx context.Context, items []Item) []Result {
	results := make([]Result, 0, len(items))
	attempted := 0

	for _, item := range items {
		res := Result{Label: item.Label, Subject: item.Subject, Phone: strings.TrimSpace(item.Phone)}

		if res.Phone == "" {
			res.Skipped = true
			res.Error = NoPhoneError
			d.logger.Warn("skipping message without phone", zap.String("label", item.Label))
			results = append(results, res)
			continue
		}

		if err := ctx.Err(); err != nil {
			res.Error = err.Error()
			results = append(results, res)
			continue
		}

		if attempted > 0 && d.interval > 0 {
			if err := utils.WaitFor(ctx, d.interval); err != nil {
				res.Error = err.Error()
				results = append(results, res)
				continue
			}
		}
		attempted++

		id, err := d.send(ctx, item, res.Phone)
		if err != nil {
			res.Error = err.Error()
			d.logger.Warn("message delivery failed",
				zap.String("label", item.Label),
				zap.String("phone", res.Phone),
				zap.Error(err),
			)
		} else {
			res.Success = true
			res.MessageID = id
			d.logger.Info("message delivered",
				zap.String("label", item.Label),
				zap.String("phone", res.Phone),
				zap.String("message_id", id),
			)
		}
		results = append(results, res)
	}

	return results
}

func (d *Dispatcher) send(ctx context.Context, item Item, phone string) (string, error) {
	if d.sender == nil {
		return "", errors.New("message sender is not configured")
	}
	if item.Template != nil {
		return d.sender.SendTemplate(ctx, phone, *item.Template)
	}
	return d.sender.SendText(ctx, phone, item.Body)
}

// Summary counts successful and failed outcomes.
func Summary(results []Result) (sent, failed int) {
	for _, r := range results {
		if r.Success {
			sent++
		} else {
			failed++
		}
	}
	return sent, failed
}
