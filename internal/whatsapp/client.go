package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/spigell/talent-agent/internal/dispatch"
	"github.com/spigell/talent-agent/internal/logger"
	"github.com/spigell/talent-agent/internal/store"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL    = "https://graph.facebook.com"
	DefaultAPIVersion = "v21.0"
	defaultTimeout    = 10 * time.Second
	messagingProduct  = "whatsapp"
)

// ErrNotConfigured is returned when the access token or phone number id is missing.
var ErrNotConfigured = errors.New("whatsapp is not configured")

type Config struct {
	Token         string
	PhoneNumberID string
	APIVersion    string
	BaseURL       string
	VerifyToken   string
	Timeout       time.Duration
}

// Client sends messages through the WhatsApp Business Cloud API.
type Client struct {
	http          *resty.Client
	phoneNumberID string
	verifyToken   string
	messages      *store.MessageLog
	logger        *zap.Logger
}

var _ dispatch.Sender = (*Client)(nil)

// New validates cfg and builds a client. Outgoing messages are appended to messages when it is
// not nil.
func New(cfg Config, messages *store.MessageLog, log *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.Token) == "" {
		return nil, fmt.Errorf("%w: access token is required", ErrNotConfigured)
	}
	if strings.TrimSpace(cfg.PhoneNumberID) == "" {
		return nil, fmt.Errorf("%w: phone number id is required", ErrNotConfigured)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	http := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")+"/"+cfg.APIVersion).
		SetTimeout(cfg.Timeout).
		SetAuthToken(strings.TrimSpace(cfg.Token)).
		SetHeader("Content-Type", "application/json")

	return &Client{
		http:          http,
		phoneNumberID: strings.TrimSpace(cfg.PhoneNumberID),
		verifyToken:   cfg.VerifyToken,
		messages:      messages,
		logger:        logger.OrNop(log),
	}, nil
}

func (c *Client) PhoneNumberID() string { return c.phoneNumberID }

// SendText sends a free-form text message and returns the provider message id.
func (c *Client) SendText(ctx context.Context, to, body string) (string, error) {
	payload := map[string]any{
		"messaging_product": messagingProduct,
		"to":                to,
		"type":              "text",
		"text":              map[string]any{"body": body},
	}

	id, err := c.post(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("send text message: %w", err)
	}

	c.record(store.Message{ID: id, From: c.phoneNumberID, To: to, Body: body, Type: store.MessageOutgoing, Status: "sent"})
	return id, nil
}

// SendTemplate sends a pre-approved template message.
func (c *Client) SendTemplate(ctx context.Context, to string, tmpl dispatch.Template) (string, error) {
	lang := tmpl.Language
	if lang == "" {
		lang = "es"
	}

	components := make([]map[string]any, 0, 2)
	if len(tmpl.Params) > 0 {
		params := make([]map[string]any, 0, len(tmpl.Params))
		for _, p := range tmpl.Params {
			param := map[string]any{"type": "text", "text": p.Text}
			if p.Name != "" {
				param["parameter_name"] = p.Name
			}
			params = append(params, param)
		}
		components = append(components, map[string]any{"type": "body", "parameters": params})
	}
	if tmpl.FlowButton {
		components = append(components, map[string]any{
			"type":       "button",
			"sub_type":   "flow",
			"index":      "0",
			"parameters": []map[string]any{{"type": "action", "action": map[string]any{}}},
		})
	}

	payload := map[string]any{
		"messaging_product": messagingProduct,
		"to":                to,
		"type":              "template",
		"template": map[string]any{
			"name":       tmpl.Name,
			"language":   map[string]any{"code": lang, "policy": "deterministic"},
			"components": components,
		},
	}

	id, err := c.post(ctx, payload)
	if err != nil {
		return "", fmt.Errorf("send template %s: %w", tmpl.Name, err)
	}

	c.record(store.Message{
		ID:     id,
		From:   c.phoneNumberID,
		To:     to,
		Body:   "[template] " + tmpl.Name,
		Type:   store.MessageOutgoing,
		Status: "sent",
	})
	return id, nil
}

func (c *Client) post(ctx context.Context, payload map[string]any) (string, error) {
	c.logger.Debug("make request", zap.String("path", "/"+c.phoneNumberID+"/messages"))

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post("/" + c.phoneNumberID + "/messages")
	if err != nil {
		return "", err
	}

	body := resp.String()
	if resp.IsError() {
		if msg := gjson.Get(body, "error.message").String(); msg != "" {
			return "", fmt.Errorf("bad status: %s: %s", resp.Status(), msg)
		}
		return "", fmt.Errorf("bad status: %s", resp.Status())
	}

	id := gjson.Get(body, "messages.0.id").String()
	if id == "" {
		return "", errors.New("response has no message id")
	}
	return id, nil
}

func (c *Client) record(m store.Message) {
	if c.messages == nil {
		return
	}
	if _, err := c.messages.Append(m); err != nil {
		c.logger.Warn("saving outgoing message failed", zap.String("message_id", m.ID), zap.Error(err))
	}
}

// Verify answers the webhook subscription handshake.
func (c *Client) Verify(mode, token, challenge string) (string, bool) {
	if mode != "subscribe" || c.verifyToken == "" || token != c.verifyToken {
		return "", false
	}
	return challenge, true
}
