package server

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/spigell/talent-agent/internal/agent"
	"github.com/spigell/talent-agent/internal/directory"
	"github.com/spigell/talent-agent/internal/intent"
	"github.com/spigell/talent-agent/internal/logger"
	"github.com/spigell/talent-agent/internal/matcher"
	"github.com/spigell/talent-agent/internal/store"
	"github.com/spigell/talent-agent/internal/summary"
	"github.com/spigell/talent-agent/internal/whatsapp"
	"go.uber.org/zap"
)

var (
	errNoWhatsApp      = errors.New("whatsapp is not configured")
	errNoConversations = errors.New("conversation storage is not configured")
)

type promptRequest struct {
	Prompt         string `json:"prompt"`
	ConversationID string `json:"conversationId"`
	UserID         string `json:"userId"`
	Language       string `json:"language"`
}

type sendRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

type phonesRequest struct {
	Phones   []string `json:"phones"`
	Language string   `json:"language"`
}

type referenceRequest struct {
	Message       string `json:"message"`
	From          string `json:"from"`
	ContactName   string `json:"contactName"`
	CandidateName string `json:"candidateName"`
}

func bearer(c *fiber.Ctx) string {
	h := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return h
}

func language(c *fiber.Ctx, fallback string) string {
	if l := c.Query("language"); l != "" {
		return l
	}
	if fallback != "" {
		return fallback
	}
	return intent.LanguageES
}

func (s *Server) processPrompt(c *fiber.Ctx) error {
	var req promptRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return fail(c, fiber.StatusBadRequest, "Prompt is required", nil)
	}

	resp := s.agent.Process(c.UserContext(), agent.Request{
		Prompt:         req.Prompt,
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		Token:          bearer(c),
		Language:       req.Language,
	})
	return ok(c, resp.Result.Explanation, resp)
}

func (s *Server) health(c *fiber.Ctx) error {
	data := fiber.Map{
		"status":    "ok",
		"timestamp": s.now().UTC(),
		"whatsapp":  s.whatsapp != nil,
	}
	if s.directory != nil {
		data["cache"] = s.directory.Stats()
	}
	return ok(c, "Talent agent is running", data)
}

func (s *Server) listConversations(c *fiber.Ctx) error {
	if s.conversations == nil {
		return fail(c, fiber.StatusServiceUnavailable, "Conversations are not available", errNoConversations)
	}
	list, err := s.conversations.Conversations(c.UserContext())
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to list conversations", err)
	}
	return ok(c, fmt.Sprintf("%d conversations", len(list)), list)
}

func (s *Server) conversation(c *fiber.Ctx) error {
	if s.conversations == nil {
		return fail(c, fiber.StatusServiceUnavailable, "Conversations are not available", errNoConversations)
	}
	turns, err := s.conversations.History(c.UserContext(), c.Params("id"), historyLimit)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to read the conversation", err)
	}
	if len(turns) == 0 {
		return fail(c, fiber.StatusNotFound, "Conversation not found", nil)
	}
	return ok(c, "", turns)
}

func (s *Server) deleteConversation(c *fiber.Ctx) error {
	id := c.Params("id")
	if s.agent != nil {
		s.agent.Forget(id)
	}
	if s.conversations == nil {
		return ok(c, "Conversation context cleared", nil)
	}

	deleted, err := s.conversations.Delete(c.UserContext(), id)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to delete the conversation", err)
	}
	if !deleted {
		return fail(c, fiber.StatusNotFound, "Conversation not found", nil)
	}
	s.logger.Info("conversation deleted", logger.ConversationFields(id, "")...)
	return ok(c, "Conversation deleted", nil)
}

func (s *Server) sendWhatsApp(c *fiber.Ctx) error {
	if s.whatsapp == nil {
		return fail(c, fiber.StatusServiceUnavailable, "WhatsApp is not configured", errNoWhatsApp)
	}

	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if strings.TrimSpace(req.To) == "" || strings.TrimSpace(req.Message) == "" {
		return fail(c, fiber.StatusBadRequest, "Both 'to' and 'message' are required", nil)
	}
	phone, valid := s.phones.Normalize(req.To)
	if !valid {
		return fail(c, fiber.StatusBadRequest, fmt.Sprintf("Invalid phone number: %s", req.To), nil)
	}

	id, err := s.whatsapp.SendText(c.UserContext(), phone, req.Message)
	if err != nil {
		s.logger.Warn("sending whatsapp message failed", zap.String("to", phone), zap.Error(err))
		return fail(c, fiber.StatusBadGateway, "Failed to send the message", err)
	}
	return ok(c, "Message sent", fiber.Map{"messageId": id, "to": phone})
}

func (s *Server) allMessages(c *fiber.Ctx) error {
	if s.messages == nil {
		return ok(c, "0 messages", []store.Message{})
	}
	all, err := s.messages.All()
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to read messages", err)
	}
	return ok(c, fmt.Sprintf("%d messages", len(all)), all)
}

func (s *Server) retrieveMessages(c *fiber.Ctx) error {
	phone := strings.TrimSpace(c.Query("phone"))
	if phone == "" {
		return fail(c, fiber.StatusBadRequest, "Query parameter 'phone' is required", nil)
	}

	var messages []store.Message
	if s.messages != nil {
		var err error
		if messages, err = s.messages.ByPhone(phone); err != nil {
			return fail(c, fiber.StatusInternalServerError, "Failed to read messages", err)
		}
	}

	conv := summary.NewConversation(messages, phone, "", language(c, ""))
	return ok(c, conv.Render(), fiber.Map{"messages": messages, "summary": conv})
}

func (s *Server) retrieveMultipleMessages(c *fiber.Ctx) error {
	var req phonesRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if len(req.Phones) == 0 {
		return fail(c, fiber.StatusBadRequest, "At least one phone number is required", nil)
	}

	byPhone := make(map[string][]store.Message, len(req.Phones))
	for _, p := range req.Phones {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		var messages []store.Message
		if s.messages != nil {
			var err error
			if messages, err = s.messages.ByPhone(p); err != nil {
				return fail(c, fiber.StatusInternalServerError, "Failed to read messages", err)
			}
		}
		byPhone[p] = messages
	}

	cmp := summary.Compare(byPhone, nil, language(c, req.Language))
	return ok(c, cmp.Render(), cmp)
}

func (s *Server) verifyWebhook(c *fiber.Ctx) error {
	if s.whatsapp == nil {
		return fail(c, fiber.StatusServiceUnavailable, "WhatsApp is not configured", errNoWhatsApp)
	}
	challenge, verified := s.whatsapp.Verify(c.Query("hub.mode"), c.Query("hub.verify_token"), c.Query("hub.challenge"))
	if !verified {
		s.logger.Warn("webhook verification failed", zap.String("mode", c.Query("hub.mode")))
		return fail(c, fiber.StatusForbidden, "Verification failed", nil)
	}
	return c.Status(fiber.StatusOK).SendString(challenge)
}

func (s *Server) receiveWebhook(c *fiber.Ctx) error {
	in, found := whatsapp.ParseWebhook(c.Body(), s.now())
	if !found {
		return ok(c, "No message in payload", nil)
	}
	if s.inbox == nil {
		return fail(c, fiber.StatusServiceUnavailable, "Message storage is not configured", errNoWhatsApp)
	}

	received, err := s.inbox.Receive(in)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to store the message", err)
	}
	s.logger.Info("whatsapp message received",
		zap.String("from", in.From),
		zap.Bool("reference", received.Reference != nil),
	)
	return ok(c, "Message received", received)
}

func (s *Server) structuredReferences(c *fiber.Ctx) error {
	if s.references == nil {
		return ok(c, "0 reference responses", fiber.Map{"responses": []store.ReferenceResponse{}})
	}

	var (
		responses []store.ReferenceResponse
		err       error
	)
	if name, phone := c.Query("candidate"), c.Query("phone"); name != "" || phone != "" {
		responses, err = s.references.ByCandidate(name, phone)
	} else {
		responses, err = s.references.All()
	}
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to read reference responses", err)
	}

	return ok(c, summary.RenderReferences(responses, language(c, "")), fiber.Map{
		"responses": responses,
		"stats":     summary.AnalyzeReferences(responses, s.now()),
	})
}

func (s *Server) saveReference(c *fiber.Ctx) error {
	if s.references == nil {
		return fail(c, fiber.StatusServiceUnavailable, "Reference storage is not configured", nil)
	}

	var req referenceRequest
	if err := c.BodyParser(&req); err != nil {
		return fail(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if strings.TrimSpace(req.Message) == "" {
		return fail(c, fiber.StatusBadRequest, "Field 'message' is required", nil)
	}

	ref := whatsapp.ParseReferenceResponse(req.Message)
	ref.Timestamp = s.now().UTC()
	ref.ReferencePhone = req.From
	ref.ReferenceName = req.ContactName
	ref.CandidateName = req.CandidateName

	saved, err := s.references.Save(ref)
	if err != nil {
		return fail(c, fiber.StatusInternalServerError, "Failed to save the reference response", err)
	}
	return ok(c, "Reference response saved", saved)
}

func (s *Server) cacheStats(c *fiber.Ctx) error {
	if s.directory == nil {
		return ok(c, "", directory.CacheStats{Keys: []string{}})
	}
	return ok(c, "", s.directory.Stats())
}

func (s *Server) clearCache(c *fiber.Ctx) error {
	if s.directory != nil {
		s.directory.ClearCache()
	}
	s.logger.Info("candidate cache cleared")
	return ok(c, "Cache cleared", nil)
}

func (s *Server) candidates(c *fiber.Ctx) error {
	if s.directory == nil {
		return fail(c, fiber.StatusServiceUnavailable, "Candidate directory is not configured", nil)
	}
	all := s.directory.Fetch(c.UserContext(), bearer(c), c.Query("userId"))

	name := strings.TrimSpace(c.Params("name"))
	if name == "" {
		return ok(c, fmt.Sprintf("%d candidates", len(all)), all)
	}

	found, err := matcher.Find(name, all)
	var amb *matcher.AmbiguousError
	switch {
	case errors.As(err, &amb):
		return fail(c, fiber.StatusConflict, fmt.Sprintf("Several candidates match %q: %s", name, strings.Join(amb.Names, ", ")), err)
	case err != nil:
		return fail(c, fiber.StatusNotFound, fmt.Sprintf("Candidate %q not found", name), err)
	}
	return ok(c, found.Name, found)
}
