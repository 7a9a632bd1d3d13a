package store

import "time"

const (
	MessageIncoming = "incoming"
	MessageOutgoing = "outgoing"
)

// Message is one WhatsApp message kept in the local log.
type Message struct {
	ID                  string    `json:"id"`
	From                string    `json:"from"`
	To                  string    `json:"to"`
	Body                string    `json:"message"`
	Type                string    `json:"type"`
	Timestamp           time.Time `json:"timestamp"`
	SavedAt             time.Time `json:"saved_at"`
	Status              string    `json:"status,omitempty"`
	ContactName         string    `json:"contact_name,omitempty"`
	IsReferenceResponse bool      `json:"is_reference_response,omitempty"`
}

// When returns the timestamp, or the save time when the timestamp is unknown.
func (m Message) When() time.Time {
	if m.Timestamp.IsZero() {
		return m.SavedAt
	}
	return m.Timestamp
}

// Ratings are 0..10 scores. Zero means not rated.
type Ratings struct {
	Overall         float64 `json:"overall"`
	Reliability     float64 `json:"reliability"`
	Teamwork        float64 `json:"teamwork"`
	Communication   float64 `json:"communication"`
	TechnicalSkills float64 `json:"technical_skills"`
	Leadership      float64 `json:"leadership"`
	ProblemSolving  float64 `json:"problem_solving"`
	WorkEthic       float64 `json:"work_ethic"`
}

const (
	RecommendYes     = "yes"
	RecommendNo      = "no"
	RecommendMaybe   = "maybe"
	RecommendUnknown = "unknown"

	QualityDetailed   = "detailed"
	QualityBrief      = "brief"
	QualityIncomplete = "incomplete"
	QualityUnknown    = "unknown"

	StatusPendingReview = "pending_review"
	StatusApproved      = "approved"
	StatusRejected      = "rejected"
)

// ReferenceResponse is a structured answer from a reference to the reference template.
type ReferenceResponse struct {
	ID                 string    `json:"id"`
	Timestamp          time.Time `json:"timestamp"`
	SavedAt            time.Time `json:"saved_at"`
	ReferenceName      string    `json:"reference_name"`
	ReferencePhone     string    `json:"reference_phone"`
	CandidateName      string    `json:"candidate_name"`
	CandidatePhone     string    `json:"candidate_phone,omitempty"`
	Rating             Ratings   `json:"rating"`
	Relationship       string    `json:"relationship"`
	Duration           string    `json:"duration"`
	WillingToRecommend string    `json:"willingness_to_recommend"`
	ResponseQuality    string    `json:"response_quality"`
	RawText            string    `json:"response_text"`
	Status             string    `json:"status"`
}

// When returns the timestamp, or the save time when the timestamp is unknown.
func (r ReferenceResponse) When() time.Time {
	if r.Timestamp.IsZero() {
		return r.SavedAt
	}
	return r.Timestamp
}

const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// ChatTurn is one line of a recruiter conversation with the assistant.
type ChatTurn struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversationId"`
	Sender         string    `json:"sender"`
	Message        string    `json:"message"`
	Timestamp      time.Time `json:"timestamp"`
}

// ConversationInfo summarizes a stored conversation.
type ConversationInfo struct {
	ID        string    `json:"id"`
	Turns     int       `json:"turns"`
	UpdatedAt time.Time `json:"updatedAt"`
}
