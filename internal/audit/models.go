package audit

import "time"

// Category classifies events for routing and retention.
type Category string

const (
	// CategorySecurity covers authentication outcomes and token issuance.
	CategorySecurity Category = "security"
	// CategoryContent covers changes to localized content.
	CategoryContent Category = "content"
)

// Action names what happened.
type Action string

const (
	ActionLoginSucceeded    Action = "login_succeeded"
	ActionLoginFailed       Action = "login_failed"
	ActionLogout            Action = "logout"
	ActionCodeIssued        Action = "authorization_code_issued"
	ActionTokenIssued       Action = "token_issued"
	ActionResourceCreated   Action = "text_resource_created"
	ActionTranslationStored Action = "translation_stored"
	ActionResourceDeleted   Action = "text_resource_deleted"
)

// Event is emitted from services to capture key actions. It stays
// transport-agnostic so sinks can fan out.
type Event struct {
	Category  Category  `json:"category"`
	Action    Action    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	// Subject is the acting user id, when known.
	Subject   string `json:"subject,omitempty"`
	ClientID  string `json:"client_id,omitempty"`
	Sid       string `json:"sid,omitempty"`
	LangID    string `json:"lang_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}
