package model

import "time"

// ChatResponse is what POST /chat returns. Requirements and Pricing are
// omitted until the conversation has produced them.
type ChatResponse struct {
	ConversationID   string        `json:"conversation_id"`
	Message          string        `json:"message"`
	Stage            Stage         `json:"state"`
	Requirements     []Requirement `json:"requirements,omitempty"`
	Pricing          *PricingQuote `json:"pricing,omitempty"`
	DetectedLanguage string        `json:"detected_language"`
}

type PricingQuote struct {
	BasePrice          float64            `json:"base_price"`
	DiscountPercentage *float64           `json:"discount_percentage,omitempty"`
	FinalPrice         float64            `json:"final_price"`
	Currency           string             `json:"currency"`
	Breakdown          map[string]float64 `json:"breakdown,omitempty"`
}

type OrderResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// ErrorResponse carries a failure back to the client; Detail is the only
// field clients read.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

type ConversationSummary struct {
	ID               string    `json:"id"`
	ClientID         string    `json:"client_id,omitempty"`
	Stage            Stage     `json:"stage"`
	MessageCount     int       `json:"message_count"`
	RequirementCount int       `json:"requirement_count"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// ChatReply is the client's typed view of a /chat response record.
type ChatReply struct {
	ConversationID string
	Message        string
	// Requirements is nil when the response carried none; an explicit empty
	// list yields a non-nil empty slice.
	Requirements []Record
	Pricing      Record
}

// ParseChatReply projects the fields the client folds into its state.
func ParseChatReply(rec Record) ChatReply {
	reply := ChatReply{}
	reply.ConversationID, _ = rec.String("conversation_id")
	reply.Message, _ = rec["message"].(string)
	if reqs, ok := rec.Records("requirements"); ok {
		reply.Requirements = reqs
	}
	if pricing, ok := rec.Record("pricing"); ok {
		reply.Pricing = pricing
	}
	return reply
}
