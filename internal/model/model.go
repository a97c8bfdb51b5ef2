package model

import "time"

// Message is one entry of the client-side chat transcript.
type Message struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	IsUser    bool      `json:"is_user"`
	Timestamp time.Time `json:"timestamp"`
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Stage is where the quoting service believes a conversation is.
type Stage string

const (
	StageGreeting     Stage = "greeting"
	StageProductQA    Stage = "product_qa"
	StageRequirements Stage = "requirements"
	StagePricing      Stage = "pricing"
	StageConfirmation Stage = "confirmation"
	StageHandoff      Stage = "handoff"
)

type ChatMessage struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is the quoting service's record of a chat.
type Conversation struct {
	ID           string        `json:"id"`
	ClientID     string        `json:"client_id,omitempty"`
	Messages     []ChatMessage `json:"messages"`
	Requirements []Requirement `json:"requirements"`
	Pricing      *PricingQuote `json:"pricing,omitempty"`
	Stage        Stage         `json:"stage"`
	Language     string        `json:"language"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Requirement is a product feature a client asked for.
type Requirement struct {
	FeatureID   string `json:"feature_id" binding:"required"`
	FeatureName string `json:"feature_name" binding:"required"`
	Required    bool   `json:"required"`
	Quantity    *int   `json:"quantity,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

type ProductFeature struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	BasePrice   float64 `json:"base_price"`
	IsAddon     bool    `json:"is_addon"`
	Category    string  `json:"category"`
}

// PricingHistory is a past deal used to calibrate margins.
type PricingHistory struct {
	ClientID     string
	Industry     string
	CompanySize  string
	Region       string
	Features     []string
	BasePrice    float64
	FinalPrice   float64
	MarginFactor float64
}

type OrderInquiry struct {
	OrderID        string        `json:"order_id"`
	ConversationID string        `json:"conversation_id"`
	ClientID       string        `json:"client_id"`
	Requirements   []Requirement `json:"requirements"`
	Price          float64       `json:"price"`
	Currency       string        `json:"currency"`
	Status         string        `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
}
