package model

// ChatRequest is the body of POST /chat as the quoting service accepts it.
type ChatRequest struct {
	Message        string  `json:"message" binding:"required"`
	ConversationID *string `json:"conversation_id"`
	ClientID       *string `json:"client_id"`
}

type PricingRequest struct {
	ClientID     *string       `json:"client_id"`
	Industry     string        `json:"industry,omitempty"`
	CompanySize  string        `json:"company_size,omitempty"`
	Region       string        `json:"region,omitempty"`
	Requirements []Requirement `json:"requirements" binding:"required,dive"`
}

type OrderRequest struct {
	ConversationID string        `json:"conversation_id" binding:"required"`
	ClientID       string        `json:"client_id" binding:"required"`
	Requirements   []Requirement `json:"requirements" binding:"required,dive"`
	Price          *float64      `json:"price" binding:"required"`
}
