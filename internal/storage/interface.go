package storage

import (
	"quotedesk/internal/model"
)

// Storage keeps the quoting service's conversations and order inquiries.
type Storage interface {
	// conversations
	CreateConversation(conv *model.Conversation) error
	GetConversation(conversationID string) (*model.Conversation, error)
	UpdateConversation(conv *model.Conversation) error
	DeleteConversation(conversationID string) error
	ListConversations() ([]*model.Conversation, error)

	// messages
	AddMessage(conversationID string, message *model.ChatMessage) error
	GetMessages(conversationID string) ([]*model.ChatMessage, error)

	// orders
	SaveOrder(order *model.OrderInquiry) error
	GetOrder(orderID string) (*model.OrderInquiry, error)

	Init() error
	Close() error
	Backup() error
}
