package storage

import (
	"maps"
	"slices"
	"sort"
	"sync"

	"quotedesk/internal/model"
)

type MemoryStorage struct {
	conversations map[string]*model.Conversation
	orders        map[string]*model.OrderInquiry
	mu            sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		conversations: make(map[string]*model.Conversation),
		orders:        make(map[string]*model.OrderInquiry),
	}
}

func (m *MemoryStorage) Init() error {
	return nil
}

func (m *MemoryStorage) Close() error {
	return nil
}

func (m *MemoryStorage) Backup() error {
	return nil
}

func (m *MemoryStorage) CreateConversation(conv *model.Conversation) error {
	if conv == nil || conv.ID == "" {
		return ErrInvalidData
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.conversations[conv.ID] = copyConversation(conv)
	return nil
}

func (m *MemoryStorage) GetConversation(conversationID string) (*model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, exists := m.conversations[conversationID]
	if !exists {
		return nil, ErrConversationNotFound
	}

	return copyConversation(conv), nil
}

func (m *MemoryStorage) UpdateConversation(conv *model.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.conversations[conv.ID]; !exists {
		return ErrConversationNotFound
	}

	m.conversations[conv.ID] = copyConversation(conv)
	return nil
}

func (m *MemoryStorage) DeleteConversation(conversationID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.conversations[conversationID]; !exists {
		return ErrConversationNotFound
	}

	delete(m.conversations, conversationID)
	return nil
}

// ListConversations returns the most recently updated first.
func (m *MemoryStorage) ListConversations() ([]*model.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	convs := make([]*model.Conversation, 0, len(m.conversations))
	for _, conv := range m.conversations {
		convs = append(convs, copyConversation(conv))
	}

	sort.Slice(convs, func(i, j int) bool {
		return convs[i].UpdatedAt.After(convs[j].UpdatedAt)
	})

	return convs, nil
}

func (m *MemoryStorage) AddMessage(conversationID string, message *model.ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, exists := m.conversations[conversationID]
	if !exists {
		return ErrConversationNotFound
	}

	conv.Messages = append(conv.Messages, *message)
	if message.Timestamp.After(conv.UpdatedAt) {
		conv.UpdatedAt = message.Timestamp
	}
	return nil
}

func (m *MemoryStorage) GetMessages(conversationID string) ([]*model.ChatMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, exists := m.conversations[conversationID]
	if !exists {
		return nil, ErrConversationNotFound
	}

	messages := make([]*model.ChatMessage, len(conv.Messages))
	for i := range conv.Messages {
		msg := conv.Messages[i]
		messages[i] = &msg
	}

	return messages, nil
}

func (m *MemoryStorage) SaveOrder(order *model.OrderInquiry) error {
	if order == nil || order.OrderID == "" {
		return ErrInvalidData
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	saved := *order
	saved.Requirements = slices.Clone(order.Requirements)
	m.orders[order.OrderID] = &saved
	return nil
}

func (m *MemoryStorage) GetOrder(orderID string) (*model.OrderInquiry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	order, exists := m.orders[orderID]
	if !exists {
		return nil, ErrOrderNotFound
	}

	out := *order
	out.Requirements = slices.Clone(order.Requirements)
	return &out, nil
}

// copyConversation detaches the stored value from the caller's pointer so a
// handler mutating its copy cannot skip UpdateConversation.
func copyConversation(conv *model.Conversation) *model.Conversation {
	out := *conv
	out.Messages = slices.Clone(conv.Messages)
	out.Requirements = slices.Clone(conv.Requirements)
	if conv.Pricing != nil {
		pricing := *conv.Pricing
		pricing.Breakdown = maps.Clone(conv.Pricing.Breakdown)
		out.Pricing = &pricing
	}
	return &out
}
