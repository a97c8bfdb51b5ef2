package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"quotedesk/internal/model"
	"quotedesk/internal/storage"
	"quotedesk/pkg/logger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// requirements needed before a conversation in the requirements stage
// moves on to pricing
const requirementsForPricing = 3

var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrFeatureNotFound = errors.New("feature not found")
)

// QuoteService is the server side of the quoting conversation: it keeps
// conversations, extracts requirements, quotes prices and records orders.
type QuoteService struct {
	storage    storage.Storage
	catalog    *Catalog
	pricer     *Pricer
	responder  Responder
	detector   LanguageDetector
	translator Translator
	now        func() time.Time

	// serializes read-modify-write cycles on conversations
	mu sync.Mutex
}

type Option func(*QuoteService)

// WithLanguage detects the language of incoming messages with detector and
// translates them to English and replies back with translator. Without it
// every message is taken as English.
func WithLanguage(detector LanguageDetector, translator Translator) Option {
	return func(s *QuoteService) {
		s.detector = detector
		s.translator = translator
	}
}

func NewQuoteService(store storage.Storage, catalog *Catalog, pricer *Pricer, responder Responder, opts ...Option) *QuoteService {
	s := &QuoteService{
		storage:    store,
		catalog:    catalog,
		pricer:     pricer,
		responder:  responder,
		detector:   FixedLanguage(defaultLanguage),
		translator: NoopTranslator{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// StageFor derives the conversation stage from how many messages it
// already holds.
func StageFor(messageCount int) model.Stage {
	switch {
	case messageCount <= 2:
		return model.StageGreeting
	case messageCount <= 6:
		return model.StageProductQA
	case messageCount <= 10:
		return model.StageRequirements
	case messageCount <= 12:
		return model.StagePricing
	case messageCount <= 14:
		return model.StageConfirmation
	default:
		return model.StageHandoff
	}
}

func (s *QuoteService) conversationFor(req *model.ChatRequest) (*model.Conversation, error) {
	if req.ConversationID != nil && *req.ConversationID != "" {
		conv, err := s.storage.GetConversation(*req.ConversationID)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, storage.ErrConversationNotFound) {
			return nil, fmt.Errorf("failed to get conversation: %w", err)
		}
		logger.Warnf("Conversation %s not found, starting a new one", *req.ConversationID)
	}

	now := s.now()
	conv := &model.Conversation{
		ID:           uuid.NewString(),
		Messages:     []model.ChatMessage{},
		Requirements: []model.Requirement{},
		Stage:        model.StageGreeting,
		Language:     defaultLanguage,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if req.ClientID != nil {
		conv.ClientID = *req.ClientID
	}

	if err := s.storage.CreateConversation(conv); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

func (s *QuoteService) addMessage(conversationID string, role model.Role, content string) error {
	msg := &model.ChatMessage{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		Timestamp: s.now(),
	}
	if err := s.storage.AddMessage(conversationID, msg); err != nil {
		return fmt.Errorf("failed to add message: %w", err)
	}
	return nil
}

// mergeRequirements adds newly mentioned features, keeping first-mention
// order and skipping features already collected.
func mergeRequirements(existing []model.Requirement, mentioned []model.ProductFeature) []model.Requirement {
	seen := make(map[string]bool, len(existing))
	for _, r := range existing {
		seen[r.FeatureID] = true
	}
	for _, f := range mentioned {
		if seen[f.ID] {
			continue
		}
		seen[f.ID] = true
		existing = append(existing, model.Requirement{
			FeatureID:   f.ID,
			FeatureName: f.Name,
			Required:    true,
		})
	}
	return existing
}

// translate falls back to the untranslated text when translation fails.
func (s *QuoteService) translate(ctx context.Context, text, source, target string) string {
	translated, err := s.translator.Translate(ctx, text, source, target)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"source": source,
			"target": target,
		}).WithError(err).Error("Translation failed")
		return text
	}
	return translated
}

// Chat records the user's message, updates the conversation's requirements
// and stage and produces the assistant's reply. Conversations are kept in
// English; the reply is returned in the language the message was written in.
func (s *QuoteService) Chat(ctx context.Context, req *model.ChatRequest) (*model.ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("%w: message is empty", ErrInvalidRequest)
	}

	language := s.detector.Detect(req.Message)
	message := req.Message
	if language != defaultLanguage {
		message = s.translate(ctx, req.Message, language, defaultLanguage)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.conversationFor(req)
	if err != nil {
		return nil, err
	}

	stage := StageFor(len(conv.Messages))

	if err := s.addMessage(conv.ID, model.RoleUser, message); err != nil {
		return nil, err
	}

	requirements := mergeRequirements(conv.Requirements, s.catalog.MentionedFeatures(message))
	if stage == model.StageRequirements && len(requirements) >= requirementsForPricing {
		stage = model.StagePricing
	}

	history, err := s.storage.GetMessages(conv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	turns := make([]model.ChatMessage, len(history))
	for i, msg := range history {
		turns[i] = *msg
	}

	reply, err := s.responder.Reply(ctx, stage, turns)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"conversation_id": conv.ID,
			"stage":           stage,
		}).WithError(err).Error("Failed to generate reply")
		reply = fallbackReply
	}

	if err := s.addMessage(conv.ID, model.RoleAssistant, reply); err != nil {
		return nil, err
	}

	// AddMessage touched the stored copy; reload before writing metadata.
	conv, err = s.storage.GetConversation(conv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	conv.Requirements = requirements
	conv.Stage = stage
	conv.Language = language
	if conv.ClientID == "" && req.ClientID != nil {
		conv.ClientID = *req.ClientID
	}
	if stage == model.StagePricing && conv.Pricing == nil && len(requirements) > 0 {
		conv.Pricing = s.pricer.Quote(&model.PricingRequest{
			ClientID:     req.ClientID,
			Requirements: requirements,
		})
	}
	conv.UpdatedAt = s.now()

	if err := s.storage.UpdateConversation(conv); err != nil {
		return nil, fmt.Errorf("failed to update conversation: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"conversation_id": conv.ID,
		"stage":           stage,
		"requirements":    len(requirements),
		"language":        language,
	}).Info("Chat turn processed")

	if language != defaultLanguage {
		reply = s.translate(ctx, reply, defaultLanguage, language)
	}

	return &model.ChatResponse{
		ConversationID:   conv.ID,
		Message:          reply,
		Stage:            stage,
		Requirements:     requirements,
		Pricing:          conv.Pricing,
		DetectedLanguage: language,
	}, nil
}

// Price quotes the requirements in req.
func (s *QuoteService) Price(req *model.PricingRequest) *model.PricingQuote {
	quote := s.pricer.Quote(req)
	logger.WithFields(logrus.Fields{
		"requirements": len(req.Requirements),
		"final_price":  quote.FinalPrice,
	}).Info("Pricing generated")
	return quote
}

// Products lists catalog features, narrowed to those matching query and
// belonging to category when either is set.
func (s *QuoteService) Products(category, query string) []model.ProductFeature {
	var features []model.ProductFeature
	switch {
	case query != "":
		for _, f := range s.catalog.Search(query) {
			if category == "" || f.Category == category {
				features = append(features, f)
			}
		}
	case category != "":
		features = s.catalog.FeaturesByCategory(category)
	default:
		features = s.catalog.Features()
	}
	if features == nil {
		features = []model.ProductFeature{}
	}
	return features
}

func (s *QuoteService) Product(featureID string) (model.ProductFeature, error) {
	f, ok := s.catalog.Feature(featureID)
	if !ok {
		return model.ProductFeature{}, fmt.Errorf("%w: %s", ErrFeatureNotFound, featureID)
	}
	return f, nil
}

func newOrderID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "ORD-" + strings.ToUpper(hex[:8])
}

// CreateOrder records an order inquiry at the agreed price.
func (s *QuoteService) CreateOrder(_ context.Context, req *model.OrderRequest) (*model.OrderResponse, error) {
	if req.Price == nil {
		return nil, fmt.Errorf("%w: price is required", ErrInvalidRequest)
	}
	if *req.Price < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidRequest)
	}

	order := &model.OrderInquiry{
		OrderID:        newOrderID(),
		ConversationID: req.ConversationID,
		ClientID:       req.ClientID,
		Requirements:   req.Requirements,
		Price:          *req.Price,
		Currency:       currencyUSD,
		Status:         "created",
		CreatedAt:      s.now(),
	}

	if err := s.storage.SaveOrder(order); err != nil {
		return nil, fmt.Errorf("failed to save order: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"order_id":        order.OrderID,
		"conversation_id": order.ConversationID,
		"client_id":       order.ClientID,
		"price":           order.Price,
	}).Info("Order inquiry created")

	return &model.OrderResponse{
		OrderID: order.OrderID,
		Status:  order.Status,
	}, nil
}

func (s *QuoteService) GetOrder(orderID string) (*model.OrderInquiry, error) {
	return s.storage.GetOrder(orderID)
}

func (s *QuoteService) GetConversation(conversationID string) (*model.Conversation, error) {
	return s.storage.GetConversation(conversationID)
}

func (s *QuoteService) DeleteConversation(conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storage.DeleteConversation(conversationID)
}

func (s *QuoteService) ListConversations() ([]model.ConversationSummary, error) {
	convs, err := s.storage.ListConversations()
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	summaries := make([]model.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		summaries = append(summaries, model.ConversationSummary{
			ID:               conv.ID,
			ClientID:         conv.ClientID,
			Stage:            conv.Stage,
			MessageCount:     len(conv.Messages),
			RequirementCount: len(conv.Requirements),
			CreatedAt:        conv.CreatedAt,
			UpdatedAt:        conv.UpdatedAt,
		})
	}
	return summaries, nil
}

// Backup snapshots the underlying storage.
func (s *QuoteService) Backup() error {
	return s.storage.Backup()
}

// StartBackups runs Backup every interval until ctx ends. A non-positive
// interval disables it.
func (s *QuoteService) StartBackups(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := s.Backup(); err != nil {
					logger.Errorf("Backup failed: %v", err)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
