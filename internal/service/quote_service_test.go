package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"quotedesk/internal/model"
	"quotedesk/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubResponder struct {
	reply     string
	err       error
	stages    []model.Stage
	histories [][]model.ChatMessage
}

func (r *stubResponder) Reply(_ context.Context, stage model.Stage, history []model.ChatMessage) (string, error) {
	r.stages = append(r.stages, stage)
	r.histories = append(r.histories, history)
	return r.reply, r.err
}

func newTestQuoteService(responder Responder) (*QuoteService, *storage.MemoryStorage) {
	store := storage.NewMemoryStorage()
	catalog := DefaultCatalog()
	return NewQuoteService(store, catalog, NewPricer(catalog, constant(0.5)), responder), store
}

func strPtr(s string) *string {
	return &s
}

func TestStageFor(t *testing.T) {
	tests := []struct {
		count int
		want  model.Stage
	}{
		{0, model.StageGreeting},
		{2, model.StageGreeting},
		{3, model.StageProductQA},
		{6, model.StageProductQA},
		{7, model.StageRequirements},
		{10, model.StageRequirements},
		{11, model.StagePricing},
		{12, model.StagePricing},
		{13, model.StageConfirmation},
		{14, model.StageConfirmation},
		{15, model.StageHandoff},
		{100, model.StageHandoff},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StageFor(tt.count), "count %d", tt.count)
	}
}

func TestChatCreatesConversation(t *testing.T) {
	responder := &stubResponder{reply: "Welcome!"}
	svc, store := newTestQuoteService(responder)

	resp, err := svc.Chat(context.Background(), &model.ChatRequest{
		Message:  "Hello",
		ClientID: strPtr("client-001"),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.ConversationID)
	assert.Equal(t, "Welcome!", resp.Message)
	assert.Equal(t, model.StageGreeting, resp.Stage)
	assert.Empty(t, resp.Requirements)
	assert.Nil(t, resp.Pricing)
	assert.Equal(t, "en", resp.DetectedLanguage)

	conv, err := store.GetConversation(resp.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "client-001", conv.ClientID)
	assert.Equal(t, "en", conv.Language)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, model.RoleUser, conv.Messages[0].Role)
	assert.Equal(t, "Hello", conv.Messages[0].Content)
	assert.Equal(t, model.RoleAssistant, conv.Messages[1].Role)
	assert.Equal(t, "Welcome!", conv.Messages[1].Content)

	// the responder sees the user's message
	require.Len(t, responder.histories, 1)
	require.Len(t, responder.histories[0], 1)
	assert.Equal(t, "Hello", responder.histories[0][0].Content)
}

func TestChatContinuesConversation(t *testing.T) {
	svc, _ := newTestQuoteService(&stubResponder{reply: "ok"})
	ctx := context.Background()

	first, err := svc.Chat(ctx, &model.ChatRequest{Message: "one"})
	require.NoError(t, err)
	second, err := svc.Chat(ctx, &model.ChatRequest{Message: "two", ConversationID: strPtr(first.ConversationID)})
	require.NoError(t, err)

	assert.Equal(t, first.ConversationID, second.ConversationID)

	conv, err := svc.GetConversation(first.ConversationID)
	require.NoError(t, err)
	assert.Len(t, conv.Messages, 4)
}

func TestChatUnknownConversationStartsNewOne(t *testing.T) {
	svc, _ := newTestQuoteService(&stubResponder{reply: "ok"})

	resp, err := svc.Chat(context.Background(), &model.ChatRequest{Message: "hi", ConversationID: strPtr("missing")})
	require.NoError(t, err)
	assert.NotEqual(t, "missing", resp.ConversationID)
	assert.NotEmpty(t, resp.ConversationID)
}

func TestChatRejectsBlankMessage(t *testing.T) {
	svc, _ := newTestQuoteService(&stubResponder{reply: "ok"})

	_, err := svc.Chat(context.Background(), &model.ChatRequest{Message: "   "})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestChatExtractsRequirementsWithoutDuplicates(t *testing.T) {
	svc, _ := newTestQuoteService(&stubResponder{reply: "ok"})
	ctx := context.Background()

	resp, err := svc.Chat(ctx, &model.ChatRequest{Message: "We need basic integration and mobile access"})
	require.NoError(t, err)
	require.Len(t, resp.Requirements, 2)
	assert.Equal(t, "feat-001", resp.Requirements[0].FeatureID)
	assert.Equal(t, "Basic Integration", resp.Requirements[0].FeatureName)
	assert.True(t, resp.Requirements[0].Required)
	assert.Equal(t, "feat-006", resp.Requirements[1].FeatureID)

	resp, err = svc.Chat(ctx, &model.ChatRequest{
		Message:        "Mobile Access again, plus Data Migration",
		ConversationID: strPtr(resp.ConversationID),
	})
	require.NoError(t, err)
	require.Len(t, resp.Requirements, 3)
	assert.Equal(t, "feat-008", resp.Requirements[2].FeatureID)
}

func TestChatWalksThroughStages(t *testing.T) {
	responder := &stubResponder{reply: "ok"}
	svc, _ := newTestQuoteService(responder)
	ctx := context.Background()

	var conversationID *string
	send := func(msg string) *model.ChatResponse {
		resp, err := svc.Chat(ctx, &model.ChatRequest{Message: msg, ConversationID: conversationID})
		require.NoError(t, err)
		conversationID = strPtr(resp.ConversationID)
		return resp
	}

	// each turn adds two messages
	assert.Equal(t, model.StageGreeting, send("hello").Stage)
	assert.Equal(t, model.StageGreeting, send("tell me more").Stage)
	assert.Equal(t, model.StageProductQA, send("what do you offer").Stage)
	assert.Equal(t, model.StageProductQA, send("interesting").Stage)
	assert.Equal(t, model.StageRequirements, send("we want basic integration").Stage)

	resp := send("also data migration and advanced security")
	assert.Equal(t, model.StagePricing, resp.Stage)
	require.Len(t, resp.Requirements, 3)
	require.NotNil(t, resp.Pricing)
	assert.Equal(t, 31000.0, resp.Pricing.BasePrice)
	first := *resp.Pricing

	// pricing is computed once per conversation
	resp = send("and customization")
	require.NotNil(t, resp.Pricing)
	assert.Equal(t, first.BasePrice, resp.Pricing.BasePrice)
	assert.Len(t, resp.Requirements, 4)

	assert.Equal(t, []model.Stage{
		model.StageGreeting,
		model.StageGreeting,
		model.StageProductQA,
		model.StageProductQA,
		model.StageRequirements,
		model.StagePricing,
		model.StagePricing,
	}, responder.stages)
}

func TestChatResponderFailureFallsBack(t *testing.T) {
	svc, _ := newTestQuoteService(&stubResponder{err: errors.New("model unavailable")})

	resp, err := svc.Chat(context.Background(), &model.ChatRequest{Message: "hello"})
	require.NoError(t, err)
	assert.Equal(t, fallbackReply, resp.Message)
}

func TestPrice(t *testing.T) {
	svc, _ := newTestQuoteService(&stubResponder{})

	quote := svc.Price(&model.PricingRequest{
		Industry: "finance",
		Requirements: []model.Requirement{
			{FeatureID: "feat-002", FeatureName: "Advanced Analytics"},
		},
	})
	assert.Equal(t, 15000.0, quote.BasePrice)
	assert.Equal(t, 17250.0, quote.FinalPrice)

	quote = svc.Price(&model.PricingRequest{
		ClientID: strPtr("client-003"),
		Requirements: []model.Requirement{
			{FeatureID: "feat-002", FeatureName: "Advanced Analytics"},
		},
	})
	assert.Equal(t, 16800.0, quote.FinalPrice)
}

func TestCreateOrder(t *testing.T) {
	svc, _ := newTestQuoteService(&stubResponder{})

	resp, err := svc.CreateOrder(context.Background(), &model.OrderRequest{
		ConversationID: "c1",
		ClientID:       "anonymous",
		Requirements:   []model.Requirement{{FeatureID: "feat-001", FeatureName: "Basic Integration"}},
		Price:          func() *float64 { v := 11500.0; return &v }(),
	})
	require.NoError(t, err)
	assert.Regexp(t, `^ORD-[0-9A-F]{8}$`, resp.OrderID)
	assert.Equal(t, "created", resp.Status)

	order, err := svc.GetOrder(resp.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "c1", order.ConversationID)
	assert.Equal(t, "anonymous", order.ClientID)
	assert.Equal(t, 11500.0, order.Price)
	assert.Equal(t, "USD", order.Currency)
	assert.Len(t, order.Requirements, 1)
}

func TestCreateOrderValidatesPrice(t *testing.T) {
	svc, _ := newTestQuoteService(&stubResponder{})

	_, err := svc.CreateOrder(context.Background(), &model.OrderRequest{ConversationID: "c1", ClientID: "x"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	negative := -1.0
	_, err = svc.CreateOrder(context.Background(), &model.OrderRequest{ConversationID: "c1", ClientID: "x", Price: &negative})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestOrderIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := newOrderID()
		assert.False(t, seen[id], fmt.Sprintf("duplicate %s", id))
		seen[id] = true
	}
}

func TestListAndDeleteConversations(t *testing.T) {
	svc, _ := newTestQuoteService(&stubResponder{reply: "ok"})
	ctx := context.Background()

	resp, err := svc.Chat(ctx, &model.ChatRequest{Message: "basic integration please", ClientID: strPtr("client-9")})
	require.NoError(t, err)

	summaries, err := svc.ListConversations()
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, resp.ConversationID, summaries[0].ID)
	assert.Equal(t, "client-9", summaries[0].ClientID)
	assert.Equal(t, 2, summaries[0].MessageCount)
	assert.Equal(t, 1, summaries[0].RequirementCount)

	require.NoError(t, svc.DeleteConversation(resp.ConversationID))
	_, err = svc.GetConversation(resp.ConversationID)
	assert.ErrorIs(t, err, storage.ErrConversationNotFound)
	assert.ErrorIs(t, svc.DeleteConversation(resp.ConversationID), storage.ErrConversationNotFound)
}

type failingTranslator struct{}

func (failingTranslator) Translate(context.Context, string, string, string) (string, error) {
	return "", errors.New("translation unavailable")
}

func TestChatTranslatesOtherLanguages(t *testing.T) {
	responder := &stubResponder{reply: "Noted."}
	store := storage.NewMemoryStorage()
	catalog := DefaultCatalog()
	svc := NewQuoteService(store, catalog, NewPricer(catalog, constant(0.5)), responder,
		WithLanguage(FixedLanguage("de"), MockTranslator{}))

	resp, err := svc.Chat(context.Background(), &model.ChatRequest{Message: "Wir brauchen Basic Integration"})
	require.NoError(t, err)

	assert.Equal(t, "de", resp.DetectedLanguage)
	assert.Equal(t, "[de] Noted.", resp.Message)
	require.Len(t, resp.Requirements, 1)
	assert.Equal(t, "feat-001", resp.Requirements[0].FeatureID)

	// the conversation itself is kept in English
	require.Len(t, responder.histories, 1)
	assert.Equal(t, "[en] Wir brauchen Basic Integration", responder.histories[0][0].Content)

	conv, err := store.GetConversation(resp.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, "de", conv.Language)
	require.Len(t, conv.Messages, 2)
	assert.Equal(t, "[en] Wir brauchen Basic Integration", conv.Messages[0].Content)
	assert.Equal(t, "Noted.", conv.Messages[1].Content)
}

func TestChatKeepsTextWhenTranslationFails(t *testing.T) {
	responder := &stubResponder{reply: "Noted."}
	catalog := DefaultCatalog()
	svc := NewQuoteService(storage.NewMemoryStorage(), catalog, NewPricer(catalog, constant(0.5)), responder,
		WithLanguage(FixedLanguage("fr"), failingTranslator{}))

	resp, err := svc.Chat(context.Background(), &model.ChatRequest{Message: "Bonjour, je voudrais un devis"})
	require.NoError(t, err)

	assert.Equal(t, "fr", resp.DetectedLanguage)
	assert.Equal(t, "Noted.", resp.Message)
	assert.Equal(t, "Bonjour, je voudrais un devis", responder.histories[0][0].Content)
}

func TestProducts(t *testing.T) {
	svc, _ := newTestQuoteService(&stubResponder{})

	assert.Len(t, svc.Products("", ""), 10)
	assert.Equal(t, []string{"feat-002", "feat-005"}, featureIDs(svc.Products("analytics", "")))
	assert.Equal(t, []string{"feat-002", "feat-006", "feat-008"}, featureIDs(svc.Products("", "data")))
	assert.Equal(t, []string{"feat-008"}, featureIDs(svc.Products("integration", "data")))

	none := svc.Products("hardware", "")
	assert.NotNil(t, none)
	assert.Empty(t, none)

	f, err := svc.Product("feat-010")
	require.NoError(t, err)
	assert.Equal(t, "Customization", f.Name)

	_, err = svc.Product("feat-404")
	assert.ErrorIs(t, err, ErrFeatureNotFound)
}
