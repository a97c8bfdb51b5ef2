package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"quotedesk/internal/config"
	"quotedesk/internal/model"
	"quotedesk/internal/utils"

	openai "github.com/sashabaranov/go-openai"
)

// Responder writes the assistant's next chat turn.
type Responder interface {
	Reply(ctx context.Context, stage model.Stage, history []model.ChatMessage) (string, error)
}

const fallbackReply = "I apologize, but I'm experiencing technical difficulties. Please try again later."

var stagePrompts = map[model.Stage]string{
	model.StageGreeting: `You are a friendly B2B sales assistant for a software company.
Greet the user warmly and ask how you can help with our products and services.
If they mention specific needs, acknowledge them and ask relevant follow-up questions.`,
	model.StageProductQA: `You are a knowledgeable B2B sales assistant for a software company.
Answer product questions accurately and completely and highlight key benefits.
If the customer seems ready to discuss requirements, guide them there.`,
	model.StageRequirements: `You are a B2B sales assistant gathering client requirements.
Ask clear questions about the features they need and separate required from optional ones.`,
	model.StagePricing: `You are a B2B sales assistant presenting pricing.
Based on the collected requirements, present a clear pricing summary.`,
	model.StageConfirmation: `You are a B2B sales assistant confirming an order.
Summarize the requirements and proposed price and ask whether they want to proceed.
If they decline, offer to connect them with a human representative.`,
	model.StageHandoff: `You are a B2B sales assistant handing the client over to a human representative.
Thank them, assure them a representative will contact them soon and ask for a preferred contact method.`,
}

// SystemPrompt returns the instructions used for stage.
func SystemPrompt(stage model.Stage) string {
	if p, ok := stagePrompts[stage]; ok {
		return p
	}
	return stagePrompts[model.StageGreeting]
}

// RuleResponder answers from keywords in the latest user message. It needs
// no model and is what the dev service runs by default.
type RuleResponder struct{}

func (RuleResponder) Reply(_ context.Context, _ model.Stage, history []model.ChatMessage) (string, error) {
	last := ""
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == model.RoleUser {
			last = strings.ToLower(history[i].Content)
			break
		}
	}

	switch {
	case containsWord(last, "hello", "hi"):
		return "Hello! I'm your B2B sales support assistant. How can I help you today?", nil
	case strings.Contains(last, "price") || strings.Contains(last, "cost"):
		return "Our pricing depends on your specific requirements. Could you tell me more about what features you need?", nil
	case strings.Contains(last, "product") || strings.Contains(last, "service"):
		return "We offer a range of B2B solutions including cloud services, data analytics, and enterprise security. Which area are you most interested in?", nil
	}
	return "Thank you for your message. I'd be happy to discuss our products and services with you. Could you tell me more about your business needs?", nil
}

func containsWord(text string, words ...string) bool {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	for _, f := range fields {
		for _, w := range words {
			if f == w {
				return true
			}
		}
	}
	return false
}

// OpenAIResponder asks an OpenAI-compatible chat completion endpoint,
// sending the stage prompt and the most recent history.
type OpenAIResponder struct {
	client          *openai.Client
	model           string
	historyMessages int
}

func newOpenAIClient(cfg config.ResponderConfig) (*openai.Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("api key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	clientConfig.HTTPClient = utils.NewHTTPClient(cfg.Timeout)
	return openai.NewClientWithConfig(clientConfig), nil
}

func NewOpenAIResponder(cfg config.ResponderConfig) (*OpenAIResponder, error) {
	client, err := newOpenAIClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("openai responder: %w", err)
	}

	historyMessages := cfg.HistoryMessages
	if historyMessages <= 0 {
		historyMessages = 5
	}

	return &OpenAIResponder{
		client:          client,
		model:           cfg.Model,
		historyMessages: historyMessages,
	}, nil
}

func (r *OpenAIResponder) Reply(ctx context.Context, stage model.Stage, history []model.ChatMessage) (string, error) {
	if len(history) > r.historyMessages {
		history = history[len(history)-r.historyMessages:]
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: SystemPrompt(stage),
	})
	for _, msg := range history {
		role := openai.ChatMessageRoleUser
		if msg.Role == model.RoleAssistant {
			role = openai.ChatMessageRoleAssistant
		}
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    role,
			Content: msg.Content,
		})
	}

	resp, err := r.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       r.model,
		Messages:    messages,
		MaxTokens:   1024,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}

	return resp.Choices[0].Message.Content, nil
}

// NewResponder builds the responder named by cfg.Provider.
func NewResponder(cfg config.ResponderConfig) (Responder, error) {
	switch cfg.Provider {
	case "", "rule":
		return RuleResponder{}, nil
	case "openai":
		return NewOpenAIResponder(cfg)
	default:
		return nil, fmt.Errorf("unknown responder provider %q", cfg.Provider)
	}
}
