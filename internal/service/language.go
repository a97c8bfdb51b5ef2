package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"quotedesk/internal/config"
	"quotedesk/pkg/logger"

	"github.com/abadojack/whatlanggo"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"
)

// defaultLanguage is what conversations are processed in. Replies are
// translated back to the client's language.
const defaultLanguage = "en"

// texts shorter than this many characters are assumed to be English
const defaultMinDetectLength = 10

// LanguageDetector names the ISO 639-1 language of a text.
type LanguageDetector interface {
	Detect(text string) string
}

// Translator translates text between ISO 639-1 languages.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) (string, error)
}

// FixedLanguage reports the same language for every text.
type FixedLanguage string

func (l FixedLanguage) Detect(string) string {
	return string(l)
}

// WhatlangDetector detects languages from trigram statistics.
type WhatlangDetector struct {
	minLength int
}

func NewWhatlangDetector(minLength int) *WhatlangDetector {
	if minLength <= 0 {
		minLength = defaultMinDetectLength
	}
	return &WhatlangDetector{minLength: minLength}
}

func (d *WhatlangDetector) Detect(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < d.minLength {
		logger.Debug("Text too short for language detection, defaulting to English")
		return defaultLanguage
	}

	info := whatlanggo.Detect(text)
	if info.Script == nil {
		logger.Warnf("No script detected in %q, defaulting to English", truncate(text, 30))
		return defaultLanguage
	}
	code := info.Lang.Iso6391()
	if code == "" {
		logger.Warnf("Could not detect language of %q, defaulting to English", truncate(text, 30))
		return defaultLanguage
	}

	logger.WithFields(logrus.Fields{
		"language":   code,
		"confidence": info.Confidence,
	}).Debug("Detected language")
	return code
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// MockTranslator tags text with the target language instead of translating.
type MockTranslator struct{}

func (MockTranslator) Translate(_ context.Context, text, source, target string) (string, error) {
	logger.Debugf("Mock translation: %s -> %s", source, target)
	return fmt.Sprintf("[%s] %s", target, text), nil
}

// NoopTranslator returns text unchanged.
type NoopTranslator struct{}

func (NoopTranslator) Translate(_ context.Context, text, _, _ string) (string, error) {
	return text, nil
}

// OpenAITranslator translates through a chat completion.
type OpenAITranslator struct {
	client *openai.Client
	model  string
}

func NewOpenAITranslator(cfg config.ResponderConfig) (*OpenAITranslator, error) {
	client, err := newOpenAIClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("openai translator: %w", err)
	}
	return &OpenAITranslator{client: client, model: cfg.Model}, nil
}

func (t *OpenAITranslator) Translate(ctx context.Context, text, source, target string) (string, error) {
	resp, err := t.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleSystem,
				Content: fmt.Sprintf("Translate the user's text from language %q to language %q (ISO 639-1 codes). "+
					"Reply with the translation only.", source, target),
			},
			{Role: openai.ChatMessageRoleUser, Content: text},
		},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("translation completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("translation completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// NewDetector builds the detector named by cfg.Detector.
func NewDetector(cfg config.LanguageConfig) (LanguageDetector, error) {
	switch cfg.Detector {
	case "", "whatlang":
		return NewWhatlangDetector(cfg.MinLength), nil
	case "none":
		return FixedLanguage(defaultLanguage), nil
	default:
		return nil, fmt.Errorf("unknown language detector %q", cfg.Detector)
	}
}

// NewTranslator builds the translator named by cfg.Translator. The openai
// translator shares the responder's endpoint and model.
func NewTranslator(cfg config.LanguageConfig, responder config.ResponderConfig) (Translator, error) {
	switch cfg.Translator {
	case "", "mock":
		return MockTranslator{}, nil
	case "none":
		return NoopTranslator{}, nil
	case "openai":
		return NewOpenAITranslator(responder)
	default:
		return nil, fmt.Errorf("unknown translator %q", cfg.Translator)
	}
}
