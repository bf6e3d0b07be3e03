package translate

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// Gateway dispatches translation calls to the provider variant of a model.
// Failures never escape as panics: TranslateMany degrades to an empty
// mapping and TranslateOne returns one of the package sentinel errors.
type Gateway struct {
	providers map[Kind]Provider
	logger    *zap.Logger
}

// GatewayConfig configures NewGateway
type GatewayConfig struct {
	Credentials    Credentials
	Endpoints      Endpoints
	TargetLanguage string
}

// NewGateway builds a provider for each kind. Kinds without credentials
// resolve to a provider that reports ErrMissingCredentials.
func NewGateway(cfg GatewayConfig, logger *zap.Logger) *Gateway {
	lang := cfg.TargetLanguage
	if lang == "" {
		lang = DefaultTargetLanguage
	}

	providers := map[Kind]Provider{
		KindGemini:   missingProvider{kind: KindGemini},
		KindDeepSeek: missingProvider{kind: KindDeepSeek},
		KindMoonshot: missingProvider{kind: KindMoonshot},
	}
	if cfg.Credentials.Gemini != "" {
		providers[KindGemini] = NewGeminiProvider(cfg.Endpoints.Gemini, cfg.Credentials.Gemini, lang)
	}
	if cfg.Credentials.DeepSeek != "" {
		providers[KindDeepSeek] = NewOpenAICompatibleProvider(
			orDefault(cfg.Endpoints.DeepSeek, defaultDeepSeekURL), cfg.Credentials.DeepSeek, lang)
	}
	if cfg.Credentials.Moonshot != "" {
		providers[KindMoonshot] = NewOpenAICompatibleProvider(
			orDefault(cfg.Endpoints.Moonshot, defaultMoonshotURL), cfg.Credentials.Moonshot, lang)
	}

	return NewGatewayWithProviders(providers, logger)
}

// NewGatewayWithProviders creates a gateway over explicit providers
func NewGatewayWithProviders(providers map[Kind]Provider, logger *zap.Logger) *Gateway {
	return &Gateway{providers: providers, logger: logger}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func (g *Gateway) provider(kind Kind) Provider {
	if p, ok := g.providers[kind]; ok && p != nil {
		return p
	}
	return missingProvider{kind: kind}
}

// HasCredentials reports whether the model's provider is usable
func (g *Gateway) HasCredentials(model ModelConfig) bool {
	_, missing := g.provider(model.Kind).(missingProvider)
	return !missing
}

// TranslateOne translates a single text with the given model
func (g *Gateway) TranslateOne(ctx context.Context, model ModelConfig, text string) (string, error) {
	out, err := g.provider(model.Kind).TranslateOne(ctx, model.ModelID, text)
	if err != nil {
		g.logger.Warn("Single translation failed",
			zap.String("model", model.ID),
			zap.String("text", text),
			zap.Error(err),
		)
		if errors.Is(err, ErrMissingCredentials) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", ErrTranslationFailed, err)
	}
	if out == "" {
		return "", ErrEmptyResult
	}
	return out, nil
}

// TranslateMany translates texts in one request. Texts the provider skipped
// are absent from the result; any request or parse failure yields an empty map.
func (g *Gateway) TranslateMany(ctx context.Context, model ModelConfig, texts []string) map[string]string {
	if len(texts) == 0 {
		return map[string]string{}
	}

	raw, err := g.provider(model.Kind).TranslateMany(ctx, model.ModelID, texts)
	if err != nil {
		g.logger.Warn("Batch translation failed",
			zap.String("model", model.ID),
			zap.Int("batch_size", len(texts)),
			zap.Error(err),
		)
		return map[string]string{}
	}

	translations, err := ParseBatch(raw)
	if err != nil {
		g.logger.Warn("Batch translation payload rejected",
			zap.String("model", model.ID),
			zap.Int("payload_bytes", len(raw)),
			zap.Error(err),
		)
		return map[string]string{}
	}
	return translations
}

// Selector binds the gateway to the currently selected model
type Selector struct {
	gateway *Gateway

	mu      sync.RWMutex
	current ModelConfig
}

// NewSelector selects modelID, falling back to the default model when unknown
func NewSelector(gateway *Gateway, modelID string) *Selector {
	model, err := LookupModel(modelID)
	if err != nil {
		model, _ = LookupModel(DefaultModelID)
	}
	return &Selector{gateway: gateway, current: model}
}

// Select switches the active model
func (s *Selector) Select(modelID string) (ModelConfig, error) {
	model, err := LookupModel(modelID)
	if err != nil {
		return ModelConfig{}, err
	}
	s.mu.Lock()
	s.current = model
	s.mu.Unlock()
	return model, nil
}

// Current returns the active model
func (s *Selector) Current() ModelConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Ready reports whether the active model has credentials
func (s *Selector) Ready() bool {
	return s.gateway.HasCredentials(s.Current())
}

func (s *Selector) TranslateOne(ctx context.Context, text string) (string, error) {
	return s.gateway.TranslateOne(ctx, s.Current(), text)
}

func (s *Selector) TranslateMany(ctx context.Context, texts []string) map[string]string {
	return s.gateway.TranslateMany(ctx, s.Current(), texts)
}
