// Package translate provides a uniform translation contract over pluggable
// LLM providers.
package translate

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrMissingCredentials = errors.New("provider credentials are not configured")
	ErrUnknownModel       = errors.New("unknown translation model")
	ErrEmptyResult        = errors.New("provider returned no result")
	ErrTranslationFailed  = errors.New("translation failed")
)

// Kind identifies a provider variant
type Kind string

const (
	KindGemini   Kind = "google"
	KindDeepSeek Kind = "deepseek"
	KindMoonshot Kind = "moonshot"
)

// ModelConfig is a selectable translation model
type ModelConfig struct {
	ID      string
	Name    string
	Kind    Kind
	ModelID string
}

// DefaultModelID is selected when nothing else is configured
const DefaultModelID = "gemini-flash"

// Models lists every selectable model
var Models = []ModelConfig{
	{ID: "gemini-flash", Name: "Gemini 2.5 Flash", Kind: KindGemini, ModelID: "gemini-2.5-flash"},
	{ID: "gemini-pro", Name: "Gemini 2.5 Pro", Kind: KindGemini, ModelID: "gemini-2.5-pro"},
	{ID: "deepseek-v3", Name: "DeepSeek V3", Kind: KindDeepSeek, ModelID: "deepseek-chat"},
	{ID: "kimi", Name: "Kimi Moonshot", Kind: KindMoonshot, ModelID: "moonshot-v1-8k"},
}

// LookupModel finds a model by id
func LookupModel(id string) (ModelConfig, error) {
	for _, m := range Models {
		if m.ID == id {
			return m, nil
		}
	}
	return ModelConfig{}, fmt.Errorf("%w: %s", ErrUnknownModel, id)
}

// Provider is implemented by every provider variant
type Provider interface {
	// TranslateOne returns the trimmed translation of a single text
	TranslateOne(ctx context.Context, model, text string) (string, error)
	// TranslateMany returns the raw structured payload for a batch
	TranslateMany(ctx context.Context, model string, texts []string) (string, error)
}

// Credentials holds API keys per provider kind
type Credentials struct {
	Gemini   string
	DeepSeek string
	Moonshot string
}

// Endpoints overrides provider base URLs. Empty fields use the public endpoints.
type Endpoints struct {
	Gemini   string
	DeepSeek string
	Moonshot string
}

// missingProvider stands in for a provider whose credentials are absent
type missingProvider struct {
	kind Kind
}

func (p missingProvider) TranslateOne(context.Context, string, string) (string, error) {
	return "", fmt.Errorf("%w: %s", ErrMissingCredentials, p.kind)
}

func (p missingProvider) TranslateMany(context.Context, string, []string) (string, error) {
	return "", fmt.Errorf("%w: %s", ErrMissingCredentials, p.kind)
}
