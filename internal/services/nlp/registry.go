package nlp

import (
	"fmt"

	"go.uber.org/zap"
)

// Provider names accepted by the registry
const (
	ProviderRules  = "rules"
	ProviderProse  = "prose"
	ProviderOpenAI = "openai"
)

// ProviderConfig carries the settings a classifier factory may need
type ProviderConfig struct {
	APIKey        string
	BaseURL       string
	Model         string
	GazetteerPath string
	Logger        *zap.Logger
	DebugMode     bool
}

// ProviderFactory builds a classifier from configuration
type ProviderFactory func(cfg ProviderConfig) (Classifier, error)

// ErrProviderNotFound is returned when a provider is not registered
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "NLP provider not found: " + e.Name
}

// Registry stores available classifier providers
type Registry struct {
	providers map[string]ProviderFactory
}

// NewRegistry creates a registry with the rules, prose and openai providers registered
func NewRegistry() *Registry {
	r := &Registry{providers: make(map[string]ProviderFactory)}
	r.Register(ProviderRules, newRulesFromConfig)
	r.Register(ProviderProse, newProseFromConfig)
	r.Register(ProviderOpenAI, newOpenAIFromConfig)
	return r
}

// Register registers a provider factory
func (r *Registry) Register(name string, factory ProviderFactory) {
	r.providers[name] = factory
}

// Build creates the named classifier
func (r *Registry) Build(name string, cfg ProviderConfig) (Classifier, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}
	return factory(cfg)
}

func newRulesFromConfig(cfg ProviderConfig) (Classifier, error) {
	opts, err := gazetteerOptions(cfg)
	if err != nil {
		return nil, err
	}
	return NewRuleClassifier(opts...), nil
}

func newProseFromConfig(cfg ProviderConfig) (Classifier, error) {
	opts, err := gazetteerOptions(cfg)
	if err != nil {
		return nil, err
	}
	return NewRuleClassifier(append(opts, WithRecognizer(NewProseRecognizer()))...), nil
}

func gazetteerOptions(cfg ProviderConfig) ([]RuleOption, error) {
	if cfg.GazetteerPath == "" {
		return nil, nil
	}
	g, err := LoadGazetteer(cfg.GazetteerPath)
	if err != nil {
		return nil, err
	}
	return []RuleOption{WithGazetteer(g)}, nil
}

func newOpenAIFromConfig(cfg ProviderConfig) (Classifier, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	return NewOpenAIClassifier(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.Logger, cfg.DebugMode), nil
}
