package advisory

import (
	"context"
	"fmt"
)

// NewGenerator builds the generator named by cfg.Provider. It returns nil
// without error when live mode cannot run, so offline setups need no
// provider configuration.
func NewGenerator(ctx context.Context, cfg Config) (Generator, error) {
	if cfg.Offline || !cfg.HasCredentials() {
		return nil, nil
	}
	switch cfg.Provider {
	case "", ProviderOpenAI:
		return NewOpenAIGenerator(cfg.BaseURL, cfg.APIKey), nil
	case ProviderBedrock:
		gen, err := NewBedrockGenerator(ctx, BedrockConfig{
			Region:          cfg.Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			SessionToken:    cfg.AWSSessionToken,
		})
		if err != nil {
			return nil, err
		}
		return gen, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}
