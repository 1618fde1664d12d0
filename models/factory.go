package models

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/rickchristie/agentloops"
	"github.com/rickchristie/agentloops/config"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// NewFromConfig builds the model named by cfg. apiKey is the resolved key for providers that
// need one (see the secrets package); bedrock uses the AWS credential chain instead.
func NewFromConfig(ctx context.Context, cfg config.ModelConfig, apiKey string) (agentloops.Model, error) {
	client := &http.Client{Timeout: cfg.Timeout}

	switch cfg.Provider {
	case agentloops.ProviderOpenAI:
		if apiKey == "" {
			return nil, fmt.Errorf("%w: %s", agentloops.ErrMissingCredential, cfg.APIKeyEnv)
		}
		opts := []openai.Option{
			openai.WithToken(apiKey),
			openai.WithModel(cfg.Name),
			openai.WithHTTPClient(client),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create openai client: %w", err)
		}
		return NewLCGWrapper(llm).WithModelName(cfg.Name).WithProvider(cfg.Provider), nil

	case agentloops.ProviderAnthropic:
		if apiKey == "" {
			return nil, fmt.Errorf("%w: %s", agentloops.ErrMissingCredential, cfg.APIKeyEnv)
		}
		opts := []anthropic.Option{
			anthropic.WithToken(apiKey),
			anthropic.WithModel(cfg.Name),
			anthropic.WithHTTPClient(client),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
		}
		llm, err := anthropic.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create anthropic client: %w", err)
		}
		return NewLCGWrapper(llm).WithModelName(cfg.Name).WithProvider(cfg.Provider), nil

	case agentloops.ProviderOllama:
		opts := []ollama.Option{
			ollama.WithModel(cfg.Name),
			ollama.WithHTTPClient(client),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("create ollama client: %w", err)
		}
		return NewLCGWrapper(llm).WithModelName(cfg.Name).WithProvider(cfg.Provider), nil

	case agentloops.ProviderGitHub:
		return NewGitHub(cfg.Name, apiKey, client)

	case agentloops.ProviderBedrock:
		// The SDK can only apply AWS_CA_BUNDLE to a buildable client.
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithHTTPClient(awshttp.NewBuildableClient().WithTimeout(cfg.Timeout)),
		)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		runtime := bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
			if cfg.BaseURL != "" {
				o.BaseEndpoint = aws.String(cfg.BaseURL)
			}
		})
		return NewBedrock(runtime, cfg.Name), nil
	}

	return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
}
