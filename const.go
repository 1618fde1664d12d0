package agentloops

// =============================================================================
// Providers
// =============================================================================

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderBedrock   = "bedrock"
	ProviderGitHub    = "github"
	ProviderTavily    = "tavily"
)

// =============================================================================
// OpenAI Models
// https://platform.openai.com/docs/models/
// =============================================================================

const (
	ModelOpenAIGPT41     = "gpt-4.1"
	ModelOpenAIGPT41Mini = "gpt-4.1-mini"
	ModelOpenAIGPT4o     = "gpt-4o"
	ModelOpenAIGPT4oMini = "gpt-4o-mini"
)

// =============================================================================
// Anthropic Claude Models
// https://docs.anthropic.com/en/docs/about-claude/models/overview
// =============================================================================

const (
	ModelAnthropicClaude45Sonnet = "claude-sonnet-4-5-20250929"
	ModelAnthropicClaude45Haiku  = "claude-haiku-4-5-20251001"
)

// =============================================================================
// Amazon Bedrock Model IDs
// https://docs.aws.amazon.com/bedrock/latest/userguide/models-supported.html
// =============================================================================

const (
	ModelBedrockClaude35Sonnet = "anthropic.claude-3-5-sonnet-20240620-v1:0"
	ModelBedrockClaude3Haiku   = "anthropic.claude-3-haiku-20240307-v1:0"
	ModelBedrockNovaPro        = "amazon.nova-pro-v1:0"
	ModelBedrockNovaLite       = "amazon.nova-lite-v1:0"
)

// =============================================================================
// GitHub Models IDs (publisher/model)
// https://docs.github.com/en/github-models
// =============================================================================

const (
	ModelGitHubGPT41     = "openai/gpt-4.1"
	ModelGitHubGPT4oMini = "openai/gpt-4o-mini"
)
