package agentloops

import "github.com/tmc/langchaingo/llms"

// InferenceParams are the fixed sampling parameters sent with every model call of a run.
type InferenceParams struct {
	Temperature float64 `yaml:"temperature" json:"temperature"`
	TopK        int     `yaml:"top_k" json:"top_k"`

	// MaxOutputTokens bounds the generated text. Zero means unbounded.
	MaxOutputTokens int `yaml:"max_output_tokens" json:"max_output_tokens"`
}

// DefaultInferenceParams returns deterministic sampling with no output bound.
func DefaultInferenceParams() InferenceParams {
	return InferenceParams{Temperature: 0, TopK: 1}
}

// CallOptions converts the parameters into LangChainGo call options.
func (p InferenceParams) CallOptions() []llms.CallOption {
	opts := []llms.CallOption{llms.WithTemperature(p.Temperature)}
	if p.TopK > 0 {
		opts = append(opts, llms.WithTopK(p.TopK))
	}
	if p.MaxOutputTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(p.MaxOutputTokens))
	}
	return opts
}
