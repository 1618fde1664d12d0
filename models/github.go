package models

import (
	"fmt"
	"net/http"

	"github.com/rickchristie/agentloops"
	"github.com/tmc/langchaingo/llms/openai"
)

// GitHubModelsBaseURL is the OpenAI-compatible GitHub Models endpoint.
const GitHubModelsBaseURL = "https://models.github.ai/inference"

// githubDoer sends every request through client with the GitHub API version header set.
type githubDoer struct {
	client *http.Client
}

func (d *githubDoer) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	return d.client.Do(req)
}

// NewGitHub creates a model backed by GitHub Models. token is a fine-grained personal access
// token with the models:read permission. Model names use the publisher/model form, e.g.
// agentloops.ModelGitHubGPT41.
//
// Extra openai options are applied after the defaults, so they may override them.
func NewGitHub(model, token string, client *http.Client, opts ...openai.Option) (*LCGWrapper, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: github token with models:read", agentloops.ErrMissingCredential)
	}
	if client == nil {
		client = http.DefaultClient
	}

	all := append([]openai.Option{
		openai.WithBaseURL(GitHubModelsBaseURL),
		openai.WithToken(token),
		openai.WithModel(model),
		openai.WithHTTPClient(&githubDoer{client: client}),
	}, opts...)

	llm, err := openai.New(all...)
	if err != nil {
		return nil, fmt.Errorf("create github models client: %w", err)
	}
	return NewLCGWrapper(llm).WithModelName(model).WithProvider(agentloops.ProviderGitHub), nil
}
