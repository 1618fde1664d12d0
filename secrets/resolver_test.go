package secrets

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/rickchristie/agentloops"
	"github.com/rickchristie/agentloops/loggers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets struct {
	values map[string]string
	err    error
	calls  []string
}

func (f *fakeSecrets) GetSecretValue(
	ctx context.Context,
	params *secretsmanager.GetSecretValueInput,
	optFns ...func(*secretsmanager.Options),
) (*secretsmanager.GetSecretValueOutput, error) {
	id := aws.ToString(params.SecretId)
	f.calls = append(f.calls, id)
	if f.err != nil {
		return nil, f.err
	}
	value, ok := f.values[id]
	if !ok {
		return &secretsmanager.GetSecretValueOutput{}, nil
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(value)}, nil
}

func envOf(values map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestResolver_Get(t *testing.T) {
	tests := []struct {
		name      string
		env       map[string]string
		stored    map[string]string
		wantValue string
		wantCalls int
		wantWarn  bool
	}{
		{
			name:      "environment wins",
			env:       map[string]string{"OPENAI_API_KEY": "sk-env"},
			stored:    map[string]string{"OPENAI_API_KEY": "sk-stored"},
			wantValue: "sk-env",
			wantWarn:  true,
		},
		{
			name:      "unset falls back to secrets manager",
			stored:    map[string]string{"OPENAI_API_KEY": "sk-stored"},
			wantValue: "sk-stored",
			wantCalls: 1,
		},
		{
			name:      "empty counts as unset",
			env:       map[string]string{"OPENAI_API_KEY": ""},
			stored:    map[string]string{"OPENAI_API_KEY": "sk-stored"},
			wantValue: "sk-stored",
			wantCalls: 1,
		},
		{
			name:      "false counts as unset",
			env:       map[string]string{"OPENAI_API_KEY": "False"},
			stored:    map[string]string{"OPENAI_API_KEY": "sk-stored"},
			wantValue: "sk-stored",
			wantCalls: 1,
		},
		{
			name:      "zero counts as unset",
			env:       map[string]string{"OPENAI_API_KEY": "0"},
			stored:    map[string]string{"OPENAI_API_KEY": "sk-stored"},
			wantValue: "sk-stored",
			wantCalls: 1,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			logger := loggers.New(loggers.Config{Level: "warn", Format: "json", Output: buf})
			client := &fakeSecrets{values: tc.stored}

			value, err := NewResolver(client, logger).WithLookup(envOf(tc.env)).
				Get(context.Background(), "OPENAI_API_KEY")

			require.NoError(t, err)
			assert.Equal(t, tc.wantValue, value)
			assert.Len(t, client.calls, tc.wantCalls)
			if tc.wantWarn {
				assert.Contains(t, buf.String(), "using secret from environment")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestResolver_Errors(t *testing.T) {
	t.Run("client error is logged and returned", func(t *testing.T) {
		buf := &bytes.Buffer{}
		logger := loggers.New(loggers.Config{Level: "info", Format: "json", Output: buf})
		clientErr := errors.New("access denied")

		_, err := NewResolver(&fakeSecrets{err: clientErr}, logger).WithLookup(envOf(nil)).
			Get(context.Background(), "TAVILY_API_KEY")

		assert.ErrorIs(t, err, clientErr)
		assert.Contains(t, buf.String(), "access denied")
		assert.Contains(t, buf.String(), `"key":"TAVILY_API_KEY"`)
	})

	t.Run("binary secret is missing", func(t *testing.T) {
		_, err := NewResolver(&fakeSecrets{}, loggers.Discard()).WithLookup(envOf(nil)).
			Get(context.Background(), "TAVILY_API_KEY")

		assert.ErrorIs(t, err, agentloops.ErrMissingCredential)
	})

	t.Run("no client and no environment", func(t *testing.T) {
		_, err := NewResolver(nil, loggers.Discard()).WithLookup(envOf(nil)).
			Get(context.Background(), "TAVILY_API_KEY")

		assert.ErrorIs(t, err, agentloops.ErrMissingCredential)
	})
}
