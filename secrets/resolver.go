// Package secrets resolves credentials from the environment or AWS Secrets Manager.
package secrets

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/felixgeelhaar/bolt/v3"
	"github.com/rickchristie/agentloops"
)

// SecretsAPI is the subset of the Secrets Manager client used by Resolver.
type SecretsAPI interface {
	GetSecretValue(
		ctx context.Context,
		params *secretsmanager.GetSecretValueInput,
		optFns ...func(*secretsmanager.Options),
	) (*secretsmanager.GetSecretValueOutput, error)
}

// Resolver looks a key up in the environment first, then in Secrets Manager. A nil client
// limits it to the environment.
type Resolver struct {
	client SecretsAPI
	logger *bolt.Logger
	lookup func(string) (string, bool)
}

// NewResolver creates a Resolver. client may be nil.
func NewResolver(client SecretsAPI, logger *bolt.Logger) *Resolver {
	return &Resolver{client: client, logger: logger, lookup: os.LookupEnv}
}

// NewAWSResolver creates a Resolver backed by Secrets Manager in region, using the default AWS
// credential chain.
func NewAWSResolver(ctx context.Context, region string, logger *bolt.Logger) (*Resolver, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewResolver(secretsmanager.NewFromConfig(cfg), logger), nil
}

// WithLookup replaces the environment lookup. Used by tests.
func (r *Resolver) WithLookup(lookup func(string) (string, bool)) *Resolver {
	r.lookup = lookup
	return r
}

// Get returns the secret named key. Values "", "0", "false" and "False" in the environment
// count as unset.
func (r *Resolver) Get(ctx context.Context, key string) (string, error) {
	if value, ok := r.lookup(key); ok && enabled(value) {
		r.logger.Warn().Str("key", key).Msg("using secret from environment")
		return value, nil
	}

	if r.client == nil {
		return "", fmt.Errorf("%w: %s", agentloops.ErrMissingCredential, key)
	}

	out, err := r.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{SecretId: aws.String(key)})
	if err != nil {
		r.logger.Error().Str("key", key).Err(err).Msg("failed to fetch secret")
		return "", fmt.Errorf("get secret %s: %w", key, err)
	}
	if out.SecretString == nil {
		err := fmt.Errorf("%w: secret %s has no string value", agentloops.ErrMissingCredential, key)
		r.logger.Error().Str("key", key).Err(err).Msg("failed to fetch secret")
		return "", err
	}
	return *out.SecretString, nil
}

func enabled(value string) bool {
	switch value {
	case "", "0", "false", "False":
		return false
	}
	return true
}
