// Package secrets resolves credential references stored in AWS Secrets Manager. A
// configuration value of the form "awssm:<secret-name>" is replaced by the current secret
// string; "awssm:<secret-name>#<field>" selects one field of a JSON secret.
package secrets

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
	"go.uber.org/zap"
)

const (
	// ReferencePrefix marks a value to be fetched from AWS Secrets Manager
	ReferencePrefix = "awssm:"

	versionStageCurrent = "AWSCURRENT"
)

// IsReference reports whether value names a secret.
func IsReference(value string) bool {
	return strings.HasPrefix(value, ReferencePrefix)
}

// Resolver fetches referenced secrets.
type Resolver struct {
	client secretsmanageriface.SecretsManagerAPI
	logger *zap.Logger
}

// NewAWSResolver creates a Resolver for the specified AWS region.
func NewAWSResolver(region string, logger *zap.Logger) (*Resolver, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return NewResolver(secretsmanager.New(sess), logger), nil
}

// NewResolver creates a Resolver over an existing Secrets Manager client.
func NewResolver(client secretsmanageriface.SecretsManagerAPI, logger *zap.Logger) *Resolver {
	return &Resolver{
		client: client,
		logger: logger,
	}
}

// Resolve returns value unchanged unless it is a reference, in which case the referenced
// secret is returned.
func (r *Resolver) Resolve(ctx context.Context, value string) (string, error) {
	if !IsReference(value) {
		return value, nil
	}
	name, field, _ := strings.Cut(strings.TrimPrefix(value, ReferencePrefix), "#")
	if name == "" {
		return "", fmt.Errorf("empty secret reference %q", value)
	}

	r.logger.Sugar().Debugw("Resolving secret reference", zap.String("secret", name))
	result, err := r.client.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     aws.String(name),
		VersionStage: aws.String(versionStageCurrent),
	})
	if err != nil {
		return "", fmt.Errorf("failed to get secret %s: %w", name, err)
	}
	if result.SecretString == nil {
		return "", fmt.Errorf("secret %s has no string value", name)
	}
	if field == "" {
		return *result.SecretString, nil
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(*result.SecretString), &fields); err != nil {
		return "", fmt.Errorf("secret %s is not a JSON object: %w", name, err)
	}
	v, ok := fields[field]
	if !ok {
		return "", fmt.Errorf("secret %s has no field %s", name, field)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("secret %s field %s is not a string", name, field)
	}
	return s, nil
}

// ResolveAll resolves every value in place.
func (r *Resolver) ResolveAll(ctx context.Context, values ...*string) error {
	for _, v := range values {
		if v == nil {
			continue
		}
		resolved, err := r.Resolve(ctx, *v)
		if err != nil {
			return err
		}
		*v = resolved
	}
	return nil
}
