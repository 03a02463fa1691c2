package secrets

import (
	"context"
	"errors"
	"testing"

	"github.com/Layr-Labs/deploy-transact-go/pkg/logger"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecretsManager struct {
	secretsmanageriface.SecretsManagerAPI
	values map[string]string
	calls  []string
}

func (f *fakeSecretsManager) GetSecretValueWithContext(_ aws.Context, input *secretsmanager.GetSecretValueInput, _ ...request.Option) (*secretsmanager.GetSecretValueOutput, error) {
	name := aws.StringValue(input.SecretId)
	f.calls = append(f.calls, name)
	v, ok := f.values[name]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(v)}, nil
}

func newTestResolver(t *testing.T, values map[string]string) (*Resolver, *fakeSecretsManager) {
	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	require.NoError(t, err)
	fake := &fakeSecretsManager{values: values}
	return NewResolver(fake, l), fake
}

func TestResolve(t *testing.T) {
	r, fake := newTestResolver(t, map[string]string{
		"vault-token": "s.abcdef",
		"hdwallet":    `{"url":"https://wallet.internal","id":"w1","index":3}`,
	})
	ctx := context.Background()

	v, err := r.Resolve(ctx, "plain-value")
	require.NoError(t, err)
	assert.Equal(t, "plain-value", v)
	assert.Empty(t, fake.calls)

	v, err = r.Resolve(ctx, "awssm:vault-token")
	require.NoError(t, err)
	assert.Equal(t, "s.abcdef", v)

	v, err = r.Resolve(ctx, "awssm:hdwallet#url")
	require.NoError(t, err)
	assert.Equal(t, "https://wallet.internal", v)

	_, err = r.Resolve(ctx, "awssm:hdwallet#index")
	assert.Error(t, err)
	_, err = r.Resolve(ctx, "awssm:hdwallet#missing")
	assert.Error(t, err)
	_, err = r.Resolve(ctx, "awssm:vault-token#field")
	assert.Error(t, err)
	_, err = r.Resolve(ctx, "awssm:unknown")
	assert.Error(t, err)
	_, err = r.Resolve(ctx, "awssm:")
	assert.Error(t, err)
}

func TestResolveAll(t *testing.T) {
	r, _ := newTestResolver(t, map[string]string{"vault-token": "s.abcdef"})

	token := "awssm:vault-token"
	address := "http://vault:8200"
	require.NoError(t, r.ResolveAll(context.Background(), &token, &address, nil))
	assert.Equal(t, "s.abcdef", token)
	assert.Equal(t, "http://vault:8200", address)

	missing := "awssm:missing"
	assert.Error(t, r.ResolveAll(context.Background(), &missing))
	assert.Equal(t, "awssm:missing", missing)
}

func TestIsReference(t *testing.T) {
	assert.True(t, IsReference("awssm:x"))
	assert.False(t, IsReference("s.token"))
}
