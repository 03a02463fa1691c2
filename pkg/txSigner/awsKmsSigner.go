package txSigner

import (
	"context"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/Layr-Labs/deploy-transact-go/pkg/recoveryId"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/kms"
	"github.com/aws/aws-sdk-go/service/kms/kmsiface"
)

// AWSKMSClient implements KeyManagementClient using AWS KMS. AWS keys are not versioned, so
// the version argument is ignored.
type AWSKMSClient struct {
	kmsClient kmsiface.KMSAPI
}

type subjectPublicKeyInfo struct {
	Algorithm pkix.AlgorithmIdentifier
	PublicKey asn1.BitString
}

type ecdsaSignature struct {
	R, S *big.Int
}

// NewAWSKMSClient creates an AWSKMSClient for the specified region. endpoint may be empty.
//
// Parameters:
//   - region: The AWS region where the KMS key is located
//   - endpoint: Optional endpoint override
//
// Returns:
//   - *AWSKMSClient: A new AWS KMS client
//   - error: An error if the AWS session cannot be created
func NewAWSKMSClient(region, endpoint string) (*AWSKMSClient, error) {
	awsCfg := &aws.Config{
		Region:     aws.String(region),
		MaxRetries: aws.Int(0),
	}
	if endpoint != "" {
		awsCfg.Endpoint = aws.String(endpoint)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return NewAWSKMSClientWithAPI(kms.New(sess)), nil
}

// NewAWSKMSClientWithAPI wraps an existing KMS API client.
func NewAWSKMSClientWithAPI(api kmsiface.KMSAPI) *AWSKMSClient {
	return &AWSKMSClient{kmsClient: api}
}

// GetPublicKey returns the public point of a secp256k1 KMS key.
func (a *AWSKMSClient) GetPublicKey(ctx context.Context, keyID, _ string) ([]byte, []byte, error) {
	result, err := a.kmsClient.GetPublicKeyWithContext(ctx, &kms.GetPublicKeyInput{
		KeyId: aws.String(keyID),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get public key from KMS: %w", err)
	}

	// KMS returns a DER encoded SubjectPublicKeyInfo wrapping the uncompressed point
	var spki subjectPublicKeyInfo
	if _, err := asn1.Unmarshal(result.PublicKey, &spki); err != nil {
		return nil, nil, fmt.Errorf("failed to parse public key: %w", err)
	}
	point := spki.PublicKey.Bytes
	if len(point) != 65 || point[0] != 0x04 {
		return nil, nil, fmt.Errorf("unexpected public key encoding of %d bytes", len(point))
	}
	return point[1:33], point[33:65], nil
}

// Sign signs digest with ECDSA_SHA_256 and returns r || s with s normalized to the lower half
// of the curve order.
func (a *AWSKMSClient) Sign(ctx context.Context, keyID, _ string, digest []byte) ([]byte, error) {
	result, err := a.kmsClient.SignWithContext(ctx, &kms.SignInput{
		KeyId:            aws.String(keyID),
		Message:          digest,
		MessageType:      aws.String(kms.MessageTypeDigest),
		SigningAlgorithm: aws.String(kms.SigningAlgorithmSpecEcdsaSha256),
	})
	if err != nil {
		return nil, fmt.Errorf("KMS signing failed: %w", err)
	}

	var sig ecdsaSignature
	if _, err := asn1.Unmarshal(result.Signature, &sig); err != nil {
		return nil, fmt.Errorf("failed to parse KMS signature: %w", err)
	}
	if sig.R == nil || sig.S == nil || sig.R.BitLen() > 256 || sig.S.BitLen() > 256 {
		return nil, fmt.Errorf("invalid KMS signature values")
	}

	out := make([]byte, 64)
	sig.R.FillBytes(out[0:32])
	s := recoveryId.NormalizeS(sig.S.Bytes())
	copy(out[32:64], s[:])
	return out, nil
}
