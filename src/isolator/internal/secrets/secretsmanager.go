package secrets

import (
	"context"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/secretsmanager"
	"github.com/aws/aws-sdk-go/service/secretsmanager/secretsmanageriface"
	"github.com/veedubyou/vocal-isolator/src/shared/lib/cerr"
)

var _ Store = SecretsManagerStore{}

type SecretsManagerConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Prefix is prepended to every secret name to form the secret id.
	Prefix string
}

type SecretsManagerStore struct {
	client secretsmanageriface.SecretsManagerAPI
	prefix string
}

func NewSecretsManagerStore(config SecretsManagerConfig) (SecretsManagerStore, error) {
	awsConfig := aws.NewConfig().WithRegion(config.Region)
	if config.AccessKeyID != "" {
		awsConfig = awsConfig.WithCredentials(credentials.NewStaticCredentials(
			config.AccessKeyID,
			config.SecretAccessKey,
			"",
		))
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return SecretsManagerStore{}, cerr.Field("region", config.Region).Wrap(err).Error("Failed to create AWS session")
	}

	return NewSecretsManagerStoreFromClient(secretsmanager.New(sess), config.Prefix), nil
}

func NewSecretsManagerStoreFromClient(client secretsmanageriface.SecretsManagerAPI, prefix string) SecretsManagerStore {
	return SecretsManagerStore{
		client: client,
		prefix: prefix,
	}
}

func (s SecretsManagerStore) Get(ctx context.Context, name string) ([]byte, bool, error) {
	secretID := s.prefix + name

	output, err := s.client.GetSecretValueWithContext(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(secretID),
	})
	if err != nil {
		if awsErr, ok := err.(awserr.Error); ok && awsErr.Code() == secretsmanager.ErrCodeResourceNotFoundException {
			return nil, false, nil
		}

		return nil, false, cerr.Field("secret_id", secretID).Wrap(err).Error("Failed to fetch secret from secrets manager")
	}

	if output.SecretString != nil && *output.SecretString != "" {
		return []byte(*output.SecretString), true, nil
	}

	if len(output.SecretBinary) > 0 {
		return output.SecretBinary, true, nil
	}

	return nil, false, nil
}
