package secrets

import (
	"context"

	"github.com/alecthomas/errors"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/smithy-go"
)

type ASMConfig struct {
	Prefix          string `help:"Prefix prepended to every secret name." env:"SECRETS_ASM_PREFIX"`
	Region          string `help:"AWS region." env:"AWS_REGION"`
	AccessKeyID     string `help:"AWS access key ID. Defaults to the SDK credential chain." env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `help:"AWS secret access key." env:"AWS_SECRET_ACCESS_KEY"`
	Endpoint        string `help:"Override the Secrets Manager endpoint." env:"SECRETS_ASM_ENDPOINT"`
}

type secretValueGetter interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

var _ Store = (*ASMStore)(nil)

// ASMStore reads string secrets from AWS Secrets Manager.
type ASMStore struct {
	prefix string
	client secretValueGetter
}

func NewASMStore(ctx context.Context, cfg ASMConfig) (*ASMStore, error) {
	var optFns []func(*config.LoadOptions) error
	// Without a static key the SDK falls back to its default chain (env vars, IAM, etc).
	if cfg.AccessKeyID != "" {
		creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""))
		optFns = append(optFns, config.WithCredentialsProvider(creds))
	}
	if cfg.Region != "" {
		optFns = append(optFns, config.WithRegion(cfg.Region))
	}
	awsConfig, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return nil, errors.Wrap(err, "unable to load aws config")
	}
	client := secretsmanager.NewFromConfig(awsConfig, func(o *secretsmanager.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &ASMStore{prefix: cfg.Prefix, client: client}, nil
}

func (a *ASMStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := a.Load(ctx, name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, err
	}
	return true, nil
}

// Load only supports string secrets.
func (a *ASMStore) Load(ctx context.Context, name string) ([]byte, error) {
	out, err := a.client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId: aws.String(a.prefix + name),
	})
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorCode() == "ResourceNotFoundException" {
		return nil, errors.Wrapf(ErrNotFound, "secret %s", a.prefix+name)
	} else if err != nil {
		return nil, errors.Wrapf(err, "unable to retrieve secret %s", a.prefix+name)
	}
	if out.SecretString == nil {
		return nil, errors.Errorf("secret %s is not a string", a.prefix+name)
	}
	return []byte(*out.SecretString), nil
}
