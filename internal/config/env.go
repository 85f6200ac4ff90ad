// Package config loads the server's settings from the process environment.
//
// Sources are applied in order: an AWS Secrets Manager secret (when a secret
// id is configured), then a .env file, then the environment itself is parsed
// into [Server]. Values already present in the environment win unless
// AWS_SECRETS_MANAGER_OVERWRITE is true.
package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// LoadEnv populates the environment from Secrets Manager and .env files. Both
// sources are optional; failures are logged and startup continues with
// whatever the environment already holds.
func LoadEnv(ctx context.Context, defaultEnvPath string) {
	src := secretSourceFromEnv()
	if src.ID != "" {
		if err := loadAWSSecret(ctx, src); err != nil {
			log.Printf("authcore: skipping AWS Secrets Manager load: %v", err)
		}
	}
	loadDotEnv(defaultEnvPath)
}

func loadDotEnv(defaultEnvPath string) {
	envFile := os.Getenv("ENV_FILE_PATH")
	if envFile == "" {
		envFile = defaultEnvPath
	}
	if err := godotenv.Load(envFile); err != nil {
		if err := godotenv.Load(); err != nil && os.Getenv("KUBERNETES_SERVICE_HOST") == "" {
			log.Printf("authcore: no .env file at %s, using the process environment", envFile)
		}
	}
}

func secretSourceFromEnv() SecretSource {
	id := os.Getenv("AWS_SECRETS_MANAGER_SECRET_ID")
	if id == "" {
		id = os.Getenv("AWS_SECRET_ID")
	}
	return SecretSource{
		ID:           id,
		Region:       os.Getenv("AWS_SECRETS_MANAGER_REGION"),
		VersionStage: os.Getenv("AWS_SECRETS_MANAGER_VERSION_STAGE"),
		Overwrite:    strings.EqualFold(os.Getenv("AWS_SECRETS_MANAGER_OVERWRITE"), "true"),
	}
}

func loadAWSSecret(ctx context.Context, src SecretSource) error {
	var opts []func(*awsconfig.LoadOptions) error
	if src.Region != "" {
		opts = append(opts, awsconfig.WithRegion(src.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("load aws config: %w", err)
	}

	applied, err := LoadSecret(ctx, secretsmanager.NewFromConfig(cfg), src)
	if err != nil {
		return err
	}
	log.Printf("authcore: loaded %d env vars from secret %s", applied, src.ID)
	return nil
}

// ParseEnv parses env-tagged fields of target from the environment.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func awsString(s string) *string {
	if s == "" {
		return nil
	}
	return aws.String(s)
}
