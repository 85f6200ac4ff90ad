package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
)

// SecretsClient is the part of *secretsmanager.Client used here.
type SecretsClient interface {
	GetSecretValue(ctx context.Context, in *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SecretSource names a JSON object secret whose keys become env vars.
type SecretSource struct {
	ID           string
	Region       string
	VersionStage string
	Overwrite    bool
}

const defaultVersionStage = "AWSCURRENT"

// LoadSecret fetches src and exports its keys. It returns how many variables
// were set.
func LoadSecret(ctx context.Context, client SecretsClient, src SecretSource) (int, error) {
	if src.ID == "" {
		return 0, errors.New("secret id is required")
	}
	stage := src.VersionStage
	if stage == "" {
		stage = defaultVersionStage
	}

	out, err := client.GetSecretValue(ctx, &secretsmanager.GetSecretValueInput{
		SecretId:     awsString(src.ID),
		VersionStage: awsString(stage),
	})
	if err != nil {
		return 0, fmt.Errorf("fetching secret %s: %w", src.ID, err)
	}

	var payload []byte
	switch {
	case out.SecretString != nil:
		payload = []byte(*out.SecretString)
	case len(out.SecretBinary) > 0:
		payload = out.SecretBinary
	default:
		return 0, fmt.Errorf("secret %s has no payload", src.ID)
	}
	return applySecret(payload, src.Overwrite)
}

func applySecret(payload []byte, overwrite bool) (int, error) {
	var kv map[string]any
	if err := json.Unmarshal(payload, &kv); err != nil {
		return 0, fmt.Errorf("parsing secret as JSON: %w", err)
	}

	applied := 0
	for key, val := range kv {
		if !overwrite && os.Getenv(key) != "" {
			continue
		}
		if err := os.Setenv(key, fmt.Sprint(val)); err != nil {
			return applied, fmt.Errorf("setting env %s from secret: %w", key, err)
		}
		applied++
	}
	return applied, nil
}
