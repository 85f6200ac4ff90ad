package notify

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/MrEthical07/authcore/otp"
	"gopkg.in/yaml.v3"
)

//go:embed purposes.yaml
var defaultCatalogYAML []byte

// PurposeText is the human-facing wording for one purpose.
type PurposeText struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Message     string `yaml:"message"`
}

// Catalog holds the wording for every purpose.
type Catalog map[otp.Purpose]PurposeText

// DefaultCatalog returns the built-in English catalog.
func DefaultCatalog() Catalog {
	c, err := ParseCatalog(defaultCatalogYAML)
	if err != nil {
		panic(fmt.Sprintf("notify: embedded catalog invalid: %v", err))
	}
	return c
}

// LoadCatalog reads a YAML catalog from path.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes YAML keyed by purpose name. Every known purpose must be
// present with a title and message, and unknown keys are rejected.
func ParseCatalog(data []byte) (Catalog, error) {
	var raw map[string]PurposeText
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	c := make(Catalog, len(raw))
	for key, text := range raw {
		p, err := otp.ParsePurpose(key)
		if err != nil {
			return nil, err
		}
		if strings.TrimSpace(text.Title) == "" || strings.TrimSpace(text.Message) == "" {
			return nil, fmt.Errorf("catalog entry %s needs a title and a message", key)
		}
		c[p] = text
	}
	for _, p := range otp.Purposes() {
		if _, ok := c[p]; !ok {
			return nil, fmt.Errorf("catalog is missing purpose %s", p)
		}
	}
	return c, nil
}

// Lookup returns the wording for p.
func (c Catalog) Lookup(p otp.Purpose) (PurposeText, error) {
	text, ok := c[p]
	if !ok {
		return PurposeText{}, errors.New("invalid OTP purpose provided")
	}
	return text, nil
}
