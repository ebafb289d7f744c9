package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ModelPath   string // .hcl file or directory
	RestorePath string // encoded bundle, used instead of ModelPath
	SavePath    string

	// Inputs are name=expression pairs, one per parameter of forward.
	Inputs    []string
	PrintCode bool
	Describe  bool

	LogFormat string
	LogLevel  string
}

// NewConfig validates cfg and returns a copy.
func NewConfig(cfg Config) (*Config, error) {
	switch {
	case cfg.ModelPath == "" && cfg.RestorePath == "":
		return nil, errors.New("either a model path or a bundle to restore is required")
	case cfg.ModelPath != "" && cfg.RestorePath != "":
		return nil, errors.New("a model path and a bundle to restore are mutually exclusive")
	}
	for _, in := range cfg.Inputs {
		if _, _, err := splitInput(in); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// splitInput splits "name=expr" into its parts.
func splitInput(in string) (string, string, error) {
	name, expr, ok := strings.Cut(in, "=")
	name = strings.TrimSpace(name)
	if !ok || !hclsyntax.ValidIdentifier(name) || strings.TrimSpace(expr) == "" {
		return "", "", fmt.Errorf("invalid input %q: want name=expression", in)
	}
	return name, expr, nil
}
