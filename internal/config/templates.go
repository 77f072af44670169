package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const templateHeader = "# can2mqtt process configuration\n# command-line flags override these values\n\n"

// Template renders Default() as "toml" or "yaml".
func Template(format string) (string, error) {
	file := ToFile(Default())
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "toml":
		out, err := toml.Marshal(file)
		if err != nil {
			return "", fmt.Errorf("render toml template: %w", err)
		}
		return templateHeader + string(out), nil
	case "yaml", "yml":
		out, err := yaml.Marshal(file)
		if err != nil {
			return "", fmt.Errorf("render yaml template: %w", err)
		}
		return templateHeader + string(out), nil
	default:
		return "", fmt.Errorf("unknown template format: %s", format)
	}
}

func WriteTemplate(path, format string, overwrite bool) error {
	template, err := Template(format)
	if err != nil {
		return err
	}
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(template), 0o600)
}
