package loader

import (
	"fmt"
	"os"
	"strings"
)

// Document reads a plain-text document (an offer or a CV) from path. The
// content is returned trimmed; an empty file is an error because downstream
// prompts cannot work with blank documents.
func Document(name, path string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "document"
	}

	path = strings.TrimSpace(path)
	if path == "" {
		return "", fmt.Errorf("%s path is not configured", name)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading %s from %q: %w", name, path, err)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return "", fmt.Errorf("%s file %q is empty", name, path)
	}

	return text, nil
}

// Secret resolves a secret from an inline value or a file. When file is set it
// takes precedence over value. The result is always trimmed.
func Secret(name, value, file string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "secret"
	}

	file = strings.TrimSpace(file)
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading %s from file %q: %w", name, file, err)
		}
		value = string(data)
	}

	secret := strings.TrimSpace(value)
	if secret == "" {
		if file != "" {
			return "", fmt.Errorf("%s file %q is empty", name, file)
		}
		return "", fmt.Errorf("%s is not configured", name)
	}

	return secret, nil
}
