// Package dotenv loads KEY=VALUE files into the process environment
// without overriding variables that are already set.
package dotenv

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

func Load(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	var errs []error
	for _, path := range paths {
		if err := loadFile(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			errs = append(errs, fmt.Errorf("dotenv %s: %w", path, err))
		}
	}

	return errors.Join(errs...)
}

func loadFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := applyLine(line); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read: %w", err)
	}

	return nil
}

func applyLine(line string) error {
	if strings.HasPrefix(line, "#") {
		return nil
	}

	line = strings.TrimSpace(strings.TrimPrefix(line, "export "))

	key, value, found := strings.Cut(line, "=")
	if !found {
		return nil
	}

	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	if strings.ContainsAny(key, " \t") {
		return fmt.Errorf("invalid key %q", key)
	}

	value = unquote(strings.TrimSpace(value))

	if _, exists := os.LookupEnv(key); exists {
		return nil
	}

	if err := os.Setenv(key, value); err != nil {
		return fmt.Errorf("set env: %w", err)
	}

	return nil
}

// unquote strips matching quotes; unquoted values lose a trailing " # comment".
func unquote(value string) string {
	if len(value) >= 2 {
		first, last := value[0], value[len(value)-1]
		if (first == '\'' || first == '"') && first == last {
			return value[1 : len(value)-1]
		}
	}
	if idx := strings.Index(value, " #"); idx >= 0 {
		value = strings.TrimSpace(value[:idx])
	}
	return value
}
