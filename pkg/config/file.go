package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile decodes the YAML file at path into v. Unknown keys are rejected
// so typos in configuration files surface at startup.
// Environment expansion (${VAR}) is applied to the file contents first.
func LoadFile[T any](path string, v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.Join(ErrReadingConfigFile, fmt.Errorf("read %s: %w", path, err))
	}

	return DecodeYAML(bytes.NewReader([]byte(os.ExpandEnv(string(raw)))), v)
}

// DecodeYAML decodes a single YAML document from r into v.
// An empty document leaves v untouched.
func DecodeYAML[T any](r io.Reader, v *T) error {
	if v == nil {
		return ErrNilPointer
	}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return errors.Join(ErrParsingConfigFile, err)
	}
	return nil
}
