package simhw

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Decode reads a YAML machine description. Unknown fields are rejected.
func Decode(r io.Reader) (Spec, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return Spec{}, fmt.Errorf("read sim spec: %w", err)
	}

	var spec Spec
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&spec); err != nil {
		return Spec{}, fmt.Errorf("decode sim spec: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return Spec{}, err
	}
	return spec, nil
}

// LoadFile decodes the YAML file at path and builds its hardware.
func LoadFile(path string) (*Hardware, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sim spec: %w", err)
	}
	defer f.Close()

	spec, err := Decode(f)
	if err != nil {
		return nil, err
	}
	return New(spec), nil
}

// Validate checks that card indices are unique and element shapes make
// sense.
func (s Spec) Validate() error {
	seen := make(map[int]bool)
	for i, c := range s.Cards {
		if c.Index < 0 {
			return fmt.Errorf("cards[%d].index must be >= 0", i)
		}
		if seen[c.Index] {
			return fmt.Errorf("cards[%d]: duplicate index %d", i, c.Index)
		}
		seen[c.Index] = true

		for j, e := range c.Elements {
			if e.Name == "" {
				return fmt.Errorf("cards[%d].elements[%d].name must not be empty", i, j)
			}
			if e.Channels < 0 || e.Channels > 2 {
				return fmt.Errorf("cards[%d].elements[%d].channels must be 1 or 2", i, j)
			}
			if len(e.Values) > max(e.Channels, 1) {
				return fmt.Errorf("cards[%d].elements[%d]: more values than channels", i, j)
			}
			if e.Decibel != nil && e.Decibel.Min > e.Decibel.Max {
				return errors.New("decibel.min must be <= decibel.max for " + e.Name)
			}
			if e.Linear != nil && e.Linear.Min > e.Linear.Max {
				return errors.New("linear.min must be <= linear.max for " + e.Name)
			}
		}
	}
	return nil
}
