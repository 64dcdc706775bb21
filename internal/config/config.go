// Package config loads optional elfstat defaults from a TOML file. Values from
// the file only fill flags that were not given on the command line.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/pflag"
)

// ErrInvalidConfig is returned for config files that cannot be read or parsed.
var ErrInvalidConfig = errors.New("invalid config file")

// File mirrors the analysis flags. Nil fields are absent from the file.
type File struct {
	Section *string `toml:"section"`
	Mode    *int    `toml:"mode"`
	Syntax  *string `toml:"syntax"`
	Address *string `toml:"address"`
	Partial *bool   `toml:"partial"`
	Symbol  *string `toml:"symbol"`
	Format  *string `toml:"format"`
	Pretty  *bool   `toml:"pretty"`
}

// Load reads and parses the config file at path.
func Load(path string) (*File, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	f, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes TOML content. Unknown keys are rejected.
func Parse(content []byte) (*File, error) {
	var f File
	dec := toml.NewDecoder(bytes.NewReader(content)).DisallowUnknownFields()
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return &f, nil
}

// values lists the file's settings by flag name.
func (f *File) values() map[string]string {
	v := make(map[string]string)
	if f.Section != nil {
		v["section"] = *f.Section
	}
	if f.Mode != nil {
		v["mode"] = strconv.Itoa(*f.Mode)
	}
	if f.Syntax != nil {
		v["syntax"] = *f.Syntax
	}
	if f.Address != nil {
		v["address"] = *f.Address
	}
	if f.Partial != nil {
		v["partial"] = strconv.FormatBool(*f.Partial)
	}
	if f.Symbol != nil {
		v["symbol"] = *f.Symbol
	}
	if f.Format != nil {
		v["format"] = *f.Format
	}
	if f.Pretty != nil {
		v["pretty"] = strconv.FormatBool(*f.Pretty)
	}
	return v
}

// Apply sets every flag the file names that exists in fs and was not changed
// on the command line.
func (f *File) Apply(fs *pflag.FlagSet) error {
	for name, value := range f.values() {
		if fs.Lookup(name) == nil || fs.Changed(name) {
			continue
		}
		if err := fs.Set(name, value); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, err)
		}
	}
	return nil
}
