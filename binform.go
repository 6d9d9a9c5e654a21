// Package binform elaborates declarative binary format descriptions and
// derives decoders and encoders from them. It is the façade over the
// ast, elab, and binary packages: parse or build a raw module, elaborate
// it once, then decode byte streams into structured values and encode
// values back into bytes.
package binform

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/partite-ai/binform/ast"
	"github.com/partite-ai/binform/binary"
	"github.com/partite-ai/binform/core"
	"github.com/partite-ai/binform/elab"
)

// Module is an elaborated format module. Type alias so most consumers
// import only this package.
type Module = elab.Module

// Config carries the processing knobs left open by the format language.
// The zero value means big-endian multi-byte formats, optional switch
// otherwise arms, and unknown-size choice options only in final position.
type Config struct {
	// ByteOrder is "big" or "little" and applies to integer, float, and
	// UTF-16 formats without an explicit order. Empty means big.
	ByteOrder string `yaml:"byte_order"`

	// RequireOtherwise rejects switch formats lacking an otherwise arm
	// at elaboration instead of at decode time.
	RequireOtherwise bool `yaml:"require_otherwise"`

	// AllowNonLastUnknownChoice permits unknown-size choice options in
	// non-final position.
	AllowNonLastUnknownChoice bool `yaml:"allow_non_last_unknown_choice"`
}

// LoadConfig reads a YAML config file. The file is the single source of
// truth; absent keys keep their zero-value defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	if _, err := cfg.options(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) options() (elab.Options, error) {
	opts := elab.Options{
		RequireOtherwise:          c.RequireOtherwise,
		AllowNonLastUnknownChoice: c.AllowNonLastUnknownChoice,
	}
	switch c.ByteOrder {
	case "", "big":
		opts.DefaultByteOrder = core.OrderBig
	case "little":
		opts.DefaultByteOrder = core.OrderLittle
	default:
		return opts, fmt.Errorf("unknown byte order %q", c.ByteOrder)
	}
	return opts, nil
}

// Elaborate lowers a raw module and validates its static invariants.
func Elaborate(m *ast.Module, cfg Config) (*elab.Module, error) {
	opts, err := cfg.options()
	if err != nil {
		return nil, err
	}
	return elab.ElaborateModule(m, opts)
}

// ElaborateFile parses a JSONC module file and elaborates it.
func ElaborateFile(path string, cfg Config) (*elab.Module, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := ast.ParseModuleJSON(data)
	if err != nil {
		return nil, fmt.Errorf("module %s: %w", path, err)
	}
	return Elaborate(m, cfg)
}

// Decode reads one value of the named format from the front of data and
// returns it with the number of bytes consumed.
func Decode(m *elab.Module, name string, data []byte) (core.Term, int, error) {
	format, ok := m.Format(name)
	if !ok {
		return nil, 0, fmt.Errorf("no format named %s", name)
	}
	return binary.NewDecoder(m.Env()).Decode(format, data)
}

// DecodeComplete is Decode but requires the value to cover all of data.
func DecodeComplete(m *elab.Module, name string, data []byte) (core.Term, error) {
	format, ok := m.Format(name)
	if !ok {
		return nil, fmt.Errorf("no format named %s", name)
	}
	return binary.NewDecoder(m.Env()).DecodeComplete(format, data)
}

// Encode serializes a value of the named format.
func Encode(m *elab.Module, name string, value core.Term) ([]byte, error) {
	format, ok := m.Format(name)
	if !ok {
		return nil, fmt.Errorf("no format named %s", name)
	}
	return binary.NewEncoder(m.Env()).Encode(format, value)
}
