package tomlfile

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// DecodeGeneric parses data into out (typically a *map[string]interface{}),
// for callers that need to walk an arbitrary/extensible TOML shape rather
// than decode into a fixed struct — e.g. Artifacts.toml's artifact names
// are not known ahead of time.
func DecodeGeneric(data []byte, out interface{}) error {
	if _, err := toml.Decode(string(data), out); err != nil {
		return errors.Wrap(err, "decoding toml")
	}
	return nil
}
