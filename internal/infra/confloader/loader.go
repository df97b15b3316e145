package confloader

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is stripped from environment variable names before they
// are mapped to keys.
const DefaultEnvPrefix = "MESHBBS_"

type options struct {
	file      string
	envPrefix string
}

// Option adjusts a Load call.
type Option func(*options)

// WithFile adds a YAML file layer. An empty path is ignored.
func WithFile(path string) Option {
	return func(o *options) { o.file = path }
}

// WithEnvPrefix replaces DefaultEnvPrefix.
func WithEnvPrefix(prefix string) Option {
	return func(o *options) { o.envPrefix = prefix }
}

// Load fills target from, in rising priority, the values already in it, the
// YAML file and the environment. Struct fields are matched by koanf tags.
func Load(target any, opts ...Option) error {
	o := options{envPrefix: DefaultEnvPrefix}
	for _, opt := range opts {
		opt(&o)
	}

	k := koanf.New(".")
	if o.file != "" {
		if err := k.Load(file.Provider(o.file), yaml.Parser()); err != nil {
			return fmt.Errorf("confloader: read %s: %w", o.file, err)
		}
	}

	prefix := o.envPrefix
	envLayer := env.Provider(prefix, ".", func(name string) string {
		return EnvKey(prefix, name)
	})
	if err := k.Load(envLayer, nil); err != nil {
		return fmt.Errorf("confloader: environment: %w", err)
	}

	if err := k.Unmarshal("", target); err != nil {
		return fmt.Errorf("confloader: decode: %w", err)
	}
	return nil
}

// EnvKey maps a variable name to a key path. After the prefix, the first
// underscore ends the section name and each double underscore starts a
// nested level:
//
//	MESHBBS_SYNC_REPLICATE_CHANNELS   -> sync.replicate_channels
//	MESHBBS_STORAGE_BADGER__GC_INTERVAL -> storage.badger.gc_interval
func EnvKey(prefix, name string) string {
	s := strings.ToLower(strings.TrimPrefix(name, prefix))
	section, rest, ok := strings.Cut(s, "_")
	if !ok {
		return section
	}
	return section + "." + strings.ReplaceAll(rest, "__", ".")
}
