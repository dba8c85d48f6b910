// Package config loads annotator settings from an optional YAML file and
// LINKATTRS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/spf13/viper"

	"github.com/skridlevsky/linkattrs/types"
)

// EnvPrefix prefixes every environment override, e.g.
// LINKATTRS_TARGETATTRIBUTES="status,type".
const EnvPrefix = "LINKATTRS"

const fileType = "yaml"

// ErrInvalid is returned for settings that cannot be used.
var ErrInvalid = errors.New("invalid settings")

// Config is everything the command line needs to start.
type Config struct {
	Vault    string         `mapstructure:"vault"`
	Settings types.Settings `mapstructure:",squash"`
}

// Load reads the config file at path (skipped when empty), then applies
// environment overrides on top of the defaults.
func Load(path string) (Config, error) {
	v := viper.New()
	d := types.DefaultSettings()
	v.SetDefault("vault", "")
	v.SetDefault("targetAttributes", d.TargetAttributes)
	v.SetDefault("targetTags", d.TargetTags)
	v.SetDefault("getFromInlineField", d.GetFromInlineField)
	v.SetDefault("enableFileList", d.EnableFileList)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType(fileType)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.Settings.TargetAttributes = normalizeNames(cfg.Settings.TargetAttributes)

	if err := Validate(cfg.Settings); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// normalizeNames trims names and drops the empty entries a trailing comma
// in an environment list leaves behind.
func normalizeNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}

// Validate checks that every target attribute can be used both as a
// frontmatter key and as an inline field name.
func Validate(s types.Settings) error {
	seen := make(map[string]bool, len(s.TargetAttributes))
	for _, name := range s.TargetAttributes {
		switch {
		case name == "":
			return fmt.Errorf("%w: empty attribute name", ErrInvalid)
		case strings.ContainsFunc(name, unicode.IsSpace):
			return fmt.Errorf("%w: attribute %q contains whitespace", ErrInvalid, name)
		case strings.Contains(name, "::"):
			return fmt.Errorf("%w: attribute %q contains \"::\"", ErrInvalid, name)
		case seen[name]:
			return fmt.Errorf("%w: duplicate attribute %q", ErrInvalid, name)
		}
		seen[name] = true
	}
	return nil
}
