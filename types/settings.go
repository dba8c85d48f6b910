package types

// Settings selects which target metadata is copied onto link elements.
type Settings struct {
	TargetAttributes   []string `json:"targetAttributes" yaml:"targetAttributes" mapstructure:"targetAttributes"`
	TargetTags         bool     `json:"targetTags" yaml:"targetTags" mapstructure:"targetTags"`
	GetFromInlineField bool     `json:"getFromInlineField" yaml:"getFromInlineField" mapstructure:"getFromInlineField"`
	EnableFileList     bool     `json:"enableFileList" yaml:"enableFileList" mapstructure:"enableFileList"`
}

// DefaultSettings matches a fresh install: tags and inline fields on,
// file explorer off, no attributes selected.
func DefaultSettings() Settings {
	return Settings{
		TargetAttributes:   []string{},
		TargetTags:         true,
		GetFromInlineField: true,
		EnableFileList:     false,
	}
}

// Clone returns a deep copy so callers can hand out snapshots safely.
func (s Settings) Clone() Settings {
	c := s
	c.TargetAttributes = append([]string(nil), s.TargetAttributes...)
	return c
}
