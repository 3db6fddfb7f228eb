package config

import (
	"strings"

	nberrors "git.home.luguber.info/inful/nblink/internal/foundation/errors"
)

// Validate checks the configuration after defaults were applied.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Docs.Root) == "" {
		return nberrors.ConfigError("docs.root is required").UserAction().Build()
	}
	seen := make(map[string]struct{}, len(c.Docs.Suffixes))
	for _, suffix := range c.Docs.Suffixes {
		if !strings.HasPrefix(suffix, ".") || len(suffix) < 2 {
			return nberrors.ConfigError("docs.suffixes entries must start with a dot").
				WithContext("suffix", suffix).
				UserAction().
				Build()
		}
		if _, dup := seen[suffix]; dup {
			return nberrors.ConfigError("duplicate entry in docs.suffixes").
				WithContext("suffix", suffix).
				UserAction().
				Build()
		}
		seen[suffix] = struct{}{}
	}
	if strings.TrimSpace(c.Build.OutputDir) == "" {
		return nberrors.ConfigError("build.output_dir is required").UserAction().Build()
	}
	if c.Watch.RescanInterval < 0 {
		return nberrors.ConfigError("watch.rescan_interval must not be negative").
			WithContext("value", c.Watch.RescanInterval.String()).
			UserAction().
			Build()
	}
	return nil
}
