package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/kimono-koans/httm/internal/i18n"
)

// Settings are the defaults LoadSettings reads from ~/.config/httm/config.yaml.
// Nothing in this module calls LoadSettings: the CLI, the alias map, and
// diff-copy do not consult these values.
type Settings struct {
	// Aliases is a list of "local:remote" pairs, in the same syntax as HTTM_MAP_ALIASES.
	Aliases []string `mapstructure:"aliases"`
	// AltReplicated is the file's default for alt-replicated peer search (spec §4.3, §4.6).
	AltReplicated bool `mapstructure:"alt_replicated"`
	// ChunkSize is the file's chunk size; diff-copy always uses DiffCopyChunkSize.
	ChunkSize int `mapstructure:"chunk_size"`
}

// LoadSettings reads config.yaml from the given directory (or the user's config dir
// if dir is empty). A missing file is not an error: defaults are returned unchanged.
func LoadSettings(dir string) (Settings, error) {
	s := Settings{}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if dir == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return s, nil
		}
		dir = filepath.Join(configDir, "httm")
	}
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return s, nil
		}
		if os.IsNotExist(err) {
			return s, nil
		}
		return s, err
	}

	if err := v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf(i18n.G("can't parse configuration file: %v"), err)
	}

	return s, nil
}
