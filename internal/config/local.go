package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// localConfig is the minimal shape of .history/config.yaml that callers
// wanting a single setting read without paying for full viper
// initialization can parse directly.
type localConfig struct {
	DefaultDB string `yaml:"default-db"`
}

// ReadLocalDefaultDB reads just the default-db key from the config file at
// path, without initializing the viper singleton.
func ReadLocalDefaultDB(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var lc localConfig
	if err := yaml.Unmarshal(data, &lc); err != nil {
		return "", err
	}
	return lc.DefaultDB, nil
}
