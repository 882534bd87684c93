package commands

import (
	"errors"

	"github.com/spf13/viper"
)

// Config is the optional YAML configuration (.mlsearch.yaml by default).
// Flags override config values; config values override defaults.
type Config struct {
	Dataset   string `mapstructure:"dataset"`
	Estimator string `mapstructure:"estimator"`
	Strategy  string `mapstructure:"strategy"`
	Metric    string `mapstructure:"metric"`
	Folds     int    `mapstructure:"folds"`
	Stratify  bool   `mapstructure:"stratify"`
	Budget    int    `mapstructure:"budget"`
	Seed      uint64 `mapstructure:"seed"`
	Workers   int    `mapstructure:"workers"`
	// TimeoutSeconds caps a single candidate evaluation; 0 disables it.
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	TestRatio      float64 `mapstructure:"test_ratio"`
	ModelOut       string  `mapstructure:"model_out"`
	CacheDir       string  `mapstructure:"cache_dir"`
	PlotParam      string  `mapstructure:"plot_param"`
	PlotOut        string  `mapstructure:"plot_out"`

	// Params overrides the estimator's default grid: parameter name to the
	// list of values to try.
	Params map[string][]interface{} `mapstructure:"params"`
}

// LoadConfig reads the YAML config at path, or .mlsearch.yaml in the working
// directory when path is empty. A missing default file is not an error.
func LoadConfig(path string) (Config, error) {
	cfg := Config{}
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(".mlsearch")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// No default config present; run on flags alone.
		var notFound viper.ConfigFileNotFoundError
		if path == "" && errors.As(err, &notFound) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
