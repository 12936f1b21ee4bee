package config

import (
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// loadFile читает конфигурацию из файла. Формат определяется по расширению.
func loadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "read config file %s", path)
	}
	var conf Config
	if err := v.Unmarshal(&conf); err != nil {
		return nil, errors.Wrapf(err, "decode config file %s", path)
	}
	return &conf, nil
}
