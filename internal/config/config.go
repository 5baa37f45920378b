// Package config loads and validates iocx settings from an optional YAML file.
package config

/*
iocx — fast tool in Go for extracting network indicators from text artifacts
Copyright (C) 2025  Pepijn van der Stap <rxtls@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/x-stp/iocx/internal/core"
	"github.com/x-stp/iocx/internal/suffix"
)

const (
	DefaultLogLevel = "warn"

	// EnvConfigPath names a config file when --config is not given.
	EnvConfigPath = "IOCX_CONFIG"
)

// Config is the complete runtime configuration.
type Config struct {
	SuffixList      string   `yaml:"suffix_list" validate:"omitempty,fileexists"`
	IncludePrivate  bool     `yaml:"include_private"`
	NoiseDenylist   []string `yaml:"noise_denylist" validate:"dive,required"`
	Workers         int      `yaml:"workers" validate:"gte=0,lte=2048"`
	QueueSize       int      `yaml:"queue_size" validate:"gte=1"`
	RateLimit       float64  `yaml:"rate_limit" validate:"gte=0"`
	PinWorkers      bool     `yaml:"pin_workers"`
	DecodeTolerance float64  `yaml:"decode_tolerance" validate:"gte=0,lte=1"`
	MetricsAddr     string   `yaml:"metrics_addr" validate:"omitempty,hostname_port"`
	LogLevel        string   `yaml:"log_level" validate:"omitempty,loglevel"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		NoiseDenylist:   append([]string(nil), suffix.DefaultNoiseDenylist...),
		QueueSize:       core.DefaultQueueSize,
		DecodeTolerance: core.DefaultDecodeTolerance,
		LogLevel:        DefaultLogLevel,
	}
}

// Level maps LogLevel to a zerolog level. Unknown or empty values give warn.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || c.LogLevel == "" {
		return zerolog.WarnLevel
	}
	return lvl
}
