/*
Copyright © 2025 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package config loads codebuddy's JSON configuration file with
// github.com/spf13/viper. Semantic validation beyond type-checking is
// deliberately left to the subsystems that consume each section; this
// package only exposes the parsed struct.
package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/spf13/viper"

	"codebuddy.dev/codebuddy/internal/logging"
)

// ServerSpecConfig is one entry of "lsp.servers[]".
type ServerSpecConfig struct {
	Name             string            `mapstructure:"name"`
	Command          []string          `mapstructure:"command"`
	Extensions       []string          `mapstructure:"extensions"`
	Timeout          time.Duration     `mapstructure:"timeout"`
	WorkingDirectory string            `mapstructure:"workingDirectory"`
	Environment      map[string]string `mapstructure:"environment"`
	RestartInterval  time.Duration     `mapstructure:"restartInterval"`
}

// Config is the parsed form of the JSON config file.
type Config struct {
	Server struct {
		Host            string        `mapstructure:"host"`
		Port            int           `mapstructure:"port"`
		MaxConnections  int           `mapstructure:"max_connections"`
		RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	} `mapstructure:"server"`

	LSP struct {
		Servers []ServerSpecConfig `mapstructure:"servers"`
	} `mapstructure:"lsp"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logging"`

	Auth struct {
		Enabled   bool   `mapstructure:"enabled"`
		JWTSecret string `mapstructure:"jwt_secret"`
	} `mapstructure:"auth"`

	Validation struct {
		Enabled   bool   `mapstructure:"enabled"`
		Command   string `mapstructure:"command"`
		OnFailure string `mapstructure:"on_failure"` // Report | Interactive | Rollback
	} `mapstructure:"validation"`
}

// recognizedTopLevelKeys is used only to produce a startup warning for
// unrecognized keys; it never rejects the file.
var recognizedTopLevelKeys = map[string]bool{
	"server": true, "lsp": true, "logging": true, "auth": true, "validation": true,
}

// Load reads the JSON config file at path (project-relative) and
// returns the parsed Config. A missing file is not an error: Load
// returns the zero-value Config, matching "the server is stateless" and
// letting every subsystem fall back to its own defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	var cfg Config
	if err := v.ReadInConfig(); err != nil {
		// viper reports a missing explicit config file as a bare path
		// error, not its own ConfigFileNotFoundError (that one is only
		// produced by search-path lookup).
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return &cfg, nil
		}
		return nil, err
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	for _, key := range v.AllKeys() {
		top := key
		if idx := indexOfDot(key); idx >= 0 {
			top = key[:idx]
		}
		if !recognizedTopLevelKeys[top] {
			logging.Global().Warning("config: unrecognized key %q ignored", key)
		}
	}
	return &cfg, nil
}

func indexOfDot(s string) int {
	for i, r := range s {
		if r == '.' {
			return i
		}
	}
	return -1
}
