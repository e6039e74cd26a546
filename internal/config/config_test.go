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

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsZeroValue(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.json"))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Server.Port)
	assert.False(t, cfg.Auth.Enabled)
}

func TestLoad_ParsesRecognizedSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codebuddy.json")
	body := `{
		"server": {"host": "0.0.0.0", "port": 9000},
		"lsp": {"servers": [{"name": "gopls", "command": ["gopls"], "extensions": [".go"]}]},
		"logging": {"level": "debug"},
		"auth": {"enabled": true, "jwt_secret": "s3cr3t"}
	}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 9000, cfg.Server.Port)
	require.Len(t, cfg.LSP.Servers, 1)
	assert.Equal(t, "gopls", cfg.LSP.Servers[0].Name)
	assert.True(t, cfg.Auth.Enabled)
	assert.Equal(t, "s3cr3t", cfg.Auth.JWTSecret)
}

func TestLoad_UnrecognizedTopLevelKeyDoesNotFail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "codebuddy.json")
	body := `{"server": {"port": 1}, "totallyUnknownSection": {"x": 1}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Server.Port)
}
