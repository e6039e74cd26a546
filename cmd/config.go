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

package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codebuddy.dev/codebuddy/internal/config"
)

// configCmd prints the fully resolved configuration codebuddy would
// serve with, so an operator can confirm a config file and --root
// combination before starting the real server.
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved server configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(viper.GetString("root"))
		if err != nil {
			return fmt.Errorf("invalid --root: %w", err)
		}
		cfgPath := viper.GetString("configFile")
		if cfgPath == "" {
			cfgPath = filepath.Join(root, ".codebuddy.json")
		}
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		out, err := json.MarshalIndent(cfg, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
