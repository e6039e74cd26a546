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
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "codebuddy",
	Short: "Bridge AI coding assistants to language servers and your source tree",
	Long: `codebuddy is an MCP server that gives AI coding assistants structured,
LSP-backed access to a local source tree: rename, move, delete, and
consolidate operations that plan before they touch disk, code intelligence
queries answered by real language servers, and a single closed error
taxonomy back to the caller.`,
}

// Execute adds all child commands to the root command. Called once by
// main.main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "path to config file (default: .codebuddy.json in the project root)")
	rootCmd.PersistentFlags().String("root", ".", "project root codebuddy serves")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose logging output")

	viper.BindPFlag("configFile", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("root", rootCmd.PersistentFlags().Lookup("root"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))

	cobra.OnInitialize(func() {
		if viper.GetBool("verbose") {
			pterm.EnableDebugMessages()
		}
	})
}
