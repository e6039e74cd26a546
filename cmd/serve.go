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
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"codebuddy.dev/codebuddy/internal/bootstrap"
	"codebuddy.dev/codebuddy/internal/config"
	"codebuddy.dev/codebuddy/internal/logging"
	"codebuddy.dev/codebuddy/internal/transport/stdio"
	"codebuddy.dev/codebuddy/internal/transport/ws"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the codebuddy MCP server over stdio or WebSocket, bridging an AI
coding assistant to the configured language servers and the project at
--root.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// CRITICAL: redirect pterm output to stderr immediately so the
		// stdio transport's stdout stays clean JSON-RPC framing.
		pterm.SetDefaultOutput(os.Stderr)

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

		services, err := bootstrap.Build(root, cfg)
		if err != nil {
			return fmt.Errorf("failed to build service graph: %w", err)
		}
		defer services.Close()

		transportKind := viper.GetString("serve.transport")

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			logging.Global().Info("shutting down")
			cancel()
		}()

		switch transportKind {
		case "stdio":
			t := stdio.New(services.Dispatcher, services.ServiceContext())
			return t.Run(ctx)

		case "ws", "websocket":
			wsCfg := ws.Config{
				Host:      cfg.Server.Host,
				Port:      cfg.Server.Port,
				AuthOn:    cfg.Auth.Enabled,
				JWTSecret: cfg.Auth.JWTSecret,
				TokenTTL:  24 * time.Hour,
			}
			if wsCfg.Host == "" {
				wsCfg.Host = "127.0.0.1"
			}
			if wsCfg.Port == 0 {
				wsCfg.Port = 7077
			}
			server := ws.New(wsCfg, services.Dispatcher, services.ServiceContext(), services.LSP)
			logging.Global().Info("listening on ws://%s:%d", wsCfg.Host, wsCfg.Port)
			return server.Run(ctx)

		default:
			return fmt.Errorf("unknown --transport %q: want \"stdio\" or \"ws\"", transportKind)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("transport", "stdio", `transport to serve on: "stdio" or "ws"`)
	viper.BindPFlag("serve.transport", serveCmd.Flags().Lookup("transport"))
}
