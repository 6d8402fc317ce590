// Command toolkit serves weather, Wikipedia and QR code tools over MCP and HTTP.
//
// Usage:
//
//	toolkit stdio                                  # MCP server on stdin/stdout
//	toolkit serve --addr :8080                     # REST wrapper plus /mcp
//	toolkit tools                                  # print the tool catalog
//	toolkit call get_weather --args '{"city":"Paris"}'
//	toolkit version
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/RobinCoderZhao/mcp-toolkit/internal/httpapi"
	"github.com/RobinCoderZhao/mcp-toolkit/internal/mcpserver"
	"github.com/RobinCoderZhao/mcp-toolkit/internal/telemetry"
)

var version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "toolkit",
		Short:         "Weather, Wikipedia and QR code tools over MCP and HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to toolkit.yaml (default ./toolkit.yaml)")

	rootCmd.AddCommand(stdioCmd(&configPath))
	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(toolsCmd(&configPath))
	rootCmd.AddCommand(callCmd(&configPath))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func stdioCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Serve MCP over stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *configPath, true)
			if err != nil {
				return err
			}
			defer a.Close()

			err = a.mcp.RunStdio(ctx, os.Stdin, os.Stdout)
			if errors.Is(err, context.Canceled) {
				a.logger.Info("MCP server stopped")
				return nil
			}
			return err
		},
	}
}

func serveCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve GET /tools, POST /call, GET /health and POST /mcp over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, *configPath, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr != "" {
				a.cfg.HTTP.Addr = addr
			}
			return serveHTTP(ctx, a)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides http.addr)")
	return cmd
}

func serveHTTP(ctx context.Context, a *app) error {
	api := httpapi.NewServer(a.facade, httpapi.Options{
		MaxBodyBytes: a.cfg.HTTP.MaxBodyBytes,
		CORSOrigin:   a.cfg.HTTP.CORSOrigin,
		MCP:          a.mcp.HTTPHandler(),
	})

	srv := &http.Server{
		Addr:         a.cfg.HTTP.Addr,
		Handler:      api.Routes(),
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server", "addr", srv.Addr, "tools", len(a.facade.ListTools()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func toolsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "Print the tool catalog as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *configPath, false)
			if err != nil {
				return err
			}
			defer a.Close()

			return printJSON(cmd, a.facade.ListTools())
		},
	}
}

func callCmd(configPath *string) *cobra.Command {
	var rawArgs string

	cmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Invoke one tool and print its payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var toolArgs map[string]any
			if err := json.Unmarshal([]byte(rawArgs), &toolArgs); err != nil {
				return fmt.Errorf("--args must be a JSON object: %w", err)
			}

			a, err := newApp(cmd.Context(), *configPath, true)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := telemetry.WithTransport(cmd.Context(), "cli")
			res := a.facade.Invoke(ctx, args[0], toolArgs)
			if res.Failed() {
				return res.Err
			}
			return printJSON(cmd, res.Payload)
		},
	}

	cmd.Flags().StringVarP(&rawArgs, "args", "a", "{}", "Tool arguments as a JSON object")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "toolkit %s (MCP %s)\n", version, mcpserver.ProtocolVersion)
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
