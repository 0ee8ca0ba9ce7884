package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/ppiankov/sentcheck/internal/logging"
	"github.com/ppiankov/sentcheck/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the check API over HTTP",
	Long: `Serve loads the parser once and answers check requests over HTTP.
Every checked sentence is appended to the configured record store.

Endpoints:
  GET  /healthz
  GET  /v1/policies
  POST /v1/check                {"text": "...", "policy": "lenient", "expected": true}
  GET  /v1/records/queries.csv
  GET  /v1/records/tokens.csv
  GET  /v1/report

Example:
  sentcheck serve --addr :8080`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address (default from config)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}

	gin.SetMode(ginMode(logging.Level()))
	ctx := cmd.Context()

	s, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	fmt.Fprintf(os.Stderr, "✓ Parser ready: %s (%s)\n", cfg.Parser.Backend, cfg.Parser.Model)
	fmt.Fprintf(os.Stderr, "✓ Listening on %s\n", cfg.Server.Addr)

	return server.New(s.checker, s.store).Run(ctx, cfg.Server.Addr)
}

// ginMode keeps gin's route table and debug warnings for debug logging only
func ginMode(level slog.Level) string {
	if level <= slog.LevelDebug {
		return gin.DebugMode
	}
	return gin.ReleaseMode
}
