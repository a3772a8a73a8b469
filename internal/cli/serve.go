package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"docsqa/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP query API",
	Long: `Load the index and serve questions over HTTP.

Endpoints:
  POST /query    answer a question
  GET  /health   liveness
  GET  /stats    index metadata

Examples:
  docsqa serve
  docsqa serve --addr 0.0.0.0:9000`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	log := GetLogger()

	answerUC, ix, err := newAnswerUseCase(cfg, GetRootDir(), log)
	if err != nil {
		return err
	}

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	handler := server.NewHandler(
		answerUC,
		ix,
		server.QueryShape(cfg.Server.QueryShape),
		time.Duration(cfg.Server.RequestTimeoutSecs)*time.Second,
		log,
	)
	router := server.NewRouter(handler, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Serving %d indexed passages on http://%s\n", ix.Len(), addr)
	return server.Serve(ctx, addr, router, log)
}
