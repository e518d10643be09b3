package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gavelhq/gavel/internal/api"
	"github.com/gavelhq/gavel/internal/config"
)

var flagListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the review API server",
	Long:  "Serve the review API over HTTP: synchronous reviews, asynchronous submissions, and task polling.",
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides := buildOverrides()
		if flagListen != "" {
			overrides["listen"] = flagListen
		}
		cfg, err := config.Load(overrides)
		if err != nil {
			return err
		}

		eng, closer, err := buildEngine(cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			exitCode = ExitRuntimeError
			return nil
		}
		defer closer()

		srv := api.New(cfg.Server.Listen, eng)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.ListenAndServe()
		}()

		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				exitCode = ExitRuntimeError
			}
		case <-stop:
			ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				fmt.Fprintf(os.Stderr, "Error during shutdown: %v\n", err)
				exitCode = ExitRuntimeError
			}
		}
		return nil
	},
}

func init() {
	addConfigFlags(serveCmd)
	serveCmd.Flags().StringVar(&flagListen, "listen", "", "Listen address (host:port)")
}
