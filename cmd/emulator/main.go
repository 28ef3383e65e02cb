package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aura-studio/lambda-runtime/emulator"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	addr    string
	timeout time.Duration
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "emulator",
	Short: "Serve the runtime control-plane API locally",
	Long: `Serve the runtime control-plane API locally.

Point the runtime at it with AWS_LAMBDA_RUNTIME_API=<addr>, then invoke the
function with:

  curl -d '{"name":"aura"}' http://<addr>/2015-03-31/functions/function/invocations`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := log.NewWithOptions(os.Stderr, log.Options{
			Prefix:          "emulator",
			ReportTimestamp: true,
		})
		opts := []emulator.Option{
			emulator.WithTimeout(timeout),
			emulator.WithLogger(logger),
		}
		if debug {
			logger.SetLevel(log.DebugLevel)
			opts = append(opts, emulator.WithDebugMode())
		}

		logger.Info("listening", "addr", addr)
		return emulator.New(opts...).Serve(cmd.Context(), addr)
	},
}

func init() {
	rootCmd.Flags().StringVarP(&addr, "addr", "a", "127.0.0.1:9001", "listen address")
	rootCmd.Flags().DurationVarP(&timeout, "timeout", "t", 3*time.Second, "invocation deadline")
	rootCmd.Flags().BoolVarP(&debug, "debug", "d", false, "log every invocation")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
