package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wizeapp/inference-worker/internal/config"
	"github.com/wizeapp/inference-worker/internal/handler"
	"github.com/wizeapp/inference-worker/internal/logger"
	"github.com/wizeapp/inference-worker/internal/serverless"
)

var echoHTTP bool

// echoCmd runs the echo handler, useful for verifying a deployment's job
// plumbing without loading a model.
var echoCmd = &cobra.Command{
	Use:   "echo",
	Short: "Run the echo handler (no model)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		log := logger.New(cfg.Debug)
		defer log.Sync()

		if echoHTTP {
			fmt.Printf("🧪 Dev server on port %s\n", cfg.Port)
			return serverless.NewServer(handler.Echo, log).ListenAndServe(":" + cfg.Port)
		}

		if cfg.Serverless() {
			fmt.Println("🚀 Starting serverless echo handler...")
		} else {
			fmt.Println("🧪 No endpoint configured, running local test job...")
		}
		return serverless.Start(cfg, handler.Echo, log)
	},
}

func init() {
	rootCmd.AddCommand(echoCmd)
	echoCmd.Flags().BoolVar(&echoHTTP, "http", false, "serve jobs over a local HTTP dev server instead of the platform")
}
