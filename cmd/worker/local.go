package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wizeapp/inference-worker/internal/config"
	"github.com/wizeapp/inference-worker/internal/handler"
	"github.com/wizeapp/inference-worker/internal/job"
	"github.com/wizeapp/inference-worker/internal/logger"
	"github.com/wizeapp/inference-worker/internal/serverless"
)

var localEcho bool

// localCmd runs a single job from a JSON file (or the built-in test job) and
// prints the result.
var localCmd = &cobra.Command{
	Use:   "local [job-file]",
	Short: "Run one job locally and print the result",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		log := logger.New(cfg.Debug)
		defer log.Sync()

		req := serverless.TestJob()
		if len(args) == 1 {
			b, err := os.ReadFile(args[0])
			if err != nil {
				fmt.Printf("❌ Job file not found: %s\n", args[0])
				return err
			}
			req = &job.Request{}
			if err := json.Unmarshal(b, req); err != nil {
				fmt.Printf("❌ Failed to parse job file: %v\n", err)
				return err
			}
			if req.ID == "" {
				req.ID = "local-file"
			}
		}

		var h job.Handler
		if localEcho {
			h = handler.Echo
		} else {
			built, cleanup, err := buildCompletionHandler(cfg, log)
			if err != nil {
				fmt.Printf("❌ %v\n", err)
				return err
			}
			defer cleanup()
			h = built
		}

		result := h(context.Background(), req)

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))

		if result.Failed() {
			fmt.Println("❌ Job failed")
			os.Exit(1)
		}
		fmt.Println("✅ Job completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(localCmd)
	localCmd.Flags().BoolVar(&localEcho, "echo", false, "use the echo handler instead of the model")
}
