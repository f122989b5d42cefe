package main

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "worker",
	Short: "Serverless chat-completion worker for local GGUF models",
	Long: `worker runs a chat-completion job handler behind a serverless
job-dispatch endpoint, backed by a locally loaded GGUF model via llama.cpp
(or an OpenAI-compatible API when no local model is configured).

The worker takes jobs whose input is a list of {role, content} messages plus
optional generation parameters, and answers with an OpenAI-shaped payload of
one choice and token usage counts.

Examples:
  worker serve
  worker serve --http
  worker echo --http
  worker local job.json`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
