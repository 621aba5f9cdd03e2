package main

import (
	"context"
	_ "embed"
	"os"
	"os/signal"
	"syscall"

	"github.com/tigerroll/chunkbatch/example/tutorial/internal/app"
	"github.com/tigerroll/chunkbatch/pkg/batch/support/util/logger"
)

// embeddedConfig embeds the content of the application's YAML configuration file.
//
//go:embed resources/application.yaml
var embeddedConfig []byte

// main runs the job named by the first argument, or batch.jobName when no
// argument is given, and exits with 1 unless the job completed.
func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handling for graceful shutdown (e.g., Ctrl+C)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Warnf("Received signal '%v'. Attempting to stop the job...", sig)
		cancel()
	}()

	// Get the path to the .env file from environment variables. Use ".env" as default if not set.
	envFilePath := os.Getenv("ENV_FILE_PATH")
	if envFilePath == "" {
		envFilePath = ".env"
	}

	var jobName string
	if len(os.Args) > 1 {
		jobName = os.Args[1]
	}

	code := app.RunApplication(ctx, envFilePath, embeddedConfig, jobName)
	cancel()
	os.Exit(code)
}
