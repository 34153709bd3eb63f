package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/querychat/querychat/internal/cli/querychatctl"
)

func main() {
	timeout := parseDurationWithDefault(strings.TrimSpace(os.Getenv("QUERYCHAT_CLI_TIMEOUT")), 60*time.Second)
	options := querychatctl.Options{
		BaseURL: envOr("QUERYCHAT_API_URL", "http://localhost:8000"),
		APIKey:  strings.TrimSpace(os.Getenv("QUERYCHAT_API_KEY")),
		Model:   envOr("QUERYCHAT_CHAT_MODEL_ID", "LMS-MODEL"),
		Timeout: timeout,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}

	os.Exit(querychatctl.Run(context.Background(), os.Args[1:], options))
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func parseDurationWithDefault(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "invalid QUERYCHAT_CLI_TIMEOUT %q; using %s\n", raw, fallback)
		return fallback
	}
	return parsed
}
