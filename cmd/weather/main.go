package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/duluk/weatherjson/pkg/weather"
	"github.com/duluk/weatherjson/pkg/weather/openweather"
)

const (
	apiKeyEnv       = "OPENWEATHER_API_KEY"
	logLevelEnv     = "LOG_LEVEL"
	defaultLogLevel = "WARN"
)

// newProvider is swapped out in tests to avoid real network calls.
var newProvider = func(apiKey string) weather.Provider {
	return openweather.New(apiKey, openweather.WithLogger(log.StandardLogger()))
}

// initLogger sends logrus output to stderr at the given level; stdout is
// reserved for the report.
func initLogger(logLevel string) error {
	level, err := log.ParseLevel(logLevel)
	if err != nil {
		return err
	}

	log.SetOutput(os.Stderr)
	log.SetFormatter(&log.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})
	log.SetLevel(level)
	return nil
}

func getAPIKey(getenv func(string) string) (string, error) {
	if apiKey := getenv(apiKeyEnv); apiKey != "" {
		return apiKey, nil
	}
	return "", weather.ConfigError(errors.Errorf("%s environment variable not set", apiKeyEnv))
}

func run(ctx context.Context, stdin io.Reader, stdout io.Writer, getenv func(string) string) error {
	req, err := weather.DecodeRequest(stdin)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{"city": req.City, "units": req.Units}).Debug("request decoded")

	apiKey, err := getAPIKey(getenv)
	if err != nil {
		return err
	}

	report, err := newProvider(apiKey).Lookup(ctx, req)
	if err != nil {
		return err
	}

	return weather.WriteReport(stdout, report)
}

func main() {
	logLevel := os.Getenv(logLevelEnv)
	if logLevel == "" {
		logLevel = defaultLogLevel
	}
	if err := initLogger(logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid %s: %v\n", logLevelEnv, err)
		os.Exit(1)
	}

	if err := run(context.Background(), os.Stdin, os.Stdout, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
