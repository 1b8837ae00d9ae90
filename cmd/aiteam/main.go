package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess     = 0 // Run finished, even if no files were produced
	ExitConfigError = 1 // Missing or malformed required configuration
	ExitError       = 2 // Unexpected runtime error
)

// ConfigError marks failures caused by the run's configuration (credentials,
// .aiteam.yaml, flags). They abort before any generation starts.
type ConfigError struct {
	Err error
}

func (e *ConfigError) Error() string {
	return "configuration error: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configErr(err error) error {
	if err == nil {
		return nil
	}
	return &ConfigError{Err: err}
}

func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var configError *ConfigError
	if errors.As(err, &configError) {
		return ExitConfigError
	}
	return ExitError
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}
