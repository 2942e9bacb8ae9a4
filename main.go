// Command pixelforge is the CLI front-end of the enhancement pipeline:
// one-shot enhancement, a hot-folder watch daemon, workspace validation,
// and a generator for default-weight model files.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"pixelforge/core"
	"pixelforge/core/validation"
	"pixelforge/logging"
)

// version is stamped by the release build via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

// run dispatches the CLI commands and returns the process exit code. It is
// split from main so tests can drive the dispatch directly.
func run(args []string) int {
	if len(args) == 0 {
		printUsage(os.Stderr)
		return core.ExitCodeError
	}

	command := args[0]

	// Commands that need no configuration and no logger.
	switch command {
	case "version", "-version", "--version":
		fmt.Printf("pixelforge %s\n", version)
		return core.ExitCodeSuccess
	case "help", "-h", "-help", "--help":
		printUsage(os.Stdout)
		return core.ExitCodeSuccess
	case "genmodel":
		return runGenModel(args[1:])
	case "enhance", "watch", "validate":
		// Fall through to the configured dispatch below.
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n", command)
		printUsage(os.Stderr)
		return core.ExitCodeError
	}

	// A missing .env file is fine: every setting has a default. Only a
	// present-but-unreadable file is worth a warning. The logger is not up
	// yet, so use fmt.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Printf("Warning: .env file not loaded: %v\n", err)
	}

	cfg, err := core.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		return core.ExitCodeError
	}

	level := logging.ParseLogLevel("LOG_LEVEL", zapcore.InfoLevel)
	logger, err := logging.NewLoggerAtLevel(level, cfg.DevMode, cfg.LogPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		return core.ExitCodeError
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Printf("Failed to sync logger: %v\n", syncErr)
		}
	}()

	switch command {
	case "enhance":
		return runEnhance(cfg, logger, args[1:])
	case "watch":
		return runWatch(cfg, logger)
	default: // "validate"
		return runValidate(cfg, logger, args[1:])
	}
}

// runValidate executes the validation suite with progress output and maps
// the outcome to an exit code. The -quick flag skips checksum verification
// and the index database check.
func runValidate(cfg *core.Config, logger *logging.Logger, args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	quick := fs.Bool("quick", false, "skip checksum verification and the index database check")
	if err := fs.Parse(args); err != nil {
		return core.ExitCodeError
	}

	suite := validation.NewValidationSuite(cfg).WithShowProgress(true)

	var result validation.SuiteResult
	if *quick {
		result = suite.ValidateQuick()
	} else {
		result = suite.Validate()
	}

	if !result.Success {
		logFailedSteps(logger, result)
		return core.ExitCodeError
	}

	logger.Info("Validation passed",
		zap.Int("checks_passed", result.PassedSteps),
		zap.Int("warnings", result.Warnings),
		zap.Duration("duration", result.Duration),
	)
	return core.ExitCodeSuccess
}

// runStartupValidation gates the watch daemon on a healthy workspace: data
// directories, disk space, the model manifest and its weight files, and the
// index database all have to check out before the daemon polls its first
// file.
func runStartupValidation(cfg *core.Config, logger *logging.Logger) int {
	result := validation.NewValidationSuite(cfg).WithShowProgress(true).Validate()
	if !result.Success {
		logFailedSteps(logger, result)
		return core.ExitCodeError
	}

	logger.Info("Startup validation passed",
		zap.Int("checks_passed", result.PassedSteps),
		zap.Int("warnings", result.Warnings),
		zap.Duration("duration", result.Duration),
	)
	return core.ExitCodeSuccess
}

// logFailedSteps records the suite outcome and each failed step, so the log
// file tells the same story as the console output.
func logFailedSteps(logger *logging.Logger, result validation.SuiteResult) {
	logger.Error("Validation failed",
		zap.Int("passed", result.PassedSteps),
		zap.Int("failed", result.FailedSteps),
		zap.Duration("duration", result.Duration),
	)

	for _, step := range result.Steps {
		if step.Status == validation.StepFailed {
			logger.Error("Validation step failed",
				zap.String("step", step.Name),
				zap.String("message", step.Message),
				zap.Error(step.Error),
			)
		}
	}
}

// printUsage writes the command summary.
func printUsage(w io.Writer) {
	fmt.Fprintf(w, `pixelforge %s - image enhancement pipeline

Usage:
  pixelforge <command> [flags]

Commands:
  enhance   Enhance one image file
            -in file [-stages list] [-resize WxH|original] [-out file]
  watch     Poll the inbox directory and enhance arriving files
  validate  Run the workspace validation suite [-quick]
  genmodel  Write a default-weight model file
            -kind sr|seg -out path [-scale N] [-kernel N] [-maxdim N]
  version   Print the version

Configuration comes from environment variables, optionally loaded from a
.env file in the working directory. All settings have defaults; only
model-backed stages require a model manifest (MODEL_MANIFEST).
`, version)
}
