package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mikey/phishguard/internal/adapters/filter"
	"github.com/mikey/phishguard/internal/core"
	"github.com/mikey/phishguard/internal/di"
	"github.com/mikey/phishguard/internal/ports"
	"go.uber.org/zap"
)

func main() {
	flags := di.ParseFlags()

	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

func run(flags *di.CLIFlags, logger *zap.Logger, emailFilter ports.EmailFilter) error {
	defer logger.Sync()

	var input io.Reader = os.Stdin
	if flags.InputFile != "" {
		file, err := os.Open(flags.InputFile)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer file.Close()
		input = file
		logger.Info("Reading email from file", zap.String("file", flags.InputFile))
	} else {
		logger.Info("Reading email from stdin")
	}

	raw, err := io.ReadAll(input)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	email := parseEmail(raw, logger)
	_, err = emailFilter.ProcessEmail(context.Background(), email)
	return err
}

// parseEmail reads an RFC 5322 message, falling back to treating the input as raw text
func parseEmail(raw []byte, logger *zap.Logger) *core.Email {
	email, err := filter.ParseEmail(raw)
	if err != nil || len(email.Headers) == 0 {
		logger.Debug("Input is not an RFC 5322 message, scanning as raw text")
		return &core.Email{Body: string(raw), Headers: map[string][]string{}}
	}
	return email
}
