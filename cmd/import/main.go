package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sanisidro/fiscal-api/internal/config"
	"github.com/sanisidro/fiscal-api/internal/directory"
	"github.com/sanisidro/fiscal-api/internal/logger"
	"github.com/sanisidro/fiscal-api/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Import error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		updateExisting bool
		emailDomain    string
	)

	cmd := &cobra.Command{
		Use:           "import <file.csv|->",
		Short:         "Create one account and one fiscal document per CSV row",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			cfg, err := config.LoadWithSecrets(cmd.Context(), zap.NewNop())
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cmd.Flags().Changed("update-existing") {
				cfg.Import.UpdateExisting = updateExisting
			}
			if emailDomain != "" {
				cfg.Import.EmailDomain = emailDomain
			}

			log, err := logger.NewLogger(&cfg.Logging, &cfg.App)
			if err != nil {
				return fmt.Errorf("failed to create logger: %w", err)
			}
			defer func() { _ = log.Sync() }()

			return run(cmd.Context(), cfg, log, text, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&updateExisting, "update-existing", false, "write the fiscal document for accounts that already exist")
	cmd.Flags().StringVar(&emailDomain, "email-domain", "", "domain of generated account emails")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger, csvText string, out io.Writer) error {
	dir, err := directory.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open directory: %w", err)
	}
	defer func() {
		if err := dir.Close(); err != nil {
			log.Warn("Error closing directory", zap.Error(err))
		}
	}()

	importService := service.NewImportService(dir.Accounts, dir.Fiscales, &cfg.Import, log)
	result, err := importService.ImportCSV(ctx, csvText)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func readInput(stdin io.Reader, name string) (string, error) {
	in := stdin
	if name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return "", fmt.Errorf("failed to open %s: %w", name, err)
		}
		defer f.Close()
		in = f
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", fmt.Errorf("failed to read csv: %w", err)
	}
	return string(data), nil
}
