package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"readmegen/internal/config"
	"readmegen/internal/service/ai"
)

// NewRootCommand builds the readmegen command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "readmegen",
		Short:         "Generate README.md files from a project description and source files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file (default $READMEGEN_CONFIG or config.json)")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGenerateCmd())
	return rootCmd
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// newGenerator resolves the credential and builds the configured model client.
// A missing credential is returned wrapped in config.ErrMissingCredential.
func newGenerator(ctx context.Context, cfg *config.Config) (*ai.Service, error) {
	token, err := cfg.Credential()
	if err != nil {
		return nil, err
	}
	provider := cfg.Generator.Provider
	svc, err := ai.NewService(ctx, provider, cfg.GeneratorModel(), token, cfg.Providers[provider])
	if err != nil {
		if errors.Is(err, config.ErrMissingCredential) {
			return nil, err
		}
		return nil, fmt.Errorf("init generator: %w", err)
	}
	return svc, nil
}
