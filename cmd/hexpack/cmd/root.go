package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oshokin/hexpack/internal/domain/release"
	"github.com/oshokin/hexpack/internal/logger"
	"github.com/oshokin/hexpack/internal/service/packager"
	"github.com/oshokin/hexpack/internal/version"
)

// NewRootCommand builds the hexpack command.
// Anything other than a single known platform prints the usage line and succeeds.
func NewRootCommand() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:          "hexpack <x86|amd64>",
		Short:        "Package a HexEdit build into a versioned zip archive",
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return printUsage(cmd)
			}

			platform, ok := release.ParsePlatform(args[0])
			if !ok {
				return printUsage(cmd)
			}

			if verbose {
				logger.SetLevel(zap.DebugLevel)
			}

			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			_, err := packager.Run(ctx, &packager.Options{Platform: platform})

			return err
		},
	}

	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "also log skipped and ignored files")

	return rootCmd
}

func printUsage(cmd *cobra.Command) error {
	_, err := fmt.Fprintln(cmd.OutOrStdout(), release.Usage(cmd.Root().Name()))

	return err
}

// Execute runs the hexpack CLI and exits with non-zero status on error.
func Execute() {
	rootCmd := NewRootCommand()
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
