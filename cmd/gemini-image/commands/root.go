package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd はサブコマンドを登録したルートコマンドを返します。
func NewRootCmd() *cobra.Command {
	var verbose bool

	rootCmd := &cobra.Command{
		Use:           "gemini-image",
		Short:         "Generate images with the Gemini image API",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level})))
		},
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newGenerateCmd())
	return rootCmd
}

// Execute はルートコマンドを実行します。
func Execute() error {
	cmd := NewRootCmd()
	cmd.SetErr(os.Stderr)
	return cmd.Execute()
}
