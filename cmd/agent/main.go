package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/frameforge/frameforge-agent/internal/config"
)

var headless bool

var rootCmd = &cobra.Command{
	Use:           "frameforge-agent",
	Short:         "FrameForge render agent",
	Long:          `FrameForge Agent renders storyboard frames and shot videos through AI providers and serves the local studio API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the agent (default)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("frameforge-agent %s (commit %s, built %s)\n", config.Version, config.GitCommit, config.BuildTime)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&headless, "headless", false, "Run without the system tray")
	rootCmd.AddCommand(serveCmd, versionCmd, tasksCmd, stylesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fatal error:", err)
		os.Exit(1)
	}
}
