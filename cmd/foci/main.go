package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aherbert/gdsc-sub001/internal/config"
	"github.com/aherbert/gdsc-sub001/internal/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

var cfgFile string

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "foci",
		Short:   "Watershed-with-merging peak finder for greyscale images",
		Version: fmt.Sprintf("%s (commit: %s)", version, commit),
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default search: ., $HOME, /etc/foci)")
	root.PersistentFlags().Bool("verbose", false, "enable debug logging")
	root.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log_level", root.PersistentFlags().Lookup("log-level"))

	root.AddCommand(newFindCommand())
	root.AddCommand(newConfigCommand())
	return root
}

func loadConfig(path string) (config.Config, error) {
	l := config.NewLoader()
	if path != "" {
		return l.LoadFile(path)
	}
	return l.Load()
}

func newLogger(cfg config.Config) logger.Logger {
	level := zerolog.InfoLevel
	if cfg.Verbose {
		level = zerolog.DebugLevel
	} else if parsed, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
		level = parsed
	}
	return logger.NewConsoleLogger(level)
}
