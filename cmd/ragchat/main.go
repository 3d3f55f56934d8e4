package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ragchat/internal/config"
	"ragchat/internal/logging"
	"ragchat/internal/tui"
)

type flags struct {
	configPath string
	plain      bool
	stream     bool
	system     string
	topK       int
	resume     string
}

func main() {
	var f flags

	rootCmd := &cobra.Command{
		Use:          "ragchat [flags] [file ...]",
		Short:        "chat with an assistant grounded in local documents",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, f, args)
		},
	}
	rootCmd.Flags().StringVar(&f.configPath, "config", "", "path to YAML config (default ./config.yaml or ~/.config/ragchat/config.yaml)")
	rootCmd.Flags().BoolVar(&f.plain, "plain", false, "read questions line by line from stdin instead of starting the TUI")
	rootCmd.Flags().BoolVar(&f.stream, "stream", false, "print replies as they arrive (plain mode only)")
	rootCmd.Flags().StringVar(&f.system, "system", "", "override the configured system message")
	rootCmd.Flags().IntVar(&f.topK, "top-k", 0, "number of chunks retrieved per question")
	rootCmd.Flags().StringVar(&f.resume, "resume", "", "continue an archived session by id (needs transcript.redis)")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags, args []string) error {
	if err := config.LoadEnv(); err != nil {
		return err
	}
	cfg, cfgPath, err := loadConfig(f.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if f.system != "" {
		cfg.Session.SystemMessage = f.system
	}
	if f.topK != 0 {
		cfg.Retrieval.TopK = f.topK
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.Documents = args
	}

	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("config loaded", zap.String("config", cfgPath), zap.Int("documents", len(cfg.Documents)))

	a, err := newApp(ctx, cfg, logger, f.resume)
	if err != nil {
		return err
	}
	defer a.Close()

	if f.plain {
		return runPlain(ctx, a.session, os.Stdin, os.Stdout, f.stream)
	}
	_, err = tea.NewProgram(tui.New(ctx, a.session, a.summary), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}

func loadConfig(path string) (*config.AppConfig, string, error) {
	if path == "" {
		return config.LoadDefault()
	}
	cfg, err := config.Load(path)
	return cfg, path, err
}
