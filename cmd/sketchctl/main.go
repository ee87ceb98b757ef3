package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joeycumines/sketchctl/internal/command"
	"github.com/joeycumines/sketchctl/internal/config"
	"github.com/joeycumines/sketchctl/internal/logging"
)

const version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	global := flag.NewFlagSet("sketchctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	var logOpts logging.Options
	global.StringVar(&logOpts.Level, "log-level", "", "Log level: debug, info, warn, error")
	global.StringVar(&logOpts.File, "log-file", "", "Write JSON logs to this file instead of stderr")
	if err := global.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}

	configPath, err := config.GetConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}
	cfg, err := config.LoadFromPath(configPath)
	if err != nil {
		return err
	}

	logs, err := logging.Setup(logOpts, cfg, stderr)
	if err != nil {
		return err
	}
	defer logs.Close()
	for _, w := range cfg.Warnings {
		logs.Logger.Warn("config issue", "path", configPath, "issue", w)
	}

	root, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	env := command.NewEnv(cfg, configPath, root, logs.Logger)
	registry := newRegistry(env, cfg, configPath)
	return registry.Run(ctx, global.Args(), stdout, stderr)
}

func newRegistry(env *command.Env, cfg *config.Config, configPath string) *command.Registry {
	registry := command.NewRegistry("sketchctl")
	registry.Register(command.NewHelpCommand(registry))
	registry.Register(command.NewVersionCommand(version, cfg))
	registry.Register(command.NewConfigCommand(cfg, configPath))
	registry.Register(command.NewBoardsCommand(env))
	registry.Register(command.NewProgrammersCommand(env))
	registry.Register(command.NewSelectCommand(env))
	registry.Register(command.NewBoardConfigCommand(env))
	registry.Register(command.NewLogCommand(env))
	registry.Register(command.NewCompletionCommand(registry))
	for _, cmd := range command.NewBuildCommands(env) {
		registry.Register(cmd)
	}
	return registry
}
