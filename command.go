package trafficlight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/Songmu/wrapcommander"
	"github.com/mattn/go-shellwords"
)

type CommandNotifierConfig struct {
	Run string `yaml:"run"`
}

type CommandNotifier struct {
	name     string
	commands []string
	timeout  time.Duration
}

func NewCommandNotifier(cfg *NotifierConfig) (*CommandNotifier, error) {
	cmds, err := shellwords.Parse(cfg.Command.Run)
	if err != nil {
		return nil, fmt.Errorf("failed to parse command: %s %w", cfg.Command.Run, err)
	}
	if len(cmds) == 0 {
		return nil, errors.New("no command")
	}
	return &CommandNotifier{
		name:     cfg.Name,
		commands: cmds,
		timeout:  cfg.Timeout,
	}, nil
}

func (c *CommandNotifier) Name() string {
	return c.name
}

func (c *CommandNotifier) Notify(ctx context.Context, t Transition) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	logger := newLoggerFromContext(ctx).With(
		"name", c.name,
		"module", "commandnotifier",
		"commands", fmt.Sprintf("%v", c.commands),
	)
	logger.Debug("executing command")
	cmd := exec.CommandContext(ctx, c.commands[0], c.commands[1:]...)
	cmd.Env = append(os.Environ(),
		"TRAFFICLIGHT_PHASE="+t.Phase.String(),
		"TRAFFICLIGHT_CYCLE="+t.Cycle.String(),
	)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = 3 * time.Second
	out, err := cmd.CombinedOutput()
	if err != nil {
		logger.Info("command failed",
			slog.Int("exit_code", wrapcommander.ResolveExitCode(err)),
			slog.String("output", string(out)),
			slog.String("error", err.Error()),
		)
		return err
	}
	logger.Debug("command succeeded",
		slog.Int("exit_code", wrapcommander.ResolveExitCode(err)),
		slog.String("output", string(out)),
	)
	return nil
}
