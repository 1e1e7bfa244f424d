package main

import (
	"context"

	"github.com/lomehong/silk/pkg/boot"
	"github.com/spf13/cobra"
)

// bootCmd 执行启动流程
func (c *cli) bootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "boot [args...]",
		Short: "执行启动流程并运行 init.js",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBoot(cmd)
		},
	}
	cmd.Flags().BoolVarP(&c.watch, "watch", "w", false, "init.js 变更后重新运行")
	return cmd
}

func (c *cli) runBoot(cmd *cobra.Command) error {
	cfg, err := c.loadConfig(cmd)
	if err != nil {
		return err
	}

	logger, closer, err := c.newLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	stopSignals := setupSignalHandlers(cancel, c.stderr)
	defer stopSignals()

	loader := boot.NewLoader(cfg,
		boot.WithEnv(c.env),
		boot.WithArgs(c.argv),
		boot.WithStdout(c.stdout),
		boot.WithStderr(c.stderr),
		boot.WithLogger(logger),
		boot.WithRegistry(c.registry),
	)

	result, err := loader.Run(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	logger.Info("启动完成", "session_id", result.SessionID, "status", result.Status.String(), "init", result.InitPath)
	if !cfg.Watch || result.Status == boot.StatusInvalidInvocation {
		return nil
	}

	w := boot.NewWatcher(loader, result.Extension, result.InitPath, cfg.WatchInterval)
	return w.Run(ctx, nil)
}
