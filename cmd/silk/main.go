package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/lomehong/silk/pkg/config"
	"github.com/lomehong/silk/pkg/extension"
	_ "github.com/lomehong/silk/pkg/extension/silkedit"
	"github.com/lomehong/silk/pkg/logging"
	"github.com/lomehong/silk/pkg/searchpath"
	"github.com/spf13/cobra"
)

// version 通过 -ldflags "-X main.version=..." 注入
var version = "0.1.0"

// cli 命令行运行环境
type cli struct {
	cfgFile string
	watch   bool
	force   bool

	argv     []string
	env      searchpath.Env
	stdout   io.Writer
	stderr   io.Writer
	registry *extension.Registry
}

func newCLI() *cli {
	return &cli{
		argv:     os.Args,
		env:      searchpath.OSEnv{},
		stdout:   os.Stdout,
		stderr:   os.Stderr,
		registry: extension.Default,
	}
}

// rootCmd 创建根命令
func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "silk",
		Short: "Silk 编辑器启动器",
		Long: `Silk 编辑器的启动加载器：配置模块搜索路径、加载 silkedit 扩展模块，
并在隔离执行域中运行用户数据目录下的 init.js。`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(c.stdout)
	root.SetErr(c.stderr)

	// 全局标志
	root.PersistentFlags().StringVarP(&c.cfgFile, "config", "c", "", "配置文件路径")

	root.AddCommand(c.bootCmd())
	root.AddCommand(c.pathsCmd())
	root.AddCommand(c.configCmd())
	root.AddCommand(c.versionCmd())
	return root
}

// versionCmd 显示版本信息
func (c *cli) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(c.stdout, "silk v%s\n", version)
			for _, name := range c.registry.Names() {
				fmt.Fprintf(c.stdout, "  extension: %s\n", name)
			}
		},
	}
}

// loadConfig 加载配置，命令行标志优先
func (c *cli) loadConfig(cmd *cobra.Command) (*config.BootConfig, error) {
	m := config.NewManager(c.cfgFile, nil)
	if f := cmd.Flags().Lookup("watch"); f != nil && f.Changed {
		m.Set("watch", c.watch)
	}
	return m.Load()
}

// newLogger 按配置创建日志记录器，输出到stderr时使用命令的错误输出
func (c *cli) newLogger(cfg *config.BootConfig) (logging.Logger, io.Closer, error) {
	lc := cfg.LogConfig()
	switch lc.Output {
	case logging.LogOutputStderr:
		lc.Writer = c.stderr
	case logging.LogOutputStdout:
		lc.Writer = c.stdout
	}
	return logging.NewLogger(lc)
}

// setupSignalHandlers 收到终止信号时取消ctx
func setupSignalHandlers(cancel context.CancelFunc, stderr io.Writer) func() {
	sigCh := make(chan os.Signal, 1)

	// SIGINT: Ctrl+C
	// SIGTERM: 终止信号，通常由系统发送
	// SIGHUP: 终端关闭时发送
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigCh:
			fmt.Fprintf(stderr, "\n收到信号 %v，正在退出...\n", sig)
			cancel()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigCh)
		close(done)
	}
}

func main() {
	if err := newCLI().rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
