package main

import (
	"fmt"

	"github.com/lomehong/silk/pkg/boot"
	"github.com/lomehong/silk/pkg/config"
	"github.com/lomehong/silk/pkg/logging"
	"github.com/lomehong/silk/pkg/searchpath"
	"github.com/spf13/cobra"
)

// configCmd 配置管理
func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "配置管理",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "显示生效的配置",
		RunE: func(cmd *cobra.Command, args []string) error {
			m := config.NewManager(c.cfgFile, nil)
			cfg, err := m.Load()
			if err != nil {
				return err
			}

			data, err := config.Dump(cfg)
			if err != nil {
				return err
			}
			if used := m.ConfigFileUsed(); used != "" {
				fmt.Fprintf(c.stdout, "# %s\n", used)
			}
			_, err = c.stdout.Write(data)
			return err
		},
	}

	initCmd := &cobra.Command{
		Use:   "init [path]",
		Short: "写入默认配置文件",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := c.cfgFile
			if len(args) > 0 {
				path = args[0]
			}

			written, err := config.NewManager("", nil).WriteDefault(path, c.force)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.stdout, "已创建默认配置文件: %s\n", written)
			return nil
		},
	}
	initCmd.Flags().BoolVarP(&c.force, "force", "f", false, "覆盖已存在的文件")

	cmd.AddCommand(show, initCmd)
	return cmd
}

// pathsCmd 显示启动流程会使用的路径，不修改环境变量也不运行 init.js
func (c *cli) pathsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "paths",
		Short: "显示模块搜索路径和 init.js 位置",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig(cmd)
			if err != nil {
				return err
			}

			// 在环境副本上计算，不影响当前进程
			env := searchpath.NewMapEnv(c.env.Environ())
			loader := boot.NewLoader(cfg,
				boot.WithEnv(env),
				boot.WithRegistry(c.registry),
				boot.WithLogger(logging.NewNullLogger()),
			)
			if _, err := loader.ConfigurePath(); err != nil {
				return err
			}

			fmt.Fprintf(c.stdout, "%s:\n", cfg.PathEnv)
			for _, p := range loader.SearchPath() {
				fmt.Fprintf(c.stdout, "  %s\n", p)
			}

			mod, err := loader.LoadExtension()
			if err != nil {
				return err
			}
			initPath, err := loader.InitPath(mod)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.stdout, "extension: %s %s\n", mod.Name(), mod.Version())
			fmt.Fprintf(c.stdout, "init: %s\n", initPath)
			return nil
		},
	}
}
