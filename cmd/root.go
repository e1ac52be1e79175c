package cmd

import (
	"fmt"

	nested "github.com/antonfisher/nested-logrus-formatter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/SlawomirKedra/qr-song-card/config"
)

// rootOptions 是所有子命令共享的全局参数。
type rootOptions struct {
	configPath string
	envFiles   []string
	logLevel   string

	settings config.Settings
}

// NewRootCmd 构建命令树。
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "songcards",
		Short: "把歌曲列表排版成可打印的二维码音乐卡片",
		Long: `songcards 为每首歌生成一张双面卡片：正面是指向歌曲链接的二维码，
背面是艺人、年份与歌名。卡片按网格排到 A4 等纸张上并导出为 PDF，
正面与背面分别导出，便于双面打印后裁切。`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			flushReporting()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "songcards.yaml", "YAML 配置文件路径（不存在时使用默认值）")
	cmd.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, ".env 文件（默认读取当前目录的 .env）")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "日志级别：debug/info/warn/error")

	cmd.AddCommand(newExportCmd(opts))
	cmd.AddCommand(newPreviewCmd(opts))
	cmd.AddCommand(newThemesCmd())
	cmd.AddCommand(newFontsCmd())
	cmd.AddCommand(newConfigCmd(opts))
	return cmd
}

// load 按 YAML → .env/环境变量 的顺序加载设置，并初始化日志与错误上报。
func (o *rootOptions) load() error {
	settings, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	overrides, err := config.LoadEnv(o.envFiles...)
	if err != nil {
		return err
	}
	if err := settings.ApplyOverrides(overrides); err != nil {
		return fmt.Errorf("环境变量配置无效: %w", err)
	}
	if o.logLevel != "" {
		settings.LogLevel = o.logLevel
	}
	o.settings = settings

	if err := setupLogging(settings.LogLevel); err != nil {
		return err
	}
	initReporting()
	return nil
}

func setupLogging(level string) error {
	log.SetFormatter(&nested.Formatter{
		HideKeys:        true,
		FieldsOrder:     []string{"module", "face", "track"},
		TimestampFormat: "15:04:05",
	})
	if level == "" {
		level = "info"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("日志级别 %q 无效: %w", level, err)
	}
	log.SetLevel(lvl)
	return nil
}
