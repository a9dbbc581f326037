package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/dep2p/go-scamper"
	"github.com/dep2p/go-scamper/config"
	"github.com/dep2p/go-scamper/pkg/lib/log"
)

var logger = log.Logger("scamper/cmd")

// 全局参数
var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "JSON 配置文件路径",
		EnvVars: []string{"SCAMPER_CONFIG"},
	}
	logLevelFlag = &cli.StringFlag{
		Name:    "log-level",
		Usage:   "日志级别：debug / info / warn / error（覆盖配置文件）",
		EnvVars: []string{"SCAMPER_LOG_LEVEL"},
	}
	logFormatFlag = &cli.StringFlag{
		Name:  "log-format",
		Usage: "日志格式：text / json（覆盖配置文件）",
	}
	transportFlag = &cli.StringFlag{
		Name:  "transport",
		Usage: "传输协议：sctp / tcp / quic（覆盖配置文件）",
	}
	codecFlag = &cli.StringFlag{
		Name:  "codec",
		Usage: "编解码模式：raw / gzip / encrypt / auto（覆盖配置文件）",
	}
	passphraseFlag = &cli.StringFlag{
		Name:    "passphrase",
		Usage:   "加密口令（encrypt 模式）",
		EnvVars: []string{"SCAMPER_PASSPHRASE"},
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:    "scamper",
		Usage:   "多子流类型化消息引擎演示",
		Version: scamper.VersionInfo(),
		Flags: []cli.Flag{
			configFlag,
			logLevelFlag,
			logFormatFlag,
			transportFlag,
			codecFlag,
			passphraseFlag,
		},
		Before: setupLogging,
		Commands: []*cli.Command{
			serveCmd(),
			queryCmd(),
			configCmd(),
		},
	}
}

// loadConfig 加载配置文件并应用命令行覆盖
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.NewConfig()
	if path := c.String(configFlag.Name); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v := c.String(logLevelFlag.Name); v != "" {
		cfg.Log.Level = v
	}
	if v := c.String(logFormatFlag.Name); v != "" {
		cfg.Log.Format = v
	}
	if v := c.String(transportFlag.Name); v != "" {
		cfg.Transport.Kind = v
	}
	if v := c.String(codecFlag.Name); v != "" {
		cfg.Codec.Mode = v
	}
	if v := c.String(passphraseFlag.Name); v != "" {
		cfg.Codec.Passphrase = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	if err := log.Setup(c.App.ErrWriter, cfg.Log.Format, level); err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	return nil
}

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "打印生效的配置",
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			data, err := cfg.ToJSON()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(c.App.Writer, string(data))
			return err
		},
	}
}
