package main

import (
	"bytes"
	"fmt"
	"os"

	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/dimiro1/banner"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tsinghua-fib-lab/takeover-sim/task"
	"github.com/tsinghua-fib-lab/takeover-sim/utils/config"
)

var (
	// YAML配置文件路径，为空时只使用默认值与环境变量
	configPath string

	// log
	logLevels = map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		"debug":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"warn":     logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"critical": logrus.FatalLevel,
		"off":      logrus.PanicLevel,
	}
	logLevel string

	// 加载后的配置
	cfg config.Config

	log = logrus.WithField("module", "takeover")
)

const bannerTemplate = `{{ .Title "takeover-sim" "" 0 }}
{{ .AnsiColor.BrightCyan }}TOR driving-simulator experiments{{ .AnsiColor.Default }}
`

func printBanner() {
	banner.Init(os.Stdout, true, true, bytes.NewBufferString(bannerTemplate))
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "takeover-sim",
		Short:         "接管请求（TOR）驾驶模拟实验工具",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logrus.SetFormatter(&easy.Formatter{
				TimestampFormat: "2006-01-02 15:04:05.0000",
				LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
			})
			level, ok := logLevels[logLevel]
			if !ok {
				return fmt.Errorf("log.level must be one of trace debug info warn error critical off, got %q", logLevel)
			}
			logrus.SetLevel(level)

			c, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = c
			log.Debugf("%+v", cfg)
			return nil
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file path")
	flags.StringVar(&logLevel, "log.level", "info", "日志级别（可选项：trace debug info warn error critical off）")
	flags.IntVar(&task.HeartbeatInterval, "log.heartbeat_interval", task.HeartbeatInterval, "心跳日志间隔步数，<=0时不输出")

	root.AddCommand(
		newRunCmd(),
		newSimCmd(),
		newTTSCmd(),
		newProcedureCmd(),
		newReadingCmd(),
		newStatusCmd(),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
