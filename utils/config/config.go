package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v2"
)

const (
	DefaultConfigDir = "ConfigFiles"
	DefaultDataDir   = "DataFiles"
)

// Default 返回默认配置
// 功能：给出与实验室部署一致的默认值（本机仿真器2000端口、交通管理器8000端口、1/80秒步长）
func Default() Config {
	return Config{
		Simulator: Simulator{
			Host:               "127.0.0.1",
			Port:               2000,
			Timeout:            10,
			TrafficManagerPort: 8000,
			FixedDeltaSeconds:  1.0 / 80,
			WeatherPreset:      "MidRainyNoon",
			EgoFilter:          "vehicle.dreyevr.egovehicle",
			EyeTrackerFilter:   "sensor.dreyevr.dreyevrsensor",
		},
		Paths: Paths{
			Content:   ".",
			ConfigDir: DefaultConfigDir,
			DataDir:   DefaultDataDir,
		},
		Narration: Narration{
			Autospawn: true,
			Volume:    1,
		},
		Output: Output{
			CSV: true,
		},
		Control: Control{
			PollInterval:  0.05,
			SampleSpacing: 0.2,
		},
	}
}

// Load 读取配置
// 功能：在默认配置之上依次应用YAML文件与环境变量
// 参数：path-YAML配置文件路径，为空则只使用默认值与环境变量
// 返回：最终配置与错误信息
func Load(path string) (Config, error) {
	c := Default()
	if path != "" {
		file, err := os.ReadFile(path)
		if err != nil {
			return c, fmt.Errorf("config file load err: %w", err)
		}
		if err := yaml.UnmarshalStrict(file, &c); err != nil {
			return c, fmt.Errorf("config file parse err: %w", err)
		}
	}
	if err := env.Parse(&c); err != nil {
		return c, fmt.Errorf("parse env: %w", err)
	}
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

// Validate 检查配置合法性
func (c Config) Validate() error {
	if c.Simulator.Port <= 0 || c.Simulator.Port > 65535 {
		return fmt.Errorf("invalid simulator port %d", c.Simulator.Port)
	}
	if c.Simulator.FixedDeltaSeconds <= 0 {
		return fmt.Errorf("fixed_delta_seconds must be positive, got %v", c.Simulator.FixedDeltaSeconds)
	}
	if c.Narration.Volume < 0 || c.Narration.Volume > 1 {
		return fmt.Errorf("narration volume must be within [0, 1], got %v", c.Narration.Volume)
	}
	if c.Output.Mongo != nil && (c.Output.Mongo.DB == "" || c.Output.Mongo.Col == "") {
		return fmt.Errorf("mongo output needs both db and col")
	}
	return nil
}

// RuntimeConfig 运行时配置
// 功能：保存原始配置以及由内容目录推导出的各共享文件路径
// 说明：信号文件、流文件等路径必须与阅读任务界面一侧保持一致
type RuntimeConfig struct {
	All Config  // 全部配置
	C   Control // 运行控制配置

	SignalFile        string // 信号文件
	SettingsFile      string // 被试设置文件（config.txt）
	StreamFile        string // 朗读当前单词流文件
	SentenceIndexFile string // 朗读句子边界偏移文件
	DataDir           string // 绩效数据目录
}

// NewRuntimeConfig 根据配置初始化运行时路径
// 功能：补全缺省目录并拼接出所有共享文件的路径
// 参数：config-原始配置对象
// 返回：初始化的运行时配置指针
func NewRuntimeConfig(config Config) *RuntimeConfig {
	if config.Paths.ConfigDir == "" {
		config.Paths.ConfigDir = DefaultConfigDir
	}
	if config.Paths.DataDir == "" {
		config.Paths.DataDir = DefaultDataDir
	}
	configDir := filepath.Join(config.Paths.Content, config.Paths.ConfigDir)
	return &RuntimeConfig{
		All:               config,
		C:                 config.Control,
		SignalFile:        filepath.Join(configDir, "SignalFile.txt"),
		SettingsFile:      filepath.Join(configDir, "config.txt"),
		StreamFile:        filepath.Join(configDir, "TTSStreamFile.txt"),
		SentenceIndexFile: filepath.Join(configDir, "SentenceIndexFile.txt"),
		DataDir:           filepath.Join(config.Paths.Content, config.Paths.DataDir),
	}
}

// TextFile 返回阅读材料文件路径（ConfigFiles/<name>.txt）
func (rc *RuntimeConfig) TextFile(name string) string {
	return filepath.Join(rc.All.Paths.Content, rc.All.Paths.ConfigDir, name+".txt")
}

// SimulatorURL 返回桥接服务的基础URL
func (rc *RuntimeConfig) SimulatorURL() string {
	return fmt.Sprintf("http://%s:%d", rc.All.Simulator.Host, rc.All.Simulator.Port)
}
