package config

// Simulator 仿真器桥接服务的连接配置
// 功能：定义仿真器地址、超时、交通管理器端口与同步步长
// 说明：仿真器本身由外部主机控制，本程序只通过桥接RPC访问
type Simulator struct {
	Host               string  `yaml:"host" env:"TAKEOVER_SIM_HOST"`                    // 桥接服务主机
	Port               int     `yaml:"port" env:"TAKEOVER_SIM_PORT"`                    // 桥接服务端口
	Timeout            float64 `yaml:"timeout" env:"TAKEOVER_SIM_TIMEOUT"`              // 单次调用超时（秒）
	JSON               bool    `yaml:"json,omitempty" env:"TAKEOVER_SIM_JSON"`          // 使用JSON编码（便于非Go桥接实现）
	TrafficManagerPort int     `yaml:"traffic_manager_port" env:"TAKEOVER_SIM_TM_PORT"` // 交通管理器端口
	FixedDeltaSeconds  float64 `yaml:"fixed_delta_seconds"`                             // 同步模式下的固定步长
	WeatherPreset      string  `yaml:"weather_preset"`                                  // 场景开始时的天气预设
	EgoFilter          string  `yaml:"ego_filter,omitempty"`                            // 主车类型过滤
	EyeTrackerFilter   string  `yaml:"eye_tracker_filter,omitempty"`                    // 眼动传感器类型过滤
}

// Paths 实验内容目录配置
// 功能：定义信号文件、配置文件、数据文件所在的目录
type Paths struct {
	Content   string `yaml:"content" env:"TAKEOVER_CONTENT_DIR"` // 内容根目录（即仿真器工程的Content目录）
	ConfigDir string `yaml:"config_dir,omitempty"`               // 相对Content的配置目录，默认ConfigFiles
	DataDir   string `yaml:"data_dir,omitempty"`                 // 相对Content的数据目录，默认DataFiles
}

// Narration 朗读子进程配置
type Narration struct {
	Speechd   string  `yaml:"speechd,omitempty" env:"SPEECHD_ADDRESS"` // speech-dispatcher地址，为空则使用默认socket
	Autospawn bool    `yaml:"autospawn"`                               // 如果speech-dispatcher未启动则自动拉起
	Volume    float64 `yaml:"volume"`                                  // 音量[0, 1]
	Voice     string  `yaml:"voice,omitempty"`                         // 合成音色
	Language  string  `yaml:"language,omitempty"`                      // 语言代码
}

// MongoOutput MongoDB归档配置
type MongoOutput struct {
	URI string `yaml:"uri" env:"TAKEOVER_MONGO_URI"` // MongoDB连接字符串
	DB  string `yaml:"db"`                           // 数据库名
	Col string `yaml:"col"`                          // 集合名
}

// Output 绩效数据输出配置
// 功能：指定每次接管结束后绩效数据写往何处
// 说明：CSV为实验原始格式，SQLite与MongoDB为可选的汇总存储
type Output struct {
	CSV    bool         `yaml:"csv"`                                    // 追加写入DataFiles下的CSV
	SQLite string       `yaml:"sqlite,omitempty" env:"TAKEOVER_SQLITE"` // SQLite数据库文件路径，为空则不启用
	Mongo  *MongoOutput `yaml:"mongo,omitempty"`                        // MongoDB归档，为空则不启用
}

// Status 实验监控服务配置
type Status struct {
	Listen string `yaml:"listen,omitempty" env:"TAKEOVER_STATUS_LISTEN"` // 监听地址，为空则不启动
}

// Control 运行控制配置
type Control struct {
	Seed          uint64  `yaml:"seed" env:"TAKEOVER_SEED"` // 随机数种子，0表示使用当前时间
	PollInterval  float64 `yaml:"poll_interval"`            // 信号文件轮询兜底间隔（秒）
	SampleSpacing float64 `yaml:"sample_spacing"`           // 车道偏移采样最小间隔（秒）
}

// Config YAML配置文件的根结构
// 功能：定义整个实验运行器的配置结构
// 说明：被试相关的设置（编号、试次、RSVP等）仍放在Content下的config.txt中，见utils/input
type Config struct {
	Simulator Simulator `yaml:"simulator"`
	Paths     Paths     `yaml:"paths"`
	Narration Narration `yaml:"narration"`
	Output    Output    `yaml:"output"`
	Status    Status    `yaml:"status"`
	Control   Control   `yaml:"control"`
}
