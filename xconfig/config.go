package xconfig

const (
	AppConfigKey = "App"
)

// App 应用级配置
type App struct {
	// Name 应用名，用于日志/trace/指标标识
	// optional default "xasset"
	Name string `mapstructure:"Name"`

	// Version 应用版本号
	// optional default "v0.0.1"
	Version string `mapstructure:"Version"`

	// Profiles 环境覆盖配置
	// optional default nil
	Profiles *Profiles `mapstructure:"Profiles"`
}

type Profiles struct {
	// Active 启用的环境，对应 application-<Active>.yml
	// required
	Active string `mapstructure:"Active"`
}

func appConfigMergeDefault(c *App) *App {
	if c == nil {
		c = &App{}
	}
	if c.Name == "" {
		c.Name = defaultAppName
	}
	if c.Version == "" {
		c.Version = defaultAppVersion
	}
	return c
}
