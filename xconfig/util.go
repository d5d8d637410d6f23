package xconfig

import (
	"reflect"
	"time"

	"github.com/spf13/viper"

	"github.com/xiaoshicae/xasset/xerror"
	"github.com/xiaoshicae/xasset/xutil"
)

const (
	appNameConfigKey    = AppConfigKey + ".Name"
	appVersionConfigKey = AppConfigKey + ".Version"

	defaultAppName    = "xasset"
	defaultAppVersion = "v0.0.1"

	dotEnvFileName = ".env"
)

// UnmarshalConfig 将 key 下的配置反序列化到 conf，conf 必须为指针
func UnmarshalConfig(key string, conf any) error {
	if key == "" {
		return xerror.Newf("xconfig", "unmarshal", "param key is empty")
	}
	if conf == nil || reflect.TypeOf(conf).Kind() != reflect.Ptr {
		return xerror.Newf("xconfig", "unmarshal", "param conf of key [%s] must be a non-nil ptr", key)
	}
	return current().UnmarshalKey(key, conf)
}

func Get(key string) any {
	return current().Get(key)
}

func IsSet(key string) bool {
	return current().IsSet(key)
}

func GetString(key string) string {
	return current().GetString(key)
}

func GetBool(key string) bool {
	return current().GetBool(key)
}

func GetInt(key string) int {
	return current().GetInt(key)
}

func GetDuration(key string) time.Duration {
	return current().GetDuration(key)
}

func GetStringMap(key string) map[string]any {
	return current().GetStringMap(key)
}

// GetAppName 未配置时返回 "xasset"
func GetAppName() string {
	return xutil.GetOrDefault(current().GetString(appNameConfigKey), defaultAppName)
}

func GetAppVersion() string {
	return xutil.GetOrDefault(current().GetString(appVersionConfigKey), defaultAppVersion)
}

func current() *viper.Viper {
	mu.RLock()
	defer mu.RUnlock()
	if vip == nil {
		return empty
	}
	return vip
}
