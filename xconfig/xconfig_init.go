package xconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/xiaoshicae/xasset/xerror"
	"github.com/xiaoshicae/xasset/xhook"
	"github.com/xiaoshicae/xasset/xutil"
)

var (
	mu    sync.RWMutex
	vip   *viper.Viper
	empty = viper.New()
)

// ${VAR} 或 ${VAR:-default}
var placeholder = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func init() {
	xhook.BeforeStart(initXConfig, xhook.Order(1))
}

func initXConfig() error {
	location := locate()
	if location == "" {
		xutil.WarnIfEnableDebug("XAsset config file not found, all modules use default config")
		return nil
	}
	return Load(location)
}

// Load 加载指定配置文件（含 .env 与 profile 覆盖），替换当前配置
func Load(location string) error {
	vp, err := load(location)
	if err != nil {
		return err
	}
	if xutil.EnableDebug() {
		fmt.Printf("XAsset load config from [%s]: %s\n", location, xutil.ToJsonString(vp.AllSettings()))
	}
	mu.Lock()
	vip = vp
	mu.Unlock()
	return nil
}

// Reset 丢弃已加载的配置
func Reset() {
	mu.Lock()
	vip = nil
	mu.Unlock()
}

func load(location string) (*viper.Viper, error) {
	dotEnv := filepath.Join(filepath.Dir(location), dotEnvFileName)
	if xutil.FileExist(dotEnv) {
		if err := godotenv.Load(dotEnv); err != nil {
			return nil, xerror.Newf("xconfig", "load", "load [%s] failed, err=[%v]", dotEnv, err)
		}
	}

	vp, err := readFile(location)
	if err != nil {
		return nil, err
	}

	if pa := activeProfile(vp); pa != "" {
		overlay, err := profileLocation(location, pa)
		if err != nil {
			return nil, err
		}
		pv, err := readFile(overlay)
		if err != nil {
			return nil, err
		}
		if err := vp.MergeConfigMap(pv.AllSettings()); err != nil {
			return nil, xerror.Newf("xconfig", "load", "merge profile [%s] failed, err=[%v]", pa, err)
		}
	}

	return expandPlaceholders(vp), nil
}

func readFile(location string) (*viper.Viper, error) {
	vp := viper.New()
	vp.SetConfigFile(location)
	if err := vp.ReadInConfig(); err != nil {
		return nil, xerror.Newf("xconfig", "load", "read [%s] failed, err=[%v]", location, err)
	}
	return vp, nil
}

// expandPlaceholders 展开字符串值中的环境变量占位符，环境变量为空时取默认值，返回新的 viper
func expandPlaceholders(vp *viper.Viper) *viper.Viper {
	settings := vp.AllSettings()
	changed := false
	for _, key := range vp.AllKeys() {
		raw, ok := vp.Get(key).(string)
		if !ok || raw == "" {
			continue
		}
		expanded := placeholder.ReplaceAllStringFunc(raw, func(m string) string {
			sub := placeholder.FindStringSubmatch(m)
			if v := os.Getenv(sub[1]); v != "" {
				return v
			}
			return sub[2]
		})
		if expanded != raw {
			setNested(settings, strings.Split(key, "."), expanded)
			changed = true
		}
	}
	if !changed {
		return vp
	}
	out := viper.New()
	_ = out.MergeConfigMap(settings)
	return out
}

func setNested(m map[string]any, path []string, value any) {
	for _, k := range path[:len(path)-1] {
		next, ok := m[k].(map[string]any)
		if !ok {
			next = make(map[string]any)
			m[k] = next
		}
		m = next
	}
	m[path[len(path)-1]] = value
}
