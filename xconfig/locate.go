package xconfig

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/xiaoshicae/xasset/xerror"
	"github.com/xiaoshicae/xasset/xutil"
)

const (
	locationArgKey = "xasset.config.location"
	locationEnvKey = "XASSET_CONFIG_LOCATION"

	profileArgKey    = "xasset.profiles.active"
	profileEnvKey    = "XASSET_PROFILES_ACTIVE"
	profileConfigKey = AppConfigKey + ".Profiles.Active"
)

// searchDirs 未显式指定时依次查找的目录
var searchDirs = []string{".", "./conf", "./config", "../conf", "../config"}

var searchNames = []string{"application.yml", "application.yaml"}

// locate 依次从命令行参数、环境变量、约定目录查找配置文件
func locate() string {
	if loc, _ := xutil.GetConfigFromArgs(locationArgKey); loc != "" {
		xutil.InfoIfEnableDebug("XAsset config location [%s] from arg", loc)
		return loc
	}
	if loc := os.Getenv(locationEnvKey); loc != "" {
		xutil.InfoIfEnableDebug("XAsset config location [%s] from env", loc)
		return loc
	}
	for _, dir := range searchDirs {
		for _, name := range searchNames {
			loc := filepath.Join(dir, name)
			if xutil.FileExist(loc) {
				xutil.InfoIfEnableDebug("XAsset config location [%s] from search path", loc)
				return loc
			}
		}
	}
	return ""
}

// activeProfile 参数 > 环境变量 > 基础配置文件
func activeProfile(base *viper.Viper) string {
	if pa, _ := xutil.GetConfigFromArgs(profileArgKey); pa != "" {
		return pa
	}
	if pa := os.Getenv(profileEnvKey); pa != "" {
		return pa
	}
	if base == nil {
		return ""
	}
	return base.GetString(profileConfigKey)
}

// profileLocation conf/application.yml + dev -> conf/application-dev.yml
func profileLocation(location, profile string) (string, error) {
	ext := filepath.Ext(location)
	if ext == "" || ext == location || strings.HasSuffix(location, "/"+ext) {
		return "", xerror.Newf("xconfig", "profile", "config file name [%s] has no extension", location)
	}
	return strings.TrimSuffix(location, ext) + "-" + profile + ext, nil
}
