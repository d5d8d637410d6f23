package xutil

import (
	"encoding/json"
)

// ToJsonString 序列化为json字符串，失败返回空串
func ToJsonString(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		ErrorIfEnableDebug("XAsset ToJsonString failed, err=[%v]", err)
		return ""
	}
	return string(b)
}
