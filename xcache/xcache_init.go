package xcache

import (
	"sync"

	"github.com/xiaoshicae/xasset/xhook"
	"github.com/xiaoshicae/xasset/xutil"
)

var (
	mu       sync.Mutex
	instance *Cache
)

func init() {
	xhook.BeforeStart(initXCache)
	xhook.BeforeStop(closeXCache)
}

func initXCache() error {
	_, err := ensure()
	return err
}

// C 进程缓存，未初始化时按当前配置懒创建，创建失败返回nil
func C() *Cache {
	c, err := ensure()
	if err != nil {
		xutil.ErrorIfEnableDebug("XAsset xcache create failed, err=[%v]", err)
		return nil
	}
	return c
}

func ensure() (*Cache, error) {
	mu.Lock()
	defer mu.Unlock()
	if instance != nil {
		return instance, nil
	}
	config := GetConfig()
	xutil.InfoIfEnableDebug("XAsset init %s got config: %s", XCacheConfigKey, xutil.ToJsonString(config))
	c, err := newCache(config)
	if err != nil {
		return nil, err
	}
	instance = c
	return c, nil
}

func closeXCache() error {
	mu.Lock()
	defer mu.Unlock()
	if instance != nil {
		instance.Close()
		instance = nil
	}
	return nil
}
