// Package xasset 资源处理核心的入口：生命周期与单处理器调用
package xasset

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/xiaoshicae/xasset/xhook"
	_ "github.com/xiaoshicae/xasset/xhttp"              // 默认加载http client，供远程编译服务使用
	_ "github.com/xiaoshicae/xasset/xmetrics"           // 默认加载metrics，XMetrics.Enable 控制是否生效
	_ "github.com/xiaoshicae/xasset/xprocessor/exttool" // 注册外部工具处理器
	_ "github.com/xiaoshicae/xasset/xprocessor/minify"  // 注册压缩处理器
	_ "github.com/xiaoshicae/xasset/xtrace"             // 默认加载trace
	"github.com/xiaoshicae/xasset/xutil"
)

// taskStopGrace 收到退出信号后等待任务结束的时长
const taskStopGrace = 10 * time.Second

// R 调用before start hook，适用于以库方式嵌入或调试
func R() error {
	return xhook.InvokeBeforeStartHook()
}

// Close 调用before stop hook，释放日志、trace 等资源
func Close() error {
	return xhook.InvokeBeforeStopHook()
}

// Run 调用before start hook后运行 task，收到退出信号时取消 task 的 ctx，
// task 结束后调用before stop hook，用于一次性的构建任务
func Run(task func(ctx context.Context) error) error {
	if err := xhook.InvokeBeforeStartHook(); err != nil {
		return err
	}

	var taskErr error
	if err := runTask(task); err != nil {
		taskErr = err
	}

	var beforeStopHookErr error
	if err := xhook.InvokeBeforeStopHook(); err != nil {
		beforeStopHookErr = err
	}

	if taskErr != nil || beforeStopHookErr != nil { // 任何错误发生，则合并成一个返回
		return errors.Join(taskErr, beforeStopHookErr)
	}
	return nil
}

func runTask(task func(ctx context.Context) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), quitSignals...)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		errChan <- safeInvokeTask(ctx, task)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("XAsset run task failed, err=[%v]", err)
		}
		return nil
	case <-ctx.Done():
		xutil.InfoIfEnableDebug("********** XAsset quit signal received, waiting task stop **********")
	}

	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("XAsset run task failed, err=[%v]", err)
		}
		return nil
	case <-time.After(taskStopGrace):
		return fmt.Errorf("XAsset task not stopped within %s after quit signal", taskStopGrace)
	}
}

func safeInvokeTask(ctx context.Context, task func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred, %v", r)
		}
	}()
	return task(ctx)
}

var quitSignals = []os.Signal{
	syscall.SIGHUP,
	syscall.SIGINT,
	syscall.SIGTERM,
}
