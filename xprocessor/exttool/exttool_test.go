//go:build unix

package exttool

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/bytedance/mockey"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/xiaoshicae/xasset/xdiag"
	"github.com/xiaoshicae/xasset/xerror"
	"github.com/xiaoshicae/xasset/xprocessor"
	"github.com/xiaoshicae/xasset/xregistry"
	"github.com/xiaoshicae/xasset/xresource"
)

// ==================== 测试用工具 ====================

func shellTool(t *testing.T, script string, mutate func(*Spec, *xprocessor.Options)) *Tool {
	spec := Spec{Name: "fake", Interpreter: "sh", Args: []string{"-c", script}}
	opts := xprocessor.DefaultOptions()
	if mutate != nil {
		mutate(&spec, &opts)
	}
	tool, err := New(spec, opts)
	if err != nil {
		t.Fatal(err)
	}
	return tool
}

func run(tool *Tool, input string) (*xprocessor.Outcome, string) {
	out := &bytes.Buffer{}
	o := xprocessor.Invoke(context.Background(), tool, xprocessor.Invocation{
		Resource: "a.coffee",
		Kind:     xresource.Script,
		Input:    strings.NewReader(input),
		Output:   out,
	})
	return o, out.String()
}

func TestNew(t *testing.T) {
	PatchConvey("TestNew", t, func() {
		PatchConvey("spec 缺少字段", func() {
			_, err := New(Spec{Name: "x"}, xprocessor.DefaultOptions())
			So(err, ShouldNotBeNil)
			So(xerror.Is(err, "exttool"), ShouldBeTrue)
		})

		PatchConvey("配置覆盖", func() {
			opts := xprocessor.DefaultOptions()
			opts.InterpreterPath = "/opt/bin/coffee"
			opts.TimeoutMillis = 250
			tool, err := CoffeeScript(opts)
			So(err, ShouldBeNil)
			So(tool.path, ShouldEqual, "/opt/bin/coffee")
			So(tool.Timeout(), ShouldEqual, 250*time.Millisecond)
			So(tool.Name(), ShouldEqual, CoffeeScriptName)
		})

		PatchConvey("默认超时", func() {
			tool, err := LessCSS(xprocessor.DefaultOptions())
			So(err, ShouldBeNil)
			So(tool.Timeout(), ShouldEqual, 30*time.Second)
		})

		PatchConvey("非法配置", func() {
			opts := xprocessor.DefaultOptions()
			opts.TimeoutMillis = -1
			_, err := CoffeeScript(opts)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestProcess(t *testing.T) {
	PatchConvey("TestProcess", t, func() {
		PatchConvey("stdin 透传到 stdout", func() {
			o, out := run(shellTool(t, "cat", nil), "alert 'works!'")
			So(o.Succeeded(), ShouldBeTrue)
			So(out, ShouldEqual, "alert 'works!'")
			So(o.Diagnostics, ShouldBeEmpty)
		})

		PatchConvey("成功时 stderr 记为告警", func() {
			o, out := run(shellTool(t, `cat; echo "deprecated syntax on line 2, column 4" >&2`, nil), "x")
			So(o.Succeeded(), ShouldBeTrue)
			So(out, ShouldEqual, "x")
			So(o.Diagnostics, ShouldResemble, []xdiag.Diagnostic{
				xdiag.Warn("deprecated syntax on line 2, column 4").At(2, 4),
			})
		})

		PatchConvey("非零退出", func() {
			script := `echo partial; printf '\033[31ma.coffee:3:7: error: unexpected }\033[0m\n' >&2; echo "  }" >&2; exit 2`
			o, out := run(shellTool(t, script, nil), "x")
			So(o.Succeeded(), ShouldBeFalse)
			So(out, ShouldEqual, "")
			So(o.Err.Kind, ShouldEqual, xerror.ToolInvocationError)
			So(o.Err.Line, ShouldEqual, 3)
			So(o.Err.Column, ShouldEqual, 7)
			So(o.Err.Message, ShouldContainSubstring, "exited with code 2")
			So(o.Err.Message, ShouldContainSubstring, "unexpected }")
			So(o.Errors(), ShouldHaveLength, 2)
			So(o.Errors()[0].String(), ShouldEqual, "[ERROR] 3:7:a.coffee:3:7: error: unexpected }")
			So(o.Errors()[1].Positional, ShouldBeFalse)
		})

		PatchConvey("解释器不存在", func() {
			tool := shellTool(t, "", func(s *Spec, _ *xprocessor.Options) {
				s.Interpreter = "/nonexistent/xasset-tool"
			})
			o, _ := run(tool, "x")
			So(o.Err.Kind, ShouldEqual, xerror.ToolInvocationError)
			So(o.Err.Message, ShouldContainSubstring, "start /nonexistent/xasset-tool failed")
		})

		PatchConvey("探测失败时不读取输入", func() {
			tool := shellTool(t, "cat", func(s *Spec, _ *xprocessor.Options) {
				s.Name = "probe-fail"
				s.ProbeArgs = []string{"-c", "exit 3"}
			})
			o, _ := run(tool, "x")
			So(o.Err.Kind, ShouldEqual, xerror.ToolInvocationError)
			So(o.Err.Message, ShouldContainSubstring, "not available")
		})

		PatchConvey("临时文件输入", func() {
			var seen string
			tool := shellTool(t, `echo "$0"; cat "$0"`, func(s *Spec, _ *xprocessor.Options) {
				s.Args = append(s.Args, FilePlaceholder)
				s.Input = TempFile
				s.TempExt = ".less"
			})
			o, out := run(tool, "@c: red;")
			So(o.Succeeded(), ShouldBeTrue)
			lines := strings.SplitN(out, "\n", 2)
			seen = lines[0]
			So(seen, ShouldEndWith, "input.less")
			So(lines[1], ShouldEqual, "@c: red;")
			So(fileExists(seen), ShouldBeFalse)
		})

		PatchConvey("读输入失败归为 IOError", func() {
			tool := shellTool(t, "cat", nil)
			o := xprocessor.Invoke(context.Background(), tool, xprocessor.Invocation{
				Resource: "a.coffee",
				Input:    &failingReader{},
				Output:   &bytes.Buffer{},
			})
			So(o.Err, ShouldNotBeNil)
			So(o.Err.Kind, ShouldEqual, xerror.IOError)
		})
	})
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk gone")
}

func TestTimeout(t *testing.T) {
	PatchConvey("TestTimeout", t, func() {
		tool := shellTool(t, "sleep 5", func(_ *Spec, o *xprocessor.Options) {
			o.TimeoutMillis = 10
		})
		start := time.Now()
		o, out := run(tool, "x")
		So(time.Since(start), ShouldBeLessThan, 2*time.Second)
		So(o.Succeeded(), ShouldBeFalse)
		So(o.Err.Kind, ShouldEqual, xerror.Timeout)
		So(out, ShouldEqual, "")
	})

	PatchConvey("TestTimeout-解释器探测计入调用超时", t, func() {
		script := filepath.Join(t.TempDir(), "slow-coffee.sh")
		So(os.WriteFile(script, []byte("#!/bin/sh\nsleep 5\n"), 0o755), ShouldBeNil)
		opts := xprocessor.DefaultOptions()
		opts.InterpreterPath = script
		opts.TimeoutMillis = 10
		tool, err := CoffeeScript(opts)
		So(err, ShouldBeNil)

		start := time.Now()
		o, out := run(tool, "x = 1")
		So(time.Since(start), ShouldBeLessThan, 2*time.Second)
		So(o.Succeeded(), ShouldBeFalse)
		So(o.Err.Kind, ShouldEqual, xerror.Timeout)
		So(out, ShouldEqual, "")

		probes.Wait()
		_, hit := probes.Get(script + " --version")
		So(hit, ShouldBeFalse)
	})

	PatchConvey("TestTimeout-调用方取消", t, func() {
		tool := shellTool(t, "sleep 5", nil)
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(20 * time.Millisecond)
			cancel()
		}()
		o := xprocessor.Invoke(ctx, tool, xprocessor.Invocation{Resource: "a", Input: strings.NewReader(""), Output: &bytes.Buffer{}})
		So(o.Err.Kind, ShouldEqual, xerror.ToolInvocationError)
		So(errors.Is(o.Err, context.Canceled), ShouldBeTrue)
	})
}

func TestConcurrent(t *testing.T) {
	PatchConvey("TestConcurrent", t, func() {
		tool := shellTool(t, "cat", nil)
		var wg sync.WaitGroup
		results := make([]string, 20)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, out := run(tool, strings.Repeat("a", i))
				results[i] = out
			}(i)
		}
		wg.Wait()
		for i, r := range results {
			So(r, ShouldEqual, strings.Repeat("a", i))
		}
	})
}

func TestAvailable(t *testing.T) {
	PatchConvey("TestAvailable", t, func() {
		PatchConvey("结果缓存", func() {
			tool := shellTool(t, "", func(s *Spec, _ *xprocessor.Options) {
				s.Name = "cached"
				s.ProbeArgs = []string{"-c", "exit 0", "cached-probe"}
			})
			calls := 0
			Mock((*Tool).probe).To(func(_ *Tool, _ context.Context) (bool, error) {
				calls++
				return true, nil
			}).Build()
			So(tool.Available(context.Background()), ShouldBeTrue)
			probes.Wait()
			So(tool.Available(context.Background()), ShouldBeTrue)
			So(calls, ShouldEqual, 1)
		})

		PatchConvey("可执行文件不存在", func() {
			tool := shellTool(t, "", func(s *Spec, _ *xprocessor.Options) {
				s.Interpreter = "/nonexistent/xasset-probe"
			})
			ok, err := tool.probe(context.Background())
			So(err, ShouldBeNil)
			So(ok, ShouldBeFalse)
		})

		PatchConvey("无探测参数只检查路径", func() {
			ok, err := shellTool(t, "", nil).probe(context.Background())
			So(err, ShouldBeNil)
			So(ok, ShouldBeTrue)
		})

		PatchConvey("探测超时不缓存", func() {
			calls := 0
			Mock((*Tool).probe).To(func(_ *Tool, _ context.Context) (bool, error) {
				calls++
				return false, xerror.Errorf(xerror.Timeout, "slow")
			}).Build()
			tool := shellTool(t, "", func(s *Spec, _ *xprocessor.Options) {
				s.ProbeArgs = []string{"-c", "exit 0", "uncached-probe"}
			})
			So(tool.Available(context.Background()), ShouldBeFalse)
			probes.Wait()
			So(tool.Available(context.Background()), ShouldBeFalse)
			So(calls, ShouldEqual, 2)
		})
	})
}

func TestParseLine(t *testing.T) {
	PatchConvey("TestParseLine", t, func() {
		cases := []struct {
			in           string
			line, column int
		}{
			{"a.coffee:3:7: error: unexpected", 3, 7},
			{"ParseError: Unrecognised input in - on line 12, column 5:", 12, 5},
			{"syntax error line 4 col 9", 4, 9},
			{"no position here", 0, 0},
		}
		for _, tc := range cases {
			l := parseLine(tc.in)
			So(l.line, ShouldEqual, tc.line)
			So(l.column, ShouldEqual, tc.column)
			So(l.text, ShouldEqual, tc.in)
		}
	})
}

func TestWithFile(t *testing.T) {
	PatchConvey("TestWithFile", t, func() {
		So(withFile([]string{"--no-color", FilePlaceholder}, "/tmp/x.less"), ShouldResemble, []string{"--no-color", "/tmp/x.less"})
		So(withFile([]string{"-p"}, "/tmp/x"), ShouldResemble, []string{"-p", "/tmp/x"})
	})
}

func TestRegistration(t *testing.T) {
	PatchConvey("TestRegistration", t, func() {
		r := xregistry.Default()
		d, ok := r.Lookup(CoffeeScriptName)
		So(ok, ShouldBeTrue)
		So(d.Category, ShouldEqual, xregistry.Pre)
		So(r.Supports(CoffeeScriptName, xresource.Script), ShouldBeTrue)
		So(r.Supports(CoffeeScriptName, xresource.Stylesheet), ShouldBeFalse)
		So(r.Supports(LessCSSName, xresource.Stylesheet), ShouldBeTrue)

		p, err := r.New(LessCSSName, xprocessor.DefaultOptions())
		So(err, ShouldBeNil)
		So(p.Name(), ShouldEqual, LessCSSName)
	})
}
