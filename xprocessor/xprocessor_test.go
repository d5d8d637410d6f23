package xprocessor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	. "github.com/bytedance/mockey"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/xiaoshicae/xasset/xdiag"
	"github.com/xiaoshicae/xasset/xerror"
	"github.com/xiaoshicae/xasset/xresource"
)

// ==================== 测试用 Reader/Writer ====================

type trackedReader struct {
	io.Reader
	closed bool
}

func (r *trackedReader) Close() error {
	r.closed = true
	return nil
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) {
	return 0, errors.New("disk unplugged")
}

type flushWriter struct {
	bytes.Buffer
	flushed int
}

func (w *flushWriter) Flush() error {
	w.flushed++
	return nil
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, io.ErrClosedPipe
}

// shortWriter 只接受 limit 个字节，之后写失败
type shortWriter struct {
	bytes.Buffer
	limit int
}

func (w *shortWriter) Write(b []byte) (int, error) {
	room := w.limit - w.Len()
	if room >= len(b) {
		return w.Buffer.Write(b)
	}
	n, _ := w.Buffer.Write(b[:max(room, 0)])
	return n, io.ErrShortWrite
}

func upper() *Func {
	return NewFunc("upper", func(ctx context.Context, req *Request) error {
		b, err := io.ReadAll(req.Input)
		if err != nil {
			return err
		}
		req.Reporter.WarningAt(1, 1, "shouting")
		_, err = req.Output.Write(bytes.ToUpper(b))
		return err
	})
}

// ==================== Invoke ====================

func TestInvoke(t *testing.T) {
	PatchConvey("TestInvoke", t, func() {
		PatchConvey("成功写出并关闭输入", func() {
			in := &trackedReader{Reader: strings.NewReader("abc")}
			out := &flushWriter{}
			res := Invoke(context.Background(), upper(), Invocation{Resource: "a.js", Kind: xresource.Script, Input: in, Output: out})

			So(res.Succeeded(), ShouldBeTrue)
			So(res.Failure(), ShouldBeNil)
			So(out.String(), ShouldEqual, "ABC")
			So(out.flushed, ShouldEqual, 1)
			So(in.closed, ShouldBeTrue)
			So(res.Written, ShouldEqual, int64(3))
			So(len(res.Warnings()), ShouldEqual, 1)
			So(res.Warnings()[0].String(), ShouldEqual, "[WARNING] 1:1:shouting")
			So(res.String(), ShouldContainSubstring, "status=[success]")
		})

		PatchConvey("失败时不写输出", func() {
			p := NewFunc("half", func(ctx context.Context, req *Request) error {
				_, _ = req.Output.Write([]byte("partial"))
				req.Reporter.ErrorAt(2, 3, "unexpected token")
				return xerror.Errorf(xerror.ParseError, "unexpected token").At(2, 3)
			})
			in := &trackedReader{Reader: strings.NewReader("x")}
			out := &bytes.Buffer{}
			res := Invoke(context.Background(), p, Invocation{Resource: "b.js", Input: in, Output: out})

			So(res.Succeeded(), ShouldBeFalse)
			So(res.Err.Kind, ShouldEqual, xerror.ParseError)
			So(res.Err.Processor, ShouldEqual, "half")
			So(res.Err.Resource, ShouldEqual, "b.js")
			So(out.Len(), ShouldEqual, 0)
			So(in.closed, ShouldBeTrue)
			So(len(res.Errors()), ShouldEqual, 1)
			So(res.String(), ShouldContainSubstring, "status=[failed]")
		})

		PatchConvey("panic被捕获", func() {
			p := NewFunc("boom", func(ctx context.Context, req *Request) error {
				panic("engine exploded")
			})
			in := &trackedReader{Reader: strings.NewReader("x")}
			res := Invoke(context.Background(), p, Invocation{Input: in, Output: &bytes.Buffer{}})
			So(res.Err.Kind, ShouldEqual, xerror.ToolInvocationError)
			So(res.Err.Message, ShouldContainSubstring, "engine exploded")
			So(in.closed, ShouldBeTrue)
		})

		PatchConvey("读失败归为IOError", func() {
			res := Invoke(context.Background(), upper(), Invocation{Input: failingReader{}, Output: &bytes.Buffer{}})
			So(res.Err.Kind, ShouldEqual, xerror.IOError)
			So(res.Err.Error(), ShouldContainSubstring, "disk unplugged")
		})

		PatchConvey("写失败归为IOError", func() {
			res := Invoke(context.Background(), upper(), Invocation{Input: strings.NewReader("a"), Output: failingWriter{}})
			So(res.Err.Kind, ShouldEqual, xerror.IOError)
			So(errors.Is(res.Err, io.ErrClosedPipe), ShouldBeTrue)
		})

		PatchConvey("部分写出后失败", func() {
			w := &shortWriter{limit: 2}
			res := Invoke(context.Background(), upper(), Invocation{Input: strings.NewReader("abcd"), Output: w})
			So(res.Err.Kind, ShouldEqual, xerror.IOError)
			So(errors.Is(res.Err, io.ErrShortWrite), ShouldBeTrue)
			So(res.Written, ShouldEqual, int64(2))
			So(w.String(), ShouldEqual, "AB")
		})

		PatchConvey("空流", func() {
			res := Invoke(nil, upper(), Invocation{Output: &bytes.Buffer{}})
			So(res.Err.Kind, ShouldEqual, xerror.IOError)
		})

		PatchConvey("每次调用的诊断互不影响", func() {
			p := upper()
			r1 := Invoke(context.Background(), p, Invocation{Input: strings.NewReader("a"), Output: &bytes.Buffer{}})
			r2 := Invoke(context.Background(), p, Invocation{Input: strings.NewReader("b"), Output: &bytes.Buffer{}})
			So(len(r1.Diagnostics), ShouldEqual, 1)
			So(len(r2.Diagnostics), ShouldEqual, 1)
		})
	})
}

// ==================== Options ====================

func TestOptions(t *testing.T) {
	PatchConvey("TestOptions", t, func() {
		PatchConvey("默认值", func() {
			o, err := ParseOptions(nil)
			So(err, ShouldBeNil)
			So(o.RenameIdentifiers, ShouldBeFalse)
			So(o.VerboseDiagnostics, ShouldBeTrue)
			So(o.PreserveStatementTerminators, ShouldBeFalse)
			So(o.DisableOptimizations, ShouldBeFalse)
			So(o.LineBreakColumn, ShouldEqual, -1)
			So(o.LineBreaks(), ShouldBeFalse)
			So(o.Timeout(time.Second), ShouldEqual, time.Second)
		})

		PatchConvey("类型转换与大小写", func() {
			o, err := ParseOptions(map[string]any{
				"renameIdentifiers":    "true",
				"VERBOSEDIAGNOSTICS":   false,
				"lineBreakColumn":      "0",
				"timeoutMillis":        10,
				"interpreterPath":      "/usr/bin/node",
				"disableoptimizations": 1,
			})
			So(err, ShouldBeNil)
			So(o.RenameIdentifiers, ShouldBeTrue)
			So(o.VerboseDiagnostics, ShouldBeFalse)
			So(o.LineBreakColumn, ShouldEqual, 0)
			So(o.LineBreaks(), ShouldBeTrue)
			So(o.DisableOptimizations, ShouldBeTrue)
			So(o.InterpreterPath, ShouldEqual, "/usr/bin/node")
			So(o.Timeout(time.Second), ShouldEqual, 10*time.Millisecond)
		})

		PatchConvey("未知键", func() {
			_, err := ParseOptions(map[string]any{"mangle": true})
			So(err, ShouldNotBeNil)
			So(xerror.Is(err, "xprocessor"), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "unknown option [mangle]")
		})

		PatchConvey("类型错误", func() {
			_, err := ParseOptions(map[string]any{"lineBreakColumn": "wide"})
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "lineBreakColumn")
		})

		PatchConvey("取值范围", func() {
			_, err := ParseOptions(map[string]any{"lineBreakColumn": -2})
			So(err, ShouldNotBeNil)
			_, err = ParseOptions(map[string]any{"timeoutMillis": -1})
			So(err, ShouldNotBeNil)
			_, err = ParseOptions(map[string]any{"workingDir": "/definitely/not/here"})
			So(err, ShouldNotBeNil)
			_, err = ParseOptions(map[string]any{"workingDir": t.TempDir()})
			So(err, ShouldBeNil)
		})
	})
}

func TestOptionsFor(t *testing.T) {
	PatchConvey("TestOptionsFor", t, func() {
		Mock(GetConfig).Return(&Config{
			Default: map[string]any{"linebreakcolumn": 80, "verbosediagnostics": false},
			Processors: map[string]map[string]any{
				"coffee-script": {"timeoutmillis": 3000},
			},
		}).Build()

		PatchConvey("按处理器覆盖", func() {
			o, err := OptionsFor("coffee-script", map[string]any{"renameIdentifiers": true})
			So(err, ShouldBeNil)
			So(o.LineBreakColumn, ShouldEqual, 80)
			So(o.VerboseDiagnostics, ShouldBeFalse)
			So(o.TimeoutMillis, ShouldEqual, 3000)
			So(o.RenameIdentifiers, ShouldBeTrue)
		})

		PatchConvey("调用方优先", func() {
			o, err := OptionsFor("js-min", map[string]any{"lineBreakColumn": -1})
			So(err, ShouldBeNil)
			So(o.LineBreakColumn, ShouldEqual, -1)
			So(o.TimeoutMillis, ShouldEqual, 0)
		})
	})
}

func TestRequestReporter(t *testing.T) {
	PatchConvey("TestRequestReporter", t, func() {
		var seen *xdiag.Reporter
		p := NewFunc("spy", func(ctx context.Context, req *Request) error {
			seen = req.Reporter
			_, err := io.Copy(req.Output, req.Input)
			return err
		})
		So(p.Name(), ShouldEqual, "spy")
		res := Invoke(context.Background(), p, Invocation{Input: strings.NewReader("x"), Output: &bytes.Buffer{}})
		So(res.Succeeded(), ShouldBeTrue)
		So(seen, ShouldNotBeNil)
		So(res.Diagnostics, ShouldBeNil)
	})
}
