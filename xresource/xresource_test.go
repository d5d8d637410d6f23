package xresource

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/bytedance/mockey"
	. "github.com/smartystreets/goconvey/convey"
)

type closeTracker struct {
	io.Reader
	closed int
}

func (c *closeTracker) Close() error {
	c.closed++
	return errors.New("already closed")
}

func TestKind(t *testing.T) {
	PatchConvey("TestKind", t, func() {
		PatchConvey("内置类型", func() {
			So(Script.Known(), ShouldBeTrue)
			So(Stylesheet.Known(), ShouldBeTrue)
			So(Kind("IMAGE").Known(), ShouldBeFalse)
		})

		PatchConvey("注册扩展类型", func() {
			k := RegisterKind(" template ")
			So(k, ShouldEqual, Kind("TEMPLATE"))
			So(k.Known(), ShouldBeTrue)
			So(RegisterKind("  "), ShouldEqual, Kind(""))

			got, ok := ParseKind("template")
			So(ok, ShouldBeTrue)
			So(got, ShouldEqual, k)
			So(Kinds(), ShouldContain, k)
		})

		PatchConvey("排序", func() {
			ks := Kinds()
			So(len(ks), ShouldBeGreaterThanOrEqualTo, 2)
			for i := 1; i < len(ks); i++ {
				So(ks[i-1] < ks[i], ShouldBeTrue)
			}
		})
	})
}

func TestResource(t *testing.T) {
	PatchConvey("TestResource", t, func() {
		PatchConvey("字符串内容", func() {
			r := FromString("app.js", Script, "alert(1)")
			So(r.Name(), ShouldEqual, "app.js")
			So(r.Kind(), ShouldEqual, Script)
			b, err := io.ReadAll(r.Content())
			So(err, ShouldBeNil)
			So(string(b), ShouldEqual, "alert(1)")
			So(r.Close(), ShouldBeNil)
		})

		PatchConvey("Close只执行一次", func() {
			c := &closeTracker{Reader: strings.NewReader("x")}
			r := New("a.css", Stylesheet, c)
			err1 := r.Close()
			err2 := r.Close()
			So(c.closed, ShouldEqual, 1)
			So(err1, ShouldEqual, err2)
		})

		PatchConvey("按扩展名推断", func() {
			So(KindByExt("a/b/app.MJS"), ShouldEqual, Script)
			So(KindByExt("site.less"), ShouldEqual, Stylesheet)
			So(KindByExt("logo.png"), ShouldEqual, Kind(""))
		})

		PatchConvey("打开文件", func() {
			dir := t.TempDir()
			p := filepath.Join(dir, "main.css")
			So(os.WriteFile(p, []byte("a{}"), 0o644), ShouldBeNil)
			r, err := Open(p, "")
			So(err, ShouldBeNil)
			So(r.Kind(), ShouldEqual, Stylesheet)
			b, _ := io.ReadAll(r.Content())
			So(string(b), ShouldEqual, "a{}")
			So(r.Close(), ShouldBeNil)

			_, err = Open(filepath.Join(dir, "missing.js"), Script)
			So(err, ShouldNotBeNil)
		})
	})
}
