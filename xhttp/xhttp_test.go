package xhttp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bytedance/mockey"
	c "github.com/smartystreets/goconvey/convey"

	"github.com/xiaoshicae/xasset/xtrace"
)

func TestXHttpConfig(t *testing.T) {
	mockey.PatchConvey("TestXHttpConfig", t, func() {
		c.So(configMergeDefault(nil), c.ShouldResemble, &Config{
			Timeout:             "60s",
			DialTimeout:         "5s",
			MaxIdleConnsPerHost: 16,
			IdleConnTimeout:     "90s",
			UserAgent:           "xasset",
		})
		c.So(configMergeDefault(&Config{Timeout: "1s"}).Timeout, c.ShouldEqual, "1s")
	})
}

func TestClient(t *testing.T) {
	mockey.PatchConvey("TestClient", t, func() {
		set(nil)
		defer set(nil)

		var gotUA string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUA = r.Header.Get("User-Agent")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ok"))
		}))
		defer srv.Close()

		mockey.PatchConvey("懒创建并复用", func() {
			first := C()
			c.So(first, c.ShouldNotBeNil)
			c.So(C(), c.ShouldEqual, first)
		})

		mockey.PatchConvey("请求带 User-Agent", func() {
			resp, err := R(context.Background()).Get(srv.URL)
			c.So(err, c.ShouldBeNil)
			c.So(resp.String(), c.ShouldEqual, "ok")
			c.So(gotUA, c.ShouldEqual, "xasset")
		})

		mockey.PatchConvey("trace 开启时包装 transport", func() {
			mockey.Mock(xtrace.Enabled).Return(true).Build()
			cl := New(nil)
			_, isRaw := cl.GetClient().Transport.(*http.Transport)
			c.So(isRaw, c.ShouldBeFalse)
		})

		mockey.PatchConvey("initXHttp 替换 client", func() {
			c.So(initXHttp(), c.ShouldBeNil)
			c.So(C(), c.ShouldNotBeNil)
		})
	})
}
