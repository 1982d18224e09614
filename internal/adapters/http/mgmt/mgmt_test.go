package mgmt_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okhani/dav/internal/adapters/http/mgmt"
	"github.com/okhani/dav/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeProvider struct{}

func (fakeProvider) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true, "backend": "memory"}
}

func (fakeProvider) RecentChanges(_ context.Context, n int) []model.Change {
	out := []model.Change{{Op: model.OpPut, Path: "/a", TS: time.Now()}}
	if n < len(out) {
		out = out[:n]
	}
	return out
}

func TestManagementRoutes(t *testing.T) {
	Convey("Given a management server", t, func() {
		mux := http.NewServeMux()
		mgmt.NewServer(fakeProvider{}).Register(context.Background(), mux)

		Convey("When GET /stats", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats", nil))

			Convey("Then it returns the provider's stats as JSON", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				var got map[string]interface{}
				So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
				So(got["backend"], ShouldEqual, "memory")
				So(got, ShouldNotContainKey, "recent")
			})
		})

		Convey("When GET /stats?recent=5", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats?recent=5", nil))

			Convey("Then recent changes are included", func() {
				var got map[string]interface{}
				So(json.Unmarshal(rec.Body.Bytes(), &got), ShouldBeNil)
				So(got, ShouldContainKey, "recent")
			})
		})

		Convey("When GET /stats with a bad recent parameter", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stats?recent=nope", nil))

			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When POST /stats", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stats", nil))

			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When GET /healthz", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

			Convey("Then Prometheus metrics are served", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Body.String(), ShouldContainSubstring, "dav_")
			})
		})

		Convey("When GET /_status", func() {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/_status", nil))

			Convey("Then the embedded page is served", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(rec.Header().Get("Content-Type"), ShouldStartWith, "text/html")
				So(rec.Body.String(), ShouldContainSubstring, "DAV server status")
			})
		})
	})
}
