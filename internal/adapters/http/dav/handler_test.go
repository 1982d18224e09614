package dav_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/okhani/dav/internal/adapters/fs"
	dav "github.com/okhani/dav/internal/adapters/http/dav"
	"github.com/okhani/dav/internal/adapters/locks"
	"github.com/okhani/dav/internal/domain/model"
	"github.com/okhani/dav/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// recordingJournal captures journal entries for assertions.
type recordingJournal struct {
	mu      sync.Mutex
	changes []model.Change
}

func (j *recordingJournal) Record(_ context.Context, c model.Change) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.changes = append(j.changes, c)
	return true
}

func (j *recordingJournal) last() (model.Change, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.changes) == 0 {
		return model.Change{}, false
	}
	return j.changes[len(j.changes)-1], true
}

type fixture struct {
	h       *dav.Handler
	fs      *fs.MemFS
	ls      *locks.MemLS
	journal *recordingJournal
}

func newFixture(opts ...dav.Option) *fixture {
	f := &fixture{
		fs:      fs.NewMemFS(),
		ls:      locks.NewMemLS(),
		journal: &recordingJournal{},
	}
	all := append([]dav.Option{
		dav.WithLockSystem(f.ls),
		dav.WithJournal(f.journal),
	}, opts...)
	f.h = dav.NewHandler(f.fs, all...)
	return f
}

// newBareFixture builds a handler with no lock system and no journal.
func newBareFixture() *fixture {
	f := &fixture{fs: fs.NewMemFS(), journal: &recordingJournal{}}
	f.h = dav.NewHandler(f.fs)
	return f
}

func (f *fixture) do(method, target string, body string, headers map[string]string) *httptest.ResponseRecorder {
	var r *http.Request
	if body == "" {
		r = httptest.NewRequest(method, target, nil)
	} else {
		r = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	for k, v := range headers {
		r.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, r)
	return rec
}

func (f *fixture) mustPut(t *testing.T, path, content string) {
	t.Helper()
	rec := f.do(http.MethodPut, path, content, nil)
	if rec.Code != http.StatusCreated && rec.Code != http.StatusNoContent {
		t.Fatalf("PUT %s: got %d", path, rec.Code)
	}
}

func (f *fixture) mustMkcol(t *testing.T, path string) {
	t.Helper()
	if rec := f.do("MKCOL", path, "", nil); rec.Code != http.StatusCreated {
		t.Fatalf("MKCOL %s: got %d", path, rec.Code)
	}
}

func TestDispatch(t *testing.T) {
	Convey("Given a handler", t, func() {
		f := newFixture()

		Convey("An unknown method is refused", func() {
			rec := f.do("TRACE", "/x", "", nil)
			So(rec.Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(rec.Header().Get("Connection"), ShouldEqual, "close")
		})

		Convey("A method outside the allow list is refused", func() {
			restricted := newFixture(dav.WithAllowedMethods("GET", "PROPFIND"))
			So(restricted.do(http.MethodPut, "/x", "data", nil).Code, ShouldEqual, http.StatusMethodNotAllowed)
			So(restricted.do(http.MethodOptions, "/", "", nil).Code, ShouldEqual, http.StatusOK)
		})

		Convey("A body on a bodyless method is refused", func() {
			rec := f.do(http.MethodDelete, "/x", "stray body", nil)
			So(rec.Code, ShouldEqual, http.StatusUnsupportedMediaType)
		})

		Convey("An oversized pre-read body is refused", func() {
			rec := f.do("PROPFIND", "/", strings.Repeat("x", 70000), nil)
			So(rec.Code, ShouldEqual, http.StatusRequestEntityTooLarge)
		})

		Convey("A traversal path is refused", func() {
			So(f.do(http.MethodGet, "/a/../../etc/passwd", "", nil).Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A Microsoft client 404 carries cache-busting headers", func() {
			rec := f.do(http.MethodGet, "/missing", "", map[string]string{
				"User-Agent": "Microsoft-WebDAV-MiniRedir/10.0",
			})
			So(rec.Code, ShouldEqual, http.StatusNotFound)
			So(rec.Header().Get("Cache-Control"), ShouldContainSubstring, "no-cache")
			So(rec.Header().Get("Expires"), ShouldEqual, "0")
		})

		Convey("A plain 404 does not", func() {
			rec := f.do(http.MethodGet, "/missing", "", nil)
			So(rec.Code, ShouldEqual, http.StatusNotFound)
			So(rec.Header().Get("Cache-Control"), ShouldBeBlank)
		})
	})

	Convey("Given a handler mounted under a prefix", t, func() {
		f := newFixture(dav.WithPrefix("/dav"))

		Convey("Paths outside the prefix are not found", func() {
			So(f.do(http.MethodGet, "/other/x", "", nil).Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("Paths under the prefix resolve", func() {
			So(f.do(http.MethodPut, "/dav/file.txt", "hi", nil).Code, ShouldEqual, http.StatusCreated)
			rec := f.do(http.MethodGet, "/dav/file.txt", "", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldEqual, "hi")
		})
	})
}

func TestOptions(t *testing.T) {
	Convey("Given a handler with locking", t, func() {
		f := newFixture()
		rec := f.do(http.MethodOptions, "/", "", nil)

		Convey("Then DAV class 1 and 2 are advertised", func() {
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Header().Get("DAV"), ShouldEqual, "1, 2")
			So(rec.Header().Get("MS-Author-Via"), ShouldEqual, "DAV")
			So(rec.Header().Get("Allow"), ShouldContainSubstring, "LOCK")
			So(rec.Header().Get("Allow"), ShouldContainSubstring, "PROPFIND")
		})
	})

	Convey("Given a handler without locking", t, func() {
		h := dav.NewHandler(fs.NewMemFS())
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/", nil))

		Convey("Then only class 1 is advertised", func() {
			So(rec.Header().Get("DAV"), ShouldEqual, "1")
			So(rec.Header().Get("Allow"), ShouldNotContainSubstring, "LOCK")
		})
	})
}

func TestPut(t *testing.T) {
	Convey("Given a handler", t, func() {
		f := newFixture()

		Convey("PUT creates a new file with 201", func() {
			rec := f.do(http.MethodPut, "/file.txt", "hello", nil)
			So(rec.Code, ShouldEqual, http.StatusCreated)
			So(rec.Header().Get("ETag"), ShouldNotBeBlank)

			Convey("And the journal sees the change", func() {
				c, ok := f.journal.last()
				So(ok, ShouldBeTrue)
				So(c.Op, ShouldEqual, model.OpPut)
				So(c.Path, ShouldEqual, "/file.txt")
			})

			Convey("And overwriting answers 204", func() {
				So(f.do(http.MethodPut, "/file.txt", "fresh", nil).Code, ShouldEqual, http.StatusNoContent)
			})
		})

		Convey("PUT to a collection URL is refused", func() {
			So(f.do(http.MethodPut, "/dir/", "x", nil).Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("PUT over an existing collection is refused", func() {
			f.mustMkcol(t, "/dir")
			So(f.do(http.MethodPut, "/dir", "x", nil).Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("PUT without a parent is a conflict", func() {
			So(f.do(http.MethodPut, "/no/parent.txt", "x", nil).Code, ShouldEqual, http.StatusConflict)
		})

		Convey("PUT with Content-Range is not implemented", func() {
			rec := f.do(http.MethodPut, "/f.txt", "x", map[string]string{"Content-Range": "bytes 0-0/5"})
			So(rec.Code, ShouldEqual, http.StatusNotImplemented)
		})

		Convey("PUT with a failing If-Match is refused", func() {
			f.mustPut(t, "/f.txt", "v1")
			rec := f.do(http.MethodPut, "/f.txt", "v2", map[string]string{"If-Match": `"wrong"`})
			So(rec.Code, ShouldEqual, http.StatusPreconditionFailed)
		})

		Convey("PUT with If-None-Match star on an existing file is refused", func() {
			f.mustPut(t, "/f.txt", "v1")
			rec := f.do(http.MethodPut, "/f.txt", "v2", map[string]string{"If-None-Match": "*"})
			So(rec.Code, ShouldEqual, http.StatusPreconditionFailed)
		})
	})
}

func TestGet(t *testing.T) {
	Convey("Given a file", t, func() {
		f := newFixture()
		f.mustPut(t, "/hello.txt", "hello world")

		Convey("GET serves the content with an etag", func() {
			rec := f.do(http.MethodGet, "/hello.txt", "", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.String(), ShouldEqual, "hello world")
			So(rec.Header().Get("ETag"), ShouldNotBeBlank)
			So(rec.Header().Get("Content-Type"), ShouldContainSubstring, "text/plain")
		})

		Convey("HEAD serves headers only", func() {
			rec := f.do(http.MethodHead, "/hello.txt", "", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Body.Len(), ShouldEqual, 0)
		})

		Convey("Range requests are honored", func() {
			rec := f.do(http.MethodGet, "/hello.txt", "", map[string]string{"Range": "bytes=0-4"})
			So(rec.Code, ShouldEqual, http.StatusPartialContent)
			So(rec.Body.String(), ShouldEqual, "hello")
		})

		Convey("If-None-Match with the current etag answers 304", func() {
			etag := f.do(http.MethodHead, "/hello.txt", "", nil).Header().Get("ETag")
			rec := f.do(http.MethodGet, "/hello.txt", "", map[string]string{"If-None-Match": etag})
			So(rec.Code, ShouldEqual, http.StatusNotModified)
		})

		Convey("GET with a trailing slash on a file is not found", func() {
			So(f.do(http.MethodGet, "/hello.txt/", "", nil).Code, ShouldEqual, http.StatusNotFound)
		})
	})

	Convey("Given a collection", t, func() {
		f := newFixture()
		f.mustMkcol(t, "/docs")
		f.mustPut(t, "/docs/a.txt", "a")

		Convey("GET without a slash redirects via Content-Location and lists", func() {
			rec := f.do(http.MethodGet, "/docs", "", nil)
			So(rec.Code, ShouldEqual, http.StatusOK)
			So(rec.Header().Get("Content-Location"), ShouldEqual, "/docs/")
			So(rec.Body.String(), ShouldContainSubstring, "a.txt")
		})
	})
}

func TestDelete(t *testing.T) {
	Convey("Given a tree", t, func() {
		f := newFixture()
		f.mustMkcol(t, "/dir")
		f.mustPut(t, "/dir/f.txt", "x")

		Convey("DELETE removes a file", func() {
			So(f.do(http.MethodDelete, "/dir/f.txt", "", nil).Code, ShouldEqual, http.StatusNoContent)
			So(f.do(http.MethodGet, "/dir/f.txt", "", nil).Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("DELETE removes a collection recursively", func() {
			So(f.do(http.MethodDelete, "/dir", "", nil).Code, ShouldEqual, http.StatusNoContent)
			So(f.do(http.MethodGet, "/dir/f.txt", "", nil).Code, ShouldEqual, http.StatusNotFound)

			c, ok := f.journal.last()
			So(ok, ShouldBeTrue)
			So(c.Op, ShouldEqual, model.OpDelete)
		})

		Convey("DELETE on a missing resource is 404", func() {
			So(f.do(http.MethodDelete, "/nope", "", nil).Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("DELETE with Depth 0 is malformed", func() {
			So(f.do(http.MethodDelete, "/dir", "", map[string]string{"Depth": "0"}).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestMkcol(t *testing.T) {
	Convey("Given a handler", t, func() {
		f := newFixture()

		Convey("MKCOL creates a collection", func() {
			rec := f.do("MKCOL", "/new", "", nil)
			So(rec.Code, ShouldEqual, http.StatusCreated)
			So(rec.Header().Get("Content-Location"), ShouldEqual, "/new/")

			c, ok := f.journal.last()
			So(ok, ShouldBeTrue)
			So(c.Op, ShouldEqual, model.OpMkcol)
		})

		Convey("MKCOL on an existing resource is 405", func() {
			f.mustMkcol(t, "/new")
			So(f.do("MKCOL", "/new", "", nil).Code, ShouldEqual, http.StatusMethodNotAllowed)
		})

		Convey("MKCOL without a parent is a conflict", func() {
			So(f.do("MKCOL", "/a/b", "", nil).Code, ShouldEqual, http.StatusConflict)
		})

		Convey("MKCOL with a body is unsupported", func() {
			rec := f.do("MKCOL", "/new", "<whatever/>", nil)
			So(rec.Code, ShouldEqual, http.StatusUnsupportedMediaType)
		})
	})
}
