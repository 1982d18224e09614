package dav_test

import (
	"net/http"
	"testing"

	dav "github.com/okhani/dav/internal/adapters/http/dav"
	. "github.com/smartystreets/goconvey/convey"
)

const propfindAll = `<?xml version="1.0"?><D:propfind xmlns:D="DAV:"><D:allprop/></D:propfind>`

func TestPropfind(t *testing.T) {
	Convey("Given a small tree", t, func() {
		f := newFixture()
		f.mustMkcol(t, "/docs")
		f.mustPut(t, "/docs/a.txt", "alpha")

		Convey("PROPFIND Depth 0 on a file returns one response", func() {
			rec := f.do("PROPFIND", "/docs/a.txt", propfindAll, map[string]string{"Depth": "0"})
			So(rec.Code, ShouldEqual, http.StatusMultiStatus)
			body := rec.Body.String()
			So(body, ShouldContainSubstring, "<D:href>/docs/a.txt</D:href>")
			So(body, ShouldContainSubstring, "getcontentlength")
			So(body, ShouldContainSubstring, ">5<")
			So(body, ShouldContainSubstring, "HTTP/1.1 200 OK")
		})

		Convey("PROPFIND Depth 1 on a collection lists members", func() {
			rec := f.do("PROPFIND", "/docs/", propfindAll, map[string]string{"Depth": "1"})
			body := rec.Body.String()
			So(rec.Code, ShouldEqual, http.StatusMultiStatus)
			So(body, ShouldContainSubstring, "<D:href>/docs/</D:href>")
			So(body, ShouldContainSubstring, "<D:href>/docs/a.txt</D:href>")
			So(body, ShouldContainSubstring, `<collection xmlns="DAV:"/>`)
		})

		Convey("An empty body means allprop", func() {
			rec := f.do("PROPFIND", "/docs/a.txt", "", map[string]string{"Depth": "0"})
			So(rec.Code, ShouldEqual, http.StatusMultiStatus)
			So(rec.Body.String(), ShouldContainSubstring, "getetag")
		})

		Convey("Depth infinity is refused by default", func() {
			rec := f.do("PROPFIND", "/", propfindAll, nil)
			So(rec.Code, ShouldEqual, http.StatusForbidden)
			So(rec.Body.String(), ShouldContainSubstring, "propfind-finite-depth")
		})

		Convey("Depth infinity works when permitted", func() {
			deep := newFixture(dav.WithInfiniteDepth(true))
			deep.mustMkcol(t, "/a")
			deep.mustMkcol(t, "/a/b")
			deep.mustPut(t, "/a/b/c.txt", "x")

			rec := deep.do("PROPFIND", "/", propfindAll, nil)
			So(rec.Code, ShouldEqual, http.StatusMultiStatus)
			So(rec.Body.String(), ShouldContainSubstring, "<D:href>/a/b/c.txt</D:href>")
		})

		Convey("propname lists names without values", func() {
			body := `<?xml version="1.0"?><D:propfind xmlns:D="DAV:"><D:propname/></D:propfind>`
			rec := f.do("PROPFIND", "/docs/a.txt", body, map[string]string{"Depth": "0"})
			So(rec.Code, ShouldEqual, http.StatusMultiStatus)
			So(rec.Body.String(), ShouldContainSubstring, "resourcetype")
			So(rec.Body.String(), ShouldNotContainSubstring, ">5<")
		})

		Convey("prop requests split into found and missing", func() {
			body := `<?xml version="1.0"?><D:propfind xmlns:D="DAV:"><D:prop>` +
				`<D:getetag/><Z:frobnitz xmlns:Z="urn:example"/></D:prop></D:propfind>`
			rec := f.do("PROPFIND", "/docs/a.txt", body, map[string]string{"Depth": "0"})
			So(rec.Code, ShouldEqual, http.StatusMultiStatus)
			So(rec.Body.String(), ShouldContainSubstring, "HTTP/1.1 200 OK")
			So(rec.Body.String(), ShouldContainSubstring, "HTTP/1.1 404 Not Found")
			So(rec.Body.String(), ShouldContainSubstring, "frobnitz")
		})

		Convey("PROPFIND on a missing resource is 404", func() {
			So(f.do("PROPFIND", "/nope", propfindAll, map[string]string{"Depth": "0"}).Code,
				ShouldEqual, http.StatusNotFound)
		})

		Convey("A malformed body is refused", func() {
			rec := f.do("PROPFIND", "/docs/a.txt", "<not-xml", map[string]string{"Depth": "0"})
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("A bad Depth is refused", func() {
			rec := f.do("PROPFIND", "/docs/", propfindAll, map[string]string{"Depth": "2"})
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestProppatch(t *testing.T) {
	Convey("Given a file", t, func() {
		f := newFixture()
		f.mustPut(t, "/f.txt", "x")

		set := `<?xml version="1.0"?><D:propertyupdate xmlns:D="DAV:" xmlns:Z="urn:example">` +
			`<D:set><D:prop><Z:color>green</Z:color></D:prop></D:set></D:propertyupdate>`

		Convey("Setting a dead property succeeds with 207", func() {
			rec := f.do("PROPPATCH", "/f.txt", set, nil)
			So(rec.Code, ShouldEqual, http.StatusMultiStatus)
			So(rec.Body.String(), ShouldContainSubstring, "HTTP/1.1 200 OK")

			Convey("And PROPFIND returns the stored value", func() {
				body := `<?xml version="1.0"?><D:propfind xmlns:D="DAV:"><D:prop>` +
					`<Z:color xmlns:Z="urn:example"/></D:prop></D:propfind>`
				rec := f.do("PROPFIND", "/f.txt", body, map[string]string{"Depth": "0"})
				So(rec.Body.String(), ShouldContainSubstring, "green")
			})

			Convey("And removing it succeeds", func() {
				remove := `<?xml version="1.0"?><D:propertyupdate xmlns:D="DAV:" xmlns:Z="urn:example">` +
					`<D:remove><D:prop><Z:color/></D:prop></D:remove></D:propertyupdate>`
				rec := f.do("PROPPATCH", "/f.txt", remove, nil)
				So(rec.Code, ShouldEqual, http.StatusMultiStatus)
				So(rec.Body.String(), ShouldContainSubstring, "HTTP/1.1 200 OK")
			})
		})

		Convey("Touching a protected property fails everything", func() {
			mixed := `<?xml version="1.0"?><D:propertyupdate xmlns:D="DAV:" xmlns:Z="urn:example">` +
				`<D:set><D:prop><D:getetag>"forged"</D:getetag><Z:ok>1</Z:ok></D:prop></D:set></D:propertyupdate>`
			rec := f.do("PROPPATCH", "/f.txt", mixed, nil)
			So(rec.Code, ShouldEqual, http.StatusMultiStatus)
			So(rec.Body.String(), ShouldContainSubstring, "HTTP/1.1 403 Forbidden")
			So(rec.Body.String(), ShouldContainSubstring, "HTTP/1.1 424 Failed Dependency")

			Convey("And the writable property was not applied", func() {
				body := `<?xml version="1.0"?><D:propfind xmlns:D="DAV:"><D:prop>` +
					`<Z:ok xmlns:Z="urn:example"/></D:prop></D:propfind>`
				rec := f.do("PROPFIND", "/f.txt", body, map[string]string{"Depth": "0"})
				So(rec.Body.String(), ShouldContainSubstring, "HTTP/1.1 404 Not Found")
			})
		})

		Convey("PROPPATCH on a missing resource is 404", func() {
			So(f.do("PROPPATCH", "/nope", set, nil).Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("A malformed body is refused", func() {
			So(f.do("PROPPATCH", "/f.txt", "<broken", nil).Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}
