package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	fs "github.com/okhani/dav/internal/adapters/fs"
	. "github.com/smartystreets/goconvey/convey"
)

func TestOSFS(t *testing.T) {
	ctx := context.Background()

	Convey("Given an OSFS rooted at a temp dir", t, func() {
		root := t.TempDir()
		o, err := fs.NewOSFS(root)
		So(err, ShouldBeNil)

		Convey("When writing and reading a file", func() {
			So(writeFile(ctx, o, "/greeting.txt", "hello"), ShouldBeNil)
			content, err := readFile(ctx, o, "/greeting.txt")

			Convey("Then content round-trips", func() {
				So(err, ShouldBeNil)
				So(content, ShouldEqual, "hello")
			})

			Convey("And the file lands inside the root", func() {
				_, err := os.Stat(filepath.Join(root, "greeting.txt"))
				So(err, ShouldBeNil)
			})
		})

		Convey("When making and listing collections", func() {
			So(o.Mkdir(ctx, "/d"), ShouldBeNil)
			So(writeFile(ctx, o, "/d/f", "1"), ShouldBeNil)

			entries, err := o.ReadDir(ctx, "/d")
			So(err, ShouldBeNil)
			So(len(entries), ShouldEqual, 1)
			So(entries[0].Name, ShouldEqual, "f")

			So(o.Mkdir(ctx, "/d"), ShouldEqual, fs.ErrExists)
			So(o.Mkdir(ctx, "/missing/x"), ShouldEqual, fs.ErrParentNotFound)
		})

		Convey("When renaming", func() {
			So(writeFile(ctx, o, "/src", "v"), ShouldBeNil)
			So(o.Rename(ctx, "/src", "/dst"), ShouldBeNil)
			_, err := o.Stat(ctx, "/src")
			So(err, ShouldEqual, fs.ErrNotFound)
			content, _ := readFile(ctx, o, "/dst")
			So(content, ShouldEqual, "v")
		})

		Convey("When deleting the root", func() {
			So(o.RemoveAll(ctx, "/"), ShouldEqual, fs.ErrForbidden)
		})

		Convey("When a path tries to escape the root", func() {
			_, err := o.Stat(ctx, "/../outside")
			So(err, ShouldEqual, fs.ErrForbidden)
		})

		Convey("When symlinks are present", func() {
			target := filepath.Join(root, "target")
			So(os.WriteFile(target, []byte("t"), 0o644), ShouldBeNil)
			link := filepath.Join(root, "link")
			if err := os.Symlink(target, link); err != nil {
				t.Skipf("symlinks unsupported: %v", err)
			}

			Convey("Then they are hidden by default", func() {
				_, err := o.Stat(ctx, "/link")
				So(err, ShouldEqual, fs.ErrNotFound)

				entries, err := o.ReadDir(ctx, "/")
				So(err, ShouldBeNil)
				for _, e := range entries {
					So(e.Name, ShouldNotEqual, "link")
				}
			})

			Convey("And visible with WithSymlinksVisible", func() {
				v, err := fs.NewOSFS(root, fs.WithSymlinksVisible())
				So(err, ShouldBeNil)
				_, err = v.Stat(ctx, "/link")
				So(err, ShouldBeNil)
			})
		})
	})
}
