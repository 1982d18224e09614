package locks_test

import (
	"context"
	"strings"
	"testing"
	"time"

	locks "github.com/okhani/dav/internal/adapters/locks"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMemLSGrant(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty lock table", t, func() {
		ls := locks.NewMemLS()
		defer ls.Close()

		Convey("When taking an exclusive lock", func() {
			l, err := ls.Lock(ctx, locks.Request{
				Path:      "/a/file",
				Principal: "alice",
				Scope:     locks.Exclusive,
				Duration:  time.Minute,
			})

			Convey("Then a urn:uuid token is minted", func() {
				So(err, ShouldBeNil)
				So(strings.HasPrefix(l.Token, "urn:uuid:"), ShouldBeTrue)
				So(l.Expires.IsZero(), ShouldBeFalse)
			})

			Convey("And a second exclusive lock conflicts", func() {
				_, err := ls.Lock(ctx, locks.Request{Path: "/a/file", Scope: locks.Exclusive, Duration: time.Minute})
				So(err, ShouldEqual, locks.ErrLocked)
			})

			Convey("And a shared lock also conflicts", func() {
				_, err := ls.Lock(ctx, locks.Request{Path: "/a/file", Scope: locks.Shared, Duration: time.Minute})
				So(err, ShouldEqual, locks.ErrLocked)
			})
		})

		Convey("When taking two shared locks", func() {
			_, err1 := ls.Lock(ctx, locks.Request{Path: "/s", Scope: locks.Shared, Duration: time.Minute})
			_, err2 := ls.Lock(ctx, locks.Request{Path: "/s", Scope: locks.Shared, Duration: time.Minute})

			Convey("Then both are granted", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
			})

			Convey("But an exclusive lock on the same path conflicts", func() {
				_, err := ls.Lock(ctx, locks.Request{Path: "/s", Scope: locks.Exclusive, Duration: time.Minute})
				So(err, ShouldEqual, locks.ErrLocked)
			})
		})

		Convey("When a depth-infinity lock covers a collection", func() {
			_, err := ls.Lock(ctx, locks.Request{
				Path: "/col", Scope: locks.Exclusive, Infinite: true, Duration: time.Minute,
			})
			So(err, ShouldBeNil)

			Convey("Then descendants are covered", func() {
				_, err := ls.Lock(ctx, locks.Request{Path: "/col/child", Scope: locks.Exclusive, Duration: time.Minute})
				So(err, ShouldEqual, locks.ErrLocked)
			})

			Convey("And a depth-infinity lock above it conflicts", func() {
				_, err := ls.Lock(ctx, locks.Request{Path: "/", Scope: locks.Exclusive, Infinite: true, Duration: time.Minute})
				So(err, ShouldEqual, locks.ErrLocked)
			})

			Convey("But siblings stay lockable", func() {
				_, err := ls.Lock(ctx, locks.Request{Path: "/other", Scope: locks.Exclusive, Duration: time.Minute})
				So(err, ShouldBeNil)
			})
		})
	})
}

func TestMemLSCheck(t *testing.T) {
	ctx := context.Background()

	Convey("Given a locked resource", t, func() {
		ls := locks.NewMemLS()
		defer ls.Close()

		l, err := ls.Lock(ctx, locks.Request{
			Path: "/doc", Principal: "alice", Scope: locks.Exclusive, Duration: time.Minute,
		})
		So(err, ShouldBeNil)

		Convey("When checking without the token", func() {
			So(ls.Check(ctx, "/doc", "alice", false, nil), ShouldEqual, locks.ErrLocked)
		})

		Convey("When checking with the token as the owner", func() {
			So(ls.Check(ctx, "/doc", "alice", false, []string{l.Token}), ShouldBeNil)
		})

		Convey("When another principal submits the token", func() {
			So(ls.Check(ctx, "/doc", "mallory", false, []string{l.Token}), ShouldEqual, locks.ErrLocked)
		})

		Convey("When checking an unrelated path", func() {
			So(ls.Check(ctx, "/free", "anyone", false, nil), ShouldBeNil)
		})

		Convey("When a deep check covers a locked descendant", func() {
			So(ls.Check(ctx, "/", "alice", true, nil), ShouldEqual, locks.ErrLocked)
			So(ls.Check(ctx, "/", "alice", true, []string{l.Token}), ShouldBeNil)
		})
	})
}

func TestMemLSLifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a lock with a short timeout", t, func() {
		now := time.Now()
		ls := locks.NewMemLS(locks.WithClock(func() time.Time { return now }))
		defer ls.Close()

		l, err := ls.Lock(ctx, locks.Request{Path: "/t", Scope: locks.Exclusive, Duration: 10 * time.Second})
		So(err, ShouldBeNil)

		Convey("When time passes beyond the timeout", func() {
			now = now.Add(time.Minute)

			Convey("Then the lock is invisible before the janitor runs", func() {
				So(ls.Check(ctx, "/t", "", false, nil), ShouldBeNil)
				So(ls.Discover(ctx, "/t"), ShouldBeEmpty)
				_, err := ls.Refresh(ctx, "/t", l.Token, time.Minute, false)
				So(err, ShouldEqual, locks.ErrNoSuchLock)
			})
		})

		Convey("When refreshing before expiry", func() {
			refreshed, err := ls.Refresh(ctx, "/t", l.Token, 5*time.Minute, false)

			Convey("Then the expiry extends", func() {
				So(err, ShouldBeNil)
				So(refreshed.Expires.After(l.Expires), ShouldBeTrue)
			})
		})

		Convey("When unlocking", func() {
			Convey("With the right token", func() {
				So(ls.Unlock(ctx, "/t", l.Token, ""), ShouldBeNil)
				So(ls.Check(ctx, "/t", "", false, nil), ShouldBeNil)
			})

			Convey("With an unknown token", func() {
				So(ls.Unlock(ctx, "/t", "urn:uuid:nope", ""), ShouldEqual, locks.ErrNoSuchLock)
			})
		})

		Convey("When unlocking someone else's lock", func() {
			owned, err := ls.Lock(ctx, locks.Request{
				Path: "/owned", Principal: "alice", Scope: locks.Exclusive, Duration: time.Minute,
			})
			So(err, ShouldBeNil)
			So(ls.Unlock(ctx, "/owned", owned.Token, "mallory"), ShouldEqual, locks.ErrForbidden)
		})
	})
}

func TestMemLSMoveClear(t *testing.T) {
	ctx := context.Background()

	Convey("Given locks in a subtree", t, func() {
		ls := locks.NewMemLS()
		defer ls.Close()

		l, err := ls.Lock(ctx, locks.Request{Path: "/src/doc", Scope: locks.Exclusive, Duration: time.Minute})
		So(err, ShouldBeNil)

		Convey("When the subtree moves", func() {
			ls.Move(ctx, "/src", "/dst")

			Convey("Then the lock follows", func() {
				found := ls.Discover(ctx, "/dst/doc")
				So(len(found), ShouldEqual, 1)
				So(found[0].Token, ShouldEqual, l.Token)
				So(ls.Discover(ctx, "/src/doc"), ShouldBeEmpty)
			})
		})

		Convey("When the subtree is cleared", func() {
			ls.Clear(ctx, "/src")

			Convey("Then the lock is gone", func() {
				So(ls.Discover(ctx, "/src/doc"), ShouldBeEmpty)
			})
		})
	})
}

func TestMemLSInfiniteTimeoutCapped(t *testing.T) {
	ctx := context.Background()

	Convey("Given a table with a max timeout", t, func() {
		ls := locks.NewMemLS(locks.WithMaxTimeout(time.Hour))
		defer ls.Close()

		Convey("When requesting an infinite lock", func() {
			l, err := ls.Lock(ctx, locks.Request{Path: "/x", Scope: locks.Exclusive, NoExpiry: true})

			Convey("Then the cap applies instead", func() {
				So(err, ShouldBeNil)
				So(l.NoExpiry, ShouldBeFalse)
				So(l.Duration, ShouldEqual, time.Hour)
			})
		})
	})
}
