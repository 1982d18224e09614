package probe

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Request bodies used by the property and locking suites.
const (
	allpropBody = `<?xml version="1.0" encoding="utf-8"?>` +
		`<D:propfind xmlns:D="DAV:"><D:allprop/></D:propfind>`

	setPropBody = `<?xml version="1.0" encoding="utf-8"?>` +
		`<D:propertyupdate xmlns:D="DAV:" xmlns:P="urn:probe:">` +
		`<D:set><D:prop><P:flavor>mint</P:flavor></D:prop></D:set>` +
		`</D:propertyupdate>`

	removePropBody = `<?xml version="1.0" encoding="utf-8"?>` +
		`<D:propertyupdate xmlns:D="DAV:" xmlns:P="urn:probe:">` +
		`<D:remove><D:prop><P:flavor/></D:prop></D:remove>` +
		`</D:propertyupdate>`

	findPropBody = `<?xml version="1.0" encoding="utf-8"?>` +
		`<D:propfind xmlns:D="DAV:" xmlns:P="urn:probe:">` +
		`<D:prop><P:flavor/></D:prop></D:propfind>`

	exclusiveLockBody = `<?xml version="1.0" encoding="utf-8"?>` +
		`<D:lockinfo xmlns:D="DAV:">` +
		`<D:lockscope><D:exclusive/></D:lockscope>` +
		`<D:locktype><D:write/></D:locktype>` +
		`<D:owner><D:href>probe</D:href></D:owner>` +
		`</D:lockinfo>`
)

func wantSubstring(body, want string) error {
	if !strings.Contains(body, want) {
		return fmt.Errorf("%w: body missing %q", ErrBadResponse, want)
	}
	return nil
}

// basicSuite covers plain resource handling: collection creation, file
// upload, retrieval, overwrite and deletion.
func basicSuite() Suite {
	const root = "/probe-basic"
	file := root + "/hello.txt"

	return Suite{
		Name: "basic",
		Checks: []Check{
			{"options", func(ctx context.Context, c *Client) error {
				_, hdr, err := c.Expect(ctx, http.MethodOptions, "/", "", nil, http.StatusOK)
				if err != nil {
					return err
				}
				if !strings.Contains(hdr.Get("DAV"), "1") {
					return fmt.Errorf("%w: DAV header %q lacks class 1", ErrBadResponse, hdr.Get("DAV"))
				}
				return nil
			}},
			{"mkcol", func(ctx context.Context, c *Client) error {
				_, _, err := c.Expect(ctx, "MKCOL", root+"/", "", nil, http.StatusCreated)
				return err
			}},
			{"mkcol_again", func(ctx context.Context, c *Client) error {
				_, _, err := c.Expect(ctx, "MKCOL", root+"/", "", nil, http.StatusMethodNotAllowed)
				return err
			}},
			{"mkcol_no_parent", func(ctx context.Context, c *Client) error {
				_, _, err := c.Expect(ctx, "MKCOL", root+"/missing/deep/", "", nil, http.StatusConflict)
				return err
			}},
			{"put", func(ctx context.Context, c *Client) error {
				_, _, err := c.Expect(ctx, http.MethodPut, file, "hello probe", nil, http.StatusCreated)
				return err
			}},
			{"get", func(ctx context.Context, c *Client) error {
				body, _, err := c.Expect(ctx, http.MethodGet, file, "", nil, http.StatusOK)
				if err != nil {
					return err
				}
				if body != "hello probe" {
					return fmt.Errorf("%w: got body %q", ErrBadResponse, body)
				}
				return nil
			}},
			{"put_overwrite", func(ctx context.Context, c *Client) error {
				_, _, err := c.Expect(ctx, http.MethodPut, file, "hello again", nil, http.StatusNoContent)
				return err
			}},
			{"head", func(ctx context.Context, c *Client) error {
				body, hdr, err := c.Expect(ctx, http.MethodHead, file, "", nil, http.StatusOK)
				if err != nil {
					return err
				}
				if body != "" {
					return fmt.Errorf("%w: HEAD returned a body", ErrBadResponse)
				}
				if hdr.Get("ETag") == "" {
					return fmt.Errorf("%w: HEAD missing ETag", ErrBadResponse)
				}
				return nil
			}},
			{"delete", func(ctx context.Context, c *Client) error {
				_, _, err := c.Expect(ctx, http.MethodDelete, file, "", nil, http.StatusNoContent)
				return err
			}},
			{"get_gone", func(ctx context.Context, c *Client) error {
				_, _, err := c.Expect(ctx, http.MethodGet, file, "", nil, http.StatusNotFound)
				return err
			}},
			{"delete_collection", func(ctx context.Context, c *Client) error {
				_, _, err := c.Expect(ctx, http.MethodDelete, root+"/", "", nil, http.StatusNoContent)
				return err
			}},
		},
	}
}

// propsSuite covers PROPFIND and PROPPATCH behavior including dead
// property round-trips.
func propsSuite() Suite {
	const root = "/probe-props"
	file := root + "/doc.txt"
	xmlHdr := map[string]string{"Content-Type": "application/xml"}

	return Suite{
		Name: "props",
		Checks: []Check{
			{"setup", func(ctx context.Context, c *Client) error {
				if _, _, err := c.Expect(ctx, "MKCOL", root+"/", "", nil, http.StatusCreated); err != nil {
					return err
				}
				_, _, err := c.Expect(ctx, http.MethodPut, file, "prop target", nil, http.StatusCreated)
				return err
			}},
			{"propfind_file", func(ctx context.Context, c *Client) error {
				hdr := map[string]string{"Depth": "0", "Content-Type": "application/xml"}
				body, _, err := c.Expect(ctx, "PROPFIND", file, allpropBody, hdr, http.StatusMultiStatus)
				if err != nil {
					return err
				}
				if err := wantSubstring(body, "getcontentlength"); err != nil {
					return err
				}
				return wantSubstring(body, "getetag")
			}},
			{"propfind_collection", func(ctx context.Context, c *Client) error {
				hdr := map[string]string{"Depth": "1", "Content-Type": "application/xml"}
				body, _, err := c.Expect(ctx, "PROPFIND", root+"/", allpropBody, hdr, http.StatusMultiStatus)
				if err != nil {
					return err
				}
				if err := wantSubstring(body, "doc.txt"); err != nil {
					return err
				}
				return wantSubstring(body, "collection")
			}},
			{"propfind_missing", func(ctx context.Context, c *Client) error {
				hdr := map[string]string{"Depth": "0"}
				_, _, err := c.Expect(ctx, "PROPFIND", root+"/nope.txt", "", hdr, http.StatusNotFound)
				return err
			}},
			{"proppatch_set", func(ctx context.Context, c *Client) error {
				body, _, err := c.Expect(ctx, "PROPPATCH", file, setPropBody, xmlHdr, http.StatusMultiStatus)
				if err != nil {
					return err
				}
				return wantSubstring(body, "200")
			}},
			{"propfind_dead", func(ctx context.Context, c *Client) error {
				hdr := map[string]string{"Depth": "0", "Content-Type": "application/xml"}
				body, _, err := c.Expect(ctx, "PROPFIND", file, findPropBody, hdr, http.StatusMultiStatus)
				if err != nil {
					return err
				}
				return wantSubstring(body, "mint")
			}},
			{"proppatch_remove", func(ctx context.Context, c *Client) error {
				_, _, err := c.Expect(ctx, "PROPPATCH", file, removePropBody, xmlHdr, http.StatusMultiStatus)
				return err
			}},
			{"cleanup", func(ctx context.Context, c *Client) error {
				_, _, err := c.Expect(ctx, http.MethodDelete, root+"/", "", nil, http.StatusNoContent)
				return err
			}},
		},
	}
}

// copyMoveSuite covers COPY and MOVE including overwrite negotiation.
func copyMoveSuite() Suite {
	const root = "/probe-cm"
	src := root + "/src.txt"
	dst := root + "/dst.txt"
	moved := root + "/moved.txt"

	return Suite{
		Name: "copymove",
		Checks: []Check{
			{"setup", func(ctx context.Context, c *Client) error {
				if _, _, err := c.Expect(ctx, "MKCOL", root+"/", "", nil, http.StatusCreated); err != nil {
					return err
				}
				_, _, err := c.Expect(ctx, http.MethodPut, src, "copy me", nil, http.StatusCreated)
				return err
			}},
			{"copy", func(ctx context.Context, c *Client) error {
				hdr := map[string]string{"Destination": c.Destination(dst)}
				if _, _, err := c.Expect(ctx, "COPY", src, "", hdr, http.StatusCreated); err != nil {
					return err
				}
				body, _, err := c.Expect(ctx, http.MethodGet, dst, "", nil, http.StatusOK)
				if err != nil {
					return err
				}
				if body != "copy me" {
					return fmt.Errorf("%w: copy target body %q", ErrBadResponse, body)
				}
				return nil
			}},
			{"copy_no_overwrite", func(ctx context.Context, c *Client) error {
				hdr := map[string]string{"Destination": c.Destination(dst), "Overwrite": "F"}
				_, _, err := c.Expect(ctx, "COPY", src, "", hdr, http.StatusPreconditionFailed)
				return err
			}},
			{"copy_overwrite", func(ctx context.Context, c *Client) error {
				hdr := map[string]string{"Destination": c.Destination(dst), "Overwrite": "T"}
				_, _, err := c.Expect(ctx, "COPY", src, "", hdr, http.StatusNoContent)
				return err
			}},
			{"move", func(ctx context.Context, c *Client) error {
				hdr := map[string]string{"Destination": c.Destination(moved)}
				if _, _, err := c.Expect(ctx, "MOVE", src, "", hdr, http.StatusCreated); err != nil {
					return err
				}
				if _, _, err := c.Expect(ctx, http.MethodGet, src, "", nil, http.StatusNotFound); err != nil {
					return err
				}
				_, _, err := c.Expect(ctx, http.MethodGet, moved, "", nil, http.StatusOK)
				return err
			}},
			{"cleanup", func(ctx context.Context, c *Client) error {
				_, _, err := c.Expect(ctx, http.MethodDelete, root+"/", "", nil, http.StatusNoContent)
				return err
			}},
		},
	}
}

// locksSuite covers exclusive locking, token submission and unlock.
// The token granted by the lock check is threaded through the later
// checks, so the checks only make sense when run in order.
func locksSuite() Suite {
	const root = "/probe-locks"
	file := root + "/guarded.txt"
	var token string

	return Suite{
		Name: "locks",
		Checks: []Check{
			{"setup", func(ctx context.Context, c *Client) error {
				if _, _, err := c.Expect(ctx, "MKCOL", root+"/", "", nil, http.StatusCreated); err != nil {
					return err
				}
				_, _, err := c.Expect(ctx, http.MethodPut, file, "guarded", nil, http.StatusCreated)
				return err
			}},
			{"lock", func(ctx context.Context, c *Client) error {
				hdr := map[string]string{"Timeout": "Second-120", "Content-Type": "application/xml"}
				body, respHdr, err := c.Expect(ctx, "LOCK", file, exclusiveLockBody, hdr, http.StatusOK)
				if err != nil {
					return err
				}
				token = strings.Trim(respHdr.Get("Lock-Token"), "<>")
				if token == "" {
					return fmt.Errorf("%w: LOCK granted without Lock-Token", ErrBadResponse)
				}
				return wantSubstring(body, "lockdiscovery")
			}},
			{"put_locked_out", func(ctx context.Context, c *Client) error {
				_, _, err := c.Expect(ctx, http.MethodPut, file, "intruder", nil, http.StatusLocked)
				return err
			}},
			{"put_with_token", func(ctx context.Context, c *Client) error {
				hdr := map[string]string{"If": "(<" + token + ">)"}
				_, _, err := c.Expect(ctx, http.MethodPut, file, "owner write", hdr, http.StatusNoContent)
				return err
			}},
			{"double_lock", func(ctx context.Context, c *Client) error {
				hdr := map[string]string{"Content-Type": "application/xml"}
				_, _, err := c.Expect(ctx, "LOCK", file, exclusiveLockBody, hdr, http.StatusLocked)
				return err
			}},
			{"unlock", func(ctx context.Context, c *Client) error {
				hdr := map[string]string{"Lock-Token": "<" + token + ">"}
				_, _, err := c.Expect(ctx, "UNLOCK", file, "", hdr, http.StatusNoContent)
				return err
			}},
			{"put_after_unlock", func(ctx context.Context, c *Client) error {
				_, _, err := c.Expect(ctx, http.MethodPut, file, "free again", nil, http.StatusNoContent)
				return err
			}},
			{"lock_null", func(ctx context.Context, c *Client) error {
				hdr := map[string]string{"Content-Type": "application/xml"}
				_, respHdr, err := c.Expect(ctx, "LOCK", root+"/phantom.txt", exclusiveLockBody, hdr, http.StatusCreated)
				if err != nil {
					return err
				}
				t := strings.Trim(respHdr.Get("Lock-Token"), "<>")
				if t == "" {
					return fmt.Errorf("%w: lock-null grant without Lock-Token", ErrBadResponse)
				}
				_, _, err = c.Expect(ctx, "UNLOCK", root+"/phantom.txt", "", map[string]string{"Lock-Token": "<" + t + ">"}, http.StatusNoContent)
				return err
			}},
			{"cleanup", func(ctx context.Context, c *Client) error {
				_, _, err := c.Expect(ctx, http.MethodDelete, root+"/", "", nil, http.StatusNoContent)
				return err
			}},
		},
	}
}
