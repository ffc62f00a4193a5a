// Package handle provides exclusive ownership of a resource value.
//
// A [Handle] wraps a resource and enforces a single-borrow discipline:
// at most one live borrow exists at a time, and once the handle is
// dropped the resource is gone for good. Every mutation path must
// borrow the handle first, which guarantees at-most-one-writer without
// a general-purpose lock around the resource itself.
//
// Dropping is idempotent. The first drop runs the release function
// exactly once; later drops are no-ops so that cleanup paths can drop
// unconditionally.
//
// Example usage:
//
//	h := handle.Acquire(conn, func(c *Conn) { c.Close() })
//
//	c, err := h.Borrow()
//	if err != nil {
//	    return err
//	}
//	c.Write(data)
//	h.Release()
//
//	h.Drop()
package handle
