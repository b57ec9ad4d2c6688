// Package flist is a managed proxy layer over the billing engine's flist
// container.
//
// An flist lives in engine memory and follows the engine's ownership rules.
// The proxies in this package keep Go code and that memory consistent:
//
//   - A root *FList exclusively owns its container and destroys it when its
//     last reference is released.
//   - A child *FList aliases a sub-flist owned by an ancestor root. It holds a
//     reference on its parent, so a root cannot be destroyed while any child
//     is live. Parents see their children only through weak pointers. A
//     child collected without Release gives its parent reference back.
//   - At most one live child exists per coordinate (field, element id), so
//     asking for the same sub-flist twice returns the same proxy.
//   - Writes that would make the engine destroy memory a live child still
//     aliases first take that memory out and hand it to the child, which
//     becomes a root ("steal before overwrite").
//
// Proxies are reference counted explicitly. Every constructor and accessor
// returns a proxy holding one reference, which the caller must Release:
//
//	c, err := flist.Open(conn, api, nil)
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	f, err := c.New()
//	if err != nil {
//		return err
//	}
//	defer f.Release()
//
//	if err := f.SetPoid(catalog.PIN_FLD_POID, types.Poid{Database: 1, Type: "/account", ID: 1}); err != nil {
//		return err
//	}
//	out, err := f.Opcode(ctx, catalog.PCM_OP_READ_OBJ, 0)
//
// Thread safety: every Client and FList method takes the client's lock, so
// calls from several goroutines are serialized. Opcode releases the lock
// while the engine works. A proxy tree should still have a single logical
// owner; iterators observe concurrent mutation with undefined ordering.
package flist
