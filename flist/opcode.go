package flist

import (
	"context"
	"time"

	"github.com/joshuapare/flistkit/internal/logger"
	"github.com/joshuapare/flistkit/native"
	"github.com/joshuapare/flistkit/pkg/types"
)

// Opcode runs opcode on the engine with a copy of f as input and returns
// the output flist as a new root. The client lock is released while the
// engine works; ctx bounds only the wait for the client's rate limiter.
func (f *FList) Opcode(ctx context.Context, opcode int32, flags uint32) (*FList, error) {
	return f.dispatch(ctx, opcode, flags, false)
}

// OpcodeByRef is Opcode with f passed by reference: the engine may modify
// f while it works, and f reflects those changes afterwards.
func (f *FList) OpcodeByRef(ctx context.Context, opcode int32, flags uint32) (*FList, error) {
	return f.dispatch(ctx, opcode, flags, true)
}

// OpcodeByName resolves opcode through the client's catalog and runs it.
func (f *FList) OpcodeByName(ctx context.Context, opcode string, flags uint32) (*FList, error) {
	code, ok := f.c.names.Opcode(opcode)
	if !ok {
		return nil, types.Errorf(types.ErrKindNotFound, "no opcode found for %s", opcode)
	}
	return f.Opcode(ctx, code, flags)
}

func (f *FList) dispatch(ctx context.Context, opcode int32, flags uint32, byRef bool) (*FList, error) {
	c := f.c
	c.mu.Lock()
	if err := f.usable(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if c.session == nil {
		c.mu.Unlock()
		return nil, types.ErrClosed
	}
	sess, in, name := c.session, f.ref, c.opcodeName(opcode)
	// Hold f so its container outlives the unlocked section.
	f.refs++
	c.mu.Unlock()

	var eb native.ErrBuf
	var out native.Ref
	var waitErr error
	start := time.Now()
	if c.limiter != nil {
		waitErr = c.limiter.Wait(ctx)
	}
	if waitErr == nil {
		out = sess.Op(opcode, flags, in, byRef, &eb)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	f.release()
	if waitErr != nil {
		return nil, &types.Error{Kind: types.ErrKindState, Msg: "opcode " + name + " not sent", Err: waitErr}
	}
	logger.Debug("flist: opcode", "opcode", name, "flags", flags, "by_ref", byRef,
		"elapsed", time.Since(start), "client", c.id)
	if err := c.consume(&eb, "Error calling "+name); err != nil {
		return nil, err
	}
	if out == 0 {
		return nil, nil
	}
	return c.root(out), nil
}
