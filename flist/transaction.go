package flist

import (
	"context"

	"github.com/google/uuid"

	"github.com/joshuapare/flistkit/catalog"
	"github.com/joshuapare/flistkit/internal/logger"
	"github.com/joshuapare/flistkit/pkg/types"
)

// Transaction is an engine transaction opened with Client.Begin. A client
// has at most one open transaction.
//
//	tx, err := c.Begin(ctx, poid)
//	if err != nil {
//		return err
//	}
//	defer tx.Rollback(ctx)
//	...
//	return tx.Commit(ctx)
type Transaction struct {
	c    *Client
	id   uuid.UUID
	poid types.Poid
	out  *FList // TRANS_OPEN output; nil once finished
}

// Begin opens a transaction on poid. Flags are ORed together and default
// to PCM_TRANS_OPEN_READWRITE.
func (c *Client) Begin(ctx context.Context, poid types.Poid, flags ...uint32) (*Transaction, error) {
	c.mu.Lock()
	if c.tx != nil {
		c.mu.Unlock()
		return nil, types.ErrTxOpen
	}
	c.mu.Unlock()

	var fl uint32
	if len(flags) == 0 {
		fl = catalog.PCM_TRANS_OPEN_READWRITE
	}
	for _, f := range flags {
		fl |= f
	}

	in, err := c.New()
	if err != nil {
		return nil, err
	}
	defer in.Release()
	if err := in.SetPoid(catalog.PIN_FLD_POID, poid); err != nil {
		return nil, err
	}
	out, err := in.Opcode(ctx, catalog.PCM_OP_TRANS_OPEN, fl)
	if err != nil {
		return nil, err
	}

	tx := &Transaction{c: c, id: uuid.New(), poid: poid, out: out}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tx != nil {
		// Another goroutine won the race; the engine rejects nesting, so
		// this is reached only with a misbehaving session.
		out.release()
		return nil, types.ErrTxOpen
	}
	c.tx = tx
	logger.Info("flist: transaction opened", "tx", tx.id, "poid", poid.String(), "client", c.id)
	return tx, nil
}

// ID identifies the transaction in log records.
func (t *Transaction) ID() uuid.UUID { return t.id }

// IsOpen reports whether the transaction still needs a commit or rollback.
func (t *Transaction) IsOpen() bool {
	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	return t.out != nil
}

// Commit commits the transaction. Committing a finished transaction fails
// with types.ErrNoTx.
func (t *Transaction) Commit(ctx context.Context) error {
	return t.finish(ctx, catalog.PCM_OP_TRANS_COMMIT, "committed", true)
}

// Rollback aborts the transaction. Rolling back a finished transaction is
// a no-op, so it is safe to defer.
func (t *Transaction) Rollback(ctx context.Context) error {
	return t.finish(ctx, catalog.PCM_OP_TRANS_ABORT, "rolled back", false)
}

// finish sends opcode and ends the transaction whether or not it succeeds.
func (t *Transaction) finish(ctx context.Context, opcode int32, what string, strict bool) error {
	c := t.c
	c.mu.Lock()
	out := t.out
	t.out = nil
	if c.tx == t {
		c.tx = nil
	}
	c.mu.Unlock()
	if out == nil {
		if strict {
			return types.ErrNoTx
		}
		return nil
	}
	defer out.Release()

	res, err := out.Opcode(ctx, opcode, 0)
	if err != nil {
		logger.Warn("flist: transaction end failed", "tx", t.id, "error", err, "client", c.id)
		return err
	}
	res.Release()
	logger.Info("flist: transaction "+what, "tx", t.id, "client", c.id)
	return nil
}
