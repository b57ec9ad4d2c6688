package flist

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/joshuapare/flistkit/catalog"
	"github.com/joshuapare/flistkit/internal/flisttext"
	"github.com/joshuapare/flistkit/internal/format"
	"github.com/joshuapare/flistkit/internal/logger"
	"github.com/joshuapare/flistkit/internal/mmfile"
	"github.com/joshuapare/flistkit/internal/writer"
	"github.com/joshuapare/flistkit/native"
	"github.com/joshuapare/flistkit/pkg/types"
)

// Client is a connection to the engine together with the error slot every
// native call reports through. Flists belong to the client that created
// them and cannot be mixed across clients.
type Client struct {
	mu sync.Mutex // host execution lock; guards everything below and every proxy

	api       native.API
	connector native.Connector
	session   native.Session
	eb        native.ErrBuf

	names    *catalog.Catalog
	opts     *Options
	database int64
	id       uuid.UUID
	limiter  *rate.Limiter
	tx       *Transaction
}

// New returns a client that is not yet connected. Flists can be built and
// serialized without a connection; only Opcode needs one.
func New(conn native.Connector, api native.API, opts *Options) (*Client, error) {
	if api == nil {
		return nil, types.Errorf(types.ErrKindValidation, "nil native API")
	}
	o, err := opts.normalize()
	if err != nil {
		return nil, err
	}
	c := &Client{
		api:       api,
		connector: conn,
		names:     o.Catalog,
		opts:      o,
		database:  o.Database,
		id:        uuid.New(),
	}
	if c.database == 0 {
		c.database = 1
	}
	if o.OpsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(o.OpsPerSecond), o.Burst)
	}
	return c, nil
}

// Open returns a connected client.
func Open(conn native.Connector, api native.API, opts *Options) (*Client, error) {
	c, err := New(conn, api, opts)
	if err != nil {
		return nil, err
	}
	if err := c.Connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// Connect opens the engine session. Connecting an open client is a no-op.
func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return nil
	}
	if c.connector == nil {
		return types.Errorf(types.ErrKindConnection, "no connector configured")
	}
	sess, db := c.connector.Connect(&c.eb)
	if c.eb.IsErr() {
		err := c.check("Error connecting to CM")
		return &types.Error{Kind: types.ErrKindConnection, Msg: "connect failed", Err: err}
	}
	c.session = sess
	if c.opts.Database == 0 && db != 0 {
		c.database = db
	}
	logger.Info("flist: client connected", "client", c.id, "database", c.database)
	return nil
}

// Close rolls back an open transaction and closes the session. Flists stay
// usable; only opcodes need the connection.
func (c *Client) Close() error {
	c.mu.Lock()
	tx := c.tx
	c.mu.Unlock()
	var txErr error
	if tx != nil {
		txErr = tx.Rollback(context.Background())
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return txErr
	}
	c.session.Close(&c.eb)
	c.session = nil
	if err := c.check("Error closing connection"); err != nil {
		return &types.Error{Kind: types.ErrKindConnection, Msg: "close failed", Err: err}
	}
	logger.Info("flist: client closed", "client", c.id)
	return txErr
}

// IsOpen reports whether the client holds an engine session.
func (c *Client) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

// Database is the database number used for poids given without one.
func (c *Client) Database() int64 { return c.database }

// ID identifies the client in log records.
func (c *Client) ID() uuid.UUID { return c.id }

// Catalog returns the field catalog the client resolves names with.
func (c *Client) Catalog() *catalog.Catalog { return c.names }

// LogLevel returns the engine log level from the options or pin.conf.
func (c *Client) LogLevel() int { return c.opts.LogLevel }

// Field resolves a field name or number through the client's catalog.
func (c *Client) Field(ident string) (types.FieldID, error) {
	return c.names.Field(ident)
}

// check consumes the error slot: it logs the error, converts it and
// resets the slot. It returns nil when the slot is clear.
func (c *Client) check(msg string) error {
	return c.consume(&c.eb, msg)
}

func (c *Client) consume(eb *native.ErrBuf, msg string) error {
	if !eb.IsErr() {
		return nil
	}
	ne := &types.NativeError{
		Msg:      msg,
		Location: eb.Location.String(),
		Class:    eb.Class.String(),
		Code:     eb.Code.String(),
	}
	if eb.Field != 0 {
		ne.Field = c.names.DisplayName(eb.Field)
	}
	logger.Error("flist: native error", "msg", msg, "location", ne.Location,
		"class", ne.Class, "code", ne.Code, "field", ne.Field, "detail", eb.Detail, "client", c.id)
	eb.Reset()
	return ne
}

// root wraps ref in a new root proxy holding one reference.
func (c *Client) root(ref native.Ref) *FList {
	return &FList{c: c, ref: ref, refs: 1}
}

// New creates an empty flist.
func (c *Client) New() (*FList, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref := c.api.Create(&c.eb)
	if err := c.check("Error creating flist"); err != nil {
		return nil, err
	}
	return c.root(ref), nil
}

// Attach wraps an existing engine flist. With copy set the proxy owns a
// copy and the caller keeps ref; otherwise the proxy takes ownership of ref.
func (c *Client) Attach(ref native.Ref, copy bool) (*FList, error) {
	if ref == 0 {
		return nil, types.ErrNoContainer
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if copy {
		ref = c.api.Copy(ref, &c.eb)
		if err := c.check("Error copying flist"); err != nil {
			return nil, err
		}
	}
	return c.root(ref), nil
}

// FromString parses the engine's detail text.
func (c *Client) FromString(s string) (*FList, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref := c.api.FromString(s, c.database, &c.eb)
	if err := c.check("Error converting string to flist"); err != nil {
		return nil, err
	}
	return c.root(ref), nil
}

// FromCompact parses the compact string form.
func (c *Client) FromCompact(s string) (*FList, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref := c.api.FromCompact(s, &c.eb)
	if err := c.check("Error converting compact string to flist"); err != nil {
		return nil, err
	}
	return c.root(ref), nil
}

// FromXML parses any of the engine's XML styles.
func (c *Client) FromXML(s string) (*FList, error) {
	rec, err := flisttext.ParseXML(strings.NewReader(s), c.names, c.parseOptions())
	if err != nil {
		return nil, err
	}
	return c.FromRecord(rec)
}

// Decode parses data in any serialized form: JSON, XML, compact or detail
// text.
func (c *Client) Decode(data []byte) (*FList, error) {
	switch flisttext.Sniff(data) {
	case flisttext.EncodingJSON:
		return c.FromJSON(data)
	case flisttext.EncodingXML:
		rec, err := flisttext.ParseXML(bytes.NewReader(data), c.names, c.parseOptions())
		if err != nil {
			return nil, err
		}
		return c.FromRecord(rec)
	case flisttext.EncodingCompact:
		return c.FromCompact(strings.TrimSpace(string(data)))
	}
	return c.FromString(string(data))
}

// LoadFile reads a serialized flist from disk.
func (c *Client) LoadFile(path string) (*FList, error) {
	var f *FList
	err := mmfile.With(path, func(data []byte) error {
		var err error
		f, err = c.Decode(data)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return f, nil
}

// SaveFile writes f to path atomically. The extension picks the form:
// .json, .xml and .compact; anything else gets detail text.
func (f *FList) SaveFile(path string) error {
	var (
		s   string
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		s, err = f.JSON()
	case ".xml":
		s, err = f.XML(0, "")
	case ".compact":
		s, err = f.Compact()
	default:
		s, err = f.Text()
	}
	if err != nil {
		return err
	}
	w := &writer.FileWriter{Path: path}
	if err := w.WriteFList([]byte(s)); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	return nil
}

// FromRecord stores a detached record in a new engine flist.
func (c *Client) FromRecord(rec *format.Record) (*FList, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref, err := c.build(rec)
	if err != nil {
		return nil, err
	}
	return c.root(ref), nil
}

// build hands rec to the engine through its compact decoder.
func (c *Client) build(rec *format.Record) (native.Ref, error) {
	if rec == nil {
		rec = &format.Record{}
	}
	ref := c.api.FromCompact(flisttext.RenderCompact(rec), &c.eb)
	if err := c.check("Error building flist"); err != nil {
		return 0, err
	}
	return ref, nil
}

func (c *Client) parseOptions() flisttext.ParseOptions {
	limits := c.opts.Limits
	return flisttext.ParseOptions{Database: c.database, Limits: &limits}
}

func (c *Client) opcodeName(code int32) string {
	if name, ok := c.names.OpcodeName(code); ok {
		return name
	}
	return fmt.Sprint(code)
}
