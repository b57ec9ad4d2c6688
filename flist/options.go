package flist

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/joshuapare/flistkit/catalog"
	"github.com/joshuapare/flistkit/internal/pinconf"
	"github.com/joshuapare/flistkit/pkg/types"
)

// DefaultProgram is the pin.conf program name the client reads entries for.
const DefaultProgram = "flistkit"

// Options configures a Client.
type Options struct {
	// Catalog resolves field names, opcodes and flags.
	// Default: catalog.Default()
	Catalog *catalog.Catalog

	// Limits bound the decoders used by FromString, FromXML and LoadFile.
	// Default: types.DefaultLimits()
	Limits types.Limits

	// Database overrides the database number reported by the connector.
	// Default: 0 (use the connector's, or pin.conf's userid entry)
	Database int64

	// PinConf is the path of a pin.conf file. When set, its userid entry
	// supplies the database number unless Database is set, and its loglevel
	// entry replaces LogLevel.
	// Default: "" (no pin.conf)
	PinConf string

	// Program selects program-specific pin.conf entries.
	// Default: DefaultProgram
	Program string

	// LogLevel is the engine log level (0 none, 1 error, 2 warning, 3 debug).
	// Default: 1
	LogLevel int

	// OpsPerSecond throttles opcode dispatch. Zero disables the limiter.
	// Default: 0
	OpsPerSecond float64

	// Burst is the limiter burst size when OpsPerSecond is set.
	// Default: 1
	Burst int

	// Latin1 stores STR values ISO-8859-1 encoded for engines configured
	// without UTF-8 support. Reads decode them back.
	// Default: false
	Latin1 bool
}

// DefaultOptions returns the options used when Open is given nil.
func DefaultOptions() *Options {
	return &Options{
		Catalog:  catalog.Default(),
		Limits:   types.DefaultLimits(),
		Program:  DefaultProgram,
		LogLevel: 1,
		Burst:    1,
	}
}

// fileOptions is the YAML shape read by LoadOptions:
//
//	pin_conf: ./pin.conf
//	program: rerate
//	database: 1
//	log_level: 3
//	ops_per_second: 50
//	burst: 5
//	latin1: false
//	catalog: ./custom_fields.yaml
//	limits:
//	  max_depth: 64
//	  max_fields: 1048576
//	  max_value_size: 1048576
type fileOptions struct {
	PinConf      string  `yaml:"pin_conf"`
	Program      string  `yaml:"program"`
	Database     int64   `yaml:"database"`
	LogLevel     *int    `yaml:"log_level"`
	OpsPerSecond float64 `yaml:"ops_per_second"`
	Burst        int     `yaml:"burst"`
	Latin1       bool    `yaml:"latin1"`
	Catalog      string  `yaml:"catalog"`
	Limits       struct {
		MaxDepth     int `yaml:"max_depth"`
		MaxFields    int `yaml:"max_fields"`
		MaxValueSize int `yaml:"max_value_size"`
	} `yaml:"limits"`
}

// LoadOptions reads client options from a YAML file. Unset keys keep their
// DefaultOptions values. A catalog entry names an extension file that is
// loaded on top of the built-in dictionary.
func LoadOptions(path string) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("options: %w", err)
	}
	var fo fileOptions
	if err := yaml.Unmarshal(data, &fo); err != nil {
		return nil, &types.Error{Kind: types.ErrKindValidation, Msg: "error decoding options " + path, Err: err}
	}

	opts := DefaultOptions()
	opts.PinConf = fo.PinConf
	opts.Database = fo.Database
	opts.OpsPerSecond = fo.OpsPerSecond
	opts.Latin1 = fo.Latin1
	if fo.Program != "" {
		opts.Program = fo.Program
	}
	if fo.LogLevel != nil {
		opts.LogLevel = *fo.LogLevel
	}
	if fo.Burst > 0 {
		opts.Burst = fo.Burst
	}
	if fo.Limits.MaxDepth > 0 {
		opts.Limits.MaxDepth = fo.Limits.MaxDepth
	}
	if fo.Limits.MaxFields > 0 {
		opts.Limits.MaxFields = fo.Limits.MaxFields
	}
	if fo.Limits.MaxValueSize > 0 {
		opts.Limits.MaxValueSize = fo.Limits.MaxValueSize
	}
	if fo.Catalog != "" {
		cat := catalog.Builtin()
		if err := cat.LoadFile(fo.Catalog); err != nil {
			return nil, err
		}
		opts.Catalog = cat
	}
	return opts, nil
}

// normalize fills zero values and applies pin.conf. It returns a copy.
func (o *Options) normalize() (*Options, error) {
	out := DefaultOptions()
	if o == nil {
		return out, nil
	}
	*out = *o
	if out.Catalog == nil {
		out.Catalog = catalog.Default()
	}
	if out.Limits == (types.Limits{}) {
		out.Limits = types.DefaultLimits()
	}
	if out.Program == "" {
		out.Program = DefaultProgram
	}
	if out.Burst <= 0 {
		out.Burst = 1
	}
	if out.PinConf == "" {
		return out, nil
	}

	conf, err := pinconf.Load(out.PinConf)
	if err != nil {
		return nil, &types.Error{Kind: types.ErrKindConnection, Msg: "missing or invalid pin.conf", Err: err}
	}
	if out.Database == 0 {
		if db, ok := conf.Database(out.Program); ok {
			out.Database = db
		}
	}
	if lvl, ok := conf.LogLevel(out.Program); ok {
		out.LogLevel = lvl
	}
	return out, nil
}
