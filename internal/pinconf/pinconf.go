// Package pinconf reads engine configuration files (pin.conf).
//
// Each entry line has the form
//
//	- <program> <key> <value>...
//
// where program "-" applies to every program. Lines that do not start with
// "-" are ignored, which is how the engine treats comments.
package pinconf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/joshuapare/flistkit/pkg/types"
)

// FileName is the conventional configuration file name.
const FileName = "pin.conf"

// AnyProgram is the program column that matches every program.
const AnyProgram = "-"

// Entry is one configuration line.
type Entry struct {
	Program string
	Key     string
	Values  []string
	Line    int
}

// Config is a parsed pin.conf.
type Config struct {
	Entries []Entry
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse reads configuration entries from r.
func Parse(r io.Reader) (*Config, error) {
	cfg := &Config{}
	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		n++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || fields[0] != "-" {
			continue
		}
		if len(fields) < 3 {
			return nil, types.Errorf(types.ErrKindValidation, "pin.conf line %d: expected '- program key value'", n)
		}
		cfg.Entries = append(cfg.Entries, Entry{Program: fields[1], Key: fields[2], Values: fields[3:], Line: n})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Values returns the values of the first entry for program and key. Entries
// naming the program are preferred over "-" entries.
func (c *Config) Values(program, key string) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	var fallback *Entry
	for i := range c.Entries {
		e := &c.Entries[i]
		if e.Key != key {
			continue
		}
		if e.Program == program {
			return e.Values, true
		}
		if e.Program == AnyProgram && fallback == nil {
			fallback = e
		}
	}
	if fallback != nil {
		return fallback.Values, true
	}
	return nil, false
}

// Get returns the value of key for program, its values joined by a space.
func (c *Config) Get(program, key string) (string, bool) {
	vals, ok := c.Values(program, key)
	if !ok {
		return "", false
	}
	return strings.Join(vals, " "), true
}

// Int returns an integer-valued entry.
func (c *Config) Int(program, key string) (int, bool) {
	s, ok := c.Get(program, key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Database returns the database number of the userid entry
// ("- - userid 0.0.0.1 /service/pcm_client 1").
func (c *Config) Database(program string) (int64, bool) {
	s, ok := c.Get(program, "userid")
	if !ok {
		return 0, false
	}
	p, err := types.ParsePoid(s, 0)
	if err != nil {
		return 0, false
	}
	return p.Database, true
}

// LogLevel returns the engine log level (0 to 3).
func (c *Config) LogLevel(program string) (int, bool) {
	return c.Int(program, "loglevel")
}
