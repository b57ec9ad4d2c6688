// Package mmfile maps serialized flist files into memory for parsing.
package mmfile

import "fmt"

// With maps path, passes its contents to fn and unmaps it afterwards. fn
// must not retain data.
func With(path string, fn func(data []byte) error) error {
	data, cleanup, err := Map(path)
	if err != nil {
		return fmt.Errorf("mmfile: %w", err)
	}
	fnErr := fn(data)
	if err := cleanup(); err != nil && fnErr == nil {
		return fmt.Errorf("mmfile: unmap %s: %w", path, err)
	}
	return fnErr
}
