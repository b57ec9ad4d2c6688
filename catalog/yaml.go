package catalog

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"

	"github.com/joshuapare/flistkit/pkg/types"
)

// Extension is the YAML shape of a custom dictionary file:
//
//	fields:
//	  - name: C_FLD_REGION
//	    type: STR
//	    num: 10001
//	opcodes:
//	  - name: C_OP_REPRICE
//	    code: 10100
//	flags:
//	  C_OPFLG_DRY_RUN: 65536
type Extension struct {
	Fields []struct {
		Name string `yaml:"name"`
		Type string `yaml:"type"`
		Num  uint32 `yaml:"num"`
	} `yaml:"fields"`
	Opcodes []struct {
		Name string `yaml:"name"`
		Code int32  `yaml:"code"`
	} `yaml:"opcodes"`
	Flags map[string]uint32 `yaml:"flags"`
}

// LoadYAML registers every entry of an extension document.
func (c *Catalog) LoadYAML(data []byte) error {
	var ext Extension
	if err := yaml.Unmarshal(data, &ext); err != nil {
		return &types.Error{Kind: types.ErrKindValidation, Msg: "error decoding catalog extension", Err: err}
	}
	for _, f := range ext.Fields {
		kind, ok := types.ParseKind(f.Type)
		if !ok {
			return types.Errorf(types.ErrKindValidation, "field %s: unknown type %q", f.Name, f.Type)
		}
		if _, err := c.AddField(f.Name, kind, f.Num); err != nil {
			return err
		}
	}
	for _, op := range ext.Opcodes {
		if err := c.AddOpcode(op.Name, op.Code); err != nil {
			return err
		}
	}
	for name, v := range ext.Flags {
		c.AddFlag(name, v)
	}
	return nil
}

// LoadFile reads and registers a YAML extension file.
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	if err := c.LoadYAML(data); err != nil {
		return fmt.Errorf("catalog %s: %w", path, err)
	}
	return nil
}
