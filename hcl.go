// FILE: lixenwraith/config/hcl.go
package config

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// HCLSource flattens an HCL native-syntax file. Block labels play the role
// of the XML Name attribute:
//
//	data "inventory" {
//	  provider = "MySql"
//	}
//
// yields data:inventory:provider = MySql. Expressions are evaluated without
// variables or functions.
type HCLSource struct {
	baseSource
	filePath string
	reader   io.Reader
	data     []byte
}

// NewHCLFileSource creates a source backed by an HCL file
func NewHCLFileSource(path string) (*HCLSource, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: file path must be a non-empty string", ErrInvalidArgument)
	}
	s := &HCLSource{filePath: path}
	s.setup(SourceHCL, path)
	return s, nil
}

// NewHCLSource creates a source reading r on the first Load
func NewHCLSource(r io.Reader) *HCLSource {
	s := &HCLSource{reader: r}
	s.setup(SourceHCL, "")
	return s
}

// Load reads and flattens the document
func (s *HCLSource) Load() error {
	if s.filePath != "" {
		data, err := readConfigFile(s.filePath)
		if err != nil {
			return err
		}
		return s.loadBytes(data, s.filePath)
	}

	if s.data == nil {
		if s.reader == nil {
			return fmt.Errorf("%w: HCL source has no input", ErrInvalidArgument)
		}
		data, err := io.ReadAll(s.reader)
		if err != nil {
			return fmt.Errorf("failed to read HCL stream: %w", err)
		}
		s.data = data
	}
	return s.loadBytes(s.data, "config.hcl")
}

func (s *HCLSource) loadBytes(data []byte, filename string) error {
	store, err := flattenHCL(data, filename)
	if err != nil {
		if s.filePath != "" {
			return fmt.Errorf("failed to parse HCL config file '%s': %w", s.filePath, err)
		}
		return err
	}
	s.publish(store)
	return nil
}

func flattenHCL(data []byte, filename string) (*Store, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %w", ErrFormat, diags)
	}

	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected HCL body type %T", ErrFormat, file.Body)
	}

	store := NewStore()
	if err := flattenHCLBody(store, "", body); err != nil {
		return nil, err
	}
	return store, nil
}

func flattenHCLBody(store *Store, prefix string, body *hclsyntax.Body) error {
	// Attributes come as a map; walk them in source order
	attrs := make([]*hclsyntax.Attribute, 0, len(body.Attributes))
	for _, attr := range body.Attributes {
		attrs = append(attrs, attr)
	}
	sort.Slice(attrs, func(i, j int) bool {
		return attrs[i].SrcRange.Start.Byte < attrs[j].SrcRange.Start.Byte
	})

	for _, attr := range attrs {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return fmt.Errorf("%w: %w", ErrFormat, diags)
		}
		if err := flattenCty(store, CombinePath(prefix, attr.Name), val, attr.NameRange); err != nil {
			return err
		}
	}

	for _, block := range body.Blocks {
		segments := append([]string{prefix, block.Type}, block.Labels...)
		if err := flattenHCLBody(store, CombinePath(segments...), block.Body); err != nil {
			return err
		}
	}
	return nil
}

// flattenCty expands collections into indexed or keyed segments and
// converts primitives to their string form
func flattenCty(store *Store, path string, val cty.Value, rng hcl.Range) error {
	if !val.IsWhollyKnown() {
		return atLine(rng.Start.Line, rng.Start.Column, fmt.Errorf("%w: value of %q is not known", ErrFormat, path))
	}

	ty := val.Type()
	switch {
	case val.IsNull():
		return addHCL(store, path, "", rng)

	case ty.IsObjectType() || ty.IsMapType():
		for it := val.ElementIterator(); it.Next(); {
			k, v := it.Element()
			if err := flattenCty(store, CombinePath(path, k.AsString()), v, rng); err != nil {
				return err
			}
		}
		return nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		i := 0
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			if err := flattenCty(store, CombinePath(path, strconv.Itoa(i)), v, rng); err != nil {
				return err
			}
			i++
		}
		return nil
	}

	str, err := convert.Convert(val, cty.String)
	if err != nil {
		return atLine(rng.Start.Line, rng.Start.Column, fmt.Errorf("%w: %q: %w", ErrFormat, path, err))
	}
	return addHCL(store, path, str.AsString(), rng)
}

func addHCL(store *Store, path, value string, rng hcl.Range) error {
	if existing, conflict := store.Add(path, value); conflict && existing != value {
		return atLine(rng.Start.Line, rng.Start.Column, duplicateKeyError(path))
	}
	return nil
}
