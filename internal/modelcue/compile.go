// Package modelcue compiles CUE model declarations into model
// descriptors. A declaration names a model type, an optional path
// group, and its attribute schema:
//
//	model: User: {
//	    group: "accounts"
//	    attr: {
//	        name:    "string"
//	        age:     "int"
//	        admin:   "bool"
//	        created: "time"
//	    }
//	}
package modelcue

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/firemap/internal/model"
)

// CompileModel parses a CUE value into a model descriptor.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the model struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`model: User: { attr: { name: "string" } }`)
//	desc, err := CompileModel(v.LookupPath(cue.ParsePath("model.User")))
func CompileModel(v cue.Value) (*model.Descriptor, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	desc := &model.Descriptor{Schema: make(map[string]model.Attribute)}

	// Model name comes from the struct label (the path selector).
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		desc.Name = labels[len(labels)-1].String()
	}
	if desc.Name == "" {
		return nil, &CompileError{
			Field:   "model",
			Message: "model name is required",
			Pos:     v.Pos(),
		}
	}

	// Group is optional.
	groupVal := v.LookupPath(cue.ParsePath("group"))
	if groupVal.Exists() {
		group, err := groupVal.String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		desc.Group = group
	}

	// Attributes (required, at least one).
	attrVal := v.LookupPath(cue.ParsePath("attr"))
	if !attrVal.Exists() {
		return nil, &CompileError{
			Field:   "attr",
			Message: "at least one attribute is required",
			Pos:     v.Pos(),
		}
	}

	iter, err := attrVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		attrName := iter.Label()
		typeName, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		attr, err := attributeFor(attrName, typeName, iter.Value().Pos())
		if err != nil {
			return nil, err
		}
		desc.Schema[attrName] = attr
	}
	if len(desc.Schema) == 0 {
		return nil, &CompileError{
			Field:   "attr",
			Message: "at least one attribute is required",
			Pos:     attrVal.Pos(),
		}
	}

	return desc, nil
}

// attributeFor maps a declared type name to its handler.
func attributeFor(name, typeName string, pos token.Pos) (model.Attribute, error) {
	switch typeName {
	case "string":
		return model.StringAttribute{Key: name}, nil
	case "int":
		return model.IntAttribute{Key: name}, nil
	case "bool":
		return model.BoolAttribute{Key: name}, nil
	case "time":
		return model.TimeAttribute{Key: name}, nil
	default:
		return nil, &CompileError{
			Field:   fmt.Sprintf("attr.%s", name),
			Message: fmt.Sprintf("unsupported attribute type %q (want string, int, bool, or time)", typeName),
			Pos:     pos,
		}
	}
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
