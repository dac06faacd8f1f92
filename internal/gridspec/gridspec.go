// Package gridspec parses the --grid argument. The one string means two
// different things: a bare name references a grid from the configuration,
// while a string with key=value pairs defines a new grid inline:
//
//	res=[10000,1000,100,10] srs=EPSG:4326 bbox=5,50,10,60
//
// Parse returns a tagged Spec so downstream code branches on the kind once
// and never re-inspects the string.
package gridspec

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/shlex"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
	"gopkg.in/yaml.v3"

	"github.com/tileexport/tileexportgo/internal/grid"
)

// Kind discriminates the two spec shapes.
type Kind int

const (
	// KindReference names a grid that must exist in the configuration.
	KindReference Kind = iota
	// KindInline carries a validated inline grid definition.
	KindInline
)

// Spec is a parsed --grid argument. Construct with Reference, Inline or Parse.
type Spec struct {
	kind Kind
	name string
	opts map[string]cty.Value
}

// Reference builds a spec naming an existing grid.
func Reference(name string) Spec {
	return Spec{kind: KindReference, name: name}
}

// Inline builds a spec from raw option values, validating them against the
// grid option schema first.
func Inline(raw map[string]any) (Spec, error) {
	opts, err := validateOptions(raw)
	if err != nil {
		return Spec{}, err
	}
	return Spec{kind: KindInline, opts: opts}, nil
}

// Kind returns the spec's discriminator.
func (s Spec) Kind() Kind { return s.kind }

// Name returns the referenced grid name. Only meaningful for KindReference.
func (s Spec) Name() string { return s.name }

// MalformedTokenError reports an inline token that does not match the
// key=value grammar, before any schema validation happens.
type MalformedTokenError struct {
	Token  string
	Reason string
}

func (e *MalformedTokenError) Error() string {
	return fmt.Sprintf("malformed grid token %q: %s", e.Token, e.Reason)
}

// InvalidDefinitionError reports schema violations of an inline definition,
// one message per violation.
type InvalidDefinitionError struct {
	Problems []string
}

func (e *InvalidDefinitionError) Error() string {
	return fmt.Sprintf("invalid grid definition: %s", strings.Join(e.Problems, "; "))
}

// Parse turns a --grid argument into a Spec. A string without any key=value
// pair is a reference to an existing grid; anything else is tokenized with
// shell-word rules and validated as an inline definition.
func Parse(definition string) (Spec, error) {
	if !strings.Contains(definition, "=") {
		return Reference(definition), nil
	}

	words, err := shlex.Split(definition)
	if err != nil {
		return Spec{}, &MalformedTokenError{Token: definition, Reason: err.Error()}
	}

	raw := map[string]any{}
	for _, word := range words {
		key, value, found := strings.Cut(word, "=")
		if !found || key == "" {
			return Spec{}, &MalformedTokenError{Token: word, Reason: "expected key=value"}
		}
		var parsed any
		if err := yaml.Unmarshal([]byte(value), &parsed); err != nil {
			return Spec{}, &MalformedTokenError{Token: word, Reason: fmt.Sprintf("unparsable value: %v", err)}
		}
		raw[key] = parsed
	}

	return Inline(raw)
}

// optionType declares the accepted type of a grid option, with an optional
// second accepted shape (bbox may be a string or a list of numbers).
type optionType struct {
	typ cty.Type
	alt cty.Type
}

// schema is the closed set of recognized grid options.
var schema = map[string]optionType{
	"name":       {typ: cty.String},
	"srs":        {typ: cty.String},
	"bbox":       {typ: cty.String, alt: cty.List(cty.Number)},
	"bbox_srs":   {typ: cty.String},
	"res":        {typ: cty.List(cty.Number)},
	"origin":     {typ: cty.String},
	"tile_size":  {typ: cty.List(cty.Number)},
	"num_levels": {typ: cty.Number},
	"min_res":    {typ: cty.Number},
	"max_res":    {typ: cty.Number},
}

func validateOptions(raw map[string]any) (map[string]cty.Value, error) {
	var problems []string
	opts := map[string]cty.Value{}

	keys := make([]string, 0, len(raw))
	for key := range raw {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		decl, ok := schema[key]
		if !ok {
			problems = append(problems, fmt.Sprintf("unknown option %q", key))
			continue
		}
		val, err := ctyValue(raw[key])
		if err != nil {
			problems = append(problems, fmt.Sprintf("option %q: %v", key, err))
			continue
		}
		converted, err := convert.Convert(val, decl.typ)
		if err != nil && decl.alt != cty.NilType {
			converted, err = convert.Convert(val, decl.alt)
		}
		if err != nil {
			problems = append(problems, fmt.Sprintf("option %q: %v", key, err))
			continue
		}
		// Conversion accepts any string and any number list for bbox;
		// the four-value shape is part of the schema too.
		if key == "bbox" {
			if _, err := bboxValues(converted); err != nil {
				problems = append(problems, fmt.Sprintf("option %q: %v", key, err))
				continue
			}
		}
		opts[key] = converted
	}

	if len(problems) > 0 {
		return nil, &InvalidDefinitionError{Problems: problems}
	}
	return opts, nil
}

// ctyValue converts a yaml-decoded scalar or sequence into a cty value.
func ctyValue(v any) (cty.Value, error) {
	switch v := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case string:
		return cty.StringVal(v), nil
	case bool:
		return cty.BoolVal(v), nil
	case int:
		return cty.NumberIntVal(int64(v)), nil
	case int64:
		return cty.NumberIntVal(v), nil
	case float64:
		return cty.NumberFloatVal(v), nil
	case []any:
		if len(v) == 0 {
			return cty.Value{}, fmt.Errorf("empty list")
		}
		elems := make([]cty.Value, len(v))
		for i, e := range v {
			elem, err := ctyValue(e)
			if err != nil {
				return cty.Value{}, err
			}
			elems[i] = elem
		}
		return cty.TupleVal(elems), nil
	default:
		return cty.Value{}, fmt.Errorf("unsupported value of type %T", v)
	}
}

// GridOptions converts an inline spec into grid options. The given name
// becomes the grid's registered name.
func (s Spec) GridOptions(name string) (grid.Options, error) {
	if s.kind != KindInline {
		return grid.Options{}, fmt.Errorf("grid spec %q is a reference, not an inline definition", s.name)
	}

	opts := grid.Options{Name: name}
	var err error
	for key, val := range s.opts {
		switch key {
		case "name":
			// Superseded by the synthetic name.
		case "srs":
			err = gocty.FromCtyValue(val, &opts.SRS)
		case "bbox":
			opts.BBox, err = bboxValues(val)
		case "bbox_srs":
			err = gocty.FromCtyValue(val, &opts.BBoxSRS)
		case "res":
			err = gocty.FromCtyValue(val, &opts.Res)
		case "origin":
			err = gocty.FromCtyValue(val, &opts.Origin)
		case "tile_size":
			err = gocty.FromCtyValue(val, &opts.TileSize)
		case "num_levels":
			err = gocty.FromCtyValue(val, &opts.NumLevels)
		case "min_res":
			err = gocty.FromCtyValue(val, &opts.MinRes)
		case "max_res":
			err = gocty.FromCtyValue(val, &opts.MaxRes)
		}
		if err != nil {
			return grid.Options{}, fmt.Errorf("option %q: %w", key, err)
		}
	}
	return opts, nil
}

// bboxValues accepts both bbox shapes: "5,50,10,60" and [5,50,10,60].
func bboxValues(val cty.Value) ([]float64, error) {
	if val.Type() == cty.String {
		var s string
		if err := gocty.FromCtyValue(val, &s); err != nil {
			return nil, err
		}
		return ParseBBoxString(s)
	}
	var bbox []float64
	if err := gocty.FromCtyValue(val, &bbox); err != nil {
		return nil, err
	}
	if len(bbox) != 4 {
		return nil, fmt.Errorf("bbox needs four values, got %d", len(bbox))
	}
	return bbox, nil
}

// ParseBBoxString parses the comma-separated bbox form used by bbox options
// and coverage arguments.
func ParseBBoxString(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("bbox needs four values, got %d", len(parts))
	}
	bbox := make([]float64, 4)
	for i, part := range parts {
		var v any
		if err := yaml.Unmarshal([]byte(strings.TrimSpace(part)), &v); err != nil {
			return nil, fmt.Errorf("bbox value %q: %w", part, err)
		}
		switch v := v.(type) {
		case int:
			bbox[i] = float64(v)
		case float64:
			bbox[i] = v
		default:
			return nil, fmt.Errorf("bbox value %q is not a number", part)
		}
	}
	return bbox, nil
}
