// Package pulfile reads and writes PULs and document states as JSON,
// YAML or CUE files.
//
// Input is first checked against an embedded CUE schema, so shape errors
// are reported with file positions before the PUL decoder sees the data.
package pulfile

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	cuejson "cuelang.org/go/encoding/json"
	cueyaml "cuelang.org/go/encoding/yaml"
	"gopkg.in/yaml.v3"

	"github.com/ldoblies/ijsoniq/internal/ir"
	"github.com/ldoblies/ijsoniq/internal/pul"
)

//go:embed schema.cue
var schemaCUE string

// Format is a file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
)

// FormatOf picks the format from a file extension. Unknown extensions
// and "-" (stdin) read as JSON.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".cue":
		return FormatCUE
	}
	return FormatJSON
}

// ParseFormat validates a format name given on the command line.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatJSON, FormatYAML, FormatCUE:
		return f, nil
	}
	return "", fmt.Errorf("unknown format %q (want json, yaml or cue)", s)
}

// Problem is one schema violation.
type Problem struct {
	Pos     token.Pos
	Message string
}

func (p Problem) String() string {
	if p.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", p.Pos.Filename(), p.Pos.Line(), p.Pos.Column(), p.Message)
	}
	return p.Message
}

// SchemaError lists every schema violation found in one file.
type SchemaError struct {
	File     string
	Problems []Problem
}

func (e *SchemaError) Error() string {
	if len(e.Problems) == 1 {
		return fmt.Sprintf("%s: invalid: %s", e.File, e.Problems[0])
	}
	lines := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		lines[i] = "  " + p.String()
	}
	return fmt.Sprintf("%s: %d problems:\n%s", e.File, len(e.Problems), strings.Join(lines, "\n"))
}

// Decoder parses and validates files against the embedded schema. A
// Decoder is not safe for concurrent use.
type Decoder struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewDecoder compiles the schema.
func NewDecoder() (*Decoder, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile pul schema: %w", err)
	}
	return &Decoder{ctx: ctx, schema: schema}, nil
}

// DecodePUL reads a raw (not yet normalized) PUL.
func (d *Decoder) DecodePUL(name string, data []byte, f Format) (*pul.PUL, error) {
	v, err := d.decode(name, data, f, "#PUL")
	if err != nil {
		return nil, err
	}
	p, err := pul.FromValue(v)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return p, nil
}

// DecodeState reads an object mapping collection names to documents.
func (d *Decoder) DecodeState(name string, data []byte, f Format) (map[string][]ir.Object, error) {
	v, err := d.decode(name, data, f, "#State")
	if err != nil {
		return nil, err
	}
	obj, ok := v.(ir.Object)
	if !ok {
		return nil, fmt.Errorf("%s: state must be an object", name)
	}
	out := make(map[string][]ir.Object, len(obj))
	for _, c := range obj.SortedKeys() {
		docs, ok := obj[c].(ir.Array)
		if !ok {
			return nil, fmt.Errorf("%s: collection %q must be a list", name, c)
		}
		for i, raw := range docs {
			doc, ok := raw.(ir.Object)
			if !ok {
				return nil, fmt.Errorf("%s: %s[%d] must be an object", name, c, i)
			}
			out[c] = append(out[c], doc)
		}
	}
	return out, nil
}

// Validate checks data against the PUL schema without decoding it.
func (d *Decoder) Validate(name string, data []byte, f Format) error {
	_, err := d.decode(name, data, f, "#PUL")
	return err
}

func (d *Decoder) decode(name string, data []byte, f Format, def string) (ir.Value, error) {
	v, err := d.build(name, data, f)
	if err != nil {
		return nil, err
	}
	if err := d.schema.LookupPath(cue.ParsePath(def)).Unify(v).Validate(cue.Concrete(true)); err != nil {
		return nil, schemaError(name, err)
	}
	raw, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	out, err := ir.ParseJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

func (d *Decoder) build(name string, data []byte, f Format) (cue.Value, error) {
	var v cue.Value
	switch f {
	case FormatJSON:
		expr, err := cuejson.Extract(name, data)
		if err != nil {
			return cue.Value{}, schemaError(name, err)
		}
		v = d.ctx.BuildExpr(expr)
	case FormatYAML:
		file, err := cueyaml.Extract(name, data)
		if err != nil {
			return cue.Value{}, schemaError(name, err)
		}
		v = d.ctx.BuildFile(file)
	case FormatCUE:
		v = d.ctx.CompileBytes(data, cue.Filename(name))
	default:
		return cue.Value{}, fmt.Errorf("%s: unknown format %q", name, f)
	}
	if err := v.Err(); err != nil {
		return cue.Value{}, schemaError(name, err)
	}
	return v, nil
}

func schemaError(name string, err error) error {
	se := &SchemaError{File: name}
	for _, e := range cueerrors.Errors(err) {
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)
		if path := e.Path(); len(path) > 0 {
			msg = strings.Join(path, ".") + ": " + msg
		}
		se.Problems = append(se.Problems, Problem{Pos: e.Position(), Message: msg})
	}
	if len(se.Problems) == 0 {
		se.Problems = []Problem{{Message: err.Error()}}
	}
	return se
}

// ReadPUL reads and decodes a PUL file; "-" reads stdin.
func (d *Decoder) ReadPUL(path string, stdin io.Reader) (*pul.PUL, error) {
	data, err := readFile(path, stdin)
	if err != nil {
		return nil, err
	}
	return d.DecodePUL(path, data, FormatOf(path))
}

// ReadState reads and decodes a state file; "-" reads stdin.
func (d *Decoder) ReadState(path string, stdin io.Reader) (map[string][]ir.Object, error) {
	data, err := readFile(path, stdin)
	if err != nil {
		return nil, err
	}
	return d.DecodeState(path, data, FormatOf(path))
}

func readFile(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}

// Encode writes v in format f. JSON output is canonical; YAML output
// has sorted keys.
func Encode(w io.Writer, v ir.Value, f Format) error {
	var out []byte
	var err error
	switch f {
	case FormatJSON:
		out, err = ir.MarshalCanonical(v)
		out = append(out, '\n')
	case FormatYAML:
		out, err = yaml.Marshal(ir.ToAny(v))
	default:
		return fmt.Errorf("cannot encode as %q", f)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

// EncodePUL writes p in format f. A poisoned PUL is an error.
func EncodePUL(w io.Writer, p *pul.PUL, f Format) error {
	if err := p.Err(); err != nil {
		return err
	}
	return Encode(w, p.ToValue(), f)
}
