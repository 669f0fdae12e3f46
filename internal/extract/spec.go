package extract

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sghaida/oderive/internal/schema"
)

// specFile is the YAML (or JSON) record description:
//
//	package: command
//	records:
//	  - name: Command
//	    derive: [builder, debug]
//	    fields:
//	      - name: args
//	        type: "[]string"
//	        annotations: ['builder(each = "arg")']
type specFile struct {
	Package string       `yaml:"package"`
	Imports []specImport `yaml:"imports"`
	Records []specRecord `yaml:"records"`
}

type specImport struct {
	Name string `yaml:"name"`
	Path string `yaml:"path"`
}

type specRecord struct {
	Name   yaml.Node   `yaml:"name"`
	Kind   string      `yaml:"kind"`
	Derive []string    `yaml:"derive"`
	Params []specParam `yaml:"params"`
	Fields []specField `yaml:"fields"`
}

type specParam struct {
	Name       string `yaml:"name"`
	Constraint string `yaml:"constraint"`
}

type specField struct {
	Name        yaml.Node   `yaml:"name"`
	Type        string      `yaml:"type"`
	Annotations []yaml.Node `yaml:"annotations"`
}

var specKinds = map[string]schema.Kind{
	"":           schema.KindStruct,
	"struct":     schema.KindStruct,
	"union":      schema.KindUnion,
	"positional": schema.KindPositional,
	"other":      schema.KindOther,
}

// Spec extracts records from a YAML or JSON spec file. A record without a
// derive list gets both protocols.
func Spec(path string, data []byte, log *zap.Logger) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var sf specFile
	if err := dec.Decode(&sf); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("extract: %s: empty spec", path)
		}
		return nil, fmt.Errorf("extract: decode %s: %w", path, err)
	}
	if !token.IsIdentifier(sf.Package) {
		return nil, fmt.Errorf("extract: %s: package %q is not a valid identifier", path, sf.Package)
	}

	out := &File{Path: path, Package: sf.Package}
	for _, imp := range sf.Imports {
		if imp.Path == "" {
			return nil, fmt.Errorf("extract: %s: import with empty path", path)
		}
		out.Imports = append(out.Imports, schema.Import{Name: imp.Name, Path: imp.Path})
	}

	for _, r := range sf.Records {
		td, err := specDescriptor(path, sf.Package, r)
		if err != nil {
			return nil, err
		}
		out.Records = append(out.Records, td)

		log.Debug("extracted record",
			zap.String("path", path),
			zap.String("record", td.Name),
			zap.Stringer("kind", td.Kind),
			zap.Int("fields", len(td.Fields)),
			zap.Int("params", len(td.Params)))
	}
	return out, nil
}

func specDescriptor(path, pkg string, r specRecord) (*schema.TypeDescriptor, error) {
	pos := nodePos(path, &r.Name)
	if r.Name.Value == "" {
		return nil, fmt.Errorf("extract: %s: record without a name", pos)
	}

	kind, ok := specKinds[r.Kind]
	if !ok {
		return nil, fmt.Errorf("extract: %s: record %q has unknown kind %q", pos, r.Name.Value, r.Kind)
	}

	td := &schema.TypeDescriptor{Package: pkg, Name: r.Name.Value, Kind: kind, Pos: pos}

	if len(r.Derive) == 0 {
		td.Derive = []schema.Protocol{schema.Builder, schema.Debug}
	}
	for _, d := range r.Derive {
		p, ok := schema.ParseProtocol(d)
		if !ok {
			return nil, fmt.Errorf("extract: %s: record %q: unknown protocol %q", pos, td.Name, d)
		}
		if !containsProtocol(td.Derive, p) {
			td.Derive = append(td.Derive, p)
		}
	}

	for _, p := range r.Params {
		gp := schema.GenericParam{Name: p.Name}
		if p.Constraint != "" {
			expr, err := parser.ParseExpr(p.Constraint)
			if err != nil {
				return nil, fmt.Errorf("extract: %s: record %q param %q constraint %q: %w", pos, td.Name, p.Name, p.Constraint, err)
			}
			gp.Constraint = expr
		}
		td.Params = append(td.Params, gp)
	}

	for _, f := range r.Fields {
		fpos := nodePos(path, &f.Name)
		expr, err := parseType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("extract: %s: field %q type %q: %w", fpos, f.Name.Value, f.Type, err)
		}
		fd := schema.FieldDescriptor{Name: f.Name.Value, Type: expr}
		for i := range f.Annotations {
			n := &f.Annotations[i]
			if n.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("extract: %s: field %q: annotation must be a string", nodePos(path, n), fd.Name)
			}
			pos := nodePos(path, n)
			if n.Style&(yaml.SingleQuotedStyle|yaml.DoubleQuotedStyle) != 0 {
				pos.Column++
			}
			fd.Annotations = append(fd.Annotations, schema.Annotation{Text: n.Value, Pos: pos})
		}
		td.Fields = append(td.Fields, fd)
	}
	return td, nil
}

func parseType(s string) (ast.Expr, error) {
	if strings.TrimSpace(s) == "" {
		return nil, errors.New("empty type")
	}
	return parser.ParseExpr(s)
}

func nodePos(path string, n *yaml.Node) token.Position {
	return token.Position{Filename: path, Line: n.Line, Column: n.Column}
}

// Load reads path and dispatches on its extension: .go files go through
// Source, .yaml, .yml and .json through Spec.
func Load(path string, log *zap.Logger) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}

	var f *File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		f, err = Source(path, data, log)
	case ".yaml", ".yml", ".json":
		f, err = Spec(path, data, log)
	default:
		return nil, fmt.Errorf("extract: %s: unsupported input, want .go, .yaml, .yml or .json", path)
	}
	if err != nil {
		return nil, err
	}
	f.Hash = SHA256Hex(data)
	return f, nil
}

// SHA256Hex returns the hex-encoded SHA-256 of b.
func SHA256Hex(b []byte) string {
	h := sha256.Sum256(b)
	return hex.EncodeToString(h[:])
}
