// Package migrationfile reads migration definitions from YAML.
//
//	operation: update
//	select:
//	  query: SELECT * FROM items WHERE type = $type
//	  vars: {type: appProductsByDay}
//	transform:
//	  - increment: {field: count, by: 1}
//	inverse:
//	  - increment: {field: count, by: -1}
package migrationfile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/surrealdb/surrealmigrate"
	"github.com/surrealdb/surrealmigrate/pkg/backup"
	"github.com/surrealdb/surrealmigrate/pkg/models"
	"github.com/surrealdb/surrealmigrate/pkg/source"
	"github.com/surrealdb/surrealmigrate/pkg/store"
	"github.com/surrealdb/surrealmigrate/pkg/transform"
)

var (
	ErrMissingInput  = errors.New("create needs an input")
	ErrEmptyStep     = errors.New("step names no action")
	ErrAmbiguousStep = errors.New("step names more than one action")
	ErrUnknownInput  = errors.New("unknown input type")
	ErrUnknownKind   = errors.New("unknown conversion kind")

	ErrPartitionKeyMismatch = errors.New("partition key field does not match the configured partition key")
)

// Definition is the YAML form of a migration.
type Definition struct {
	Operation    string        `yaml:"operation"`
	Select       store.Query   `yaml:"select"`
	Transform    []Step        `yaml:"transform,omitempty"`
	Inverse      []Step        `yaml:"inverse,omitempty"`
	PartitionKey *PartitionKey `yaml:"partitionKey,omitempty"`
	Input        *Input        `yaml:"input,omitempty"`
	// GenerateIDs assigns ids to created documents that have none.
	// Defaults to true.
	GenerateIDs *bool `yaml:"generateIds,omitempty"`

	dir string
}

// PartitionKey configures how deletes are addressed. Field, when set,
// must name the configured partition key; Default is used for documents
// that lack it.
type PartitionKey struct {
	Field   string `yaml:"field"`
	Default string `yaml:"default"`
}

// Input is where a create reads its documents.
type Input struct {
	// Type is json, csv, backup or store.
	Type      string           `yaml:"type"`
	Path      string           `yaml:"path,omitempty"`
	Documents []map[string]any `yaml:"documents,omitempty"`
	CSV       CSVInput         `yaml:"csv,omitempty"`
	Query     *store.Query     `yaml:"query,omitempty"`
	// SkipVerify reads a backup without checking it against its manifest.
	SkipVerify bool `yaml:"skipVerify,omitempty"`
	// Map runs on every input document before it is created.
	Map []Step `yaml:"map,omitempty"`
}

type CSVInput struct {
	Separator string   `yaml:"separator,omitempty"`
	Headers   []string `yaml:"headers,omitempty"`
	SkipLines int      `yaml:"skipLines,omitempty"`
	Strict    bool     `yaml:"strict,omitempty"`
}

// Step is one transform action. Exactly one field must be set.
type Step struct {
	Set       *SetStep       `yaml:"set,omitempty"`
	Unset     *FieldStep     `yaml:"unset,omitempty"`
	Increment *IncrementStep `yaml:"increment,omitempty"`
	Rename    *MoveStep      `yaml:"rename,omitempty"`
	Copy      *MoveStep      `yaml:"copy,omitempty"`
	Convert   *ConvertStep   `yaml:"convert,omitempty"`
}

type SetStep struct {
	Field string `yaml:"field"`
	Value any    `yaml:"value"`
}

type FieldStep struct {
	Field string `yaml:"field"`
}

type IncrementStep struct {
	Field string  `yaml:"field"`
	By    float64 `yaml:"by"`
}

type MoveStep struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

type ConvertStep struct {
	Field string `yaml:"field"`
	To    string `yaml:"to"`
}

// Load reads the definition at path. Relative input paths are resolved
// against the directory of path.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration file: %w", err)
	}
	d, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	d.dir = filepath.Dir(path)
	return d, nil
}

// Parse decodes a definition. Unknown keys are rejected.
func Parse(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var d Definition
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to parse migration file: %w", err)
	}
	return &d, nil
}

// Options carry what a definition needs from the run configuration.
type Options struct {
	// PartitionKey is the field the target store addresses deletes by.
	// Empty means the container is not partitioned.
	PartitionKey string
	// Source backs inputs of type store.
	Source store.Finder
}

// Validate builds the definition without connecting anywhere.
func (d *Definition) Validate(partitionKey string) error {
	_, err := d.Build(Options{PartitionKey: partitionKey})
	return err
}

// Plan returns a PlanFunc building d against the connected source.
func (d *Definition) Plan(partitionKey string) surrealmigrate.PlanFunc {
	return func(_ context.Context, finder store.Finder) (surrealmigrate.Migration, error) {
		return d.Build(Options{PartitionKey: partitionKey, Source: finder})
	}
}

// Build turns d into a validated migration.
func (d *Definition) Build(opts Options) (surrealmigrate.Migration, error) {
	op, err := surrealmigrate.ParseOperationType(d.Operation)
	if err != nil {
		return nil, err
	}

	var m surrealmigrate.Migration
	switch op {
	case surrealmigrate.OperationCreate:
		m, err = d.buildCreate(opts)
	case surrealmigrate.OperationUpdate:
		m, err = d.buildUpdate()
	case surrealmigrate.OperationDelete:
		m, err = d.buildDelete(opts)
	}
	if err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func (d *Definition) buildCreate(opts Options) (*surrealmigrate.CreateMigration, error) {
	if d.Input == nil {
		return nil, ErrMissingInput
	}
	src, err := d.source(opts)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	if len(d.Input.Map) > 0 {
		fn, err := Steps(d.Input.Map)
		if err != nil {
			return nil, fmt.Errorf("input map: %w", err)
		}
		src = &source.Mapped{Source: src, Map: fn}
	}
	return &surrealmigrate.CreateMigration{
		Source:              src,
		DisableIDGeneration: d.GenerateIDs != nil && !*d.GenerateIDs,
	}, nil
}

func (d *Definition) source(opts Options) (source.Source, error) {
	in := d.Input
	switch in.Type {
	case "json":
		if in.Path == "" {
			docs := make(source.Literal, len(in.Documents))
			for i, doc := range in.Documents {
				docs[i] = models.Document(doc)
			}
			return docs, nil
		}
		return &source.JSONFile{Path: d.path(in.Path)}, nil
	case "csv":
		csvOpts := source.CSVOptions{
			Headers:   in.CSV.Headers,
			SkipLines: in.CSV.SkipLines,
			Strict:    in.CSV.Strict,
		}
		if in.CSV.Separator != "" {
			r, size := utf8.DecodeRuneInString(in.CSV.Separator)
			if size != len(in.CSV.Separator) {
				return nil, fmt.Errorf("csv separator must be a single character, got %q", in.CSV.Separator)
			}
			csvOpts.Separator = r
		}
		return &source.CSV{Path: d.path(in.Path), Options: csvOpts}, nil
	case "backup":
		return &backup.Source{Path: d.path(in.Path), SkipVerify: in.SkipVerify}, nil
	case "store":
		if in.Query == nil {
			return nil, surrealmigrate.ErrMissingSelect
		}
		return &source.Store{Finder: opts.Source, Query: *in.Query}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownInput, in.Type)
	}
}

func (d *Definition) path(p string) string {
	if p == "" || filepath.IsAbs(p) || d.dir == "" {
		return p
	}
	return filepath.Join(d.dir, p)
}

func (d *Definition) buildUpdate() (*surrealmigrate.UpdateMigration, error) {
	m := &surrealmigrate.UpdateMigration{Select: d.Select}
	if len(d.Transform) > 0 {
		fn, err := Steps(d.Transform)
		if err != nil {
			return nil, fmt.Errorf("transform: %w", err)
		}
		m.Transform = fn
	}
	if len(d.Inverse) > 0 {
		fn, err := Steps(d.Inverse)
		if err != nil {
			return nil, fmt.Errorf("inverse: %w", err)
		}
		m.Inverse = fn
	}
	return m, nil
}

func (d *Definition) buildDelete(opts Options) (*surrealmigrate.DeleteMigration, error) {
	field, def := opts.PartitionKey, ""
	if d.PartitionKey != nil {
		def = d.PartitionKey.Default
		if d.PartitionKey.Field != "" && d.PartitionKey.Field != field {
			return nil, fmt.Errorf("%w: definition names %q, the container is partitioned by %q",
				ErrPartitionKeyMismatch, d.PartitionKey.Field, field)
		}
	}
	m := &surrealmigrate.DeleteMigration{Select: d.Select}
	if field == "" {
		// Unpartitioned containers delete by id alone.
		m.PartitionKey = func(models.Document) string { return "" }
	} else {
		m.PartitionKey = surrealmigrate.PartitionKeyField(field, def)
	}
	return m, nil
}

// Steps chains the transform functions of steps in order.
func Steps(steps []Step) (transform.Func, error) {
	fns := make([]transform.Func, len(steps))
	for i, s := range steps {
		fn, err := s.Func()
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i+1, err)
		}
		fns[i] = fn
	}
	return transform.Chain(fns...), nil
}

// Func returns the transform the step describes.
func (s Step) Func() (transform.Func, error) {
	var fns []transform.Func
	if s.Set != nil {
		fns = append(fns, transform.Set(s.Set.Field, s.Set.Value))
	}
	if s.Unset != nil {
		fns = append(fns, transform.Unset(s.Unset.Field))
	}
	if s.Increment != nil {
		fns = append(fns, transform.Increment(s.Increment.Field, s.Increment.By))
	}
	if s.Rename != nil {
		fns = append(fns, transform.Rename(s.Rename.From, s.Rename.To))
	}
	if s.Copy != nil {
		fns = append(fns, transform.Copy(s.Copy.From, s.Copy.To))
	}
	if s.Convert != nil {
		kind := transform.Kind(s.Convert.To)
		switch kind {
		case transform.KindString, transform.KindInt, transform.KindFloat, transform.KindBool:
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownKind, s.Convert.To)
		}
		fns = append(fns, transform.Convert(s.Convert.Field, kind))
	}

	switch len(fns) {
	case 0:
		return nil, ErrEmptyStep
	case 1:
		return fns[0], nil
	default:
		return nil, ErrAmbiguousStep
	}
}
