package commtypes

import (
	"fmt"
	"strings"

	"streamsql/pkg/common_errors"
)

type Field struct {
	Name     string
	DataType DataType
}

func FieldWithName(dt DataType, name string) Field {
	return Field{Name: name, DataType: dt}
}

func FieldUnnamed(dt DataType) Field {
	return Field{DataType: dt}
}

func (f Field) String() string {
	return fmt.Sprintf("%s:%v", f.Name, f.DataType)
}

type Schema struct {
	Fields []Field
}

func NewSchema(fields ...Field) Schema {
	return Schema{Fields: fields}
}

func (s Schema) Len() int {
	return len(s.Fields)
}

// CheckIndices fails with a schema violation when an index has no column.
func (s Schema) CheckIndices(indices []int) error {
	for _, idx := range indices {
		if idx < 0 || idx >= len(s.Fields) {
			return common_errors.SchemaViolation("column $%d out of range for %v", idx, s)
		}
	}
	return nil
}

func (s Schema) DataTypes() []DataType {
	out := make([]DataType, len(s.Fields))
	for i, f := range s.Fields {
		out[i] = f.DataType
	}
	return out
}

func (s Schema) CreateArrayBuilders(capacity int) []ArrayBuilder {
	builders := make([]ArrayBuilder, len(s.Fields))
	for i, f := range s.Fields {
		builders[i] = f.DataType.CreateArrayBuilder(capacity)
	}
	return builders
}

func (s Schema) String() string {
	parts := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		parts[i] = f.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// PkIndices are column indices into an executor's output schema.
type PkIndices []int
