package catalog

import "fmt"

// Schema is an ordered list of columns. Offsets are computed once, at
// construction, the way the teacher's NewSchema does.
type Schema struct {
	columns []Column
}

func NewSchema(cols []Column) Schema {
	out := make([]Column, len(cols))
	copy(out, cols)
	var offset uint32
	for i := range out {
		out[i].Offset = offset
		offset += uint32(out[i].Size())
	}
	return Schema{columns: out}
}

func (s Schema) Columns() []Column { return s.columns }

func (s Schema) Column(idx int) Column { return s.columns[idx] }

func (s Schema) Len() int { return len(s.columns) }

func (s Schema) ColumnIndex(name string) (int, error) {
	for i, c := range s.columns {
		if c.Name == name {
			return i, nil
		}
	}
	return 0, fmt.Errorf("catalog: no such column %q", name)
}

// RowWidth returns the total inlined byte width of a row under this schema.
func (s Schema) RowWidth() int {
	if len(s.columns) == 0 {
		return 0
	}
	last := s.columns[len(s.columns)-1]
	return int(last.Offset) + last.Size()
}

// Concat returns a schema with b's columns appended after a's, used by
// joins to build an output schema from two child schemas.
func Concat(a, b Schema) Schema {
	cols := make([]Column, 0, len(a.columns)+len(b.columns))
	cols = append(cols, a.columns...)
	cols = append(cols, b.columns...)
	return NewSchema(cols)
}
