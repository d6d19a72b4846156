package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrColumnMissing is returned when a required header column is absent.
var ErrColumnMissing = errors.New("column missing from header")

// EdgeColumns names the endpoint columns of the edge table
type EdgeColumns struct {
	Source string
	Target string
}

// NodeColumns names the ID and optional label columns of the node table
type NodeColumns struct {
	ID    string
	Label string // optional
}

// DefaultEdgeColumns matches the Source/Target export format
func DefaultEdgeColumns() EdgeColumns {
	return EdgeColumns{Source: "Source", Target: "Target"}
}

// DefaultNodeColumns matches the Id/Label export format
func DefaultNodeColumns() NodeColumns {
	return NodeColumns{ID: "Id", Label: "Label"}
}

// Node is one row of the node table
type Node struct {
	ID       int64
	Label    string
	HasLabel bool
}

// Table is a header-driven CSV reader positioned after its header row
type Table struct {
	r       *csv.Reader
	columns map[string]int
}

// NewTable reads the header of r. Columns are looked up by trimmed name;
// a UTF-8 byte order mark before the first name is ignored.
func NewTable(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty input", ErrColumnMissing)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := columns[name]; !dup {
			columns[name] = i
		}
	}
	return &Table{r: cr, columns: columns}, nil
}

// Index returns the position of column name, or ErrColumnMissing
func (t *Table) Index(name string) (int, error) {
	i, ok := t.columns[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrColumnMissing, name)
	}
	return i, nil
}

// Each calls fn for every non-blank record with its 1-based line number.
// The record is reused between calls.
func (t *Table) Each(fn func(line int, record []string) error) error {
	for {
		record, err := t.r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read row: %w", err)
		}
		line, _ := t.r.FieldPos(0)
		if blank(record) {
			continue
		}
		if err := fn(line, record); err != nil {
			return err
		}
	}
}

func blank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// Field returns the trimmed value at i, or "" for short records
func Field(record []string, i int) string {
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// parseID accepts integer IDs, including the "123.0" form spreadsheets export
func parseID(raw string) (int64, error) {
	if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return id, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, fmt.Errorf("invalid node id %q", raw)
	}
	return int64(f), nil
}

// ReadEdges streams the edge table, calling fn for each (source, target) row.
func ReadEdges(r io.Reader, cols EdgeColumns, fn func(source, target int64) error) error {
	t, err := NewTable(r)
	if err != nil {
		return err
	}
	si, err := t.Index(cols.Source)
	if err != nil {
		return err
	}
	ti, err := t.Index(cols.Target)
	if err != nil {
		return err
	}

	return t.Each(func(line int, record []string) error {
		source, err := parseID(Field(record, si))
		if err != nil {
			return fmt.Errorf("line %d: %s: %w", line, cols.Source, err)
		}
		target, err := parseID(Field(record, ti))
		if err != nil {
			return fmt.Errorf("line %d: %s: %w", line, cols.Target, err)
		}
		return fn(source, target)
	})
}

// ReadNodes streams the node table. The label column is optional: when it is
// configured but absent from the header, nodes are read without labels.
func ReadNodes(r io.Reader, cols NodeColumns, fn func(Node) error) error {
	t, err := NewTable(r)
	if err != nil {
		return err
	}
	ii, err := t.Index(cols.ID)
	if err != nil {
		return err
	}
	li := -1
	if cols.Label != "" {
		if i, err := t.Index(cols.Label); err == nil {
			li = i
		}
	}

	return t.Each(func(line int, record []string) error {
		id, err := parseID(Field(record, ii))
		if err != nil {
			return fmt.Errorf("line %d: %s: %w", line, cols.ID, err)
		}
		node := Node{ID: id}
		if li >= 0 {
			if label := Field(record, li); label != "" {
				node.Label = label
				node.HasLabel = true
			}
		}
		return fn(node)
	})
}
