package records

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
	_ "modernc.org/sqlite"

	lerrors "git.home.luguber.info/inful/lamd/internal/errors"
	"git.home.luguber.info/inful/lamd/internal/frontmatter"
	"git.home.luguber.info/inful/lamd/internal/logfields"
)

// DefaultTable is the SQLite table read when none is configured.
const DefaultTable = "records"

// LoadOptions tunes the loaders.
type LoadOptions struct {
	// Table is the SQLite table holding records.
	Table string
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Load reads every path in order and concatenates the records. Index values
// are assigned across the whole set so sorting can fall back on input order.
func Load(paths []string, opts LoadOptions) (RecordSet, error) {
	var out RecordSet
	for _, p := range paths {
		rs, err := LoadFile(p, len(out), opts)
		if err != nil {
			return nil, err
		}
		slog.Debug("Loaded records", logfields.File(p), logfields.Records(len(rs)))
		out = append(out, rs...)
	}
	return out, nil
}

// LoadFile reads one source. The format is chosen by extension.
func LoadFile(path string, start int, opts LoadOptions) (RecordSet, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, lerrors.DocumentNotFound(path)
		}
		return nil, lerrors.DocumentUnreadable(path, err)
	}

	var (
		rows []row
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		rows, err = readYAML(path)
	case ".csv":
		rows, err = readCSV(path)
	case ".md", ".markdown":
		rows, err = readMarkdown(path)
	case ".db", ".sqlite", ".sqlite3":
		table := opts.Table
		if table == "" {
			table = DefaultTable
		}
		rows, err = readSQLite(path, table)
	default:
		return nil, lerrors.ValidationFailed("source", "unsupported record file type "+filepath.Ext(path))
	}
	if err != nil {
		return nil, lerrors.DocumentUnreadable(path, err)
	}

	base := filepath.Base(path)
	out := make(RecordSet, 0, len(rows))
	for i, fields := range rows {
		id := base
		if len(rows) > 1 {
			id = fmt.Sprintf("%s#%d", base, i+1)
		}
		out = append(out, NewRecord(id, start+i, fields...))
	}
	return out, nil
}

type row = []Field

// readYAML walks the node tree so field order follows the source. JSON is a
// subset of YAML and goes through the same path.
func readYAML(path string) ([]row, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return nil, nil
	}
	top := doc.Content[0]
	switch top.Kind {
	case yaml.MappingNode:
		r, err := mappingRow(top)
		if err != nil {
			return nil, err
		}
		return []row{r}, nil
	case yaml.SequenceNode:
		out := make([]row, 0, len(top.Content))
		for i, item := range top.Content {
			if item.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("entry %d is not a mapping", i+1)
			}
			r, err := mappingRow(item)
			if err != nil {
				return nil, err
			}
			out = append(out, r)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected a mapping or a list of mappings at line %d", top.Line)
	}
}

func mappingRow(n *yaml.Node) (row, error) {
	fields := make(row, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		var v any
		if err := n.Content[i+1].Decode(&v); err != nil {
			return nil, fmt.Errorf("field %q: %w", n.Content[i].Value, err)
		}
		fields = append(fields, Field{Name: n.Content[i].Value, Value: FromAny(v)})
	}
	return fields, nil
}

func readCSV(path string) ([]row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}

	var out []row
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		fields := make(row, 0, len(header))
		for i, name := range header {
			v := Missing()
			if i < len(rec) {
				if cell := strings.TrimSpace(rec[i]); cell != "" {
					v = String(cell)
				}
			}
			fields = append(fields, Field{Name: name, Value: v})
		}
		out = append(out, fields)
	}
}

func readMarkdown(path string) ([]row, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	header, _, had, err := frontmatter.Split(content)
	if err != nil {
		return nil, err
	}
	if !had {
		return nil, nil
	}
	var doc yaml.Node
	if err := yaml.Unmarshal(header, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, nil
	}
	r, err := mappingRow(doc.Content[0])
	if err != nil {
		return nil, err
	}
	return []row{r}, nil
}

func readSQLite(path, table string) ([]row, error) {
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = db.Close() }()

	rows, err := db.Query(`SELECT * FROM "` + table + `" ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		fields := make(row, 0, len(cols))
		for i, c := range cols {
			fields = append(fields, Field{Name: c, Value: FromAny(vals[i])})
		}
		out = append(out, fields)
	}
	return out, rows.Err()
}
