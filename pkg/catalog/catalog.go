// Package catalog is the table registry: name, id, backing file and
// schema, plus an optional primary key column, loaded from the catalog
// text format of spec §6. It is effectively immutable after startup
// (spec §5): reads share a read lock, writes exclude readers via a mutex,
// grounded on the teacher's Catalog (pkg/db/catalog.go).
package catalog

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"simpledb/pkg/dberrors"
	"simpledb/pkg/dbtype"
	"simpledb/pkg/storage/dbfile"
)

// Table is one registered table's catalog entry.
type Table struct {
	Name    string
	ID      uint64
	File    dbfile.DbFile
	Schema  dbtype.Schema
	PrimKey string // "" if the table has no declared primary key
}

// Catalog maps table names and ids to their registered Table, and
// implements buffer.FileLookup so the buffer pool can resolve a table id
// to the file responsible for its pages.
type Catalog struct {
	log *zap.Logger

	mu     sync.RWMutex
	byName map[string]*Table
	byID   map[uint64]*Table
}

// New returns an empty catalog.
func New(log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{log: log, byName: make(map[string]*Table), byID: make(map[uint64]*Table)}
}

// AddTable registers t, rejecting a name or id collision.
func (c *Catalog) AddTable(t *Table) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.byName[t.Name]; exists {
		return dberrors.DBException("catalog: table %q already registered", t.Name)
	}
	if _, exists := c.byID[t.ID]; exists {
		return dberrors.DBException("catalog: table id %d already registered", t.ID)
	}
	c.byName[t.Name] = t
	c.byID[t.ID] = t
	c.log.Debug("table registered", zap.String("name", t.Name), zap.Uint64("id", t.ID))
	return nil
}

// TableByName looks up a table by its catalog name.
func (c *Catalog) TableByName(name string) (*Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.byName[name]
	if !ok {
		return nil, dberrors.NoSuchElement("catalog: no table named %q", name)
	}
	return t, nil
}

// TableByID looks up a table by its stable file-path-derived id.
func (c *Catalog) TableByID(id uint64) (*Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.byID[id]
	if !ok {
		return nil, dberrors.NoSuchElement("catalog: no table with id %d", id)
	}
	return t, nil
}

// GetDbFile implements buffer.FileLookup.
func (c *Catalog) GetDbFile(tableID uint64) (dbfile.DbFile, error) {
	t, err := c.TableByID(tableID)
	if err != nil {
		return nil, err
	}
	return t.File, nil
}

// TableNames lists every registered table name.
func (c *Catalog) TableNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.byName))
	for name := range c.byName {
		names = append(names, name)
	}
	return names
}

// parsedColumn is one column of a parsed catalog text-format line.
type parsedColumn struct {
	name    string
	typ     dbtype.Type
	primKey bool
}

// ParsedTable is one `name (field1 type1 [pk], ...)` line, decoded but
// not yet opened against a concrete file.
type ParsedTable struct {
	Name    string
	Columns []parsedColumn
	PrimKey string
}

// Schema builds the dbtype.Schema for a parsed table's columns.
func (p ParsedTable) Schema() dbtype.Schema {
	fields := make([]dbtype.FieldDesc, len(p.Columns))
	for i, c := range p.Columns {
		fields[i] = dbtype.FieldDesc{Type: c.typ, Name: c.name}
	}
	return dbtype.NewSchema(fields...)
}

// DataFileName is the `<name>.dat` heap file the table line maps to,
// resolved relative to the catalog file's own directory.
func DataFileName(catalogDir, tableName string) string {
	return filepath.Join(catalogDir, tableName+".dat")
}

// ParseFile reads a catalog text file: one table declaration per line,
// blank lines and lines starting with '#' ignored.
func ParseFile(path string) ([]ParsedTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, dberrors.IOError(err, "opening catalog file %s", path)
	}
	defer f.Close()

	var tables []ParsedTable
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pt, err := ParseLine(line)
		if err != nil {
			return nil, err
		}
		tables = append(tables, pt)
	}
	if err := scanner.Err(); err != nil {
		return nil, dberrors.IOError(err, "reading catalog file %s", path)
	}
	return tables, nil
}

// ParseLine parses one `name (field1 type1 [pk], field2 type2, ...)` line.
func ParseLine(line string) (ParsedTable, error) {
	open := strings.IndexByte(line, '(')
	close := strings.LastIndexByte(line, ')')
	if open < 0 || close < open {
		return ParsedTable{}, dberrors.DBException("catalog: malformed table line %q", line)
	}

	name := strings.TrimSpace(line[:open])
	if name == "" {
		return ParsedTable{}, dberrors.DBException("catalog: missing table name in %q", line)
	}

	body := line[open+1 : close]
	parts := strings.Split(body, ",")
	pt := ParsedTable{Name: name}

	for _, part := range parts {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) < 2 {
			return ParsedTable{}, dberrors.DBException("catalog: malformed column %q in table %q", part, name)
		}
		colName := fields[0]
		typ, err := dbtype.ParseType(strings.ToLower(fields[1]))
		if err != nil {
			return ParsedTable{}, fmt.Errorf("catalog: table %q column %q: %w", name, colName, err)
		}
		col := parsedColumn{name: colName, typ: typ}
		for _, tok := range fields[2:] {
			if strings.EqualFold(tok, "pk") {
				col.primKey = true
				pt.PrimKey = colName
			}
		}
		pt.Columns = append(pt.Columns, col)
	}
	if len(pt.Columns) == 0 {
		return ParsedTable{}, dberrors.DBException("catalog: table %q declares no columns", name)
	}
	return pt, nil
}
