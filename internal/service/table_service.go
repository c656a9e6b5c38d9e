package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"mcptoolbox/internal/log"
	"mcptoolbox/internal/model"
	"mcptoolbox/internal/store"
)

const (
	DefaultQueryLimit = 50
	MaxQueryLimit     = 1000

	tableKeyPrefix = "table:"
	rowKeyPrefix   = "row:"
	reservedColumn = "id"

	// largest integer a float64 holds exactly
	maxExactInteger = 1 << 53
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// TableService manages per-user virtual tables and their rows.
type TableService struct {
	store store.Store
	now   func() time.Time
	newID func() string
	// serialises read-modify-write cycles
	mu sync.Mutex
}

func NewTableService(s store.Store) *TableService {
	return &TableService{
		store: s,
		now:   func() time.Time { return time.Now().UTC() },
		newID: func() string { return uuid.NewString() },
	}
}

func tableKey(name string) string {
	return tableKeyPrefix + name
}

func rowPrefix(table string) string {
	return rowKeyPrefix + table + ":"
}

func rowKey(table, id string) string {
	return rowPrefix(table) + id
}

func validateIdentifier(kind, name string) error {
	if !identifierPattern.MatchString(name) {
		return fmt.Errorf("%w: %s name %q must start with a letter or underscore and contain only letters, digits and underscores (max 63)",
			ErrInvalidInput, kind, name)
	}
	return nil
}

func parseColumnType(raw string) (model.ColumnType, error) {
	t := model.ColumnType(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range model.ColumnTypes {
		if t == known {
			return t, nil
		}
	}
	names := make([]string, len(model.ColumnTypes))
	for i, known := range model.ColumnTypes {
		names[i] = string(known)
	}
	return "", fmt.Errorf("%w: unknown column type %q (expected one of %s)", ErrInvalidInput, raw, strings.Join(names, ", "))
}

func validateColumn(c model.Column) (model.Column, error) {
	if err := validateIdentifier("column", c.Name); err != nil {
		return model.Column{}, err
	}
	if c.Name == reservedColumn {
		return model.Column{}, fmt.Errorf("%w: column name %q is reserved", ErrInvalidInput, reservedColumn)
	}
	t, err := parseColumnType(string(c.Type))
	if err != nil {
		return model.Column{}, err
	}
	return model.Column{Name: c.Name, Type: t}, nil
}

// normalizeValue checks v against the column type and returns its canonical form.
func normalizeValue(col model.Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	invalid := func() error {
		return fmt.Errorf("%w: value %v for column %q is not a valid %s", ErrInvalidInput, v, col.Name, col.Type)
	}

	switch col.Type {
	case model.ColumnText:
		s, ok := v.(string)
		if !ok {
			return nil, invalid()
		}
		return s, nil
	case model.ColumnInteger:
		f, ok := toFloat(v)
		if !ok || f != math.Trunc(f) || math.Abs(f) > maxExactInteger {
			return nil, invalid()
		}
		return int64(f), nil
	case model.ColumnFloat:
		f, ok := toFloat(v)
		if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, invalid()
		}
		return f, nil
	case model.ColumnBoolean:
		b, ok := v.(bool)
		if !ok {
			return nil, invalid()
		}
		return b, nil
	case model.ColumnTimestamp:
		s, ok := v.(string)
		if !ok {
			return nil, invalid()
		}
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t.UTC().Format(time.RFC3339Nano), nil
			}
		}
		return nil, invalid()
	case model.ColumnUUID:
		s, ok := v.(string)
		if !ok {
			return nil, invalid()
		}
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, invalid()
		}
		return id.String(), nil
	}
	return nil, invalid()
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

// normalizeData validates every entry of data against the table columns.
func normalizeData(table *model.VirtualTable, data map[string]any) (map[string]any, error) {
	columns := make(map[string]model.Column, len(table.Columns))
	for _, c := range table.Columns {
		columns[c.Name] = c
	}

	out := make(map[string]any, len(data))
	for name, v := range data {
		col, ok := columns[name]
		if !ok {
			return nil, fmt.Errorf("%w: table %q has no column %q", ErrInvalidInput, table.TableName, name)
		}
		nv, err := normalizeValue(col, v)
		if err != nil {
			return nil, err
		}
		out[name] = nv
	}
	return out, nil
}

func (s *TableService) loadTable(ctx context.Context, ns store.Namespace, name string) (*model.VirtualTable, error) {
	raw, err := s.store.Get(ctx, ns, tableKey(name))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: virtual table %q does not exist", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("load table %q: %w", name, err)
	}
	var table model.VirtualTable
	if err := json.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("decode table %q: %w", name, err)
	}
	return &table, nil
}

func (s *TableService) saveJSON(ctx context.Context, ns store.Namespace, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return s.store.Set(ctx, ns, key, raw)
}

func (s *TableService) loadRows(ctx context.Context, ns store.Namespace, table string) ([]model.Row, error) {
	raws, err := s.store.List(ctx, ns, rowPrefix(table))
	if err != nil {
		return nil, fmt.Errorf("list rows of %q: %w", table, err)
	}
	rows := make([]model.Row, 0, len(raws))
	for _, raw := range raws {
		var row model.Row
		if err := json.Unmarshal(raw, &row); err != nil {
			return nil, fmt.Errorf("decode row of %q: %w", table, err)
		}
		if row.Data == nil {
			row.Data = map[string]any{}
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.Before(rows[j].CreatedAt)
		}
		return rows[i].ID < rows[j].ID
	})
	return rows, nil
}

func (s *TableService) loadRow(ctx context.Context, ns store.Namespace, table, rowID string) (*model.Row, error) {
	if _, err := uuid.Parse(rowID); err != nil {
		return nil, fmt.Errorf("%w: row_id %q is not a UUID", ErrInvalidInput, rowID)
	}
	raw, err := s.store.Get(ctx, ns, rowKey(table, rowID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: row %q does not exist in %q", ErrNotFound, rowID, table)
	}
	if err != nil {
		return nil, fmt.Errorf("load row %q: %w", rowID, err)
	}
	var row model.Row
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, fmt.Errorf("decode row %q: %w", rowID, err)
	}
	if row.Data == nil {
		row.Data = map[string]any{}
	}
	return &row, nil
}

// CreateTable defines a new table with the given columns.
func (s *TableService) CreateTable(ctx context.Context, ns store.Namespace, name string, columns []model.Column) (*model.TableCreated, error) {
	if err := validateIdentifier("table", name); err != nil {
		return nil, err
	}

	cols := make([]model.Column, 0, len(columns))
	seen := make(map[string]bool, len(columns))
	for _, c := range columns {
		col, err := validateColumn(c)
		if err != nil {
			return nil, err
		}
		if seen[col.Name] {
			return nil, fmt.Errorf("%w: duplicate column %q", ErrInvalidInput, col.Name)
		}
		seen[col.Name] = true
		cols = append(cols, col)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.Get(ctx, ns, tableKey(name)); err == nil {
		return nil, fmt.Errorf("%w: virtual table %q", ErrConflict, name)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check table %q: %w", name, err)
	}

	now := s.now()
	table := model.VirtualTable{
		ID:        s.newID(),
		TableName: name,
		Columns:   cols,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.saveJSON(ctx, ns, tableKey(name), table); err != nil {
		return nil, err
	}

	log.Logger.Info("virtual table created",
		zap.String("user_id", ns.UserID),
		zap.String("table", name),
		zap.Int("columns", len(cols)),
	)

	return &model.TableCreated{
		Success: true,
		Table:   table,
		Message: fmt.Sprintf("Virtual table '%s' created with %d column(s).", name, len(cols)),
	}, nil
}

// ListTables returns every table of the namespace sorted by name.
func (s *TableService) ListTables(ctx context.Context, ns store.Namespace) (*model.TableList, error) {
	raws, err := s.store.List(ctx, ns, tableKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	tables := make([]model.VirtualTable, 0, len(raws))
	for _, raw := range raws {
		var table model.VirtualTable
		if err := json.Unmarshal(raw, &table); err != nil {
			return nil, fmt.Errorf("decode table: %w", err)
		}
		tables = append(tables, table)
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].TableName < tables[j].TableName })

	return &model.TableList{Success: true, Tables: tables, Count: len(tables)}, nil
}

func (s *TableService) GetSchema(ctx context.Context, ns store.Namespace, name string) (*model.TableSchema, error) {
	table, err := s.loadTable(ctx, ns, name)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.List(ctx, ns, rowPrefix(name))
	if err != nil {
		return nil, fmt.Errorf("count rows of %q: %w", name, err)
	}
	return &model.TableSchema{
		Success:   true,
		TableName: table.TableName,
		Columns:   table.Columns,
		RowCount:  len(rows),
	}, nil
}

func (s *TableService) InsertRow(ctx context.Context, ns store.Namespace, name string, data map[string]any) (*model.RowWritten, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.loadTable(ctx, ns, name)
	if err != nil {
		return nil, err
	}
	normalized, err := normalizeData(table, data)
	if err != nil {
		return nil, err
	}

	now := s.now()
	row := model.Row{
		ID:        s.newID(),
		TableName: name,
		Data:      normalized,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.saveJSON(ctx, ns, rowKey(name, row.ID), row); err != nil {
		return nil, err
	}

	return &model.RowWritten{
		Success: true,
		Row:     row,
		Message: fmt.Sprintf("Row inserted into '%s'.", name),
	}, nil
}

// QueryRows returns rows matching every equality filter, ordered by creation
// time and paged by limit and offset. A non-positive limit selects the default.
func (s *TableService) QueryRows(ctx context.Context, ns store.Namespace, name string, filters map[string]any, limit, offset int) (*model.RowQuery, error) {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	if limit > MaxQueryLimit {
		limit = MaxQueryLimit
	}
	if offset < 0 {
		return nil, fmt.Errorf("%w: offset must not be negative", ErrInvalidInput)
	}

	table, err := s.loadTable(ctx, ns, name)
	if err != nil {
		return nil, err
	}
	wanted, err := normalizeData(table, filters)
	if err != nil {
		return nil, err
	}
	columns := make(map[string]model.Column, len(table.Columns))
	for _, c := range table.Columns {
		columns[c.Name] = c
	}

	rows, err := s.loadRows(ctx, ns, name)
	if err != nil {
		return nil, err
	}

	matched := make([]model.Row, 0, len(rows))
	for _, row := range rows {
		if rowMatches(row, wanted, columns) {
			matched = append(matched, row)
		}
	}

	page := []model.Row{}
	if offset < len(matched) {
		end := offset + limit
		if end > len(matched) {
			end = len(matched)
		}
		page = matched[offset:end]
	}

	applied := filters
	if applied == nil {
		applied = map[string]any{}
	}

	return &model.RowQuery{
		Success:        true,
		TableName:      name,
		Rows:           page,
		TotalCount:     len(matched),
		Limit:          limit,
		Offset:         offset,
		FiltersApplied: applied,
	}, nil
}

func rowMatches(row model.Row, wanted map[string]any, columns map[string]model.Column) bool {
	for name, want := range wanted {
		got, err := normalizeValue(columns[name], row.Data[name])
		if err != nil || got != want {
			return false
		}
	}
	return true
}

// UpdateRow merges data into the row and refreshes updated_at.
func (s *TableService) UpdateRow(ctx context.Context, ns store.Namespace, name, rowID string, data map[string]any) (*model.RowWritten, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.loadTable(ctx, ns, name)
	if err != nil {
		return nil, err
	}
	normalized, err := normalizeData(table, data)
	if err != nil {
		return nil, err
	}
	row, err := s.loadRow(ctx, ns, name, rowID)
	if err != nil {
		return nil, err
	}

	for k, v := range normalized {
		row.Data[k] = v
	}
	row.UpdatedAt = s.now()
	if err := s.saveJSON(ctx, ns, rowKey(name, row.ID), row); err != nil {
		return nil, err
	}

	return &model.RowWritten{
		Success: true,
		Row:     *row,
		Message: fmt.Sprintf("Row '%s' in '%s' updated.", row.ID, name),
	}, nil
}

func (s *TableService) DeleteRow(ctx context.Context, ns store.Namespace, name, rowID string) (*model.RowDeleted, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.loadTable(ctx, ns, name); err != nil {
		return nil, err
	}
	row, err := s.loadRow(ctx, ns, name, rowID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Delete(ctx, ns, rowKey(name, row.ID)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: row %q does not exist in %q", ErrNotFound, rowID, name)
		}
		return nil, fmt.Errorf("delete row %q: %w", rowID, err)
	}

	return &model.RowDeleted{
		Success: true,
		Deleted: model.RowRef{ID: row.ID, TableName: name},
		Message: fmt.Sprintf("Row '%s' deleted from '%s'.", row.ID, name),
	}, nil
}

// AddColumn appends a column. Existing rows read the new column as null.
func (s *TableService) AddColumn(ctx context.Context, ns store.Namespace, name, columnName, columnType string) (*model.ColumnAdded, error) {
	col, err := validateColumn(model.Column{Name: columnName, Type: model.ColumnType(columnType)})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	table, err := s.loadTable(ctx, ns, name)
	if err != nil {
		return nil, err
	}
	for _, c := range table.Columns {
		if c.Name == col.Name {
			return nil, fmt.Errorf("%w: column %q in %q", ErrConflict, col.Name, name)
		}
	}

	table.Columns = append(table.Columns, col)
	table.UpdatedAt = s.now()
	if err := s.saveJSON(ctx, ns, tableKey(name), table); err != nil {
		return nil, err
	}

	return &model.ColumnAdded{
		Success:     true,
		TableName:   name,
		AddedColumn: col,
		UpdatedAt:   table.UpdatedAt,
		Message:     fmt.Sprintf("Column '%s' (%s) added to '%s'.", col.Name, col.Type, name),
	}, nil
}
