package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"mcptoolbox/internal/model"
	"mcptoolbox/internal/store"
)

// newTestTableService returns a service whose clock advances one second per call.
func newTestTableService() *TableService {
	svc := NewTableService(store.NewMemory())
	var mu sync.Mutex
	clock := time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}
	return svc
}

var contactColumns = []model.Column{
	{Name: "name", Type: "text"},
	{Name: "age", Type: "integer"},
	{Name: "score", Type: "float"},
	{Name: "active", Type: "boolean"},
}

func TestCreateVirtualTable(t *testing.T) {
	svc := newTestTableService()
	ctx := context.Background()
	ns := store.UserNamespace("user-1")

	created, err := svc.CreateTable(ctx, ns, "contacts", contactColumns)
	require.NoError(t, err)

	assert.True(t, created.Success)
	assert.Equal(t, "contacts", created.Table.TableName)
	assert.Equal(t, contactColumns, created.Table.Columns)
	assert.NotEmpty(t, created.Table.ID)
	assert.Equal(t, created.Table.CreatedAt, created.Table.UpdatedAt)
	assert.Equal(t, "Virtual table 'contacts' created with 4 column(s).", created.Message)

	_, err = svc.CreateTable(ctx, ns, "contacts", contactColumns)
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.CreateTable(ctx, store.UserNamespace("user-2"), "contacts", contactColumns)
	assert.NoError(t, err, "table names are scoped per user")
}

func TestCreateVirtualTableValidation(t *testing.T) {
	tests := []struct {
		name    string
		table   string
		columns []model.Column
		wantErr string
	}{
		{name: "Empty table name", table: "", wantErr: "table name"},
		{name: "Table name with dash", table: "my-table", wantErr: "table name"},
		{name: "Table name starting with digit", table: "1table", wantErr: "table name"},
		{name: "Bad column name", table: "t", columns: []model.Column{{Name: "has space", Type: "text"}}, wantErr: "column name"},
		{name: "Reserved column", table: "t", columns: []model.Column{{Name: "id", Type: "uuid"}}, wantErr: "reserved"},
		{name: "Unknown type", table: "t", columns: []model.Column{{Name: "x", Type: "blob"}}, wantErr: "unknown column type"},
		{name: "Duplicate column", table: "t", columns: []model.Column{{Name: "x", Type: "text"}, {Name: "x", Type: "integer"}}, wantErr: "duplicate column"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newTestTableService().CreateTable(context.Background(), store.ServiceNamespace, tt.table, tt.columns)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestColumnTypeIsNormalized(t *testing.T) {
	created, err := newTestTableService().CreateTable(context.Background(), store.ServiceNamespace, "t",
		[]model.Column{{Name: "when", Type: " TimeStamp "}})
	require.NoError(t, err)
	assert.Equal(t, model.ColumnTimestamp, created.Table.Columns[0].Type)
}

func TestListVirtualTables(t *testing.T) {
	svc := newTestTableService()
	ctx := context.Background()
	ns := store.UserNamespace("lister")

	empty, err := svc.ListTables(ctx, ns)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Count)
	assert.NotNil(t, empty.Tables)

	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := svc.CreateTable(ctx, ns, name, nil)
		require.NoError(t, err)
	}
	_, err = svc.CreateTable(ctx, store.UserNamespace("someone-else"), "other", nil)
	require.NoError(t, err)

	list, err := svc.ListTables(ctx, ns)
	require.NoError(t, err)
	require.Equal(t, 3, list.Count)
	assert.Equal(t, "alpha", list.Tables[0].TableName)
	assert.Equal(t, "mid", list.Tables[1].TableName)
	assert.Equal(t, "zeta", list.Tables[2].TableName)
}

func TestInsertAndQueryRows(t *testing.T) {
	svc := newTestTableService()
	ctx := context.Background()
	ns := store.UserNamespace("user-rows")

	_, err := svc.CreateTable(ctx, ns, "contacts", contactColumns)
	require.NoError(t, err)

	people := []map[string]any{
		{"name": "Alice", "age": float64(30), "active": true},
		{"name": "Bob", "age": float64(25), "active": false},
		{"name": "Carol", "age": float64(30), "active": true, "score": 9.5},
	}
	for _, p := range people {
		inserted, err := svc.InsertRow(ctx, ns, "contacts", p)
		require.NoError(t, err)
		assert.Equal(t, "Row inserted into 'contacts'.", inserted.Message)
		assert.Equal(t, "contacts", inserted.Row.TableName)
	}

	all, err := svc.QueryRows(ctx, ns, "contacts", nil, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, all.TotalCount)
	assert.Equal(t, DefaultQueryLimit, all.Limit)
	assert.Equal(t, map[string]any{}, all.FiltersApplied)
	require.Len(t, all.Rows, 3)
	assert.Equal(t, "Alice", all.Rows[0].Data["name"])
	assert.Equal(t, "Bob", all.Rows[1].Data["name"])
	assert.Equal(t, "Carol", all.Rows[2].Data["name"])

	filtered, err := svc.QueryRows(ctx, ns, "contacts", map[string]any{"age": float64(30), "active": true}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, filtered.TotalCount)
	require.Len(t, filtered.Rows, 2)
	assert.Equal(t, "Alice", filtered.Rows[0].Data["name"])
	assert.Equal(t, "Carol", filtered.Rows[1].Data["name"])

	paged, err := svc.QueryRows(ctx, ns, "contacts", nil, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, paged.TotalCount)
	require.Len(t, paged.Rows, 1)
	assert.Equal(t, "Bob", paged.Rows[0].Data["name"])

	beyond, err := svc.QueryRows(ctx, ns, "contacts", nil, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, 3, beyond.TotalCount)
	assert.Empty(t, beyond.Rows)
	assert.NotNil(t, beyond.Rows)

	nullScore, err := svc.QueryRows(ctx, ns, "contacts", map[string]any{"score": nil}, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, nullScore.TotalCount)

	schema, err := svc.GetSchema(ctx, ns, "contacts")
	require.NoError(t, err)
	assert.Equal(t, 3, schema.RowCount)
	assert.Equal(t, contactColumns, schema.Columns)
}

func TestInsertRowValidation(t *testing.T) {
	svc := newTestTableService()
	ctx := context.Background()
	ns := store.ServiceNamespace

	_, err := svc.CreateTable(ctx, ns, "typed", []model.Column{
		{Name: "txt", Type: "text"},
		{Name: "num", Type: "integer"},
		{Name: "ratio", Type: "float"},
		{Name: "flag", Type: "boolean"},
		{Name: "at", Type: "timestamp"},
		{Name: "ref", Type: "uuid"},
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		data    map[string]any
		wantErr bool
	}{
		{name: "All valid", data: map[string]any{"txt": "x", "num": float64(3), "ratio": 0.5, "flag": true, "at": "2025-01-17T09:00:00Z", "ref": "3f2504e0-4f89-11d3-9a0c-0305e82c3301"}},
		{name: "Nulls allowed", data: map[string]any{"txt": nil, "num": nil}},
		{name: "Date only timestamp", data: map[string]any{"at": "2025-01-17"}},
		{name: "Integer given as float with fraction", data: map[string]any{"num": 1.5}, wantErr: true},
		{name: "Text given number", data: map[string]any{"txt": float64(1)}, wantErr: true},
		{name: "Boolean given string", data: map[string]any{"flag": "true"}, wantErr: true},
		{name: "Bad timestamp", data: map[string]any{"at": "yesterday"}, wantErr: true},
		{name: "Bad uuid", data: map[string]any{"ref": "not-a-uuid"}, wantErr: true},
		{name: "Unknown column", data: map[string]any{"nope": "x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.InsertRow(ctx, ns, "typed", tt.data)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestUpdateRow(t *testing.T) {
	svc := newTestTableService()
	ctx := context.Background()
	ns := store.UserNamespace("updater")

	_, err := svc.CreateTable(ctx, ns, "contacts", contactColumns)
	require.NoError(t, err)
	inserted, err := svc.InsertRow(ctx, ns, "contacts", map[string]any{"name": "Alice", "age": float64(30)})
	require.NoError(t, err)

	updated, err := svc.UpdateRow(ctx, ns, "contacts", inserted.Row.ID, map[string]any{"age": float64(31)})
	require.NoError(t, err)
	assert.Equal(t, "Alice", updated.Row.Data["name"])
	assert.Equal(t, int64(31), updated.Row.Data["age"])
	assert.True(t, updated.Row.UpdatedAt.After(inserted.Row.UpdatedAt))
	assert.Equal(t, inserted.Row.CreatedAt, updated.Row.CreatedAt)
	assert.Equal(t, fmt.Sprintf("Row '%s' in 'contacts' updated.", inserted.Row.ID), updated.Message)

	queried, err := svc.QueryRows(ctx, ns, "contacts", map[string]any{"age": 31}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, queried.TotalCount)

	_, err = svc.UpdateRow(ctx, ns, "contacts", "3f2504e0-4f89-11d3-9a0c-0305e82c3301", map[string]any{"age": float64(1)})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = svc.UpdateRow(ctx, ns, "contacts", "row-001", map[string]any{"age": float64(1)})
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestDeleteRow(t *testing.T) {
	svc := newTestTableService()
	ctx := context.Background()
	ns := store.UserNamespace("deleter")

	_, err := svc.CreateTable(ctx, ns, "contacts", contactColumns)
	require.NoError(t, err)
	inserted, err := svc.InsertRow(ctx, ns, "contacts", map[string]any{"name": "Alice"})
	require.NoError(t, err)

	deleted, err := svc.DeleteRow(ctx, ns, "contacts", inserted.Row.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RowRef{ID: inserted.Row.ID, TableName: "contacts"}, deleted.Deleted)
	assert.Equal(t, fmt.Sprintf("Row '%s' deleted from 'contacts'.", inserted.Row.ID), deleted.Message)

	_, err = svc.DeleteRow(ctx, ns, "contacts", inserted.Row.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	schema, err := svc.GetSchema(ctx, ns, "contacts")
	require.NoError(t, err)
	assert.Equal(t, 0, schema.RowCount)
}

func TestAddColumn(t *testing.T) {
	svc := newTestTableService()
	ctx := context.Background()
	ns := store.UserNamespace("schema-changer")

	created, err := svc.CreateTable(ctx, ns, "inventory", []model.Column{{Name: "item", Type: "text"}})
	require.NoError(t, err)
	_, err = svc.InsertRow(ctx, ns, "inventory", map[string]any{"item": "bolt"})
	require.NoError(t, err)

	added, err := svc.AddColumn(ctx, ns, "inventory", "quantity", "integer")
	require.NoError(t, err)
	assert.Equal(t, model.Column{Name: "quantity", Type: model.ColumnInteger}, added.AddedColumn)
	assert.True(t, added.UpdatedAt.After(created.Table.UpdatedAt))
	assert.Equal(t, "Column 'quantity' (integer) added to 'inventory'.", added.Message)

	_, err = svc.InsertRow(ctx, ns, "inventory", map[string]any{"item": "nut", "quantity": float64(10)})
	require.NoError(t, err)

	withoutQuantity, err := svc.QueryRows(ctx, ns, "inventory", map[string]any{"quantity": nil}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, withoutQuantity.TotalCount)

	_, err = svc.AddColumn(ctx, ns, "inventory", "quantity", "float")
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.AddColumn(ctx, ns, "inventory", "price", "money")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.AddColumn(ctx, ns, "missing", "price", "float")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMissingTable(t *testing.T) {
	svc := newTestTableService()
	ctx := context.Background()
	ns := store.UserNamespace("nobody")

	_, err := svc.GetSchema(ctx, ns, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.InsertRow(ctx, ns, "ghost", map[string]any{})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.QueryRows(ctx, ns, "ghost", nil, 0, 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQueryRowsRejectsNegativeOffset(t *testing.T) {
	svc := newTestTableService()
	_, err := svc.QueryRows(context.Background(), store.ServiceNamespace, "t", nil, 0, -1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestConcurrentInserts(t *testing.T) {
	svc := newTestTableService()
	ctx := context.Background()
	ns := store.UserNamespace("busy")

	_, err := svc.CreateTable(ctx, ns, "events", []model.Column{{Name: "n", Type: "integer"}})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 25; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.InsertRow(ctx, ns, "events", map[string]any{"n": i})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	schema, err := svc.GetSchema(ctx, ns, "events")
	require.NoError(t, err)
	assert.Equal(t, 25, schema.RowCount)
}
