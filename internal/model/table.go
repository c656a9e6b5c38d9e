package model

import "time"

type ColumnType string

const (
	ColumnText      ColumnType = "text"
	ColumnInteger   ColumnType = "integer"
	ColumnFloat     ColumnType = "float"
	ColumnBoolean   ColumnType = "boolean"
	ColumnTimestamp ColumnType = "timestamp"
	ColumnUUID      ColumnType = "uuid"
)

var ColumnTypes = []ColumnType{ColumnText, ColumnInteger, ColumnFloat, ColumnBoolean, ColumnTimestamp, ColumnUUID}

type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

type VirtualTable struct {
	ID        string    `json:"id"`
	TableName string    `json:"table_name"`
	Columns   []Column  `json:"columns"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Row data maps column names to values; absent columns read as null.
type Row struct {
	ID        string         `json:"id"`
	TableName string         `json:"table_name"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

type TableCreated struct {
	Success bool         `json:"success"`
	Table   VirtualTable `json:"table"`
	Message string       `json:"message"`
}

type TableList struct {
	Success bool           `json:"success"`
	Tables  []VirtualTable `json:"tables"`
	Count   int            `json:"count"`
}

type TableSchema struct {
	Success   bool     `json:"success"`
	TableName string   `json:"table_name"`
	Columns   []Column `json:"columns"`
	RowCount  int      `json:"row_count"`
}

type RowWritten struct {
	Success bool   `json:"success"`
	Row     Row    `json:"row"`
	Message string `json:"message"`
}

type RowQuery struct {
	Success        bool           `json:"success"`
	TableName      string         `json:"table_name"`
	Rows           []Row          `json:"rows"`
	TotalCount     int            `json:"total_count"`
	Limit          int            `json:"limit"`
	Offset         int            `json:"offset"`
	FiltersApplied map[string]any `json:"filters_applied"`
}

type RowRef struct {
	ID        string `json:"id"`
	TableName string `json:"table_name"`
}

type RowDeleted struct {
	Success bool   `json:"success"`
	Deleted RowRef `json:"deleted"`
	Message string `json:"message"`
}

type ColumnAdded struct {
	Success     bool      `json:"success"`
	TableName   string    `json:"table_name"`
	AddedColumn Column    `json:"added_column"`
	UpdatedAt   time.Time `json:"updated_at"`
	Message     string    `json:"message"`
}
