package query

import (
	"database/sql"
	"strings"
)

// Canonical column type names.
const (
	TypeNumber    = "NUMBER"
	TypeVarchar2  = "VARCHAR2"
	TypeChar      = "CHAR"
	TypeDate      = "DATE"
	TypeTimestamp = "TIMESTAMP"
	TypeClob      = "CLOB"
	TypeNClob     = "NCLOB"
	TypeBlob      = "BLOB"
	TypeLong      = "LONG"
	TypeRaw       = "RAW"
	TypeBoolean   = "BOOLEAN"
)

// TypeMapper maps driver type names onto the canonical Oracle type names
// the fetcher branches on.
type TypeMapper struct {
	typeMapping map[string]string
}

// NewTypeMapper creates a new type mapper with default mappings.
func NewTypeMapper() *TypeMapper {
	// Covers go-ora, gosnowflake and DuckDB DatabaseTypeName values.
	return &TypeMapper{
		typeMapping: map[string]string{
			"NUMBER":                         TypeNumber,
			"FIXED":                          TypeNumber,
			"REAL":                           TypeNumber,
			"FLOAT":                          TypeNumber,
			"DOUBLE":                         TypeNumber,
			"BINARY_FLOAT":                   TypeNumber,
			"BINARY_DOUBLE":                  TypeNumber,
			"IBFLOAT":                        TypeNumber,
			"IBDOUBLE":                       TypeNumber,
			"INTEGER":                        TypeNumber,
			"INT":                            TypeNumber,
			"BIGINT":                         TypeNumber,
			"SMALLINT":                       TypeNumber,
			"TINYINT":                        TypeNumber,
			"HUGEINT":                        TypeNumber,
			"UINTEGER":                       TypeNumber,
			"UBIGINT":                        TypeNumber,
			"DECIMAL":                        TypeNumber,
			"NUMERIC":                        TypeNumber,
			"VARCHAR":                        TypeVarchar2,
			"VARCHAR2":                       TypeVarchar2,
			"NVARCHAR":                       TypeVarchar2,
			"NVARCHAR2":                      TypeVarchar2,
			"TEXT":                           TypeVarchar2,
			"STRING":                         TypeVarchar2,
			"UUID":                           TypeVarchar2,
			"CHAR":                           TypeChar,
			"NCHAR":                          TypeChar,
			"DATE":                           TypeDate,
			"TIMESTAMP":                      TypeTimestamp,
			"TIMESTAMP_NTZ":                  TypeTimestamp,
			"TIMESTAMP_LTZ":                  TypeTimestamp,
			"TIMESTAMP_TZ":                   TypeTimestamp,
			"TIMESTAMP_NS":                   TypeTimestamp,
			"TIMESTAMP_MS":                   TypeTimestamp,
			"TIMESTAMP_S":                    TypeTimestamp,
			"TIMESTAMPTZ":                    TypeTimestamp,
			"TIMESTAMP WITH TIME ZONE":       TypeTimestamp,
			"TIMESTAMP WITH LOCAL TIME ZONE": TypeTimestamp,
			"TIMESTAMPDTY":                   TypeTimestamp,
			"TIMESTAMPTZ_DTY":                TypeTimestamp,
			"TIMESTAMPLTZ_DTY":               TypeTimestamp,
			"DATETIME":                       TypeTimestamp,
			"CLOB":                           TypeClob,
			"NCLOB":                          TypeNClob,
			"LONG":                           TypeLong,
			"BLOB":                           TypeBlob,
			"BYTEA":                          TypeBlob,
			"BINARY":                         TypeBlob,
			"RAW":                            TypeRaw,
			"LONG RAW":                       TypeRaw,
			"BOOLEAN":                        TypeBoolean,
			"BOOL":                           TypeBoolean,
		},
	}
}

// MapType converts a driver type name to its canonical name. Unknown
// types are returned upper-cased without precision.
func (m *TypeMapper) MapType(dbType string) string {
	key := strings.ToUpper(strings.TrimSpace(dbType))
	if i := strings.IndexByte(key, '('); i >= 0 {
		key = strings.TrimSpace(key[:i])
	}
	if t, ok := m.typeMapping[key]; ok {
		return t
	}
	return key
}

// IsLOB reports whether a canonical type needs inline LOB fetching.
func (m *TypeMapper) IsLOB(canonical string) bool {
	switch canonical {
	case TypeClob, TypeNClob, TypeBlob, TypeLong:
		return true
	}
	return false
}

// IsDate reports whether a canonical type holds dates.
func (m *TypeMapper) IsDate(canonical string) bool {
	return canonical == TypeDate || canonical == TypeTimestamp
}

// InferColumns builds column metadata from driver column types. Names are
// upper-cased.
func (m *TypeMapper) InferColumns(columnTypes []*sql.ColumnType) []ColumnMetadata {
	cols := make([]ColumnMetadata, len(columnTypes))
	for i, ct := range columnTypes {
		meta := ColumnMetadata{
			Name:         strings.ToUpper(ct.Name()),
			DatabaseType: ct.DatabaseTypeName(),
			Nullable:     true,
		}
		meta.Type = m.MapType(meta.DatabaseType)
		if length, ok := ct.Length(); ok {
			meta.Length = length
		}
		if precision, scale, ok := ct.DecimalSize(); ok {
			meta.Precision = precision
			meta.Scale = scale
		}
		if nullable, ok := ct.Nullable(); ok {
			meta.Nullable = nullable
		}
		cols[i] = meta
	}
	return cols
}

// defaultTypeMapper is the package-level type mapper instance.
var defaultTypeMapper = NewTypeMapper()

// MapType is a convenience function using the default mapper.
func MapType(dbType string) string {
	return defaultTypeMapper.MapType(dbType)
}
