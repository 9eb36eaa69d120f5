package sqlconn

import (
	"database/sql"
	"encoding/hex"
	"time"

	"github.com/shopspring/decimal"

	"github.com/syssam/keel"
	"github.com/syssam/keel/schema"
	"github.com/syssam/keel/value"
)

// columnType returns the DDL type for field under dialect, honoring a
// connector-specific Migration override before falling back to a default
// per value.Kind, the same override-then-default precedence the
// teacher's own migration hints table documents.
func columnType(field *schema.Field, dialect Dialect) string {
	if override, ok := field.Migration[string(dialect)]; ok {
		return override
	}
	switch field.Type.Kind {
	case value.KindBool:
		return "BOOLEAN"
	case value.KindInt32:
		return "INTEGER"
	case value.KindInt64:
		if dialect == Postgres {
			return "BIGINT"
		}
		return "INTEGER"
	case value.KindFloat32:
		return "REAL"
	case value.KindFloat64:
		if dialect == Postgres {
			return "DOUBLE PRECISION"
		}
		return "REAL"
	case value.KindDecimal:
		return "NUMERIC"
	case value.KindDate:
		return "DATE"
	case value.KindDateTime:
		if dialect == Postgres {
			return "TIMESTAMPTZ"
		}
		return "DATETIME"
	case value.KindObjectID:
		return "CHAR(24)"
	default:
		return "TEXT"
	}
}

// driverValue converts a decoded Value into the plain Go type
// database/sql accepts as a bind parameter.
func driverValue(v value.Value) (any, error) {
	switch v := v.(type) {
	case nil:
		return nil, nil
	case value.Null:
		return nil, nil
	case value.Bool:
		return bool(v), nil
	case value.Int32:
		return int32(v), nil
	case value.Int64:
		return int64(v), nil
	case value.Float32:
		return float32(v), nil
	case value.Float64:
		return float64(v), nil
	case value.Decimal:
		return v.D.String(), nil
	case value.String:
		return string(v), nil
	case value.Date:
		return v.String(), nil
	case value.DateTime:
		return v.T, nil
	case value.ObjectID:
		return v.String(), nil
	default:
		return nil, keel.New(keel.KindUnexpectedInputType, "sqlconn: field kind %s has no SQL representation", v.Kind())
	}
}

// scanDest returns a pointer database/sql can Scan into for field, and a
// closure converting the scanned destination back into a Value. Every
// destination is a nullable database/sql type, since a column may hold
// SQL NULL regardless of the field's own Optional flag (a column only
// just migrated onto existing rows, for instance).
func scanDest(field *schema.Field) (dest any, toValue func() value.Value) {
	switch field.Type.Kind {
	case value.KindBool:
		var d sql.NullBool
		return &d, func() value.Value {
			if !d.Valid {
				return value.Null{}
			}
			return value.Bool(d.Bool)
		}
	case value.KindInt32:
		var d sql.NullInt64
		return &d, func() value.Value {
			if !d.Valid {
				return value.Null{}
			}
			return value.Int32(int32(d.Int64))
		}
	case value.KindInt64:
		var d sql.NullInt64
		return &d, func() value.Value {
			if !d.Valid {
				return value.Null{}
			}
			return value.Int64(d.Int64)
		}
	case value.KindFloat32, value.KindFloat64:
		var d sql.NullFloat64
		return &d, func() value.Value {
			if !d.Valid {
				return value.Null{}
			}
			if field.Type.Kind == value.KindFloat32 {
				return value.Float32(float32(d.Float64))
			}
			return value.Float64(d.Float64)
		}
	case value.KindDecimal:
		var d sql.NullString
		return &d, func() value.Value {
			if !d.Valid {
				return value.Null{}
			}
			dec, err := decimal.NewFromString(d.String)
			if err != nil {
				return value.Null{}
			}
			return value.NewDecimal(dec)
		}
	case value.KindDateTime:
		var d sql.NullTime
		return &d, func() value.Value {
			if !d.Valid {
				return value.Null{}
			}
			return value.NewDateTime(d.Time)
		}
	case value.KindDate:
		var d sql.NullString
		return &d, func() value.Value {
			if !d.Valid {
				return value.Null{}
			}
			t, err := time.Parse("2006-01-02", d.String)
			if err != nil {
				return value.Null{}
			}
			return value.DateOf(t)
		}
	case value.KindObjectID:
		var d sql.NullString
		return &d, func() value.Value {
			if !d.Valid {
				return value.Null{}
			}
			raw, err := hex.DecodeString(d.String)
			if err != nil || len(raw) != 12 {
				return value.Null{}
			}
			var oid value.ObjectID
			copy(oid[:], raw)
			return oid
		}
	default: // KindString and anything stored as text
		var d sql.NullString
		return &d, func() value.Value {
			if !d.Valid {
				return value.Null{}
			}
			return value.String(d.String)
		}
	}
}

