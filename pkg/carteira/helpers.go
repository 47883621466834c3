package carteira

import (
	"database/sql"
	"strings"
)

func normalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

func normalizeClass(class string) string {
	return strings.ToLower(strings.TrimSpace(class))
}

func isValidOperation(op string) bool {
	for _, v := range Operations {
		if v == op {
			return true
		}
	}
	return false
}

func isValidClass(class string) bool {
	for _, v := range EquityClasses {
		if v == class {
			return true
		}
	}
	return false
}

// assetRefFromIDs rebuilds the tagged reference from the two nullable FK
// columns. Exactly one must be set; the schema enforces this by CHECK.
func assetRefFromIDs(equityID, instrumentID *int64) AssetRef {
	if equityID != nil {
		return NewEquityRef(*equityID)
	}
	if instrumentID != nil {
		return NewInstrumentRef(*instrumentID)
	}
	return AssetRef{}
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	if strings.TrimSpace(*value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func nullInt64(value *int64) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *value, Valid: true}
}

func stringPtr(s string) *string {
	return &s
}

func int64Ptr(i int64) *int64 {
	return &i
}
