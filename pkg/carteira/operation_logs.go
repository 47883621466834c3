package carteira

import "database/sql"

// AddOperationLog adds a new operation log entry.
func (c *Core) AddOperationLog(log OperationLog) (int64, error) {
	result, err := c.db.Exec(`
		INSERT INTO operation_logs (operation_type, asset, details, old_value, new_value)
		VALUES (?, ?, ?, ?, ?)
	`, log.Operation, nullString(log.Asset), nullString(log.Details), log.OldValue, log.NewValue)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetOperationLogs returns recent operation logs.
func (c *Core) GetOperationLogs(limit, offset int) ([]OperationLog, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := c.db.Query(`
		SELECT id, operation_type, asset, details, old_value, new_value, created_at
		FROM operation_logs
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []OperationLog
	for rows.Next() {
		var log OperationLog
		var asset, details, createdAt sql.NullString
		var oldValue, newValue sql.NullFloat64
		if err := rows.Scan(&log.ID, &log.Operation, &asset, &details, &oldValue, &newValue, &createdAt); err != nil {
			return nil, err
		}
		if asset.Valid {
			log.Asset = &asset.String
		}
		if details.Valid {
			log.Details = &details.String
		}
		if oldValue.Valid {
			log.OldValue = amountPtr(NewAmount(oldValue.Float64))
		}
		if newValue.Valid {
			log.NewValue = amountPtr(NewAmount(newValue.Float64))
		}
		if createdAt.Valid {
			log.CreatedAt = &createdAt.String
		}
		logs = append(logs, log)
	}
	return logs, rows.Err()
}
