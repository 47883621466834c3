package carteira

import (
	"database/sql"
	"fmt"
)

// AddAccount inserts a new broker account and returns its ID.
func (c *Core) AddAccount(account Account) (int64, error) {
	if account.Name == "" {
		return 0, NewError(ErrCodeInvalidInput, "account name is required")
	}
	result, err := c.db.Exec(`
		INSERT INTO accounts (name, broker)
		VALUES (?, ?)
	`, account.Name, nullString(account.Broker))
	if err != nil {
		return 0, WrapError(ErrCodeDatabase, "insert account", err)
	}
	return result.LastInsertId()
}

// GetAccounts returns all accounts.
func (c *Core) GetAccounts() ([]Account, error) {
	rows, err := c.db.Query("SELECT id, name, broker, created_at FROM accounts ORDER BY name, id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var acc Account
		var broker, createdAt sql.NullString
		if err := rows.Scan(&acc.ID, &acc.Name, &broker, &createdAt); err != nil {
			return nil, err
		}
		if broker.Valid {
			acc.Broker = &broker.String
		}
		if createdAt.Valid {
			acc.CreatedAt = &createdAt.String
		}
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

// CheckAccountInUse returns true if the account has positions.
func (c *Core) CheckAccountInUse(accountID int64) (bool, error) {
	var count int
	if err := c.db.QueryRow("SELECT COUNT(*) FROM positions WHERE account_id = ?", accountID).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// DeleteAccount deletes an account if unused.
func (c *Core) DeleteAccount(accountID int64) (bool, string, error) {
	inUse, err := c.CheckAccountInUse(accountID)
	if err != nil {
		return false, "", err
	}
	if inUse {
		return false, "Cannot delete: positions exist for this account", nil
	}
	result, err := c.db.Exec("DELETE FROM accounts WHERE id = ?", accountID)
	if err != nil {
		return false, "", err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, "", err
	}
	if rows > 0 {
		return true, "Account deleted", nil
	}
	return false, "Account not found", nil
}

func accountExistsTx(tx *sql.Tx, accountID int64) (bool, error) {
	var exists int
	err := tx.QueryRow("SELECT 1 FROM accounts WHERE id = ?", accountID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup account: %w", err)
	}
	return true, nil
}
