package database

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open はクライアント状態DB（SQLite）への接続を開く。
// pathにはDBファイルのパスを指定する（例: "manabu.db"、テストでは一時ファイル）。
// SQLiteは同時書き込みに弱いため、接続数を1に制限する。
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	db.SetMaxOpenConns(1)

	return db, nil
}
