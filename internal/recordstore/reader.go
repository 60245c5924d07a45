package recordstore

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vmihailenco/msgpack/v5"
)

// ReadAll opens a per-class sqlite file read-only and decodes every row
// in id order (ascending, i.e. the order records were originally
// appended), calling fn with each decoded record.
func ReadAll(path string, fn func(raw map[string]any) error) error {
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("opening record store %s: %w", path, err)
	}
	defer db.Close()

	rows, err := db.Query("SELECT result FROM results ORDER BY id ASC")
	if err != nil {
		return fmt.Errorf("reading record store %s: %w", path, err)
	}
	defer rows.Close()

	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return fmt.Errorf("scanning row in %s: %w", path, err)
		}

		var raw map[string]any
		if err := msgpack.Unmarshal(blob, &raw); err != nil {
			return fmt.Errorf("decoding row in %s: %w", path, err)
		}

		if err := fn(raw); err != nil {
			return err
		}
	}
	return rows.Err()
}
