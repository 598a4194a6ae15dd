package mysql

import (
	"fmt"
	"strings"
)

const schemaTemplate = `CREATE TABLE IF NOT EXISTS %s (
	id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT,
	job_type VARCHAR(255) NOT NULL,
	method VARCHAR(255) NOT NULL,
	arguments JSON NOT NULL,
	queue VARCHAR(128) NOT NULL DEFAULT 'default',
	schedule_at TIMESTAMP(6) NULL,
	delay_ms BIGINT NULL,
	processed TINYINT(1) NOT NULL DEFAULT 0,
	scheduler_job_id VARCHAR(128) NULL,
	last_error VARCHAR(1024) NULL,
	created_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
	updated_at TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6) ON UPDATE CURRENT_TIMESTAMP(6),
	processed_at TIMESTAMP(6) NULL,
	PRIMARY KEY (id),
	INDEX idx_pending (processed, created_at, id),
	INDEX idx_processed_at (processed, processed_at)
);`

// Schema returns the DDL for an outbox table.
func Schema(table string) (string, error) {
	name, err := sanitizeTableName(table)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf(schemaTemplate, name), nil
}

func sanitizeTableName(name string) (string, error) {
	if name == "" {
		return "", ErrTableNameRequired
	}
	for _, part := range strings.Split(name, ".") {
		if part == "" || !isIdentifier(part) {
			return "", fmt.Errorf("%w: %s", ErrInvalidTableName, name)
		}
	}

	return name, nil
}

func isIdentifier(part string) bool {
	for _, r := range part {
		if r == '_' || (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			continue
		}

		return false
	}

	return true
}
