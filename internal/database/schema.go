package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS restaurants (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		open_hour TINYINT NOT NULL,
		close_hour TINYINT NOT NULL
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS tables (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		restaurant_id BIGINT UNSIGNED NOT NULL,
		number_of_seats INT NOT NULL,
		number INT NOT NULL,
		UNIQUE KEY uq_tables_number (number),
		CONSTRAINT fk_tables_restaurant FOREIGN KEY (restaurant_id) REFERENCES restaurants(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		main_guest_name VARCHAR(255) NOT NULL,
		number_of_customers INT NOT NULL,
		table_id BIGINT UNSIGNED NOT NULL,
		start_time DATETIME NOT NULL,
		end_time DATETIME NOT NULL,
		UNIQUE KEY uq_reservations_table_start (table_id, start_time),
		KEY idx_reservations_window (start_time, end_time),
		CONSTRAINT fk_reservations_table FOREIGN KEY (table_id) REFERENCES tables(id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS users (
		id BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		e_number INT NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(16) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		UNIQUE KEY uq_users_e_number (e_number)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS restaurants (
		id BIGSERIAL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		open_hour SMALLINT NOT NULL,
		close_hour SMALLINT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tables (
		id BIGSERIAL PRIMARY KEY,
		restaurant_id BIGINT NOT NULL REFERENCES restaurants(id),
		number_of_seats INT NOT NULL,
		number INT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS reservations (
		id BIGSERIAL PRIMARY KEY,
		main_guest_name VARCHAR(255) NOT NULL,
		number_of_customers INT NOT NULL,
		table_id BIGINT NOT NULL REFERENCES tables(id),
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		UNIQUE (table_id, start_time)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_reservations_window ON reservations (start_time, end_time)`,
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		e_number INT NOT NULL UNIQUE,
		password_hash VARCHAR(255) NOT NULL,
		role VARCHAR(16) NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
}

// Schema returns the DDL statements for driver, in creation order.
func Schema(driver string) ([]string, error) {
	switch driver {
	case "mysql":
		return mysqlSchema, nil
	case "postgres":
		return postgresSchema, nil
	}
	return nil, fmt.Errorf("database: no schema for driver %q", driver)
}

// Migrate creates any missing tables.  Every statement is idempotent.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	stmts, err := Schema(db.DriverName())
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("database: migrate: %w", err)
		}
	}
	return nil
}
