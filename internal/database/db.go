// Package database opens the store of record.  MySQL and Postgres are
// supported; either handle may be wrapped for AWS X-Ray tracing.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/aws/aws-xray-sdk-go/xray"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/iliyamo/table-reservation/internal/config"
)

// DSN builds the driver-specific connection string.
func DSN(cfg config.DBConfig) (string, error) {
	switch cfg.Driver {
	case config.DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = cfg.User
		mc.Passwd = cfg.Pass
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(cfg.Host, cfg.Port)
		mc.DBName = cfg.Name
		// parseTime -> DATETIME -> time.Time; Loc stays UTC so naive times are not shifted
		mc.ParseTime = true
		mc.Loc = time.UTC
		mc.Params = map[string]string{"charset": "utf8mb4"}
		return mc.FormatDSN(), nil
	case config.DriverPostgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(cfg.User, cfg.Pass),
			Host:     net.JoinHostPort(cfg.Host, cfg.Port),
			Path:     "/" + cfg.Name,
			RawQuery: url.Values{"sslmode": {cfg.SSLMode}, "timezone": {"UTC"}}.Encode(),
		}
		return u.String(), nil
	}
	return "", fmt.Errorf("database: unsupported driver %q", cfg.Driver)
}

// Open connects and verifies the connection.  With traced set every query
// is recorded as an X-Ray subsegment of the request that issued it.
func Open(ctx context.Context, cfg config.DBConfig, traced bool) (*sqlx.DB, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	var raw *sql.DB
	if traced {
		raw, err = xray.SQLContext(cfg.Driver, dsn)
	} else {
		raw, err = sql.Open(cfg.Driver, dsn)
	}
	if err != nil {
		return nil, err
	}
	db := sqlx.NewDb(raw, cfg.Driver)

	// Pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(30 * time.Minute)

	// Ping with timeout
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
