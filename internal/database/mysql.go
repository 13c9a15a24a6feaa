package database

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func openMySQL(cfg Config) (*gorm.DB, error) {
	dsn, err := buildMySQLDSN(cfg)
	if err != nil {
		return nil, err
	}
	return gorm.Open(mysql.Open(dsn), &gorm.Config{})
}

func buildMySQLDSN(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}

	if cfg.User == "" || cfg.Name == "" {
		return "", errors.New("mysql configuration requires user and database name")
	}

	host := cfg.Host
	if host == "" {
		host = "127.0.0.1"
	}

	port := cfg.Port
	if port == 0 {
		port = 3306
	}

	// Favorite and cache timestamps are stored in UTC, so the session
	// location must match or parseTime shifts them on the way back out.
	defaults := map[string]string{
		"charset":   "utf8mb4",
		"parseTime": "True",
		"loc":       "UTC",
	}

	var dsn strings.Builder
	dsn.WriteString(cfg.User)
	if cfg.Password != "" {
		dsn.WriteString(":")
		dsn.WriteString(cfg.Password)
	}
	fmt.Fprintf(&dsn, "@tcp(%s:%d)/%s?", host, port, cfg.Name)
	dsn.WriteString(strings.Join(sortedPairs(defaults, cfg.Options, "="), "&"))

	return dsn.String(), nil
}
