// Package conn manages the PostgreSQL connection for result persistence.
package conn

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	defaultHost    = "localhost"
	defaultPort    = 5432
	defaultSSLMode = "disable"
)

// Option defines connection options. DSN, when set, wins over the
// individual fields.
type Option struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	Config   *gorm.Config
}

// Client wraps a PostgreSQL connection pool.
type Client struct {
	db *gorm.DB
}

// New opens a PostgreSQL connection pool from the provided options.
func New(option Option) (*Client, error) {
	config := option.Config
	if config == nil {
		config = &gorm.Config{}
	}

	db, err := gorm.Open(postgres.Open(option.dsn()), config)
	if err != nil {
		return nil, err
	}
	return &Client{db: db}, nil
}

// DB returns the underlying gorm.DB instance.
func (c *Client) DB() *gorm.DB {
	if c == nil {
		return nil
	}
	return c.db
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (opt Option) dsn() string {
	if opt.DSN != "" {
		return opt.DSN
	}

	host := opt.Host
	if host == "" {
		host = defaultHost
	}
	port := opt.Port
	if port == 0 {
		port = defaultPort
	}
	sslMode := opt.SSLMode
	if sslMode == "" {
		sslMode = defaultSSLMode
	}

	parts := []string{
		"host=" + host,
		fmt.Sprintf("port=%d", port),
		"sslmode=" + sslMode,
	}
	if opt.User != "" {
		parts = append(parts, "user="+opt.User)
	}
	if opt.Password != "" {
		parts = append(parts, "password="+opt.Password)
	}
	if opt.Database != "" {
		parts = append(parts, "dbname="+opt.Database)
	}
	return strings.Join(parts, " ")
}
