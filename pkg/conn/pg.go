package conn

import (
	"fmt"
	"net/url"
	"sort"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"hftexec/internal/errors"
)

// Option configures the cache database. Dialector replaces the postgres
// driver; tests pass sqlite.
type Option struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	Params          map[string]string
	ConnString      string
	Config          *gorm.Config
	Dialector       gorm.Dialector
	MaxConns        int
	ConnMaxLifetime time.Duration
}

// Client owns one gorm pool.
type Client struct {
	db *gorm.DB
}

func New(option Option) (*Client, error) {
	dialector := option.Dialector
	if dialector == nil {
		dialector = postgres.Open(option.dsn())
	}

	cfg := option.Config
	if cfg == nil {
		// Cache writes run on the engine path; keep gorm from logging each one.
		cfg = &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}
	}

	db, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "open cache database")
	}

	pool, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "cache database pool")
	}
	if option.MaxConns > 0 {
		pool.SetMaxOpenConns(option.MaxConns)
		pool.SetMaxIdleConns(option.MaxConns)
	}
	if option.ConnMaxLifetime > 0 {
		pool.SetConnMaxLifetime(option.ConnMaxLifetime)
	}
	return &Client{db: db}, nil
}

func (c *Client) DB() *gorm.DB {
	if c == nil {
		return nil
	}
	return c.db
}

func (c *Client) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	pool, err := c.db.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}

// dsn renders a postgres URL, filling localhost:5432 and sslmode=disable.
func (opt Option) dsn() string {
	if opt.ConnString != "" {
		return opt.ConnString
	}

	host, port, sslMode := opt.Host, opt.Port, opt.SSLMode
	if host == "" {
		host = "localhost"
	}
	if port == 0 {
		port = 5432
	}
	if sslMode == "" {
		sslMode = "disable"
	}

	u := url.URL{Scheme: "postgres", Host: fmt.Sprintf("%s:%d", host, port)}
	switch {
	case opt.User != "" && opt.Password != "":
		u.User = url.UserPassword(opt.User, opt.Password)
	case opt.User != "":
		u.User = url.User(opt.User)
	}
	if opt.Database != "" {
		u.Path = "/" + opt.Database
	}

	q := url.Values{"sslmode": {sslMode}}
	keys := make([]string, 0, len(opt.Params))
	for k := range opt.Params {
		if k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		q.Set(k, opt.Params[k])
	}
	u.RawQuery = q.Encode()
	return u.String()
}
