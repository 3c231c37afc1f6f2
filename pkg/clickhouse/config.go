package clickhouse

import "time"

// ClientConfig is the connection and session settings for one pool.
type ClientConfig struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	UseHTTP  bool

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	DialTimeout time.Duration
	ReadTimeout time.Duration
	MaxExecTime time.Duration

	AsyncInsert  bool
	WaitForAsync bool
}

func defaultClientConfig() ClientConfig {
	return ClientConfig{
		Port:            9000,
		Database:        "default",
		User:            "default",
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     10 * time.Second,
	}
}

// ClientOption configures Client.
type ClientOption func(*ClientConfig)

// WithServer sets the address and selects the native or HTTP protocol.
func WithServer(host string, port int, useHTTP bool) ClientOption {
	return func(c *ClientConfig) {
		c.Host = host
		if port > 0 {
			c.Port = port
		}
		c.UseHTTP = useHTTP
	}
}

// WithAuth sets the database and the credentials used for it.
func WithAuth(database, user, password string) ClientOption {
	return func(c *ClientConfig) {
		if database != "" {
			c.Database = database
		}
		if user != "" {
			c.User = user
		}
		c.Password = password
	}
}

func WithPool(maxOpen, maxIdle int) ClientOption {
	return func(c *ClientConfig) {
		c.MaxOpenConns = maxOpen
		c.MaxIdleConns = maxIdle
	}
}

// WithLimits sets dial, read and per-query execution limits. Zero keeps the
// default.
func WithLimits(dial, read, maxExec time.Duration) ClientOption {
	return func(c *ClientConfig) {
		if dial > 0 {
			c.DialTimeout = dial
		}
		if read > 0 {
			c.ReadTimeout = read
		}
		c.MaxExecTime = maxExec
	}
}

// WithAsyncInsert turns on server-side insert buffering for audit writes.
func WithAsyncInsert(enabled, wait bool) ClientOption {
	return func(c *ClientConfig) {
		c.AsyncInsert = enabled
		c.WaitForAsync = wait
	}
}
