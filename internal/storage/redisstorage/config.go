package redisstorage

// Config stores the redis connection and stream settings.
type Config struct {
	// Host:Port address
	Addr string

	// Username for ACL
	Username string

	// Password for ACL
	Password string

	// DB index
	DB int

	// Stream receiving token summaries.
	Stream string

	// MaxLen caps the stream approximately. Zero leaves it uncapped.
	MaxLen int64
}

const (
	DefaultStream = "token_summaries"
	DefaultMaxLen = 100_000
)
