package lotto

import "time"

const (
	// NumbersPerEntry is the number of picks on a single ticket line
	NumbersPerEntry = 6

	// MinNumber is the lowest number that can be played
	MinNumber = 1

	// MaxNumber is the highest number that can be played
	MaxNumber = 49

	// SentinelToken replaces every winning number when a draw cannot be extracted
	SentinelToken = "?"
)

const (
	// ResultsPageURL is the public page the latest draw is scraped from
	ResultsPageURL = "https://www.lotto.pl/lotto/wyniki-i-wygrane"

	// DefaultUserAgent identifies the client on every results page request
	DefaultUserAgent = "lotto-tracker/1.0 (+https://github.com/kydenul/lotto)"

	// DefaultFetchWorkers is the default size of the network goroutine pool
	DefaultFetchWorkers = 4

	// MaxFetchWorkers caps the configurable network goroutine pool
	MaxFetchWorkers = 64

	// DefaultDispatchQueueSize is the initial capacity of the serial dispatcher queue
	DefaultDispatchQueueSize = 64
)

const (
	// DefaultSelectorVersion identifies the built-in selector set
	DefaultSelectorVersion = "v1"

	// DefaultContainerSelector locates the block holding the latest draw
	DefaultContainerSelector = "div.wynik_lotto"

	// DefaultDateSelector locates the draw date inside the container
	DefaultDateSelector = "div.date"

	// DefaultNumberSelector locates every winning number inside the container
	DefaultNumberSelector = "span.number"
)

const (
	// RecordsKey is the Redis hash holding encoded records by id
	RecordsKey = "lotto:records"

	// RecordsOrderKey is the Redis sorted set ordering record ids by creation time
	RecordsOrderKey = "lotto:records:order"

	// DefaultRetryAttempts is the default number of retry attempts for store operations
	DefaultRetryAttempts = 3

	// DefaultRetryInterval is the default base interval between store retries
	DefaultRetryInterval = 100 * time.Millisecond

	// MaxRetryAttempts is the maximum number of store retry attempts allowed
	MaxRetryAttempts = 10

	// MaxRetryDelay caps the exponential backoff between store retries
	MaxRetryDelay = 5 * time.Second

	// MaxRecordSize is the maximum allowed size of an encoded record
	MaxRecordSize = 64 * 1024

	// DefaultSQLitePath is the database file used when none is configured
	DefaultSQLitePath = "lotto.db"
)

const (
	// DefaultCircuitBreakerName is the default name for the fetch circuit breaker
	DefaultCircuitBreakerName = "lotto-results"

	// DefaultCircuitBreakerMaxRequests is the default max requests in half-open state
	DefaultCircuitBreakerMaxRequests = 1

	// DefaultCircuitBreakerInterval is the default counting interval
	DefaultCircuitBreakerInterval = 60 * time.Second

	// DefaultCircuitBreakerTimeout is the default open-state duration
	DefaultCircuitBreakerTimeout = 30 * time.Second

	// DefaultCircuitBreakerFailureRatio is the default failure ratio
	DefaultCircuitBreakerFailureRatio = 0.6

	// DefaultCircuitBreakerMinRequests is the default min requests before tripping
	DefaultCircuitBreakerMinRequests = 3

	// DefaultCircuitBreakerOnStateChange is the default on state change logging
	DefaultCircuitBreakerOnStateChange = true
)

const (
	DefaultRedisAddr         = "localhost:6379"
	DefaultRedisPassword     = ""
	DefaultRedisDB           = 0
	DefaultRedisPoolSize     = 10
	DefaultRedisMinIdleConns = 2
	DefaultRedisMaxRetries   = 3
	DefaultRedisDialTimeout  = 5 * time.Second
	DefaultRedisReadTimeout  = 3 * time.Second
	DefaultRedisWriteTimeout = 3 * time.Second
	DefaultRedisPoolTimeout  = 4 * time.Second
)
