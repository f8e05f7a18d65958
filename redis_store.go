package lotto

import (
	"context"
	"errors"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/go-redis/redis/v8"
)

// RedisStore keeps records in Redis.
//
// Encoded records live in the hash RecordsKey keyed by ID; the sorted set
// RecordsOrderKey orders IDs by creation time. Transient Redis errors are
// retried with exponential backoff.
type RedisStore struct {
	redisClient    *redis.Client
	logger         Logger
	retryAttempts  int
	retryBaseDelay time.Duration
	feed           recordFeed
}

// NewRedisStore creates a Redis-backed store
func NewRedisStore(redisClient *redis.Client, logger Logger) *RedisStore {
	return NewRedisStoreWithRetry(redisClient, logger, DefaultRetryAttempts, DefaultRetryInterval)
}

// NewRedisStoreWithRetry creates a Redis-backed store with custom retry settings
func NewRedisStoreWithRetry(redisClient *redis.Client, logger Logger, retryAttempts int, retryDelay time.Duration) *RedisStore {
	if logger == nil {
		logger = NewSilentLogger()
	}
	if retryAttempts < 0 {
		retryAttempts = 0
	}
	if retryAttempts > MaxRetryAttempts {
		retryAttempts = MaxRetryAttempts
	}

	return &RedisStore{
		redisClient:    redisClient,
		logger:         logger,
		retryAttempts:  retryAttempts,
		retryBaseDelay: retryDelay,
	}
}

// orderScore is the sorted set score for a record
func orderScore(record EntryRecord) float64 {
	return float64(record.Date.UnixMicro())
}

// executeWithRetry executes a Redis operation with retry logic using exponential backoff
func (s *RedisStore) executeWithRetry(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	startTime := time.Now()

	for attempt := 0; attempt <= s.retryAttempts; attempt++ {
		if attempt > 0 {
			// baseDelay * 2^(attempt-1), capped
			delay := time.Duration(1<<(attempt-1)) * s.retryBaseDelay
			if delay > MaxRetryDelay {
				delay = MaxRetryDelay
			}

			s.logger.Debug("Retrying %s operation (attempt %d/%d) after %v, total elapsed: %v",
				operation, attempt, s.retryAttempts, delay, time.Since(startTime))

			select {
			case <-ctx.Done():
				return crerr.Wrapf(ctx.Err(), "context cancelled during retry for %s operation (attempt %d/%d)",
					operation, attempt, s.retryAttempts+1)
			case <-time.After(delay):
			}
		}

		err := fn()
		if err == nil {
			if attempt > 0 {
				s.logger.Info("Completed %s operation after %d retries (total time: %v)",
					operation, attempt, time.Since(startTime))
			}
			return nil
		}
		lastErr = err

		if errors.Is(err, redis.Nil) || !IsRetryableError(err) {
			s.logger.Debug("Non-retriable error for %s operation (attempt %d): %v", operation, attempt+1, err)
			break
		}

		if attempt == s.retryAttempts {
			s.logger.Error("Final retry attempt failed for %s operation (attempt %d/%d): %v",
				operation, attempt+1, s.retryAttempts+1, err)
		}
	}

	return crerr.Wrapf(lastErr, "%s operation failed after %v", operation, time.Since(startTime))
}

// The record scripts check key types before the first write so a script
// either applies every command or none of them.
const (
	insertRecordScript = `
local kind = redis.call('TYPE', KEYS[2]).ok
if kind ~= 'zset' and kind ~= 'none' then
	return redis.error_reply('WRONGTYPE ' .. KEYS[2] .. ' is not a sorted set')
end
if redis.call('HSETNX', KEYS[1], ARGV[1], ARGV[2]) == 0 then
	return 0
end
redis.call('ZADD', KEYS[2], ARGV[3], ARGV[1])
return 1
`

	replaceRecordScript = `
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
return 1
`

	deleteRecordScript = `
local kind = redis.call('TYPE', KEYS[2]).ok
if kind ~= 'zset' and kind ~= 'none' then
	return redis.error_reply('WRONGTYPE ' .. KEYS[2] .. ' is not a sorted set')
end
if redis.call('HDEL', KEYS[1], ARGV[1]) == 0 then
	return 0
end
redis.call('ZREM', KEYS[2], ARGV[1])
return 1
`
)

// evalRecordScript runs one of the record scripts and reports whether it changed anything
func (s *RedisStore) evalRecordScript(ctx context.Context, operation, script string, args ...any) (bool, error) {
	var changed int64
	err := s.executeWithRetry(ctx, operation, func() error {
		n, err := s.redisClient.Eval(ctx, script, []string{RecordsKey, RecordsOrderKey}, args...).Int64()
		changed = n
		return err
	})
	return changed == 1, err
}

// Insert adds a new record. The hash entry and its order entry are written
// together or not at all.
func (s *RedisStore) Insert(ctx context.Context, record EntryRecord) error {
	data, err := encodeRecord(record)
	if err != nil {
		return err
	}

	created, err := s.evalRecordScript(ctx, "insert", insertRecordScript, record.ID, string(data), orderScore(record))
	if err != nil {
		return ErrStoreSaveFailure.WithOperation("Insert").WithDetails(record.ID).WithCause(err)
	}
	if !created {
		return ErrRecordExists.WithDetails(record.ID)
	}

	s.logger.Debug("Inserted record %s", record.ID)
	s.publish(ctx)
	return nil
}

// Replace overwrites the record with the same ID
func (s *RedisStore) Replace(ctx context.Context, record EntryRecord) error {
	data, err := encodeRecord(record)
	if err != nil {
		return err
	}

	replaced, err := s.evalRecordScript(ctx, "replace", replaceRecordScript, record.ID, string(data))
	if err != nil {
		return ErrStoreSaveFailure.WithOperation("Replace").WithDetails(record.ID).WithCause(err)
	}
	if !replaced {
		return ErrRecordNotFound.WithDetails(record.ID)
	}

	s.publish(ctx)
	return nil
}

// Delete removes a record and its order entry by ID
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	removed, err := s.evalRecordScript(ctx, "delete", deleteRecordScript, id)
	if err != nil {
		return ErrStoreSaveFailure.WithOperation("Delete").WithDetails(id).WithCause(err)
	}
	if !removed {
		return ErrRecordNotFound.WithDetails(id)
	}

	s.publish(ctx)
	return nil
}

// DeleteAll removes every record
func (s *RedisStore) DeleteAll(ctx context.Context) error {
	err := s.executeWithRetry(ctx, "delete-all", func() error {
		return s.redisClient.Del(ctx, RecordsKey, RecordsOrderKey).Err()
	})
	if err != nil {
		return ErrStoreSaveFailure.WithOperation("DeleteAll").WithCause(err)
	}

	s.publish(ctx)
	return nil
}

// Get loads a record by ID
func (s *RedisStore) Get(ctx context.Context, id string) (EntryRecord, error) {
	var data []byte
	err := s.executeWithRetry(ctx, "get", func() error {
		b, err := s.redisClient.HGet(ctx, RecordsKey, id).Bytes()
		data = b
		return err
	})
	if errors.Is(err, redis.Nil) {
		return EntryRecord{}, ErrRecordNotFound.WithDetails(id)
	}
	if err != nil {
		return EntryRecord{}, ErrStoreLoadFailure.WithOperation("Get").WithDetails(id).WithCause(err)
	}

	return decodeRecord(data)
}

// List returns all records ordered by creation date
func (s *RedisStore) List(ctx context.Context) ([]EntryRecord, error) {
	var ids []string
	err := s.executeWithRetry(ctx, "list-order", func() error {
		res, err := s.redisClient.ZRange(ctx, RecordsOrderKey, 0, -1).Result()
		ids = res
		return err
	})
	if err != nil {
		return nil, ErrStoreLoadFailure.WithOperation("List").WithCause(err)
	}
	if len(ids) == 0 {
		return []EntryRecord{}, nil
	}

	var values []any
	err = s.executeWithRetry(ctx, "list", func() error {
		res, err := s.redisClient.HMGet(ctx, RecordsKey, ids...).Result()
		values = res
		return err
	})
	if err != nil {
		return nil, ErrStoreLoadFailure.WithOperation("List").WithCause(err)
	}

	records := make([]EntryRecord, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			s.logger.Warn("Record %s is ordered but missing from %s", ids[i], RecordsKey)
			continue
		}
		record, err := decodeRecord([]byte(raw))
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	sortRecords(records)
	return records, nil
}

// Subscribe registers fn for collection changes made through this store
func (s *RedisStore) Subscribe(fn func([]EntryRecord)) func() {
	return s.feed.subscribe(fn)
}

// Ping checks the Redis connection
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.redisClient.Ping(ctx).Err(); err != nil {
		return ErrRedisConnectionFailed.WithCause(err)
	}
	return nil
}

// publish sends the current collection to subscribers, if any
func (s *RedisStore) publish(ctx context.Context) {
	if err := s.feed.reload(func() ([]EntryRecord, error) { return s.List(ctx) }); err != nil {
		s.logger.Error("Failed to reload records for subscribers: %v", err)
	}
}
