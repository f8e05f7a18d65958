package lotto

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
)

// setupBenchmarkRedisClient 创建用于基准测试的Redis客户端
func setupBenchmarkRedisClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         "localhost:6379",
		DB:           2, // 使用专门的基准测试数据库
		PoolSize:     20,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
}

// BenchmarkValidate 批量校验性能基准测试
func BenchmarkValidate(b *testing.B) {
	v := NewEntryValidator()

	for _, size := range []int{1, 10, 100} {
		candidates := make([]Candidate, size)
		for i := range candidates {
			candidates[i] = Candidate{Text: "49 1 25 2 48 3", Plus: i%2 == 0}
		}

		b.Run(fmt.Sprintf("batch_%d", size), func(b *testing.B) {
			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := v.Validate(candidates); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

// BenchmarkParse 开奖页解析性能基准测试
func BenchmarkParse(b *testing.B) {
	p, err := NewResultParser(nil, NewSilentLogger())
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if r := p.Parse(resultsPage); !r.OK() {
			b.Fatal(r.ErrorMessage)
		}
	}
}

// BenchmarkStores 存储写入性能基准测试
func BenchmarkStores(b *testing.B) {
	ctx := context.Background()

	b.Run("memory", func(b *testing.B) {
		benchmarkInsert(b, NewMemoryStore())
	})

	b.Run("sqlite", func(b *testing.B) {
		s, err := OpenSQLiteStore(":memory:", NewSilentLogger())
		if err != nil {
			b.Fatal(err)
		}
		defer s.Close()
		benchmarkInsert(b, s)
	})

	b.Run("redis", func(b *testing.B) {
		rdb := setupBenchmarkRedisClient()
		defer rdb.Close()

		if _, err := rdb.Ping(ctx).Result(); err != nil {
			b.Skip("Redis不可用，跳过基准测试")
		}
		s := NewRedisStore(rdb, NewSilentLogger())
		defer s.DeleteAll(ctx)
		benchmarkInsert(b, s)
	})
}

func benchmarkInsert(b *testing.B, s Store) {
	ctx := context.Background()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := s.Insert(ctx, storeRecord(fmt.Sprintf("bench-%d", i), i)); err != nil {
			b.Fatal(err)
		}
	}
}
