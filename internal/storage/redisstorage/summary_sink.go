// Package redisstorage appends token summaries to a capped Redis stream.
package redisstorage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"solana-token-aggregator/internal/domain"
	"solana-token-aggregator/internal/storage"
)

// SummarySink writes each summary as one XADD entry.
type SummarySink struct {
	client redis.UniversalClient
	stream string
	maxLen int64
}

var _ storage.SummarySink = (*SummarySink)(nil)

// NewClient connects to redis and verifies the connection.
func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("cannot connect to redis server: %w", err)
	}
	return client, nil
}

// NewSummarySink creates a sink on an existing client.
// An empty Stream uses DefaultStream; a negative MaxLen uses DefaultMaxLen.
func NewSummarySink(client redis.UniversalClient, cfg Config) *SummarySink {
	stream := cfg.Stream
	if stream == "" {
		stream = DefaultStream
	}
	maxLen := cfg.MaxLen
	if maxLen < 0 {
		maxLen = DefaultMaxLen
	}
	return &SummarySink{client: client, stream: stream, maxLen: maxLen}
}

// Append adds one stream entry. The stream is trimmed approximately to maxLen.
func (s *SummarySink) Append(ctx context.Context, sum *domain.TokenSummary) error {
	if sum == nil || sum.Mint == "" {
		return storage.ErrInvalidInput
	}

	payload, err := json.Marshal(sum)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]interface{}{
			"id":          sum.ID,
			"mint":        sum.Mint,
			"source":      string(sum.Source),
			"verified":    strconv.FormatBool(sum.IsVerified),
			"text":        sum.Text,
			"recorded_at": sum.RecordedAt,
			"payload":     payload,
		},
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = true
	}

	if err := s.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", s.stream, err)
	}
	return nil
}

// Recent returns up to count summaries, newest first.
func (s *SummarySink) Recent(ctx context.Context, count int64) ([]*domain.TokenSummary, error) {
	msgs, err := s.client.XRevRangeN(ctx, s.stream, "+", "-", count).Result()
	if err != nil {
		return nil, fmt.Errorf("xrevrange %s: %w", s.stream, err)
	}

	result := make([]*domain.TokenSummary, 0, len(msgs))
	for _, msg := range msgs {
		raw, ok := msg.Values["payload"].(string)
		if !ok {
			return nil, fmt.Errorf("stream entry %s: missing payload", msg.ID)
		}
		var sum domain.TokenSummary
		if err := json.Unmarshal([]byte(raw), &sum); err != nil {
			return nil, fmt.Errorf("stream entry %s: %w", msg.ID, err)
		}
		result = append(result, &sum)
	}
	return result, nil
}

// Len returns the current stream length.
func (s *SummarySink) Len(ctx context.Context) (int64, error) {
	n, err := s.client.XLen(ctx, s.stream).Result()
	if err != nil {
		return 0, fmt.Errorf("xlen %s: %w", s.stream, err)
	}
	return n, nil
}
