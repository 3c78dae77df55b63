package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/ctfboard/internal/domain"
)

// DefaultRoundTTL bounds how long a mirrored round survives without the
// simulation refreshing it.
const DefaultRoundTTL = 48 * time.Hour

// Mirror writes simulation snapshots to Redis. The simulation only reads it
// back to report how far the mirror trails the in-memory state.
type Mirror struct {
	client   redis.UniversalClient
	roundTTL time.Duration
}

// NewMirror creates a Redis mirror
func NewMirror(client redis.UniversalClient) *Mirror {
	return &Mirror{
		client:   client,
		roundTTL: DefaultRoundTTL,
	}
}

// PublishRound stores a round document and indexes it in the rounds set.
func (m *Mirror) PublishRound(ctx context.Context, rec domain.RoundRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal round %d: %w", rec.Number, err)
	}

	pipe := m.client.TxPipeline()
	pipe.Set(ctx, RoundKey(rec.Number), data, m.roundTTL)
	pipe.ZAdd(ctx, KeyRounds, redis.Z{Score: float64(rec.Number), Member: rec.Number})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save round %d: %w", rec.Number, err)
	}

	return nil
}

// PublishScores replaces the score hash with the given table and stamps it
// with the time of the update.
func (m *Mirror) PublishScores(ctx context.Context, scores map[string]int, updatedAt time.Time) error {
	values := make(map[string]any, len(scores))
	for team, score := range scores {
		values[team] = score
	}

	pipe := m.client.TxPipeline()
	pipe.Del(ctx, KeyScores)
	if len(values) > 0 {
		pipe.HSet(ctx, KeyScores, values)
	}
	pipe.Set(ctx, KeyScoresUpdated, updatedAt.Unix(), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save scores: %w", err)
	}

	return nil
}

// GetLatestRounds retrieves up to n of the most recent rounds, oldest first.
// Rounds that expired out of Redis are skipped.
func (m *Mirror) GetLatestRounds(ctx context.Context, n int) ([]domain.RoundRecord, error) {
	if n <= 0 {
		return []domain.RoundRecord{}, nil
	}

	members, err := m.client.ZRevRange(ctx, KeyRounds, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list rounds: %w", err)
	}
	if len(members) == 0 {
		return []domain.RoundRecord{}, nil
	}

	pipe := m.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(members))
	for i := range members {
		num, err := strconv.Atoi(members[len(members)-1-i])
		if err != nil {
			return nil, fmt.Errorf("invalid round member %q: %w", members[len(members)-1-i], err)
		}
		cmds[i] = pipe.Get(ctx, RoundKey(num))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to get rounds: %w", err)
	}

	rounds := make([]domain.RoundRecord, 0, len(cmds))
	for _, cmd := range cmds {
		data, err := cmd.Bytes()
		if err != nil {
			continue
		}
		var rec domain.RoundRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		rounds = append(rounds, rec)
	}
	return rounds, nil
}

// ScoresUpdatedAt returns when the mirrored scores were last written, zero
// if they never were.
func (m *Mirror) ScoresUpdatedAt(ctx context.Context) (time.Time, error) {
	sec, err := m.client.Get(ctx, KeyScoresUpdated).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to get scores timestamp: %w", err)
	}
	return time.Unix(sec, 0).UTC(), nil
}

// Ping reports whether Redis is reachable.
func (m *Mirror) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

// PruneRounds drops index entries whose document expired and, when keep > 0,
// every round older than the newest keep. It returns how many rounds were
// removed.
func (m *Mirror) PruneRounds(ctx context.Context, keep int) (int, error) {
	members, err := m.client.ZRange(ctx, KeyRounds, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to list rounds: %w", err)
	}
	if len(members) == 0 {
		return 0, nil
	}

	pipe := m.client.Pipeline()
	exists := make([]*redis.IntCmd, len(members))
	for i, member := range members {
		num, err := strconv.Atoi(member)
		if err != nil {
			return 0, fmt.Errorf("invalid round member %q: %w", member, err)
		}
		exists[i] = pipe.Exists(ctx, RoundKey(num))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to check rounds: %w", err)
	}

	cutoff := 0
	if keep > 0 && len(members) > keep {
		cutoff = len(members) - keep
	}

	stale := make([]any, 0)
	keys := make([]string, 0)
	for i, member := range members {
		if i < cutoff || exists[i].Val() == 0 {
			stale = append(stale, member)
			keys = append(keys, KeyPrefixRound+member)
		}
	}
	if len(stale) == 0 {
		return 0, nil
	}

	pipe = m.client.TxPipeline()
	pipe.ZRem(ctx, KeyRounds, stale...)
	pipe.Del(ctx, keys...)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to prune rounds: %w", err)
	}
	return len(stale), nil
}
