package database

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// ErrCodeNotFound は期限切れまたは存在しないペアリングコード
var ErrCodeNotFound = errors.New("unknown pairing code")

const (
	codeDigits     = 6
	maxCodeRetries = 5
)

// VoicePairing はペアリングコードが指すマッチとスロット
type VoicePairing struct {
	MatchID string `json:"matchId"`
	Slot    int    `json:"slot"`
}

// VoiceCodes は音声アシスタント用のペアリングコードをRedisに保存する
type VoiceCodes struct {
	rdb     *redis.Client
	ttl     time.Duration
	logger  *zap.Logger
	newCode func() string
}

func NewVoiceCodes(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *VoiceCodes {
	return &VoiceCodes{rdb: rdb, ttl: ttl, logger: logger, newCode: newPairingCode}
}

func codeKey(code string) string {
	return "voice:code:" + code
}

func matchCodesKey(matchID string) string {
	return "voice:match:" + matchID
}

// 読み上げやすいように数字だけのコードにする
func newPairingCode() string {
	id := uuid.New()
	n := binary.BigEndian.Uint32(id[:4]) % 1000000
	return fmt.Sprintf("%0*d", codeDigits, n)
}

// Issue はマッチとスロットに対応する新しいコードを発行する
func (v *VoiceCodes) Issue(ctx context.Context, matchID string, slot int) (string, error) {
	pairingJSON, err := json.Marshal(VoicePairing{MatchID: matchID, Slot: slot})
	if err != nil {
		return "", err
	}

	for i := 0; i < maxCodeRetries; i++ {
		code := v.newCode()
		// 既存のコードは上書きしない
		ok, err := v.rdb.SetNX(ctx, codeKey(code), pairingJSON, v.ttl).Result()
		if err != nil {
			v.logger.Error("Error storing pairing code in Redis", zap.Error(err))
			return "", err
		}
		if !ok {
			continue
		}

		pipe := v.rdb.TxPipeline()
		pipe.SAdd(ctx, matchCodesKey(matchID), code)
		pipe.Expire(ctx, matchCodesKey(matchID), v.ttl)
		if _, err := pipe.Exec(ctx); err != nil {
			v.logger.Error("Error indexing pairing code", zap.String("matchId", matchID), zap.Error(err))
			return "", err
		}
		return code, nil
	}
	return "", fmt.Errorf("could not allocate a unique pairing code after %d attempts", maxCodeRetries)
}

// Resolve はコードからマッチとスロットを引く
func (v *VoiceCodes) Resolve(ctx context.Context, code string) (VoicePairing, error) {
	var pairing VoicePairing
	pairingJSON, err := v.rdb.Get(ctx, codeKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return pairing, ErrCodeNotFound
	}
	if err != nil {
		v.logger.Error("Failed to retrieve pairing code", zap.Error(err))
		return pairing, err
	}
	if err := json.Unmarshal([]byte(pairingJSON), &pairing); err != nil {
		v.logger.Error("Failed to decode pairing code", zap.Error(err))
		return pairing, err
	}
	return pairing, nil
}

// Revoke はマッチに発行した全てのコードを削除する
func (v *VoiceCodes) Revoke(ctx context.Context, matchID string) error {
	codes, err := v.rdb.SMembers(ctx, matchCodesKey(matchID)).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(codes)+1)
	for _, code := range codes {
		keys = append(keys, codeKey(code))
	}
	keys = append(keys, matchCodesKey(matchID))
	return v.rdb.Del(ctx, keys...).Err()
}
