package utils

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// IdleSweeper は開始されないまま放置されたマッチを閉じる（actions.Dispatcher）
type IdleSweeper interface {
	SweepIdle(maxAge time.Duration) int
}

// RecordPruner は古い記録を削除する（database.MatchRecords）
type RecordPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// CronCleaner はクーロンジョブを登録して開始し、停止に使うスケジューラを返す。
// records が nil の場合は記録の削除ジョブを登録しない。
func CronCleaner(sweeper IdleSweeper, idleTimeout time.Duration, records RecordPruner, retention time.Duration, logger *zap.Logger) (*cron.Cron, error) {
	c := cron.New()

	// 開始されていないマッチを1分ごとに掃除
	if _, err := c.AddFunc("@every 1m", func() {
		if n := sweeper.SweepIdle(idleTimeout); n > 0 {
			logger.Info("放置されたマッチを削除しました", zap.Int("matches_closed", n))
		}
	}); err != nil {
		return nil, err
	}

	// 古い記録を削除するジョブ（"分 時 日 月 曜日"）
	if records != nil {
		if _, err := c.AddFunc("0 3 * * *", func() {
			logger.Info("古いマッチ記録を削除する処理を開始")
			deleted, err := records.DeleteOlderThan(context.Background(), time.Now().Add(-retention))
			if err != nil {
				logger.Error("マッチ記録の削除に失敗しました", zap.Error(err))
				return
			}
			logger.Info("マッチ記録の削除完了", zap.Int64("records_deleted", deleted))
		}); err != nil {
			return nil, err
		}
	}

	c.Start()
	return c, nil
}
