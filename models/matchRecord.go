package models

import (
	"time"

	"gorm.io/gorm"
)

// MatchRecord は終了したマッチの記録。試合の復元には使わない
type MatchRecord struct {
	gorm.Model
	MatchID     string `gorm:"index;not null"`
	BoardSize   int    `gorm:"not null"`
	Player1Name string `gorm:"not null"`
	Player2Name string
	WinnerSlot  *int   // 切断で終わった場合は nil
	EndReason   string `gorm:"not null"` // "defeat" または "disconnect"
	Attacks     int    `gorm:"not null;default:0"`
	StartedAt   *time.Time
	FinishedAt  time.Time `gorm:"index;not null"`
}

const (
	EndReasonDefeat     = "defeat"
	EndReasonDisconnect = "disconnect"
)
