package database

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"battleserver/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// 設定ファイルに無い項目のデフォルト値
const (
	defaultPort                    = "8080"
	defaultIdleMatchTimeoutMinutes = 30
	defaultRecordRetentionDays     = 30
	defaultVoiceCodeTTLMinutes     = 120
)

// LoadConfig loads the configuration from config.json, then applies environment overrides.
// A missing file is not an error: defaults and the environment are used instead.
func LoadConfig(filename string) (models.Config, error) {
	var config models.Config
	configFile, err := os.Open(filename)
	if err == nil {
		defer configFile.Close()
		jsonParser := json.NewDecoder(configFile)
		if err := jsonParser.Decode(&config); err != nil {
			return config, fmt.Errorf("設定ファイルの解析に失敗しました: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return config, err
	}

	applyEnv(&config)
	applyDefaults(&config)
	return config, nil
}

func applyEnv(config *models.Config) {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
			*dst = v
		}
	}

	setString("DB_HOST", &config.DBHost)
	setString("DB_PORT", &config.DBPort)
	setString("DB_USER", &config.DBUser)
	setString("DB_PASSWORD", &config.DBPassword)
	setString("DB_NAME", &config.DBName)
	setString("DB_SSLMODE", &config.DBSSLMode)
	setString("PORT", &config.Port)
	setString("JWT_SECRET", &config.JWTSecret)
	if v := os.Getenv("ALLOW_ORIGINS"); v != "" {
		config.AllowOrigins = strings.Split(v, ",")
	}
	if v, err := strconv.ParseFloat(os.Getenv("GESTURE_THRESHOLD"), 64); err == nil {
		config.GestureThreshold = v
	}
	setInt("IDLE_MATCH_TIMEOUT_MINUTES", &config.IdleMatchTimeoutMinutes)
	setInt("RECORD_RETENTION_DAYS", &config.RecordRetentionDays)
	setInt("VOICE_CODE_TTL_MINUTES", &config.VoiceCodeTTLMinutes)
}

func applyDefaults(config *models.Config) {
	if config.Port == "" {
		config.Port = defaultPort
	}
	if config.DBSSLMode == "" {
		config.DBSSLMode = "disable"
	}
	if config.IdleMatchTimeoutMinutes <= 0 {
		config.IdleMatchTimeoutMinutes = defaultIdleMatchTimeoutMinutes
	}
	if config.RecordRetentionDays <= 0 {
		config.RecordRetentionDays = defaultRecordRetentionDays
	}
	if config.VoiceCodeTTLMinutes <= 0 {
		config.VoiceCodeTTLMinutes = defaultVoiceCodeTTLMinutes
	}
}

// DSN はPostgreSQLの接続文字列
func DSN(config models.Config) string {
	dsn := fmt.Sprintf("host=%s user=%s dbname=%s password=%s sslmode=%s",
		config.DBHost, config.DBUser, config.DBName, config.DBPassword, config.DBSSLMode)
	if config.DBPort != "" {
		dsn += " port=" + config.DBPort
	}
	return dsn
}

func InitPostgreSQL(config models.Config, logger *zap.Logger) (*gorm.DB, error) {
	const maxRetries = 3
	const retryInterval = 5 * time.Second
	var err error
	for i := 0; i <= maxRetries; i++ {
		var gormDB *gorm.DB
		gormDB, err = gorm.Open(postgres.Open(DSN(config)), &gorm.Config{})
		if err == nil {
			return gormDB, nil
		}
		logger.Error("データベース接続のリトライ", zap.Int("retry", i), zap.Error(err))
		time.Sleep(retryInterval)
	}
	return nil, fmt.Errorf("データベース接続に失敗しました: %w", err)
}

// AutoMigrate は記録用のテーブルを作成・更新する
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&models.MatchRecord{})
}

func InitRedis(logger *zap.Logger) (*redis.Client, error) {
	// 環境変数からRedis接続情報を取得
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379" // デフォルト値
	}

	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := os.Getenv("REDIS_DB")
	db, err := strconv.Atoi(redisDB)
	if err != nil {
		logger.Info("Invalid REDIS_DB value, using default DB 0")
		db = 0 // デフォルトDB
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPassword,
		DB:       db,
	})

	if _, err = rdb.Ping(context.Background()).Result(); err != nil {
		logger.Error("Failed to connect to Redis", zap.Error(err))
		return nil, err
	}

	logger.Info("Connected to Redis")
	return rdb, nil
}
