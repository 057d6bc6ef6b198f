package models

// Config 構造体はサーバー全体の設定情報を保持します。
// config.json から読み込み、環境変数で上書きできます（database.LoadConfig）。
type Config struct {
	DBHost     string `json:"db_host"`
	DBPort     string `json:"db_port"`
	DBUser     string `json:"db_user"`
	DBPassword string `json:"db_password"`
	DBName     string `json:"db_name"`
	DBSSLMode  string `json:"db_sslmode"`

	Port         string   `json:"port"`
	AllowOrigins []string `json:"allow_origins"`
	JWTSecret    string   `json:"jwt_secret"`

	GestureThreshold        float64 `json:"gesture_threshold"`
	IdleMatchTimeoutMinutes int     `json:"idle_match_timeout_minutes"`
	RecordRetentionDays     int     `json:"record_retention_days"`
	VoiceCodeTTLMinutes     int     `json:"voice_code_ttl_minutes"`
}
