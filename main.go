package main

import (
	"flag"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	_ "github.com/joho/godotenv/autoload" // .env を環境変数として読み込む

	"battleserver/auth"                         //音声連携JWTの署名鍵
	"battleserver/battleship"                   //バトルシップのゲームロジック
	"battleserver/battleship/actions"           //イベント処理
	"battleserver/battleship/broadcast"         //ルームへの配信
	battledb "battleserver/battleship/database" //音声ペアリングコード
	"battleserver/battleship/gesture"           //ジェスチャー認識
	"battleserver/database"                     //設定の読み込みとPostgreSQL・Redisの初期化
	"battleserver/middlewares"                  //音声連携の認証
	"battleserver/screens"                      //HTTPリクエストの処理
	"battleserver/utils"                        //ロガーの初期化とCronジョブ

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON config file")
	issueToken := flag.String("issue-voice-token", "", "print a voice integration token for the given name and exit")
	tokenTTL := flag.Duration("voice-token-ttl", 365*24*time.Hour, "lifetime of a token printed by -issue-voice-token")
	flag.Parse()

	var logger *zap.Logger
	var err error
	logger, err = utils.InitLogger() // ロガーの初期化
	if err != nil {
		panic(err) // 失敗した場合はプログラム停止
	}
	defer logger.Sync() // ロガーのクリーンアップ

	config, err := database.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal("設定ファイルの読み込みに失敗しました", zap.Error(err))
	}
	auth.SetJwtKey(config.JWTSecret)

	if *issueToken != "" {
		token, err := middlewares.GenerateVoiceToken(*issueToken, *tokenTTL)
		if err != nil {
			logger.Fatal("トークンの発行に失敗しました", zap.Error(err))
		}
		fmt.Println(token)
		return
	}

	// 非同期でPostgreSQLとRedisの初期化
	var db *gorm.DB
	var rdb *redis.Client
	done := make(chan bool)

	go func() {
		var err error
		db, err = database.InitPostgreSQL(config, logger)
		if err != nil {
			logger.Fatal("PostgreSQLの初期化に失敗しました", zap.Error(err))
		}
		if err := database.AutoMigrate(db); err != nil {
			logger.Fatal("マイグレーションに失敗しました", zap.Error(err))
		}
		done <- true
	}()

	go func() {
		var err error
		rdb, err = database.InitRedis(logger)
		if err != nil {
			logger.Fatal("Failed to initialize Redis", zap.Error(err))
		}
		done <- true
	}()

	// 2つの初期化が完了するのを待つ
	<-done
	<-done

	// ゲームの状態はプロセス内にだけ持つ
	registry := battleship.NewRegistry()
	hub := broadcast.NewHub(logger)
	records := database.NewMatchRecords(db)
	dispatcher := actions.NewDispatcher(registry, hub, logger,
		actions.WithRecorder(records),
		actions.WithVoiceLinker(battledb.NewVoiceCodes(rdb, time.Duration(config.VoiceCodeTTLMinutes)*time.Minute, logger)),
		actions.WithRecognizer(gesture.NewRecognizer(gesture.WithThreshold(config.GestureThreshold))),
	)

	// クーロンスケジューラのセットアップと呼び出し
	scheduler, err := utils.CronCleaner(dispatcher,
		time.Duration(config.IdleMatchTimeoutMinutes)*time.Minute,
		records,
		time.Duration(config.RecordRetentionDays)*24*time.Hour,
		logger)
	if err != nil {
		logger.Fatal("Cronジョブの登録に失敗しました", zap.Error(err))
	}
	defer scheduler.Stop()

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}

	router := gin.New()
	//リクエストロガーを起動
	router.Use(gin.Recovery(), utils.RequestLogger(logger))

	//CORS（Cross-Origin Resource Sharing）ポリシーを設定
	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(config.AllowOrigins) > 0 {
		corsConfig.AllowOrigins = config.AllowOrigins
	} else {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	router.Use(cors.New(corsConfig))

	//各HTTPリクエストのルーティング
	router.GET("/healthz", func(c *gin.Context) {
		screens.HealthHandler(c, registry)
	})
	router.GET("/rooms/:id", func(c *gin.Context) {
		screens.RoomInfoHandler(c, registry, logger)
	})
	router.GET("/records", func(c *gin.Context) {
		screens.RecordsHandler(c, records, logger)
	})
	voice := router.Group("/voice", middlewares.VoiceAuth(logger))
	voice.POST("/attack", func(c *gin.Context) {
		screens.VoiceAttackHandler(c, dispatcher, logger)
	})
	router.GET("/ws", func(c *gin.Context) {
		battleship.HandleConnections(c.Request.Context(), c.Writer, c.Request, hub, dispatcher, upgrader, logger)
	})

	logger.Info("Server starting", zap.String("port", config.Port))
	if err := router.Run(":" + config.Port); err != nil {
		logger.Fatal("Failed to run HTTP server", zap.Error(err))
	}
}
