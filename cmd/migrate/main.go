package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"

	"uof-sdk/database"
	"uof-sdk/logger"
	"uof-sdk/pkg/common"
)

func main() {
	_ = godotenv.Load()

	zl, err := logger.New("info", false)
	if err != nil {
		panic(err)
	}
	defer zl.Sync()
	log := common.NewZapLogger(zl, "migrate")

	// 从环境变量获取数据库 URL
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("[Migrate] DATABASE_URL environment variable is not set")
	}

	db, err := database.Connect(dbURL)
	if err != nil {
		log.Fatal("[Migrate] %v", err)
	}
	defer db.Close()
	log.Info("[Migrate] Connected to database successfully")

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := database.Migrate(ctx, db); err != nil {
		log.Fatal("[Migrate] %v", err)
	}

	log.Info("[Migrate] %d migrations completed successfully", len(database.Migrations))
}
