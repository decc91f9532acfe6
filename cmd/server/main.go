package main

import (
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sunshen/weblog/mail"
	"github.com/sunshen/weblog/server"
	"github.com/sunshen/weblog/token"
	"github.com/sunshen/weblog/utils"
	"github.com/sunshen/weblog/utils/dotenv"
	. "github.com/sunshen/weblog/utils/log"
)

const confirmationTokenTTL = time.Hour

func main() {
	if err := dotenv.LoadDotEnvs(); err != nil {
		panic(err)
	}

	db, err := utils.GetDBConnection()
	if err != nil {
		Log.Fatal("cannot connect to DB: ", err)
	}
	utils.DatabaseSetupAndMigration(db)

	readStatus, err := utils.GetRedisStatusStore()
	if err != nil {
		// Read marks are a convenience; the feed works without them.
		Log.Warn("redis unavailable, feed read marks disabled: ", err)
		readStatus = nil
	}

	s := &server.Server{
		DB:         db,
		Tokens:     token.NewService(os.Getenv("SECRET_KEY"), confirmationTokenTTL),
		Mail:       mail.NewService(mail.ConfigFromEnv()),
		ReadStatus: readStatus,
	}

	// Default With the Logger and Recovery middleware already attached
	router := gin.Default()
	router.Use(cors.Default())
	s.RegisterRoutes(router)

	Log.Info("api server starts up")
	router.Run(":8080")
}
