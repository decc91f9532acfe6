package log

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/sunshen/weblog/utils/dotenv"
	"github.com/sunshen/weblog/utils/flag"
)

// global accessible logger
var (
	logger *logrus.Logger
	Log    *logrus.Entry
)

// This init function is only for testing cases, where the entry point is not
// main function. Unit test will fail with nil pointer dereference if we don't
// init here.
func init() {
	InitLogger()
}

func InitLogger() {
	logger = logrus.New()
	logger.SetOutput(os.Stderr)

	// Structured JSON in prod, human readable text everywhere else.
	if os.Getenv("WEBLOG_ENV") == dotenv.ProdEnv {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}

	Log = logger.WithFields(
		logrus.Fields{"service": flag.ServiceName, "is_development": os.Getenv("WEBLOG_ENV") != dotenv.ProdEnv},
	)
}
