package main

import (
	"context"
	"errors"
	"os"

	"go.uber.org/zap"

	"github.com/fsdevblog/snipshare/internal/app"
	"github.com/fsdevblog/snipshare/internal/bmeta"
	"github.com/fsdevblog/snipshare/internal/config"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	bmeta.Print(os.Stdout, buildVersion, buildDate, buildCommit)

	appConf := config.MustLoadConfig()

	a := app.Must(app.New(*appConf))

	a.Logger.Info("Starting server",
		zap.String("address", appConf.ServerAddress),
		zap.String("db", string(appConf.DBType)),
		zap.String("blob", string(appConf.BlobType)),
		zap.Bool("redis", appConf.RedisURL != ""),
		zap.Duration("retention", appConf.Retention),
		zap.Duration("reaperInterval", appConf.ReaperInterval),
	)
	if err := a.Run(); err != nil && !errors.Is(err, context.Canceled) {
		panic(err)
	}
}
