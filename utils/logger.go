package utils

import (
	"go.uber.org/zap"
)

// Log is the application logger. It discards everything until InitLogger runs.
var Log = zap.NewNop().Sugar()

func InitLogger(production bool) error {
	var (
		logger *zap.Logger
		err    error
	)
	if production {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return err
	}
	Log = logger.Sugar()
	return nil
}

func SyncLogger() {
	_ = Log.Sync()
}
