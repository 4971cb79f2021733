// Command cloud-dev runs a throwaway PostgreSQL server with the app_data
// table in place, so the remote sync path can be exercised without a
// hosted database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"tvcompare/internal/cloud"
	"tvcompare/pkg/logger"
	"tvcompare/pkg/utils"
)

const password = "postgres"

func main() {
	var (
		port    = flag.Uint("port", 5439, "port to listen on")
		dbName  = flag.String("db", "tvcompare", "database name")
		dataDir = flag.String("data", defaultDataDir(), "data directory (kept between runs)")
	)
	flag.Parse()

	log := logger.Must(utils.LoadLogConfig())
	defer func() { _ = log.Sync() }()

	pg := embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
		DataPath(*dataDir).
		Port(uint32(*port)).
		Database(*dbName).
		Username("postgres").
		Password(password))

	if err := pg.Start(); err != nil {
		log.Fatal("start embedded postgres", zap.Error(err))
	}
	defer func() {
		if err := pg.Stop(); err != nil {
			log.Warn("stop embedded postgres", zap.Error(err))
		}
	}()

	endpoint := fmt.Sprintf("postgres://postgres@localhost:%d/%s?sslmode=disable", *port, *dbName)
	if err := applySetup(endpoint); err != nil {
		log.Error("apply setup SQL", zap.Error(err))
		return
	}

	log.Info("remote store ready", zap.String("endpoint", endpoint), zap.String("credential", password))
	fmt.Printf("\nconnect with:\n  tvcompare cloud connect --endpoint '%s' --credential %s\n\n", endpoint, password)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info("shutting down")
}

func applySetup(endpoint string) error {
	dsn, err := cloud.PostgresDSN(endpoint, password)
	if err != nil {
		return err
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}
	return db.Exec(cloud.SetupSQL()).Error
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".tvcompare", "pg")
	}
	return filepath.Join(home, ".tvcompare", "pg")
}
