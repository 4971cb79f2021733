package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"tvcompare/internal/catalog"
	"tvcompare/internal/cloud"
	"tvcompare/internal/csvio"
	"tvcompare/internal/localstore"
	"tvcompare/pkg/database"
	"tvcompare/pkg/logger"
	"tvcompare/pkg/utils"
)

func main() {
	out := flag.String("out", "data/items.csv", "output CSV path")
	flag.Parse()

	log := logger.Must(utils.LoadLogConfig())
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(database.DefaultConfig())
	if err != nil {
		log.Fatal("open local store", zap.Error(err))
	}
	defer db.Close()

	local := localstore.New(db, log)
	remote := cloud.New(local, log)
	if err := remote.Restore(ctx); err != nil {
		log.Warn("restore remote config", zap.Error(err))
	}
	defer remote.Close()

	snap := catalog.NewService(local, remote, nil, log).LoadAll(ctx)

	if err := writeFile(*out, snap); err != nil {
		log.Fatal("export items", zap.String("path", *out), zap.Error(err))
	}
	log.Info("✅ exported items",
		zap.String("path", *out),
		zap.Int("items", len(snap.Items)),
		zap.String("source", string(snap.ItemsSource)),
	)
}

func writeFile(path string, snap catalog.Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := csvio.Write(f, snap.Fields, snap.Items); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
