package main

import (
	"context"
	"errors"
	"flag"
	"os"
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
	var (
		in      = flag.String("in", "data/items.csv", "input CSV path")
		replace = flag.Bool("replace", false, "replace the whole item collection instead of merging by id")
	)
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

	svc := catalog.NewService(local, remote, nil, log)
	snap := svc.LoadAll(ctx)

	f, err := os.Open(*in)
	if err != nil {
		log.Fatal("open input", zap.Error(err))
	}
	incoming, err := csvio.Read(f, snap.Fields)
	_ = f.Close()
	if err != nil {
		log.Fatal("parse input", zap.String("path", *in), zap.Error(err))
	}

	items := incoming
	if !*replace {
		items = csvio.Merge(snap.Items, incoming)
	}

	err = svc.SaveItems(ctx, items)
	switch {
	case errors.Is(err, cloud.ErrWriteFailure):
		log.Warn("items saved locally, remote push failed", zap.Error(err))
	case err != nil:
		log.Fatal("save items", zap.Error(err))
	}
	log.Info("✅ imported items", zap.String("path", *in), zap.Int("rows", len(incoming)), zap.Int("total", len(items)))
}
