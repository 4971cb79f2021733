package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	livesync "tvcompare/internal/sync"
	"tvcompare/pkg/logger"
	"tvcompare/pkg/utils"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9090", "TCP live-update server address")
	raw := flag.Bool("raw", false, "print lines as received")
	flag.Parse()

	log := logger.Must(utils.LoadLogConfig())
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for {
		err := run(ctx, *addr, *raw, log)
		if ctx.Err() != nil {
			return
		}
		log.Warn("disconnected", zap.String("addr", *addr), zap.Error(err))

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second): // reconnect
		}
	}
}

func run(ctx context.Context, addr string, raw bool, log *zap.Logger) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	log.Info("connected", zap.String("addr", addr))

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		line := sc.Bytes()
		if raw {
			fmt.Println(string(line))
			continue
		}
		printEvent(line)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return errors.New("server closed the connection")
}

func printEvent(line []byte) {
	var ev livesync.CatalogEvent
	if err := json.Unmarshal(line, &ev); err != nil || ev.Type == "" {
		fmt.Println(string(line))
		return
	}

	at := ev.At.Local().Format(time.TimeOnly)
	switch ev.Type {
	case livesync.EventFieldsUpdated:
		fmt.Printf("%s fields updated (%d)\n", at, ev.FieldCount)
	case livesync.EventItemsUpdated:
		fmt.Printf("%s items updated (%d)\n", at, ev.ItemCount)
	case livesync.EventCloudState:
		fmt.Printf("%s cloud %s %s\n", at, ev.State, ev.Message)
	case livesync.EventCloudSynced:
		fmt.Printf("%s pushed %d fields, %d items\n", at, ev.FieldCount, ev.ItemCount)
	default:
		fmt.Println(string(line))
	}
}
