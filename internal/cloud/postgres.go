package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"tvcompare/pkg/models"
)

// appData is the remote row. Only id 1 is ever used.
type appData struct {
	ID        int            `gorm:"primaryKey;autoIncrement:false"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (appData) TableName() string { return "app_data" }

type postgresBackend struct {
	db *gorm.DB
}

// DialPostgres opens a lazy gorm handle. The credential is used as the
// password, replacing any password embedded in the endpoint.
func DialPostgres(endpoint, credential string) (Backend, error) {
	dsn, err := PostgresDSN(endpoint, credential)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:               logger.Default.LogMode(logger.Silent),
		DisableAutomaticPing: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigurationInvalid, err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(4)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}
	return &postgresBackend{db: db}, nil
}

func PostgresDSN(endpoint, credential string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConfigurationInvalid, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: endpoint has no host", ErrConfigurationInvalid)
	}
	user := "postgres"
	if u.User != nil && u.User.Username() != "" {
		user = u.User.Username()
	}
	u.User = url.UserPassword(user, credential)
	return u.String(), nil
}

func (b *postgresBackend) Probe(ctx context.Context) (bool, error) {
	var n int64
	err := b.db.WithContext(ctx).Model(&appData{}).Where("id = ?", DocumentID).Count(&n).Error
	if err != nil {
		return false, classifyPg(err)
	}
	return n > 0, nil
}

func (b *postgresBackend) Fetch(ctx context.Context) (*models.SyncDocument, error) {
	var row appData
	err := b.db.WithContext(ctx).First(&row, DocumentID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, classifyPg(err)
	}

	var doc models.SyncDocument
	if err := json.Unmarshal(row.Payload, &doc); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	return &doc, nil
}

func (b *postgresBackend) Upsert(ctx context.Context, doc models.SyncDocument) error {
	row, err := newRow(doc)
	if err != nil {
		return err
	}
	err = b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"payload", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return classifyPg(err)
	}
	return nil
}

func (b *postgresBackend) Insert(ctx context.Context, doc models.SyncDocument) error {
	row, err := newRow(doc)
	if err != nil {
		return err
	}
	err = b.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		return classifyPg(err)
	}
	return nil
}

func (b *postgresBackend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newRow(doc models.SyncDocument) (appData, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return appData{}, fmt.Errorf("encode payload: %w", err)
	}
	return appData{ID: DocumentID, Payload: datatypes.JSON(b)}, nil
}

// undefined_table
const pgUndefinedTable = "42P01"

func classifyPg(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable {
		return fmt.Errorf("%w: %s", ErrSchemaMissing, pgErr.Message)
	}
	return fmt.Errorf("%w: %v", ErrConnectivity, err)
}
