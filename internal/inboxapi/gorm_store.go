package inboxapi

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/DoyleJ11/inbox-dashboard/pkg/types"
)

type ticketRow struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	CustomerName string
	Channel      string
	Subject      string
	Status       string `gorm:"index"`
	Priority     string
}

func (ticketRow) TableName() string { return "tickets" }

func (r ticketRow) toTicket() types.Ticket {
	return types.Ticket{
		ID:           r.ID,
		CustomerName: r.CustomerName,
		Subject:      r.Subject,
		Channel:      r.Channel,
		Status:       r.Status,
		Priority:     r.Priority,
		CreatedAt:    &types.Timestamp{Time: r.CreatedAt},
	}
}

func fromTicket(t types.Ticket) ticketRow {
	row := ticketRow{
		ID:           t.ID,
		CustomerName: t.CustomerName,
		Subject:      t.Subject,
		Channel:      t.Channel,
		Status:       t.Status,
		Priority:     t.Priority,
	}
	if t.CreatedAt != nil {
		row.CreatedAt = t.CreatedAt.Time
	}
	return row
}

// GormStore keeps tickets in Postgres through gorm and the pgx driver.
type GormStore struct {
	db *gorm.DB
}

// OpenPostgres connects, migrates the tickets table and returns the store.
func OpenPostgres(dsn string, logger *zap.Logger) (*GormStore, error) {
	pcfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.New(zap.NewStdLog(logger), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := db.AutoMigrate(&ticketRow{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate tickets: %w", err)
	}

	logger.Info("connected to postgres",
		zap.String("host", pcfg.Host),
		zap.Uint16("port", pcfg.Port),
		zap.String("database", pcfg.Database),
	)
	return &GormStore{db: db}, nil
}

func (s *GormStore) List(ctx context.Context) ([]types.Ticket, error) {
	var rows []ticketRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]types.Ticket, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toTicket())
	}
	return out, nil
}

func (s *GormStore) Update(ctx context.Context, id int64, patch types.TicketPatch) (types.Ticket, error) {
	var row ticketRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		changes := map[string]any{}
		if patch.Status != nil && *patch.Status != "" {
			changes["status"] = *patch.Status
		}
		if patch.Priority != nil && *patch.Priority != "" {
			changes["priority"] = *patch.Priority
		}
		if len(changes) == 0 {
			return nil
		}
		if err := tx.Model(&row).Updates(changes).Error; err != nil {
			return err
		}
		return tx.First(&row, id).Error
	})
	if err != nil {
		return types.Ticket{}, err
	}
	return row.toTicket(), nil
}

func (s *GormStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&ticketRow{}).Count(&n).Error
	return n, err
}

func (s *GormStore) Insert(ctx context.Context, tickets []types.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}
	rows := make([]ticketRow, 0, len(tickets))
	for _, t := range tickets {
		rows = append(rows, fromTicket(t))
	}
	return s.db.WithContext(ctx).CreateInBatches(rows, 100).Error
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
