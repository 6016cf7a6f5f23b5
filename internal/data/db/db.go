package db

import (
	"fmt"
	"os"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/mouaalim/mouaalim-backend/internal/platform/envutil"
	"github.com/mouaalim/mouaalim-backend/internal/platform/logger"
)

// Service owns the relational store where finished sessions are archived.
// Postgres is used when DATABASE_URL is set; otherwise a local sqlite file
// keeps single-machine deployments dependency-free.
type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

func New(log *logger.Logger) (*Service, error) {
	serviceLog := log.With("service", "ArchiveDB")

	dsn := strings.TrimSpace(os.Getenv("DATABASE_URL"))
	var (
		conn *gorm.DB
		err  error
	)
	if dsn != "" {
		log.Info("connecting to postgres archive")
		conn, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
			DisableForeignKeyConstraintWhenMigrating: true,
		})
	} else {
		path := envutil.String("SQLITE_PATH", "mouaalim.db")
		log.Info("using sqlite archive", "path", path)
		conn, err = gorm.Open(sqlite.Open(path), &gorm.Config{})
	}
	if err != nil {
		return nil, fmt.Errorf("open archive database: %w", err)
	}

	return &Service{db: conn, log: serviceLog}, nil
}

func (s *Service) AutoMigrateAll() error {
	s.log.Info("migrating archive tables")
	return s.db.AutoMigrate(
		&SessionRecord{},
		&QuizAttempt{},
	)
}

func (s *Service) DB() *gorm.DB {
	return s.db
}
