package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/mycourse/catalog-backend/internal/logger"
	"github.com/mycourse/catalog-backend/internal/types"
	"github.com/mycourse/catalog-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	postgresHost := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	postgresPort := utils.GetEnv("POSTGRES_PORT", "5432", log)
	postgresUser := utils.GetEnv("POSTGRES_USER", "postgres", log)
	postgresPassword := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	postgresName := utils.GetEnv("POSTGRES_NAME", "catalog", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		postgresUser, postgresPassword, postgresHost, postgresPort, postgresName)

	serviceLog.Info("Connecting to Postgres...")
	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		// TranslateError maps driver-specific unique violations onto
		// gorm.ErrDuplicatedKey, which the course repo relies on.
		TranslateError: true,
	})
	if err != nil {
		serviceLog.Error("Failed to connect to Postgres", "error", err)
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return &PostgresService{db: gormDB, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating catalog tables...")
	if err := s.db.AutoMigrate(
		&types.Course{},
		&types.Lesson{},
	); err != nil {
		s.log.Error("Auto migration failed", "error", err)
		return err
	}
	// Title uniqueness is case-insensitive; the repo's duplicate-title
	// detection depends on this index existing.
	if err := s.db.Exec(
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_course_title_lower ON "course" (LOWER(title)) WHERE deleted_at IS NULL`,
	).Error; err != nil {
		s.log.Error("Failed to create unique title index", "error", err)
		return fmt.Errorf("create unique title index: %w", err)
	}
	return nil
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}
