package storage

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"lab-agent/common"
)

// Config конфигурация хранилища телеметрии
type Config struct {
	Path string `mapstructure:"path"` // Путь к файлу SQLite
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() Config {
	return Config{Path: "IoT.db"}
}

// PersistError ошибка записи в хранилище; повтор - забота вызывающего
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }

// Sink append-only хранилище, по таблице на тип телеметрии.
// Соединение открывается на каждую операцию и закрывается до возврата.
type Sink struct {
	path   string
	mu     sync.Mutex // один писатель одновременно
	logger *zap.Logger
}

// Open создает Sink; файл базы создается при первой операции
func Open(cfg Config, logger *zap.Logger) (*Sink, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sink{path: cfg.Path, logger: logger}, nil
}

// withDB открывает базу, выполняет fn и гарантированно закрывает соединение
func (s *Sink) withDB(ctx context.Context, fn func(db *gorm.DB) error) error {
	db, err := gorm.Open(sqlite.Open(s.path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	defer sqlDB.Close()

	return fn(db.WithContext(ctx))
}

// ResetSchema удаляет и заново создает таблицы всех типов телеметрии
func (s *Sink) ResetSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.withDB(ctx, func(db *gorm.DB) error {
		if err := db.Migrator().DropTable(models()...); err != nil {
			return err
		}
		return db.Migrator().CreateTable(models()...)
	})
	if err != nil {
		return &PersistError{Op: "reset schema", Err: err}
	}

	s.logger.Info("telemetry schema recreated", zap.String("path", s.path))
	return nil
}

// Append добавляет запись и возвращает ее идентификатор
func (s *Sink) Append(ctx context.Context, rec common.SensorRecord) (uint, error) {
	row, err := rowFor(rec)
	if err != nil {
		return 0, &PersistError{Op: "append", Err: err}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.withDB(ctx, func(db *gorm.DB) error {
		return db.Create(row).Error
	})
	if err != nil {
		return 0, &PersistError{Op: "append " + string(rec.Kind), Err: err}
	}

	id := rowID(row)
	s.logger.Debug("telemetry row inserted",
		zap.String("kind", string(rec.Kind)),
		zap.Uint("id", id),
		zap.String("sensor_id", rec.SensorID))
	return id, nil
}

// List возвращает все записи указанного типа в порядке id
func (s *Sink) List(ctx context.Context, kind common.Kind) ([]common.StoredRecord, error) {
	var out []common.StoredRecord

	err := s.withDB(ctx, func(db *gorm.DB) error {
		switch kind {
		case common.KindTemperature:
			var rows []TemperatureData
			if err := db.Order("id").Find(&rows).Error; err != nil {
				return err
			}
			for _, r := range rows {
				out = append(out, stored(r.ID, r.SensorID, r.DateTime, kind, r.Temperature))
			}
		case common.KindHumidity:
			var rows []HumidityData
			if err := db.Order("id").Find(&rows).Error; err != nil {
				return err
			}
			for _, r := range rows {
				out = append(out, stored(r.ID, r.SensorID, r.DateTime, kind, r.Humidity))
			}
		case common.KindPressure:
			var rows []PressureData
			if err := db.Order("id").Find(&rows).Error; err != nil {
				return err
			}
			for _, r := range rows {
				out = append(out, stored(r.ID, r.SensorID, r.DateTime, kind, r.Pressure))
			}
		default:
			return fmt.Errorf("unsupported telemetry kind %q", kind)
		}
		return nil
	})
	if err != nil {
		return nil, &PersistError{Op: "list " + string(kind), Err: err}
	}
	return out, nil
}

func stored(id uint, sensorID, ts string, kind common.Kind, value string) common.StoredRecord {
	return common.StoredRecord{
		ID: id,
		SensorRecord: common.SensorRecord{
			SensorID:  sensorID,
			Timestamp: ts,
			Kind:      kind,
			Value:     value,
		},
	}
}
