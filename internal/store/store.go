// Package store keeps the host log on disk so a board survives restarts.
package store

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"SharedBoard/internal/geom"
	"SharedBoard/internal/state"
)

// Entry is one log entry row. Seq is its index in the log.
type Entry struct {
	Seq       int          `gorm:"primaryKey;autoIncrement:false"`
	CommandID string       `gorm:"index"`
	AuthorID  string       `gorm:"index"`
	Width     float64      `gorm:"not null"`
	Erasing   bool         `gorm:"not null;default:false"`
	Color     string       `gorm:"size:32"`
	Smooth    bool         `gorm:"not null;default:false"`
	Points    []geom.Point `gorm:"serializer:json"`
	CreatedAt time.Time
}

func (Entry) TableName() string {
	return "log_entries"
}

func entryOf(seq int, c state.StrokeCommand) Entry {
	return Entry{
		Seq:       seq,
		CommandID: c.ID,
		AuthorID:  c.AuthorID,
		Width:     c.Width,
		Erasing:   c.Erasing,
		Color:     c.Color,
		Smooth:    c.Smooth,
		Points:    c.Points,
	}
}

func (e Entry) command() state.StrokeCommand {
	return state.StrokeCommand{
		ID:       e.CommandID,
		AuthorID: e.AuthorID,
		Width:    e.Width,
		Erasing:  e.Erasing,
		Color:    e.Color,
		Smooth:   e.Smooth,
		Points:   e.Points,
	}
}

// Store mirrors a log into a SQLite table.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger

	mu     sync.Mutex
	saved  int
	cancel func()
}

// Open opens or creates the database at path. An empty path keeps the
// database in memory.
func Open(path string, log zerolog.Logger) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        500,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}
	if path == "" {
		// Every pooled connection would otherwise see its own empty database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sql handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if path == "" {
		log.Info().Msg("using in-memory store")
	} else {
		log.Info().Str("path", path).Msg("using sqlite store")
	}
	return &Store{db: db, logger: log}, nil
}

// Load returns the stored entries in log order.
func (s *Store) Load() ([]state.StrokeCommand, error) {
	var rows []Entry
	if err := s.db.Order("seq").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}
	cmds := make([]state.StrokeCommand, len(rows))
	for i, r := range rows {
		cmds[i] = r.command()
	}
	return cmds, nil
}

// Count returns how many entries are stored.
func (s *Store) Count() (int, error) {
	var n int64
	if err := s.db.Model(&Entry{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count entries: %w", err)
	}
	return int(n), nil
}

// Restore appends the stored entries to an empty log and starts mirroring
// it. It returns the number of entries restored.
func (s *Store) Restore(log *state.MemoryLog) (int, error) {
	if log.Len() != 0 {
		return 0, errors.New("restore into a non-empty log")
	}
	cmds, err := s.Load()
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	s.saved = len(cmds)
	s.mu.Unlock()
	log.Append(cmds...)
	s.Watch(log)
	return len(cmds), nil
}

// watchedLog is the read side of state.Log that Watch needs.
type watchedLog interface {
	Len() int
	Get(i int) (state.StrokeCommand, bool)
	OnChange(fn func(n int)) (cancel func())
}

// Watch mirrors every later change of log into the table. The table must
// already hold the first Len() entries of log.
func (s *Store) Watch(log watchedLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	s.saved = log.Len()
	s.cancel = log.OnChange(func(n int) {
		if err := s.sync(log, n); err != nil {
			s.logger.Error().Err(err).Int("len", n).Msg("persist log change")
		}
	})
}

func (s *Store) sync(log watchedLog, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n < s.saved {
		if err := s.db.Where("seq >= ?", n).Delete(&Entry{}).Error; err != nil {
			return fmt.Errorf("delete entries from %d: %w", n, err)
		}
		s.saved = n
	}
	if n == s.saved {
		return nil
	}
	rows := make([]Entry, 0, n-s.saved)
	for i := s.saved; i < n; i++ {
		c, ok := log.Get(i)
		if !ok {
			break
		}
		rows = append(rows, entryOf(i, c))
	}
	if len(rows) == 0 {
		return nil
	}
	if err := s.db.Create(&rows).Error; err != nil {
		return fmt.Errorf("insert %d entries: %w", len(rows), err)
	}
	s.saved += len(rows)
	return nil
}

// Close stops watching and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}
	return sqlDB.Close()
}
