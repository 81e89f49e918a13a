// Package results persists growth-rate measurements to databases and CSV files.
package results

import (
	"errors"
	"fmt"

	gorm_logrus "github.com/onrik/gorm-logrus"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// GrowthRecord is one fitted direction of one analysis run. Rows are only appended.
type GrowthRecord struct {
	gorm.Model

	// Directory holds the frames of the run
	Directory string `gorm:"index;not null"`

	// Files is the time-ordered, comma separated frame list
	Files string

	// Line is the one-based direction number
	Line int `gorm:"not null"`

	StartX float64
	StartY float64
	EndX   float64
	EndY   float64

	// Crop is the region in "x1:x2,y1:y2" form
	Crop string

	// GrowthRate is in microns per second; nil when the fit failed
	GrowthRate *float64
	Intercept  *float64
	RSquared   *float64
	Points     int
	FitError   string

	Magnification   string
	MicronsPerPixel float64
	TimeSource      string

	LowerBounds string
	UpperBounds string
	Invert      bool
	DiskRadius  int
	Equalized   bool

	// Sample metadata guessed from file names or given in the session
	Substrate      string
	Material       string
	AnnealTemp     string
	Thickness      string
	DepositionTemp string
	GrowthDate     string
	Notes          string
}

// Store writes records to every opened database
type Store struct {
	dbs []*gorm.DB
}

// Open connects to the SQLite file and the PostgreSQL DSN, skipping empty ones.
// A store with no database accepts records and drops them.
func Open(sqliteFile, postgresDSN string) (*Store, error) {
	s := &Store{}
	if sqliteFile != "" {
		if err := s.attach(sqlite.Open(sqliteFile)); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to open sqlite %s: %w", sqliteFile, err)
		}
	}
	if postgresDSN != "" {
		if err := s.attach(postgres.Open(postgresDSN)); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to connect postgres: %w", err)
		}
	}
	return s, nil
}

// attach opens one database and migrates the growth record table in it
func (s *Store) attach(dialector gorm.Dialector) error {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gorm_logrus.New(),
	})
	if err != nil {
		return err
	}
	// Added before migrating so Close releases it on failure
	s.dbs = append(s.dbs, db)
	if err := db.AutoMigrate(&GrowthRecord{}); err != nil {
		return fmt.Errorf("failed to migrate growth records: %w", err)
	}
	return nil
}

// Enabled reports whether any database is connected
func (s *Store) Enabled() bool {
	return len(s.dbs) > 0
}

// Append inserts the records into every database
func (s *Store) Append(records []GrowthRecord) error {
	if len(records) == 0 {
		return nil
	}
	var errs []error
	for _, db := range s.dbs {
		// Each database gets its own copy so primary keys are not shared
		rows := make([]GrowthRecord, len(records))
		copy(rows, records)
		if err := db.Create(&rows).Error; err != nil {
			errs = append(errs, err)
			continue
		}
		log.WithFields(log.Fields{
			"dialect": db.Dialector.Name(),
			"records": len(rows),
		}).Infoln("stored growth records")
	}
	return errors.Join(errs...)
}

// Records returns every stored record of a directory from the first database, oldest first
func (s *Store) Records(directory string) ([]GrowthRecord, error) {
	if len(s.dbs) == 0 {
		return nil, nil
	}
	var records []GrowthRecord
	err := s.dbs[0].Where("directory = ?", directory).Order("id").Find(&records).Error
	return records, err
}

// Close releases the database connections
func (s *Store) Close() error {
	var errs []error
	for _, db := range s.dbs {
		sqlDB, err := db.DB()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		errs = append(errs, sqlDB.Close())
	}
	return errors.Join(errs...)
}
