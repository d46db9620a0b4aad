// Package datastore persists aggregated readings and serves the pressure history
// consulted by the trend classifier.
package datastore

import (
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/avikko/wxpost/internal/errors"
	"github.com/avikko/wxpost/internal/weather"
)

// HourlyReading is the persisted form of an aggregated Reading. Optional fields stay
// nullable so a missing value is never stored as zero.
type HourlyReading struct {
	ID          uint      `gorm:"primaryKey"`
	Time        time.Time `gorm:"index"`
	Station     string
	Temperature *float64
	FeelsLike   *float64
	Humidity    *float64
	WindSpeed   *float64
	WindDir     *float64
	WindGust    *float64
	Pressure    *float64
	CloudCover  *float64
	RainRate    *float64
	RainTotal   *float64
	SnowRate    *float64
	SnowTotal   *float64
	UVIndex     *float64
}

// TrendSample is one historical pressure observation, ordered by time ascending.
type TrendSample struct {
	Time     time.Time
	Pressure float64
}

// Interface is the read/write contract the pipeline depends on. The trend
// calculator only uses RecentPressure.
type Interface interface {
	SaveReading(reading *weather.Reading) error
	RecentPressure(window time.Duration) ([]TrendSample, error)
	Close() error
}

// DataStore implements Interface on a gorm-managed SQLite database.
type DataStore struct {
	db  *gorm.DB
	now func() time.Time // test seam
}

// Open opens (and migrates) the SQLite database at path.
func Open(path string) (*DataStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "open").
			Context("path", path).
			Build()
	}

	if err := db.AutoMigrate(&HourlyReading{}); err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "auto_migrate").
			Build()
	}

	return &DataStore{db: db, now: time.Now}, nil
}

// SaveReading persists the aggregated reading for later trend computation.
func (ds *DataStore) SaveReading(reading *weather.Reading) error {
	record := &HourlyReading{
		Time:        reading.Time,
		Station:     reading.Station,
		Temperature: reading.Temperature,
		FeelsLike:   reading.FeelsLike,
		Humidity:    reading.Humidity,
		WindSpeed:   reading.WindSpeed,
		WindDir:     reading.WindDir,
		WindGust:    reading.WindGust,
		Pressure:    reading.Pressure,
		CloudCover:  reading.CloudCover,
		RainRate:    reading.RainRate,
		RainTotal:   reading.RainTotal,
		SnowRate:    reading.SnowRate,
		SnowTotal:   reading.SnowTotal,
		UVIndex:     reading.UVIndex,
	}

	if err := ds.db.Create(record).Error; err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "save_reading").
			Context("time", reading.Time.Format(time.RFC3339)).
			Build()
	}
	return nil
}

// RecentPressure returns pressure samples within the trailing window, ordered by
// time ascending. Readings without a pressure value are skipped.
func (ds *DataStore) RecentPressure(window time.Duration) ([]TrendSample, error) {
	cutoff := ds.now().Add(-window)

	var rows []HourlyReading
	err := ds.db.
		Where("time >= ? AND pressure IS NOT NULL", cutoff).
		Order("time asc").
		Find(&rows).Error
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "recent_pressure").
			Build()
	}

	samples := make([]TrendSample, 0, len(rows))
	for i := range rows {
		if rows[i].Pressure == nil {
			continue
		}
		samples = append(samples, TrendSample{Time: rows[i].Time, Pressure: *rows[i].Pressure})
	}
	return samples, nil
}

// Close releases the underlying database handle.
func (ds *DataStore) Close() error {
	sqlDB, err := ds.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
