package database

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/chrissnell/sensordash/internal/log"
	"go.uber.org/zap"
)

// Client holds the connection to a TimescaleDB database
type Client struct {
	connectionString string
	DB               *gorm.DB
}

// NewClient creates a new database client
func NewClient(connectionString string) *Client {
	return &Client{connectionString: connectionString}
}

// Connect connects to the TimescaleDB database
func (c *Client) Connect() error {
	db, err := CreateConnection(c.connectionString)
	if err != nil {
		return err
	}
	c.DB = db
	return nil
}

// Close releases the underlying connection pool
func (c *Client) Close() error {
	if c.DB == nil {
		return nil
	}
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// FetchReadings returns every row of table ordered by time. The gas_level
// column is only selected when the table has one.
func (c *Client) FetchReadings(ctx context.Context, table string) ([]ReadingRow, bool, error) {
	if c.DB == nil {
		return nil, false, fmt.Errorf("database client is not connected")
	}

	hasGasLevel := c.DB.Migrator().HasColumn(table, "gas_level")
	columns := "time, location, temperature, humidity, moisture, gas"
	if hasGasLevel {
		columns += ", gas_level"
	}

	var rows []ReadingRow
	err := c.DB.WithContext(ctx).Table(table).Select(columns).Order("time").Find(&rows).Error
	if err != nil {
		return nil, false, fmt.Errorf("error querying %s: %w", table, err)
	}
	return rows, hasGasLevel, nil
}

// CreateConnection opens a gorm handle that logs through zap
func CreateConnection(connectionString string) (*gorm.DB, error) {
	dbLogger := logger.New(
		zap.NewStdLog(log.GetZapLogger()),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	log.Info("connecting to TimescaleDB...")
	db, err := gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
	if err != nil {
		log.Warnf("unable to create a TimescaleDB connection: %v", err)
		return nil, err
	}

	return db, nil
}
