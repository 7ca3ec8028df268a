package postgres

import (
	"context"
	"fmt"
	"time"

	"coinetl/internal/etl/market"

	"gorm.io/gorm/clause"
)

const createMarketTableSQL = `CREATE TABLE IF NOT EXISTS ? (
	id VARCHAR(100),
	symbol VARCHAR(50),
	name VARCHAR(150),
	current_price DOUBLE PRECISION,
	market_cap DOUBLE PRECISION,
	price_change_percentage_24h DOUBLE PRECISION,
	ath DOUBLE PRECISION,
	atl DOUBLE PRECISION,
	time_stamp TIMESTAMP
)`

// UpsertResult reports what UpsertDaily changed.
type UpsertResult struct {
	Existing int64 // rows found for the date before the call
	Deleted  int64
	Inserted int64
}

// EnsureTable creates the snapshot table if it does not exist.
func (p *PostgresClient) EnsureTable(ctx context.Context, table string) error {
	if err := p.DB.WithContext(ctx).Exec(createMarketTableSQL, clause.Table{Name: table}).Error; err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

// CountByDate counts rows whose time_stamp falls on date's calendar day.
func (p *PostgresClient) CountByDate(ctx context.Context, table string, date time.Time) (int64, error) {
	var count int64
	err := p.DB.WithContext(ctx).
		Raw("SELECT COUNT(*) FROM ? WHERE DATE(time_stamp) = ?", clause.Table{Name: table}, date.Format(market.DateLayout)).
		Scan(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count rows for %s: %w", date.Format(market.DateLayout), err)
	}
	return count, nil
}

// DeleteByDate removes every row whose time_stamp falls on date's calendar day.
func (p *PostgresClient) DeleteByDate(ctx context.Context, table string, date time.Time) (int64, error) {
	tx := p.DB.WithContext(ctx).
		Exec("DELETE FROM ? WHERE DATE(time_stamp) = ?", clause.Table{Name: table}, date.Format(market.DateLayout))
	if tx.Error != nil {
		return 0, fmt.Errorf("delete rows for %s: %w", date.Format(market.DateLayout), tx.Error)
	}
	return tx.RowsAffected, nil
}

// InsertMarkets appends rows in a single INSERT.
func (p *PostgresClient) InsertMarkets(ctx context.Context, table string, rows []market.Row) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	records := make([]MarketRecord, len(rows))
	for i, r := range rows {
		records[i] = ToMarketRecord(r)
	}

	tx := p.DB.WithContext(ctx).Table(table).Create(&records)
	if tx.Error != nil {
		return 0, fmt.Errorf("insert %d rows: %w", len(records), tx.Error)
	}
	return tx.RowsAffected, nil
}

// UpsertDaily replaces the rows stored for date with rows. The delete completes
// before the insert starts; if the insert fails the date is left empty.
func (p *PostgresClient) UpsertDaily(ctx context.Context, table string, rows []market.Row, date time.Time) (UpsertResult, error) {
	var res UpsertResult

	existing, err := p.CountByDate(ctx, table, date)
	if err != nil {
		return res, err
	}
	res.Existing = existing

	if existing > 0 {
		deleted, err := p.DeleteByDate(ctx, table, date)
		if err != nil {
			return res, err
		}
		res.Deleted = deleted
	}

	inserted, err := p.InsertMarkets(ctx, table, rows)
	if err != nil {
		return res, err
	}
	res.Inserted = inserted

	return res, nil
}

// ListByDate returns the rows stored for date ordered by id.
func (p *PostgresClient) ListByDate(ctx context.Context, table string, date time.Time) ([]market.Row, error) {
	var records []MarketRecord
	err := p.DB.WithContext(ctx).
		Table(table).
		Where("DATE(time_stamp) = ?", date.Format(market.DateLayout)).
		Order("id").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("list rows for %s: %w", date.Format(market.DateLayout), err)
	}

	rows := make([]market.Row, len(records))
	for i, r := range records {
		rows[i] = r.ToRow()
	}
	return rows, nil
}
