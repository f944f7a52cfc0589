package datasource

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/sirily11/bybit-backtest/internal/logger"
	"github.com/sirily11/bybit-backtest/internal/types"
	"github.com/sirily11/bybit-backtest/pkg/errors"
	"go.uber.org/zap"
)

// DuckDBSource reads candles from CSV or Parquet files through an in-process
// DuckDB instance. Initialize creates a view over the file, so switching data
// files between runs is cheap.
type DuckDBSource struct {
	db  *sql.DB
	log *logger.Logger
	sq  squirrel.StatementBuilderType
}

// NewDuckDBSource opens an in-memory DuckDB instance. Initialize must be
// called with a data path before reading.
func NewDuckDBSource(log *logger.Logger) (*DuckDBSource, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	return &DuckDBSource{
		db:  db,
		log: log,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// Initialize implements CandleSource. The reader function is chosen by file
// extension; anything other than CSV or Parquet is rejected.
func (d *DuckDBSource) Initialize(path string) error {
	d.log.Debug("Initializing DuckDB candle source", zap.String("path", path))

	var reader string

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		reader = "read_csv_auto"
	case ".parquet":
		reader = "read_parquet"
	default:
		return errors.Newf(errors.ErrCodeDataSourceUnavailable, "unsupported data file extension: %s", path)
	}

	if _, err := d.db.Exec(`DROP VIEW IF EXISTS candles;`); err != nil {
		return errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to drop existing view", err)
	}

	query := fmt.Sprintf(`CREATE VIEW candles AS SELECT * FROM %s('%s');`, reader, path)
	if _, err := d.db.Exec(query); err != nil {
		return errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to create view over %s", path)
	}

	return nil
}

// Count implements CandleSource.
func (d *DuckDBSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	builder := d.sq.Select("COUNT(*)").From("candles")
	builder = applyTimeRange(builder, start, end)

	query, params, err := builder.ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build count query", err)
	}

	var count int
	if err := d.db.QueryRow(query, params...).Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "count query failed", err)
	}

	return count, nil
}

// ReadAll implements CandleSource.
func (d *DuckDBSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Candle, error) bool) {
	return func(yield func(types.Candle, error) bool) {
		builder := d.sq.
			Select("timestamp", "open", "high", "low", "close", "volume", "turnover").
			From("candles").
			OrderBy("timestamp ASC")
		builder = applyTimeRange(builder, start, end)

		query, params, err := builder.ToSql()
		if err != nil {
			yield(types.Candle{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build query", err))
			return
		}

		rows, err := d.db.Query(query, params...)
		if err != nil {
			yield(types.Candle{}, errors.Wrap(errors.ErrCodeQueryFailed, "query failed", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			candle, err := scanCandle(rows)
			if err != nil {
				yield(types.Candle{}, err)
				return
			}

			if !yield(candle, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.Candle{}, errors.Wrap(errors.ErrCodeQueryFailed, "row iteration failed", err))
		}
	}
}

// GetRange implements CandleSource.
func (d *DuckDBSource) GetRange(start time.Time, end time.Time) ([]types.Candle, error) {
	return Collect(d, optional.Some(start), optional.Some(end))
}

// Close implements CandleSource.
func (d *DuckDBSource) Close() error {
	return d.db.Close()
}

func applyTimeRange(builder squirrel.SelectBuilder, start optional.Option[time.Time], end optional.Option[time.Time]) squirrel.SelectBuilder {
	if start.IsSome() {
		builder = builder.Where(squirrel.GtOrEq{"timestamp": start.Unwrap()})
	}

	if end.IsSome() {
		builder = builder.Where(squirrel.LtOrEq{"timestamp": end.Unwrap()})
	}

	return builder
}

// scanCandle reads one row. The timestamp column may arrive as a native
// TIMESTAMP or as an epoch-millisecond integer, which is how exchange CSV
// dumps usually encode it.
func scanCandle(rows *sql.Rows) (types.Candle, error) {
	var rawTimestamp any

	var candle types.Candle

	if err := rows.Scan(&rawTimestamp, &candle.Open, &candle.High, &candle.Low, &candle.Close, &candle.Volume, &candle.Turnover); err != nil {
		return types.Candle{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan row", err)
	}

	switch ts := rawTimestamp.(type) {
	case time.Time:
		candle.Timestamp = ts.UTC()
	case int64:
		candle.Timestamp = time.UnixMilli(ts).UTC()
	case float64:
		candle.Timestamp = time.UnixMilli(int64(ts)).UTC()
	default:
		return types.Candle{}, errors.Newf(errors.ErrCodeQueryFailed, "unsupported timestamp type %T", rawTimestamp)
	}

	return candle, nil
}
