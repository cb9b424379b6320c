// Package store provides persistent and file based road feeds for the graph
// builder.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"kuanb/road-router/graph"

	"github.com/paulmach/orb"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/mysqldialect"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/schema"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// roadRow is the persisted form of a road. Geometry and segment lengths are
// stored as JSON text so every dialect uses the same schema.
type roadRow struct {
	bun.BaseModel `bun:"table:roads,alias:r"`

	ID             int64     `bun:"id,pk,autoincrement"`
	Name           string    `bun:"name,notnull,default:''"`
	RoadType       string    `bun:"road_type,notnull,default:''"`
	Coordinates    string    `bun:"coordinates,notnull"`
	SegmentLengths string    `bun:"segment_lengths,notnull,default:''"`
	OneWay         bool      `bun:"is_oneway,notnull,default:false"`
	MaxSpeedKmh    float64   `bun:"max_speed_kmh,notnull,default:0"`
	UpdatedAt      time.Time `bun:"updated_at,notnull"`
}

func toRow(r graph.Road) (*roadRow, error) {
	coords, err := json.Marshal(r.Polyline)
	if err != nil {
		return nil, fmt.Errorf("encode coordinates: %w", err)
	}
	row := &roadRow{
		ID:          int64(r.ID),
		Name:        r.Name,
		RoadType:    r.Type,
		Coordinates: string(coords),
		OneWay:      r.OneWay,
		MaxSpeedKmh: r.MaxSpeedKmh,
		UpdatedAt:   time.Now().UTC(),
	}
	if len(r.SegmentLengths) > 0 {
		lengths, err := json.Marshal(r.SegmentLengths)
		if err != nil {
			return nil, fmt.Errorf("encode segment lengths: %w", err)
		}
		row.SegmentLengths = string(lengths)
	}
	return row, nil
}

func (row *roadRow) road() (graph.Road, error) {
	r := graph.Road{
		ID:          graph.RoadID(row.ID),
		Name:        row.Name,
		Type:        row.RoadType,
		OneWay:      row.OneWay,
		MaxSpeedKmh: row.MaxSpeedKmh,
	}
	var line [][2]float64
	if err := json.Unmarshal([]byte(row.Coordinates), &line); err != nil {
		return r, fmt.Errorf("road %d: decode coordinates: %w", row.ID, err)
	}
	r.Polyline = make(orb.LineString, len(line))
	for i, p := range line {
		r.Polyline[i] = orb.Point(p)
	}
	if row.SegmentLengths != "" {
		if err := json.Unmarshal([]byte(row.SegmentLengths), &r.SegmentLengths); err != nil {
			return r, fmt.Errorf("road %d: decode segment lengths: %w", row.ID, err)
		}
	}
	return r, nil
}

// DB is a bun backed road table. It implements graph.RoadSource and calls the
// registered change hooks after every successful write.
type DB struct {
	bun    *bun.DB
	dbType string
	logger *slog.Logger

	mu    sync.Mutex
	hooks []func()
}

// sqlOpenFunc allows tests to override database opening behavior.
var sqlOpenFunc = sql.Open

// Open connects to dbType ("sqlite", "postgres" or "mysql") and creates the
// roads table when missing.
func Open(ctx context.Context, dbType, dsn string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	driverName := dbType
	// The pgx stdlib registers driver name "pgx"; map "postgres" to that driver.
	if dbType == "postgres" {
		driverName = "pgx"
	}

	var dialect schema.Dialect
	switch dbType {
	case "sqlite":
		dialect = sqlitedialect.New()
	case "postgres":
		dialect = pgdialect.New()
	case "mysql":
		dialect = mysqldialect.New()
		var err error
		if dsn, err = mysqlDSN(dsn); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}

	start := time.Now()
	sqlDB, err := sqlOpenFunc(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory sqlite database exists per connection.
	if dbType == "sqlite" && dsn == ":memory:" {
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
	}

	db := &DB{bun: bun.NewDB(sqlDB, dialect), dbType: dbType, logger: logger}
	if _, err := db.bun.NewCreateTable().Model((*roadRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create roads table: %w", err)
	}
	logger.Debug("opened road database", "driver", driverName, "duration", time.Since(start))
	return db, nil
}

// mysqlDSN makes RowsAffected count matched rather than changed rows, so an
// update that changes nothing is not reported as a missing road. updated_at
// needs parseTime to scan into time.Time.
func mysqlDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ClientFoundRows = true
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

func (db *DB) Close() error {
	return db.bun.Close()
}

// OnChange registers fn to run after every successful insert, update or
// delete. Hooks run synchronously on the writing goroutine.
func (db *DB) OnChange(fn func()) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.hooks = append(db.hooks, fn)
}

func (db *DB) changed() {
	db.mu.Lock()
	hooks := append([]func(){}, db.hooks...)
	db.mu.Unlock()
	for _, fn := range hooks {
		fn()
	}
}

// Roads returns every stored road ordered by id. Rows that no longer decode
// are logged and skipped.
func (db *DB) Roads(ctx context.Context) ([]graph.Road, error) {
	var rows []roadRow
	if err := db.bun.NewSelect().Model(&rows).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("select roads: %w", err)
	}
	roads := make([]graph.Road, 0, len(rows))
	for i := range rows {
		r, err := rows[i].road()
		if err != nil {
			db.logger.Warn("skipping undecodable road row", "road_id", rows[i].ID, "error", err)
			continue
		}
		roads = append(roads, r)
	}
	return roads, nil
}

// Get returns one road by id.
func (db *DB) Get(ctx context.Context, id graph.RoadID) (graph.Road, error) {
	row := new(roadRow)
	err := db.bun.NewSelect().Model(row).Where("id = ?", int64(id)).Scan(ctx)
	if err = mapDBError(err); err != nil {
		if err == ErrNotFound {
			return graph.Road{}, notFound(int64(id))
		}
		return graph.Road{}, err
	}
	return row.road()
}

// Insert stores a new road and returns its id. A zero r.ID lets the database
// assign one.
func (db *DB) Insert(ctx context.Context, r graph.Road) (graph.RoadID, error) {
	if err := graph.ValidateRoad(r); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidRoad, err)
	}
	row, err := toRow(r)
	if err != nil {
		return 0, err
	}
	if err := db.insertRow(ctx, db.bun, row); err != nil {
		return 0, fmt.Errorf("insert road: %w", err)
	}
	db.logger.Info("inserted road", "road_id", row.ID)
	db.changed()
	return graph.RoadID(row.ID), nil
}

// insertRow inserts row and fills in a database assigned id.
func (db *DB) insertRow(ctx context.Context, idb bun.IDB, row *roadRow) error {
	q := idb.NewInsert().Model(row)
	if row.ID == 0 {
		q = q.ExcludeColumn("id")
		// mysql reports the id through LastInsertId instead
		if db.dbType != "mysql" {
			q = q.Returning("id")
		}
	}
	_, err := q.Exec(ctx)
	return err
}

// Update replaces the stored road with the same id.
func (db *DB) Update(ctx context.Context, r graph.Road) error {
	if err := graph.ValidateRoad(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRoad, err)
	}
	row, err := toRow(r)
	if err != nil {
		return err
	}
	res, err := db.bun.NewUpdate().Model(row).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("update road: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(row.ID)
	}
	db.logger.Info("updated road", "road_id", row.ID)
	db.changed()
	return nil
}

// Delete removes a road by id.
func (db *DB) Delete(ctx context.Context, id graph.RoadID) error {
	res, err := db.bun.NewDelete().Model((*roadRow)(nil)).Where("id = ?", int64(id)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete road: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return notFound(int64(id))
	}
	db.logger.Info("deleted road", "road_id", int64(id))
	db.changed()
	return nil
}

// Import inserts roads in one transaction and fires the change hooks once.
func (db *DB) Import(ctx context.Context, roads []graph.Road) (int, error) {
	rows := make([]*roadRow, 0, len(roads))
	for _, r := range roads {
		if err := graph.ValidateRoad(r); err != nil {
			db.logger.Warn("skipping road on import", "road_id", r.ID, "error", err)
			continue
		}
		row, err := toRow(r)
		if err != nil {
			return 0, err
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	err := db.bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, row := range rows {
			if err := db.insertRow(ctx, tx, row); err != nil {
				return fmt.Errorf("insert road %d: %w", row.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	db.logger.Info("imported roads", "count", len(rows))
	db.changed()
	return len(rows), nil
}
