package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

func upsert(tx *gorm.DB, n *node) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		UpdateAll: true,
	}).Create(n).Error
}

// defaultPollInterval is how often SQL subscriptions re-read their subtree.
const defaultPollInterval = 250 * time.Millisecond

// node is one record of the key tree.
type node struct {
	Path      string    `gorm:"primaryKey;type:varchar(500)"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null;index:idx_nodes_updated_at"`
}

func (node) TableName() string {
	return "nodes"
}

// SQL is a Gateway backed by a relational database through GORM. It exists
// for deployments without Redis; subscriptions are implemented by polling,
// so change delivery lags by up to PollInterval.
type SQL struct {
	db  *gorm.DB
	log *zap.Logger

	// PollInterval controls subscription refresh. Zero means the default.
	PollInterval time.Duration

	mu     sync.Mutex
	subs   map[int]func()
	nextID int
	closed bool
}

// ConnectPostgres opens a PostgreSQL-backed gateway and runs migrations.
func ConnectPostgres(dsn string, log *zap.Logger) (*SQL, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Warn),
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return NewSQL(db, log)
}

// NewSQL wraps an open GORM connection and runs migrations.
func NewSQL(db *gorm.DB, log *zap.Logger) (*SQL, error) {
	if err := db.AutoMigrate(&node{}); err != nil {
		return nil, fmt.Errorf("failed to migrate nodes table: %w", err)
	}
	return &SQL{
		db:   db,
		log:  log,
		subs: make(map[int]func()),
	}, nil
}

func (g *SQL) Read(ctx context.Context, path string, dest interface{}) (bool, error) {
	if err := ValidatePath(path); err != nil {
		return false, err
	}

	raw, ok, err := g.readRaw(ctx, path)
	if err != nil || !ok {
		return ok, err
	}
	if dest != nil {
		if err := json.Unmarshal(raw, dest); err != nil {
			return true, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return true, nil
}

func (g *SQL) Write(ctx context.Context, path string, value interface{}) error {
	if err := ValidatePath(path); err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// A record replaces whatever subtree lived below its path.
		if err := tx.Where("path LIKE ?", path+"/%").Delete(&node{}).Error; err != nil {
			return err
		}
		return upsert(tx, &node{Path: path, Value: string(raw), UpdatedAt: time.Now()})
	})
}

func (g *SQL) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	if err := ValidatePath(path); err != nil {
		return err
	}

	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing node
		err := tx.Where("path = ?", path).First(&existing).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		merged, err := mergeFields(json.RawMessage(existing.Value), fields)
		if err != nil {
			return fmt.Errorf("encode %s: %w", path, err)
		}
		return upsert(tx, &node{Path: path, Value: string(merged), UpdatedAt: time.Now()})
	})
}

func (g *SQL) Remove(ctx context.Context, path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	return g.db.WithContext(ctx).
		Where("path = ? OR path LIKE ?", path, path+"/%").
		Delete(&node{}).Error
}

func (g *SQL) Push(ctx context.Context, path string) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", err
	}
	return PushKey(), nil
}

func (g *SQL) Subscribe(ctx context.Context, path string) (*Subscription, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, ErrClosed
	}
	id := g.nextID
	g.nextID++
	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.subs, id)
			g.mu.Unlock()
			close(done)
		})
	}
	g.subs[id] = cancel
	g.mu.Unlock()

	sub := newSubscription(cancel)

	interval := g.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	go func() {
		defer close(sub.events)

		last := g.snapshot(ctx, path)
		sub.deliver(last)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				current := g.snapshot(ctx, path)
				if bytes.Equal(current, last) {
					continue
				}
				last = current
				sub.deliver(current)
			case <-done:
				return
			case <-ctx.Done():
				cancel()
				return
			}
		}
	}()

	return sub, nil
}

// Close cancels all subscriptions and closes the database connection.
func (g *SQL) Close() error {
	g.mu.Lock()
	g.closed = true
	subs := g.subs
	g.subs = make(map[int]func())
	g.mu.Unlock()

	for _, cancel := range subs {
		cancel()
	}

	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the database connection is alive.
func (g *SQL) Ping() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func (g *SQL) readRaw(ctx context.Context, path string) (json.RawMessage, bool, error) {
	var rows []node
	err := g.db.WithContext(ctx).
		Where("path = ? OR path LIKE ?", path, path+"/%").
		Find(&rows).Error
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, false, nil
	}

	records := make(map[string]json.RawMessage, len(rows))
	for _, r := range rows {
		records[r.Path] = json.RawMessage(r.Value)
	}
	raw, ok := assemble(records, path)
	return raw, ok, nil
}

func (g *SQL) snapshot(ctx context.Context, path string) json.RawMessage {
	raw, ok, err := g.readRaw(ctx, path)
	if err != nil {
		g.log.Error("Failed to refresh subscription", zap.String("path", path), zap.Error(err))
		return json.RawMessage("null")
	}
	if !ok {
		return json.RawMessage("null")
	}
	return raw
}

var _ Gateway = (*SQL)(nil)
