// Package database is the MongoDB backend: connection management with
// automatic reconnection, a small LRU cache for hot reads, and MongoStore,
// which implements every repository the governance core needs.
package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/PancyStudios/PancyGuardGo/pkg/logger"
)

// ErrNotConnected is returned by every operation while the client is down.
var ErrNotConnected = errors.New("not connected to database")

const reconnectInterval = 15 * time.Second

// Database manages the MongoDB connection.
type Database struct {
	client      *mongo.Client
	db          *mongo.Database
	connected   bool
	reconnect   *time.Ticker
	stop        chan struct{}
	stopOnce    sync.Once
	mu          sync.RWMutex
	collections map[string]*mongo.Collection
}

var (
	database *Database
	dbOnce   sync.Once
)

// Init connects the global database instance.
func Init(ctx context.Context, mongoURL, dbName string) (*Database, error) {
	var err error
	dbOnce.Do(func() {
		database = NewDatabase()
		err = database.Connect(ctx, mongoURL, dbName)
	})
	return database, err
}

// Get returns the global database instance.
func Get() *Database {
	return database
}

func NewDatabase() *Database {
	return &Database{
		stop:        make(chan struct{}),
		collections: make(map[string]*mongo.Collection),
	}
}

// Connect establishes the connection. On failure a background loop keeps
// retrying every 15 seconds; callers get ErrNotConnected in the meantime.
func (d *Database) Connect(ctx context.Context, mongoURL, dbName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return nil
	}

	logger.System("Intentando conectar a la base de datos...", "DB")

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(mongoURL).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err == nil {
		err = client.Ping(ctx, readpref.Primary())
	}
	if err != nil {
		logger.Critical(fmt.Sprintf("Fallo al conectar con la base de datos: %v", err), "DB")
		d.scheduleReconnect(mongoURL, dbName)
		return err
	}

	d.client = client
	d.db = client.Database(dbName)
	d.collections = make(map[string]*mongo.Collection)
	d.connected = true
	if d.reconnect != nil {
		d.reconnect.Stop()
		d.reconnect = nil
	}

	logger.Success("Conectado exitosamente a la base de datos.", "DB")
	return nil
}

// scheduleReconnect must be called with d.mu held.
func (d *Database) scheduleReconnect(mongoURL, dbName string) {
	if d.reconnect != nil {
		return
	}
	d.reconnect = time.NewTicker(reconnectInterval)
	ticker := d.reconnect
	go func() {
		for {
			select {
			case <-ticker.C:
				logger.Info("Intentando reconectar a la base de datos...", "DB")
				if err := d.Connect(context.Background(), mongoURL, dbName); err == nil {
					return
				}
			case <-d.stop:
				return
			}
		}
	}()
}

// Connected reports whether the client is usable.
func (d *Database) Connected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// Disconnect stops reconnection attempts and closes the client.
func (d *Database) Disconnect(ctx context.Context) error {
	d.stopOnce.Do(func() { close(d.stop) })

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.reconnect != nil {
		d.reconnect.Stop()
		d.reconnect = nil
	}
	if d.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := d.client.Disconnect(ctx); err != nil {
		return err
	}
	d.connected = false
	logger.Warn("La base de datos ha sido desconectada", "DB")
	return nil
}

// Ping measures the database response time.
func (d *Database) Ping(ctx context.Context) (time.Duration, error) {
	d.mu.RLock()
	client := d.client
	connected := d.connected
	d.mu.RUnlock()

	if !connected || client == nil {
		return 0, ErrNotConnected
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	err := client.Ping(ctx, readpref.Primary())
	return time.Since(start), err
}

// GetStatus returns a human readable connection status.
func (d *Database) GetStatus(ctx context.Context) (string, bool) {
	if _, err := d.Ping(ctx); err != nil {
		return "🔴 | Desconectado", false
	}
	return "🟢 | En linea", true
}

// Collection returns a handle to a collection, or ErrNotConnected.
func (d *Database) Collection(name string) (*mongo.Collection, error) {
	d.mu.RLock()
	if col, ok := d.collections[name]; ok {
		d.mu.RUnlock()
		return col, nil
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.connected || d.db == nil {
		return nil, ErrNotConnected
	}
	col := d.db.Collection(name)
	d.collections[name] = col
	return col, nil
}
