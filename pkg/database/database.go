// Package database provides the MongoDB connection and data management.
// It includes a generic DataManager with an LRU cache and an offline write
// queue that is replayed once the connection comes back.
package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/PancyStudios/UselessBotGo/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Operation kinds accepted by the offline write queue
const (
	OpSet    = "set"
	OpDelete = "delete"
	OpInsert = "insert"
)

// QueuedOperation represents a pending database operation
type QueuedOperation struct {
	CollectionName string
	Query          bson.M
	Operation      string
	Data           interface{}
}

// Database manages the MongoDB connection and data managers
type Database struct {
	client        *mongo.Client
	db            *mongo.Database
	mongoURL      string
	dbName        string
	connected     bool
	writeQueue    []QueuedOperation
	reconnecting  bool
	retryInterval time.Duration
	stopReconnect chan struct{}
	stopOnce      sync.Once
	mu            sync.RWMutex
	queueMu       sync.Mutex
	collections   map[string]*mongo.Collection
}

var (
	database *Database
	dbOnce   sync.Once
)

// Init initializes the global database instance
func Init(mongoURL, dbName string) (*Database, error) {
	var err error
	dbOnce.Do(func() {
		database = NewDatabase()
		err = database.Connect(mongoURL, dbName)
	})
	return database, err
}

// Get returns the global database instance
func Get() *Database {
	return database
}

// NewDatabase creates a new, disconnected Database
func NewDatabase() *Database {
	return &Database{
		writeQueue:    make([]QueuedOperation, 0),
		retryInterval: 15 * time.Second,
		stopReconnect: make(chan struct{}),
		collections:   make(map[string]*mongo.Collection),
	}
}

// NewFromClient wraps an already connected client
func NewFromClient(client *mongo.Client, dbName string) *Database {
	d := NewDatabase()
	d.client = client
	d.db = client.Database(dbName)
	d.dbName = dbName
	d.connected = true
	return d
}

// Connect establishes a connection to MongoDB. On failure the database
// switches to offline mode and keeps retrying in the background.
func (d *Database) Connect(mongoURL, dbName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return nil
	}
	d.mongoURL, d.dbName = mongoURL, dbName

	logger.System("Intentando conectar a la base de datos...", "DB")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(mongoURL).
		SetServerSelectionTimeout(5 * time.Second)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		logger.Critical("Fallo al conectar con la base de datos.", "DB")
		d.startReconnectLocked()
		return err
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		logger.Critical("Fallo al verificar conexión con la base de datos.", "DB")
		_ = client.Disconnect(context.Background())
		d.startReconnectLocked()
		return err
	}

	d.client = client
	d.db = client.Database(dbName)
	d.collections = make(map[string]*mongo.Collection)
	d.connected = true

	logger.Success("Conectado exitosamente a la base de datos.", "DB")

	go d.syncOfflineWrites()
	return nil
}

// startReconnectLocked launches the retry loop once. Callers hold d.mu.
func (d *Database) startReconnectLocked() {
	d.connected = false
	if d.reconnecting {
		return
	}
	d.reconnecting = true
	logger.Warn("Sin conexión con la base de datos. Activando modo offline.", "DB")

	go func() {
		ticker := time.NewTicker(d.retryInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				logger.Info("Intentando reconectar a la base de datos...", "DB")
				d.mu.Lock()
				d.reconnecting = false
				d.mu.Unlock()
				if err := d.Connect(d.mongoURL, d.dbName); err == nil {
					return
				}
				d.mu.Lock()
				stillRetrying := d.reconnecting
				d.mu.Unlock()
				if stillRetrying {
					// Connect started a fresh loop
					return
				}
			case <-d.stopReconnect:
				return
			}
		}
	}()
}

// MarkDisconnected switches to offline mode after a failed operation
func (d *Database) MarkDisconnected() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.connected {
		d.startReconnectLocked()
	}
}

// Connected reports whether the database is usable right now
func (d *Database) Connected() bool {
	if d == nil {
		return false
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// Disconnect closes the database connection and stops reconnection attempts
func (d *Database) Disconnect() error {
	d.stopOnce.Do(func() { close(d.stopReconnect) })

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.client.Disconnect(ctx); err != nil {
		return err
	}
	d.connected = false
	logger.Warn("La base de datos ha sido desconectada", "DB")
	return nil
}

// Ping measures the database response time
func (d *Database) Ping() (time.Duration, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if !d.connected || d.client == nil {
		return 0, fmt.Errorf("not connected to database")
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := d.client.Ping(ctx, readpref.Primary())
	return time.Since(start), err
}

// GetStatus returns the database connection status
func (d *Database) GetStatus() (string, bool) {
	if d == nil {
		return "🔴 | Desconectado", false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.client == nil {
		return "🔴 | Desconectado", false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := d.client.Ping(ctx, readpref.Primary()); err != nil {
		return "🔴 | Desconectado", false
	}
	return "🟢 | En linea", true
}

// GetCollection returns a MongoDB collection, or nil while never connected
func (d *Database) GetCollection(name string) *mongo.Collection {
	d.mu.RLock()
	if col, exists := d.collections[name]; exists {
		d.mu.RUnlock()
		return col
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.db == nil {
		return nil
	}

	col := d.db.Collection(name)
	d.collections[name] = col
	return col
}

// AddToWriteQueue adds an operation to the offline write queue
func (d *Database) AddToWriteQueue(op QueuedOperation) {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	d.writeQueue = append(d.writeQueue, op)
}

// PendingWrites returns the number of queued offline operations
func (d *Database) PendingWrites() int {
	d.queueMu.Lock()
	defer d.queueMu.Unlock()
	return len(d.writeQueue)
}

// syncOfflineWrites replays queued operations. Failures are queued again.
func (d *Database) syncOfflineWrites() {
	d.queueMu.Lock()
	if len(d.writeQueue) == 0 {
		d.queueMu.Unlock()
		return
	}

	logger.System(fmt.Sprintf("Sincronizando %d operaciones pendientes con la DB...", len(d.writeQueue)), "DB-Sync")

	operations := d.writeQueue
	d.writeQueue = make([]QueuedOperation, 0)
	d.queueMu.Unlock()

	failedOps := make([]QueuedOperation, 0)

	for _, op := range operations {
		col := d.GetCollection(op.CollectionName)
		if col == nil {
			failedOps = append(failedOps, op)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		var err error
		switch op.Operation {
		case OpSet:
			_, err = col.UpdateOne(ctx, op.Query, bson.M{"$set": op.Data}, options.Update().SetUpsert(true))
		case OpDelete:
			_, err = col.DeleteOne(ctx, op.Query)
		case OpInsert:
			_, err = col.InsertOne(ctx, op.Data)
		default:
			logger.Warn(fmt.Sprintf("Operación desconocida '%s' descartada.", op.Operation), "DB-Sync")
		}

		cancel()

		if err != nil {
			logger.Error(fmt.Sprintf("Error al sincronizar operación para '%s'. La operación se volverá a encolar.", op.CollectionName), "DB-Sync")
			failedOps = append(failedOps, op)
		}
	}

	if len(failedOps) > 0 {
		d.queueMu.Lock()
		d.writeQueue = append(d.writeQueue, failedOps...)
		d.queueMu.Unlock()
		logger.Warn(fmt.Sprintf("%d operaciones no pudieron sincronizarse y se reintentarán.", len(failedOps)), "DB-Sync")
	} else {
		logger.Success("Sincronización completada exitosamente.", "DB-Sync")
	}
}

// Client returns the underlying MongoDB client
func (d *Database) Client() *mongo.Client {
	return d.client
}

// DB returns the underlying MongoDB database
func (d *Database) DB() *mongo.Database {
	return d.db
}
