package database

import (
	"container/list"
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	boterrors "github.com/PancyStudios/UselessBotGo/pkg/errors"
	"github.com/PancyStudios/UselessBotGo/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names
const (
	AccountsCollection = "bank_accounts"
	LedgerCollection   = "bank_ledger"
)

// DataManagerOptions contains configuration for a DataManager
type DataManagerOptions struct {
	MaxCacheSize int
}

// cacheManager is an LRU shared by every DataManager
type cacheManager struct {
	cache     map[string]*list.Element
	cacheList *list.List
	mu        sync.Mutex
}

type cacheEntry struct {
	key   string
	value interface{}
}

var globalCacheManager = &cacheManager{
	cache:     make(map[string]*list.Element),
	cacheList: list.New(),
}

func (c *cacheManager) get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, ok := c.cache[key]
	if !ok {
		return nil, false
	}
	c.cacheList.MoveToFront(elem)
	return elem.Value.(*cacheEntry).value, true
}

func (c *cacheManager) put(key string, value interface{}, max int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		elem.Value = &cacheEntry{key: key, value: value}
		c.cacheList.MoveToFront(elem)
		return
	}

	c.cache[key] = c.cacheList.PushFront(&cacheEntry{key: key, value: value})
	if max > 0 && c.cacheList.Len() > max {
		oldest := c.cacheList.Back()
		delete(c.cache, oldest.Value.(*cacheEntry).key)
		c.cacheList.Remove(oldest)
	}
}

func (c *cacheManager) remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.cache[key]; ok {
		c.cacheList.Remove(elem)
		delete(c.cache, key)
	}
}

// removePrefix drops every entry whose key starts with prefix
func (c *cacheManager) removePrefix(prefix string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, elem := range c.cache {
		if strings.HasPrefix(key, prefix) {
			c.cacheList.Remove(elem)
			delete(c.cache, key)
		}
	}
}

func (c *cacheManager) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cacheList.Len()
}

// DataManager provides cached access to a MongoDB collection
type DataManager[T any] struct {
	name       string
	dbInstance *Database
	options    DataManagerOptions
}

// DefaultDataManagerOptions returns default options for DataManager
func DefaultDataManagerOptions() DataManagerOptions {
	return DataManagerOptions{
		MaxCacheSize: 1000,
	}
}

// NewDataManager creates a new DataManager for a collection
func NewDataManager[T any](collectionName string, db *Database, opts ...DataManagerOptions) *DataManager[T] {
	dmOptions := DefaultDataManagerOptions()
	if len(opts) > 0 {
		dmOptions = opts[0]
	}

	return &DataManager[T]{
		name:       collectionName,
		dbInstance: db,
		options:    dmOptions,
	}
}

// Name returns the collection name
func (dm *DataManager[T]) Name() string {
	return dm.name
}

// collection resolves lazily so managers built while offline start working
// as soon as the connection is up.
func (dm *DataManager[T]) collection() (*mongo.Collection, error) {
	if !dm.dbInstance.Connected() {
		return nil, boterrors.ErrDatabaseOffline
	}
	col := dm.dbInstance.GetCollection(dm.name)
	if col == nil {
		return nil, boterrors.ErrDatabaseOffline
	}
	return col, nil
}

// generateCacheKey creates a deterministic key from a query. Keys are sorted
// so map iteration order does not matter.
func (dm *DataManager[T]) generateCacheKey(query bson.M) string {
	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, query[k]))
	}

	return fmt.Sprintf("%s:{%s}", dm.name, strings.Join(parts, ","))
}

func (dm *DataManager[T]) cachePut(query bson.M, doc *T) {
	if dm.options.MaxCacheSize == 0 {
		return
	}
	v := *doc
	globalCacheManager.put(dm.generateCacheKey(query), &v, dm.options.MaxCacheSize)
}

// Get retrieves a document from cache or database. A missing document
// returns (nil, nil).
func (dm *DataManager[T]) Get(ctx context.Context, query bson.M) (*T, error) {
	if cached, ok := globalCacheManager.get(dm.generateCacheKey(query)); ok {
		v := *cached.(*T)
		return &v, nil
	}

	col, err := dm.collection()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result T
	if err := col.FindOne(ctx, query).Decode(&result); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		logger.Warn(fmt.Sprintf("Fallo al leer de la DB (%s): %v", dm.name, err), "DataManager")
		return nil, err
	}

	dm.cachePut(query, &result)
	return &result, nil
}

// GetAll retrieves all documents matching a query from the database
func (dm *DataManager[T]) GetAll(ctx context.Context, query bson.M) ([]*T, error) {
	col, err := dm.collection()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cursor, err := col.Find(ctx, query)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var results []*T
	for cursor.Next(ctx) {
		var doc T
		if err := cursor.Decode(&doc); err != nil {
			logger.Warn(fmt.Sprintf("Documento inválido en '%s': %v", dm.name, err), "DataManager")
			continue
		}
		results = append(results, &doc)
	}

	return results, cursor.Err()
}

// Set upserts a document with $set. Offline writes are queued and return
// (nil, nil).
func (dm *DataManager[T]) Set(ctx context.Context, query bson.M, data interface{}) (*T, error) {
	col, err := dm.collection()
	if err != nil {
		logger.Warn(fmt.Sprintf("DB offline. Encolando escritura para '%s'", dm.name), "DataManager")
		dm.dbInstance.AddToWriteQueue(QueuedOperation{
			CollectionName: dm.name,
			Query:          query,
			Operation:      OpSet,
			Data:           data,
		})
		globalCacheManager.remove(dm.generateCacheKey(query))
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var result T
	if err := col.FindOneAndUpdate(ctx, query, bson.M{"$set": data}, opts).Decode(&result); err != nil {
		logger.Error(fmt.Sprintf("Error en 'set' para '%s': %v", dm.name, err), "DataManager")
		globalCacheManager.remove(dm.generateCacheKey(query))
		return nil, err
	}

	dm.cachePut(query, &result)
	return &result, nil
}

// EnsureUniqueIndex creates a unique ascending index on field
func (dm *DataManager[T]) EnsureUniqueIndex(ctx context.Context, field string) error {
	col, err := dm.collection()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err = col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// Create upserts doc with $setOnInsert and returns the stored document. A
// document already matching query is returned untouched, so concurrent
// creators never overwrite each other. Creates are not queued offline.
func (dm *DataManager[T]) Create(ctx context.Context, query bson.M, doc interface{}) (*T, error) {
	col, err := dm.collection()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var result T
	err = col.FindOneAndUpdate(ctx, query, bson.M{"$setOnInsert": doc}, opts).Decode(&result)
	if mongo.IsDuplicateKeyError(err) {
		// lost the race against another upsert on a unique index
		err = col.FindOne(ctx, query).Decode(&result)
	}
	if err != nil {
		logger.Error(fmt.Sprintf("Error en 'create' para '%s': %v", dm.name, err), "DataManager")
		return nil, err
	}

	dm.cachePut(query, &result)
	return &result, nil
}

// Update applies an update document to the single document matching key
// plus guard. Guarded updates are never queued offline because the guard
// must be checked against live data. A guard miss returns (nil, nil).
func (dm *DataManager[T]) Update(ctx context.Context, key, guard, update bson.M) (*T, error) {
	col, err := dm.collection()
	if err != nil {
		return nil, err
	}

	filter := bson.M{}
	for k, v := range key {
		filter[k] = v
	}
	for k, v := range guard {
		filter[k] = v
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var result T
	err = col.FindOneAndUpdate(ctx, filter, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&result)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		globalCacheManager.remove(dm.generateCacheKey(key))
		return nil, err
	}

	dm.cachePut(key, &result)
	return &result, nil
}

// Insert adds a new document. Offline inserts are queued.
func (dm *DataManager[T]) Insert(ctx context.Context, doc *T) error {
	col, err := dm.collection()
	if err != nil {
		dm.dbInstance.AddToWriteQueue(QueuedOperation{
			CollectionName: dm.name,
			Operation:      OpInsert,
			Data:           doc,
		})
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err = col.InsertOne(ctx, doc)
	return err
}

// Delete removes a document from the database and cache
func (dm *DataManager[T]) Delete(ctx context.Context, query bson.M) error {
	globalCacheManager.remove(dm.generateCacheKey(query))

	col, err := dm.collection()
	if err != nil {
		logger.Warn(fmt.Sprintf("DB offline. Encolando eliminación para '%s'", dm.name), "DataManager")
		dm.dbInstance.AddToWriteQueue(QueuedOperation{
			CollectionName: dm.name,
			Query:          query,
			Operation:      OpDelete,
		})
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := col.DeleteOne(ctx, query); err != nil {
		logger.Error(fmt.Sprintf("Error en 'delete' para '%s': %v", dm.name, err), "DataManager")
		return err
	}
	return nil
}

// DeleteMany removes every matching document and drops the collection's
// cache entries.
func (dm *DataManager[T]) DeleteMany(ctx context.Context, query bson.M) (int64, error) {
	globalCacheManager.removePrefix(dm.name + ":")

	col, err := dm.collection()
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	res, err := col.DeleteMany(ctx, query)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// ClearCache drops this collection's cached documents
func (dm *DataManager[T]) ClearCache() {
	globalCacheManager.removePrefix(dm.name + ":")
}

// CacheSize returns the current size of the shared cache
func (dm *DataManager[T]) CacheSize() int {
	return globalCacheManager.len()
}

// PrimeCache logs that the cache is ready (caches are filled on demand)
func (dm *DataManager[T]) PrimeCache() {
	logger.System(fmt.Sprintf("Caché para '%s' preparada (tamaño máx: %d). Se llenará bajo demanda.", dm.name, dm.options.MaxCacheSize), "DataManager")
}
