package nonce

// cache.go
import (
	"errors"
	"fmt"
	"hash/maphash"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"
)

const (
	minShardSize = 64
	maxShards    = 32
)

var ErrInvalidCapacity = errors.New("nonce: cache capacity must be positive")

// Source — то, что умеет выдать новый nonce. *Generator его реализует.
type Source interface {
	Generate() (string, error)
}

// Observer получает события кэша (обычно это *stats.Stats). Может быть nil.
type Observer interface {
	NonceGenerated()
	CacheHit()
	CacheMiss()
}

type entry struct {
	value   string
	created time.Time
}

type shard struct {
	mu  sync.Mutex
	lru *simplelru.LRU[string, entry]
}

// Cache хранит nonce по идентификатору запроса.
//
// Ёмкость ограничена. Ключи разнесены по шардам с отдельными мьютексами,
// ёмкость делится между шардами поровну, и LRU действует внутри шарда:
// при переполнении шарда вытесняется его давно не использованная запись,
// даже если в других шардах есть место. Поэтому вытеснение может начаться
// раньше, чем общее число записей дойдёт до capacity. До 128 записей шард
// один, и порядок вытеснения точный.
//
// Записи старше ttl считаются отсутствующими, даже если ещё не вытеснены.
// Вставка-или-чтение атомарна для одного ключа. Запись никогда не меняется на месте.
type Cache struct {
	src    Source
	ttl    time.Duration
	obs    Observer
	seed   maphash.Seed
	shards []*shard
	mask   uint64

	now func() time.Time
}

// NewCache: capacity — общая ёмкость, ttl <= 0 отключает истечение.
func NewCache(src Source, capacity int, ttl time.Duration, obs Observer) (*Cache, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, capacity)
	}
	if src == nil {
		return nil, errors.New("nonce: nil source")
	}

	n := 1
	for n < maxShards && n*2*minShardSize <= capacity {
		n *= 2
	}

	c := &Cache{
		src:    src,
		ttl:    ttl,
		obs:    obs,
		seed:   maphash.MakeSeed(),
		shards: make([]*shard, n),
		mask:   uint64(n - 1),
		now:    time.Now,
	}
	for i := range c.shards {
		size := capacity / n
		if i < capacity%n {
			size++
		}
		l, err := simplelru.NewLRU[string, entry](size, nil)
		if err != nil {
			return nil, fmt.Errorf("nonce: shard %d: %w", i, err)
		}
		c.shards[i] = &shard{lru: l}
	}
	return c, nil
}

func (c *Cache) shardFor(key string) *shard {
	return c.shards[maphash.String(c.seed, key)&c.mask]
}

func (c *Cache) expired(e entry, now time.Time) bool {
	return c.ttl > 0 && now.Sub(e.created) >= c.ttl
}

// GetOrCreate возвращает живой nonce для ключа или создаёт новый.
// Конкурентные вызовы с одним ключом видят одно и то же значение.
// Ошибка источника случайности возвращается как есть, в кэш ничего не пишется.
func (c *Cache) GetOrCreate(key string) (string, error) {
	sh := c.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := c.now()
	if e, ok := sh.lru.Get(key); ok {
		if !c.expired(e, now) {
			c.hit()
			return e.value, nil
		}
		sh.lru.Remove(key)
	}
	c.miss()

	v, err := c.src.Generate()
	if err != nil {
		return "", err
	}
	if c.obs != nil {
		c.obs.NonceGenerated()
	}
	sh.lru.Add(key, entry{value: v, created: now})
	return v, nil
}

// Get — только чтение: без создания и без учёта в статистике.
func (c *Cache) Get(key string) (string, bool) {
	sh := c.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.lru.Peek(key)
	if !ok || c.expired(e, c.now()) {
		return "", false
	}
	return e.value, true
}

// Remove удаляет запись; вызывать не обязательно, запись уйдёт по TTL/LRU сама.
func (c *Cache) Remove(key string) bool {
	sh := c.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.lru.Remove(key)
}

// Len — число записей, включая истёкшие, но ещё не вытесненные.
func (c *Cache) Len() int {
	total := 0
	for _, sh := range c.shards {
		sh.mu.Lock()
		total += sh.lru.Len()
		sh.mu.Unlock()
	}
	return total
}

// Sweep физически удаляет истёкшие записи и возвращает их число.
// Для корректности не нужен: GetOrCreate и так их игнорирует.
func (c *Cache) Sweep() int {
	if c.ttl <= 0 {
		return 0
	}
	removed := 0
	now := c.now()
	for _, sh := range c.shards {
		sh.mu.Lock()
		for _, k := range sh.lru.Keys() {
			if e, ok := sh.lru.Peek(k); ok && c.expired(e, now) {
				sh.lru.Remove(k)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

func (c *Cache) hit() {
	if c.obs != nil {
		c.obs.CacheHit()
	}
}

func (c *Cache) miss() {
	if c.obs != nil {
		c.obs.CacheMiss()
	}
}
