// Package redisrepo stores drinks in Redis hashes.
package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/coffeeshop/drinks/internal/repository"
	"github.com/joeshaw/envdecode"
	"github.com/redis/go-redis/v9"
)

// Config for the Redis-backed repository. Defaults can be loaded via envdecode.
type Config struct {
	// Addr like "localhost:6379". ENV: REDIS_ADDR
	Addr string `env:"REDIS_ADDR,default=localhost:6379"`
	// Password for AUTH, empty for none. ENV: REDIS_PASSWORD
	Password string `env:"REDIS_PASSWORD"`
	// DB index. ENV: REDIS_DB
	DB int `env:"REDIS_DB,default=0"`
	// KeyPrefix for all keys. ENV: DRINKS_KEY_PREFIX
	KeyPrefix string `env:"DRINKS_KEY_PREFIX,default=coffeeshop:"`
}

// Store implements repository.DrinkRepository.
//
// Layout: <prefix>drinks is a hash of id -> drink JSON, <prefix>drinks:titles
// maps title -> id to enforce uniqueness and <prefix>drinks:seq hands out ids.
// Writes WATCH both hashes so a drink and its title entry change together.
type Store struct {
	client    *redis.Client
	keyPrefix string
}

var _ repository.DrinkRepository = (*Store)(nil)

// New connects to Redis and verifies the connection.
func New(ctx context.Context, cfg Config) (*Store, error) {
	addr := cfg.Addr
	if addr == "" {
		addr = "localhost:6379"
	}
	cl := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password, DB: cfg.DB})
	if err := cl.Ping(ctx).Err(); err != nil {
		_ = cl.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "coffeeshop:"
	}
	return &Store{client: cl, keyPrefix: prefix}, nil
}

// NewFromEnv builds a Store using envdecode to populate Config.
func NewFromEnv(ctx context.Context) (*Store, error) {
	var cfg Config
	// Defaults come from the struct tags; a missing environment is not an error.
	_ = envdecode.Decode(&cfg)
	return New(ctx, cfg)
}

// Close closes the Redis client.
func (s *Store) Close() error { return s.client.Close() }

func (s *Store) drinksKey() string { return s.keyPrefix + "drinks" }
func (s *Store) titlesKey() string { return s.keyPrefix + "drinks:titles" }
func (s *Store) seqKey() string    { return s.keyPrefix + "drinks:seq" }

func (s *Store) List(ctx context.Context) ([]*repository.Drink, error) {
	all, err := s.client.HGetAll(ctx, s.drinksKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list drinks: %w", err)
	}
	drinks := make([]*repository.Drink, 0, len(all))
	for _, raw := range all {
		d, err := decode(raw)
		if err != nil {
			return nil, err
		}
		drinks = append(drinks, d)
	}
	sort.Slice(drinks, func(i, j int) bool { return drinks[i].ID < drinks[j].ID })
	return drinks, nil
}

func (s *Store) Get(ctx context.Context, id int64) (*repository.Drink, error) {
	return get(ctx, s.client, s.drinksKey(), id)
}

func (s *Store) Create(ctx context.Context, in repository.DrinkInput) (*repository.Drink, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	id, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to allocate id: %w", err)
	}
	d := &repository.Drink{ID: id, Title: in.Title, Recipe: in.Recipe}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("encode drink: %w", err)
	}

	err = s.watch(ctx, func(tx *redis.Tx) error {
		if err := s.checkTitle(ctx, tx, d.Title, id); err != nil {
			return err
		}
		_, err := tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, s.titlesKey(), d.Title, id)
			p.HSet(ctx, s.drinksKey(), field(id), b)
			return nil
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Store) Update(ctx context.Context, id int64, patch repository.DrinkPatch) (*repository.Drink, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var updated repository.Drink
	err := s.watch(ctx, func(tx *redis.Tx) error {
		current, err := get(ctx, tx, s.drinksKey(), id)
		if err != nil {
			return err
		}
		next := patch.Apply(*current)
		renamed := next.Title != current.Title
		if renamed {
			if err := s.checkTitle(ctx, tx, next.Title, id); err != nil {
				return err
			}
		}
		b, err := json.Marshal(&next)
		if err != nil {
			return fmt.Errorf("encode drink: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HSet(ctx, s.drinksKey(), field(id), b)
			if renamed {
				p.HDel(ctx, s.titlesKey(), current.Title)
				p.HSet(ctx, s.titlesKey(), next.Title, id)
			}
			return nil
		})
		if err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	return s.watch(ctx, func(tx *redis.Tx) error {
		current, err := get(ctx, tx, s.drinksKey(), id)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.HDel(ctx, s.drinksKey(), field(id))
			p.HDel(ctx, s.titlesKey(), current.Title)
			return nil
		})
		return err
	})
}

func (s *Store) Reset(ctx context.Context) error {
	if err := s.client.Del(ctx, s.drinksKey(), s.titlesKey(), s.seqKey()).Err(); err != nil {
		return fmt.Errorf("failed to reset drinks: %w", err)
	}
	for _, in := range repository.SeedDrinks() {
		if _, err := s.Create(ctx, in); err != nil {
			return fmt.Errorf("failed to seed drink %q: %w", in.Title, err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// maxTxRetries bounds how often a write is replayed after a watched key changed.
const maxTxRetries = 16

// watch runs fn as an optimistic transaction over the drinks and titles
// hashes, retrying when a concurrent writer touched either of them.
func (s *Store) watch(ctx context.Context, fn func(*redis.Tx) error) error {
	var err error
	for range maxTxRetries {
		err = s.client.Watch(ctx, fn, s.drinksKey(), s.titlesKey())
		if !errors.Is(err, redis.TxFailedErr) {
			break
		}
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrDrinkNotFound), errors.Is(err, repository.ErrDuplicateTitle):
		return err
	default:
		return fmt.Errorf("failed to write drink: %w", err)
	}
}

// checkTitle fails when title is held by a drink other than id.
func (s *Store) checkTitle(ctx context.Context, tx *redis.Tx, title string, id int64) error {
	owner, err := tx.HGet(ctx, s.titlesKey(), title).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil
	case err != nil:
		return fmt.Errorf("failed to check title: %w", err)
	case owner != field(id):
		return repository.ErrDuplicateTitle
	}
	return nil
}

type hashGetter interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

func get(ctx context.Context, c hashGetter, key string, id int64) (*repository.Drink, error) {
	raw, err := c.HGet(ctx, key, field(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repository.ErrDrinkNotFound
		}
		return nil, fmt.Errorf("failed to get drink: %w", err)
	}
	return decode(raw)
}

func field(id int64) string { return strconv.FormatInt(id, 10) }

func decode(raw string) (*repository.Drink, error) {
	var d repository.Drink
	if err := json.Unmarshal([]byte(raw), &d); err != nil {
		return nil, fmt.Errorf("decode drink: %w", err)
	}
	return &d, nil
}
