package redisrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/coffeeshop/drinks/internal/repository"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// requireRedisEnv makes an unreachable server a failure instead of a skip.
const requireRedisEnv = "DRINKS_REQUIRE_REDIS"

func newStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	base, err := NewFromEnv(ctx)
	if err != nil {
		if os.Getenv(requireRedisEnv) != "" {
			t.Fatalf("%s is set but redis is unavailable: %v", requireRedisEnv, err)
		}
		t.Skipf("skipping redis repository tests: %v", err)
	}
	_ = base.Close()

	// Unique prefix per test so runs never collide.
	var cfg Config
	cfg.Addr = base.client.Options().Addr
	cfg.Password = base.client.Options().Password
	cfg.DB = base.client.Options().DB
	cfg.KeyPrefix = "coffeeshop-test:" + uuid.NewString() + ":"
	s, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() {
		_ = s.client.Del(context.Background(), s.drinksKey(), s.titlesKey(), s.seqKey()).Err()
		_ = s.Close()
	})
	return s
}

func TestStore_CRUD(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, repository.DrinkInput{
		Title:  "cortado",
		Recipe: repository.Recipe{{Name: "espresso", Color: "brown", Parts: 1}, {Name: "milk", Color: "white", Parts: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.ID != 1 {
		t.Errorf("first id = %d, want 1", created.ID)
	}

	if _, err := s.Create(ctx, repository.DrinkInput{
		Title:  "cortado",
		Recipe: repository.Recipe{{Name: "espresso", Color: "brown", Parts: 1}},
	}); !errors.Is(err, repository.ErrDuplicateTitle) {
		t.Errorf("expected ErrDuplicateTitle, got %v", err)
	}

	title := "gibraltar"
	updated, err := s.Update(ctx, created.ID, repository.DrinkPatch{Title: &title})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Title != "gibraltar" || len(updated.Recipe) != 2 {
		t.Errorf("updated = %+v", updated)
	}

	// The old title is free again.
	if _, err := s.Create(ctx, repository.DrinkInput{
		Title:  "cortado",
		Recipe: repository.Recipe{{Name: "espresso", Color: "brown", Parts: 1}},
	}); err != nil {
		t.Errorf("old title should be reusable: %v", err)
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].ID > list[1].ID {
		t.Errorf("list = %+v", list)
	}

	if err := s.Delete(ctx, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, created.ID); !errors.Is(err, repository.ErrDrinkNotFound) {
		t.Errorf("expected ErrDrinkNotFound, got %v", err)
	}
	if err := s.Delete(ctx, created.ID); !errors.Is(err, repository.ErrDrinkNotFound) {
		t.Errorf("expected ErrDrinkNotFound on second delete, got %v", err)
	}
}

func TestStore_Reset(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	if err := s.Reset(ctx); err != nil {
		t.Fatalf("reset: %v", err)
	}
	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 || list[0].Title != "water" || list[0].ID != 1 {
		t.Fatalf("after reset = %+v", list)
	}
	if err := s.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
}

func titles(t *testing.T, s *Store) map[string]string {
	t.Helper()
	got, err := s.client.HGetAll(context.Background(), s.titlesKey()).Result()
	if err != nil {
		t.Fatalf("read titles: %v", err)
	}
	return got
}

func TestStore_ConcurrentRenames(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	d, err := s.Create(ctx, repository.DrinkInput{
		Title:  "a",
		Recipe: repository.Recipe{{Name: "espresso", Color: "brown", Parts: 1}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			title := fmt.Sprintf("rename-%d", i)
			if _, err := s.Update(ctx, d.ID, repository.DrinkPatch{Title: &title}); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if !errors.Is(err, redis.TxFailedErr) {
			t.Errorf("update: %v", err)
		}
	}

	final, err := s.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	want := map[string]string{final.Title: "1"}
	if got := titles(t, s); len(got) != 1 || got[final.Title] != "1" {
		t.Fatalf("titles = %v, want %v", got, want)
	}

	// Every title the drink does not hold is free for a new drink.
	for i := range 8 {
		title := fmt.Sprintf("rename-%d", i)
		if title == final.Title {
			continue
		}
		if _, err := s.Create(ctx, repository.DrinkInput{
			Title:  title,
			Recipe: repository.Recipe{{Name: "water", Color: "blue", Parts: 1}},
		}); err != nil {
			t.Errorf("create %q: %v", title, err)
		}
	}
}

func TestStore_DeleteRacingUpdate(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	for range 20 {
		d, err := s.Create(ctx, repository.DrinkInput{
			Title:  "flat white " + uuid.NewString(),
			Recipe: repository.Recipe{{Name: "espresso", Color: "brown", Parts: 1}},
		})
		if err != nil {
			t.Fatalf("create: %v", err)
		}

		var wg sync.WaitGroup
		var delErr, updErr error
		renamed := "renamed " + uuid.NewString()
		wg.Add(2)
		go func() {
			defer wg.Done()
			delErr = s.Delete(ctx, d.ID)
		}()
		go func() {
			defer wg.Done()
			_, updErr = s.Update(ctx, d.ID, repository.DrinkPatch{Title: &renamed})
		}()
		wg.Wait()

		if delErr != nil {
			t.Fatalf("delete: %v", delErr)
		}
		if updErr != nil && !errors.Is(updErr, repository.ErrDrinkNotFound) {
			t.Fatalf("update: %v", updErr)
		}
		if _, err := s.Get(ctx, d.ID); !errors.Is(err, repository.ErrDrinkNotFound) {
			t.Fatalf("drink %d survived its delete: %v", d.ID, err)
		}
		if got := titles(t, s); len(got) != 0 {
			t.Fatalf("titles left behind: %v", got)
		}
	}
}
