package lock

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
)

func TestRedisKey(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	defer rdb.Close()

	cases := map[string]string{
		"barbershop:slot":  "barbershop:slot:2025-06-10/10:00",
		"barbershop:slot:": "barbershop:slot:2025-06-10/10:00",
		"  ":               "slotlock:2025-06-10/10:00",
	}
	for prefix, want := range cases {
		if got := NewRedis(rdb, 0, 0, prefix).key("2025-06-10/10:00"); got != want {
			t.Errorf("prefix %q: key = %q, want %q", prefix, got, want)
		}
	}
}

func TestNoopNeverBlocks(t *testing.T) {
	for i := 0; i < 2; i++ {
		release, err := Noop{}.Acquire(context.Background(), "k")
		if err != nil {
			t.Fatal(err)
		}
		release()
	}
}
