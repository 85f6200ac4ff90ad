// Command authcore-loadtest measures access token verification and refresh
// rotation against Redis (or an in-process miniredis).
package main

import (
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/MrEthical07/authcore/jwt"
	"github.com/MrEthical07/authcore/kv"
	"github.com/MrEthical07/authcore/token"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type principalState struct {
	id      string
	access  string
	refresh string
	mu      sync.Mutex
}

func main() {
	var (
		principals  = flag.Int("principals", 10000, "number of principals to log in before measuring")
		concurrency = flag.Int("concurrency", 256, "number of concurrent workers")
		ops         = flag.Int("ops", 100000, "operations per phase (authenticate + refresh)")
		redisAddr   = flag.String("redis-addr", "", "redis address; if empty, REDIS_ADDR env or miniredis is used")
	)
	flag.Parse()

	if *principals <= 0 || *concurrency <= 0 || *ops <= 0 {
		fmt.Fprintln(os.Stderr, "principals, concurrency, and ops must be > 0")
		os.Exit(2)
	}

	addr := *redisAddr
	if addr == "" {
		addr = os.Getenv("REDIS_ADDR")
	}
	client, cleanup, err := connect(addr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer cleanup()

	svc, err := newTokenService(client)
	if err != nil {
		fmt.Fprintf(os.Stderr, "token service: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	states := make([]principalState, *principals)
	fmt.Printf("issuing %d sessions...\n", *principals)
	startSeed := time.Now()
	for i := range states {
		id := fmt.Sprintf("principal-%d", i)
		pair, err := svc.IssuePair(ctx, id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "issue failed: %v\n", err)
			os.Exit(1)
		}
		states[i] = principalState{id: id, access: pair.AccessToken, refresh: pair.RefreshToken}
	}
	fmt.Printf("issued in %s\n", time.Since(startSeed).Round(time.Millisecond))

	authStats := runPhase(*ops, *concurrency, len(states), func(idx int) error {
		s := &states[idx]
		s.mu.Lock()
		access := s.access
		s.mu.Unlock()
		_, err := svc.VerifyAccessToken(ctx, access)
		return err
	})
	refreshStats := runPhase(*ops, *concurrency, len(states), func(idx int) error {
		s := &states[idx]
		s.mu.Lock()
		defer s.mu.Unlock()
		pair, err := svc.Rotate(ctx, s.refresh)
		if err != nil {
			return err
		}
		s.access, s.refresh = pair.AccessToken, pair.RefreshToken
		return nil
	})

	fmt.Println("---- results ----")
	printStats("authenticate", authStats)
	printStats("refresh", refreshStats)
}

func connect(addr string) (redis.UniversalClient, func(), error) {
	if addr != "" {
		client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{addr}})
		fmt.Printf("using redis at %s\n", addr)
		return client, func() { _ = client.Close() }, nil
	}

	mr, err := miniredis.Run()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start miniredis: %w", err)
	}
	client := redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{mr.Addr()}})
	fmt.Printf("using miniredis at %s\n", mr.Addr())
	return client, func() {
		_ = client.Close()
		mr.Close()
	}, nil
}

// newTokenService signs with throwaway random keys.
func newTokenService(client redis.UniversalClient) (*token.Service, error) {
	managers := make([]*jwt.Manager, 2)
	for i, kind := range []jwt.Kind{jwt.KindAccess, jwt.KindRefresh} {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, err
		}
		ttl := time.Hour
		if kind == jwt.KindRefresh {
			ttl = 7 * 24 * time.Hour
		}
		m, err := jwt.NewManager(jwt.Config{
			Kind:          kind,
			TTL:           ttl,
			SigningMethod: jwt.MethodHS256,
			PrivateKey:    key,
			Issuer:        "authcore-loadtest",
		})
		if err != nil {
			return nil, err
		}
		managers[i] = m
	}
	return token.NewService(managers[0], managers[1], kv.NewRedisStore(client), token.Config{
		PinTTL:       365 * 24 * time.Hour,
		BlacklistTTL: 30 * 24 * time.Hour,
	})
}
