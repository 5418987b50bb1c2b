package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisNodePrefix  = "store:node:"
	redisIndexPrefix = "store:idx:"
	redisChangesChan = "store:changes"
)

// Redis is a Gateway backed by a Redis server. Each record is a JSON string
// at store:node:<path>; every ancestor prefix keeps a set of its descendant
// record paths at store:idx:<prefix> so subtree reads are two round trips.
// Changes are fanned out to subscribers over a single pub/sub channel.
type Redis struct {
	client *redis.Client
	log    *zap.Logger

	mu     sync.Mutex
	subs   map[int]func()
	nextID int
	closed bool
}

// NewRedis creates a Redis-backed gateway. The gateway takes ownership of
// the client and closes it on Close.
func NewRedis(client *redis.Client, log *zap.Logger) (*Redis, error) {
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &Redis{
		client: client,
		log:    log,
		subs:   make(map[int]func()),
	}, nil
}

func (g *Redis) Read(ctx context.Context, path string, dest interface{}) (bool, error) {
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

func (g *Redis) Write(ctx context.Context, path string, value interface{}) error {
	if err := ValidatePath(path); err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	// A record replaces whatever subtree lived below its path.
	descendants, err := g.client.SMembers(ctx, redisIndexPrefix+path).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	pipe := g.client.TxPipeline()
	for _, d := range descendants {
		pipe.Del(ctx, redisNodePrefix+d)
		g.unindex(ctx, pipe, d)
	}
	pipe.Del(ctx, redisIndexPrefix+path)
	pipe.Set(ctx, redisNodePrefix+path, string(raw), 0)
	g.index(ctx, pipe, path)
	pipe.Publish(ctx, redisChangesChan, path)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (g *Redis) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	if err := ValidatePath(path); err != nil {
		return err
	}

	existing, err := g.client.Get(ctx, redisNodePrefix+path).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("update %s: %w", path, err)
	}

	merged, err := mergeFields(json.RawMessage(existing), fields)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	pipe := g.client.TxPipeline()
	pipe.Set(ctx, redisNodePrefix+path, string(merged), 0)
	g.index(ctx, pipe, path)
	pipe.Publish(ctx, redisChangesChan, path)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("update %s: %w", path, err)
	}
	return nil
}

func (g *Redis) Remove(ctx context.Context, path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}

	descendants, err := g.client.SMembers(ctx, redisIndexPrefix+path).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}

	pipe := g.client.TxPipeline()
	pipe.Del(ctx, redisNodePrefix+path)
	g.unindex(ctx, pipe, path)
	for _, d := range descendants {
		pipe.Del(ctx, redisNodePrefix+d)
		g.unindex(ctx, pipe, d)
	}
	pipe.Del(ctx, redisIndexPrefix+path)
	pipe.Publish(ctx, redisChangesChan, path)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("remove %s: %w", path, err)
	}
	return nil
}

func (g *Redis) Push(ctx context.Context, path string) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", err
	}
	return PushKey(), nil
}

func (g *Redis) Subscribe(ctx context.Context, path string) (*Subscription, error) {
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
	g.mu.Unlock()

	pubsub := g.client.Subscribe(ctx, redisChangesChan)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", path, err)
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.subs, id)
			g.mu.Unlock()
			pubsub.Close()
		})
	}

	g.mu.Lock()
	g.subs[id] = cancel
	g.mu.Unlock()

	sub := newSubscription(cancel)

	go func() {
		defer close(sub.events)
		sub.deliver(g.snapshot(ctx, path))
		ch := pubsub.Channel()
		for {
			select {
			case msg, ok := <-ch:
				if !ok {
					return
				}
				if !affects(msg.Payload, path) {
					continue
				}
				sub.deliver(g.snapshot(ctx, path))
			case <-ctx.Done():
				cancel()
				return
			}
		}
	}()

	return sub, nil
}

// Close cancels all subscriptions and closes the underlying client.
func (g *Redis) Close() error {
	g.mu.Lock()
	g.closed = true
	subs := g.subs
	g.subs = make(map[int]func())
	g.mu.Unlock()

	for _, cancel := range subs {
		cancel()
	}
	return g.client.Close()
}

func (g *Redis) readRaw(ctx context.Context, path string) (json.RawMessage, bool, error) {
	val, err := g.client.Get(ctx, redisNodePrefix+path).Result()
	if err == nil {
		return json.RawMessage(val), true, nil
	}
	if err != redis.Nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}

	descendants, err := g.client.SMembers(ctx, redisIndexPrefix+path).Result()
	if err != nil && err != redis.Nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	if len(descendants) == 0 {
		return nil, false, nil
	}

	keys := make([]string, len(descendants))
	for i, d := range descendants {
		keys[i] = redisNodePrefix + d
	}
	values, err := g.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}

	records := make(map[string]json.RawMessage, len(descendants))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			continue
		}
		records[descendants[i]] = json.RawMessage(s)
	}
	raw, ok := assemble(records, path)
	return raw, ok, nil
}

func (g *Redis) snapshot(ctx context.Context, path string) json.RawMessage {
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

func (g *Redis) index(ctx context.Context, pipe redis.Pipeliner, path string) {
	for _, prefix := range ancestors(path) {
		pipe.SAdd(ctx, redisIndexPrefix+prefix, path)
	}
}

func (g *Redis) unindex(ctx context.Context, pipe redis.Pipeliner, path string) {
	for _, prefix := range ancestors(path) {
		pipe.SRem(ctx, redisIndexPrefix+prefix, path)
	}
}

// ancestors lists every proper prefix of path: "orders/u1/o1" yields
// ["orders", "orders/u1"].
func ancestors(path string) []string {
	var out []string
	for i, c := range path {
		if c == '/' {
			out = append(out, path[:i])
		}
	}
	return out
}

var _ Gateway = (*Redis)(nil)
