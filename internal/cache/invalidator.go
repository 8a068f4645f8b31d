package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/smallbiznis/campusbooks/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	invalidationChannel = "campusbooks.cache.invalidate"
	defaultViewTTL      = 5 * time.Minute
)

// Invalidator drops cached read models for a set of tags. Services call it
// after a committed mutation, never inside the transaction.
type Invalidator interface {
	Invalidate(ctx context.Context, tags ...Tag)
}

// ViewStore caches rendered view payloads keyed by tag.
type ViewStore interface {
	GetView(tag Tag) ([]byte, bool)
	SetView(tag Tag, payload []byte)
}

// Module provides the shared invalidator/view store.
var Module = fx.Module("cache",
	fx.Provide(NewStore),
	fx.Provide(func(s *Store) Invalidator { return s }),
	fx.Provide(func(s *Store) ViewStore { return s }),
	fx.Invoke(registerSubscriber),
)

type Params struct {
	fx.In

	Log *zap.Logger
	Cfg config.Config
}

// Store is the process-local cache; when redis is configured, invalidations
// fan out to other replicas over pub/sub.
type Store struct {
	log   *zap.Logger
	views Cache[string, []byte]
	rdb   *redis.Client
}

func NewStore(p Params) *Store {
	s := &Store{
		log:   p.Log.Named("cache"),
		views: NewTTLCache[string, []byte](),
	}
	if p.Cfg.RedisAddr != "" {
		s.rdb = redis.NewClient(&redis.Options{
			Addr:     p.Cfg.RedisAddr,
			Password: p.Cfg.RedisPassword,
			DB:       p.Cfg.RedisDB,
		})
	}
	return s
}

func (s *Store) GetView(tag Tag) ([]byte, bool) {
	return s.views.Get(tag.Key())
}

func (s *Store) SetView(tag Tag, payload []byte) {
	s.views.Set(tag.Key(), payload, defaultViewTTL)
}

func (s *Store) Invalidate(ctx context.Context, tags ...Tag) {
	for _, tag := range tags {
		s.views.Delete(tag.Key())
		if s.rdb == nil {
			continue
		}
		if err := s.rdb.Publish(ctx, invalidationChannel, tag.Key()).Err(); err != nil {
			s.log.Warn("cache invalidation publish failed",
				zap.String("tag", tag.Key()),
				zap.Error(err),
			)
		}
	}
}

func registerSubscriber(lc fx.Lifecycle, s *Store) {
	if s.rdb == nil {
		return
	}

	var sub *redis.PubSub
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			sub = s.rdb.Subscribe(ctx, invalidationChannel)
			go func() {
				for msg := range sub.Channel() {
					s.views.Delete(msg.Payload)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if sub != nil {
				_ = sub.Close()
			}
			return s.rdb.Close()
		},
	})
}
