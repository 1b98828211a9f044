// Package redisfeed implements docstore.ChangeFeed over Redis pub/sub, letting
// several server processes on one SQL backend keep their watches in sync.
package redisfeed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/famtree/internal/docstore"
	"github.com/dmitrijs2005/famtree/internal/logging"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "famtree:changes"

type message struct {
	Origin string   `json:"origin"`
	Paths  []string `json:"paths"`
}

type Feed struct {
	client  redis.UniversalClient
	channel string
	origin  string
	log     logging.Logger
}

var _ docstore.ChangeFeed = (*Feed)(nil)

func New(client redis.UniversalClient, channel string, log logging.Logger) *Feed {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Feed{
		client:  client,
		channel: channel,
		origin:  uuid.NewString(),
		log:     log.With("module", "redisfeed"),
	}
}

func (f *Feed) Publish(ctx context.Context, paths []string) error {
	payload, err := json.Marshal(message{Origin: f.origin, Paths: paths})
	if err != nil {
		return err
	}
	if err := f.client.Publish(ctx, f.channel, payload).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (f *Feed) Listen(ctx context.Context, fn func(paths []string)) error {
	sub := f.client.Subscribe(ctx, f.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe: %w", err)
	}

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			f.handle(ctx, msg.Payload, fn)
		}
	}
}

func (f *Feed) handle(ctx context.Context, payload string, fn func(paths []string)) {
	var m message
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		f.log.Warn(ctx, "dropping malformed change message", "error", err)
		return
	}
	if m.Origin == f.origin || len(m.Paths) == 0 {
		return
	}
	fn(m.Paths)
}

// Close is a no-op; the redis client belongs to the caller.
func (f *Feed) Close() error {
	return nil
}
