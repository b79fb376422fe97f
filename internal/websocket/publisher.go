package websocket

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog/log"
)

const channelPrefix = "chatroom:"

// Publisher fans an encoded frame out to a chatroom.
type Publisher interface {
	Publish(ctx context.Context, roomID int64, payload []byte) error
}

type LocalPublisher struct {
	hub *Hub
}

func NewLocalPublisher(hub *Hub) *LocalPublisher {
	return &LocalPublisher{hub: hub}
}

func (p *LocalPublisher) Publish(ctx context.Context, roomID int64, payload []byte) error {
	if roomID <= 0 {
		return fmt.Errorf("websocket publish: invalid room id %d", roomID)
	}
	return p.hub.Deliver(ctx, &Envelope{RoomID: roomID, Payload: payload})
}

// RedisPublisher routes frames through Redis pub/sub so every server
// instance delivers them to its own clients.
type RedisPublisher struct {
	client *redis.Client
	hub    *Hub
}

func NewRedisClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})
}

func NewRedisPublisher(client *redis.Client, hub *Hub) *RedisPublisher {
	return &RedisPublisher{client: client, hub: hub}
}

func (p *RedisPublisher) Publish(ctx context.Context, roomID int64, payload []byte) error {
	if roomID <= 0 {
		return fmt.Errorf("websocket publish: invalid room id %d", roomID)
	}
	if err := p.client.Publish(ctx, ChannelName(roomID), payload).Err(); err != nil {
		return fmt.Errorf("websocket publish: redis publish: %w", err)
	}
	return nil
}

// Subscribe forwards every chatroom channel to the local hub until ctx is
// cancelled.
func (p *RedisPublisher) Subscribe(ctx context.Context) error {
	sub := p.client.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("websocket subscribe: %w", err)
	}
	log.Info().Str("pattern", channelPrefix+"*").Msg("subscribed to redis chatroom channels")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			roomID, err := ParseChannelName(msg.Channel)
			if err != nil {
				log.Warn().Err(err).Str("channel", msg.Channel).Msg("ignoring redis message")
				continue
			}
			if err := p.hub.Deliver(ctx, &Envelope{RoomID: roomID, Payload: []byte(msg.Payload)}); err != nil {
				return nil
			}
		}
	}
}

func ChannelName(roomID int64) string {
	return channelPrefix + strconv.FormatInt(roomID, 10)
}

func ParseChannelName(channel string) (int64, error) {
	raw, ok := strings.CutPrefix(channel, channelPrefix)
	if !ok {
		return 0, fmt.Errorf("unexpected channel %q", channel)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid chatroom id in channel %q", channel)
	}
	return id, nil
}
