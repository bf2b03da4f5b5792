package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SyneffoDev/shivaseyecare-appointmentbot/internal/models"
)

const (
	// Redis key prefix for conversation sessions
	sessionKeyPrefix = "session:"
	// Safety TTL so abandoned sessions disappear even if the sweep is down
	sessionSafetyTTL = 24 * time.Hour
)

// RedisSessionStore keeps conversation sessions in Redis. Appointments stay
// in the relational store; only the ephemeral dialogue state lives here.
type RedisSessionStore struct {
	client *redis.Client
}

// NewRedisSessionStore creates a Redis-backed session store.
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client}
}

func (s *RedisSessionStore) key(phone string) string {
	return sessionKeyPrefix + phone
}

func (s *RedisSessionStore) GetSession(phone string) (*models.SessionData, error) {
	ctx := context.Background()
	val, err := s.client.Get(ctx, s.key(phone)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var session models.SessionData
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return nil, fmt.Errorf("decode session for %s: %w", phone, err)
	}
	return &session, nil
}

func (s *RedisSessionStore) SetSession(phone string, session *models.SessionData) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session for %s: %w", phone, err)
	}
	if err := s.client.Set(context.Background(), s.key(phone), data, sessionSafetyTTL).Err(); err != nil {
		return fmt.Errorf("redis set session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) UpdateSession(phone string, apply func(*models.SessionData)) error {
	session, err := s.GetSession(phone)
	if err != nil {
		return err
	}
	if session == nil {
		session = &models.SessionData{
			State:                 models.StateMainMenu,
			LastInteractionUnixMs: time.Now().UnixMilli(),
		}
	}

	before := session.LastInteractionUnixMs
	apply(session)
	if session.LastInteractionUnixMs == before {
		session.LastInteractionUnixMs = time.Now().UnixMilli()
	}
	return s.SetSession(phone, session)
}

func (s *RedisSessionStore) DeleteSession(phone string) error {
	if err := s.client.Del(context.Background(), s.key(phone)).Err(); err != nil {
		return fmt.Errorf("redis delete session: %w", err)
	}
	return nil
}

func (s *RedisSessionStore) ExpiredSessionPhones(cutoffMs int64) ([]string, error) {
	ctx := context.Background()

	var phones []string
	iter := s.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		val, err := s.client.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis scan sessions: %w", err)
		}

		phone := strings.TrimPrefix(key, sessionKeyPrefix)
		var session models.SessionData
		if err := json.Unmarshal([]byte(val), &session); err != nil {
			phones = append(phones, phone)
			continue
		}
		if session.LastInteractionUnixMs < cutoffMs {
			phones = append(phones, phone)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan sessions: %w", err)
	}
	return phones, nil
}
