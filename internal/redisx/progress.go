package redisx

import (
	"context"
	"encoding/json"
	"fmt"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

type ProgressEvent struct {
	File    string `json:"file"`
	Percent int    `json:"percent"`
}

// Progress fans upload progress out over Redis pub/sub.
type Progress struct {
	rdb *redis.Client
}

func NewProgress(rdb *redis.Client) *Progress { return &Progress{rdb: rdb} }

// Publish is fire-and-forget: a failed publish is logged and dropped.
func (p *Progress) Publish(ctx context.Context, channel string, ev ProgressEvent) {
	if p == nil || channel == "" {
		return
	}
	b, _ := json.Marshal(ev)
	if err := p.rdb.Publish(ctx, fmt.Sprintf(KeyProgress, channel), b).Err(); err != nil {
		log.WithError(err).WithField("channel", channel).Warn("progress publish failed")
	}
}

// Subscribe returns a live subscription; the caller must Close it.
func (p *Progress) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	return p.rdb.Subscribe(ctx, fmt.Sprintf(KeyProgress, channel))
}
