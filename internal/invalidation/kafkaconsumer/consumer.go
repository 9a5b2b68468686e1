// Package kafkaconsumer applies cadastre update events to the cache.
package kafkaconsumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"parcelone/internal/core/model"
	obs "parcelone/internal/core/observability"
	"parcelone/internal/invalidation"
)

// ZoneInvalidator evicts every cached query scoped to a zone.
type ZoneInvalidator interface {
	InvalidateZone(ctx context.Context, register model.Register, zone string) (int, error)
}

type Consumer struct {
	cfg    Config
	logger *slog.Logger
	target ZoneInvalidator
	dedupe *seqDedupe
}

func New(cfg Config, logger *slog.Logger, target ZoneInvalidator) *Consumer {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{
		cfg:    cfg,
		logger: logger,
		target: target,
		dedupe: newSeqDedupe(cfg.DedupeSize),
	}
}

// Start joins the consumer group and processes events until ctx is done.
func (c *Consumer) Start(ctx context.Context) error {
	if c.target == nil {
		return errors.New("kafkaconsumer: missing invalidation target")
	}
	if len(c.cfg.Brokers) == 0 {
		return errors.New("kafkaconsumer: no brokers configured")
	}

	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_1_0_0
	cfg.Consumer.Group.Session.Timeout = c.cfg.SessionTimeout
	cfg.Consumer.Group.Heartbeat.Interval = c.cfg.Heartbeat
	cfg.Consumer.Group.Rebalance.Timeout = c.cfg.RebalanceTimeout
	if c.cfg.InitialOffsetOldest {
		cfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		cfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	cfg.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(c.cfg.Brokers, c.cfg.GroupID, cfg)
	if err != nil {
		return fmt.Errorf("create consumer group: %w", err)
	}
	defer func() { _ = group.Close() }()

	handler := &groupHandler{process: c.ProcessOne}

	c.logger.Info("invalidation consumer starting",
		"brokers", c.cfg.Brokers, "topic", c.cfg.Topic, "group", c.cfg.GroupID)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("invalidation consumer shutting down")
			return nil
		default:
			if err := group.Consume(ctx, []string{c.cfg.Topic}, handler); err != nil {
				c.logger.Error("consumer error", "err", err)
				time.Sleep(2 * time.Second)
			}
		}
	}
}

// ProcessOne applies a single invalidation event message.
func (c *Consumer) ProcessOne(ctx context.Context, msg *sarama.ConsumerMessage) error {
	start := time.Now()

	var ev invalidation.Event
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		obs.IncKafkaConsumerError("decode")
		c.logger.Error("event decode failed",
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
		// malformed messages are dropped, not retried
		return nil
	}
	if err := ev.Validate(); err != nil {
		obs.IncKafkaConsumerError("validate")
		c.logger.Warn("invalid event dropped",
			"topic", msg.Topic, "offset", msg.Offset, "err", err)
		return nil
	}

	if !c.dedupe.shouldApply(ev.DedupeKey(), ev.Seq) {
		c.logger.Debug("stale event skipped",
			"register", ev.Register, "zone", ev.Zone, "seq", ev.Seq)
		obs.ObserveInvalidation(ev.Op, 0, time.Since(start), nil)
		return nil
	}

	reg := model.ParseRegister(ev.Register)
	evicted, err := c.target.InvalidateZone(ctx, reg, ev.Zone)
	obs.ObserveInvalidation(ev.Op, evicted, time.Since(start), err)
	if err != nil {
		obs.IncKafkaConsumerError("evict")
		c.logger.Error("zone eviction failed",
			"register", ev.Register, "zone", ev.Zone, "evicted", evicted, "err", err)
		return fmt.Errorf("invalidate zone %s/%s: %w", ev.Register, ev.Zone, err)
	}

	c.logger.Debug("zone invalidated",
		"register", ev.Register, "zone", ev.Zone, "op", ev.Op, "keys", evicted)
	return nil
}
