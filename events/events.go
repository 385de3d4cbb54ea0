package events

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// DefaultChannel carries board change notifications.
const DefaultChannel = "board-updates"

// BoardUpdate announces that the tasks of a project changed.
type BoardUpdate struct {
	ProjectID string    `json:"projectId"`
	At        time.Time `json:"at"`
}

// Publisher fans board changes out to every API instance through Redis.
type Publisher struct {
	rc      *redis.Client
	channel string
	log     *log.Logger
}

func NewPublisher(rc *redis.Client, channel string, logger *log.Logger) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Publisher{rc: rc, channel: channel, log: logger}
}

// BoardChanged publishes an update for projectID. Publish failures are
// logged only; subscribers resynchronise on their next fetch.
func (p *Publisher) BoardChanged(ctx context.Context, projectID string) {
	data, err := sonic.Marshal(BoardUpdate{ProjectID: projectID, At: time.Now().UTC()})
	if err != nil {
		p.log.WithError(err).Error("events.encode_failed")
		return
	}
	if err := p.rc.Publish(ctx, p.channel, data).Err(); err != nil {
		p.log.WithFields(log.Fields{
			"project_id": projectID,
			"channel":    p.channel,
			"error":      err,
		}).Warn("events.publish_failed")
	}
}

// Subscribe listens on channel and calls deliver for each board update
// until ctx is done.
func Subscribe(ctx context.Context, logger *log.Logger, rc *redis.Client, channel string, deliver func(BoardUpdate)) {
	if channel == "" {
		channel = DefaultChannel
	}
	sub := rc.Subscribe(ctx, channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				logger.Error("subscription channel closed")
				return
			}
			var update BoardUpdate
			if err := sonic.UnmarshalString(msg.Payload, &update); err != nil {
				logger.Errorf("unable to parse board update: %v", err)
				continue
			}
			if update.ProjectID == "" {
				logger.Warnf("board update without project on %s - ignoring it", channel)
				continue
			}
			deliver(update)
		}
	}
}
