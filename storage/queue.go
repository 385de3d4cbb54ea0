package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/bytedance/sonic"

	"prism-board/domain"
)

type enqueuer interface {
	EnqueueMessage(ctx context.Context, content string, o *azqueue.EnqueueMessageOptions) (azqueue.EnqueueMessagesResponse, error)
}

// ActivityMessage is the payload pushed to the export queue.
type ActivityMessage struct {
	Type  string                  `json:"type"`
	Entry domain.ActivityLogEntry `json:"entry"`
}

// QueueExporter forwards recorded activity entries to an Azure storage
// queue for downstream consumers.
type QueueExporter struct {
	queue enqueuer
}

// NewQueueExporter connects to the named queue.
func NewQueueExporter(connStr, queueName string) (*QueueExporter, error) {
	opts := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Second * 30,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, queueName, &opts)
	if err != nil {
		return nil, fmt.Errorf("activity queue client: %w", err)
	}
	return &QueueExporter{queue: q}, nil
}

// Export enqueues one activity entry.
func (e *QueueExporter) Export(ctx context.Context, entry domain.ActivityLogEntry) error {
	data, err := sonic.Marshal(ActivityMessage{Type: "activity", Entry: entry})
	if err != nil {
		return err
	}
	if _, err := e.queue.EnqueueMessage(ctx, string(data), nil); err != nil {
		return fmt.Errorf("enqueue activity %s: %w", entry.ID, err)
	}
	return nil
}

// EnsureQueue creates the named queue if it does not exist yet.
func EnsureQueue(ctx context.Context, connStr, queueName string) error {
	q, err := azqueue.NewQueueClientFromConnectionString(connStr, queueName, nil)
	if err != nil {
		return err
	}
	_, err = q.Create(ctx, nil)
	if err != nil {
		var respErr *azcore.ResponseError
		if !(errors.As(err, &respErr) && respErr.ErrorCode == "QueueAlreadyExists") {
			return err
		}
	}
	return nil
}
