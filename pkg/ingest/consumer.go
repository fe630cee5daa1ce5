package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/holiman/uint256"

	"github.com/wattbase/wattledger/pkg/metrics"
	"github.com/wattbase/wattledger/pkg/models"
)

// Reading is the message the verification pipeline publishes for each
// verified meter reading.
type Reading struct {
	ReadingID   string    `json:"reading_id"`
	DeviceID    string    `json:"device_id"`
	EnergyMilli uint64    `json:"energy_milli"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// Service is the slice of the ledger engine the consumer applies readings to.
type Service interface {
	RecordVerifiedReading(ctx context.Context, caller models.Address, id models.DeviceID, energyMilli uint64) (*uint256.Int, error)
}

// SQSAPI captures the SQS operations the consumer uses.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// Consumer drains verified readings from an SQS queue and applies them to
// the ledger engine as the backend authority.
type Consumer struct {
	client   SQSAPI
	ledger   Service
	queueURL string
	backend  models.Address
	log      *slog.Logger
	backoff  time.Duration
}

// NewConsumer creates a new Consumer for the given queue.
func NewConsumer(client SQSAPI, ledger Service, queueURL string, backend models.Address, log *slog.Logger) *Consumer {
	if log == nil {
		log = slog.Default()
	}
	return &Consumer{
		client:   client,
		ledger:   ledger,
		queueURL: queueURL,
		backend:  backend,
		log:      log,
		backoff:  5 * time.Second,
	}
}

// Run long-polls the queue until the context ends. It always returns the
// context's error.
func (c *Consumer) Run(ctx context.Context) error {
	c.log.Info("ingest consumer started", "queue_url", c.queueURL)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		out, err := c.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(c.queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     20,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Error("failed to receive messages", "queue_url", c.queueURL, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.backoff):
			}
			continue
		}

		for _, msg := range out.Messages {
			c.handle(ctx, msg)
		}
	}
}

// handle applies a single message and then deletes it. Malformed and
// rejected readings are terminal: they are logged, counted, and deleted
// rather than redelivered.
func (c *Consumer) handle(ctx context.Context, msg types.Message) {
	var reading Reading
	if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &reading); err != nil {
		c.log.Error("dropping malformed reading message",
			"message_id", aws.ToString(msg.MessageId), "error", err)
		metrics.RecordIngestMessage("malformed")
		c.delete(ctx, msg)
		return
	}

	id, err := models.ParseDeviceID(reading.DeviceID)
	if err != nil {
		c.log.Error("dropping reading with malformed device id",
			"reading_id", reading.ReadingID, "device_id", reading.DeviceID, "error", err)
		metrics.RecordIngestMessage("malformed")
		c.delete(ctx, msg)
		return
	}

	minted, err := c.ledger.RecordVerifiedReading(ctx, c.backend, id, reading.EnergyMilli)
	if err != nil {
		c.log.Error("dropping rejected reading",
			"reading_id", reading.ReadingID, "device_id", reading.DeviceID, "error", err)
		metrics.RecordIngestMessage("rejected")
		c.delete(ctx, msg)
		return
	}

	c.log.Info("applied verified reading",
		"reading_id", reading.ReadingID,
		"device_id", reading.DeviceID,
		"energy_milli", reading.EnergyMilli,
		"minted", minted.Dec())
	metrics.RecordIngestMessage("applied")
	c.delete(ctx, msg)
}

func (c *Consumer) delete(ctx context.Context, msg types.Message) {
	_, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		c.log.Error("failed to delete message",
			"message_id", aws.ToString(msg.MessageId), "error", err)
	}
}
