package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"

	"github.com/wattbase/wattledger/pkg/api"
	"github.com/wattbase/wattledger/pkg/ingest"
)

var (
	readingsURL string
	backend     string
	client      *http.Client
)

func init() {
	// Load environment variables from .env file (useful for local testing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	base := os.Getenv("API_BASE_URL")
	if base == "" {
		log.Fatal("API_BASE_URL environment variable not set")
	}
	readingsURL = base + "/v1/readings"

	backend = os.Getenv("BACKEND_ADDRESS")
	if backend == "" {
		log.Fatal("BACKEND_ADDRESS environment variable not set")
	}

	client = &http.Client{Timeout: 10 * time.Second}
}

// HandleRequest forwards each queued reading to the service's readings
// endpoint as the backend authority.
func HandleRequest(ctx context.Context, sqsEvent events.SQSEvent) error {
	for _, message := range sqsEvent.Records {
		log.Printf("Processing message %s", message.MessageId)

		var reading ingest.Reading
		if err := json.Unmarshal([]byte(message.Body), &reading); err != nil {
			log.Printf("ERROR: failed to unmarshal reading from SQS message %s: %v", message.MessageId, err)
			// A malformed message will never parse; skip it rather than retry.
			continue
		}

		if err := forward(ctx, reading); err != nil {
			log.Printf("ERROR: failed to forward reading %s: %v", reading.ReadingID, err)
			// Returning an error causes SQS to redeliver the batch, which is
			// appropriate when the service is briefly unreachable.
			return err
		}

		log.Printf("Successfully forwarded reading %s", reading.ReadingID)
	}

	return nil
}

func forward(ctx context.Context, reading ingest.Reading) error {
	body, err := json.Marshal(api.NewReading{
		DeviceID:    reading.DeviceID,
		EnergyMilli: reading.EnergyMilli,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal reading: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, readingsURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(api.CallerHeader, backend)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach readings endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("readings endpoint returned %d", resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		// 4xx means the reading itself was rejected; retrying cannot fix it.
		detail, _ := io.ReadAll(resp.Body)
		log.Printf("ERROR: reading %s rejected with status %d: %s", reading.ReadingID, resp.StatusCode, string(detail))
	}
	return nil
}

func main() {
	lambda.Start(HandleRequest)
}
