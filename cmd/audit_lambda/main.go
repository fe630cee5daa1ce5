package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/joho/godotenv"

	"github.com/wattbase/wattledger/pkg/api"
)

var (
	auditURL string
	client   *http.Client
)

func init() {
	// Load environment variables for local testing.
	godotenv.Load()

	base := os.Getenv("API_BASE_URL")
	if base == "" {
		log.Fatal("API_BASE_URL environment variable not set")
	}
	auditURL = base + "/v1/ledger/audit"

	client = &http.Client{Timeout: 10 * time.Second}
}

// HandleRequest is triggered by an EventBridge Schedule.
func HandleRequest(ctx context.Context) error {
	log.Println("Starting invariant audit...")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, auditURL, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach audit endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("audit endpoint returned %d", resp.StatusCode)
	}

	var report api.AuditReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return fmt.Errorf("failed to decode audit report: %w", err)
	}

	if report.Clean {
		log.Println("Invariant audit clean.")
		return nil
	}

	for _, violation := range report.Violations {
		log.Printf("ERROR: invariant violation: %s", violation)
	}

	// Failing the invocation trips the alarm wired to this schedule.
	return fmt.Errorf("invariant audit found %d violations", len(report.Violations))
}

func main() {
	lambda.Start(HandleRequest)
}
