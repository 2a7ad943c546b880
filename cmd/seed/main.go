// Command seed reproduces original_source's Realtor_AWS.py send_task as a
// Go CLI: it sends one root URL task onto the inbound queue so a worker
// fleet has something to start crawling. This is the producer-side utility
// spec.md §1 treats as an external collaborator — seed exists only to make
// the worker runtime runnable end-to-end in this repo, not as part of the
// core.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/rhan/realtor-worker-fleet/internal/model"
)

func main() {
	region := flag.String("region", envOr("AWS_REGION", "us-east-2"), "AWS region")
	queueURL := flag.String("queue-url", os.Getenv("QUEUE_URL"), "inbound queue URL")
	targetURL := flag.String("url", "https://www.realtor.com/realestateandhomes-search/New-York_NY", "root URL to seed")
	flag.Parse()

	if *queueURL == "" {
		log.Fatal("seed: -queue-url or QUEUE_URL is required")
	}

	ctx := context.Background()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(*region))
	if err != nil {
		log.Fatalf("seed: load aws config: %v", err)
	}

	body, err := json.Marshal(model.URLTask{URLToScrape: *targetURL})
	if err != nil {
		log.Fatalf("seed: marshal task: %v", err)
	}
	payload := string(body)

	client := sqs.NewFromConfig(awsCfg)
	fmt.Printf("Sending to %s in %s\n", *queueURL, *region)
	if _, err := client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    queueURL,
		MessageBody: &payload,
	}); err != nil {
		log.Fatalf("seed: send message: %v", err)
	}
	fmt.Printf("Sent task to queue: %s\n", *targetURL)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
