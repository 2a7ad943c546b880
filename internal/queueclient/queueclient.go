// Package queueclient wraps SQS receive/delete/send-batch behind a narrow
// interface, grounded on original_source's run_worker (receiver loop,
// per-message delete, send_message_batch for discovered child URLs).
package queueclient

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/rhan/realtor-worker-fleet/internal/model"
)

// maxBatch mirrors SQS's own hard limit of 10 messages per receive or
// send-batch API call.
const maxBatch = 10

// Message is one received queue entry paired with its receipt handle and
// decoded task payload. Malformed is set when the body could not be parsed
// as JSON at all (spec.md §7: "Malformed queue body — logged; message
// deleted to stop redelivery"), as opposed to valid JSON missing
// url_to_scrape, which decodes to a zero-value Task and is handled by the
// normal empty-URL path.
type Message struct {
	ReceiptHandle string
	Task          model.URLTask
	Malformed     bool
}

// Queue is the surface the orchestrator needs. A narrow interface so tests
// can substitute an in-memory fake instead of real SQS.
type Queue interface {
	Receive(ctx context.Context, waitSeconds, visibilityTimeoutS int32) ([]Message, error)
	Delete(ctx context.Context, receiptHandle string) error
	SendURLs(ctx context.Context, urls []string) error
}

// SQSQueue adapts *sqs.Client to Queue.
type SQSQueue struct {
	Client   *sqs.Client
	QueueURL string
}

func NewSQSQueue(client *sqs.Client, queueURL string) *SQSQueue {
	return &SQSQueue{Client: client, QueueURL: queueURL}
}

func (q *SQSQueue) Receive(ctx context.Context, waitSeconds, visibilityTimeoutS int32) ([]Message, error) {
	out, err := q.Client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            &q.QueueURL,
		MaxNumberOfMessages: maxBatch,
		WaitTimeSeconds:     waitSeconds,
		VisibilityTimeout:   visibilityTimeoutS,
	})
	if err != nil {
		return nil, fmt.Errorf("queueclient: receive: %w", err)
	}

	msgs := make([]Message, 0, len(out.Messages))
	for _, m := range out.Messages {
		receiptHandle := aws.ToString(m.ReceiptHandle)
		if m.Body == nil {
			msgs = append(msgs, Message{ReceiptHandle: receiptHandle, Malformed: true})
			continue
		}
		var task model.URLTask
		if err := json.Unmarshal([]byte(*m.Body), &task); err != nil {
			// Malformed body: still surfaced (Malformed=true) so the
			// orchestrator deletes it to stop redelivery instead of
			// silently dropping it and letting it reappear forever.
			msgs = append(msgs, Message{ReceiptHandle: receiptHandle, Malformed: true})
			continue
		}
		msgs = append(msgs, Message{ReceiptHandle: receiptHandle, Task: task})
	}
	return msgs, nil
}

func (q *SQSQueue) Delete(ctx context.Context, receiptHandle string) error {
	_, err := q.Client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &q.QueueURL,
		ReceiptHandle: &receiptHandle,
	})
	if err != nil {
		return fmt.Errorf("queueclient: delete: %w", err)
	}
	return nil
}

// SendURLs enqueues one URLTask per url, batched in groups of up to 10 per
// SendMessageBatch call with sequential string ids, matching
// original_source's Realtor_AWS.py send_task.
func (q *SQSQueue) SendURLs(ctx context.Context, urls []string) error {
	for start := 0; start < len(urls); start += maxBatch {
		end := start + maxBatch
		if end > len(urls) {
			end = len(urls)
		}
		entries := make([]types.SendMessageBatchRequestEntry, 0, end-start)
		for i, u := range urls[start:end] {
			body, err := json.Marshal(model.URLTask{URLToScrape: u})
			if err != nil {
				return fmt.Errorf("queueclient: marshal task: %w", err)
			}
			id := strconv.Itoa(i)
			payload := string(body)
			entries = append(entries, types.SendMessageBatchRequestEntry{
				Id:          &id,
				MessageBody: &payload,
			})
		}
		if _, err := q.Client.SendMessageBatch(ctx, &sqs.SendMessageBatchInput{
			QueueUrl: &q.QueueURL,
			Entries:  entries,
		}); err != nil {
			return fmt.Errorf("queueclient: send batch: %w", err)
		}
	}
	return nil
}
