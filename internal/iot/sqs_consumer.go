package iot

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/config"
	"github.com/Ruruu18/Smart-Parking-sub000/internal/service"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQSAPI là phần của *sqs.Client mà consumer dùng.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type ScanHandler interface {
	HandleScanMessage(ctx context.Context, body string) error
}

type SQSConsumer struct {
	sqsClient SQSAPI
	queueURL  string
	handler   ScanHandler
}

func NewSQSConsumer(client SQSAPI, cfg *config.Config, handler ScanHandler) *SQSConsumer {
	return &SQSConsumer{
		sqsClient: client,
		queueURL:  cfg.SQSScanQueueURL,
		handler:   handler,
	}
}

func (c *SQSConsumer) Start(ctx context.Context) {
	log.Printf("SQS Consumer đang bắt đầu lắng nghe queue: %s", c.queueURL)
	for {
		select {
		case <-ctx.Done():
			log.Println("SQS Consumer: context cancelled, stopping.")
			return
		default:
			if !c.poll(ctx) {
				select {
				case <-time.After(5 * time.Second):
				case <-ctx.Done():
					log.Println("SQS Consumer: context cancelled while waiting for retry.")
					return
				}
			}
		}
	}
}

// poll nhận một lô message; trả về false khi lỗi nhận để caller chờ rồi thử lại.
func (c *SQSConsumer) poll(ctx context.Context) bool {
	result, err := c.sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            &c.queueURL,
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
		VisibilityTimeout:   60,
	})
	if err != nil {
		if ctx.Err() == nil {
			log.Printf("SQS Consumer: Lỗi khi nhận message: %v", err)
		}
		return false
	}
	if len(result.Messages) == 0 {
		return true
	}

	log.Printf("SQS Consumer: Đã nhận %d message(s)", len(result.Messages))
	for _, message := range result.Messages {
		if message.Body == nil {
			log.Println("SQS Consumer: Nhận được message với body rỗng. Đang xóa...")
			c.deleteMessage(ctx, message.ReceiptHandle)
			continue
		}

		processingErr := c.handler.HandleScanMessage(ctx, *message.Body)
		switch {
		case processingErr == nil:
			c.deleteMessage(ctx, message.ReceiptHandle)
		case errors.Is(processingErr, service.ErrMalformedScan):
			log.Printf("SQS Consumer: Bỏ message không hợp lệ: %v", processingErr)
			c.deleteMessage(ctx, message.ReceiptHandle)
		default:
			messageID := ""
			if message.MessageId != nil {
				messageID = *message.MessageId
			}
			log.Printf("SQS Consumer: Lỗi khi xử lý message ID %s: %v. Message sẽ được xử lý lại sau visibility timeout.", messageID, processingErr)
		}
	}
	return true
}

func (c *SQSConsumer) deleteMessage(ctx context.Context, receiptHandle *string) {
	if receiptHandle == nil {
		log.Println("SQS Consumer: Receipt handle rỗng, không thể xóa message.")
		return
	}
	_, delErr := c.sqsClient.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      &c.queueURL,
		ReceiptHandle: receiptHandle,
	})
	if delErr != nil {
		log.Printf("SQS Consumer: Lỗi khi xóa message: %v", delErr)
	}
}
