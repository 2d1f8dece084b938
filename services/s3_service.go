package services

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Attachment describes an uploaded content object.
type Attachment struct {
	URL         string `json:"contentUrl"`
	ContentType string `json:"contentType"`
	FileName    string `json:"contentFileName"`
}

// S3Service stores message attachments and hands back a read URL.
type S3Service struct {
	Client *s3.Client
	Bucket string
}

// InitializeS3Client initializes the S3 client
func InitializeS3Client() *s3.Client {
	cfg, err := config.LoadDefaultConfig(context.TODO(), config.WithRegion(os.Getenv("AWS_REGION")))
	if err != nil {
		log.Fatalf("Failed to load AWS config: %v", err)
	}
	return s3.NewFromConfig(cfg)
}

// UploadAttachment stores the buffer under a timestamped key and returns a
// presigned read URL for it.
func (s *S3Service) UploadAttachment(ctx context.Context, data []byte, fileName, contentType string) (*Attachment, error) {
	key := "attachments/" + time.Now().Format("20060102150405") + "-" + fileName

	_, err := s.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upload attachment: %w", err)
	}

	presigner := s3.NewPresignClient(s.Client)
	presigned, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(7*24*time.Hour))
	if err != nil {
		return nil, fmt.Errorf("failed to presign attachment URL: %w", err)
	}

	return &Attachment{
		URL:         presigned.URL,
		ContentType: contentType,
		FileName:    fileName,
	}, nil
}
