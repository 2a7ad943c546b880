package batchsink

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Uploader adapts *s3.Client to the Uploader interface.
type S3Uploader struct {
	Client *s3.Client
}

func (u *S3Uploader) PutObject(ctx context.Context, bucket, key string, body []byte, contentType, contentEncoding string) error {
	_, err := u.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:          &bucket,
		Key:             &key,
		Body:            bytes.NewReader(body),
		ContentType:     &contentType,
		ContentEncoding: &contentEncoding,
	})
	return err
}
