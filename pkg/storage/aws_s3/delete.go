package aws_s3

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/pkg/errors"
)

func (p *S3) Delete(ctx context.Context, fileKey string) error {
	key, err := p.key(fileKey)
	if err != nil {
		return errors.Wrap(err, "aws_s3")
	}

	_, err = p.S3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.Config.BucketName),
		Key:    aws.String(key),
	})
	return errors.Wrap(err, "aws_s3")
}
