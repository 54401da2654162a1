package aws_s3

import (
	"bytes"
	"context"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/haierkeys/contract-version-service/pkg/fileurl"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func (p *S3) key(fileKey string) (string, error) {
	return fileurl.JoinKey(p.Config.CustomPath, fileKey)
}

// SendContent 上传内容
func (p *S3) SendContent(ctx context.Context, fileKey string, content []byte) (string, error) {
	key, err := p.key(fileKey)
	if err != nil {
		return "", errors.Wrap(err, "aws_s3")
	}

	_, err = p.S3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:            aws.String(p.Config.BucketName),
		Key:               aws.String(key),
		Body:              bytes.NewReader(content),
		ContentType:       aws.String("application/octet-stream"),
		ChecksumAlgorithm: types.ChecksumAlgorithmSha256,
	})
	if err != nil {
		var noBucket *types.NoSuchBucket
		if errors.As(err, &noBucket) {
			p.logger.Warn("bucket does not exist", zap.String("bucket", p.Config.BucketName))
		}
		return "", errors.Wrap(err, "aws_s3")
	}
	return key, nil
}

func (p *S3) GetContent(ctx context.Context, fileKey string) ([]byte, error) {
	key, err := p.key(fileKey)
	if err != nil {
		return nil, errors.Wrap(err, "aws_s3")
	}

	out, err := p.S3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.Config.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, errors.Wrap(err, "aws_s3")
	}
	defer out.Body.Close()

	b, err := io.ReadAll(out.Body)
	return b, errors.Wrap(err, "aws_s3")
}

func (p *S3) Exists(ctx context.Context, fileKey string) (bool, error) {
	key, err := p.key(fileKey)
	if err != nil {
		return false, errors.Wrap(err, "aws_s3")
	}

	_, err = p.S3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(p.Config.BucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, errors.Wrap(err, "aws_s3")
	}
	return true, nil
}
