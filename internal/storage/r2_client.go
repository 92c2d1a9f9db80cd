// Package storage uploads profile pictures to an S3 compatible bucket
// (Cloudflare R2 or AWS S3)
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"jobber/auth-api/validators"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// ProfileStorage stores a profile picture under publicID and returns the
// URL it can be fetched from
type ProfileStorage interface {
	Upload(ctx context.Context, picture, publicID string) (string, error)
}

type objectUploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type R2Client struct {
	C         *s3.Client
	Bucket    *string
	publicURL string
	maxSize   int64
	uploader  objectUploader
}

// NewR2 builds a client from the storage.* config and makes sure the
// bucket exists
func NewR2(ctx context.Context) (*R2Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			viper.GetString("storage.access_key_id"),
			viper.GetString("storage.secret_access_key"),
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	bucket := aws.String(viper.GetString("storage.bucket"))

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if id := viper.GetString("storage.account_id"); id != "" {
			o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", id))
			o.Region = "auto"
		} else {
			o.Region = viper.GetString("storage.region")
		}
	})

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: bucket,
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "NotFound" {
				return nil, fmt.Errorf("bucket '%s' does not exist", *bucket)
			}
		}

		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	return &R2Client{
		C:         client,
		Bucket:    bucket,
		publicURL: strings.TrimSuffix(viper.GetString("storage.public_url"), "/"),
		maxSize:   viper.GetInt64("upload.max_size"),
		uploader:  manager.NewUploader(client),
	}, nil
}

func (r *R2Client) Upload(ctx context.Context, picture, publicID string) (string, error) {
	p, err := validators.PictureValidator(picture, r.maxSize)
	if err != nil {
		return "", err
	}

	key := "profiles/" + publicID + p.MIME.Extension()

	_, err = r.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:       r.Bucket,
		Key:          aws.String(key),
		Body:         bytes.NewReader(p.Data),
		ContentType:  aws.String(p.MIME.String()),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload profile picture, %w", err)
	}

	zap.L().Debug("Profile picture uploaded", zap.String("key", key))

	return r.publicURL + "/" + key, nil
}

// Passthrough keeps the client supplied picture reference as is. Used when
// no bucket is configured.
type Passthrough struct{}

func (Passthrough) Upload(_ context.Context, picture, _ string) (string, error) {
	if picture == "" {
		return "", validators.ErrPictureEmpty
	}

	return picture, nil
}
