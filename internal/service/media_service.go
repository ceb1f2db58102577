package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
	"github.com/h2non/filetype/types"
	config "github.com/maheshrc27/crosspost/configs"
	"github.com/maheshrc27/crosspost/internal/models"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

const MaxMediaSize = 50 << 20

var allowedMedia = map[string]models.MediaType{
	"jpg":  models.MediaTypeImage,
	"png":  models.MediaTypeImage,
	"gif":  models.MediaTypeImage,
	"webp": models.MediaTypeImage,
	"mp4":  models.MediaTypeVideo,
	"mov":  models.MediaTypeVideo,
}

// ObjectPutter is the subset of the S3 client used for uploads.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewR2Client builds an S3 client pointed at the account's R2 endpoint.
func NewR2Client(ctx context.Context, r2 config.R2) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(r2.AccessKey, r2.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", r2.AccountID))
	}), nil
}

// MediaService stores uploaded media and returns the reference a post can
// carry in its MediaRefs.
type MediaService interface {
	Upload(ctx context.Context, ownerID string, data []byte) (*models.MediaRef, error)
}

type mediaService struct {
	client    ObjectPutter
	bucket    string
	publicURL string
}

func NewMediaService(client ObjectPutter, bucket, publicURL string) MediaService {
	return &mediaService{
		client:    client,
		bucket:    bucket,
		publicURL: strings.TrimRight(publicURL, "/"),
	}
}

func (s *mediaService) Upload(ctx context.Context, ownerID string, data []byte) (*models.MediaRef, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidInput)
	}
	if len(data) > MaxMediaSize {
		return nil, fmt.Errorf("%w: file exceeds %d bytes", ErrInvalidInput, MaxMediaSize)
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == types.Unknown {
		return nil, fmt.Errorf("%w: unsupported file type", ErrInvalidInput)
	}
	mediaType, ok := allowedMedia[kind.Extension]
	if !ok {
		return nil, fmt.Errorf("%w: file type %s is not allowed", ErrInvalidInput, kind.Extension)
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%s/%s.%s", ownerID, id, kind.Extension)

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(kind.MIME.Value),
	})
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("uploading media: %w", err)
	}

	return &models.MediaRef{URL: s.publicURL + "/" + key, Type: mediaType}, nil
}
