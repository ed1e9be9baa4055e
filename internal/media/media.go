// Package media stores partner and provider imagery in an S3-compatible
// bucket and tracks each object in the media_assets table.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/voyara/platform/internal/core"
	"github.com/voyara/platform/internal/model"
	"github.com/voyara/platform/internal/platform"
)

// MaxLogoBytes caps uploaded logo size.
const MaxLogoBytes = 2 << 20 // 2 MiB

var (
	ErrUnsupportedType = errors.New("unsupported media type")
	ErrTooLarge        = errors.New("media exceeds size limit")
)

// logoExtensions whitelists logo content types and their object suffixes.
var logoExtensions = map[string]string{
	"image/png":     "png",
	"image/jpeg":    "jpg",
	"image/svg+xml": "svg",
	"image/webp":    "webp",
}

// objectAPI is the slice of the S3 client the service uses.
type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Service uploads media objects and records them as assets.
type Service struct {
	objects  objectAPI
	db       core.DB
	endpoint string
	bucket   string
	baseURL  string
	logger   zerolog.Logger
}

// NewService creates a media service against an S3-compatible endpoint
// (path-style, static credentials). baseURL, when set, is the public CDN
// prefix used to build asset URLs; otherwise URLs point at the endpoint.
func NewService(logger zerolog.Logger, db core.DB, endpoint, region, accessKey, secretKey, bucket, baseURL string) *Service {
	client := s3.New(s3.Options{
		BaseEndpoint: aws.String(endpoint),
		Region:       region,
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		UsePathStyle: true,
	})
	return &Service{
		objects:  client,
		db:       db,
		endpoint: endpoint,
		bucket:   bucket,
		baseURL:  baseURL,
		logger:   logger.With().Str("component", "media").Logger(),
	}
}

// UploadLogo stores a logo object for the owner and records the asset.
// Any previous logo for the same owner is removed; owners have at most
// one logo at a time.
func (s *Service) UploadLogo(ctx context.Context, ownerType, ownerID, contentType string, data []byte) (*model.MediaAsset, error) {
	ext, ok := logoExtensions[contentType]
	if !ok {
		return nil, fmt.Errorf("logo content type %q: %w", contentType, ErrUnsupportedType)
	}
	if len(data) > MaxLogoBytes {
		return nil, fmt.Errorf("logo is %d bytes (limit %d): %w", len(data), MaxLogoBytes, ErrTooLarge)
	}

	key := fmt.Sprintf("logos/%s/%s.%s", ownerID, platform.NewID(), ext)
	_, err := s.objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String("public, max-age=86400"),
	})
	if err != nil {
		return nil, fmt.Errorf("put logo object %s: %w", key, err)
	}

	if _, err := s.DeleteForOwner(ctx, ownerType, ownerID, model.MediaKindLogo); err != nil {
		// The new object is already up; losing the old one only leaks storage.
		s.logger.Warn().Err(err).Str("owner", ownerID).Msg("failed to remove previous logo")
	}

	asset := &model.MediaAsset{
		ID:          platform.NewID(),
		OwnerType:   ownerType,
		OwnerID:     ownerID,
		Kind:        model.MediaKindLogo,
		Bucket:      s.bucket,
		ObjectKey:   key,
		ContentType: contentType,
		SizeBytes:   int64(len(data)),
		URL:         s.publicURL(key),
		CreatedAt:   time.Now().UTC(),
	}
	_, err = s.db.Exec(ctx,
		`INSERT INTO media_assets (id, owner_type, owner_id, kind, bucket, object_key, content_type, size_bytes, url, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		asset.ID, asset.OwnerType, asset.OwnerID, asset.Kind, asset.Bucket,
		asset.ObjectKey, asset.ContentType, asset.SizeBytes, asset.URL, asset.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("record media asset: %w", err)
	}
	return asset, nil
}

// DeleteForOwner removes all assets of the given kind for an owner, both
// the objects and their rows. Returns how many assets were removed.
func (s *Service) DeleteForOwner(ctx context.Context, ownerType, ownerID, kind string) (int, error) {
	rows, err := s.db.Query(ctx,
		`SELECT object_key FROM media_assets WHERE owner_type = $1 AND owner_id = $2 AND kind = $3`,
		ownerType, ownerID, kind)
	if err != nil {
		return 0, fmt.Errorf("list assets for %s %s: %w", ownerType, ownerID, err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return 0, fmt.Errorf("scan asset key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("iterate asset keys: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}

	for _, key := range keys {
		if _, err := s.objects.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(s.bucket),
			Key:    aws.String(key),
		}); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to delete media object")
		}
	}

	_, err = s.db.Exec(ctx,
		`DELETE FROM media_assets WHERE owner_type = $1 AND owner_id = $2 AND kind = $3`,
		ownerType, ownerID, kind)
	if err != nil {
		return 0, fmt.Errorf("delete asset rows for %s %s: %w", ownerType, ownerID, err)
	}
	return len(keys), nil
}

func (s *Service) publicURL(key string) string {
	if s.baseURL != "" {
		return strings.TrimSuffix(s.baseURL, "/") + "/" + key
	}
	return strings.TrimSuffix(s.endpoint, "/") + "/" + s.bucket + "/" + key
}
