package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/bbernstein/floodwatch/backend-go/internal/metrics"
	"github.com/rs/zerolog/log"
)

// S3Client defines the interface for S3 operations we need
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

var ErrNoBucket = errors.New("empty bucket name")

// S3SnapshotStore persists store snapshots as JSON objects so a cold process
// can serve charts before its first fetch completes.
type S3SnapshotStore struct {
	client S3Client
	bucket string
	prefix string
	ttl    time.Duration
	clock  clock
}

type snapshotEnvelope struct {
	SavedAt int64           `json:"savedAt"`
	TTL     int64           `json:"ttl"`
	Data    json.RawMessage `json:"data"`
}

func NewS3SnapshotStore(client S3Client, bucket string, ttl time.Duration) *S3SnapshotStore {
	return &S3SnapshotStore{
		client: client,
		bucket: bucket,
		prefix: "snapshots/",
		ttl:    ttl,
		clock:  systemClock{},
	}
}

// NewS3Client builds an S3 client from the default AWS configuration.
func NewS3Client(ctx context.Context) (*s3.Client, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return s3.NewFromConfig(cfg), nil
}

func (s *S3SnapshotStore) key(name string) string {
	return s.prefix + name + ".json"
}

// Save writes v under name.
func (s *S3SnapshotStore) Save(ctx context.Context, name string, v any) error {
	if s.bucket == "" {
		return ErrNoBucket
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding snapshot %s: %w", name, err)
	}

	now := s.clock.Now().Unix()
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(snapshotEnvelope{
		SavedAt: now,
		TTL:     now + int64(s.ttl.Seconds()),
		Data:    data,
	}); err != nil {
		return fmt.Errorf("encoding snapshot envelope %s: %w", name, err)
	}

	if _, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key(name)),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/json"),
	}); err != nil {
		metrics.SnapshotOps.WithLabelValues(name, "save", "error").Inc()
		return fmt.Errorf("saving snapshot %s to S3: %w", name, err)
	}

	metrics.SnapshotOps.WithLabelValues(name, "save", "ok").Inc()
	log.Debug().Str("snapshot", name).Int("bytes", buf.Len()).Msg("Saved snapshot to S3")
	return nil
}

// Load decodes the snapshot stored under name into v. It reports false
// without error when the object is missing or expired.
func (s *S3SnapshotStore) Load(ctx context.Context, name string, v any) (bool, error) {
	if s.bucket == "" {
		return false, ErrNoBucket
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		var missing *types.NoSuchKey
		if errors.As(err, &missing) {
			metrics.SnapshotOps.WithLabelValues(name, "load", "missing").Inc()
			return false, nil
		}
		metrics.SnapshotOps.WithLabelValues(name, "load", "error").Inc()
		return false, fmt.Errorf("loading snapshot %s from S3: %w", name, err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing S3 object body")
		}
	}(result.Body)

	var env snapshotEnvelope
	if err := json.NewDecoder(result.Body).Decode(&env); err != nil {
		metrics.SnapshotOps.WithLabelValues(name, "load", "error").Inc()
		return false, fmt.Errorf("decoding snapshot envelope %s: %w", name, err)
	}

	if s.clock.Now().Unix() > env.TTL {
		log.Debug().Str("snapshot", name).Msg("Snapshot expired")
		metrics.SnapshotOps.WithLabelValues(name, "load", "expired").Inc()
		return false, nil
	}

	if err := json.Unmarshal(env.Data, v); err != nil {
		metrics.SnapshotOps.WithLabelValues(name, "load", "error").Inc()
		return false, fmt.Errorf("decoding snapshot %s: %w", name, err)
	}

	metrics.SnapshotOps.WithLabelValues(name, "load", "ok").Inc()
	return true, nil
}
