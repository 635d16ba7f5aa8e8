package utils

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"gmaps-scraper/internal/config"
	"gmaps-scraper/internal/logging"
)

// ErrSpacesNotConfigured is returned when export upload is requested without credentials
var ErrSpacesNotConfigured = fmt.Errorf("DigitalOcean Spaces is not configured")

// SpacesClient wraps the S3 client for DigitalOcean Spaces operations
type SpacesClient struct {
	client     *s3.S3
	bucketName string
	bucketURL  string
	cdnURL     string
	region     string
	logger     logging.Logger
}

// SpacesConfigured reports whether the Spaces credentials and bucket are set
func SpacesConfigured(cfg *config.Config) bool {
	spaces := cfg.DigitalOcean.Spaces
	return spaces.AccessKeyID != "" && spaces.AccessKeySecret != "" && spaces.BucketName != ""
}

// NewSpacesClient creates a new DigitalOcean Spaces client
func NewSpacesClient(cfg *config.Config) (*SpacesClient, error) {
	logger := logging.GetGlobalLogger()

	if !SpacesConfigured(cfg) {
		return nil, ErrSpacesNotConfigured
	}

	spaces := cfg.DigitalOcean.Spaces

	// Spaces exposes an S3 endpoint per region, e.g. https://blr1.digitaloceanspaces.com
	endpoint := fmt.Sprintf("https://%s.digitaloceanspaces.com", spaces.Region)

	sess, err := session.NewSession(&aws.Config{
		Credentials: credentials.NewStaticCredentials(
			spaces.AccessKeyID,
			spaces.AccessKeySecret,
			"",
		),
		Endpoint:         aws.String(endpoint),
		Region:           aws.String(spaces.Region),
		S3ForcePathStyle: aws.Bool(false), // virtual-hosted-style for Spaces
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create DigitalOcean Spaces session: %w", err)
	}

	logger.Info("DigitalOcean Spaces client initialized", map[string]interface{}{
		"bucket_name": spaces.BucketName,
		"region":      spaces.Region,
		"endpoint":    endpoint,
	})

	return &SpacesClient{
		client:     s3.New(sess),
		bucketName: spaces.BucketName,
		bucketURL:  spaces.BucketURL,
		cdnURL:     spaces.CDNEndpoint,
		region:     spaces.Region,
		logger:     logger,
	}, nil
}

// Upload stores data under key with a private ACL and returns the object URL
func (sc *SpacesClient) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	sc.logger.Info("Uploading export to DigitalOcean Spaces", map[string]interface{}{
		"object_key": key,
		"size_bytes": len(data),
	})

	_, err := sc.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(sc.bucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
		ACL:         aws.String("private"),
	})
	if err != nil {
		sc.logger.WithError(err).Error("Failed to upload export to DigitalOcean Spaces", map[string]interface{}{
			"object_key": key,
		})
		return "", fmt.Errorf("failed to upload export: %w", err)
	}

	url := sc.objectURL(key)
	sc.logger.Info("Export uploaded successfully", map[string]interface{}{
		"object_key": key,
		"url":        url,
	})

	return url, nil
}

func (sc *SpacesClient) objectURL(key string) string {
	if sc.cdnURL != "" {
		return fmt.Sprintf("%s/%s", strings.TrimRight(sc.cdnURL, "/"), key)
	}
	if sc.bucketURL != "" {
		base := strings.TrimRight(sc.bucketURL, "/")
		if !strings.HasPrefix(base, "https://") && !strings.HasPrefix(base, "http://") {
			base = "https://" + base
		}
		return fmt.Sprintf("%s/%s", base, key)
	}
	return fmt.Sprintf("https://%s.%s.digitaloceanspaces.com/%s", sc.bucketName, sc.region, key)
}

// IsHealthy checks if the Spaces client can communicate with the service
func (sc *SpacesClient) IsHealthy(ctx context.Context) bool {
	_, err := sc.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(sc.bucketName),
	})
	if err != nil {
		sc.logger.WithError(err).Error("DigitalOcean Spaces health check failed", map[string]interface{}{
			"bucket_name": sc.bucketName,
		})
		return false
	}
	return true
}
