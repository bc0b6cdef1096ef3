package oss

import (
	"fmt"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"

	"github.com/khotba/khotba_server/config"
)

// Client mirrors rendered subtitle videos to an OSS bucket.
type Client struct {
	client     *oss.Client
	bucket     *oss.Bucket
	bucketName string
	cdnDomain  string
}

func NewClient(cfg *config.OSSConfig) (*Client, error) {
	client, err := oss.New(cfg.Endpoint, cfg.AccessKeyID, cfg.AccessKeySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to create OSS client: %w", err)
	}

	bucket, err := client.Bucket(cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket: %w", err)
	}

	return &Client{
		client:     client,
		bucket:     bucket,
		bucketName: cfg.BucketName,
		cdnDomain:  cfg.CDNDomain,
	}, nil
}

// VideoKey is the object key of a rendered video.
func VideoKey(analysisID, lang string) string {
	return fmt.Sprintf("videos/%s_%s.mp4", analysisID, lang)
}

// UploadVideo copies a rendered video to the bucket and returns its public URL.
func (c *Client) UploadVideo(localPath, analysisID, lang string) (string, error) {
	objectKey := VideoKey(analysisID, lang)
	if err := c.bucket.PutObjectFromFile(objectKey, localPath, oss.ContentType("video/mp4")); err != nil {
		return "", fmt.Errorf("failed to upload video: %w", err)
	}
	return c.GetURL(objectKey), nil
}

// DeleteVideo removes a mirrored video. Deleting a missing object is not an error.
func (c *Client) DeleteVideo(analysisID, lang string) error {
	if err := c.bucket.DeleteObject(VideoKey(analysisID, lang)); err != nil {
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// GetURL prefers the CDN domain when one is configured.
func (c *Client) GetURL(objectKey string) string {
	if c.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", c.cdnDomain, objectKey)
	}
	return fmt.Sprintf("https://%s.%s/%s", c.bucketName, c.client.Config.Endpoint, objectKey)
}
