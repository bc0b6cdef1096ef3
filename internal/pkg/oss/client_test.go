package oss

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khotba/khotba_server/config"
)

func TestVideoKey(t *testing.T) {
	assert.Equal(t, "videos/abc_french.mp4", VideoKey("abc", "french"))
}

func TestGetURL_CDN(t *testing.T) {
	c, err := NewClient(&config.OSSConfig{
		Endpoint:        "oss-cn-hangzhou.aliyuncs.com",
		AccessKeyID:     "id",
		AccessKeySecret: "secret",
		BucketName:      "khotba",
		CDNDomain:       "cdn.example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, "https://cdn.example.com/videos/abc_arabic.mp4", c.GetURL(VideoKey("abc", "arabic")))
}
