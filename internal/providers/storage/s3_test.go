package storage

import (
	"bytes"
	"context"
	"testing"

	"github.com/cablebill/cablebill/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectURL(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		cfg  config.StorageConfig
		want string
	}{
		{
			name: "aws virtual host",
			cfg:  config.StorageConfig{Bucket: "docs", Region: "ap-south-1"},
			want: "https://docs.s3.ap-south-1.amazonaws.com/customers/1/id%20proof.pdf",
		},
		{
			name: "minio path style",
			cfg:  config.StorageConfig{Bucket: "docs", Region: "us-east-1", Endpoint: "http://minio:9000/", UsePathStyle: true},
			want: "http://minio:9000/docs/customers/1/id%20proof.pdf",
		},
		{
			name: "public base url",
			cfg:  config.StorageConfig{Bucket: "docs", Region: "us-east-1", PublicBaseURL: "https://cdn.example.com"},
			want: "https://cdn.example.com/customers/1/id%20proof.pdf",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.AccessKeyID = "key"
			tc.cfg.SecretAccessKey = "secret"
			p, err := NewS3Provider(ctx, tc.cfg)
			require.NoError(t, err)
			assert.Equal(t, tc.want, p.ObjectURL("customers/1/id proof.pdf"))
		})
	}
}

func TestMemoryProvider(t *testing.T) {
	p := NewMemoryProvider()
	obj, err := p.Put(context.Background(), "a/b.png", "image/png", bytes.NewReader([]byte("png")))
	require.NoError(t, err)
	assert.Equal(t, int64(3), obj.Size)
	assert.True(t, p.Has("a/b.png"))

	require.NoError(t, p.Delete(context.Background(), "a/b.png"))
	assert.False(t, p.Has("a/b.png"))
}
