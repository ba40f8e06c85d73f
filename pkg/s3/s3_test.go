package s3

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"math/big"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("S3_ENDPOINT", " minio:9000 ")
	t.Setenv("S3_ACCESS_KEY", "minio")
	t.Setenv("S3_SECRET_KEY", "minio123")
	t.Setenv("S3_REGION", "")
	t.Setenv("S3_DISABLE_TLS", "true")
	t.Setenv("S3_FORCE_PATH_STYLE", "")

	cfg := ConfigFromEnv()
	assert.Equal(t, "minio:9000", cfg.Endpoint)
	assert.True(t, cfg.DisableTLS)
	assert.True(t, cfg.ForcePathStyle)
}

func TestNewClientFromEnvNotConfigured(t *testing.T) {
	t.Setenv("S3_ENDPOINT", "")

	_, err := NewClientFromEnv(context.Background())
	assert.True(t, errors.Is(err, ErrNotConfigured))
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient(context.Background(), Config{Endpoint: "minio:9000"})
	assert.Error(t, err)
}

func TestNewClientWithCABundle(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "minio-test-ca"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)

	bundle := filepath.Join(t.TempDir(), "ca.pem")
	require.NoError(t, os.WriteFile(bundle, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	t.Setenv("AWS_CA_BUNDLE", bundle)

	c, err := NewClient(context.Background(), Config{
		Endpoint:  "minio:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
	})
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestPresignPut(t *testing.T) {
	t.Setenv("AWS_CA_BUNDLE", "")
	c, err := NewClient(context.Background(), Config{
		Endpoint:       "minio:9000",
		AccessKey:      "minio",
		SecretKey:      "minio123",
		DisableTLS:     true,
		ForcePathStyle: true,
	})
	require.NoError(t, err)

	raw, err := c.PresignPut(context.Background(), "volunteerverse-media", "ngo-logo/logo.png", "image/png", 15*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "http", u.Scheme)
	assert.Equal(t, "minio:9000", u.Host)
	assert.Equal(t, "/volunteerverse-media/ngo-logo/logo.png", u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
}

func TestNilClient(t *testing.T) {
	var c *Client
	_, err := c.PresignPut(context.Background(), "b", "k", "", time.Minute)
	assert.Error(t, err)
}
