package cloudinary

import (
	"crypto/sha1"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rajivgeraev/skillswap-api/internal/config"
)

func newTestService(secret string) *CloudinaryService {
	cfg := &config.Config{
		CloudinaryConfig: config.CloudinaryConfig{
			APISecret:    secret,
			UploadFolder: "avatars",
		},
	}
	return NewCloudinaryService(cfg)
}

func TestGenerateSignature(t *testing.T) {
	s := newTestService("secret123")

	params := map[string]string{
		"timestamp": "1700000000",
		"folder":    "avatars/user-1",
	}

	// Параметры сортируются по ключу, секрет добавляется в конец
	h := sha1.Sum([]byte("folder=avatars/user-1&timestamp=1700000000secret123"))
	expected := hex.EncodeToString(h[:])

	assert.Equal(t, expected, s.GenerateSignature(params))

	// Подпись детерминирована
	assert.Equal(t, expected, s.GenerateSignature(params))
}

func TestGenerateSignatureDependsOnSecret(t *testing.T) {
	params := map[string]string{"timestamp": "1700000000"}

	sigA := newTestService("secret-a").GenerateSignature(params)
	sigB := newTestService("secret-b").GenerateSignature(params)

	assert.NotEqual(t, sigA, sigB)
}
