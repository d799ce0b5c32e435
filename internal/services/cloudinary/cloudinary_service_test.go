package cloudinary

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rajivgeraev/carswipe-api/internal/apperr"
	"github.com/rajivgeraev/carswipe-api/internal/config"
)

func TestSignUpload(t *testing.T) {
	svc := NewCloudinaryService(config.CloudinaryConfig{
		CloudName:    "demo",
		APIKey:       "key",
		APISecret:    "secret",
		UploadPreset: "carswipe",
		UploadFolder: "posts",
	})
	svc.now = func() time.Time { return time.Unix(1700000000, 0) }

	userID, postID := uuid.New(), uuid.New()
	params, err := svc.SignUpload(userID, postID)
	require.NoError(t, err)

	folder := "posts/" + userID.String() + "/" + postID.String()
	assert.Equal(t, folder, params.Folder)
	assert.Equal(t, "1700000000", params.Timestamp)

	assert.NotEmpty(t, params.Signature)

	again, err := svc.SignUpload(userID, postID)
	require.NoError(t, err)
	assert.Equal(t, params.Signature, again.Signature)

	other := NewCloudinaryService(config.CloudinaryConfig{APISecret: "another", UploadPreset: "carswipe", UploadFolder: "posts"})
	other.now = svc.now
	otherParams, err := other.SignUpload(userID, postID)
	require.NoError(t, err)
	assert.NotEqual(t, params.Signature, otherParams.Signature)
}

func TestSignUploadRequiresSecret(t *testing.T) {
	svc := NewCloudinaryService(config.CloudinaryConfig{})
	_, err := svc.SignUpload(uuid.New(), uuid.New())
	assert.True(t, apperr.Is(err, apperr.CodeInvalidState))
}
