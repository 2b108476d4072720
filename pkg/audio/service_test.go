package audio

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUpload(t *testing.T) {
	tests := []struct {
		name     string
		fileName string
		mimeType string
		size     int64
		wantErr  error
	}{
		{"mp3 ok", "track.mp3", "audio/mpeg", 1024, nil},
		{"wav ok", "track.wav", "audio/wav", 1024, nil},
		{"x-wav alias ok", "track.wav", "audio/x-wav", 1024, nil},
		{"wave alias ok", "track.wav", "audio/wave", 1024, nil},
		{"mp3 alias ok", "track.mp3", "audio/mp3", 1024, nil},
		{"m4a ok", "track.m4a", "audio/x-m4a", 1024, nil},
		{"mp4 audio ok", "track.m4a", "audio/mp4", 1024, nil},
		{"exactly at cap", "track.wav", "audio/wav", MaxUploadBytes, nil},
		{"one byte over", "track.wav", "audio/wav", MaxUploadBytes + 1, ErrFileTooLarge},
		{"flac rejected", "track.flac", "audio/flac", 1024, ErrUnsupportedType},
		{"video rejected", "clip.mp4", "video/mp4", 1024, ErrUnsupportedType},
		{"empty mime rejected", "track.mp3", "", 1024, ErrUnsupportedType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUpload(tt.fileName, tt.mimeType, tt.size)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

// memBlobStore keeps blobs in a map for tests
type memBlobStore struct {
	blobs map[string][]byte
	err   error
}

func (m *memBlobStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	if m.blobs == nil {
		m.blobs = make(map[string][]byte)
	}
	m.blobs[key] = data
	return "https://blobs.test/" + key, nil
}

// memStore records created files
type memStore struct {
	created []*File
}

func (m *memStore) Create(ctx context.Context, file *File) (*File, error) {
	file.ID = int64(len(m.created) + 1)
	m.created = append(m.created, file)
	return file, nil
}

func (m *memStore) Get(ctx context.Context, id, userID int64) (*File, error) {
	for _, f := range m.created {
		if f.ID == id && f.UserID == userID {
			return f, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memStore) ListByUser(ctx context.Context, userID int64) ([]*File, error) {
	out := make([]*File, 0)
	for _, f := range m.created {
		if f.UserID == userID {
			out = append(out, f)
		}
	}
	return out, nil
}

func TestUpload(t *testing.T) {
	blobs := &memBlobStore{}
	store := &memStore{}
	svc := NewService(store, blobs)

	payload := []byte("fake mp3 bytes")
	file, err := svc.Upload(context.Background(), 7, UploadRequest{
		FileName:   "demo.mp3",
		MimeType:   "audio/mpeg",
		DataBase64: base64.StdEncoding.EncodeToString(payload),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(7), file.UserID)
	assert.Equal(t, "demo.mp3", file.FileName)
	assert.Equal(t, int64(len(payload)), file.SizeBytes)
	assert.True(t, strings.HasPrefix(file.FileURL, "https://blobs.test/"))
	assert.True(t, strings.HasSuffix(file.FileURL, ".mp3"))

	// The blob key is random, not the client's file name
	assert.NotContains(t, file.FileURL, "demo")
	require.Len(t, blobs.blobs, 1)
	for _, data := range blobs.blobs {
		assert.Equal(t, payload, data)
	}
}

func TestUploadRejectsBadBase64(t *testing.T) {
	svc := NewService(&memStore{}, &memBlobStore{})

	_, err := svc.Upload(context.Background(), 7, UploadRequest{
		FileName:   "demo.mp3",
		MimeType:   "audio/mpeg",
		DataBase64: "not base64!!!",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestUploadRejectsDeclaredSizeMismatch(t *testing.T) {
	store := &memStore{}
	svc := NewService(store, &memBlobStore{})

	payload := []byte("fake mp3 bytes")
	_, err := svc.Upload(context.Background(), 7, UploadRequest{
		FileName:   "demo.mp3",
		MimeType:   "audio/mpeg",
		SizeBytes:  int64(len(payload)) + 100,
		DataBase64: base64.StdEncoding.EncodeToString(payload),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.Empty(t, store.created)

	// A matching declared size goes through
	file, err := svc.Upload(context.Background(), 7, UploadRequest{
		FileName:   "demo.mp3",
		MimeType:   "audio/mpeg",
		SizeBytes:  int64(len(payload)),
		DataBase64: base64.StdEncoding.EncodeToString(payload),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), file.SizeBytes)
}

func TestUploadValidatesDecodedSize(t *testing.T) {
	store := &memStore{}
	svc := NewService(store, &memBlobStore{})

	_, err := svc.Upload(context.Background(), 7, UploadRequest{
		FileName:   "demo.flac",
		MimeType:   "audio/flac",
		DataBase64: base64.StdEncoding.EncodeToString([]byte("x")),
	})
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.Empty(t, store.created)
}

func TestUploadBlobFailureDoesNotRecordMetadata(t *testing.T) {
	store := &memStore{}
	svc := NewService(store, &memBlobStore{err: assert.AnError})

	_, err := svc.Upload(context.Background(), 7, UploadRequest{
		FileName:   "demo.mp3",
		MimeType:   "audio/mpeg",
		DataBase64: base64.StdEncoding.EncodeToString([]byte("bytes")),
	})
	require.Error(t, err)
	assert.Empty(t, store.created)
}
