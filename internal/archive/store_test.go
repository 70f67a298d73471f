package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockS3Client records PutObject/GetObject calls for testing.
type mockS3Client struct {
	putCalls []putCall
	putErr   error
	objects  map[string][]byte // key -> body
}

type putCall struct {
	bucket string
	key    string
	body   []byte
}

func newMockS3() *mockS3Client {
	return &mockS3Client{objects: make(map[string][]byte)}
}

func (m *mockS3Client) PutObject(_ context.Context, input *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	body, _ := io.ReadAll(input.Body)
	m.putCalls = append(m.putCalls, putCall{
		bucket: *input.Bucket,
		key:    *input.Key,
		body:   body,
	})
	m.objects[*input.Key] = body
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	data, ok := m.objects[*input.Key]
	if !ok {
		return nil, &notFoundError{}
	}
	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(data)),
	}, nil
}

type notFoundError struct{}

func (e *notFoundError) Error() string { return "NoSuchKey: key not found" }

func TestStore_Put(t *testing.T) {
	mock := newMockS3()
	store := NewStore(mock, "test-bucket", nil)

	record := []byte(`{"booking_id":"APT-A1B2C3D4","doctor_name":"Dr. Priya Sharma"}`)
	err := store.Put(context.Background(), "bookings/2026/08/APT-A1B2C3D4.json", record)
	require.NoError(t, err)

	// Two PutObject calls: record + manifest
	require.Len(t, mock.putCalls, 2)

	assert.Equal(t, "test-bucket", mock.putCalls[0].bucket)
	assert.Equal(t, "bookings/2026/08/APT-A1B2C3D4.json", mock.putCalls[0].key)
	assert.Equal(t, record, mock.putCalls[0].body)

	assert.Contains(t, mock.putCalls[1].key, "manifests/")
	var entry ManifestEntry
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(mock.putCalls[1].body), &entry))
	assert.Equal(t, "bookings/2026/08/APT-A1B2C3D4.json", entry.Key)
	assert.Equal(t, len(record), entry.SizeBytes)
	assert.NotEmpty(t, entry.ArchivedAt)
}

func TestStore_PutScrubsPII(t *testing.T) {
	mock := newMockS3()
	store := NewStore(mock, "test-bucket", nil)

	record := []byte(`{"symptoms":"rash, reach me at jane@example.com"}`)
	err := store.Put(context.Background(), "bookings/2026/08/APT-1.json", record)
	require.NoError(t, err)

	require.NotEmpty(t, mock.putCalls)
	assert.NotContains(t, string(mock.putCalls[0].body), "jane@example.com")
	assert.Contains(t, string(mock.putCalls[0].body), "[EMAIL]")
}

func TestStore_PutError(t *testing.T) {
	mock := newMockS3()
	mock.putErr = errors.New("access denied")
	store := NewStore(mock, "test-bucket", nil)

	err := store.Put(context.Background(), "bookings/2026/08/APT-1.json", []byte(`{}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3 put")
}

func TestStore_Disabled(t *testing.T) {
	store := NewStore(nil, "", nil)
	assert.False(t, store.Enabled())

	err := store.Put(context.Background(), "bookings/x.json", []byte(`{}`))
	assert.NoError(t, err) // no-op, no error
}

func TestStore_ManifestAppend(t *testing.T) {
	mock := newMockS3()
	store := NewStore(mock, "test-bucket", nil)

	entry1 := ManifestEntry{Key: "bookings/2026/08/APT-1.json", SizeBytes: 10}
	entry2 := ManifestEntry{Key: "bookings/2026/08/APT-2.json", SizeBytes: 20}

	require.NoError(t, store.AppendManifest(context.Background(), entry1))
	require.NoError(t, store.AppendManifest(context.Background(), entry2))

	// The second append should contain both entries
	lastPut := mock.putCalls[len(mock.putCalls)-1]
	lines := bytes.Split(bytes.TrimSpace(lastPut.body), []byte("\n"))
	require.Len(t, lines, 2)

	var first, second ManifestEntry
	require.NoError(t, json.Unmarshal(lines[0], &first))
	require.NoError(t, json.Unmarshal(lines[1], &second))
	assert.Equal(t, "bookings/2026/08/APT-1.json", first.Key)
	assert.Equal(t, "bookings/2026/08/APT-2.json", second.Key)
}
