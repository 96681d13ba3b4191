package report

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/vigil/am"
	"github.com/teranos/vigil/errors"
	"github.com/teranos/vigil/runner"
)

func TestNewS3Sink_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  am.S3Config
	}{
		{"missing endpoint", am.S3Config{Bucket: "reports"}},
		{"scheme in endpoint", am.S3Config{Endpoint: "http://localhost:9000", Bucket: "reports"}},
		{"missing bucket", am.S3Config{Endpoint: "localhost:9000"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewS3Sink(tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.IsConfigError(err))
		})
	}
}

func TestS3Sink_ObjectKey(t *testing.T) {
	sink, err := NewS3Sink(am.S3Config{Endpoint: "localhost:9000", Bucket: "reports", Prefix: "/vigil/runs/", Region: "us-east-1"})
	require.NoError(t, err)

	run := sampleRun()
	assert.Equal(t, "vigil/runs/2026/03/01/7d7f3c2e-5a8b-4f0e-9b7a-2f1c3d4e5f60.json", sink.ObjectKey(run))

	anonymous := &runner.Run{StartedAt: run.StartedAt}
	key := sink.ObjectKey(anonymous)
	assert.True(t, strings.HasPrefix(key, "vigil/runs/2026/03/01/"))
	assert.Len(t, strings.TrimSuffix(strings.TrimPrefix(key, "vigil/runs/2026/03/01/"), ".json"), 36)
}

func TestS3Sink_Upload(t *testing.T) {
	var (
		mu     sync.Mutex
		method string
		path   string
		body   string
	)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		mu.Lock()
		method, path, body = r.Method, r.URL.Path, string(data)
		mu.Unlock()
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sink, err := NewS3Sink(am.S3Config{
		Endpoint:  strings.TrimPrefix(server.URL, "http://"),
		Bucket:    "reports",
		Prefix:    "vigil",
		Region:    "us-east-1",
		AccessKey: "test",
		SecretKey: "testsecret",
	})
	require.NoError(t, err)

	key, err := sink.Upload(context.Background(), sampleRun())
	require.NoError(t, err)
	assert.Equal(t, "vigil/2026/03/01/7d7f3c2e-5a8b-4f0e-9b7a-2f1c3d4e5f60.json", key)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/reports/"+key, path)
	assert.Contains(t, body, `"purchase_drop"`)
}

func TestS3Sink_UploadError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>Access Denied</Message></Error>`)
	}))
	defer server.Close()

	sink, err := NewS3Sink(am.S3Config{
		Endpoint: strings.TrimPrefix(server.URL, "http://"),
		Bucket:   "reports",
		Region:   "us-east-1",
	})
	require.NoError(t, err)

	_, err = sink.Upload(context.Background(), sampleRun())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reports/")
}
