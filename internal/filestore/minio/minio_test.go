package minio

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/dreamspace/internal/domain"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *Store {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	require.NoError(t, err)

	store, err := New(u.Host, "minio", "minio123", "dreamspace", false)
	require.NoError(t, err)
	return store
}

func TestMinIOOpenMissing(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>missing</Message><Key>nope.png</Key><BucketName>dreamspace</BucketName></Error>`))
	})

	_, _, err := store.Open(context.Background(), "nope.png")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMinIOPutReportsFailure(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?><Error><Code>AccessDenied</Code><Message>denied</Message></Error>`))
	})

	data := []byte("png")
	_, err := store.Put(context.Background(), "generated_1.png", bytes.NewReader(data), int64(len(data)), "image/png")
	assert.Error(t, err)
}
