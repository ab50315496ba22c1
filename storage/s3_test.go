package storage

import (
	"context"
	"encoding/xml"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ruteri/record-store/interfaces"
)

// fakeS3 serves path-style S3 object requests for a single bucket.
type fakeS3 struct {
	mu      sync.Mutex
	bucket  string
	objects map[string][]byte
}

type s3ListResult struct {
	XMLName     xml.Name   `xml:"ListBucketResult"`
	Name        string     `xml:"Name"`
	Prefix      string     `xml:"Prefix"`
	KeyCount    int        `xml:"KeyCount"`
	IsTruncated bool       `xml:"IsTruncated"`
	Contents    []s3Object `xml:"Contents"`
}

type s3Object struct {
	Key  string `xml:"Key"`
	Size int    `xml:"Size"`
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rest, ok := strings.CutPrefix(r.URL.Path, "/"+f.bucket)
	if !ok {
		writeS3Error(w, http.StatusNotFound, "NoSuchBucket")
		return
	}
	key := strings.TrimPrefix(rest, "/")

	switch {
	case key == "" && r.Method == http.MethodGet && r.URL.Query().Get("list-type") == "2":
		prefix := r.URL.Query().Get("prefix")
		result := s3ListResult{Name: f.bucket, Prefix: prefix}
		for k, v := range f.objects {
			if strings.HasPrefix(k, prefix) {
				result.Contents = append(result.Contents, s3Object{Key: k, Size: len(v)})
			}
		}
		sort.Slice(result.Contents, func(i, j int) bool { return result.Contents[i].Key < result.Contents[j].Key })
		result.KeyCount = len(result.Contents)
		w.Header().Set("Content-Type", "application/xml")
		_ = xml.NewEncoder(w).Encode(result)

	case r.Method == http.MethodHead:
		if _, ok := f.objects[key]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodGet:
		data, ok := f.objects[key]
		if !ok {
			writeS3Error(w, http.StatusNotFound, "NoSuchKey")
			return
		}
		_, _ = w.Write(data)

	case r.Method == http.MethodPut:
		data, err := io.ReadAll(r.Body)
		if err != nil {
			writeS3Error(w, http.StatusBadRequest, "IncompleteBody")
			return
		}
		f.objects[key] = data
		w.WriteHeader(http.StatusOK)

	case r.Method == http.MethodDelete:
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)

	default:
		writeS3Error(w, http.StatusMethodNotAllowed, "MethodNotAllowed")
	}
}

func writeS3Error(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, "<Error><Code>"+code+"</Code><Message>"+code+"</Message></Error>")
}

func newFakeS3Backend(t *testing.T, prefix string) (*fakeS3, *S3Backend) {
	t.Helper()

	fake := &fakeS3{bucket: "records", objects: map[string][]byte{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	backend, err := NewS3Backend(S3Config{
		Bucket:    "records",
		Prefix:    prefix,
		Region:    "us-east-1",
		Endpoint:  srv.URL,
		AccessKey: "test",
		SecretKey: "test",
		PathStyle: true,
	}, testLogger())
	require.NoError(t, err)
	return fake, backend
}

func TestS3Backend(t *testing.T) {
	_, backend := newFakeS3Backend(t, "")
	runBackendContract(t, backend)
}

func TestS3Backend_Prefix(t *testing.T) {
	fake, backend := newFakeS3Backend(t, "/team/")
	ctx := context.Background()

	runBackendContract(t, backend)

	fake.mu.Lock()
	_, stored := fake.objects["team/beta.json"]
	fake.objects["team/nested/gamma.json"] = []byte("{}")
	fake.objects["other/delta.json"] = []byte("{}")
	fake.mu.Unlock()
	assert.True(t, stored)

	keys, err := backend.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []interfaces.StorageKey{"beta.json"}, keys)
}

func TestS3Backend_Unavailable(t *testing.T) {
	_, backend := newFakeS3Backend(t, "")
	backend.bucketName = "missing"
	ctx := context.Background()

	// A missing bucket is a 404 on HEAD as well, so only Read and List can tell.
	_, err := backend.List(ctx)
	require.Error(t, err)
	assert.NotErrorIs(t, err, interfaces.ErrRecordNotFound)

	err = backend.Write(ctx, "alpha.json", []byte("a"))
	require.Error(t, err)
}
