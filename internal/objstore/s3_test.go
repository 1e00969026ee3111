package objstore

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEndpoint(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		endpoint   string
		useSSL     bool
		wantHost   string
		wantSecure bool
		errSubstr  string
	}{
		{name: "empty uses aws", endpoint: "", wantHost: "s3.amazonaws.com", wantSecure: true},
		{name: "bare host keeps flag", endpoint: "minio.local:9000", useSSL: false, wantHost: "minio.local:9000"},
		{name: "bare host ssl", endpoint: "minio.local:9000", useSSL: true, wantHost: "minio.local:9000", wantSecure: true},
		{name: "https scheme wins", endpoint: "https://s3.example.com", useSSL: false, wantHost: "s3.example.com", wantSecure: true},
		{name: "http scheme wins", endpoint: "http://127.0.0.1:9000/", useSSL: true, wantHost: "127.0.0.1:9000"},
		{name: "bad scheme", endpoint: "s3://bucket", errSubstr: "http:// or https://"},
		{name: "path rejected", endpoint: "https://s3.example.com/bucket", errSubstr: "path"},
		{name: "missing host", endpoint: "https://", errSubstr: "missing host"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			host, secure, err := normalizeEndpoint(tt.endpoint, tt.useSSL)
			if tt.errSubstr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errSubstr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantSecure, secure)
		})
	}
}

func TestNewS3Store_MissingCredentials(t *testing.T) {
	t.Parallel()

	_, err := NewS3Store(S3Config{Endpoint: "s3.amazonaws.com", UseSSL: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "access key and secret key")
}

func TestNewS3Store_WithCredentials(t *testing.T) {
	t.Parallel()

	s, err := NewS3Store(S3Config{
		Endpoint:  "http://127.0.0.1:9000",
		AccessKey: "minio",
		SecretKey: "minio123",
	})
	require.NoError(t, err)
	assert.Equal(t, "s3", s.Provider())
}

// fakeS3 answers the subset of the S3 REST API the store uses: path-style
// ListObjectsV2, HEAD and GET of an object.
type fakeS3 struct {
	bucket  string
	objects map[string]string
	// listStatus, when set, fails every listing with that status.
	listStatus int
}

var fakeModTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeListResult struct {
	XMLName     xml.Name        `xml:"ListBucketResult"`
	Name        string          `xml:"Name"`
	Prefix      string          `xml:"Prefix"`
	KeyCount    int             `xml:"KeyCount"`
	MaxKeys     int             `xml:"MaxKeys"`
	IsTruncated bool            `xml:"IsTruncated"`
	Contents    []fakeListEntry `xml:"Contents"`
}

type fakeListEntry struct {
	Key          string `xml:"Key"`
	LastModified string `xml:"LastModified"`
	ETag         string `xml:"ETag"`
	Size         int    `xml:"Size"`
	StorageClass string `xml:"StorageClass"`
}

func writeS3Error(w http.ResponseWriter, status int, code, resource string) {
	w.Header().Set("Content-Type", "application/xml")
	w.WriteHeader(status)
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>%s</Code><Message>%s</Message><Resource>%s</Resource><RequestId>fake</RequestId></Error>`,
		code, code, resource)
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	if bucket != f.bucket {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeS3Error(w, http.StatusNotFound, "NoSuchBucket", r.URL.Path)
		return
	}

	if key == "" && r.Method == http.MethodGet && r.URL.Query().Get("list-type") == "2" {
		if f.listStatus != 0 {
			writeS3Error(w, f.listStatus, "AccessDenied", r.URL.Path)
			return
		}
		prefix := r.URL.Query().Get("prefix")
		keys := make([]string, 0, len(f.objects))
		for k := range f.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)

		res := fakeListResult{Name: bucket, Prefix: prefix, KeyCount: len(keys), MaxKeys: 1000}
		for _, k := range keys {
			res.Contents = append(res.Contents, fakeListEntry{
				Key:          k,
				LastModified: fakeModTime.Format("2006-01-02T15:04:05.000Z"),
				ETag:         `"etag-` + k + `"`,
				Size:         len(f.objects[k]),
				StorageClass: "STANDARD",
			})
		}
		w.Header().Set("Content-Type", "application/xml")
		_, _ = io.WriteString(w, xml.Header)
		_ = xml.NewEncoder(w).Encode(res)
		return
	}

	body, ok := f.objects[key]
	if !ok {
		// HEAD responses carry no body; the client derives NoSuchKey from the status.
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		writeS3Error(w, http.StatusNotFound, "NoSuchKey", r.URL.Path)
		return
	}
	w.Header().Set("Last-Modified", fakeModTime.Format(http.TimeFormat))
	w.Header().Set("ETag", `"etag-`+key+`"`)
	w.Header().Set("Content-Type", "text/plain")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodGet {
		_, _ = io.WriteString(w, body)
	}
}

func newFakeS3Store(t *testing.T, fake *fakeS3) *S3Store {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	s, err := NewS3Store(S3Config{
		Endpoint:  srv.URL,
		Region:    "us-east-1",
		AccessKey: "minio",
		SecretKey: "minio123",
	})
	require.NoError(t, err)
	return s
}

func TestS3Store_ListAndGet(t *testing.T) {
	t.Parallel()

	s := newFakeS3Store(t, &fakeS3{
		bucket: "audit-logs",
		objects: map[string]string{
			"acct/store/space/2024-03-01-10": "h\nc\n",
			"acct/store/space/2024-03-01-02": "h\nb\n",
			"acct/store/space/2024-03-01-01": "h\na\n",
			"acct/store/other/2024-03-01-01": "h\nx\n",
		},
	})
	ctx := context.Background()

	keys, err := s.ListObjects(ctx, "audit-logs", "acct/store/space/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"acct/store/space/2024-03-01-01",
		"acct/store/space/2024-03-01-02",
		"acct/store/space/2024-03-01-10",
	}, keys)

	empty, err := s.ListObjects(ctx, "audit-logs", "acct/none/")
	require.NoError(t, err)
	assert.Empty(t, empty)

	rc, err := s.GetObject(ctx, "audit-logs", "acct/store/space/2024-03-01-02")
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "h\nb\n", string(body))
}

func TestS3Store_MissingKeyIsNotFound(t *testing.T) {
	t.Parallel()

	s := newFakeS3Store(t, &fakeS3{bucket: "audit-logs", objects: map[string]string{}})

	rc, err := s.GetObject(context.Background(), "audit-logs", "acct/store/space/gone")
	require.Error(t, err)
	assert.Nil(t, rc)
	assert.ErrorIs(t, err, ErrNotFound)

	// the client error stays reachable behind ErrNotFound
	var resp minio.ErrorResponse
	require.True(t, errors.As(err, &resp))
	assert.Equal(t, "NoSuchKey", resp.Code)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestS3Store_ListErrors(t *testing.T) {
	t.Parallel()

	t.Run("access denied", func(t *testing.T) {
		t.Parallel()
		s := newFakeS3Store(t, &fakeS3{bucket: "audit-logs", listStatus: http.StatusForbidden})

		keys, err := s.ListObjects(context.Background(), "audit-logs", "acct/store/space/")
		require.Error(t, err)
		assert.Nil(t, keys)
		assert.NotErrorIs(t, err, ErrNotFound)
		var resp minio.ErrorResponse
		require.True(t, errors.As(err, &resp))
		assert.Equal(t, "AccessDenied", resp.Code)
	})

	t.Run("missing bucket", func(t *testing.T) {
		t.Parallel()
		s := newFakeS3Store(t, &fakeS3{bucket: "audit-logs"})

		_, err := s.ListObjects(context.Background(), "no-such-bucket", "acct/store/space/")
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
