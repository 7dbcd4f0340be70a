package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchLatestSendsCredentials(t *testing.T) {
	var gotPath string
	var gotUser, gotPass string
	var gotAuth bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotUser, gotPass, gotAuth = r.BasicAuth()
		w.Header().Set("Content-Disposition", `attachment; filename="monday.csv"`)
		w.Write([]byte("first name,last name,email\n"))
	}))
	defer server.Close()

	client := NewHTTPFileSourceClient(server.URL, time.Second)
	creds := RemoteCredentials{Username: "drop-user", Password: "drop-pass"}

	filename, data, err := client.FetchLatest(context.Background(), creds, "drops/acme")
	require.NoError(t, err)

	assert.Equal(t, "/drops%2Facme/latest", gotPath)
	assert.True(t, gotAuth)
	assert.Equal(t, "drop-user", gotUser)
	assert.Equal(t, "drop-pass", gotPass)
	assert.Equal(t, "monday.csv", filename)
	assert.NotEmpty(t, data)
}

func TestFetchLatestCredentialHostOverride(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("data"))
	}))
	defer server.Close()

	client := NewHTTPFileSourceClient("http://unreachable.invalid", time.Second)
	creds := RemoteCredentials{Host: server.URL}

	_, data, err := client.FetchLatest(context.Background(), creds, "drops/acme")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)
}

func TestFetchLatestNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewHTTPFileSourceClient(server.URL, time.Second)

	_, _, err := client.FetchLatest(context.Background(), RemoteCredentials{}, "drops/acme")
	assert.True(t, errors.Is(err, ErrNoSourceFile))
}

func TestFetchLatestEmptyFileIsNotMissing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewHTTPFileSourceClient(server.URL, time.Second)

	// An empty 200 response is a successful fetch of an empty file, not a
	// missing one; the normalizer reports empty input downstream.
	filename, data, err := client.FetchLatest(context.Background(), RemoteCredentials{}, "drops/acme")
	require.NoError(t, err)
	assert.NotErrorIs(t, err, ErrNoSourceFile)
	assert.Empty(t, data)
	assert.Equal(t, "contacts.csv", filename)
}

func TestFetchLatestServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewHTTPFileSourceClient(server.URL, time.Second)

	_, _, err := client.FetchLatest(context.Background(), RemoteCredentials{}, "drops/acme")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSourceFile)
	assert.Contains(t, err.Error(), "502")
}
