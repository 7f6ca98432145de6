package canonical

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Canonicalize(t *testing.T) {
	var gotReq canonicalizeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/canonicalize", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))

		json.NewEncoder(w).Encode(Result{
			CanonicalName: "Chateau Margaux",
			Producer:      "Chateau Margaux SA",
			Region:        "Margaux",
			MatchScore:    0.92,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, testLogger())
	vintage := 2015

	result, err := client.Canonicalize(context.Background(), "ch. margaux 2015", &vintage)
	require.NoError(t, err)
	require.NotNil(t, result)

	assert.Equal(t, "ch. margaux 2015", gotReq.Name)
	assert.Equal(t, 2015, *gotReq.Vintage)
	assert.Equal(t, "Chateau Margaux", result.CanonicalName)
	assert.Equal(t, 0.92, result.MatchScore)
}

func TestClient_NoMatch(t *testing.T) {
	t.Run("404 means no match", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer srv.Close()

		client := NewClient(srv.URL, time.Second, testLogger())
		result, err := client.Canonicalize(context.Background(), "unknown wine", nil)
		require.NoError(t, err)
		assert.Nil(t, result)
	})

	t.Run("empty canonical name means no match", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(Result{})
		}))
		defer srv.Close()

		client := NewClient(srv.URL, time.Second, testLogger())
		result, err := client.Canonicalize(context.Background(), "unknown wine", nil)
		require.NoError(t, err)
		assert.Nil(t, result)
	})
}

func TestClient_Errors(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()

		client := NewClient(srv.URL, time.Second, testLogger())
		_, err := client.Canonicalize(context.Background(), "chateau margaux", nil)
		require.Error(t, err)
	})

	t.Run("malformed body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer srv.Close()

		client := NewClient(srv.URL, time.Second, testLogger())
		_, err := client.Canonicalize(context.Background(), "chateau margaux", nil)
		require.Error(t, err)
	})
}
