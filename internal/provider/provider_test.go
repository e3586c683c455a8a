package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/postpilot/postpilot/internal/model"
	"github.com/stretchr/testify/require"
)

func TestMicroBreakerOpensAfterThreshold(t *testing.T) {
	b := NewMicroBreaker(3, 50*time.Millisecond)

	for i := 0; i < 3; i++ {
		require.True(t, b.TryAcquire())
		b.OnFailure()
	}
	require.False(t, b.TryAcquire())
	require.False(t, b.Ready())
}

func TestMicroBreakerHalfOpenProbe(t *testing.T) {
	b := NewMicroBreaker(1, 20*time.Millisecond)

	require.True(t, b.TryAcquire())
	b.OnFailure()
	require.False(t, b.TryAcquire())

	time.Sleep(30 * time.Millisecond)

	// one probe admitted, concurrent calls rejected while it is in flight
	require.True(t, b.TryAcquire())
	require.False(t, b.TryAcquire())

	b.OnSuccess()
	require.True(t, b.TryAcquire())
	require.True(t, b.Ready())
}

func TestMicroBreakerFailedProbeReopens(t *testing.T) {
	b := NewMicroBreaker(1, 20*time.Millisecond)

	require.True(t, b.TryAcquire())
	b.OnFailure()

	time.Sleep(30 * time.Millisecond)
	require.True(t, b.TryAcquire())
	b.OnFailure()

	require.False(t, b.TryAcquire())
}

func TestRegistryLookup(t *testing.T) {
	ig := NewHTTPPublisher("instagram", "http://localhost", "/publish", 0, 0, 0)
	reg := NewRegistry([]Publisher{ig})

	p, err := reg.Lookup("instagram")
	require.NoError(t, err)
	require.Equal(t, "instagram", p.Name())

	_, err = reg.Lookup("tiktok")
	require.Error(t, err)
	require.Contains(t, err.Error(), `"tiktok"`)

	require.ElementsMatch(t, []string{"instagram"}, reg.Names())
}

func TestHTTPPublisherPublish(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/publish", r.URL.Path)
		require.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"external_post_id":"ext-1","external_url":"https://ig/ext-1"}`))
	}))
	defer srv.Close()

	p := NewHTTPPublisher("instagram", srv.URL, "/publish", 1000, 3, 1000)
	res, err := p.Publish(context.Background(), model.PublishRequest{
		Text:        "hello",
		Kind:        model.PublishKindFeed,
		AccessToken: "secret-token",
	})
	require.NoError(t, err)
	require.Equal(t, "ext-1", res.ExternalPostID)
	require.Equal(t, "https://ig/ext-1", res.ExternalURL)
	require.False(t, res.PublishedAt.IsZero())
}

func TestHTTPPublisherNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p := NewHTTPPublisher("instagram", srv.URL, "/publish", 1000, 3, 1000)
	_, err := p.Publish(context.Background(), model.PublishRequest{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "status=502")
}

func TestHTTPPublisherRejectsMissingExternalID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	p := NewHTTPPublisher("instagram", srv.URL, "/publish", 1000, 3, 1000)
	_, err := p.Publish(context.Background(), model.PublishRequest{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing external post id")
}

func TestHTTPPublisherCircuitOpens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewHTTPPublisher("instagram", srv.URL, "/publish", 1000, 2, 60000)
	for i := 0; i < 2; i++ {
		_, err := p.Publish(context.Background(), model.PublishRequest{})
		require.Error(t, err)
	}

	_, err := p.Publish(context.Background(), model.PublishRequest{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "circuit open")
	require.False(t, p.Ready())
}
