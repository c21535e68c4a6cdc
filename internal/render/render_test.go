package render

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrollPositions(t *testing.T) {
	assert.Equal(t, []int{800, 1600, 2000}, ScrollPositions(2000, 800))
	assert.Equal(t, []int{800, 1600}, ScrollPositions(1600, 800))
	assert.Equal(t, []int{300}, ScrollPositions(300, 800))
	assert.Nil(t, ScrollPositions(0, 800))
	assert.Nil(t, ScrollPositions(1000, 0))
}

func TestHTTPLoader(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/wiki/Volume_1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Volume 1 | Wiki</title></head><body><p>x</p></body></html>`))
	})
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/wiki/Volume_1", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	l := NewHTTPLoader(srv.Client())

	page, err := l.Load(context.Background(), srv.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/wiki/Volume_1", page.URL)
	assert.Equal(t, "Volume 1 | Wiki", page.Title)
	assert.Equal(t, 1, page.Doc.Find("p").Length())

	_, err = l.Load(context.Background(), srv.URL+"/gone")
	assert.ErrorContains(t, err, "HTTP 404")
}

func TestHTTPLoaderTitleWinsOverHeading(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><head><title>Volume 1 | Example Wiki | Fandom</title></head>
<body><h1>Other Heading</h1></body></html>`))
	}))
	defer srv.Close()

	page, err := NewHTTPLoader(srv.Client()).Load(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Volume 1 | Example Wiki | Fandom", page.Title)
}

func TestHTTPLoaderSingleAttempt(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPLoader(srv.Client()).Load(context.Background(), srv.URL)
	assert.ErrorContains(t, err, "HTTP 503")
	assert.Equal(t, int32(1), hits.Load())
}
