package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUpstreamServer(t *testing.T, routes map[string]func(w http.ResponseWriter)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h(w)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func jsonBody(body string) func(w http.ResponseWriter) {
	return func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}
}

func TestClientFetchProductsAcceptsLooseTypes(t *testing.T) {
	srv := newUpstreamServer(t, map[string]func(http.ResponseWriter){
		productsPath: jsonBody(`{"status":"ok","count":3,"products":[
			{"id":101,"name":"Rye bread","price":"350.00","images":"a.jpg","parent_id":7,"sort":"2","availability":"in stock"},
			{"id":"102","name":"Baguette","price":180,"images":["b.jpg",""],"parent_id":"7","sort":1,"availability":"N/A"},
			{"name":"no id"},
			"garbage"
		]}`),
	})

	c := NewClient(srv.URL+"/", time.Second, nil)
	got, err := c.FetchProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, looseString("101"), got[0].ID)
	assert.Equal(t, looseString("350.00"), got[0].Price)
	assert.Equal(t, looseStrings{"a.jpg"}, got[0].Images)
	assert.Equal(t, looseString("7"), got[0].ParentID)
	assert.Equal(t, looseInt(2), got[0].Sort)

	assert.Equal(t, looseString("180"), got[1].Price)
	assert.Equal(t, looseStrings{"b.jpg"}, got[1].Images)
	assert.Equal(t, looseString("N/A"), got[1].Availability)
}

func TestClientFetchCategories(t *testing.T) {
	srv := newUpstreamServer(t, map[string]func(http.ResponseWriter){
		categoriesPath: jsonBody(`{"categories":[{"id":7,"name":"Bread","sort":3},{"id":8,"name":"Cakes","sort":null}]}`),
	})

	got, err := NewClient(srv.URL, time.Second, nil).FetchCategories(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, looseString("Bread"), got[0].Name)
	assert.Equal(t, looseInt(3), got[0].Sort)
	assert.Equal(t, looseInt(0), got[1].Sort)
}

func TestClientErrors(t *testing.T) {
	cases := []struct {
		name string
		h    func(http.ResponseWriter)
		want error
	}{
		{"status 500", func(w http.ResponseWriter) { w.WriteHeader(http.StatusInternalServerError) }, ErrTransport},
		{"not json", jsonBody(`<html>`), ErrMalformed},
		{"field missing", jsonBody(`{"status":"ok"}`), ErrMalformed},
		{"field not a list", jsonBody(`{"products":{"id":1}}`), ErrMalformed},
		{"field null", jsonBody(`{"products":null}`), ErrMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newUpstreamServer(t, map[string]func(http.ResponseWriter){productsPath: tc.h})
			_, err := NewClient(srv.URL, time.Second, nil).FetchProducts(context.Background())
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestClientEmptyListIsNotAnError(t *testing.T) {
	srv := newUpstreamServer(t, map[string]func(http.ResponseWriter){
		productsPath: jsonBody(`{"products":[]}`),
	})
	got, err := NewClient(srv.URL, time.Second, nil).FetchProducts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClientTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	_, err := NewClient(srv.URL, 50*time.Millisecond, nil).FetchCategories(context.Background())
	require.ErrorIs(t, err, ErrTransport)
}
