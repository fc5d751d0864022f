package workload

import (
	"context"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrivialFactors(t *testing.T) {
	tests := []struct {
		n    uint64
		want []uint64
	}{
		{n: 0, want: nil},
		{n: 1, want: nil},
		{n: 2, want: []uint64{2}},
		{n: 12, want: []uint64{2, 2, 3}},
		{n: 97, want: []uint64{97}},
		{n: 11056459 * 11056459, want: []uint64{11056459, 11056459}},
		{n: 25739201 * 86008889, want: []uint64{25739201, 86008889}},
	}

	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, TrivialFactors(tt.n)); diff != "" {
			t.Errorf("TrivialFactors(%d) mismatch (-want +got):\n%s", tt.n, diff)
		}
	}
}

func TestGenerateProducts(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	products := GenerateProducts(r, 20, 2)
	require.Len(t, products, 20)

	isPrime := make(map[uint64]bool, len(Primes))
	for _, p := range Primes {
		isPrime[p] = true
	}

	for _, n := range products {
		factors := TrivialFactors(n)
		require.Len(t, factors, 2, "product %d", n)
		for _, f := range factors {
			assert.True(t, isPrime[f], "factor %d of %d is not from the prime list", f, n)
		}
	}
}

func TestHTTPFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			_, _ = w.Write([]byte("field notice"))
		case "/slow":
			time.Sleep(200 * time.Millisecond)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := NewHTTPFetcher(50 * time.Millisecond)

	t.Run("body", func(t *testing.T) {
		body, err := f.Fetch(context.Background(), srv.URL+"/ok")
		require.NoError(t, err)
		assert.Equal(t, "field notice", string(body))
	})

	t.Run("status error", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), srv.URL+"/missing")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("timeout", func(t *testing.T) {
		_, err := f.Fetch(context.Background(), srv.URL+"/slow")
		assert.Error(t, err)
	})
}

func TestFetcherFunc(t *testing.T) {
	var f Fetcher = FetcherFunc(func(ctx context.Context, url string) ([]byte, error) {
		return []byte(url), nil
	})
	body, err := f.Fetch(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "x", string(body))
}
