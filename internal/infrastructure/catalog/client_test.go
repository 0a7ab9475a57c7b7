package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/traditionalchinese"

	"github.com/pricelens/backend/internal/domain"
)

func newTestClient() *Client {
	client := NewClient(ClientOptions{RequestsPerSecond: 1000, Burst: 100})
	client.backoff = func(int) time.Duration { return time.Millisecond }
	return client
}

func TestNewClient(t *testing.T) {
	client := NewClient(ClientOptions{})

	assert.NotNil(t, client.http)
	assert.NotNil(t, client.rateLimiter)
	assert.Equal(t, 3, client.maxAttempts)
	assert.Equal(t, 30*time.Second, client.http.GetClient().Timeout)
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, 1000 * time.Millisecond},
		{3, 2000 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run("", func(t *testing.T) {
			assert.Equal(t, tt.expected, exponentialBackoff(tt.attempt))
		})
	}
}

func TestClientGet_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/prod/search", r.URL.Path)
		assert.Equal(t, "T700 2TB", r.URL.Query().Get("q"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		w.Write([]byte("<html>ok</html>"))
	}))
	defer server.Close()

	body, err := newTestClient().Get(context.Background(), server.URL+"/prod/search", map[string]string{"q": "T700 2TB"}, "")

	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", string(body))
}

func TestClientGet_ServerError_Retries(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	body, err := newTestClient().Get(context.Background(), server.URL, nil, "")

	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestClientGet_TooManyRequests_Retries(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	_, err := newTestClient().Get(context.Background(), server.URL, nil, "")

	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestClientGet_ClientError_NoRetry(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	body, err := newTestClient().Get(context.Background(), server.URL, nil, "")

	assert.Nil(t, body)
	assert.ErrorIs(t, err, domain.ErrCatalogFetch)
	assert.Equal(t, int32(1), atomic.LoadInt32(&attempts))
}

func TestClientGet_AllRetriesFail(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := newTestClient().Get(context.Background(), server.URL, nil, "")

	assert.ErrorIs(t, err, domain.ErrCatalogFetch)
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestClientGet_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	body, err := newTestClient().Get(ctx, server.URL, nil, "")

	assert.Nil(t, body)
	assert.Error(t, err)
}

func TestDecodeBody(t *testing.T) {
	big5, err := traditionalchinese.Big5.NewEncoder().String("全漢 TITAN GOLD 1000W 金牌 $5990")
	require.NoError(t, err)

	decoded, err := decodeBody([]byte(big5), "Big5")
	require.NoError(t, err)
	assert.Equal(t, "全漢 TITAN GOLD 1000W 金牌 $5990", string(decoded))

	plain, err := decodeBody([]byte("abc"), "")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(plain))

	_, err = decodeBody([]byte("abc"), "shift_jis")
	assert.Error(t, err)
}

const quotePage = `<html><body>
<select name="n4">
  <option value="">請選擇</option>
  <option disabled>熱銷推薦</option>
  <option value="1">Intel Core Ultra 7 265KF【20核/20緒】 $12990</option>
  <option value="2">Intel Core Ultra 5 245K $7990</option>
</select>
<select name="n8">
  <option value="3">全漢 TITAN GOLD 1000W 金牌 缺貨</option>
</select>
</body></html>`

func TestOptionListSource_Fetch(t *testing.T) {
	big5Page, err := traditionalchinese.Big5.NewEncoder().String(quotePage)
	require.NoError(t, err)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=big5")
		w.Write([]byte(big5Page))
	}))
	defer server.Close()

	source := NewOptionListSource("Coolpc", server.URL, "big5", "", newTestClient())
	assert.Equal(t, "Coolpc", source.Vendor())

	entries, err := source.Fetch(context.Background(), nil)
	require.NoError(t, err)

	want := []domain.CatalogEntry{
		{Text: "請選擇", Ordinal: 0},
		{Text: "Intel Core Ultra 7 265KF【20核/20緒】 $12990", Ordinal: 1},
		{Text: "Intel Core Ultra 5 245K $7990", Ordinal: 2},
		{Text: "全漢 TITAN GOLD 1000W 金牌 缺貨", Ordinal: 3},
	}
	assert.Equal(t, want, entries)
}

func TestOptionListSource_FetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := NewOptionListSource("Coolpc", server.URL, "", "", newTestClient()).Fetch(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrCatalogFetch)
}

func TestSearchSource_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("q") {
		case "Core Ultra 7 265KF":
			w.Write([]byte(`<div class="prod"><div class="prod_name"> Intel Core Ultra 7 265KF </div><span class="prod_price">NT$12,790</span></div>
				<div class="prod"><div class="prod_name">Intel Core Ultra 7 265K</div><span class="prod_price">$13,490</span></div>`))
		case "T700 2TB":
			w.Write([]byte(`<div class="prod_name">Crucial T700 2TB</div><span class="price">洽詢</span>`))
		case "broken":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.Write([]byte(`<p>查無商品</p>`))
		}
	}))
	defer server.Close()

	source := NewSearchSource("Sinya", server.URL, "", SearchSelectors{}, newTestClient())
	targets := []domain.TargetDescriptor{
		{Name: "CPU", Keyword: "Core Ultra 7 265KF"},
		{Name: "SSD", Keyword: "T700 2TB"},
		{Name: "OS", Keyword: "Windows 11 Pro"},
		{Name: "X", Keyword: "broken"},
	}

	entries, err := source.Fetch(context.Background(), targets)
	require.NoError(t, err)

	want := []domain.CatalogEntry{
		{Text: "Intel Core Ultra 7 265KF $12,790", Ordinal: 0},
		{Text: "Crucial T700 2TB 洽詢", Ordinal: 1},
	}
	assert.Equal(t, want, entries)
}

func TestSearchSource_EverySearchFails(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	source := NewSearchSource("Sinya", server.URL, "", SearchSelectors{}, newTestClient())
	_, err := source.Fetch(context.Background(), []domain.TargetDescriptor{{Name: "CPU", Keyword: "x"}})
	assert.ErrorIs(t, err, domain.ErrCatalogFetch)
}

func TestFileSource_Fetch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "coolpc.txt")
	require.NoError(t, os.WriteFile(path, []byte("Core Ultra 7 265KF $12990\n\n  T700   2TB $6990  \n"), 0o644))

	source := NewFileSource("Coolpc", path)
	entries, err := source.Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, []domain.CatalogEntry{
		{Text: "Core Ultra 7 265KF $12990", Ordinal: 0},
		{Text: "T700 2TB $6990", Ordinal: 1},
	}, entries)

	_, err = NewFileSource("Coolpc", filepath.Join(t.TempDir(), "missing.txt")).Fetch(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrCatalogFetch)
}
