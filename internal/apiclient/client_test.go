package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"dxt-admin/internal/domain"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubTokens struct {
	mu     sync.Mutex
	token  string
	err    error
	forced []bool
}

func (s *stubTokens) IDToken(ctx context.Context, forceRefresh bool) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.forced = append(s.forced, forceRefresh)
	return s.token, s.err
}

type recordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNavigator) Navigate(ctx context.Context, path string) {
	n.mu.Lock()
	n.paths = append(n.paths, path)
	n.mu.Unlock()
}

func (n *recordingNavigator) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.paths)
}

func TestClient_AttachesForcedFreshToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"totalStores":1,"totalProducts":2,"totalOrders":3,"imagesProcessed":4}`))
	}))
	defer srv.Close()

	tokens := &stubTokens{token: "fresh-token"}
	c := New(srv.URL, time.Second, zap.NewNop()).WithTokenSource(tokens)

	var out domain.AnalyticsOverview
	require.NoError(t, c.Get(context.Background(), "/admin/analytics/overview", nil, &out))

	assert.Equal(t, "Bearer fresh-token", gotAuth)
	assert.Equal(t, []bool{true}, tokens.forced)
	assert.Equal(t, 4, out.ImagesProcessed)
}

func TestClient_NoUserProceedsUnauthenticated(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, zap.NewNop()).WithTokenSource(&stubTokens{err: ErrNoUser})
	require.NoError(t, c.Get(context.Background(), "/admin/stores", nil, nil))
	assert.Empty(t, gotAuth)
}

func TestClient_DefaultHeaderUsedWhenRefreshFails(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	base := New(srv.URL, time.Second, zap.NewNop())
	c := base.WithTokenSource(&stubTokens{err: errors.New("provider down")})
	c.SetDefaultAuthorization("login-token")

	require.NoError(t, c.Get(context.Background(), "/admin/stores", nil, nil))
	assert.Equal(t, "Bearer login-token", gotAuth)
	assert.Empty(t, base.DefaultAuthorization(), "bound copies keep their own default header")

	c.ClearDefaultAuthorization()
	assert.Empty(t, c.DefaultAuthorization())
}

func TestClient_ErrorMessageFromBody(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"message field", `{"message":"Store not found"}`, "Store not found"},
		{"error field", `{"error":"bad page"}`, "bad page"},
		{"no message", `{}`, "fallback"},
		{"not json", `oops`, "fallback"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			c := New(srv.URL, time.Second, zap.NewNop())
			err := c.PutJSON(context.Background(), "/admin/stores/s1", map[string]string{"storeName": "x"}, nil)
			require.Error(t, err)

			apiErr, ok := AsAPIError(err)
			require.True(t, ok)
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			assert.Equal(t, tt.expected, MessageOr(err, "fallback"))
		})
	}
}

func TestClient_TransportFailureUsesFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url, time.Second, zap.NewNop())
	err := c.Get(context.Background(), "/admin/stores", nil, nil)
	require.Error(t, err)
	assert.Equal(t, "Failed to load", MessageOr(err, "Failed to load"))
}

func TestClient_InvalidPayloadIsTagged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"stores":[{"storeName":"no id"}],"total":1,"page":1,"limit":20}`))
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, zap.NewNop())
	var out domain.StoreList
	err := c.Get(context.Background(), "/admin/stores", nil, &out)
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestDecode(t *testing.T) {
	overview, err := Decode[domain.AnalyticsOverview]([]byte(`{"totalStores":3}`))
	require.NoError(t, err)
	assert.Equal(t, 3, overview.TotalStores)

	_, err = Decode[domain.AnalyticsOverview]([]byte(`{"totalStores":-1}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)

	_, err = Decode[domain.AnalyticsOverview]([]byte(`[`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestClient_PostMultipartSendsFileAndFields(t *testing.T) {
	var (
		fileName string
		content  string
		fields   = map[string]string{}
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		data, _ := io.ReadAll(f)
		fileName, content = hdr.Filename, string(data)
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "totalRows": 1})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, zap.NewNop(), WithUploadTimeout(time.Minute))
	var out domain.CsvPreview
	err := c.PostMultipart(context.Background(), "/admin/products/csv/preview", Multipart{
		FileField:   "file",
		FileName:    "products.csv",
		ContentType: "text/csv",
		File:        []byte("Product Name,Price\nShirt,10\n"),
		Fields:      []Field{{Name: "sellerId", Value: "S1"}},
	}, &out)
	require.NoError(t, err)

	assert.Equal(t, "products.csv", fileName)
	assert.Contains(t, content, "Shirt,10")
	assert.Equal(t, "S1", fields["sellerId"])
	assert.Equal(t, 1, out.TotalRows)
}

// A 401 sends the admin to the login screen unless the call was the login
// call itself or the login screen is already showing.
func TestProperty_UnauthorizedRedirectsExceptOnLogin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"token expired"}`))
	}))
	defer srv.Close()

	properties := gopter.NewProperties(nil)

	properties.Property("redirect happens exactly when neither the call nor the view is login", prop.ForAll(
		func(view string, path string) bool {
			nav := &recordingNavigator{}
			c := New(srv.URL, time.Second, zap.NewNop(), WithNavigator(nav))

			ctx := WithView(context.Background(), view)
			err := c.Get(ctx, path, nil, nil)
			if !IsUnauthorized(err) {
				return false
			}

			expectRedirect := !strings.Contains(path, "/admin/login") && view != LoginPath
			if expectRedirect {
				return nav.count() == 1 && nav.paths[0] == LoginPath
			}
			return nav.count() == 0
		},
		gen.OneConstOf("/dashboard/stores", "/login", "/dashboard", "/dashboard/stores/s1"),
		gen.OneConstOf("/admin/stores", "/admin/login", "/admin/stores/s1/analytics", "/admin/analytics/overview"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestClient_UnauthorizedOnStoreListRecordsNavigation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, zap.NewNop())

	ctx := WithView(context.Background(), "/dashboard/stores")
	err := c.Get(ctx, "/admin/stores", nil, nil)
	require.True(t, IsUnauthorized(err), "the error is still returned after navigating")

	target, ok := NavigationTarget(ctx)
	assert.True(t, ok)
	assert.Equal(t, LoginPath, target)

	loginCtx := WithView(context.Background(), LoginPath)
	err = c.PostJSON(loginCtx, "/admin/login", domain.LoginRequest{Email: "a@b.c"}, nil)
	require.True(t, IsUnauthorized(err))
	_, ok = NavigationTarget(loginCtx)
	assert.False(t, ok)
}
