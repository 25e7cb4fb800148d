package transport_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/motohub/go-motohub-client/internal/apierrors"
	"github.com/motohub/go-motohub-client/store"
	"github.com/motohub/go-motohub-client/store/storefakes"
	"github.com/motohub/go-motohub-client/transport"
	"github.com/stretchr/testify/require"
)

const (
	testRefreshToken = "R1"
	testUserJSON     = `{"id":1,"name":"Jane Rider","email":"jane@example.com","mobile":"5550001111","role":"customer"}`
)

// mintAccessToken produces a realistic JWT so fixtures look like what the
// backend actually issues. The client itself never parses it.
func mintAccessToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test-signing-key"))
	require.NoError(t, err)
	return signed
}

func seededStore(t *testing.T, accessToken string) (*store.Store, *storefakes.FakeKV) {
	t.Helper()
	kv := storefakes.NewFakeKV()
	s := store.New(kv)
	require.NoError(t, s.Save(store.Record{
		AccessToken:  accessToken,
		RefreshToken: testRefreshToken,
		UserJSON:     []byte(testUserJSON),
	}))
	return s, kv
}

func TestClient_TokenAttachment(t *testing.T) {
	t.Run("token present in store is attached exactly", func(t *testing.T) {
		accessToken := mintAccessToken(t, "1")
		s, _ := seededStore(t, accessToken)

		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		client := transport.New(server.URL, s)
		require.NoError(t, client.Get(context.Background(), "/inventory/vehicles/", nil, nil))
		require.Equal(t, "Bearer "+accessToken, gotAuth)
	})

	t.Run("no token means no Authorization header", func(t *testing.T) {
		s := store.New(storefakes.NewFakeKV())

		var hadAuth bool
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, hadAuth = r.Header["Authorization"]
			w.Write([]byte(`{}`))
		}))
		defer server.Close()

		client := transport.New(server.URL, s)
		require.NoError(t, client.Get(context.Background(), "/inventory/vehicles/", nil, nil))
		require.False(t, hadAuth)
	})
}

// The literal refresh scenario: A1 is rejected, R1 mints A2, the original
// request is replayed once with A2, and R1 is retained because the server
// did not rotate it.
func TestClient_RefreshAndReplay(t *testing.T) {
	s, _ := seededStore(t, "A1")

	var protectedCalls, refreshCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/sales/sales/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&protectedCalls, 1)
		if r.Header.Get("Authorization") != "Bearer A2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{"count":0,"results":[]}`))
	})
	mux.HandleFunc(transport.RefreshPath, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		require.Empty(t, r.Header.Get("Authorization")) // refresh call is unauthenticated

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, testRefreshToken, body["refresh"])
		w.Write([]byte(`{"access":"A2"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := transport.New(server.URL, s)
	require.NoError(t, client.Get(context.Background(), "/sales/sales/", nil, nil))

	require.EqualValues(t, 2, protectedCalls)
	require.EqualValues(t, 1, refreshCalls)
	require.Equal(t, "A2", s.AccessToken())
	require.Equal(t, testRefreshToken, s.RefreshToken())
}

func TestClient_RotatedRefreshTokenIsPersisted(t *testing.T) {
	s, _ := seededStore(t, "A1")

	mux := http.NewServeMux()
	mux.HandleFunc("/sales/sales/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer A2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc(transport.RefreshPath, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"access":"A2","refresh":"R2"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := transport.New(server.URL, s)
	require.NoError(t, client.Get(context.Background(), "/sales/sales/", nil, nil))
	require.Equal(t, "R2", s.RefreshToken())
}

func TestClient_SingleRetryPerRequest(t *testing.T) {
	s, _ := seededStore(t, "A1")

	var protectedCalls, refreshCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/sales/sales/", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&protectedCalls, 1)
		w.WriteHeader(http.StatusUnauthorized) // rejects even the replay
	})
	mux.HandleFunc(transport.RefreshPath, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
		w.Write([]byte(`{"access":"A2"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := transport.New(server.URL, s)
	err := client.Get(context.Background(), "/sales/sales/", nil, nil)

	require.Error(t, err)
	require.True(t, apierrors.IsUnauthorized(err))
	require.EqualValues(t, 2, protectedCalls, "original plus exactly one replay")
	require.EqualValues(t, 1, refreshCalls, "no second refresh for the same request")
}

func TestClient_RefreshFailureCascadesToLogout(t *testing.T) {
	s, kv := seededStore(t, "A1")

	mux := http.NewServeMux()
	mux.HandleFunc("/sales/sales/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	mux.HandleFunc(transport.RefreshPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Token is invalid or expired"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	var authExpired int32
	client := transport.New(server.URL, s, transport.WithAuthExpiredHandler(func() {
		atomic.AddInt32(&authExpired, 1)
	}))

	err := client.Get(context.Background(), "/sales/sales/", nil, nil)
	require.Error(t, err)

	require.Empty(t, kv.Get(store.KeyAccessToken))
	require.Empty(t, kv.Get(store.KeyRefreshToken))
	require.Empty(t, kv.Get(store.KeyUser))
	require.EqualValues(t, 1, authExpired)
}

// A 401 with no refresh token on hand (e.g. a rejected login) must surface
// the server's own message, not a refresh error, and must not redirect.
func TestClient_UnauthorizedWithoutRefreshToken(t *testing.T) {
	s := store.New(storefakes.NewFakeKV())

	var refreshCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"success":false,"error":"Invalid email or password."}`))
	})
	mux.HandleFunc(transport.RefreshPath, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&refreshCalls, 1)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	var authExpired int32
	client := transport.New(server.URL, s, transport.WithAuthExpiredHandler(func() {
		atomic.AddInt32(&authExpired, 1)
	}))

	err := client.Post(context.Background(), "/auth/login/", map[string]string{}, nil)
	require.Error(t, err)
	require.Equal(t, "Invalid email or password.", apierrors.Message(err))
	require.Zero(t, refreshCalls)
	require.Zero(t, authExpired)
}

func TestClient_NonAuthErrorsPassThrough(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusForbidden, http.StatusInternalServerError} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			s, _ := seededStore(t, "A1")

			var refreshCalls int32
			mux := http.NewServeMux()
			mux.HandleFunc("/sales/sales/", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				w.Write([]byte(`{"detail":"nope"}`))
			})
			mux.HandleFunc(transport.RefreshPath, func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&refreshCalls, 1)
			})
			server := httptest.NewServer(mux)
			defer server.Close()

			client := transport.New(server.URL, s)
			err := client.Get(context.Background(), "/sales/sales/", nil, nil)

			var apiErr *apierrors.APIError
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, status, apiErr.StatusCode)
			require.Zero(t, refreshCalls, "only a 401 may trigger a refresh")
			require.Equal(t, "A1", s.AccessToken(), "session untouched")
		})
	}
}

// Concurrent 401 chains must coalesce onto a single in-flight refresh.
func TestClient_ConcurrentRefreshesCoalesce(t *testing.T) {
	const concurrency = 5

	s, _ := seededStore(t, "A1")

	allRejected := make(chan struct{})
	var rejected, refreshCalls int32
	mux := http.NewServeMux()
	mux.HandleFunc("/sales/sales/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer A2" {
			if atomic.AddInt32(&rejected, 1) == concurrency {
				close(allRejected)
			}
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Write([]byte(`{}`))
	})
	mux.HandleFunc(transport.RefreshPath, func(w http.ResponseWriter, r *http.Request) {
		<-allRejected // hold the refresh until every chain has hit its 401
		time.Sleep(100 * time.Millisecond)
		atomic.AddInt32(&refreshCalls, 1)
		w.Write([]byte(`{"access":"A2"}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := transport.New(server.URL, s)

	var wg sync.WaitGroup
	errs := make([]error, concurrency)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = client.Get(context.Background(), "/sales/sales/", nil, nil)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "request %d", i)
	}
	require.EqualValues(t, 1, refreshCalls, "refresh token presented once per cycle")
	require.Equal(t, "A2", s.AccessToken())
}

func TestClient_Multipart(t *testing.T) {
	s, _ := seededStore(t, "A1")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		require.Equal(t, "Yamaha", r.FormValue("brand"))

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		require.Equal(t, "mt07.jpg", header.Filename)

		w.Write([]byte(`{"id":1}`))
	}))
	defer server.Close()

	form := transport.NewForm()
	form.AddField("brand", "Yamaha")
	form.AddFile("image", "mt07.jpg", []byte{0xFF, 0xD8, 0xFF})

	client := transport.New(server.URL, s)
	var out struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, client.PostMultipart(context.Background(), "/inventory/vehicles/", form, &out))
	require.EqualValues(t, 1, out.ID)
}
