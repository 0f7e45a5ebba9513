package clients

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserDirectoryClient_Exists(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		want    bool
		wantErr bool
	}{
		{name: "known user", status: http.StatusOK, want: true},
		{name: "unknown user", status: http.StatusNotFound, want: false},
		{name: "directory failure", status: http.StatusBadGateway, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				assert.Equal(t, "/api/users/42", r.URL.Path)
				w.WriteHeader(tc.status)
			}))
			defer srv.Close()

			got, err := NewUserDirectoryClient(srv.URL+"/api/users", time.Second).Exists(context.Background(), "42")
			if tc.wantErr {
				require.Error(t, err)
				assert.False(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestUserDirectoryClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewUserDirectoryClient(srv.URL, 50*time.Millisecond).Exists(context.Background(), "42")
	require.Error(t, err)
}
