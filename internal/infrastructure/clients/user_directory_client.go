package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// UserDirectoryClient checks user existence: GET {base}/{userId} → 200 | 404.
type UserDirectoryClient struct {
	remote
}

func NewUserDirectoryClient(baseURL string, timeout time.Duration) *UserDirectoryClient {
	return &UserDirectoryClient{remote: newRemote("users", baseURL, timeout)}
}

func (c *UserDirectoryClient) Exists(ctx context.Context, userID string) (bool, error) {
	target := fmt.Sprintf("%s/%s", c.baseURL, url.PathEscape(userID))

	resp, finish, err := c.do(ctx, "exists", http.MethodGet, target)
	if err != nil {
		return false, err
	}
	defer drain(resp)

	switch {
	case resp.StatusCode == http.StatusNotFound:
		finish(resultNotFound, nil)
		return false, nil
	case isSuccess(resp.StatusCode):
		finish(resultOK, nil)
		return true, nil
	default:
		err := fmt.Errorf("users exists: unexpected status %d", resp.StatusCode)
		finish(resultError, err)
		return false, err
	}
}
