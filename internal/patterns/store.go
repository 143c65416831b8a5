package patterns

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	composererrors "github.com/conduitcms/composer/internal/errors"
	"github.com/conduitcms/composer/internal/types"
)

// ErrPatternNotFound is returned by stores when a pattern id does not
// exist.
var ErrPatternNotFound = errors.New("pattern not found")

// HTTPStore fetches patterns from the pattern store REST API. Responses are
// wrapped {"data": …} on success, an error object with a message on
// failure.
type HTTPStore struct {
	baseURL string
	client  *http.Client
}

// NewHTTPStore creates a store client against the given base URL.
func NewHTTPStore(baseURL string, timeout time.Duration) *HTTPStore {
	return &HTTPStore{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// FetchPattern implements Store.
func (s *HTTPStore) FetchPattern(ctx context.Context, patternID string) (*types.Pattern, error) {
	endpoint := fmt.Sprintf("%s/patterns/%s", s.baseURL, url.PathEscape(patternID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building pattern request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching pattern %s: %w", patternID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("pattern %s: %w", patternID, ErrPatternNotFound)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Message == "" {
			apiErr.Message = resp.Status
		}
		return nil, composererrors.NewPersistenceError(
			composererrors.ErrCodePatternNotFound,
			"pattern store error: "+apiErr.Message, nil)
	}

	var wrapper struct {
		Data types.Pattern `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return nil, fmt.Errorf("decoding pattern %s: %w", patternID, err)
	}

	return &wrapper.Data, nil
}
