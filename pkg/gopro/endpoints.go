package gopro

import (
	"fmt"
	"net/url"
	"strconv"
)

const (
	// DefaultBaseURL is the base URL for the GoPro cloud API
	DefaultBaseURL = "https://api.gopro.com"

	// MediaSearchEndpoint is the endpoint for the paginated media listing
	MediaSearchEndpoint = "/media/search"

	// OrderBy is the stable sort key for the listing, so repeated runs
	// observe a consistent ordering
	OrderBy = "captured_at"

	// DefaultPerPage is the default number of records per page
	DefaultPerPage = 100

	// MaxPerPage is the maximum page size the API permits
	MaxPerPage = 100
)

// SearchURL constructs the media-search URL for a 1-based page number
func SearchURL(baseURL string, page, perPage int) string {
	if perPage <= 0 {
		perPage = DefaultPerPage
	} else if perPage > MaxPerPage {
		perPage = MaxPerPage
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("order_by", OrderBy)

	return fmt.Sprintf("%s%s?%s", baseURL, MediaSearchEndpoint, params.Encode())
}
