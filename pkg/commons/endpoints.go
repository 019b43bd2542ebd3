package commons

import (
	"net/url"
	"strings"
)

const (
	// DefaultAPIURL is the Wikimedia Commons API endpoint
	DefaultAPIURL = "https://commons.wikimedia.org/w/api.php"

	// MaxBatchTitles is the maximum number of titles per query call
	MaxBatchTitles = 50

	// UploadComment is the edit summary used when re-uploading files
	UploadComment = "Adding geolocation"
)

// baseParams returns the query values shared by every API call
func baseParams(action string) url.Values {
	params := url.Values{}
	params.Set("action", action)
	params.Set("format", "json")
	params.Set("formatversion", "2")
	return params
}

// listUploadsParams builds the query for one page of a user's upload log
func listUploadsParams(username string, cont map[string]string) url.Values {
	params := baseParams("query")
	params.Set("list", "logevents")
	params.Set("letype", "upload")
	params.Set("leuser", username)
	params.Set("leprop", "title")
	params.Set("lelimit", "max")
	applyContinue(params, cont)
	return params
}

// listCategoryParams builds the query for one page of a category listing
func listCategoryParams(category string, cont map[string]string) url.Values {
	if !strings.HasPrefix(category, "Category:") {
		category = "Category:" + category
	}
	params := baseParams("query")
	params.Set("list", "categorymembers")
	params.Set("cmtitle", category)
	params.Set("cmtype", "file|subcat")
	params.Set("cmprop", "title|type")
	params.Set("cmlimit", "max")
	applyContinue(params, cont)
	return params
}

// pageDetailsParams builds the batched detail query for up to
// MaxBatchTitles file titles
func pageDetailsParams(titles []string) url.Values {
	prefixed := make([]string, len(titles))
	for i, t := range titles {
		if strings.HasPrefix(t, "File:") {
			prefixed[i] = t
		} else {
			prefixed[i] = "File:" + t
		}
	}
	params := baseParams("query")
	params.Set("prop", "info|imageinfo|coordinates")
	params.Set("iiprop", "metadata|url|extmetadata")
	params.Set("titles", strings.Join(prefixed, "|"))
	return params
}

// tokenParams builds the query for fetching a token of the given type
func tokenParams(tokenType string) url.Values {
	params := baseParams("query")
	params.Set("meta", "tokens")
	params.Set("type", tokenType)
	return params
}

// applyContinue threads an opaque continuation back into the next call.
// The token's keys are owned by the API; the client never inspects them.
func applyContinue(params url.Values, cont map[string]string) {
	for k, v := range cont {
		params.Set(k, v)
	}
}
