package commons

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/wilfredor/addwikigeolocation/pkg/config"
	"github.com/wilfredor/addwikigeolocation/pkg/errors"
	"github.com/wilfredor/addwikigeolocation/pkg/logger"
	"github.com/wilfredor/addwikigeolocation/pkg/retry"
)

// Client is a MediaWiki API client scoped to one login session. Create
// it, log in, use it, close it; it is passed by reference and never
// global.
type Client struct {
	httpClient *http.Client
	apiURL     string
	userAgent  string
	csrfToken  string
	maxRetries int
	logger     logger.Logger
}

// NewClient creates a new Commons API client
func NewClient(cfg config.CommonsConfig, log logger.Logger) (*Client, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	// The login session lives in cookies
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	apiURL := cfg.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.RequestTimeout,
			Jar:     jar,
		},
		apiURL:     apiURL,
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		logger:     log,
	}, nil
}

// Close releases the client's network resources
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Login performs the bot-password login flow: login token, login call,
// CSRF token for subsequent writes.
func (c *Client) Login(username, password string) error {
	var tokenResp apiResponse
	if err := c.get(tokenParams("login"), &tokenResp); err != nil {
		return fmt.Errorf("failed to fetch login token: %w", err)
	}
	if tokenResp.Query == nil || tokenResp.Query.Tokens["logintoken"] == "" {
		return errors.New(errors.ErrorTypeAuth, "no login token in response", 0)
	}

	form := url.Values{}
	form.Set("action", "login")
	form.Set("format", "json")
	form.Set("formatversion", "2")
	form.Set("lgname", username)
	form.Set("lgpassword", password)
	form.Set("lgtoken", tokenResp.Query.Tokens["logintoken"])

	var loginResp loginResponse
	if err := c.postForm(form, &loginResp); err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	if loginResp.Login.Result != "Success" {
		c.logger.ErrorWithFields("login rejected", map[string]interface{}{
			"username": username,
			"result":   loginResp.Login.Result,
		})
		return errors.Newf(errors.ErrorTypeAuth, 0, "login failed for %s: %s", username, loginResp.Login.Result)
	}

	var csrfResp apiResponse
	if err := c.get(tokenParams("csrf"), &csrfResp); err != nil {
		return fmt.Errorf("failed to fetch csrf token: %w", err)
	}
	if csrfResp.Query == nil || csrfResp.Query.Tokens["csrftoken"] == "" {
		return errors.New(errors.ErrorTypeAuth, "no csrf token in response", 0)
	}
	c.csrfToken = csrfResp.Query.Tokens["csrftoken"]

	c.logger.InfoWithFields("logged in to Commons", map[string]interface{}{
		"username": username,
	})
	return nil
}

// ListUploads fetches one page of a user's upload log. A nil returned
// continuation means the listing is exhausted.
func (c *Client) ListUploads(username string, cont map[string]string) ([]string, map[string]string, error) {
	var resp apiResponse
	if err := c.get(listUploadsParams(username, cont), &resp); err != nil {
		return nil, nil, err
	}
	if resp.Query == nil {
		return nil, nil, nil
	}

	titles := make([]string, 0, len(resp.Query.LogEvents))
	for _, ev := range resp.Query.LogEvents {
		if ev.Title != "" {
			titles = append(titles, StripFilePrefix(ev.Title))
		}
	}

	c.logger.DebugWithFields("listed upload page", map[string]interface{}{
		"username": username,
		"count":    len(titles),
		"has_more": resp.Continue != nil,
	})

	return titles, resp.Continue, nil
}

// ListCategoryMembers fetches one page of a category's files and
// subcategories. A nil returned continuation means the listing is
// exhausted.
func (c *Client) ListCategoryMembers(category string, cont map[string]string) ([]CategoryMember, map[string]string, error) {
	var resp apiResponse
	if err := c.get(listCategoryParams(category, cont), &resp); err != nil {
		return nil, nil, err
	}
	if resp.Query == nil {
		return nil, nil, nil
	}

	c.logger.DebugWithFields("listed category page", map[string]interface{}{
		"category": category,
		"count":    len(resp.Query.CategoryMembers),
		"has_more": resp.Continue != nil,
	})

	return resp.Query.CategoryMembers, resp.Continue, nil
}

// FetchPagesBatch fetches details for up to MaxBatchTitles file titles
// in one API call
func (c *Client) FetchPagesBatch(titles []string) ([]UploadInfo, error) {
	if len(titles) == 0 {
		return nil, nil
	}
	if len(titles) > MaxBatchTitles {
		return nil, errors.Newf(errors.ErrorTypeUnknown, 0, "batch of %d titles exceeds the API limit of %d", len(titles), MaxBatchTitles)
	}

	var resp apiResponse
	if err := c.get(pageDetailsParams(titles), &resp); err != nil {
		return nil, err
	}
	if resp.Query == nil {
		return nil, nil
	}

	results := make([]UploadInfo, 0, len(resp.Query.Pages))
	for _, page := range resp.Query.Pages {
		if page.Missing {
			continue
		}
		results = append(results, page.toUploadInfo())
	}
	return results, nil
}

// Download streams a file's payload. The caller owns the reader and
// must close it.
func (c *Client) Download(fileURL string) (io.ReadCloser, error) {
	req, err := http.NewRequest(http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, errors.Newf(errors.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Newf(errors.ErrorTypeTransient, 0, "download failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, errors.Newf(errors.TypeForStatusCode(resp.StatusCode), resp.StatusCode, "download of %s returned status %d", fileURL, resp.StatusCode)
	}
	return resp.Body, nil
}

// UploadFile re-uploads a modified file over its existing title
func (c *Client) UploadFile(title, path string) error {
	if c.csrfToken == "" {
		return errors.New(errors.ErrorTypeAuth, "not logged in", 0)
	}

	file, err := os.Open(path)
	if err != nil {
		return errors.Newf(errors.ErrorTypeStorage, 0, "failed to open %s: %v", path, err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	fields := map[string]string{
		"action":         "upload",
		"format":         "json",
		"formatversion":  "2",
		"filename":       StripFilePrefix(title),
		"comment":        UploadComment,
		"ignorewarnings": "1",
		"token":          c.csrfToken,
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return fmt.Errorf("failed to write form field: %w", err)
		}
	}

	part, err := writer.CreateFormFile("file", StripFilePrefix(title))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("failed to copy file data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.apiURL, &body)
	if err != nil {
		return fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Newf(errors.ErrorTypeTransient, 0, "upload request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf(errors.TypeForStatusCode(resp.StatusCode), resp.StatusCode, "upload returned status %d", resp.StatusCode)
	}

	var uploadResp uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uploadResp); err != nil {
		return errors.Newf(errors.ErrorTypeParsing, 0, "failed to parse upload response: %v", err)
	}
	if uploadResp.Error != nil {
		return apiErrorToTyped(uploadResp.Error)
	}
	if uploadResp.Upload.Result != "Success" {
		return errors.Newf(errors.ErrorTypeProcessing, 0, "upload of %s finished with result %q", title, uploadResp.Upload.Result)
	}

	c.logger.InfoWithFields("uploaded file", map[string]interface{}{
		"title": title,
	})
	return nil
}

// get performs a GET API call with transient-error retry
func (c *Client) get(params url.Values, target interface{}) error {
	op := func() error {
		return c.getOnce(params, target)
	}
	return retry.Do(op, &retry.Config{
		MaxAttempts: c.maxRetries,
		Backoff:     retry.DefaultExponentialBackoff(),
		RetryIf:     retry.DefaultRetryIf,
		Logger:      c.logger,
	})
}

func (c *Client) getOnce(params url.Values, target interface{}) error {
	reqURL := c.apiURL + "?" + params.Encode()

	req, err := http.NewRequest(http.MethodGet, reqURL, nil)
	if err != nil {
		return errors.Newf(errors.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"url":   reqURL,
			"error": err.Error(),
		})
		return errors.Newf(errors.ErrorTypeTransient, 0, "network error: %v", err)
	}
	defer resp.Body.Close()

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"action":   params.Get("action"),
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	if resp.StatusCode != http.StatusOK {
		return errors.Newf(errors.TypeForStatusCode(resp.StatusCode), resp.StatusCode, "API returned status %d", resp.StatusCode)
	}

	return c.decodeResponse(resp.Body, target)
}

// postForm performs a POST API call with url-encoded form data
func (c *Client) postForm(form url.Values, target interface{}) error {
	req, err := http.NewRequest(http.MethodPost, c.apiURL, strings.NewReader(form.Encode()))
	if err != nil {
		return errors.Newf(errors.ErrorTypeUnknown, 0, "failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Newf(errors.ErrorTypeTransient, 0, "network error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Newf(errors.TypeForStatusCode(resp.StatusCode), resp.StatusCode, "API returned status %d", resp.StatusCode)
	}

	return c.decodeResponse(resp.Body, target)
}

func (c *Client) decodeResponse(r io.Reader, target interface{}) error {
	body, err := io.ReadAll(r)
	if err != nil {
		return errors.Newf(errors.ErrorTypeTransient, 0, "failed to read response body: %v", err)
	}

	// Surface API-level errors before handing the payload back
	var probe apiResponse
	if err := json.Unmarshal(body, &probe); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"error":        err.Error(),
			"body_preview": preview,
		})
		return errors.Newf(errors.ErrorTypeParsing, 0, "failed to parse JSON: %v", err)
	}
	if probe.Error != nil {
		return apiErrorToTyped(probe.Error)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return errors.Newf(errors.ErrorTypeParsing, 0, "failed to parse JSON: %v", err)
	}
	return nil
}

// apiErrorToTyped maps a MediaWiki error payload to the bot's taxonomy
func apiErrorToTyped(apiErr *apiError) error {
	switch apiErr.Code {
	case "assertuserfailed", "badtoken", "permissiondenied", "mustbeloggedin", "readapidenied":
		return errors.Newf(errors.ErrorTypeAuth, 0, "API error %s: %s", apiErr.Code, apiErr.Info)
	case "ratelimited", "maxlag", "readonly":
		return errors.Newf(errors.ErrorTypeTransient, 0, "API error %s: %s", apiErr.Code, apiErr.Info)
	default:
		return errors.Newf(errors.ErrorTypeUnknown, 0, "API error %s: %s", apiErr.Code, apiErr.Info)
	}
}
