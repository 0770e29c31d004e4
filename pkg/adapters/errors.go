package adapters

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/shouni/gemini-image-client/pkg/domain"
	"github.com/shouni/gemini-image-client/pkg/retry"
	"github.com/shouni/gemini-image-client/pkg/utils"
	"google.golang.org/genai"
)

// maxErrorBody は診断用に保持するエラー本文の上限 (文字数) です。
const maxErrorBody = 512

func fromGenAIError(err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return &domain.UpstreamError{Transport: domain.TransportContent, Err: err}
	}
	up := &domain.UpstreamError{
		Transport:  domain.TransportContent,
		StatusCode: apiErr.Code,
		Status:     apiErr.Status,
		Message:    utils.Truncate(apiErr.Message, maxErrorBody),
		Err:        err,
	}
	if d, ok := retry.ParseRetryDelay(apiErr.Details); ok {
		up.RetryAfter = d
	}
	return up
}

func fromOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		up := &domain.UpstreamError{
			Transport:  domain.TransportImages,
			StatusCode: apiErr.HTTPStatusCode,
			Status:     statusText(apiErr.HTTPStatusCode, apiErr.HTTPStatus),
			Message:    utils.Truncate(apiErr.Message, maxErrorBody),
			Err:        err,
		}
		if d, ok := retry.ParseRetryDelayText(apiErr.Message); ok {
			up.RetryAfter = d
		}
		return up
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		up := &domain.UpstreamError{
			Transport:  domain.TransportImages,
			StatusCode: reqErr.HTTPStatusCode,
			Status:     statusText(reqErr.HTTPStatusCode, reqErr.HTTPStatus),
			Message:    errorMessage(reqErr.Body),
			Body:       utils.Truncate(string(reqErr.Body), maxErrorBody),
			Err:        err,
		}
		if d, ok := retry.ParseRetryDelayBody(reqErr.Body); ok {
			up.RetryAfter = d
		}
		return up
	}

	return &domain.UpstreamError{Transport: domain.TransportImages, Err: err}
}

// newStatusError は 2xx 以外の REST 応答を UpstreamError に変換します。
func newStatusError(resp *http.Response, body []byte) error {
	up := &domain.UpstreamError{
		Transport:  domain.TransportREST,
		StatusCode: resp.StatusCode,
		Status:     statusText(resp.StatusCode, resp.Status),
		Message:    errorMessage(body),
		Body:       utils.Truncate(string(body), maxErrorBody),
	}
	if d, ok := retry.ParseRetryDelayBody(body); ok {
		up.RetryAfter = d
	} else if d, ok := parseRetryAfterHeader(resp.Header.Get("Retry-After")); ok {
		up.RetryAfter = d
	}
	return up
}

// errorMessage は {"error":{"message":...}} またはその配列から message を取り出します。
func errorMessage(body []byte) string {
	type envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	var single envelope
	if err := json.Unmarshal(body, &single); err == nil && single.Error.Message != "" {
		return utils.Truncate(single.Error.Message, maxErrorBody)
	}
	var list []envelope
	if err := json.Unmarshal(body, &list); err == nil {
		for _, e := range list {
			if e.Error.Message != "" {
				return utils.Truncate(e.Error.Message, maxErrorBody)
			}
		}
	}
	return ""
}

// statusText は "429 Too Many Requests" のような表記から理由句だけを取り出します。
func statusText(code int, status string) string {
	text := strings.TrimSpace(strings.TrimPrefix(status, strconv.Itoa(code)))
	if text == "" {
		return http.StatusText(code)
	}
	return text
}

func parseRetryAfterHeader(v string) (time.Duration, bool) {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0, false
	}
	return time.Duration(secs) * time.Second, true
}
