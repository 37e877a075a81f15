package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"

	"github.com/spf13/cast"
)

const formContentType = "application/x-www-form-urlencoded"

var errEmptyResource = errors.New("resource path is empty")

// Params maps parameter names to scalar values. Nil values are omitted.
type Params map[string]any

// Request describes a single call against the API.
type Request struct {
	Method   string
	Resource string
	Query    Params
	Body     Params
}

// Response is the raw envelope of a successful call.
type Response struct {
	StatusCode int
	Body       []byte

	method      string
	resource    string
	requestBody string
}

// Envelope pairs the raw response with its decoded value.
type Envelope[T any] struct {
	StatusCode int
	Body       []byte
	Value      *T
}

// encode renders scalar params into url.Values.
func (p Params) encode() (url.Values, error) {
	if len(p) == 0 {
		return nil, nil
	}
	vals := make(url.Values, len(p))
	for k, v := range p {
		if isNil(v) {
			continue
		}
		s, err := cast.ToStringE(v)
		if err != nil {
			return nil, fmt.Errorf("param %q: %w", k, err)
		}
		vals.Set(k, s)
	}
	if len(vals) == 0 {
		return nil, nil
	}
	return vals, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

// joinURL appends resource to base with path-segment semantics and attaches
// the query string when at least one parameter is present.
func joinURL(base, resource string, query url.Values) (string, error) {
	segments := make([]string, 0, 4)
	for _, seg := range strings.Split(resource, "/") {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		segments = append(segments, url.PathEscape(seg))
	}
	if len(segments) == 0 {
		return "", errEmptyResource
	}

	target := strings.TrimRight(base, "/") + "/" + strings.Join(segments, "/")
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target, nil
}

func normalizeMethod(method string) (string, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
		return method, nil
	case "":
		return "", errors.New("method is empty")
	default:
		return "", fmt.Errorf("unsupported method %q", method)
	}
}
