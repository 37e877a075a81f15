package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
)

var (
	errEmptyBody = errors.New("response body is empty")
	errNullBody  = errors.New("response body is null")
)

// Do executes req and decodes a 2xx body into T. Bodies that are empty, null,
// not JSON, of the wrong JSON type, or missing required fields fail with a
// KindMalformed error rather than a zero value.
func Do[T any](ctx context.Context, c *Client, req Request) (*Envelope[T], error) {
	resp, err := c.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	value, err := decode[T](c, resp.Body)
	if err != nil {
		return nil, c.fail(&Error{
			Kind:        KindMalformed,
			Message:     string(resp.Body),
			Method:      resp.method,
			Resource:    resp.resource,
			HTTPStatus:  resp.StatusCode,
			RequestBody: resp.requestBody,
			cause:       err,
		})
	}

	return &Envelope[T]{
		StatusCode: resp.StatusCode,
		Body:       resp.Body,
		Value:      value,
	}, nil
}

// Get issues a GET with optional query params.
func Get[T any](ctx context.Context, c *Client, resource string, query Params) (*T, error) {
	return valueOf[T](Do[T](ctx, c, Request{Method: http.MethodGet, Resource: resource, Query: query}))
}

// Post issues a POST with a form-encoded body.
func Post[T any](ctx context.Context, c *Client, resource string, body Params) (*T, error) {
	return valueOf[T](Do[T](ctx, c, Request{Method: http.MethodPost, Resource: resource, Body: body}))
}

// Put issues a PUT with a form-encoded body.
func Put[T any](ctx context.Context, c *Client, resource string, body Params) (*T, error) {
	return valueOf[T](Do[T](ctx, c, Request{Method: http.MethodPut, Resource: resource, Body: body}))
}

// DeleteInto issues a DELETE and decodes the response.
func DeleteInto[T any](ctx context.Context, c *Client, resource string, query Params) (*T, error) {
	return valueOf[T](Do[T](ctx, c, Request{Method: http.MethodDelete, Resource: resource, Query: query}))
}

// Delete issues a DELETE and discards the response body.
func Delete(ctx context.Context, c *Client, resource string, query Params) error {
	_, err := c.Execute(ctx, Request{Method: http.MethodDelete, Resource: resource, Query: query})
	return err
}

func valueOf[T any](env *Envelope[T], err error) (*T, error) {
	if err != nil {
		return nil, err
	}
	return env.Value, nil
}

// decode unmarshals body into a new T and checks struct validation tags.
func decode[T any](c *Client, body []byte) (*T, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errEmptyBody
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return nil, errNullBody
	}

	out := new(T)
	if err := json.Unmarshal(trimmed, out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if reflect.TypeFor[T]().Kind() == reflect.Struct {
		if err := c.validate.Struct(out); err != nil {
			return nil, fmt.Errorf("response shape: %w", err)
		}
	}
	return out, nil
}
