package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type category struct {
	Name           string `json:"name"`
	ProductTaxCode string `json:"product_tax_code"`
	Description    string `json:"description"`
}

type categoryList struct {
	Categories []category `json:"categories" validate:"required"`
}

type validation struct {
	Valid  *bool `json:"valid"`
	Exists *bool `json:"exists"`
}

type validationContainer struct {
	Validation *validation `json:"validation" validate:"required"`
}

type recordingLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *recordingLogger) record(level, msg string, obj interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, fmt.Sprintf("%s %s %v", level, msg, obj))
}

func (l *recordingLogger) InfoObj(msg, _ string, obj interface{})  { l.record("info", msg, obj) }
func (l *recordingLogger) DebugObj(msg, _ string, obj interface{}) { l.record("debug", msg, obj) }
func (l *recordingLogger) WarnObj(msg, _ string, obj interface{})  { l.record("warn", msg, obj) }
func (l *recordingLogger) ErrorObj(msg, _ string, obj interface{}) { l.record("error", msg, obj) }

func (l *recordingLogger) joined() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return strings.Join(l.entries, "\n")
}

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New("secret-token", append([]Option{WithBaseURL(srv.URL + "/v2")}, opts...)...)
}

func TestGetDecodesCategories(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v2/categories", r.URL.Path)
		assert.Empty(t, r.URL.RawQuery)
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"categories":[{"name":"Software","product_tax_code":"81120","description":"Downloaded software"}]}`)
	})

	got, err := Get[categoryList](context.Background(), c, "categories", nil)
	require.NoError(t, err)
	assert.Equal(t, &categoryList{Categories: []category{{
		Name:           "Software",
		ProductTaxCode: "81120",
		Description:    "Downloaded software",
	}}}, got)
}

func TestGetSendsQueryParams(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/validation", r.URL.Path)
		assert.Equal(t, "FR40303265045", r.URL.Query().Get("vat"))
		assert.False(t, r.URL.Query().Has("skip"))
		_, _ = io.WriteString(w, `{"validation":{"valid":false}}`)
	})

	got, err := Get[validationContainer](context.Background(), c, "/validation", Params{"vat": "FR40303265045", "skip": nil})
	require.NoError(t, err)
	require.NotNil(t, got.Validation.Valid)
	assert.False(t, *got.Validation.Valid)
}

func TestEmptyTokenOmitsAuthorization(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = io.WriteString(w, `{"categories":[]}`)
	}))
	defer srv.Close()

	c := New("", WithBaseURL(srv.URL))
	got, err := Get[categoryList](context.Background(), c, "categories", nil)
	require.NoError(t, err)
	assert.Empty(t, got.Categories)
}

func TestPostSendsFormEncodedBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/validate", r.URL.Path)
		assert.Equal(t, formContentType, r.Header.Get("Content-Type"))
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "FR40303265045", r.PostForm.Get("vat"))
		_, _ = io.WriteString(w, `{"validation":{"valid":true,"exists":true}}`)
	})

	got, err := Post[validationContainer](context.Background(), c, "validate", Params{"vat": "FR40303265045"})
	require.NoError(t, err)
	require.NotNil(t, got.Validation.Valid)
	assert.True(t, *got.Validation.Valid)
	require.NotNil(t, got.Validation.Exists)
	assert.True(t, *got.Validation.Exists)
}

func TestPutSendsScalarBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "12.5", r.PostForm.Get("amount"))
		assert.Equal(t, "true", r.PostForm.Get("exempt"))
		assert.Equal(t, "3", r.PostForm.Get("qty"))
		_, _ = io.WriteString(w, `{"ok":true}`)
	})

	got, err := Put[map[string]bool](context.Background(), c, "transactions/orders/123", Params{
		"amount": 12.5,
		"exempt": true,
		"qty":    3,
	})
	require.NoError(t, err)
	assert.True(t, (*got)["ok"])
}

func TestDeleteDiscardsBody(t *testing.T) {
	var hits atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v2/transactions/orders/123", r.URL.Path)
		_, _ = io.WriteString(w, `not json at all`)
	})

	require.NoError(t, Delete(context.Background(), c, "transactions/orders/123", nil))
	assert.Equal(t, int32(1), hits.Load())
}

func TestDeleteIntoDecodesBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "provider=api", r.URL.RawQuery)
		_, _ = io.WriteString(w, `{"categories":[{"name":"Gift Cards"}]}`)
	})

	got, err := DeleteInto[categoryList](context.Background(), c, "categories", Params{"provider": "api"})
	require.NoError(t, err)
	require.Len(t, got.Categories, 1)
	assert.Equal(t, "Gift Cards", got.Categories[0].Name)
}

func TestDeleteErrorsCarryContext(t *testing.T) {
	gone := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "gone")
	}

	tests := []struct {
		name string
		call func(c *Client) error
	}{
		{
			name: "delete",
			call: func(c *Client) error {
				return Delete(context.Background(), c, "transactions/orders/1", nil)
			},
		},
		{
			name: "delete into",
			call: func(c *Client) error {
				_, err := DeleteInto[categoryList](context.Background(), c, "transactions/orders/1", nil)
				return err
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call(newTestClient(t, gone))
			e, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, KindError, e.Kind)
			assert.Equal(t, http.StatusNotFound, e.HTTPStatus)
			assert.Equal(t, "gone", e.Message)
			assert.Equal(t, http.MethodDelete, e.Method)
			assert.Equal(t, "transactions/orders/1", e.Resource)
			assert.Empty(t, e.RequestBody)
		})
	}
}

func TestDeleteWithBodyReportsRequestBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		assert.Equal(t, "reason=dup", string(b))
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "gone")
	})

	_, err := Do[categoryList](context.Background(), c, Request{
		Method:   http.MethodDelete,
		Resource: "transactions/orders/1",
		Body:     Params{"reason": "dup"},
	})
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, http.MethodDelete, e.Method)
	assert.Equal(t, http.StatusNotFound, e.HTTPStatus)
	assert.Equal(t, "reason=dup", e.RequestBody)
}

func TestTimeoutIsClassified(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, WithTimeout(50*time.Millisecond))

	_, err := Get[categoryList](context.Background(), c, "categories", nil)
	require.Error(t, err)

	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindTimeout, e.Kind)
	assert.Equal(t, "Request timed out.", e.Message)
	assert.Zero(t, e.HTTPStatus)
	assert.Empty(t, e.RequestBody)
	assert.True(t, IsTimeout(err))
}

func TestContextDeadlineIsTimeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := Get[categoryList](ctx, c, "categories", nil)
	assert.True(t, IsTimeout(err), "got %v", err)
}

func TestContextCancelIsError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Get[categoryList](ctx, c, "categories", nil)
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindError, e.Kind)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNonSuccessStatusCarriesContext(t *testing.T) {
	const body = `{"error":"Unprocessable Entity","detail":"vat is invalid","status":422}`
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = io.WriteString(w, body)
	})

	_, err := Post[validationContainer](context.Background(), c, "validate", Params{"vat": "bogus"})
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindError, e.Kind)
	assert.Equal(t, body, e.Message)
	assert.Equal(t, http.MethodPost, e.Method)
	assert.Equal(t, "validate", e.Resource)
	assert.Equal(t, http.StatusUnprocessableEntity, e.HTTPStatus)
	assert.Equal(t, "vat=bogus", e.RequestBody)
	assert.Equal(t, http.StatusUnprocessableEntity, StatusOf(err))
}

func TestServerErrorOnGet(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "upstream exploded")
	})

	_, err := Get[categoryList](context.Background(), c, "categories", nil)
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindError, e.Kind)
	assert.Equal(t, "upstream exploded", e.Message)
	assert.Equal(t, http.StatusInternalServerError, e.HTTPStatus)
	assert.Empty(t, e.RequestBody)
}

func TestConnectionFailureIsError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c := New("t", WithBaseURL(base))
	_, err := Get[categoryList](context.Background(), c, "categories", nil)
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindError, e.Kind)
	assert.Zero(t, e.HTTPStatus)
	assert.NotEmpty(t, e.Message)
}

func TestMalformedResponses(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{"categories": [`},
		{name: "type mismatch", body: `{"categories": "Software"}`},
		{name: "missing required field", body: `{"rates": []}`},
		{name: "empty body", body: ``},
		{name: "null body", body: `null`},
		{name: "html", body: `<html>maintenance</html>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, tt.body)
			})

			got, err := Get[categoryList](context.Background(), c, "categories", nil)
			assert.Nil(t, got)

			e, ok := AsError(err)
			require.True(t, ok, "expected *Error, got %v", err)
			assert.Equal(t, KindMalformed, e.Kind)
			assert.Equal(t, tt.body, e.Message)
			assert.Equal(t, http.StatusOK, e.HTTPStatus)
			assert.Equal(t, http.MethodGet, e.Method)
			assert.Equal(t, "categories", e.Resource)
			assert.True(t, IsMalformed(err))
			assert.NotNil(t, errors.Unwrap(err))
		})
	}
}

func TestMalformedWriteResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"validation": null}`)
	})

	_, err := Post[validationContainer](context.Background(), c, "validate", Params{"vat": "FR1"})
	e, ok := AsError(err)
	require.True(t, ok)
	assert.Equal(t, KindMalformed, e.Kind)
	assert.Equal(t, "vat=FR1", e.RequestBody)
}

func TestDoReturnsEnvelope(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"categories":[]}`)
	})

	env, err := Do[categoryList](context.Background(), c, Request{Method: "post", Resource: "categories", Body: Params{"a": "b"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, env.StatusCode)
	assert.JSONEq(t, `{"categories":[]}`, string(env.Body))
	assert.NotNil(t, env.Value)
}

func TestInvalidRequestsFailBeforeSending(t *testing.T) {
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Error("request should not be sent")
	})

	tests := []struct {
		name string
		req  Request
	}{
		{name: "empty resource", req: Request{Method: http.MethodGet, Resource: " / "}},
		{name: "unsupported verb", req: Request{Method: http.MethodPatch, Resource: "categories"}},
		{name: "non scalar param", req: Request{Method: http.MethodGet, Resource: "categories", Query: Params{"ids": []int{1, 2}}}},
		{name: "body on get", req: Request{Method: http.MethodGet, Resource: "categories", Body: Params{"a": "b"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Execute(context.Background(), tt.req)
			e, ok := AsError(err)
			require.True(t, ok)
			assert.Equal(t, KindError, e.Kind)
			assert.Zero(t, e.HTTPStatus)
		})
	}
}

func TestConcurrentCallsDoNotCrossTalk(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/v2/items/")
		if strings.HasSuffix(id, "7") {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, "missing "+id)
			return
		}
		fmt.Fprintf(w, `{"id":%q}`, id)
	})

	type item struct {
		ID string `json:"id" validate:"required"`
	}

	var g errgroup.Group
	for i := 0; i < 50; i++ {
		g.Go(func() error {
			id := fmt.Sprintf("%d", i)
			got, err := Get[item](context.Background(), c, "items/"+id, nil)
			if strings.HasSuffix(id, "7") {
				e, ok := AsError(err)
				if !ok || e.HTTPStatus != http.StatusNotFound || e.Message != "missing "+id {
					return fmt.Errorf("item %s: unexpected error %v", id, err)
				}
				return nil
			}
			if err != nil {
				return fmt.Errorf("item %s: %w", id, err)
			}
			if got.ID != id {
				return fmt.Errorf("item %s: got response for %s", id, got.ID)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}

func TestLoggerTracesRequestsWithoutToken(t *testing.T) {
	log := &recordingLogger{}
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"categories":[]}`)
	}, WithLogger(log))

	_, err := Get[categoryList](context.Background(), c, "categories", Params{"page": 2})
	require.NoError(t, err)

	out := log.joined()
	assert.Contains(t, out, "taxjar request")
	assert.Contains(t, out, "/v2/categories?page=2")
	assert.NotContains(t, out, "secret-token")
}

func TestTracingOptionKeepsPipelineWorking(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"categories":[]}`)
	}, WithTracing())

	_, err := Get[categoryList](context.Background(), c, "categories", nil)
	require.NoError(t, err)
}
