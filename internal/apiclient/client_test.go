package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"testing"
	"time"

	"github.com/simp-lee/gymadmin/internal/admin"
)

type seen struct {
	method string
	path   string
	query  map[string]string
	auth   string
	lang   string
	body   string
}

func newServer(t *testing.T, handler http.HandlerFunc) (*Client, *[]seen) {
	t.Helper()
	var log []seen
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		q := map[string]string{}
		for k := range r.URL.Query() {
			q[k] = r.URL.Query().Get(k)
		}
		log = append(log, seen{
			method: r.Method,
			path:   r.URL.Path,
			query:  q,
			auth:   r.Header.Get("Authorization"),
			lang:   r.Header.Get("Accept-Language"),
			body:   string(b),
		})
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/api/v1/", Token: "svc-token", Timeout: 2 * time.Second}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c, &log
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func TestClient_List(t *testing.T) {
	c, log := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"code": 200, "message": "success",
			"data": map[string]any{"data": []any{}, "totalItems": 0},
		})
	})

	req := admin.NewPageRequest(20).WithSearch("lina").WithFilter("gender", "female").WithPage(2)
	resp, err := c.List(context.Background(), "members", req, "ar")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if resp.Status != http.StatusOK {
		t.Errorf("Status = %d", resp.Status)
	}

	if len(*log) != 1 {
		t.Fatalf("requests = %d, want 1", len(*log))
	}
	got := (*log)[0]
	if got.method != http.MethodGet || got.path != "/api/v1/members" {
		t.Errorf("request = %s %s", got.method, got.path)
	}
	wantQuery := map[string]string{
		"page": "2", "pageSize": "20", "search": "lina", "gender": "female", "lang": "ar",
	}
	if !reflect.DeepEqual(got.query, wantQuery) {
		t.Errorf("query = %v, want %v", got.query, wantQuery)
	}
	if got.auth != "Bearer svc-token" {
		t.Errorf("Authorization = %q", got.auth)
	}
	if got.lang != "ar" {
		t.Errorf("Accept-Language = %q", got.lang)
	}
}

func TestClient_Mutations(t *testing.T) {
	c, log := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"code": 200, "message": "ok"})
	})
	ctx := context.Background()

	calls := []func() (admin.Response, error){
		func() (admin.Response, error) { return c.Get(ctx, "coaches", "3", "en") },
		func() (admin.Response, error) { return c.Create(ctx, "coaches", map[string]any{"name": "Sara"}, "en") },
		func() (admin.Response, error) { return c.Update(ctx, "coaches", "3", map[string]any{"name": "Sara K"}, "en") },
		func() (admin.Response, error) { return c.Delete(ctx, "coaches", "3", "en") },
		func() (admin.Response, error) { return c.SetActive(ctx, "coaches", "3", false, "en") },
	}
	for i, call := range calls {
		if _, err := call(); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}

	want := []struct {
		method, path, body string
	}{
		{http.MethodGet, "/api/v1/coaches/3", ""},
		{http.MethodPost, "/api/v1/coaches", `{"name":"Sara"}`},
		{http.MethodPut, "/api/v1/coaches/3", `{"name":"Sara K"}`},
		{http.MethodDelete, "/api/v1/coaches/3", ""},
		{http.MethodPatch, "/api/v1/coaches/3/active", `{"active":false}`},
	}
	if len(*log) != len(want) {
		t.Fatalf("requests = %d, want %d", len(*log), len(want))
	}
	for i, w := range want {
		got := (*log)[i]
		if got.method != w.method || got.path != w.path || got.body != w.body {
			t.Errorf("request %d = %s %s %q, want %s %s %q", i, got.method, got.path, got.body, w.method, w.path, w.body)
		}
		if got.query["lang"] != "en" {
			t.Errorf("request %d lang = %q", i, got.query["lang"])
		}
	}
}

func TestClient_ServerErrorIsAResponse(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"code":    404,
			"message": map[string]string{"arabic": "العنصر غير موجود", "english": "Item not found"},
		})
	})

	resp, err := c.Delete(context.Background(), "members", "9", "ar")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if resp.Status != http.StatusNotFound {
		t.Fatalf("Status = %d, want 404", resp.Status)
	}

	_, err = admin.DecodeEnvelope(resp.Status, resp.Body)
	var apiErr *admin.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *admin.APIError", err)
	}
	if got := apiErr.Message.In("ar"); got != "العنصر غير موجود" {
		t.Errorf("message = %q", got)
	}
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: base + "/api/v1"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.List(context.Background(), "members", admin.NewPageRequest(10), "en"); err == nil {
		t.Fatal("List against a closed server succeeded")
	}
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		writeJSON(w, http.StatusOK, map[string]any{"code": 200})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.Get(context.Background(), "blogs", "1", ""); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if auth != "" {
		t.Errorf("Authorization = %q, want none", auth)
	}
}

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, base := range []string{"", "localhost:8080", "ftp://x/api", "http://"} {
		if _, err := New(Config{BaseURL: base}, nil); err == nil {
			t.Errorf("New(%q) succeeded", base)
		}
	}
}

func TestOptions_PagesAndSearches(t *testing.T) {
	c, log := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		size, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))
		items := make([]map[string]any, 0, size)
		for i := (page-1)*size + 1; i <= min(page*size, 25); i++ {
			items = append(items, map[string]any{"id": i, "name": fmt.Sprintf("Coach %d", i)})
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"code": 200, "message": "success",
			"data": map[string]any{"data": items, "totalItems": 25},
		})
	})
	src := c.Options("coaches", func(rec map[string]any) string { return fmt.Sprint(rec["name"]) })
	ctx := context.Background()

	first, err := src.Options(ctx, admin.OptionQuery{Page: 1, PageSize: 20, Search: "co", Locale: "en"})
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if len(first.Options) != 20 || !first.HasMore {
		t.Fatalf("first page: %d options, HasMore %v", len(first.Options), first.HasMore)
	}
	if want := (admin.Option{Value: "1", Label: "Coach 1"}); first.Options[0] != want {
		t.Errorf("first option = %+v, want %+v", first.Options[0], want)
	}

	second, err := src.Options(ctx, admin.OptionQuery{Page: 2, PageSize: 20, Locale: "en"})
	if err != nil {
		t.Fatalf("second page: %v", err)
	}
	if len(second.Options) != 5 || second.HasMore {
		t.Fatalf("second page: %d options, HasMore %v", len(second.Options), second.HasMore)
	}

	if got := (*log)[0].query["search"]; got != "co" {
		t.Errorf("search = %q", got)
	}
	if got := (*log)[1].query["page"]; got != "2" {
		t.Errorf("page = %q", got)
	}
}

func TestOptions_ServerError(t *testing.T) {
	c, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"code": 401, "message": "Unauthorized"})
	})
	src := c.Options("coaches", func(map[string]any) string { return "" })

	_, err := src.Options(context.Background(), admin.OptionQuery{Page: 1, PageSize: 20})
	var apiErr *admin.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *admin.APIError", err)
	}
}

func TestFormatID(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{float64(1234567), "1234567"},
		{"abc", "abc"},
	}
	for _, tt := range tests {
		if got := formatID(tt.in); got != tt.want {
			t.Errorf("formatID(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
