package gateway_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"go.uber.org/zap"

	"ProductCatalog/internal/catalog"
	"ProductCatalog/internal/gateway"
)

func newCatalogTS(t *testing.T) *httptest.Server {
	t.Helper()

	s := &catalog.Server{Store: catalog.NewStore(), Log: zap.NewNop()}

	h := catalog.NewHandler(s, catalog.HTTPDeps{
		Log:     zap.NewNop(),
		Service: "catalog",
	})

	return httptest.NewServer(h)
}

func newGatewayTS(t *testing.T, catalogURL string) *httptest.Server {
	t.Helper()

	h, err := gateway.NewHandler(
		gateway.Deps{CatalogURL: catalogURL},
		gateway.HTTPDeps{
			Log:     zap.NewNop(),
			Service: "gateway",
		},
	)
	if err != nil {
		t.Fatalf("gateway.NewHandler: %v", err)
	}

	return httptest.NewServer(h)
}

func doJSON(t *testing.T, c *http.Client, method, url string, body any, headers map[string]string) (*http.Response, []byte) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, raw
}

func TestGateway_PublicAPI_HappyPath(t *testing.T) {
	catalogTS := newCatalogTS(t)
	t.Cleanup(catalogTS.Close)

	gwTS := newGatewayTS(t, catalogTS.URL)
	t.Cleanup(gwTS.Close)

	c := &http.Client{}

	{
		resp, raw := doJSON(t, c, http.MethodGet, gwTS.URL+"/api/produtos", nil, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("list status=%d body=%s", resp.StatusCode, string(raw))
		}
		var products []catalog.Product
		if err := json.Unmarshal(raw, &products); err != nil {
			t.Fatalf("decode list: %v body=%s", err, string(raw))
		}
		if len(products) != 2 {
			t.Fatalf("products=%d", len(products))
		}
	}

	var created catalog.Product
	{
		resp, raw := doJSON(t, c, http.MethodPost, gwTS.URL+"/api/produtos", map[string]any{
			"descricao": "Headset",
			"preco":     299.9,
		}, nil)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create status=%d body=%s", resp.StatusCode, string(raw))
		}
		if err := json.Unmarshal(raw, &created); err != nil {
			t.Fatalf("decode product: %v body=%s", err, string(raw))
		}
		if created.ID == 0 {
			t.Fatalf("empty product id")
		}
	}

	path := gwTS.URL + "/api/produtos/" + strconv.FormatInt(created.ID, 10)

	{
		resp, raw := doJSON(t, c, http.MethodPut, path, map[string]any{
			"descricao": "Headset Gamer",
			"preco":     349,
		}, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("update status=%d body=%s", resp.StatusCode, string(raw))
		}
	}

	{
		resp, raw := doJSON(t, c, http.MethodDelete, path, nil, nil)
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("delete status=%d body=%s", resp.StatusCode, string(raw))
		}
	}

	{
		resp, raw := doJSON(t, c, http.MethodGet, path, nil, nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("get after delete status=%d body=%s", resp.StatusCode, string(raw))
		}
	}
}

func TestGateway_ForwardsRequestID(t *testing.T) {
	var seen string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Request-Id")
		w.Header().Set("X-Request-Id", seen)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(upstream.Close)

	gwTS := newGatewayTS(t, upstream.URL)
	t.Cleanup(gwTS.Close)

	resp, _ := doJSON(t, &http.Client{}, http.MethodGet, gwTS.URL+"/api/produtos", nil, map[string]string{
		"X-Request-Id": "req-123",
	})

	if seen != "req-123" {
		t.Fatalf("upstream saw request id %q", seen)
	}
	if got := resp.Header.Values("X-Request-Id"); len(got) != 1 || got[0] != "req-123" {
		t.Fatalf("response request ids=%v", got)
	}
}

func TestGateway_StripsAPIPrefix(t *testing.T) {
	var path string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(upstream.Close)

	gwTS := newGatewayTS(t, upstream.URL+"/")
	t.Cleanup(gwTS.Close)

	doJSON(t, &http.Client{}, http.MethodGet, gwTS.URL+"/api/produtos/7", nil, nil)
	if path != "/produtos/7" {
		t.Fatalf("upstream path=%q", path)
	}
}

func TestGateway_UpstreamDown(t *testing.T) {
	catalogTS := newCatalogTS(t)
	url := catalogTS.URL
	catalogTS.Close()

	gwTS := newGatewayTS(t, url)
	t.Cleanup(gwTS.Close)

	resp, raw := doJSON(t, &http.Client{}, http.MethodGet, gwTS.URL+"/api/produtos", nil, nil)
	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("status=%d body=%s", resp.StatusCode, string(raw))
	}

	resp, _ = doJSON(t, &http.Client{}, http.MethodGet, gwTS.URL+"/readyz", nil, nil)
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("readyz status=%d", resp.StatusCode)
	}
}

func TestGateway_Ready(t *testing.T) {
	catalogTS := newCatalogTS(t)
	t.Cleanup(catalogTS.Close)

	gwTS := newGatewayTS(t, catalogTS.URL)
	t.Cleanup(gwTS.Close)

	resp, _ := doJSON(t, &http.Client{}, http.MethodGet, gwTS.URL+"/readyz", nil, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz status=%d", resp.StatusCode)
	}
}

func TestGateway_RejectsRelativeUpstream(t *testing.T) {
	_, err := gateway.NewHandler(gateway.Deps{CatalogURL: "catalog:8080"}, gateway.HTTPDeps{Log: zap.NewNop()})
	if err == nil {
		t.Fatalf("expected error for relative upstream")
	}
}
