package routes

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	redislib "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/cartd/internal/cart"
	"github.com/angelmondragon/cartd/internal/cartstore"
	"github.com/angelmondragon/cartd/internal/catalog"
	"github.com/angelmondragon/cartd/internal/session"
	pkgAuth "github.com/angelmondragon/cartd/pkg/auth"
	"github.com/angelmondragon/cartd/pkg/config"
	"github.com/angelmondragon/cartd/pkg/db"
	"github.com/angelmondragon/cartd/pkg/db/models"
	"github.com/angelmondragon/cartd/pkg/metrics"
)

type memoryRedis struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memoryRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memoryRedis) CartKey(clientID string) string {
	return "pf:" + clientID
}

type memorySessions struct {
	mu     sync.Mutex
	states map[string]*session.State
}

func (m *memorySessions) Load(_ context.Context, clientID string) (*session.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.states[clientID]; ok {
		return s, nil
	}
	return &session.State{}, nil
}

func (m *memorySessions) Save(_ context.Context, clientID string, state *session.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[clientID] = state
	return nil
}

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type testEnv struct {
	server *httptest.Server
	cfg    *config.Config
	redis  *memoryRedis
	conn   *gorm.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := &config.Config{
		App: config.AppConfig{Env: config.AppEnvDev},
		JWT: config.JWTConfig{Secret: "jwt-secret", Issuer: "cartd-test", ExpirationMinutes: 60},
		Cart: config.CartConfig{
			TTLMinutes:         60,
			DefaultStoreDriver: config.StoreDriverCookie,
			AuthedStoreDriver:  config.StoreDriverRedis,
			CookieSecret:       "cookie-secret",
			ClientCookieName:   "cart_client",
		},
	}

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.ProductSku{}, &models.CartItem{}, &models.CartSnapshot{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	skus := []models.ProductSku{
		{ID: "A", ProductID: "p1", Code: "A", Price: decimal.RequireFromString("10.00"), IsActive: true},
		{ID: "B", ProductID: "p2", Code: "B", Price: decimal.RequireFromString("5.00"), IsActive: true},
	}
	for i := range skus {
		if err := conn.Create(&skus[i]).Error; err != nil {
			t.Fatalf("seed sku: %v", err)
		}
	}

	reg := prometheus.NewRegistry()
	cartMetrics := metrics.NewCartMetrics(reg)
	redis := &memoryRedis{data: map[string]string{}}
	catalogRepo := catalog.NewRepository(conn)
	svc, err := cart.NewService(cart.NewItemRepository(conn), db.Wrap(conn), catalogRepo, nil, cart.MetricsListener(cartMetrics))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	factory := cartstore.NewFactory(cfg.Cart, redis, conn, cartMetrics, cart.MetricsListener(cartMetrics))
	managers := cartstore.NewManagers(factory, cartstore.NewReconciler(cartstore.NewLocalLocker(), cartMetrics, nil))
	sessions := &memorySessions{states: map[string]*session.State{}}

	router := NewRouter(cfg, nil, stubPinger{}, stubPinger{}, reg, sessions, managers, svc, catalogRepo)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &testEnv{server: server, cfg: cfg, redis: redis, conn: conn}
}

func (e *testEnv) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &http.Client{Jar: jar}
}

func (e *testEnv) token(t *testing.T, customerID string) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(e.cfg.JWT, time.Now(), pkgAuth.AccessTokenPayload{CustomerID: customerID})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func do(t *testing.T, c *http.Client, method, url, token, body string, out any) int {
	t.Helper()
	var req *http.Request
	var err error
	if body != "" {
		req, err = http.NewRequest(method, url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req, err = http.NewRequest(method, url, nil)
	}
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}

type basketEnvelope struct {
	Data struct {
		Mode    string `json:"mode"`
		Backend string `json:"backend"`
		Lines   []struct {
			SkuID    string `json:"sku_id"`
			Quantity int    `json:"quantity"`
		} `json:"lines"`
		Statistics struct {
			Quantity int             `json:"quantity"`
			Subtotal decimal.Decimal `json:"subtotal"`
		} `json:"statistics"`
	} `json:"data"`
}

func lineQuantities(env basketEnvelope) map[string]int {
	out := map[string]int{}
	for _, l := range env.Data.Lines {
		out[l.SkuID] = l.Quantity
	}
	return out
}

func TestHealthLive(t *testing.T) {
	env := newTestEnv(t)
	if code := do(t, env.client(t), http.MethodGet, env.server.URL+"/health/live", "", "", nil); code != http.StatusOK {
		t.Fatalf("expected 200 got %d", code)
	}
	if code := do(t, env.client(t), http.MethodGet, env.server.URL+"/health/ready", "", "", nil); code != http.StatusOK {
		t.Fatalf("expected 200 got %d", code)
	}
}

func TestGuestBasketPersistsInCookie(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	var out basketEnvelope
	code := do(t, c, http.MethodPost, env.server.URL+"/api/v1/basket/items", "", `{"product_id":"p1","sku_id":"A","quantity":2}`, &out)
	if code != http.StatusOK {
		t.Fatalf("expected 200 got %d", code)
	}
	if out.Data.Backend != config.StoreDriverCookie || out.Data.Mode != string(cartstore.ModeDefault) {
		t.Fatalf("unexpected store %s/%s", out.Data.Mode, out.Data.Backend)
	}

	out = basketEnvelope{}
	do(t, c, http.MethodGet, env.server.URL+"/api/v1/basket", "", "", &out)
	if got := lineQuantities(out); got["A"] != 2 || len(got) != 1 {
		t.Fatalf("unexpected lines %v", got)
	}
	if !out.Data.Statistics.Subtotal.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("unexpected subtotal %s", out.Data.Statistics.Subtotal)
	}
}

func TestLoginReconcilesGuestBasket(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	do(t, c, http.MethodPost, env.server.URL+"/api/v1/basket/items", "", `{"product_id":"p1","sku_id":"A","quantity":2}`, nil)
	env.redis.data["pf:cart:customer:u1"] = `[{"sku_id":"A","price":"10","quantity":1,"weight":"0","discount":"0"},{"sku_id":"B","price":"5","quantity":3,"weight":"0","discount":"0"}]`

	token := env.token(t, "u1")
	if code := do(t, c, http.MethodPost, env.server.URL+"/api/v1/cart/login", token, "", nil); code != http.StatusOK {
		t.Fatalf("expected 200 got %d", code)
	}

	var out basketEnvelope
	do(t, c, http.MethodGet, env.server.URL+"/api/v1/basket", token, "", &out)
	if out.Data.Backend != config.StoreDriverRedis {
		t.Fatalf("expected redis backend got %s", out.Data.Backend)
	}
	if got := lineQuantities(out); got["A"] != 3 || got["B"] != 3 || len(got) != 2 {
		t.Fatalf("unexpected lines %v", got)
	}

	out = basketEnvelope{}
	do(t, c, http.MethodGet, env.server.URL+"/api/v1/basket", "", "", &out)
	if len(out.Data.Lines) != 0 {
		t.Fatalf("guest basket should be cleared, got %v", lineQuantities(out))
	}

	// Logging in again must not merge twice.
	do(t, c, http.MethodPost, env.server.URL+"/api/v1/cart/login", token, "", nil)
	out = basketEnvelope{}
	do(t, c, http.MethodGet, env.server.URL+"/api/v1/basket", token, "", &out)
	if got := lineQuantities(out); got["A"] != 3 || got["B"] != 3 {
		t.Fatalf("unexpected lines after second login %v", got)
	}
}

func TestSignedInBasketStaysOnAuthedStore(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	token := env.token(t, "u1")

	do(t, c, http.MethodPost, env.server.URL+"/api/v1/basket/items", token, `{"product_id":"p1","sku_id":"A","quantity":2}`, nil)
	if code := do(t, c, http.MethodPut, env.server.URL+"/api/v1/basket/store", token, `{"mode":"default"}`, nil); code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", code)
	}

	var out basketEnvelope
	do(t, c, http.MethodGet, env.server.URL+"/api/v1/basket", token, "", &out)
	if out.Data.Mode != string(cartstore.ModeAuthed) {
		t.Fatalf("expected authed mode got %s", out.Data.Mode)
	}
	if got := lineQuantities(out); got["A"] != 2 || len(got) != 1 {
		t.Fatalf("customer basket should be untouched, got %v", got)
	}

	if code := do(t, c, http.MethodPut, env.server.URL+"/api/v1/basket/store", "", `{"mode":"authed"}`, nil); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for guest got %d", code)
	}
}

func TestClearingEmptyBasketWritesNoCartCookie(t *testing.T) {
	env := newTestEnv(t)
	req, err := http.NewRequest(http.MethodDelete, env.server.URL+"/api/v1/basket", nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	resp, err := env.client(t).Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if strings.HasPrefix(c.Name, "ca_") {
			t.Fatalf("unexpected cart cookie %s", c.Name)
		}
	}
}

func TestGuestBasketTooLargeForCookie(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	code := http.StatusOK
	lines := 0
	for i := 0; i < 80 && code == http.StatusOK; i++ {
		id := fmt.Sprintf("S%03d", i)
		sku := models.ProductSku{ID: id, ProductID: "bulk-" + id, Code: id, Price: decimal.NewFromInt(1), IsActive: true}
		if err := env.conn.Create(&sku).Error; err != nil {
			t.Fatalf("seed sku: %v", err)
		}
		body := fmt.Sprintf(`{"product_id":"bulk-%s","sku_id":"%s","quantity":1}`, id, id)
		code = do(t, c, http.MethodPost, env.server.URL+"/api/v1/basket/items", "", body, nil)
		if code == http.StatusOK {
			lines++
		}
	}
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 once the cookie overflows, got %d", code)
	}

	var out basketEnvelope
	do(t, c, http.MethodGet, env.server.URL+"/api/v1/basket", "", "", &out)
	if len(out.Data.Lines) != lines {
		t.Fatalf("expected the last stored basket of %d lines, got %d", lines, len(out.Data.Lines))
	}
}

func TestCartRowsSyncOnLogin(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	if code := do(t, c, http.MethodPost, env.server.URL+"/api/v1/cart/items", "", `{"product_id":"p1","sku_id":"A","quantity":2}`, nil); code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", code)
	}

	var qty struct {
		Data struct {
			Quantity int `json:"quantity"`
		} `json:"data"`
	}
	do(t, c, http.MethodGet, env.server.URL+"/api/v1/cart/quantity", "", "", &qty)
	if qty.Data.Quantity != 2 {
		t.Fatalf("expected quantity 2 got %d", qty.Data.Quantity)
	}

	token := env.token(t, "u1")
	do(t, c, http.MethodPost, env.server.URL+"/api/v1/cart/login", token, "", nil)

	var rows []models.CartItem
	if err := env.conn.Find(&rows).Error; err != nil {
		t.Fatalf("list rows: %v", err)
	}
	if len(rows) != 1 || rows[0].CustomerID != "u1" || rows[0].Quantity != 2 {
		t.Fatalf("unexpected rows %+v", rows)
	}

	qty.Data.Quantity = 0
	do(t, c, http.MethodGet, env.server.URL+"/api/v1/cart/quantity", "", "", &qty)
	if qty.Data.Quantity != 0 {
		t.Fatalf("guest should not see customer rows, got %d", qty.Data.Quantity)
	}
}

func TestCartItemLookupAndBatchDelete(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	var created struct {
		Data struct {
			Item struct {
				ID uint64 `json:"id"`
			} `json:"item"`
		} `json:"data"`
	}
	do(t, c, http.MethodPost, env.server.URL+"/api/v1/cart/items", "", `{"product_id":"p1","sku_id":"A","quantity":2}`, &created)
	first := created.Data.Item.ID
	do(t, c, http.MethodPost, env.server.URL+"/api/v1/cart/items", "", `{"product_id":"p2","sku_id":"B","quantity":1}`, &created)
	second := created.Data.Item.ID

	var item struct {
		Data struct {
			SkuID     string          `json:"sku_id"`
			UnitPrice decimal.Decimal `json:"unit_price"`
			Subtotal  decimal.Decimal `json:"subtotal"`
		} `json:"data"`
	}
	if code := do(t, c, http.MethodGet, fmt.Sprintf("%s/api/v1/cart/items/%d", env.server.URL, first), "", "", &item); code != http.StatusOK {
		t.Fatalf("expected 200 got %d", code)
	}
	if item.Data.SkuID != "A" || !item.Data.Subtotal.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("unexpected item %+v", item.Data)
	}
	if code := do(t, env.client(t), http.MethodGet, fmt.Sprintf("%s/api/v1/cart/items/%d", env.server.URL, first), "", "", nil); code != http.StatusNotFound {
		t.Fatalf("expected 404 for another visitor got %d", code)
	}

	var removed struct {
		Data struct {
			Removed int `json:"removed"`
		} `json:"data"`
	}
	body := fmt.Sprintf(`{"ids":[%d,%d]}`, first, second)
	if code := do(t, c, http.MethodDelete, env.server.URL+"/api/v1/cart/items", "", body, &removed); code != http.StatusOK {
		t.Fatalf("expected 200 got %d", code)
	}
	if removed.Data.Removed != 3 {
		t.Fatalf("expected 3 removed got %d", removed.Data.Removed)
	}
	if code := do(t, c, http.MethodDelete, env.server.URL+"/api/v1/cart/items", "", `{"ids":[]}`, nil); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty ids got %d", code)
	}
}

func TestLoginRequiresToken(t *testing.T) {
	env := newTestEnv(t)
	if code := do(t, env.client(t), http.MethodPost, env.server.URL+"/api/v1/cart/login", "", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", code)
	}
	if code := do(t, env.client(t), http.MethodGet, env.server.URL+"/api/v1/cart", "not-a-token", "", nil); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", code)
	}
}

func TestAddItemValidation(t *testing.T) {
	env := newTestEnv(t)
	code := do(t, env.client(t), http.MethodPost, env.server.URL+"/api/v1/cart/items", "", `{"product_id":"p1","quantity":0}`, nil)
	if code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	do(t, c, http.MethodPost, env.server.URL+"/api/v1/basket/items", "", `{"product_id":"p1","sku_id":"A","quantity":1}`, nil)

	resp, err := c.Get(env.server.URL + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.StatusCode)
	}
}
