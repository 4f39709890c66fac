package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sundayezeilo/shortlinks/internal/auth"
	"github.com/sundayezeilo/shortlinks/internal/config"
	"github.com/sundayezeilo/shortlinks/internal/db/migrations"
	db "github.com/sundayezeilo/shortlinks/internal/db/sqlc"
	"github.com/sundayezeilo/shortlinks/internal/health"
	"github.com/sundayezeilo/shortlinks/internal/httpx"
	"github.com/sundayezeilo/shortlinks/internal/metrics"
	"github.com/sundayezeilo/shortlinks/internal/server"
	"github.com/sundayezeilo/shortlinks/internal/shortener"
	"github.com/sundayezeilo/shortlinks/sluggen"
)

const (
	testSecret = "e2e-signing-secret-0123456789"
	testIssuer = "shortlinks-e2e"
)

// testApp is the service wired against a real PostgreSQL container and served
// over a loopback listener.
type testApp struct {
	srv     *httptest.Server
	dbPool  *pgxpool.Pool
	baseURL string
	issuer  *auth.Issuer
	client  *http.Client
}

func setupTestApp(t *testing.T, allowAnonymous bool) *testApp {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping e2e test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, migrations.Up(connStr), "failed to run migrations")

	poolConfig, err := pgxpool.ParseConfig(connStr)
	require.NoError(t, err)
	poolConfig.MaxConns = 20
	poolConfig.MinConns = 2

	dbPool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	require.NoError(t, err)
	t.Cleanup(dbPool.Close)
	require.NoError(t, dbPool.Ping(ctx))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	baseURL := "http://sho.rt.test"

	registry, registerer := metrics.NewRegistry("shortlinks-e2e", "test")
	shortenerMetrics := shortener.NewMetrics(registerer)
	registerer.MustRegister(metrics.NewPoolStatsCollector(dbPool, "testdb"))

	repo := shortener.NewRepository(db.New(dbPool), &shortener.RepositoryConfig{Metrics: shortenerMetrics})
	svc := shortener.NewService(repo, &shortener.ServiceConfig{Metrics: shortenerMetrics, Logger: logger})
	clicks := shortener.NewClickAccountant(repo, &shortener.ClickAccountantConfig{Metrics: shortenerMetrics, Logger: logger})
	handler := shortener.NewHandler(shortener.HandlerConfig{
		Service: svc,
		Visits:  clicks,
		Logger:  logger,
		BaseURL: baseURL + "/",
	})

	checker := health.NewChecker(time.Second)
	checker.Add("postgres", dbPool)

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:            "0",
			Host:            "127.0.0.1",
			BaseURL:         baseURL,
			ShutdownTimeout: 5 * time.Second,
		},
		App:           config.AppConfig{Environment: "test", LogLevel: "error"},
		Observability: config.ObservabilityConfig{ServiceName: "shortlinks-e2e", ServiceVersion: "test"},
		Auth:          config.AuthConfig{JWTSecret: testSecret, JWTIssuer: testIssuer, AllowAnonymous: allowAnonymous},
	}

	srv := server.New(cfg, logger, server.Deps{
		Handler:       handler,
		Authenticator: auth.NewJWTAuthenticator([]byte(testSecret), testIssuer),
		Checker:       checker,
		Registry:      registry,
		HTTPMetrics:   httpx.NewHTTPMetrics(registerer),
	})

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testApp{
		srv:     ts,
		dbPool:  dbPool,
		baseURL: baseURL,
		issuer:  auth.NewIssuer([]byte(testSecret), testIssuer, time.Hour),
		client: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (a *testApp) token(t *testing.T, owner string) string {
	t.Helper()
	tok, err := a.issuer.Issue(owner)
	require.NoError(t, err)
	return tok
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	resp, err := a.send(method, path, token, body)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// send performs a request without touching t, so it is safe to call from
// goroutines other than the test's own. Callers close the body.
func (a *testApp) send(method, path, token string, body any) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, a.srv.URL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return a.client.Do(req)
}

// sendStatus is send for callers that only need the status code.
func (a *testApp) sendStatus(method, path, token string, body any) (int, error) {
	resp, err := a.send(method, path, token, body)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (a *testApp) countLinks(t *testing.T) int {
	t.Helper()
	var n int
	require.NoError(t, a.dbPool.QueryRow(context.Background(), "SELECT count(*) FROM links").Scan(&n))
	return n
}

func TestHealthAndMetrics(t *testing.T) {
	app := setupTestApp(t, false)

	resp := app.do(t, http.MethodGet, "/x/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	report := decode[health.HTTPResponse](t, resp)
	require.Equal(t, health.StatusOK, report.Status)
	require.Equal(t, "shortlinks-e2e", report.Service)

	resp = app.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "db_pool_max_conns")
	require.Contains(t, string(body), `route="GET /x/health"`)
}

func TestCreateRedirectStats(t *testing.T) {
	app := setupTestApp(t, false)
	tok := app.token(t, "alice")

	resp := app.do(t, http.MethodPost, "/shorten", tok, shortener.ShortenRequest{Destination: "https://example.com/a"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decode[shortener.ShortenResponse](t, resp)
	require.Len(t, created.Code, shortener.DefaultCodeLength)
	require.True(t, sluggen.Matches(created.Code, sluggen.Base62), created.Code)
	require.Equal(t, app.baseURL+"/"+created.Code, created.ShortURL)
	require.Equal(t, "https://example.com/a", created.Destination)

	for range 3 {
		resp = app.do(t, http.MethodGet, "/"+created.Code, "", nil)
		require.Equal(t, http.StatusFound, resp.StatusCode)
		require.Equal(t, "https://example.com/a", resp.Header.Get("Location"))
	}

	resp = app.do(t, http.MethodGet, "/stats/"+created.Code, "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode[shortener.StatsResponse](t, resp)
	require.EqualValues(t, 3, stats.Clicks)
	require.Equal(t, created.ShortURL, stats.ShortURL)
	require.WithinDuration(t, time.Now(), stats.CreatedAt, time.Minute)

	resp = app.do(t, http.MethodGet, "/missing1", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = app.do(t, http.MethodGet, "/stats/missing1", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestInvalidDestinationPersistsNothing(t *testing.T) {
	app := setupTestApp(t, false)
	tok := app.token(t, "alice")

	for _, dest := range []string{
		"not a url",
		"ftp://example.com/file",
		"example.com",
		"",
		"https://example.com/path with space",
		"https://example.com/<script>",
		"https://example.com:99999",
		"https://example.com:/a",
		"http://-",
		"https://.",
	} {
		resp := app.do(t, http.MethodPost, "/shorten", tok, shortener.ShortenRequest{Destination: dest})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, dest)
	}
	require.Zero(t, app.countLinks(t))
}

func TestSameOwnerGetsSameCode(t *testing.T) {
	app := setupTestApp(t, true)
	alice, bob := app.token(t, "alice"), app.token(t, "bob")
	req := shortener.ShortenRequest{Destination: "https://example.com/shared"}

	first := app.do(t, http.MethodPost, "/shorten", alice, req)
	require.Equal(t, http.StatusCreated, first.StatusCode)
	firstBody := decode[shortener.ShortenResponse](t, first)

	again := app.do(t, http.MethodPost, "/shorten", alice, req)
	require.Equal(t, http.StatusOK, again.StatusCode)
	require.Equal(t, firstBody.Code, decode[shortener.ShortenResponse](t, again).Code)

	other := app.do(t, http.MethodPost, "/shorten", bob, req)
	require.Equal(t, http.StatusCreated, other.StatusCode)
	require.NotEqual(t, firstBody.Code, decode[shortener.ShortenResponse](t, other).Code)

	// Anonymous callers always get a fresh link.
	anon1 := decode[shortener.ShortenResponse](t, app.do(t, http.MethodPost, "/shorten", "", req))
	anon2 := decode[shortener.ShortenResponse](t, app.do(t, http.MethodPost, "/shorten", "", req))
	require.NotEqual(t, anon1.Code, anon2.Code)

	require.Equal(t, 4, app.countLinks(t))
}

func TestCustomCodes(t *testing.T) {
	app := setupTestApp(t, false)
	alice, bob := app.token(t, "alice"), app.token(t, "bob")

	resp := app.do(t, http.MethodPost, "/shorten", alice, shortener.ShortenRequest{
		Destination: "https://example.com/custom",
		CustomCode:  "my-custom_code",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "my-custom_code", decode[shortener.ShortenResponse](t, resp).Code)

	resp = app.do(t, http.MethodPost, "/shorten", bob, shortener.ShortenRequest{
		Destination: "https://example.com/other",
		CustomCode:  "my-custom_code",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
	require.Equal(t, "code_taken", decode[httpx.ErrorResponse](t, resp).Error)

	for _, code := range []string{"stats", "History", "ab", "-lead", "sp ace"} {
		resp = app.do(t, http.MethodPost, "/shorten", alice, shortener.ShortenRequest{
			Destination: "https://example.com/reserved",
			CustomCode:  code,
		})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode, code)
	}
}

func TestConcurrentCustomCodeRace(t *testing.T) {
	app := setupTestApp(t, false)

	owners := []string{"alice", "bob"}
	statuses := make([]int, len(owners))
	errs := make([]error, len(owners))
	var wg sync.WaitGroup
	for i, owner := range owners {
		tok := app.token(t, owner)
		wg.Go(func() {
			statuses[i], errs[i] = app.sendStatus(http.MethodPost, "/shorten", tok, shortener.ShortenRequest{
				Destination: "https://example.com/race/" + owner,
				CustomCode:  "contested",
			})
		})
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	require.ElementsMatch(t, []int{http.StatusCreated, http.StatusConflict}, statuses)
	require.Equal(t, 1, app.countLinks(t))
}

func TestConcurrentVisitsAreCountedExactly(t *testing.T) {
	app := setupTestApp(t, false)

	resp := app.do(t, http.MethodPost, "/shorten", app.token(t, "alice"), shortener.ShortenRequest{
		Destination: "https://example.com/popular",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	code := decode[shortener.ShortenResponse](t, resp).Code

	const visits = 50
	statuses := make([]int, visits)
	errs := make([]error, visits)
	var wg sync.WaitGroup
	for i := range visits {
		wg.Go(func() {
			statuses[i], errs[i] = app.sendStatus(http.MethodGet, "/"+code, "", nil)
		})
	}
	wg.Wait()

	for i := range visits {
		require.NoError(t, errs[i])
		require.Equal(t, http.StatusFound, statuses[i])
	}

	stats := decode[shortener.StatsResponse](t, app.do(t, http.MethodGet, "/stats/"+code, "", nil))
	require.EqualValues(t, visits, stats.Clicks)
}

func TestHistoryRequiresAuth(t *testing.T) {
	app := setupTestApp(t, false)
	alice, bob := app.token(t, "alice"), app.token(t, "bob")

	resp := app.do(t, http.MethodGet, "/history", "", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.NotEmpty(t, resp.Header.Get("WWW-Authenticate"))

	resp = app.do(t, http.MethodGet, "/history", "not-a-jwt", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = app.do(t, http.MethodPost, "/shorten", "", shortener.ShortenRequest{Destination: "https://example.com"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	for _, dest := range []string{"https://example.com/1", "https://example.com/2"} {
		resp = app.do(t, http.MethodPost, "/shorten", alice, shortener.ShortenRequest{Destination: dest})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	resp = app.do(t, http.MethodPost, "/shorten", bob, shortener.ShortenRequest{Destination: "https://example.com/3"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = app.do(t, http.MethodGet, "/history", alice, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := decode[[]shortener.HistoryItem](t, resp)
	require.Len(t, items, 2)
	for _, it := range items {
		require.Equal(t, "alice", it.OwnerID)
		require.Equal(t, app.baseURL+"/"+it.Code, it.ShortURL)
	}

	resp = app.do(t, http.MethodGet, "/history", app.token(t, "carol"), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Empty(t, decode[[]shortener.HistoryItem](t, resp))
}

func TestReservedPathsAreNotCodes(t *testing.T) {
	app := setupTestApp(t, false)

	resp := app.do(t, http.MethodGet, "/shorten", "", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = app.do(t, http.MethodGet, "/x/health", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
}
