package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sethvargo/go-retry"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/restcall"
	"github.com/vietddude/restcall/breaker"
	"github.com/vietddude/restcall/internal/config"
	"github.com/vietddude/restcall/pgprops"
	"github.com/vietddude/restcall/properties"
	"github.com/vietddude/restcall/rediscache"
)

// multiFlag collects a repeatable key=value flag.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(value string) error {
	*m = append(*m, value)
	return nil
}

func main() {
	// Parse flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	method := flag.String("method", "GET", "HTTP method: GET, POST, PUT or DELETE")
	path := flag.String("path", "", "Resource path, must begin with /")
	operation := flag.String("operation", "", "Operation name used for settings lookup and metrics")
	body := flag.String("body", "", "Request body for POST/PUT")
	contentType := flag.String("content-type", "", "Request body content type")
	cacheKey := flag.String("cache-key", "", "Cache key for response caching")
	retries := flag.Int("retries", 0, "Retries for transient failures")
	isDebug := flag.Bool("debug", false, "Enable debug logging")

	var queries, headers multiFlag
	flag.Var(&queries, "query", "Query parameter as key=value (repeatable)")
	flag.Var(&headers, "header", "Request header as name=value (repeatable)")
	flag.Parse()

	_ = godotenv.Load()

	// Load Configuration first (before setting up logger)
	cfg, err := config.Load(*configPath)
	if err != nil {
		// Fall back to default logger for config load errors
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	if *isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}

	// Initialize stylelog with tint.Options for level control
	stylelog.InitDefault(
		&tint.Options{
			Level:      slogLevel,
			TimeFormat: time.RFC3339,
		})

	if *path == "" || *operation == "" {
		slog.Error("Both -path and -operation are required")
		flag.Usage()
		os.Exit(2)
	}

	queryParams, err := parsePairs(queries)
	if err != nil {
		slog.Error("Invalid -query flag", "error", err)
		os.Exit(2)
	}
	headerPairs, err := parsePairs(headers)
	if err != nil {
		slog.Error("Invalid -header flag", "error", err)
		os.Exit(2)
	}

	// A set but empty -body still counts as a provided payload.
	var bodyBytes []byte
	bodySet := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "body" {
			bodySet = true
		}
	})
	if bodySet {
		bodyBytes = make([]byte, len(*body))
		copy(bodyBytes, *body)
	}

	// Setup Context with Cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle OS Signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		slog.Info("Received signal, cancelling call", "signal", sig)
		cancel()
	}()

	// Assemble property sources in precedence order
	var sources []properties.Source
	var store *pgprops.Store
	if cfg.Properties.Postgres.URL != "" {
		store, err = pgprops.Open(ctx, cfg.Properties.Postgres)
		if err != nil {
			slog.Error("Failed to init property store", "error", err)
			os.Exit(1)
		}
		sources = append(sources, store)
	}
	if cfg.Properties.File != "" {
		fileSource, err := properties.NewFile(cfg.Properties.File)
		if err != nil {
			slog.Error("Failed to load properties file", "error", err)
			os.Exit(1)
		}
		sources = append(sources, fileSource)
	}
	if cfg.Properties.UseEnv {
		sources = append(sources, properties.Env{Prefix: cfg.Properties.EnvPrefix})
	}
	var props restcall.PropertySource
	if len(sources) > 0 {
		props = properties.NewChain(sources...)
	}

	var executor restcall.ProtectedExecutor
	if cfg.Breaker.Enabled {
		executor = breaker.New(breaker.Config{
			MaxRequests:      uint32(cfg.Breaker.MaxRequests),
			Interval:         time.Duration(cfg.Breaker.IntervalSeconds) * time.Second,
			OpenTimeout:      time.Duration(cfg.Breaker.OpenTimeoutSeconds) * time.Second,
			FailureThreshold: uint32(cfg.Breaker.FailureThreshold),
			ExecutionTimeout: time.Duration(cfg.Breaker.ExecutionTimeoutMillis) * time.Millisecond,
		})
	}

	var cache restcall.Cache
	var redisCache *rediscache.Cache
	switch cfg.Client.Cache {
	case "redis":
		redisCache, err = rediscache.New(cfg.Redis)
		if err != nil {
			slog.Error("Failed to init redis cache", "error", err)
			os.Exit(1)
		}
		cache = redisCache
	case "memory":
		cache = restcall.NewMemoryCache(time.Duration(cfg.Client.CacheTTLSeconds) * time.Second)
	case "":
	default:
		slog.Error("Unknown cache backend", "cache", cfg.Client.Cache)
		os.Exit(1)
	}

	collector := restcall.NewCollector()
	collector.MustRegister(prometheus.DefaultRegisterer)

	client, err := restcall.New(restcall.Config{
		Endpoint:        cfg.Client.Endpoint,
		Group:           cfg.Client.Group,
		PrependGroupKey: cfg.Client.PrependGroupKey,
		Properties:      props,
		Executor:        executor,
		Metrics:         collector,
	})
	if err != nil {
		slog.Error("Failed to init client", "error", err)
		os.Exit(1)
	}

	dispatch := client.Do
	if cache != nil {
		cached, err := restcall.NewCached(client, cache)
		if err != nil {
			slog.Error("Failed to init cached client", "error", err)
			os.Exit(1)
		}
		dispatch = cached.Do
	}

	call := restcall.ResourceCall{
		Method:       strings.ToUpper(*method),
		ResourcePath: *path,
		Operation:    *operation,
		QueryParams:  queryParams,
		Headers:      headerPairs,
		Body:         bodyBytes,
		ContentType:  *contentType,
		CacheKey:     *cacheKey,
	}

	backoff := retry.WithMaxRetries(uint64(*retries), retry.NewFibonacci(500*time.Millisecond))

	var resp *restcall.Response
	callErr := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var doErr error
		resp, doErr = dispatch(ctx, call)
		if doErr != nil && restcall.IsTransient(doErr) {
			return retry.RetryableError(doErr)
		}
		return doErr
	})

	if store != nil {
		if err := store.Close(); err != nil {
			slog.Warn("Failed to close property store", "error", err)
		}
	}
	if redisCache != nil {
		if err := redisCache.Close(); err != nil {
			slog.Warn("Failed to close redis cache", "error", err)
		}
	}

	if callErr != nil {
		slog.Error("Call failed", "operation", *operation, "error", callErr)
		os.Exit(exitCode(callErr))
	}

	slog.Info("Call succeeded", "operation", *operation, "status", resp.StatusCode)
	if len(resp.Body) > 0 {
		fmt.Println(string(resp.Body))
	}
}

// parsePairs turns key=value strings into a map.
func parsePairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("expected key=value, got %q", pair)
		}
		out[key] = value
	}
	return out, nil
}

// exitCode maps the failure taxonomy onto distinct exit codes so shell
// callers can branch on the failure class.
func exitCode(err error) int {
	var (
		protocolErr  *restcall.ProtocolError
		constructErr *restcall.ConstructionError
		clientErr    *restcall.ClientSideError
		conflictErr  *restcall.ConflictError
		serverErr    *restcall.ServerSideError
		connErr      *restcall.ConnectionError
		endpointErr  *restcall.EndpointError
		readErr      *restcall.ReadError
	)
	switch {
	case errors.As(err, &protocolErr), errors.As(err, &constructErr):
		return 2
	case errors.As(err, &clientErr):
		return 3
	case errors.As(err, &conflictErr):
		return 4
	case errors.As(err, &serverErr):
		return 5
	case errors.As(err, &connErr):
		return 6
	case errors.As(err, &endpointErr):
		return 7
	case errors.As(err, &readErr):
		return 8
	default:
		return 1
	}
}
