package monitoring

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/core-tools/hsu-supervisor-monitor/pkg/config"
	"github.com/core-tools/hsu-supervisor-monitor/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type TestLogger struct{}

func (l *TestLogger) Debugf(format string, args ...interface{}) {}
func (l *TestLogger) Infof(format string, args ...interface{})  {}
func (l *TestLogger) Warnf(format string, args ...interface{})  {}
func (l *TestLogger) Errorf(format string, args ...interface{}) {}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) ResolvePID(ctx context.Context, program string) (int, error) {
	args := m.Called(ctx, program)
	return args.Int(0), args.Error(1)
}

type MockProbe struct {
	mock.Mock
}

func (m *MockProbe) ResidentMB(ctx context.Context, pid int) (int, error) {
	args := m.Called(ctx, pid)
	return args.Int(0), args.Error(1)
}

// ===== MEMORY CHECK =====

func TestMemoryCheck_OverLimit(t *testing.T) {
	resolver := &MockResolver{}
	probe := &MockProbe{}
	resolver.On("ResolvePID", mock.Anything, "web").Return(4242, nil)
	probe.On("ResidentMB", mock.Anything, 4242).Return(512, nil)

	result := NewMemoryCheck("web", 256, resolver, probe, &TestLogger{}).Check(context.Background())

	assert.False(t, result.Healthy)
	assert.Equal(t, CodeOverLimit, result.Code)
	assert.Contains(t, result.Reason, "512")
	assert.Contains(t, result.Reason, "256")
	assert.Equal(t, "memory 512M > 256M", result.Reason)
	resolver.AssertExpectations(t)
	probe.AssertExpectations(t)
}

func TestMemoryCheck_WithinLimit(t *testing.T) {
	resolver := &MockResolver{}
	probe := &MockProbe{}
	resolver.On("ResolvePID", mock.Anything, "web").Return(4242, nil)
	probe.On("ResidentMB", mock.Anything, 4242).Return(200, nil)

	result := NewMemoryCheck("web", 256, resolver, probe, &TestLogger{}).Check(context.Background())

	assert.True(t, result.Healthy)
	assert.Equal(t, CodeNone, result.Code)
}

func TestMemoryCheck_AtLimitIsHealthy(t *testing.T) {
	resolver := &MockResolver{}
	probe := &MockProbe{}
	resolver.On("ResolvePID", mock.Anything, "web").Return(1, nil)
	probe.On("ResidentMB", mock.Anything, 1).Return(256, nil)

	result := NewMemoryCheck("web", 256, resolver, probe, &TestLogger{}).Check(context.Background())
	assert.True(t, result.Healthy)
}

func TestMemoryCheck_PIDResolutionFails(t *testing.T) {
	resolver := &MockResolver{}
	probe := &MockProbe{}
	resolver.On("ResolvePID", mock.Anything, "web").Return(0, errors.NewNotFoundError("empty pid output", nil))

	check := NewMemoryCheck("web", 256, resolver, probe, &TestLogger{})

	var result Result
	assert.NotPanics(t, func() { result = check.Check(context.Background()) })
	assert.False(t, result.Healthy)
	assert.Equal(t, CodeCheckFailed, result.Code)
	assert.Contains(t, result.Reason, "empty pid output")
	assert.True(t, errors.IsNotFoundError(result.Err))
	probe.AssertNotCalled(t, "ResidentMB", mock.Anything, mock.Anything)
}

func TestMemoryCheck_ProbeFails(t *testing.T) {
	resolver := &MockResolver{}
	probe := &MockProbe{}
	resolver.On("ResolvePID", mock.Anything, "web").Return(4242, nil)
	probe.On("ResidentMB", mock.Anything, 4242).Return(0, errors.NewProbeError("empty memory query output", nil))

	result := NewMemoryCheck("web", 256, resolver, probe, &TestLogger{}).Check(context.Background())

	assert.False(t, result.Healthy)
	assert.Equal(t, CodeCheckFailed, result.Code)
	assert.Contains(t, result.Reason, "pid 4242")
	assert.True(t, errors.IsProbeError(result.Err))
}

func TestMemoryCheck_ResolvesPIDEveryPoll(t *testing.T) {
	resolver := &MockResolver{}
	probe := &MockProbe{}
	resolver.On("ResolvePID", mock.Anything, "web").Return(100, nil).Once()
	resolver.On("ResolvePID", mock.Anything, "web").Return(200, nil).Once()
	probe.On("ResidentMB", mock.Anything, 100).Return(10, nil)
	probe.On("ResidentMB", mock.Anything, 200).Return(10, nil)

	check := NewMemoryCheck("web", 256, resolver, probe, &TestLogger{})
	check.Check(context.Background())
	check.Check(context.Background())

	resolver.AssertNumberOfCalls(t, "ResolvePID", 2)
	probe.AssertCalled(t, "ResidentMB", mock.Anything, 100)
	probe.AssertCalled(t, "ResidentMB", mock.Anything, 200)
}

// ===== ENDPOINT CHECK =====

func TestEndpointCheck_Status(t *testing.T) {
	tests := []struct {
		status  int
		healthy bool
	}{
		{http.StatusOK, true},
		{http.StatusNoContent, true},
		{http.StatusMovedPermanently, true},
		{http.StatusNotFound, true},
		{499, true},
		{http.StatusInternalServerError, false},
		{http.StatusServiceUnavailable, false},
		{599, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodGet, r.Method)
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			// redirects are reported as-is rather than followed
			client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }}
			result := NewEndpointCheck(server.URL, time.Second, client, &TestLogger{}).Check(context.Background())

			assert.Equal(t, tt.healthy, result.Healthy, result.Reason)
			if !tt.healthy {
				assert.Equal(t, CodeHTTPStatus, result.Code)
			}
		})
	}
}

func TestEndpointCheck_ServiceUnavailableReason(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	result := NewEndpointCheck(server.URL+"/health", time.Second, nil, &TestLogger{}).Check(context.Background())

	assert.False(t, result.Healthy)
	assert.Contains(t, result.Reason, "503")
	assert.Equal(t, "HTTP 503 from "+server.URL+"/health", result.Reason)
}

func TestEndpointCheck_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	start := time.Now()
	result := NewEndpointCheck(server.URL, 50*time.Millisecond, nil, &TestLogger{}).Check(context.Background())

	assert.False(t, result.Healthy)
	assert.Equal(t, CodeRequestError, result.Code)
	assert.Contains(t, result.Reason, "request error")
	assert.True(t, errors.IsRequestError(result.Err))
	assert.Less(t, time.Since(start), time.Second)
}

func TestEndpointCheck_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	result := NewEndpointCheck(url, time.Second, nil, &TestLogger{}).Check(context.Background())

	assert.False(t, result.Healthy)
	assert.Equal(t, CodeRequestError, result.Code)
	assert.True(t, errors.IsRequestError(result.Err))
}

// ===== GRPC CHECK =====

func startHealthServer(t *testing.T) (string, *health.Server) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	server := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(server, healthServer)

	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	return listener.Addr().String(), healthServer
}

func TestGRPCCheck(t *testing.T) {
	address, healthServer := startHealthServer(t)
	healthServer.SetServingStatus("api", healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("worker", healthpb.HealthCheckResponse_NOT_SERVING)

	result := NewGRPCCheck(address, "", time.Second, &TestLogger{}).Check(context.Background())
	assert.True(t, result.Healthy, result.Reason)

	result = NewGRPCCheck(address, "api", time.Second, &TestLogger{}).Check(context.Background())
	assert.True(t, result.Healthy, result.Reason)

	result = NewGRPCCheck(address, "worker", time.Second, &TestLogger{}).Check(context.Background())
	assert.False(t, result.Healthy)
	assert.Equal(t, CodeGRPCStatus, result.Code)
	assert.Contains(t, result.Reason, "NOT_SERVING")

	result = NewGRPCCheck(address, "unknown", time.Second, &TestLogger{}).Check(context.Background())
	assert.False(t, result.Healthy)
	assert.Equal(t, CodeRequestError, result.Code)
}

func TestGRPCCheck_Unreachable(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	address := listener.Addr().String()
	require.NoError(t, listener.Close())

	result := NewGRPCCheck(address, "", 200*time.Millisecond, &TestLogger{}).Check(context.Background())

	assert.False(t, result.Healthy)
	assert.Equal(t, CodeRequestError, result.Code)
	assert.True(t, errors.IsRequestError(result.Err))
}

// ===== BUILDER =====

func TestBuildChecks_Order(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ProgramName = "web"
	cfg.GRPCAddress = "127.0.0.1:50051"
	cfg.EndpointURL = "http://127.0.0.1:8080/health"
	cfg.MemoryLimitMB = 256
	require.NoError(t, config.Finalize(cfg, &TestLogger{}))

	checks, err := BuildChecks(cfg, &MockResolver{}, &TestLogger{})
	require.NoError(t, err)
	require.Len(t, checks, 3)
	assert.Equal(t, HealthCheckTypeMemory, checks[0].Type())
	assert.Equal(t, HealthCheckTypeHTTP, checks[1].Type())
	assert.Equal(t, HealthCheckTypeGRPC, checks[2].Type())
}

func TestBuildChecks_NoSignal(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.ProgramName = "web"

	_, err := BuildChecks(cfg, &MockResolver{}, &TestLogger{})
	assert.True(t, errors.IsConfigError(err))
}
