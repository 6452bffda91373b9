package connectivity

import (
	"context"
	"net"
	"sync"
	"testing"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/test/bufconn"
)

type tokenRecorder struct {
	mu   sync.Mutex
	seen []string
}

func (r *tokenRecorder) intercept(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	md, _ := metadata.FromIncomingContext(ctx)
	r.mu.Lock()
	r.seen = append(r.seen, md.Get(AccessTokenHeader)...)
	r.mu.Unlock()
	return handler(ctx, req)
}

func startHealthServer(t *testing.T) (*health.Server, *bufconn.Listener, *tokenRecorder) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	rec := &tokenRecorder{}
	srv := grpc.NewServer(grpc.UnaryInterceptor(rec.intercept))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)
	return hs, lis, rec
}

func dialBuf(t *testing.T, lis *bufconn.Listener, token string) *GRPCHealthProber {
	t.Helper()
	p, err := DialHealth("passthrough:///bufnet", "", token,
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func TestGRPCHealthProber_Serving(t *testing.T) {
	_, lis, rec := startHealthServer(t)
	p := dialBuf(t, lis, "tok")

	require.NoError(t, p.Ping(context.Background()))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, []string{"Bearer tok"}, rec.seen)
}

func TestGRPCHealthProber_NotServing(t *testing.T) {
	hs, lis, _ := startHealthServer(t)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	p := dialBuf(t, lis, "")

	err := p.Ping(context.Background())
	require.ErrorIs(t, err, common.ErrRemoteUnavailable)
}

func TestGRPCHealthProber_ServerGone(t *testing.T) {
	_, lis, _ := startHealthServer(t)
	p := dialBuf(t, lis, "")
	require.NoError(t, lis.Close())

	err := p.Ping(context.Background())
	require.ErrorIs(t, err, common.ErrRemoteUnavailable)
}
