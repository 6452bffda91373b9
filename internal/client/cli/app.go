package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/client/backup"
	"github.com/dmitrijs2005/gophnotes/internal/client/config"
	"github.com/dmitrijs2005/gophnotes/internal/client/connectivity"
	"github.com/dmitrijs2005/gophnotes/internal/client/localstore"
	"github.com/dmitrijs2005/gophnotes/internal/client/metrics"
	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/remote"
	"github.com/dmitrijs2005/gophnotes/internal/client/services"
	"github.com/dmitrijs2005/gophnotes/internal/client/session"
	"github.com/dmitrijs2005/gophnotes/internal/client/syncqueue"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/filex"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// healthService is the grpc.health.v1 service name probed when a health
// endpoint is configured. Empty asks for overall server health.
const healthService = ""

// localUser owns the data of runs against the in-memory backend without a token.
const localUser = "local"

// QueueCounter reports the number of queued mutations.
type QueueCounter interface {
	Pending(ctx context.Context) (int, error)
}

// BackupRunner takes one backup and returns its object key.
type BackupRunner interface {
	Run(ctx context.Context) (string, error)
}

type App struct {
	config *config.Config
	logger logging.Logger

	userID string
	pages  *services.PageService
	todos  *services.TodoService
	kms    *services.KMSService
	sync   services.Drainer
	online connectivity.Signal
	queue  QueueCounter
	backup BackupRunner

	// background workers, nil when not configured
	monitor   *connectivity.Monitor
	scheduler *backup.Scheduler
	gatherer  prometheus.Gatherer

	reader *bufio.Reader
	out    io.Writer

	// lastTodos backs id prefix resolution for todo commands.
	lastTodos []models.TodoItem

	closers []io.Closer
}

// NewApp opens the local store and the backend and builds the services.
func NewApp(ctx context.Context, c *config.Config, logger logging.Logger) (*App, error) {
	a := &App{config: c, logger: logger, reader: bufio.NewReader(os.Stdin), out: os.Stdout}
	if err := a.init(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context) error {
	c := a.config

	if c.LocalDBPath() != localstore.MemoryPath {
		if _, err := filex.EnsureDir(c.DataDir); err != nil {
			return err
		}
	}
	store, err := localstore.Open(ctx, c.LocalDBPath(), a.logger)
	if err != nil {
		a.logger.Error(ctx, "error initializing local store", "err", err)
		return err
	}
	a.closers = append(a.closers, store)

	api, err := remote.Open(ctx, c.RemoteDSN, c.RemoteMigrate)
	if err != nil {
		return fmt.Errorf("open backend: %w", err)
	}
	a.closers = append(a.closers, api)

	sess, err := openSession(c)
	if err != nil {
		return err
	}
	a.userID = sess.UserID
	a.logger = a.logger.With("user_id", a.userID)

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	a.gatherer = reg

	proc := syncqueue.New(store.Mutations(), api, a.logger, m)

	var prober connectivity.Prober = api
	if c.HealthEndpoint != "" {
		hp, err := connectivity.DialHealth(c.HealthEndpoint, healthService, sess.Token)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, hp)
		prober = hp
	}
	a.monitor = connectivity.NewMonitor(prober, c.OnlineCheckInterval, a.logger, m)
	a.monitor.OnOnline(func(ctx context.Context) {
		res, err := proc.Drain(ctx)
		if err != nil {
			a.logger.Warn(ctx, "reconnect sync stopped", "remaining", res.Remaining, "err", err)
			return
		}
		a.logger.Info(ctx, "reconnect sync done", "applied", res.Applied, "abandoned", res.Abandoned)
	})

	deps := services.Deps{
		Store:   store,
		API:     api,
		Sync:    proc,
		Online:  a.monitor,
		Logger:  a.logger,
		Metrics: m,
	}
	a.wire(deps, proc)

	if c.Backup.Enabled {
		target, err := backup.NewS3Target(ctx, backup.S3Config{
			Endpoint:  c.Backup.S3Endpoint,
			Region:    c.Backup.S3Region,
			Bucket:    c.Backup.S3Bucket,
			AccessKey: c.Backup.S3AccessKey,
			SecretKey: c.Backup.S3SecretKey,
		})
		if err != nil {
			return err
		}
		svc := backup.NewService(store, target, c.Backup.Passphrase, c.Backup.S3Prefix, a.userID, a.logger)
		a.backup = svc
		a.scheduler = backup.NewScheduler(c.Backup.Schedule, svc, a.logger)
	}
	return nil
}

// wire builds the services on deps.
func (a *App) wire(deps services.Deps, queue QueueCounter) {
	a.pages = services.NewPageService(a.userID, deps)
	a.todos = services.NewTodoService(a.userID, deps)
	a.kms = services.NewKMSService(a.userID, deps)
	a.sync = deps.Sync
	a.online = deps.Online
	a.queue = queue
}

// openSession reads the user id from the configured token. Against the
// in-memory backend a missing token is replaced by a locally minted one.
func openSession(c *config.Config) (*session.Session, error) {
	token := c.AccessToken
	if token == "" {
		if c.RemoteDSN != "" && c.RemoteDSN != remote.MemoryDSN {
			return nil, errors.New("an access token is required for a remote backend")
		}
		t, err := session.GenerateToken(localUser, common.GenerateRandByteArray(32), 24*time.Hour)
		if err != nil {
			return nil, err
		}
		token = t
	}
	return session.FromToken(token, time.Now())
}

// Run starts the background workers and the REPL. It returns when the user
// exits, ctx is cancelled, or a worker fails.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if a.monitor != nil {
		g.Go(func() error { return a.monitor.Run(gctx) })
	}
	if a.scheduler != nil {
		g.Go(func() error { return a.scheduler.Run(gctx) })
	}
	if a.config != nil && a.config.MetricsAddr != "" {
		g.Go(func() error { return metrics.Serve(gctx, a.config.MetricsAddr, a.gatherer, a.logger) })
	}

	// The REPL blocks on stdin, so it is not part of the group.
	replDone := make(chan struct{})
	go func() {
		defer close(replDone)
		a.Root(gctx)
	}()

	select {
	case <-replDone:
	case <-gctx.Done():
	}
	cancel()
	return g.Wait()
}

// Close releases the store, the backend and the probe connection.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) getStatus(ctx context.Context) string {
	mode := "offline"
	if a.online.IsOnline() {
		mode = "online"
	}
	s := a.userID + " " + mode
	if n, err := a.queue.Pending(ctx); err == nil && n > 0 {
		s += fmt.Sprintf(", %d queued", n)
	}
	return fmt.Sprintf("(%s)", s)
}

// Root runs the REPL on the app's input until exit or EOF.
func (a *App) Root(ctx context.Context) {
	a.println("Welcome to GophNotes (type 'help' for commands)")
	runREPL(ctx, a, func() string { return a.getStatus(ctx) }, a.reader)
}

func (a *App) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

func (a *App) println(args ...any) {
	fmt.Fprintln(a.out, args...)
}
