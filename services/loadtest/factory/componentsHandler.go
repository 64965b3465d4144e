package factory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/iulianpascalau/api-loadtest/services/loadtest/client"
	"github.com/iulianpascalau/api-loadtest/services/loadtest/common"
	"github.com/iulianpascalau/api-loadtest/services/loadtest/config"
	"github.com/iulianpascalau/api-loadtest/services/loadtest/metrics"
	"github.com/iulianpascalau/api-loadtest/services/loadtest/mock"
	"github.com/iulianpascalau/api-loadtest/services/loadtest/monitor"
	"github.com/iulianpascalau/api-loadtest/services/loadtest/readiness"
	"github.com/iulianpascalau/api-loadtest/services/loadtest/reporter"
	"github.com/iulianpascalau/api-loadtest/services/loadtest/storage"
	"github.com/iulianpascalau/api-loadtest/services/loadtest/stress"
	"github.com/iulianpascalau/api-loadtest/services/loadtest/suite"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

const maxStoredRuns = 100

var log = logger.GetOrCreate("factory")

// ArgsComponentsHandler defines the arguments needed to create the components handler
type ArgsComponentsHandler struct {
	Config       config.Config
	Credentials  suite.Credentials
	ReportAPIKey string
	StartMock    bool
}

type componentsHandler struct {
	cfg           config.Config
	metrics       HarnessMetrics
	suite         Suite
	storage       RunStorage
	reporter      Reporter
	metricsServer HTTPServer
	mockTarget    HTTPServer
	mutStarted    sync.Mutex
	started       bool
}

// NewComponentsHandler creates all the harness components. When the mock target is requested, it is started here
// so the harness can be pointed at its actual address
func NewComponentsHandler(args ArgsComponentsHandler) (*componentsHandler, error) {
	ch := &componentsHandler{
		cfg:     args.Config,
		metrics: metrics.NewHarnessMetrics(),
	}

	var err error
	defer func() {
		if err != nil {
			ch.Close()
		}
	}()

	if args.StartMock {
		err = ch.createMockTarget(args.Credentials)
		if err != nil {
			return nil, err
		}
	}

	ch.suite, err = ch.createSuite(args.Credentials)
	if err != nil {
		return nil, err
	}

	if len(ch.cfg.ResultsDatabasePath) > 0 {
		runStorage, errCreate := storage.NewSQLiteStorage(ch.cfg.ResultsDatabasePath, maxStoredRuns)
		if errCreate != nil {
			err = errCreate
			return nil, err
		}
		ch.storage = runStorage
	}

	if len(ch.cfg.ReportEndpoint) > 0 {
		runReporter, errCreate := reporter.NewHTTPReporter(ch.cfg.ReportEndpoint, args.ReportAPIKey, ch.cfg.ReportName, ch.cfg.ReportTimeout())
		if errCreate != nil {
			err = errCreate
			return nil, err
		}
		ch.reporter = runReporter
	}

	if len(ch.cfg.MetricsListenAddress) > 0 {
		metricsServer, errCreate := metrics.NewServer(ch.cfg.MetricsListenAddress, ch.metrics.Handler())
		if errCreate != nil {
			err = errCreate
			return nil, err
		}
		ch.metricsServer = metricsServer
	}

	return ch, nil
}

func (ch *componentsHandler) createMockTarget(credentials suite.Credentials) error {
	mockTarget, err := mock.NewServer(mock.ArgsMockServer{
		Username:          credentials.Username,
		Password:          credentials.Password,
		ListenAddress:     ch.cfg.Mock.ListenAddress,
		RequestsPerSecond: ch.cfg.Mock.RequestsPerSecond,
		Burst:             ch.cfg.Mock.Burst,
		TokenTTL:          time.Duration(ch.cfg.Mock.TokenTTLInSeconds) * time.Second,
	})
	if err != nil {
		return err
	}

	err = mockTarget.Start()
	if err != nil {
		return err
	}

	ch.mockTarget = mockTarget
	ch.cfg.TargetURL = mockTarget.URL()
	log.Info("harness pointed at the mock target", "target", ch.cfg.TargetURL)

	return nil
}

func (ch *componentsHandler) createSuite(credentials suite.Credentials) (Suite, error) {
	requester, err := client.NewHTTPRequester(client.ArgsHTTPRequester{
		BaseURL:  ch.cfg.TargetURL,
		Timeout:  ch.cfg.RequestTimeout(),
		Observer: ch.metrics,
	})
	if err != nil {
		return nil, err
	}

	waiter, err := readiness.NewReadinessWaiter(readiness.ArgsReadinessWaiter{
		Requester: requester,
		Path:      ch.cfg.Readiness.Path,
		Attempts:  ch.cfg.Readiness.Attempts,
		Interval:  ch.cfg.Readiness.Interval(),
	})
	if err != nil {
		return nil, err
	}

	engine, err := stress.NewStressEngine(requester)
	if err != nil {
		return nil, err
	}

	sampler, err := monitor.NewResourceMonitor(monitor.ArgsResourceMonitor{
		Period:   ch.cfg.Cases.ResourceUsage.SampleInterval(),
		Observer: ch.metrics,
	})
	if err != nil {
		return nil, err
	}

	return suite.NewSuite(suite.ArgsSuite{
		Config:      ch.cfg,
		Credentials: credentials,
		Requester:   requester,
		Waiter:      waiter,
		Engine:      engine,
		Monitor:     sampler,
		Observer:    ch.metrics,
	})
}

// GetSuite returns the suite component
func (ch *componentsHandler) GetSuite() Suite {
	return ch.suite
}

// GetStorage returns the run history store, nil if not configured
func (ch *componentsHandler) GetStorage() RunStorage {
	return ch.storage
}

// GetMetricsServer returns the metrics server, nil if not configured
func (ch *componentsHandler) GetMetricsServer() HTTPServer {
	return ch.metricsServer
}

// GetMockTarget returns the mock target, nil if not requested
func (ch *componentsHandler) GetMockTarget() HTTPServer {
	return ch.mockTarget
}

// TargetURL returns the URL the harness is pointed at
func (ch *componentsHandler) TargetURL() string {
	return ch.cfg.TargetURL
}

// Start starts the inner servers
func (ch *componentsHandler) Start() error {
	ch.mutStarted.Lock()
	defer ch.mutStarted.Unlock()

	if ch.started {
		return nil
	}

	if ch.metricsServer != nil {
		err := ch.metricsServer.Start()
		if err != nil {
			return err
		}
	}

	ch.started = true

	return nil
}

// Run executes the suite once and publishes its report to the configured outputs. Publishing failures are
// logged and do not change the run outcome. An interrupted run still publishes the cases it completed
func (ch *componentsHandler) Run(ctx context.Context) (*common.RunReport, error) {
	report, err := ch.suite.Run(ctx)
	if err != nil {
		return nil, err
	}

	ch.publish(context.WithoutCancel(ctx), report)

	return report, nil
}

func (ch *componentsHandler) publish(ctx context.Context, report *common.RunReport) {
	if ch.cfg.ReportTimeout() > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ch.cfg.ReportTimeout())
		defer cancel()
	}

	if !check.IfNil(ch.storage) {
		errSave := ch.storage.SaveRunReport(ctx, report)
		if errSave != nil {
			log.Error("failed to store run report", "run", report.RunID, "error", errSave)
		}
	}

	if !check.IfNil(ch.reporter) {
		errReport := ch.reporter.Report(ctx, report)
		if errReport != nil {
			log.Error("failed to push run report", "run", report.RunID, "error", errReport)
		}
	}
}

// Close closes the inner components
func (ch *componentsHandler) Close() {
	ch.mutStarted.Lock()
	defer ch.mutStarted.Unlock()

	var errs []error
	if ch.metricsServer != nil {
		errs = append(errs, ch.metricsServer.Close())
	}
	if !check.IfNil(ch.storage) {
		errs = append(errs, ch.storage.Close())
	}
	if ch.mockTarget != nil {
		errs = append(errs, ch.mockTarget.Close())
	}

	err := errors.Join(errs...)
	if err != nil {
		log.Warn("error closing components", "error", err)
	}

	ch.started = false
}
