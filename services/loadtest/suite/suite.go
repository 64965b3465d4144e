package suite

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/iulianpascalau/api-loadtest/services/loadtest/common"
	"github.com/iulianpascalau/api-loadtest/services/loadtest/config"
	"github.com/iulianpascalau/api-loadtest/services/loadtest/stress"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

const (
	caseLoginSequential    = "login-sequential"
	caseLoginConcurrent    = "login-concurrent"
	caseLoginSustained     = "login-sustained"
	caseInvalidLogin       = "invalid-login"
	caseInvalidAuth        = "invalid-auth"
	caseValidAuth          = "valid-auth"
	caseFeedbackConcurrent = "feedback-concurrent"
	caseResourceUsage      = "resource-usage"

	invalidAuthToken = "invalid_token"
	numFeedbackNames = 1000
)

var log = logger.GetOrCreate("suite")

// ArgsSuite defines the arguments needed to create a new suite
type ArgsSuite struct {
	Config      config.Config
	Credentials Credentials
	Requester   Requester
	Waiter      ReadinessWaiter
	Engine      StressEngine
	Monitor     ResourceMonitor
	Observer    CaseObserver
}

type testCase struct {
	name    string
	enabled bool
	run     func(ctx context.Context, fixture *Fixture) common.CaseResult
}

type suite struct {
	cfg         config.Config
	credentials Credentials
	requester   Requester
	waiter      ReadinessWaiter
	engine      StressEngine
	monitor     ResourceMonitor
	observer    CaseObserver
}

// NewSuite creates a new suite instance. The observer is optional
func NewSuite(args ArgsSuite) (*suite, error) {
	if check.IfNil(args.Requester) {
		return nil, errNilRequester
	}
	if check.IfNil(args.Waiter) {
		return nil, errNilReadinessWaiter
	}
	if check.IfNil(args.Engine) {
		return nil, errNilStressEngine
	}
	if check.IfNil(args.Monitor) {
		return nil, errNilResourceMonitor
	}
	if len(args.Credentials.Username) == 0 || len(args.Credentials.Password) == 0 {
		return nil, errEmptyCredentials
	}

	return &suite{
		cfg:         args.Config,
		credentials: args.Credentials,
		requester:   args.Requester,
		waiter:      args.Waiter,
		engine:      args.Engine,
		monitor:     args.Monitor,
		observer:    args.Observer,
	}, nil
}

// Run waits for the target, creates the fixture and executes every enabled case in order. A failing case does not
// stop the following ones. The returned error is not nil only if the run could not start
func (s *suite) Run(ctx context.Context) (*common.RunReport, error) {
	if s.cfg.RunTimeout() > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout())
		defer cancel()
	}

	report := &common.RunReport{
		RunID:     uuid.NewString(),
		Target:    s.cfg.TargetURL,
		StartedAt: time.Now(),
		Cases:     make([]common.CaseResult, 0),
	}

	log.Info("waiting for the target", "target", s.cfg.TargetURL, "run", report.RunID)
	err := s.waiter.WaitForReady(ctx)
	if err != nil {
		return nil, err
	}

	fixture, err := s.createFixture(ctx)
	if err != nil {
		return nil, err
	}
	log.Debug("fixture created", "subject", fixture.Subject, "expires at", fixture.ExpiresAt)

	for _, tc := range s.createTestCases() {
		if !tc.enabled {
			log.Debug("case disabled", "case", tc.name)
			continue
		}

		result := s.runCase(ctx, tc, fixture)
		report.Cases = append(report.Cases, result)
		s.logCase(result)

		if !check.IfNil(s.observer) {
			s.observer.ObserveCase(result)
		}
	}

	s.waitGracePeriod(ctx)
	report.FinishedAt = time.Now()

	log.Info("run finished", "run", report.RunID, "cases", len(report.Cases),
		"failed", report.NumFailed(), "duration", report.FinishedAt.Sub(report.StartedAt))

	return report, nil
}

func (s *suite) createTestCases() []testCase {
	cases := s.cfg.Cases

	return []testCase{
		{name: caseLoginSequential, enabled: cases.LoginSequential.Enabled, run: s.runLoginSequential},
		{name: caseLoginConcurrent, enabled: cases.LoginConcurrent.Enabled, run: s.runLoginConcurrent},
		{name: caseLoginSustained, enabled: cases.LoginSustained.Enabled, run: s.runLoginSustained},
		{name: caseInvalidLogin, enabled: cases.InvalidLogin.Enabled, run: s.runInvalidLogin},
		{name: caseInvalidAuth, enabled: cases.InvalidAuth.Enabled, run: s.runInvalidAuth},
		{name: caseValidAuth, enabled: cases.ValidAuth.Enabled, run: s.runValidAuth},
		{name: caseFeedbackConcurrent, enabled: cases.FeedbackConcurrent.Enabled, run: s.runFeedbackConcurrent},
		{name: caseResourceUsage, enabled: cases.ResourceUsage.Enabled, run: s.runResourceUsage},
	}
}

func (s *suite) runCase(ctx context.Context, tc testCase, fixture *Fixture) (result common.CaseResult) {
	log.Info("running case", "case", tc.name)
	start := time.Now()

	defer func() {
		r := recover()
		if r != nil {
			result = common.CaseResult{
				Name:     tc.name,
				Failures: []string{(&errCasePanicked{value: r}).Error()},
			}
		}
		result.Duration = time.Since(start)
	}()

	result = tc.run(ctx, fixture)
	result.Name = tc.name

	return result
}

func (s *suite) logCase(result common.CaseResult) {
	args := []interface{}{"case", result.Name, "duration", result.Duration}
	if result.Aggregate != nil {
		args = append(args, "average", result.Aggregate.Average, "peak", result.Aggregate.Peak,
			"requests", result.Aggregate.Count, "failed requests", result.Aggregate.Failures)
	}
	if result.Resource != nil {
		args = append(args, "average CPU load", result.Resource.AverageCPULoad,
			"peak heap MB", result.Resource.PeakHeapMB(), "samples", result.Resource.Count)
	}

	if result.Passed {
		log.Info("case passed", args...)
		return
	}

	log.Error("case failed", args...)
	for _, failure := range result.Failures {
		log.Error("case failure", "case", result.Name, "reason", failure)
	}
}

func (s *suite) waitGracePeriod(ctx context.Context) {
	if s.cfg.GracePeriod() <= 0 {
		return
	}

	timer := time.NewTimer(s.cfg.GracePeriod())
	defer timer.Stop()

	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (s *suite) runLoginSequential(ctx context.Context, _ *Fixture) common.CaseResult {
	caseCfg := s.cfg.Cases.LoginSequential
	target := loginTarget(s.credentials)
	result := s.engine.RunSequential(ctx, target, caseCfg.Iterations)

	return newLatencyResult(target, result, caseCfg.MaxAverageLatency())
}

func (s *suite) runLoginConcurrent(ctx context.Context, _ *Fixture) common.CaseResult {
	caseCfg := s.cfg.Cases.LoginConcurrent
	target := loginTarget(s.credentials)
	result := s.engine.RunBatched(ctx, target, caseCfg.VirtualUsers, caseCfg.BatchSize, caseCfg.PauseBetweenBatches())

	return newLatencyResult(target, result, caseCfg.MaxAverageLatency())
}

func (s *suite) runLoginSustained(ctx context.Context, _ *Fixture) common.CaseResult {
	caseCfg := s.cfg.Cases.LoginSustained
	target := loginTarget(s.credentials)
	result := s.engine.RunSustained(ctx, target, caseCfg.BatchWidth, caseCfg.Duration())

	return newLatencyResult(target, result, caseCfg.MaxAverageLatency())
}

func (s *suite) runInvalidLogin(ctx context.Context, _ *Fixture) common.CaseResult {
	target := common.EndpointTarget{
		Name:   caseInvalidLogin,
		Method: http.MethodGet,
		Path:   "/login/",
		Query: map[string]string{
			"name":     "invalid",
			"password": "invalid",
		},
		ExpectedStatuses: []int{http.StatusForbidden},
	}
	result := s.engine.RunSingle(ctx, target)

	return newLatencyResult(target, result, s.cfg.Cases.InvalidLogin.MaxLatency())
}

func (s *suite) runInvalidAuth(ctx context.Context, _ *Fixture) common.CaseResult {
	target := authTarget(invalidAuthToken, []int{http.StatusForbidden})
	result := s.engine.RunSingle(ctx, target)

	return newLatencyResult(target, result, s.cfg.Cases.InvalidAuth.MaxLatency())
}

func (s *suite) runValidAuth(ctx context.Context, fixture *Fixture) common.CaseResult {
	target := authTarget(fixture.AuthorizationHeader(), []int{http.StatusOK, http.StatusTooManyRequests})
	result := s.engine.RunSingle(ctx, target)

	return newLatencyResult(target, result, s.cfg.Cases.ValidAuth.MaxLatency())
}

func (s *suite) runFeedbackConcurrent(ctx context.Context, _ *Fixture) common.CaseResult {
	caseCfg := s.cfg.Cases.FeedbackConcurrent
	target := common.EndpointTarget{
		Name:   "feedback",
		Method: http.MethodPost,
		Path:             "/feedback/",
		Body:             newFeedbackBody,
		ExpectedStatuses: []int{http.StatusOK, http.StatusTooManyRequests},
	}
	result := s.engine.RunBatched(ctx, target, caseCfg.VirtualUsers, caseCfg.BatchSize, caseCfg.PauseBetweenBatches())

	processed := countSettled(target, result)
	successRate := 0.0
	if caseCfg.VirtualUsers > 0 {
		successRate = float64(processed) * 100 / float64(caseCfg.VirtualUsers)
	}
	log.Info("feedback processed", "processed", processed, "expected", caseCfg.VirtualUsers,
		"success rate", fmt.Sprintf("%.2f%%", successRate))

	return newLatencyResult(target, result, caseCfg.MaxAverageLatency())
}

func (s *suite) runResourceUsage(ctx context.Context, _ *Fixture) common.CaseResult {
	caseCfg := s.cfg.Cases.ResourceUsage
	samples, err := s.monitor.Monitor(ctx, caseCfg.Window())

	failures := make([]string, 0)
	if err != nil {
		failures = append(failures, err.Error())
	}

	aggregate := common.AggregateResources(samples)
	if aggregate.Count == 0 {
		failures = append(failures, errNoResourceSamples.Error())
	}
	if caseCfg.MaxAverageCPULoad > 0 && aggregate.AverageCPULoad >= caseCfg.MaxAverageCPULoad {
		failures = append(failures, (&errResourceCeiling{
			resource: "average CPU load",
			actual:   aggregate.AverageCPULoad,
			limit:    caseCfg.MaxAverageCPULoad,
		}).Error())
	}
	if caseCfg.MaxPeakHeapInMB > 0 && aggregate.PeakHeapMB() >= caseCfg.MaxPeakHeapInMB {
		failures = append(failures, (&errResourceCeiling{
			resource: "peak heap MB",
			actual:   aggregate.PeakHeapMB(),
			limit:    caseCfg.MaxPeakHeapInMB,
		}).Error())
	}

	return common.CaseResult{
		Passed:   len(failures) == 0,
		Resource: &aggregate,
		Failures: nilIfEmpty(failures),
	}
}

func newLatencyResult(target common.EndpointTarget, result *stress.Result, maxAverage time.Duration) common.CaseResult {
	aggregate := result.Aggregate()
	errs := stress.Evaluate(target, result, maxAverage)

	failures := make([]string, 0, len(errs))
	for _, err := range errs {
		failures = append(failures, err.Error())
	}

	return common.CaseResult{
		Passed:    len(errs) == 0,
		Aggregate: &aggregate,
		Failures:  nilIfEmpty(failures),
	}
}

// countSettled returns the number of responses received with an accepted status
func countSettled(target common.EndpointTarget, result *stress.Result) int {
	settled := 0
	for _, sample := range result.Samples {
		if sample.Completed() && target.Accepts(sample.StatusCode) {
			settled++
		}
	}

	return settled
}

func authTarget(authorization string, expected []int) common.EndpointTarget {
	return common.EndpointTarget{
		Name:   "auth",
		Method: http.MethodGet,
		Path:   "/auth/",
		Headers: map[string]string{
			"Authorization": authorization,
		},
		ExpectedStatuses: expected,
	}
}

func newFeedbackBody() interface{} {
	return map[string]string{
		"name":    fmt.Sprintf("test%d", rand.Intn(numFeedbackNames)),
		"message": "test",
	}
}

func nilIfEmpty(failures []string) []string {
	if len(failures) == 0 {
		return nil
	}

	return failures
}

// IsInterfaceNil returns true if the value under the interface is nil
func (s *suite) IsInterfaceNil() bool {
	return s == nil
}
