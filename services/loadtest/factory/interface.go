package factory

import (
	"context"
	"net/http"

	"github.com/iulianpascalau/api-loadtest/services/loadtest/common"
	"github.com/iulianpascalau/api-loadtest/services/loadtest/storage"
)

// Suite defines the harness run operation
type Suite interface {
	Run(ctx context.Context) (*common.RunReport, error)
	IsInterfaceNil() bool
}

// RunStorage defines the run history store
type RunStorage interface {
	SaveRunReport(ctx context.Context, report *common.RunReport) error
	GetRecentRuns(ctx context.Context, limit int) ([]storage.RunSummary, error)
	GetRunReport(ctx context.Context, runID string) (*common.RunReport, error)
	Close() error
	IsInterfaceNil() bool
}

// Reporter defines the component able to push a run outcome to a remote endpoint
type Reporter interface {
	Report(ctx context.Context, report *common.RunReport) error
	IsInterfaceNil() bool
}

// HTTPServer defines an HTTP server owned by the components handler
type HTTPServer interface {
	Start() error
	Address() string
	Close() error
}

// HarnessMetrics collects the request, resource and case observations and exposes them over HTTP
type HarnessMetrics interface {
	ObserveRequest(endpoint string, sample common.TimingSample)
	ObserveResources(sample common.ResourceSample)
	ObserveCase(result common.CaseResult)
	Handler() http.Handler
	IsInterfaceNil() bool
}
