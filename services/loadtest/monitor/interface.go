package monitor

import "github.com/iulianpascalau/api-loadtest/services/loadtest/common"

// ResourceObserver is notified of every resource sample taken
type ResourceObserver interface {
	ObserveResources(sample common.ResourceSample)
	IsInterfaceNil() bool
}
