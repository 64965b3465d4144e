package commonGo

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	logger "github.com/multiversx/mx-chain-logger-go"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

var log = logger.GetOrCreate("commonGo")

// HTTPServer serves a handler on a listen address. A ":0" port is resolved on Start
type HTTPServer struct {
	name       string
	handler    http.Handler
	httpServer *http.Server
	listenAddr string
	wg         sync.WaitGroup
}

// NewHTTPServer creates a server that is not yet listening
func NewHTTPServer(name string, listenAddress string, handler http.Handler) (*HTTPServer, error) {
	if handler == nil {
		return nil, errors.New("nil handler for " + name)
	}

	return &HTTPServer{
		name:       name,
		handler:    handler,
		listenAddr: listenAddress,
	}, nil
}

// Start listens and serves connections on its own go routine
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.listenAddr)
	if err != nil {
		return err
	}
	s.listenAddr = ln.Addr().String()

	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		log.Info("starting "+s.name, "address", s.listenAddr)

		errServe := s.httpServer.Serve(ln)
		if errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			log.Error(s.name+" failed", "error", errServe)
		}
	}()

	return nil
}

// Address returns the actual listen address
func (s *HTTPServer) Address() string {
	return s.listenAddr
}

// Close gracefully stops the server. Closing a server that was never started is a no-op
func (s *HTTPServer) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if s.httpServer != nil {
		err := s.httpServer.Shutdown(ctx)
		if err != nil {
			return err
		}
	}
	s.wg.Wait()

	return nil
}
