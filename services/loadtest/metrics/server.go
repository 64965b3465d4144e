package metrics

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/iulianpascalau/api-loadtest/commonGo"
)

type server struct {
	*commonGo.HTTPServer
	router *gin.Engine
}

// NewServer creates the HTTP server exposing the provided metrics handler on /metrics
func NewServer(listenAddress string, handler http.Handler) (*server, error) {
	if handler == nil {
		return nil, errors.New("nil metrics handler")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(handler))

	httpServer, err := commonGo.NewHTTPServer("metrics server", listenAddress, router)
	if err != nil {
		return nil, err
	}

	return &server{
		HTTPServer: httpServer,
		router:     router,
	}, nil
}
