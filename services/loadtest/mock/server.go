package mock

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/iulianpascalau/api-loadtest/commonGo"
	logger "github.com/multiversx/mx-chain-logger-go"
	"golang.org/x/time/rate"
)

const bearerPrefix = "Bearer "

var log = logger.GetOrCreate("mock")

type server struct {
	*commonGo.HTTPServer
	router      *gin.Engine
	limiter     *rate.Limiter
	username    string
	password    string
	tokenTTL    time.Duration
	jwtSecret   []byte
	numFeedback uint64
}

// ArgsMockServer defines the mock target arguments
type ArgsMockServer struct {
	Username          string
	Password          string
	ListenAddress     string
	RequestsPerSecond float64
	Burst             int
	TokenTTL          time.Duration
}

type feedbackRequest struct {
	Name    string `json:"name" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// NewServer creates a stand-in for the target API exposing the status, login, auth and feedback endpoints.
// Successful login and feedback calls are rate limited and answered with 429 once the limit is hit
func NewServer(args ArgsMockServer) (*server, error) {
	if len(args.Username) == 0 || len(args.Password) == 0 {
		return nil, errors.New("empty credentials")
	}
	if args.RequestsPerSecond <= 0 || args.Burst <= 0 {
		return nil, errors.New("invalid rate limit")
	}
	if args.TokenTTL <= 0 {
		return nil, errors.New("invalid token TTL")
	}

	jwtSecret := make([]byte, 32)
	if _, err := rand.Read(jwtSecret); err != nil {
		return nil, fmt.Errorf("failed to generate secret: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	httpServer, err := commonGo.NewHTTPServer("mock target", args.ListenAddress, router)
	if err != nil {
		return nil, err
	}

	s := &server{
		HTTPServer: httpServer,
		router:     router,
		limiter:    rate.NewLimiter(rate.Limit(args.RequestsPerSecond), args.Burst),
		username:   args.Username,
		password:   args.Password,
		tokenTTL:   args.TokenTTL,
		jwtSecret:  jwtSecret,
	}

	s.setupRoutes()
	return s, nil
}

func (s *server) setupRoutes() {
	s.router.GET("/status", s.handleStatus)
	s.router.GET("/login/", s.handleLogin)
	s.router.GET("/auth/", s.handleAuth)
	s.router.POST("/feedback/", s.rateLimit(), s.handleFeedback)
}

// URL returns the base URL of the started server
func (s *server) URL() string {
	return "http://" + s.Address()
}

// NumFeedback returns the number of accepted feedback submissions
func (s *server) NumFeedback() uint64 {
	return atomic.LoadUint64(&s.numFeedback)
}

// --- Middlewares ---

func (s *server) rateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.limiter.Allow() {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// --- Handlers ---

func (s *server) handleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *server) handleLogin(c *gin.Context) {
	username := c.Query("username")
	password := c.Query("password")
	if username != s.username || password != s.password {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid credentials"})
		return
	}

	if !s.limiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		return
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token})
}

func (s *server) handleAuth(c *gin.Context) {
	tokenStr := strings.TrimPrefix(c.GetHeader("Authorization"), bearerPrefix)
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "invalid token"})
		return
	}

	if !s.limiter.Allow() {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": claims.Subject})
}

func (s *server) handleFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	atomic.AddUint64(&s.numFeedback, 1)
	log.Trace("feedback received", "name", req.Name)

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
