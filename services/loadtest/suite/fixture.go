package suite

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/iulianpascalau/api-loadtest/services/loadtest/common"
	"github.com/tidwall/gjson"
)

const tokenPath = "token"

// Credentials are the login credentials accepted by the target
type Credentials struct {
	Username string
	Password string
}

// Fixture is created once before the cases run and handed to every case that needs it
type Fixture struct {
	Token     string
	Subject   string
	ExpiresAt time.Time
}

func (s *suite) createFixture(ctx context.Context) (*Fixture, error) {
	target := loginTarget(s.credentials)
	target.ExpectedStatuses = []int{http.StatusOK}

	resp := s.requester.Do(ctx, target)
	if !resp.Sample.Completed() {
		return nil, fmt.Errorf("%w: login request failed: %v", ErrSetupFailed, resp.Sample.Err)
	}
	if !target.Accepts(resp.Sample.StatusCode) {
		return nil, fmt.Errorf("%w: login answered with status %d", ErrSetupFailed, resp.Sample.StatusCode)
	}

	token := gjson.GetBytes(resp.Body, tokenPath)
	if !token.Exists() || len(token.String()) == 0 {
		return nil, fmt.Errorf("%w: login response does not contain a token", ErrSetupFailed)
	}

	fixture := &Fixture{
		Token: token.String(),
	}

	claims := &jwt.RegisteredClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(fixture.Token, claims)
	if err != nil {
		log.Debug("login token is not a JWT, using it as an opaque token", "error", err)
		return fixture, nil
	}

	fixture.Subject = claims.Subject
	if claims.ExpiresAt != nil {
		fixture.ExpiresAt = claims.ExpiresAt.Time
	}

	return fixture, nil
}

// AuthorizationHeader returns the header value carrying the fixture token
func (f *Fixture) AuthorizationHeader() string {
	return "Bearer " + f.Token
}

func loginTarget(credentials Credentials) common.EndpointTarget {
	return common.EndpointTarget{
		Name:   "login",
		Method: http.MethodGet,
		Path:   "/login/",
		Query: map[string]string{
			"username": credentials.Username,
			"password": credentials.Password,
		},
		ExpectedStatuses: []int{http.StatusOK, http.StatusTooManyRequests},
	}
}
