package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"mongo-user-service/authentication"
	"mongo-user-service/config"
	"mongo-user-service/verification"
)

// captureSender records outgoing mails so tests can use the tokens.
type captureSender struct {
	verificationToken string
	resetToken        string
}

func (s *captureSender) SendVerification(ctx context.Context, email, username, token string) error {
	s.verificationToken = token
	return nil
}

func (s *captureSender) SendPasswordReset(ctx context.Context, email, token string) error {
	s.resetToken = token
	return nil
}

func newTestRouter(mongoClient *mongo.Client, rdb *redis.Client, cfg *config.Config, mail *captureSender) *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop().Sugar()

	sessions := authentication.NewRefreshStore(rdb)
	authHandler := authentication.NewHandler(mongoClient, cfg, sessions, mail, log)
	verifyHandler := verification.NewHandler(mongoClient, cfg, mail, log)

	r := gin.New()
	auth := r.Group("/api/auth")
	{
		auth.POST("/signup", authHandler.HandleSignup)
		auth.POST("/login", authHandler.HandleLogin)
		auth.POST("/refresh", authHandler.HandleRefresh)
		auth.POST("/verify", verifyHandler.HandleVerify)
		auth.POST("/password-reset", verifyHandler.HandleRequestReset)
		auth.POST("/password-reset/confirm", verifyHandler.HandleConfirmReset)
	}
	return r
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

// Requires local MongoDB and Redis; skipped when either is unavailable.
func TestAccountLifecycleIntegration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	cfg := LoadConfig()
	cfg.DatabaseName = "UserDemo_IntegrationTest"
	cfg.JWTSecret = "integration-test-secret"
	cfg.TokenSigningKey = "integration-test-signing-key"

	mongoClient, err := connectMongo(ctx, cfg)
	if err != nil {
		t.Skip("MongoDB not available, skipping integration test")
	}
	defer mongoClient.Disconnect(ctx)

	rdb, err := connectRedis(ctx, cfg)
	if err != nil {
		t.Skip("Redis not available, skipping integration test")
	}
	defer rdb.Close()

	collection := mongoClient.Database(cfg.DatabaseName).Collection(cfg.CollectionUserName)
	if err := collection.Drop(ctx); err != nil {
		t.Fatalf("drop collection: %v", err)
	}
	if err := ensureIndexes(ctx, mongoClient, cfg); err != nil {
		t.Fatalf("ensure indexes: %v", err)
	}
	defer collection.Drop(context.Background())

	mail := &captureSender{}
	r := newTestRouter(mongoClient, rdb, cfg, mail)

	const signupBody = `{"username":"jane","email":"jane@example.com","first_name":"Jane","last_name":"Doe","password":"longenough"}`
	const loginBody = `{"identifier":"jane@example.com","password":"longenough"}`

	// Signup creates a pending account and mails a verification token.
	w := postJSON(r, "/api/auth/signup", signupBody)
	if w.Code != http.StatusCreated {
		t.Fatalf("signup: status = %d, body %s", w.Code, w.Body.String())
	}
	if mail.verificationToken == "" {
		t.Fatal("signup did not send a verification token")
	}

	// Duplicate email and duplicate username both conflict.
	w = postJSON(r, "/api/auth/signup",
		`{"username":"other","email":"jane@example.com","password":"longenough"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate email signup: status = %d, want %d", w.Code, http.StatusConflict)
	}
	w = postJSON(r, "/api/auth/signup",
		`{"username":"jane","email":"other@example.com","password":"longenough"}`)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate username signup: status = %d, want %d", w.Code, http.StatusConflict)
	}

	// Login is refused while the account is pending.
	w = postJSON(r, "/api/auth/login", loginBody)
	if w.Code != http.StatusForbidden {
		t.Fatalf("pending login: status = %d, want %d", w.Code, http.StatusForbidden)
	}

	// Verification activates the account once.
	verifyBody := fmt.Sprintf(`{"token":%q}`, mail.verificationToken)
	w = postJSON(r, "/api/auth/verify", verifyBody)
	if w.Code != http.StatusOK {
		t.Fatalf("verify: status = %d, body %s", w.Code, w.Body.String())
	}
	w = postJSON(r, "/api/auth/verify", verifyBody)
	if w.Code != http.StatusConflict {
		t.Fatalf("second verify: status = %d, want %d", w.Code, http.StatusConflict)
	}

	// Login by email now succeeds.
	w = postJSON(r, "/api/auth/login", loginBody)
	if w.Code != http.StatusOK {
		t.Fatalf("login: status = %d, body %s", w.Code, w.Body.String())
	}
	var login authentication.LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &login); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if login.Token == "" || login.RefreshToken == "" {
		t.Fatalf("login response missing tokens: %+v", login)
	}
	if !login.User.Verified {
		t.Error("logged-in user should be verified")
	}
	defer rdb.Del(context.Background(), "refresh:"+login.User.ID)

	// Login by username hits the same account.
	w = postJSON(r, "/api/auth/login", `{"identifier":"jane","password":"longenough"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login by username: status = %d, body %s", w.Code, w.Body.String())
	}

	// Refresh rotates the token pair.
	refreshBody := fmt.Sprintf(`{"refresh_token":%q}`, login.RefreshToken)
	w = postJSON(r, "/api/auth/refresh", refreshBody)
	if w.Code != http.StatusOK {
		t.Fatalf("refresh: status = %d, body %s", w.Code, w.Body.String())
	}
	var rotated authentication.LoginResponse
	if err := json.Unmarshal(w.Body.Bytes(), &rotated); err != nil {
		t.Fatalf("decode refresh response: %v", err)
	}
	if rotated.RefreshToken == login.RefreshToken {
		t.Error("refresh did not rotate the refresh token")
	}

	// The replaced refresh token is no longer accepted.
	w = postJSON(r, "/api/auth/refresh", refreshBody)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("stale refresh: status = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	// Password reset rehashes the stored password.
	w = postJSON(r, "/api/auth/password-reset", `{"identifier":"jane@example.com"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("password reset request: status = %d, body %s", w.Code, w.Body.String())
	}
	if mail.resetToken == "" {
		t.Fatal("password reset did not send a token")
	}
	w = postJSON(r, "/api/auth/password-reset/confirm",
		fmt.Sprintf(`{"token":%q,"password":"evenlonger1"}`, mail.resetToken))
	if w.Code != http.StatusOK {
		t.Fatalf("password reset confirm: status = %d, body %s", w.Code, w.Body.String())
	}
	w = postJSON(r, "/api/auth/login", loginBody)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("login with old password: status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	w = postJSON(r, "/api/auth/login", `{"identifier":"jane","password":"evenlonger1"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("login with new password: status = %d, body %s", w.Code, w.Body.String())
	}
}
