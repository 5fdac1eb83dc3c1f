package service

import (
	"errors"
	"testing"
	"time"

	"online_edu_backend/internal/config"
	"online_edu_backend/internal/model"
	"online_edu_backend/internal/util"
)

func (e *testEnv) authService() *AuthService {
	cfg := &config.Config{}
	cfg.JWT.Secret = "unit-test-secret"
	cfg.JWT.ExpireTime = time.Hour
	return NewAuthService(e.users, cfg)
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	svc := env.authService()

	user, err := svc.Register(RegisterReq{Name: "alice", Email: "alice@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if user.Role != model.Student {
		t.Errorf("role = %s, want student", user.Role)
	}
	if user.LastLogin != nil {
		t.Error("lastLogin set before first login")
	}

	token, logged, err := svc.Login(LoginReq{Email: "alice@example.com", Password: "secret1"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token == "" {
		t.Error("empty token")
	}
	if logged.LastLogin == nil {
		t.Error("lastLogin not recorded on login")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	svc := env.authService()

	req := RegisterReq{Name: "bob", Email: "bob@example.com", Password: "secret1"}
	if _, err := svc.Register(req); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := svc.Register(req); !errors.Is(err, util.ErrEmailRegistered) {
		t.Errorf("got %v, want ErrEmailRegistered", err)
	}
}

// 账号不存在和口令错误返回同一个错误，不泄露账号是否注册过
func TestLoginBadCredentials(t *testing.T) {
	env := newTestEnv(t)
	svc := env.authService()

	if _, err := svc.Register(RegisterReq{Name: "carol", Email: "carol@example.com", Password: "secret1"}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if _, _, err := svc.Login(LoginReq{Email: "carol@example.com", Password: "wrong"}); !errors.Is(err, util.ErrUserNotFound) {
		t.Errorf("wrong password: got %v, want ErrUserNotFound", err)
	}
	if _, _, err := svc.Login(LoginReq{Email: "nobody@example.com", Password: "secret1"}); !errors.Is(err, util.ErrUserNotFound) {
		t.Errorf("unknown email: got %v, want ErrUserNotFound", err)
	}
}
