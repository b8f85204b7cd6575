package store

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestRedisSessionLifecycle(t *testing.T) {
	redisSrv := miniredis.RunT(t)
	sessions := NewRedisSessionStore(redisSrv.Addr(), "", time.Minute)

	token, err := sessions.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}

	uid, ok, err := sessions.GetUserIDByToken(token)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if !ok || uid != "user-1" {
		t.Fatalf("expected user-1, got %q ok=%v", uid, ok)
	}

	if err := sessions.DeleteSession(token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, ok, _ := sessions.GetUserIDByToken(token); ok {
		t.Fatal("deleted session should not resolve")
	}
}

func TestRedisSessionExpires(t *testing.T) {
	redisSrv := miniredis.RunT(t)
	sessions := NewRedisSessionStore(redisSrv.Addr(), "", time.Second)

	token, err := sessions.NewSession("user-1")
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	redisSrv.FastForward(2 * time.Second)
	if _, ok, _ := sessions.GetUserIDByToken(token); ok {
		t.Fatal("expired session should not resolve")
	}
}

func TestUnknownTokenDoesNotResolve(t *testing.T) {
	redisSrv := miniredis.RunT(t)
	sessions := NewRedisSessionStore(redisSrv.Addr(), "", time.Minute)
	if _, ok, err := sessions.GetUserIDByToken("no-such-token"); err != nil || ok {
		t.Fatalf("expected miss without error, got ok=%v err=%v", ok, err)
	}
}
