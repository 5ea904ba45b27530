package accounts

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/tradevault/tradevault-api/internal/audit"
	"github.com/tradevault/tradevault-api/internal/vault"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*Service, *vault.Service) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&vault.Credential{}, &audit.Entry{}, &TradingAccount{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	vaultSvc := vault.NewService(db, audit.NewRecorder(db), bytes.Repeat([]byte{0x42}, 32), vault.DefaultPolicy())
	return NewService(db, vaultSvc), vaultSvc
}

func TestCreateAndGet(t *testing.T) {
	svc, _ := newTestService(t)

	account, err := svc.Create("user-a", CreateRequest{Login: "12345", Server: "demo.broker.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if account.AccountID == "" {
		t.Error("expected an account ID")
	}
	if account.Name != "Account 12345" {
		t.Errorf("name = %q, want the login-derived default", account.Name)
	}
	if account.IsConnected() {
		t.Error("new account should not be connected")
	}

	got, err := svc.Get("user-a", account.AccountID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Login != "12345" {
		t.Errorf("login = %q, want 12345", got.Login)
	}

	if _, err := svc.Get("user-b", account.AccountID); !errors.Is(err, ErrNotFound) {
		t.Errorf("cross-user Get error = %v, want ErrNotFound", err)
	}
}

func TestLink(t *testing.T) {
	svc, vaultSvc := newTestService(t)

	account, err := svc.Create("user-a", CreateRequest{Login: "12345", Server: "demo.broker.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	safe, err := vaultSvc.Store("user-a", vault.StoreRequest{
		Server: "demo.broker.com",
		Login:  "12345",
		Secret: "Xk9#mPq2wLt5",
	})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}

	linked, err := svc.Link("user-a", account.AccountID, safe.CredentialID)
	if err != nil {
		t.Fatalf("Link: %v", err)
	}
	if !linked.IsConnected() {
		t.Error("linked account should be connected")
	}
	if linked.CredentialID != safe.CredentialID {
		t.Errorf("credential id = %q, want %q", linked.CredentialID, safe.CredentialID)
	}
}

func TestLinkRejectsMissingCredential(t *testing.T) {
	svc, vaultSvc := newTestService(t)

	account, err := svc.Create("user-a", CreateRequest{Login: "12345", Server: "demo.broker.com"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Link("user-a", account.AccountID, "no-such-credential"); !errors.Is(err, vault.ErrNotFound) {
		t.Errorf("Link error = %v, want vault.ErrNotFound", err)
	}

	// A deleted credential can't be linked either
	safe, err := vaultSvc.Store("user-a", vault.StoreRequest{
		Server: "demo.broker.com",
		Login:  "12345",
		Secret: "Xk9#mPq2wLt5",
	})
	if err != nil {
		t.Fatalf("Store: %v", err)
	}
	if err := vaultSvc.Delete("user-a", safe.CredentialID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Link("user-a", account.AccountID, safe.CredentialID); !errors.Is(err, vault.ErrNotFound) {
		t.Errorf("Link to deleted credential error = %v, want vault.ErrNotFound", err)
	}

	if _, err := svc.Link("user-a", "no-such-account", "whatever"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Link error = %v, want ErrNotFound", err)
	}
}

func TestList(t *testing.T) {
	svc, _ := newTestService(t)

	for i := 0; i < 3; i++ {
		if _, err := svc.Create("user-a", CreateRequest{Login: fmt.Sprintf("1000%d", i), Server: "demo.broker.com"}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	if _, err := svc.Create("user-b", CreateRequest{Login: "20000", Server: "demo.broker.com"}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	list, err := svc.List("user-a")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Errorf("got %d accounts, want 3", len(list))
	}
}
