package db

import (
	"context"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/dpo-global/issuance-backend/pkg/config"
)

type probeRecord struct {
	ID   int
	Note string
}

func newTestClient(t *testing.T) *Client {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&probeRecord{}); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return &Client{conn: conn}
}

func TestNewRequiresDSN(t *testing.T) {
	if _, err := New(context.Background(), config.DBConfig{}, nil); err == nil {
		t.Fatal("expected an error for an empty DSN")
	}
}

func TestDBReturnsLiveHandle(t *testing.T) {
	client := newTestClient(t)

	if err := client.DB().Create(&probeRecord{Note: "settled"}).Error; err != nil {
		t.Fatalf("create through DB() failed: %v", err)
	}

	var count int64
	if err := client.DB().Model(&probeRecord{}).Count(&count).Error; err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 record, got %d", count)
	}
}

func TestPing(t *testing.T) {
	client := newTestClient(t)
	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected ping error: %v", err)
	}
}

func TestPingAfterClose(t *testing.T) {
	client := newTestClient(t)
	if err := client.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if err := client.Ping(context.Background()); err == nil {
		t.Fatal("expected ping to fail once the pool is closed")
	}
}
