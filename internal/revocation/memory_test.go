package revocation

import (
	"context"
	"testing"
	"time"
)

func TestMemoryList_RevokeAndExpire(t *testing.T) {
	current := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	list := NewMemoryList().(*memoryList)
	list.now = func() time.Time { return current }

	ctx := context.Background()
	if revoked, err := list.IsRevoked(ctx, "jti-1"); err != nil || revoked {
		t.Fatalf("fresh list: revoked=%v err=%v", revoked, err)
	}

	if err := list.Revoke(ctx, "jti-1", time.Hour); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revoked, _ := list.IsRevoked(ctx, "jti-1"); !revoked {
		t.Fatal("token must be revoked inside its ttl")
	}

	// The entry lapses with the token's remaining lifetime.
	current = current.Add(time.Hour + time.Second)
	if revoked, _ := list.IsRevoked(ctx, "jti-1"); revoked {
		t.Fatal("entry must lapse after its ttl")
	}
}

func TestMemoryList_NonPositiveTTLIsNoop(t *testing.T) {
	list := NewMemoryList()
	ctx := context.Background()

	if err := list.Revoke(ctx, "jti-1", 0); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if revoked, _ := list.IsRevoked(ctx, "jti-1"); revoked {
		t.Fatal("already expired token must not be tracked")
	}
}
