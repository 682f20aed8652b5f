// Package testutil provides helpers shared by the integration tests of the
// inventory engine: deterministic ids, decimal literals, polling assertions
// and recording event handlers.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/erp/stockengine/internal/domain/inventory"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

// NewTestUUID derives a stable UUID from seed
func NewTestUUID(seed string) uuid.UUID {
	return uuid.NewSHA1(testNamespace, []byte(seed))
}

// TestTenantID returns the standard tenant of the tests
func TestTenantID() uuid.UUID {
	return NewTestUUID("test-tenant")
}

// TestUserID returns the standard acting user of the tests
func TestUserID() uuid.UUID {
	return NewTestUUID("test-user")
}

// Dec parses a decimal literal and panics on malformed input
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// NewProduct returns a fresh product item reference
func NewProduct() inventory.ItemRef {
	return inventory.ProductItem(uuid.New())
}

// ContextWithTimeout returns a context cancelled when the test ends or the
// timeout elapses, whichever comes first
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// WaitForCondition polls condition until it holds or timeout elapses
func WaitForCondition(condition func() bool, timeout, interval time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(interval)
	}
	return condition()
}

// RequireEventually fails the test when condition does not hold within timeout
func RequireEventually(t *testing.T, condition func() bool, timeout time.Duration, msgAndArgs ...any) {
	t.Helper()
	if !WaitForCondition(condition, timeout, 10*time.Millisecond) {
		t.Fatalf("condition not met within %v: %v", timeout, msgAndArgs)
	}
}
