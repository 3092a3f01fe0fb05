//go:build integration

package integration

import (
	"fmt"
	"sync/atomic"
)

// TestPassword satisfies the password policy
const TestPassword = "TestPassword123!"

var usernameSeq atomic.Int64

// UniqueUsername returns a username no other test in the run uses
func UniqueUsername(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, usernameSeq.Add(1))
}
