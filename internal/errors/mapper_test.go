package errors

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"
)

func TestMap(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"forbidden", Forbidden("not your profile"), http.StatusForbidden, "not your profile"},
		{"wrapped", fmt.Errorf("send card: %w", InsufficientCredit("buy more credits")), http.StatusPaymentRequired, "buy more credits"},
		{"quota", QuotaExceeded(""), http.StatusTooManyRequests, "quota exceeded"},
		{"gorm not found", fmt.Errorf("load: %w", gorm.ErrRecordNotFound), http.StatusNotFound, "record not found"},
		{"duplicate", gorm.ErrDuplicatedKey, http.StatusConflict, "record already exists"},
		{"processed", AlreadyProcessed("transaction already processed"), http.StatusConflict, "transaction already processed"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "request timed out"},
		{"internal", fmt.Errorf("dial tcp: refused"), http.StatusInternalServerError, "something went wrong"},
		{"unauthenticated", Unauthenticated("login required"), http.StatusUnauthorized, "login required"},
		{"unavailable", Unavailable("proof uploads are not configured"), http.StatusServiceUnavailable, "proof uploads are not configured"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, msg := Map(tc.err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.msg, msg)
		})
	}
}
