package messaging

import (
	"errors"
	"testing"
)

// 一次瞬时投递失败不能把消息打成 failed：
// 未达尝试上限前保持 pending，留给下一轮重试。
func TestNextRelayStatus(t *testing.T) {
	sendErr := errors.New("kafka: broker unreachable")

	cases := []struct {
		name     string
		err      error
		attempts int
		want     string
	}{
		{"success first try", nil, 1, outboxStatusSent},
		{"success after retries", nil, 4, outboxStatusSent},
		{"transient failure stays pending", sendErr, 1, outboxStatusPending},
		{"failure below limit stays pending", sendErr, maxRelayAttempts - 1, outboxStatusPending},
		{"failure at limit goes failed", sendErr, maxRelayAttempts, outboxStatusFailed},
		{"failure past limit stays failed", sendErr, maxRelayAttempts + 1, outboxStatusFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := nextRelayStatus(tc.err, tc.attempts); got != tc.want {
				t.Fatalf("nextRelayStatus(%v, %d) = %q, want %q", tc.err, tc.attempts, got, tc.want)
			}
		})
	}
}
