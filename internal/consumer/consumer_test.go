package consumer

import (
	"errors"
	"fmt"
	"testing"

	"fotolio/internal/services"
	"fotolio/pkg/utils"
)

// An event referencing a transaction that does not exist fails identically
// on every redelivery, so it must not go back on the queue.
func TestShouldRequeueSeparatesPermanentFailures(t *testing.T) {
	permanent := services.FailedEvent{Index: 0, Err: utils.ErrTransactionNotFound}
	wrapped := services.FailedEvent{Index: 0, Err: fmt.Errorf("settling: %w", utils.ErrTransactionNotFound)}
	transient := services.FailedEvent{Index: 1, Err: errors.New("database unavailable")}

	cases := []struct {
		name   string
		failed []services.FailedEvent
		want   bool
	}{
		{"no failures", nil, false},
		{"only permanent", []services.FailedEvent{permanent}, false},
		{"wrapped permanent", []services.FailedEvent{wrapped}, false},
		{"only transient", []services.FailedEvent{transient}, true},
		{"mixed", []services.FailedEvent{permanent, transient}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := shouldRequeue(tc.failed); got != tc.want {
				t.Fatalf("shouldRequeue = %v, want %v", got, tc.want)
			}
		})
	}
}
