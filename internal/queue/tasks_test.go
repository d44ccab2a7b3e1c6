package queue

import (
	"testing"
	"time"
)

func TestDeliverPhotoTaskRoundTrip(t *testing.T) {
	payload := DeliverPhotoPayload{
		Email:       "user@example.com",
		PhotoID:     "0a1b2c3d-4e5f-6071-8293-a4b5c6d7e8f9",
		OrderID:     "5O190127TN364715T",
		RequestedAt: time.Now().UTC(),
	}

	task, err := NewDeliverPhotoTask(payload)
	if err != nil {
		t.Fatalf("NewDeliverPhotoTask returned error: %v", err)
	}
	if task.Type() != TypeDeliverPhoto {
		t.Fatalf("expected task type %q, got %q", TypeDeliverPhoto, task.Type())
	}

	parsed, err := ParseDeliverPhotoPayload(task)
	if err != nil {
		t.Fatalf("ParseDeliverPhotoPayload returned error: %v", err)
	}
	if parsed.Email != payload.Email || parsed.PhotoID != payload.PhotoID || parsed.OrderID != payload.OrderID {
		t.Fatalf("payload mismatch: %+v", parsed)
	}
}
