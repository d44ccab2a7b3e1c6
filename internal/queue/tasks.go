package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const TypeDeliverPhoto = "photo:deliver"

type DeliverPhotoPayload struct {
	Email       string    `json:"email"`
	PhotoID     string    `json:"photo_id"`
	OrderID     string    `json:"order_id"`
	RequestedAt time.Time `json:"requested_at"`
}

func NewDeliverPhotoTask(payload DeliverPhotoPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal deliver payload: %w", err)
	}
	return asynq.NewTask(TypeDeliverPhoto, body), nil
}

func ParseDeliverPhotoPayload(task *asynq.Task) (DeliverPhotoPayload, error) {
	var payload DeliverPhotoPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return DeliverPhotoPayload{}, fmt.Errorf("unmarshal deliver payload: %w", err)
	}
	return payload, nil
}
