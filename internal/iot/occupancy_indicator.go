package iot

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/Ruruu18/Smart-Parking-sub000/internal/domain"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iotdataplane"
)

// MQTTPublisher là phần của *iotdataplane.Client dùng để publish.
type MQTTPublisher interface {
	Publish(ctx context.Context, params *iotdataplane.PublishInput, optFns ...func(*iotdataplane.Options)) (*iotdataplane.PublishOutput, error)
}

type OccupancyMessage struct {
	SpaceID     string `json:"space_id"`
	SpaceNumber string `json:"space_number"`
	IsOccupied  bool   `json:"is_occupied"`
}

// OccupancyIndicator gửi trạng thái chỗ đỗ tới đèn báo tại bãi qua AWS IoT.
type OccupancyIndicator struct {
	client MQTTPublisher
}

func NewOccupancyIndicator(client MQTTPublisher) *OccupancyIndicator {
	return &OccupancyIndicator{client: client}
}

func OccupancyTopic(spaceID string) string {
	return fmt.Sprintf("parking/spaces/%s/occupancy", spaceID)
}

func (o *OccupancyIndicator) PublishOccupancy(ctx context.Context, space domain.ParkingSpace) error {
	payloadBytes, err := json.Marshal(OccupancyMessage{
		SpaceID:     space.ID,
		SpaceNumber: space.SpaceNumber,
		IsOccupied:  space.IsOccupied,
	})
	if err != nil {
		return fmt.Errorf("lỗi marshal trạng thái chỗ đỗ: %w", err)
	}

	topic := OccupancyTopic(space.ID)
	_, err = o.client.Publish(ctx, &iotdataplane.PublishInput{
		Topic:   aws.String(topic),
		Qos:     1,
		Payload: payloadBytes,
	})
	if err != nil {
		return fmt.Errorf("lỗi publish MQTT tới %s: %w", topic, err)
	}
	log.Printf("OccupancyIndicator: Đã gửi trạng thái chỗ đỗ %s (occupied=%t)", space.SpaceNumber, space.IsOccupied)
	return nil
}
