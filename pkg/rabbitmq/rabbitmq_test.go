package rabbitmq

import (
	"encoding/json"
	"testing"
	"time"

	amqp "github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublish_WithoutChannel(t *testing.T) {
	var nilClient *Client
	assert.ErrorIs(t, nilClient.Publish(RoutingKeyOrderCreated, []byte("{}")), ErrChannelClosed)
	assert.ErrorIs(t, (&Client{}).Publish(RoutingKeyOrderCreated, []byte("{}")), ErrChannelClosed)
	assert.ErrorIs(t, (&Client{}).ConsumeOrderEvents(HandleOrderMessage), ErrChannelClosed)
}

func TestHandleOrderMessage(t *testing.T) {
	body, err := json.Marshal(OrderEvent{
		Event:       RoutingKeyOrderCreated,
		OrderID:     "o-1",
		UserID:      "u-1",
		Status:      "pending",
		TotalAmount: "200",
		ItemCount:   1,
		OccurredAt:  time.Now(),
	})
	require.NoError(t, err)

	assert.NoError(t, HandleOrderMessage(amqp.Delivery{RoutingKey: RoutingKeyOrderCreated, Body: body}))
	assert.ErrorContains(t, HandleOrderMessage(amqp.Delivery{Body: []byte("nope")}), "decode")
	assert.ErrorContains(t, HandleOrderMessage(amqp.Delivery{Body: []byte(`{"event":"order.created"}`)}), "without order_id")
}

func TestClose_Empty(t *testing.T) {
	assert.NoError(t, (&Client{}).Close())
}
