package eventbus

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEventEnvelope(t *testing.T) {
	ev := NewEvent(OfferAccepted, map[string]string{"orderId": "ORD-1"})
	assert.Equal(t, OfferAccepted, ev.Type)
	assert.NotEmpty(t, ev.EventID)
	assert.False(t, ev.OccurredAt.IsZero())

	body, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"type":"offer.accepted"`)
	assert.Contains(t, string(body), `"orderId":"ORD-1"`)
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = Nop{}
	assert.NoError(t, p.Publish(context.Background(), OrderFulfilled, nil))
}
