package queue

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/golf-ops/internal/model"
)

func newSink() (*logrus.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	l := logrus.New()
	l.SetOutput(&buf)
	l.SetFormatter(&logrus.JSONFormatter{})
	return l, &buf
}

func TestHandleDeliveryWritesBookingEvent(t *testing.T) {
	sink, buf := newSink()
	b := &model.Booking{ID: 12, UserID: 3, Status: model.BookingBooked, TimeSlot: "07:30", CaddyIDs: []uint64{5}, GolfCartIDs: []uint64{1, 2}}
	ev := NewBookingEvent(ActionBooked, model.Caller{UserID: 3, Role: model.RoleUser}, b)
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, HandleDelivery(sink, ev.RoutingKey(), body))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "booking", line["kind"])
	assert.Equal(t, "created", line["action"])
	assert.EqualValues(t, 12, line["booking_id"])
	assert.Equal(t, ev.EventID, line["event_id"])
}

func TestHandleDeliveryWritesAuditEvent(t *testing.T) {
	sink, buf := newSink()
	ev := NewAuditEvent(model.AuditEntry{ActorID: 1, ActorRole: model.RoleAdmin, Action: model.AuditOverrideAsset, Entity: "asset", EntityID: 9, From: "broken", To: "available"})
	body, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.Equal(t, "audit.override_asset_status", ev.RoutingKey())

	require.NoError(t, HandleDelivery(sink, ev.RoutingKey(), body))
	assert.Contains(t, buf.String(), `"kind":"audit"`)
	assert.Contains(t, buf.String(), `"to":"available"`)
}

func TestHandleDeliveryRejectsGarbage(t *testing.T) {
	sink, _ := newSink()
	assert.Error(t, HandleDelivery(sink, "booking.created", []byte("{not json")))
	assert.Error(t, HandleDelivery(sink, "payments.done", []byte("{}")))
}
