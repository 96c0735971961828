package telemetry

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/gasguard/internal/application"
	"github.com/example/gasguard/internal/persistence"
)

var fixedNow = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

type recordingSink struct {
	mu       sync.Mutex
	readings []persistence.Reading
	err      error
}

func (s *recordingSink) IngestReading(_ context.Context, id string, level float64, ts time.Time) (persistence.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return persistence.Reading{}, s.err
	}
	r := persistence.Reading{EquipmentID: id, GasLevel: level, Timestamp: ts}
	s.readings = append(s.readings, r)
	return r, nil
}

type staticLister struct {
	equipment []persistence.Equipment
	err       error
}

func (l staticLister) ListEquipment(context.Context, application.EquipmentFilter) ([]persistence.Equipment, error) {
	return l.equipment, l.err
}

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

var _ mqtt.Message = fakeMessage{}

func TestDecodeReading(t *testing.T) {
	tests := []struct {
		name    string
		topic   string
		payload string
		want    persistence.Reading
		wantErr bool
	}{
		{
			name:    "rfc3339 timestamp",
			topic:   "gasguard/readings/eq-1",
			payload: `{"equipment_id":"eq-7","gas_level":42.5,"timestamp":"2024-03-10T08:00:00Z"}`,
			want:    persistence.Reading{EquipmentID: "eq-7", GasLevel: 42.5, Timestamp: time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)},
		},
		{
			name:    "unix millis timestamp",
			topic:   "gasguard/readings/eq-1",
			payload: `{"equipment_id":"eq-1","gas_level":51,"timestamp":1710057600000}`,
			want:    persistence.Reading{EquipmentID: "eq-1", GasLevel: 51, Timestamp: time.UnixMilli(1710057600000).UTC()},
		},
		{
			name:    "id from topic and default timestamp",
			topic:   "gasguard/readings/eq-3",
			payload: `{"gas_level":0}`,
			want:    persistence.Reading{EquipmentID: "eq-3", GasLevel: 0, Timestamp: fixedNow},
		},
		{name: "missing level", topic: "gasguard/readings/eq-3", payload: `{"equipment_id":"eq-3"}`, wantErr: true},
		{name: "not json", topic: "gasguard/readings/eq-3", payload: `level=3`, wantErr: true},
		{name: "bad timestamp", topic: "gasguard/readings/eq-3", payload: `{"gas_level":1,"timestamp":"yesterday"}`, wantErr: true},
		{name: "no id anywhere", topic: "", payload: `{"gas_level":1}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeReading(tt.topic, []byte(tt.payload), fixedNow)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedReading)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want.EquipmentID, got.EquipmentID)
			assert.Equal(t, tt.want.GasLevel, got.GasLevel)
			assert.True(t, tt.want.Timestamp.Equal(got.Timestamp), "timestamp %s", got.Timestamp)
		})
	}
}

func TestSubscriberForwardsMessages(t *testing.T) {
	sink := &recordingSink{}
	sub := NewSubscriber(sink, SubscriberConfig{Now: func() time.Time { return fixedNow }})

	sub.onMessage(nil, fakeMessage{topic: "gasguard/readings/eq-1", payload: []byte(`{"gas_level":12}`)})
	sub.onMessage(nil, fakeMessage{topic: "gasguard/readings/eq-2", payload: []byte(`garbage`)})
	sub.onMessage(nil, fakeMessage{topic: "gasguard/readings/eq-2", payload: []byte(`{"gas_level":60}`)})

	require.Len(t, sink.readings, 2)
	assert.Equal(t, "eq-1", sink.readings[0].EquipmentID)
	assert.Equal(t, "eq-2", sink.readings[1].EquipmentID)
	assert.Equal(t, 60.0, sink.readings[1].GasLevel)
}

func TestSubscriberReportsIngestFailure(t *testing.T) {
	sink := &recordingSink{err: application.ErrUnknownEquipment}
	sub := NewSubscriber(sink, SubscriberConfig{})

	err := sub.HandleMessage(context.Background(), "gasguard/readings/ghost", []byte(`{"gas_level":1}`))
	assert.ErrorIs(t, err, application.ErrUnknownEquipment)
}

func TestSubscriberRequiresBroker(t *testing.T) {
	sub := NewSubscriber(&recordingSink{}, SubscriberConfig{})
	assert.Error(t, sub.Connect(context.Background()))
	sub.Close()
}

func TestSimulatorTick(t *testing.T) {
	sink := &recordingSink{}
	lister := staticLister{equipment: []persistence.Equipment{{ID: "eq-1"}, {ID: "eq-2"}}}
	sim := NewSimulator(sink, lister, rand.New(rand.NewPCG(1, 2)), func() time.Time { return fixedNow }, nil)

	for i := 0; i < 50; i++ {
		reading, ok, err := sim.Tick(context.Background())
		require.NoError(t, err)
		require.True(t, ok)
		assert.Contains(t, []string{"eq-1", "eq-2"}, reading.EquipmentID)
		assert.GreaterOrEqual(t, reading.GasLevel, 0.0)
		assert.Less(t, reading.GasLevel, 100.0)
		assert.Equal(t, reading.GasLevel, float64(int(reading.GasLevel)))
		assert.True(t, reading.Timestamp.Equal(fixedNow))
	}
	assert.Len(t, sink.readings, 50)
}

func TestSimulatorWithoutEquipment(t *testing.T) {
	sink := &recordingSink{}
	sim := NewSimulator(sink, staticLister{}, nil, nil, nil)

	_, ok, err := sim.Tick(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, sink.readings)
}

func TestSimulatorListFailure(t *testing.T) {
	boom := errors.New("engine: stopped")
	sim := NewSimulator(&recordingSink{}, staticLister{err: boom}, nil, nil, nil)

	_, ok, err := sim.Tick(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, ok)
	sim.Run(context.Background())
}

type fakeToken struct {
	completed bool
	err       error
}

func (t fakeToken) Wait() bool                     { return t.completed }
func (t fakeToken) WaitTimeout(time.Duration) bool { return t.completed }
func (t fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	if t.completed {
		close(ch)
	}
	return ch
}
func (t fakeToken) Error() error { return t.err }

var _ mqtt.Token = fakeToken{}

func TestAwaitToken(t *testing.T) {
	refused := errors.New("not authorized")

	assert.NoError(t, awaitToken(fakeToken{completed: true}, time.Millisecond))
	assert.ErrorIs(t, awaitToken(fakeToken{completed: true, err: refused}, time.Millisecond), refused)
	assert.ErrorIs(t, awaitToken(fakeToken{completed: false}, time.Millisecond), errTokenTimeout)
}
