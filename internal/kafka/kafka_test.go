package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/flightreservation/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockWriter) Close() error {
	return m.Called().Error(0)
}

// sliceReader serves queued messages, then blocks until ctx is cancelled.
type sliceReader struct {
	msgs      []kafka.Message
	committed []int64
}

func (r *sliceReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *sliceReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *sliceReader) Close() error { return nil }

func sampleReservation() *domain.Reservation {
	return &domain.Reservation{
		Code:               "ABCD1234",
		PassengerFirstName: "Anna",
		PassengerLastName:  "Smirnova",
		PassengerEmail:     "anna@example.com",
		SeatsReserved:      2,
		TotalPrice:         decimal.RequireFromString("400.00"),
		FlightID:           7,
		Flight: &domain.Flight{
			ID:            7,
			Code:          "SU7",
			DepartureCity: domain.City{Name: "Moscow"},
			ArrivalCity:   domain.City{Name: "Kazan"},
		},
	}
}

func TestNewReservationEvent(t *testing.T) {
	at := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	event := NewReservationEvent(EventReservationCreated, sampleReservation(), at)

	assert.Equal(t, EventReservationCreated, event.Type)
	assert.Equal(t, "Anna Smirnova", event.PassengerName)
	assert.Equal(t, "SU7", event.FlightCode)
	assert.Equal(t, "Kazan", event.ArrivalCity)
	assert.Equal(t, at, event.OccurredAt)

	res := sampleReservation()
	res.Flight = nil
	event = NewReservationEvent(EventReservationCancelled, res, at)
	assert.Empty(t, event.FlightCode)
	assert.Equal(t, int64(7), event.FlightID)
}

func TestProducer_Publish(t *testing.T) {
	writer := &MockWriter{}
	producer := &Producer{writer: writer, log: zap.NewNop()}
	ctx := context.Background()

	event := NewReservationEvent(EventReservationCreated, sampleReservation(), time.Now())
	writer.On("WriteMessages", ctx, mock.MatchedBy(func(msgs []kafka.Message) bool {
		if len(msgs) != 1 || msgs[0].Topic != "reservations" || string(msgs[0].Key) != "ABCD1234" {
			return false
		}
		var decoded ReservationEvent
		return json.Unmarshal(msgs[0].Value, &decoded) == nil && decoded.Code == "ABCD1234"
	})).Return(nil).Once()

	assert.NoError(t, producer.Publish(ctx, "reservations", "ABCD1234", event))
	writer.AssertExpectations(t)
}

func TestProducer_PublishError(t *testing.T) {
	writer := &MockWriter{}
	producer := &Producer{writer: writer, log: zap.NewNop()}
	ctx := context.Background()

	writer.On("WriteMessages", ctx, mock.Anything).Return(errors.New("broker down")).Once()
	err := producer.Publish(ctx, "reservations", "k", map[string]string{"a": "b"})
	assert.ErrorContains(t, err, "broker down")

	err = producer.Publish(ctx, "reservations", "k", make(chan int))
	assert.ErrorContains(t, err, "failed to marshal payload")

	writer.On("Close").Return(nil).Once()
	assert.NoError(t, producer.Close())
	writer.AssertExpectations(t)
}

func TestConsumer_Consume(t *testing.T) {
	good, err := json.Marshal(NewReservationEvent(EventReservationCreated, sampleReservation(), time.Now()))
	require.NoError(t, err)

	reader := &sliceReader{msgs: []kafka.Message{
		{Offset: 1, Value: []byte("{broken")},
		{Offset: 2, Value: good},
	}}
	consumer := &Consumer{reader: reader, log: zap.NewNop()}

	ctx, cancel := context.WithCancel(context.Background())
	var received []ReservationEvent
	err = consumer.Consume(ctx, func(ctx context.Context, event ReservationEvent) error {
		received = append(received, event)
		cancel()
		return nil
	})

	assert.NoError(t, err)
	require.Len(t, received, 1)
	assert.Equal(t, "ABCD1234", received[0].Code)
	assert.Equal(t, []int64{1, 2}, reader.committed)
}

func TestConsumer_HandlerErrorStops(t *testing.T) {
	good, err := json.Marshal(NewReservationEvent(EventReservationCancelled, sampleReservation(), time.Now()))
	require.NoError(t, err)

	reader := &sliceReader{msgs: []kafka.Message{{Offset: 5, Value: good}}}
	consumer := &Consumer{reader: reader, log: zap.NewNop()}

	boom := errors.New("smtp down")
	err = consumer.Consume(context.Background(), func(context.Context, ReservationEvent) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, reader.committed)
}
