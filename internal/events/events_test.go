package events

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
)

type failingPublisher struct{ calls int }

func (f *failingPublisher) Publish(context.Context, Event) error {
	f.calls++
	return errors.New("broker down")
}

func TestNewPublisher_NoBrokers(t *testing.T) {
	pub := NewPublisher(nil, "topic", zerolog.Nop())
	if _, ok := pub.(Noop); !ok {
		t.Fatalf("expected Noop publisher, got %T", pub)
	}
}

func TestEmit_SwallowsErrors(t *testing.T) {
	pub := &failingPublisher{}
	Emit(context.Background(), pub, zerolog.Nop(), New(PaymentPaid, "a1", nil))
	if pub.calls != 1 {
		t.Errorf("expected one publish attempt, got %d", pub.calls)
	}
	Emit(context.Background(), nil, zerolog.Nop(), New(PaymentPaid, "a1", nil))
}

func TestNew_StampsUTC(t *testing.T) {
	evt := New(AppointmentBooked, "a1", map[string]string{"k": "v"})
	if evt.OccurredAt.Location().String() != "UTC" {
		t.Errorf("expected UTC timestamp, got %s", evt.OccurredAt.Location())
	}
}
