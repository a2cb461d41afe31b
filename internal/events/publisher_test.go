package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/kanak/internal/models"
)

func TestMembershipEventJSON(t *testing.T) {
	e := NewMembershipEvent(InvitationCreated, "g1", "u2", "u1", models.RoleAdmin)
	e.InvitationID = "inv1"

	body, err := e.ToJSON()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	assert.Equal(t, "invitation.created", decoded["type"])
	assert.Equal(t, "g1", decoded["groupId"])
	assert.Equal(t, "inv1", decoded["invitationId"])
	assert.Equal(t, "ADMIN", decoded["role"])
	assert.Equal(t, "u1", decoded["actorId"])
}

func TestMembershipEventOmitsEmptyFields(t *testing.T) {
	body, err := NewMembershipEvent(MemberLeft, "g1", "u2", "u2", "").ToJSON()
	require.NoError(t, err)
	assert.NotContains(t, string(body), "invitationId")
	assert.NotContains(t, string(body), "role")
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), MembershipEvent{}))
}

type fakeSession struct {
	closed    bool
	failNext  error
	dropOnErr bool
	published []amqp091.Publishing
}

func (s *fakeSession) Publish(_ context.Context, exchange, key string, msg amqp091.Publishing) error {
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		if s.dropOnErr {
			s.closed = true
		}
		return err
	}
	s.published = append(s.published, msg)
	return nil
}

func (s *fakeSession) IsClosed() bool { return s.closed }

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

type fakeBroker struct {
	sessions []*fakeSession
	down     bool
}

func (b *fakeBroker) dial(url, exchangeName, queueName string) (session, error) {
	if b.down {
		return nil, errors.New("connection refused")
	}
	s := &fakeSession{}
	b.sessions = append(b.sessions, s)
	return s, nil
}

func newFakePublisher(t *testing.T) (*AMQPPublisher, *fakeBroker) {
	t.Helper()
	broker := &fakeBroker{}
	p, err := newAMQPPublisher("amqp://test", "kanak.events", "kanak.membership", broker.dial)
	require.NoError(t, err)
	return p, broker
}

func TestAMQPPublisherReconnects(t *testing.T) {
	ctx := context.Background()
	event := NewMembershipEvent(GuestAdded, "g1", "guest-1", "u1", models.RoleGuest)

	t.Run("dropped connection is re-dialed on next publish", func(t *testing.T) {
		p, broker := newFakePublisher(t)
		require.NoError(t, p.Publish(ctx, event))

		broker.sessions[0].closed = true
		require.NoError(t, p.Publish(ctx, event))

		require.Len(t, broker.sessions, 2)
		assert.Len(t, broker.sessions[0].published, 1)
		require.Len(t, broker.sessions[1].published, 1)
		assert.Equal(t, string(GuestAdded), broker.sessions[1].published[0].Type)
	})

	t.Run("publish failing on a dying connection is retried once", func(t *testing.T) {
		p, broker := newFakePublisher(t)
		broker.sessions[0].failNext = amqp091.ErrClosed
		broker.sessions[0].dropOnErr = true

		require.NoError(t, p.Publish(ctx, event))
		require.Len(t, broker.sessions, 2)
		assert.Len(t, broker.sessions[1].published, 1)
	})

	t.Run("failure on a live connection is returned", func(t *testing.T) {
		p, broker := newFakePublisher(t)
		broker.sessions[0].failNext = errors.New("nack")

		assert.Error(t, p.Publish(ctx, event))
		assert.Len(t, broker.sessions, 1)
		assert.NoError(t, p.Publish(ctx, event))
	})

	t.Run("broker down then back", func(t *testing.T) {
		p, broker := newFakePublisher(t)
		broker.sessions[0].closed = true
		broker.down = true
		assert.Error(t, p.Publish(ctx, event))

		broker.down = false
		require.NoError(t, p.Publish(ctx, event))
		assert.Len(t, broker.sessions, 2)
	})

	t.Run("closed publisher stays closed", func(t *testing.T) {
		p, broker := newFakePublisher(t)
		require.NoError(t, p.Close())
		assert.True(t, broker.sessions[0].closed)
		assert.ErrorIs(t, p.Publish(ctx, event), errPublisherClosed)
		assert.Len(t, broker.sessions, 1)
	})
}
