package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastprodman/walletledger/internal/events"
	"github.com/fastprodman/walletledger/internal/models"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}

	w.msgs = append(w.msgs, msgs...)

	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true

	return nil
}

func testEvent() events.TransactionCompleted {
	return events.FromTransaction(models.Transaction{
		ID:           "6f1c1b8e-9a55-4c1e-a2f4-3f0f0b7c2d11",
		AccountID:    7,
		UserID:       42,
		Kind:         models.KindDebit,
		Amount:       decimal.RequireFromString("12.50"),
		BalanceAfter: decimal.RequireFromString("87.50"),
		Sequence:     3,
		CreatedAt:    time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	})
}

func TestEncodeMessage(t *testing.T) {
	t.Parallel()

	msg, err := encodeMessage(testEvent())
	require.NoError(t, err)

	assert.Equal(t, "42", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, events.TypeTransactionCompleted, string(msg.Headers[0].Value))

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "transaction.completed", body["type"])
	assert.Equal(t, "DEBIT", body["kind"])
	assert.Equal(t, "12.5", body["amount"])
	assert.EqualValues(t, 3, body["sequence"])
}

func TestPublisher_Publish(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	p := &Publisher{writer: w}

	require.NoError(t, p.Publish(t.Context(), testEvent()))
	require.Len(t, w.msgs, 1)

	w.err = errors.New("broker down")
	err := p.Publish(t.Context(), testEvent())
	require.ErrorIs(t, err, w.err)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
