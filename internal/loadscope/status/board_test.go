package status

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"
)

func TestBoard_Messages(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	board := NewBoard(clocktesting.NewFakePassiveClock(now))
	assert.Nil(t, board.Status().Message)

	board.Info("Creating tables...")
	board.Error("Table creation failed.")

	status := board.Status()
	require.NotNil(t, status.Message)
	assert.Equal(t, Message{Text: "Table creation failed.", Level: LevelError, Time: now}, *status.Message)
}

func TestBoard_StatusIsACopy(t *testing.T) {
	board := NewBoard(clocktesting.NewFakePassiveClock(time.Now()))
	board.Info("first")
	status := board.Status()
	status.Message.Text = "changed"
	assert.Equal(t, "first", board.Status().Message.Text)
}

func TestBoard_Transport(t *testing.T) {
	fakeClock := clocktesting.NewFakePassiveClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	board := NewBoard(fakeClock)
	assert.False(t, board.Status().Transport.Failing)

	board.TransportFailed(errors.New("connection refused"))
	transport := board.Status().Transport
	assert.True(t, transport.Failing)
	assert.Equal(t, "connection refused", transport.Message)
	assert.Equal(t, fakeClock.Now(), transport.LastFailure)

	board.TransportRecovered()
	transport = board.Status().Transport
	assert.False(t, transport.Failing)
	assert.Equal(t, "connection refused", transport.Message)
}
