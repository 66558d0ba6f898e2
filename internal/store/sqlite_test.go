package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/eodex/internal/model"
	"github.com/nhle/eodex/tests/testutil"
)

func sampleMessage(uid uint32) model.EmailMessage {
	return model.EmailMessage{
		UID:       uid,
		Folder:    "INBOX",
		MessageID: "msg-1@example.com",
		Subject:   "Daily Status Update",
		From:      "John",
		Date:      time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC),
		Body:      "EOD:\n- Checking tracker and tickets-20 min\n",
	}
}

func TestPutAndGetMessages(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	msg := sampleMessage(42)
	require.NoError(t, s.PutMessages(ctx, []model.EmailMessage{msg}))

	cached, err := s.GetMessages(ctx, "INBOX", []uint32{42, 99})
	require.NoError(t, err)
	require.Len(t, cached, 1)

	got, ok := cached[42]
	require.True(t, ok)
	assert.Equal(t, msg.Subject, got.Subject)
	assert.Equal(t, msg.Body, got.Body)
	assert.True(t, msg.Date.Equal(got.Date))
}

func TestGetMessagesFolderIsolation(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	msg := sampleMessage(7)
	require.NoError(t, s.PutMessages(ctx, []model.EmailMessage{msg}))

	cached, err := s.GetMessages(ctx, "Archive", []uint32{7})
	require.NoError(t, err)
	assert.Empty(t, cached)
}

func TestPutMessagesReplaces(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	msg := sampleMessage(7)
	require.NoError(t, s.PutMessages(ctx, []model.EmailMessage{msg}))

	msg.Body = "EOD:\n- updated body-5 min\n"
	require.NoError(t, s.PutMessages(ctx, []model.EmailMessage{msg}))

	cached, err := s.GetMessages(ctx, "INBOX", []uint32{7})
	require.NoError(t, err)
	require.Len(t, cached, 1)
	assert.Equal(t, msg.Body, cached[7].Body)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGetMessagesEmptyUIDs(t *testing.T) {
	s := testutil.NewTestStore(t)

	cached, err := s.GetMessages(context.Background(), "INBOX", nil)
	require.NoError(t, err)
	assert.Empty(t, cached)
}
