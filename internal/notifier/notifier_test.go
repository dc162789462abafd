package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/example/slotwatch/internal/common"
	"github.com/example/slotwatch/internal/config"
	"github.com/example/slotwatch/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChannel struct {
	name string
	err  error
	sent []*Message
}

func (s *stubChannel) Name() string { return s.name }

func (s *stubChannel) Send(_ context.Context, msg *Message) error {
	s.sent = append(s.sent, msg)
	return s.err
}

func availableAppointment() models.Appointment {
	return models.Appointment{
		Date:            "1404/06/15",
		TimeRange:       "09:00-11:00",
		Location:        "Tehran Center 3",
		Category:        "Driving - First Exam",
		Status:          models.StatusAvailable,
		RegistrationRef: "/register?slot=101",
	}
}

func newStubDispatcher(channels ...Channel) *Dispatcher {
	return &Dispatcher{
		channels:  channels,
		formatter: NewFormatter(),
		logger:    zerolog.Nop(),
	}
}

func TestDispatch_AllChannelsSucceed(t *testing.T) {
	a := &stubChannel{name: "a"}
	b := &stubChannel{name: "b"}
	d := newStubDispatcher(a, b)

	result := d.Dispatch(context.Background(), []models.Appointment{availableAppointment()})

	assert.Equal(t, models.DeliverySuccess, result.DeliveryStatus)
	assert.True(t, result.Delivered())
	assert.Len(t, result.Channels, 2)
	require.Len(t, a.sent, 1)
	require.Len(t, b.sent, 1)
}

func TestDispatch_PartialFailure(t *testing.T) {
	a := &stubChannel{name: "a"}
	b := &stubChannel{name: "b", err: common.NewDispatchError("b", common.ErrNetworkFailure)}
	d := newStubDispatcher(a, b)

	result := d.Dispatch(context.Background(), []models.Appointment{availableAppointment()})

	assert.Equal(t, models.DeliveryPartial, result.DeliveryStatus)
	assert.True(t, result.Delivered())

	for _, ch := range result.Channels {
		if ch.Channel == "b" {
			assert.False(t, ch.Success)
			assert.NotEmpty(t, ch.Error)
		} else {
			assert.True(t, ch.Success)
		}
	}
}

func TestDispatch_TotalFailure(t *testing.T) {
	a := &stubChannel{name: "a", err: common.NewDispatchError("a", common.ErrNetworkFailure)}
	d := newStubDispatcher(a)

	result := d.Dispatch(context.Background(), []models.Appointment{availableAppointment()})

	assert.Equal(t, models.DeliveryFailed, result.DeliveryStatus)
	assert.False(t, result.Delivered())
}

func TestDispatch_EmptyBatch(t *testing.T) {
	a := &stubChannel{name: "a"}
	d := newStubDispatcher(a)

	result := d.Dispatch(context.Background(), nil)

	assert.False(t, result.Delivered())
	assert.Empty(t, a.sent)
}

func TestNewDispatcher_ChannelSelection(t *testing.T) {
	cfg := config.NewDefaultNotificationConfig()
	cfg.DesktopEnabled = false
	cfg.AudioEnabled = false
	cfg.LogFileEnabled = true
	cfg.LogFilePath = filepath.Join(t.TempDir(), "notifications.log")
	cfg.WebhookURL = "https://example.com/hook"

	d, err := NewDispatcher(cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 2, d.ChannelCount())
}

func TestNewDispatcher_InvalidWebhookURL(t *testing.T) {
	cfg := config.NewDefaultNotificationConfig()
	cfg.WebhookURL = "://not-a-url"

	_, err := NewDispatcher(cfg, zerolog.Nop())
	assert.Error(t, err)
}

func TestFormatter_SingleAppointment(t *testing.T) {
	msg := NewFormatter().Format([]models.Appointment{availableAppointment()})

	assert.Equal(t, "Exam slot available", msg.Title)
	assert.Contains(t, msg.Body, "1404/06/15")
	assert.Contains(t, msg.Body, "Tehran Center 3")
	assert.Contains(t, msg.Body, "/register?slot=101")
}

func TestFormatter_MultipleAppointments(t *testing.T) {
	second := availableAppointment()
	second.Date = "1404/06/16"

	msg := NewFormatter().Format([]models.Appointment{availableAppointment(), second})

	assert.Equal(t, "2 exam slots available", msg.Title)
	assert.Contains(t, msg.Body, "1404/06/16")
}

func TestLogFileChannel_AppendsJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifications.log")
	ch := NewLogFileChannel(path, zerolog.Nop())
	defer ch.Close()

	msg := NewFormatter().Format([]models.Appointment{availableAppointment()})
	require.NoError(t, ch.Send(context.Background(), msg))
	require.NoError(t, ch.Send(context.Background(), msg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var entry logFileEntry
	lines := splitLines(data)
	require.Len(t, lines, 2)
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "Exam slot available", entry.Title)
	require.Len(t, entry.Appointments, 1)
}

func splitLines(data []byte) [][]byte {
	var lines [][]byte
	start := 0
	for i, b := range data {
		if b == '\n' {
			if i > start {
				lines = append(lines, data[start:i])
			}
			start = i + 1
		}
	}
	return lines
}

func TestWebhookChannel_PostsPayload(t *testing.T) {
	var received webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	ch, err := NewWebhookChannel(server.URL, []string{"12345"}, zerolog.Nop())
	require.NoError(t, err)

	msg := NewFormatter().Format([]models.Appointment{availableAppointment()})
	require.NoError(t, ch.Send(context.Background(), msg))

	assert.Contains(t, received.Content, "<@&12345>")
	require.Len(t, received.Embeds, 1)
	assert.Equal(t, "Exam slot available", received.Embeds[0].Title)
	require.Len(t, received.Embeds[0].Fields, 1)
}

func TestWebhookChannel_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	ch, err := NewWebhookChannel(server.URL, nil, zerolog.Nop())
	require.NoError(t, err)

	msg := NewFormatter().Format([]models.Appointment{availableAppointment()})
	err = ch.Send(context.Background(), msg)
	require.Error(t, err)
	assert.Equal(t, common.ErrorKindDispatch, common.ClassifyError(err))
}
