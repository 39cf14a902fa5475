package report

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/smazurov/camspeed/internal/events"
	"github.com/smazurov/camspeed/internal/fps"
)

func TestConsoleFormats(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{FormatSuffix, "30fps\n0fps\n"},
		{FormatLabel, "FPS: 30\nFPS: 0\n"},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			var buf bytes.Buffer
			c := NewConsole(&buf, tt.format)
			c.Report(fps.Report{Frames: 30})
			c.Report(fps.Report{Frames: 0})
			if buf.String() != tt.want {
				t.Errorf("output = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != FormatSuffix {
		t.Errorf("ParseFormat(\"\") = %q, %v", f, err)
	}
	if f, err := ParseFormat("label"); err != nil || f != FormatLabel {
		t.Errorf("ParseFormat(label) = %q, %v", f, err)
	}
	if _, err := ParseFormat("csv"); err == nil {
		t.Error("ParseFormat(csv) should fail")
	}
}

func TestMultiFansOutInOrder(t *testing.T) {
	var order []string
	m := Multi{
		fps.ReporterFunc(func(fps.Report) { order = append(order, "a") }),
		nil,
		fps.ReporterFunc(func(fps.Report) { order = append(order, "b") }),
	}
	m.Report(fps.Report{})
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Errorf("order = %v", order)
	}
}

type fakeToken struct {
	mqtt.Token
	err error
}

func (t fakeToken) Wait() bool                     { return true }
func (t fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t fakeToken) Error() error                   { return t.err }

type published struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	mqtt.Client
	messages chan published
}

func (c *fakeClient) Publish(topic string, qos byte, _ bool, payload any) mqtt.Token {
	c.messages <- published{topic: topic, qos: qos, payload: payload.([]byte)}
	return fakeToken{}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMQTTPublishPayload(t *testing.T) {
	client := &fakeClient{messages: make(chan published, 1)}
	m := newMQTT(client, MQTTConfig{Topic: "lab/cameras/", QoS: 1}, discardLogger())

	ts := time.Date(2026, 5, 6, 7, 8, 9, 0, time.UTC)
	err := m.Publish(events.ReportEvent{
		SessionID: "abc", Serial: "SIM20001", Seq: 3, Frames: 225, FPS: 225,
		Interval: time.Second, Timestamp: ts,
	})
	if err != nil {
		t.Fatal(err)
	}

	msg := <-client.messages
	if msg.topic != "lab/cameras/SIM20001/fps" {
		t.Errorf("topic = %q", msg.topic)
	}
	if msg.qos != 1 {
		t.Errorf("qos = %d", msg.qos)
	}
	var got MQTTPayload
	if err := json.Unmarshal(msg.payload, &got); err != nil {
		t.Fatal(err)
	}
	want := MQTTPayload{SessionID: "abc", Serial: "SIM20001", Seq: 3, Frames: 225, FPS: 225, IntervalMs: 1000, Timestamp: ts}
	if got != want {
		t.Errorf("payload = %+v, want %+v", got, want)
	}
}

func TestMQTTAttach(t *testing.T) {
	bus := events.New()
	defer bus.Close()
	client := &fakeClient{messages: make(chan published, 4)}
	m := newMQTT(client, MQTTConfig{Topic: "camspeed"}, discardLogger())

	detach := m.Attach(bus)
	defer detach()
	events.Publish(bus, events.ReportEvent{Serial: "X", Frames: 12})

	select {
	case msg := <-client.messages:
		if msg.topic != "camspeed/X/fps" {
			t.Errorf("topic = %q", msg.topic)
		}
	case <-time.After(time.Second):
		t.Fatal("report was not published")
	}
}
