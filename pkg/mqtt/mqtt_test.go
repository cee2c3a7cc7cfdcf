package mqtt

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTopicMatch(t *testing.T) {
	tests := []struct {
		pattern string
		topic   string
		want    bool
	}{
		{"uselessbot/music/1/playing", "uselessbot/music/1/playing", true},
		{"uselessbot/music/+/playing", "uselessbot/music/1/playing", true},
		{"uselessbot/music/+/playing", "uselessbot/music/1/stopped", false},
		{"uselessbot/music/#", "uselessbot/music/1/progress", true},
		{"uselessbot/music/#", "uselessbot/music", true},
		{"uselessbot/bank/+", "uselessbot/bank/move/extra", false},
		{"uselessbot/+", "uselessbot", false},
		{"#", "anything/at/all", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern+"|"+tt.topic, func(t *testing.T) {
			assert.Equal(t, tt.want, topicMatch(tt.pattern, tt.topic))
		})
	}
}

func TestTopicHelpers(t *testing.T) {
	assert.Equal(t, "uselessbot/music/42/playing", MusicTopic("42", "playing"))
	assert.Equal(t, "uselessbot/bank/move", BankTopic("move"))
	assert.Equal(t, "uselessbot/request/music/queue", requestTopic("music/queue"))
	assert.Equal(t, "uselessbot/response/music/queue/abc", responseTopic("music/queue", "abc"))
}

func TestPublishWithoutConnection(t *testing.T) {
	var nilComm *MqttCommunicator
	assert.ErrorIs(t, nilComm.Publish("x", 1), ErrNotConnected)

	mc := newCommunicator("test")
	assert.ErrorIs(t, mc.Publish("x", 1), ErrNotConnected)

	_, err := mc.Request("music/queue", nil, 0)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestDispatchUsesWildcards(t *testing.T) {
	mc := newCommunicator("test")

	var got []string
	require.NoError(t, mc.Subscribe("uselessbot/music/+/playing", func(topic string, _ []byte) {
		got = append(got, "playing:"+topic)
	}))
	require.NoError(t, mc.Subscribe("uselessbot/bank/#", func(topic string, _ []byte) {
		got = append(got, "bank:"+topic)
	}))

	mc.dispatch("uselessbot/music/7/playing", nil)
	mc.dispatch("uselessbot/music/7/stopped", nil)
	mc.dispatch("uselessbot/bank/deposit", nil)

	assert.Equal(t, []string{"playing:uselessbot/music/7/playing", "bank:uselessbot/bank/deposit"}, got)

	require.NoError(t, mc.Unsubscribe("uselessbot/bank/#"))
	got = nil
	mc.dispatch("uselessbot/bank/deposit", nil)
	assert.Empty(t, got)
}

func TestHandleRequest(t *testing.T) {
	req := MqttRequest{CorrelationID: "c1", Payload: map[string]interface{}{"guildId": "9"}}

	resp := handleRequest("music/queue", req, func(p map[string]interface{}) (interface{}, error) {
		assert.Equal(t, "music/queue", p["_topic"])
		return p["guildId"], nil
	})
	assert.Equal(t, "c1", resp.CorrelationID)
	assert.Equal(t, "9", resp.Data)
	assert.Empty(t, resp.Error)

	resp = handleRequest("music/queue", MqttRequest{CorrelationID: "c2"}, func(map[string]interface{}) (interface{}, error) {
		return nil, errors.New("no player")
	})
	assert.Equal(t, "no player", resp.Error)
}
