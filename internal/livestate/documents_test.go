package livestate

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/gasguard/internal/application"
	"github.com/example/gasguard/internal/persistence"
)

func TestDocumentStreamAppendsRequest(t *testing.T) {
	_, client := newRedis(t)
	ctx := context.Background()
	stream := NewDocumentStream(client, "test:", 0, nil)

	request := application.DocumentRequest{
		Kind:            application.DocumentCertificate,
		EventID:         "ev-1",
		EquipmentID:     "eq-1",
		EquipmentSerial: "ARXX-0001",
		MaintenanceType: persistence.MaintenanceCalibration,
		Date:            "2024-03-10",
		CompletedAt:     time.Date(2024, 3, 10, 11, 0, 0, 0, time.UTC),
		Outcome:         map[string]string{"result": "pass"},
	}
	require.NoError(t, stream.RequestDocument(ctx, request))

	entries, err := client.XRange(ctx, "test:documents", "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	values := entries[0].Values
	assert.Equal(t, "certificate", values["kind"])
	assert.Equal(t, "ev-1", values["event_id"])
	assert.Equal(t, "eq-1", values["equipment_id"])

	var decoded application.DocumentRequest
	require.NoError(t, json.Unmarshal([]byte(values["payload"].(string)), &decoded))
	assert.Equal(t, request.EquipmentSerial, decoded.EquipmentSerial)
	assert.Equal(t, request.Outcome, decoded.Outcome)
	assert.True(t, decoded.CompletedAt.Equal(request.CompletedAt))
}

func TestDocumentStreamReportsRedisFailure(t *testing.T) {
	server, client := newRedis(t)
	stream := NewDocumentStream(client, "", 0, nil)
	server.Close()

	err := stream.RequestDocument(context.Background(), application.DocumentRequest{Kind: application.DocumentReport})
	assert.Error(t, err)
	assert.Equal(t, "gasguard:documents", stream.Stream())
}
