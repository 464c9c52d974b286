package observability

import (
	"context"
	"strings"
	"testing"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObservability_RecordsToRegistry(t *testing.T) {
	reg := promclient.NewRegistry()
	obs, err := New("crm-gateway-test", reg)
	require.NoError(t, err)
	defer obs.Shutdown(context.Background())

	ctx := context.Background()
	obs.RecordCRMRequest(ctx, "contacts.search", 200, 15*time.Millisecond)
	obs.RecordTokenRefresh(ctx, "success")
	obs.RecordUpsert(ctx, "contact", "created")

	families, err := reg.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	joined := strings.Join(names, ",")

	assert.Contains(t, joined, "crm_requests")
	assert.Contains(t, joined, "crm_request_duration")
	assert.Contains(t, joined, "crm_token_refreshes")
	assert.Contains(t, joined, "crm_upserts")
}

func TestObservability_NilIsNoop(t *testing.T) {
	var obs *Observability
	ctx := context.Background()

	assert.NotPanics(t, func() {
		obs.RecordCRMRequest(ctx, "op", 500, time.Second)
		obs.RecordTokenRefresh(ctx, "failure")
		obs.RecordUpsert(ctx, "deal", "updated")
		_, span := obs.StartSpan(ctx, "noop")
		span.End()
	})
	assert.NoError(t, obs.Shutdown(ctx))
}
