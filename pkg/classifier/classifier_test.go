package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ferreiragah-dev/gentrack/pkg/prober"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestClassifySuccessIsUp(t *testing.T) {
	outcome := prober.Outcome{Kind: prober.KindHTTPStatus, StatusCode: 200, BodyBytes: []byte("hello"), LatencyMs: 42}
	r := Classify(Rules{}, outcome)
	assert.True(t, r.IsUp)
	assert.Empty(t, r.ReasonCode)
}

func TestClassifyTransportFailures(t *testing.T) {
	cases := []struct {
		kind   prober.Kind
		reason string
	}{
		{prober.KindTimeout, "timeout"},
		{prober.KindDNS, "dns_error"},
		{prober.KindTLS, "ssl_error"},
		{prober.KindConnection, "connection_error"},
		{prober.KindUnknown, "unknown_error"},
	}
	for _, c := range cases {
		r := Classify(Rules{}, prober.Outcome{Kind: c.kind})
		assert.False(t, r.IsUp)
		assert.Equal(t, c.reason, r.ReasonCode)
	}
}

func TestClassifyHTTP5xxAnd4xx(t *testing.T) {
	r := Classify(Rules{}, prober.Outcome{Kind: prober.KindHTTPStatus, StatusCode: 503})
	assert.False(t, r.IsUp)
	assert.Equal(t, "http_5xx", r.ReasonCode)
	assert.Equal(t, "HTTP 503", r.ErrorMessage)

	r = Classify(Rules{}, prober.Outcome{Kind: prober.KindHTTPStatus, StatusCode: 404})
	assert.False(t, r.IsUp)
	assert.Equal(t, "http_4xx", r.ReasonCode)
}

func TestClassifyContentMismatch(t *testing.T) {
	rules := Rules{ExpectedSubstring: strPtr("ready")}
	outcome := prober.Outcome{Kind: prober.KindHTTPStatus, StatusCode: 200, BodyBytes: []byte("not yet")}
	r := Classify(rules, outcome)
	assert.False(t, r.IsUp)
	assert.Equal(t, "content_mismatch", r.ReasonCode)
}

func TestClassifyJSONPathScenarios(t *testing.T) {
	rules := Rules{ExpectedJSONKeys: []string{"data.items.0.id"}}

	up := Classify(rules, prober.Outcome{Kind: prober.KindHTTPStatus, StatusCode: 200, BodyBytes: []byte(`{"data":{"items":[{"id":7}]}}`)})
	assert.True(t, up.IsUp)

	missing := Classify(rules, prober.Outcome{Kind: prober.KindHTTPStatus, StatusCode: 200, BodyBytes: []byte(`{"data":{"items":[]}}`)})
	assert.False(t, missing.IsUp)
	assert.Equal(t, "json_schema_mismatch", missing.ReasonCode)

	invalid := Classify(rules, prober.Outcome{Kind: prober.KindHTTPStatus, StatusCode: 200, BodyBytes: []byte(`not json`)})
	assert.False(t, invalid.IsUp)
	assert.Equal(t, "invalid_json", invalid.ReasonCode)
}

func TestClassifyLatencyExceeded(t *testing.T) {
	rules := Rules{MaxLatencyMs: intPtr(100)}
	outcome := prober.Outcome{Kind: prober.KindHTTPStatus, StatusCode: 200, LatencyMs: 250, BodyBytes: []byte("ok")}
	r := Classify(rules, outcome)
	assert.False(t, r.IsUp)
	assert.Equal(t, "latency_exceeded", r.ReasonCode)
	assert.Contains(t, r.ErrorMessage, "250ms > 100ms")
}

func TestClassifyIsPure(t *testing.T) {
	rules := Rules{ExpectedSubstring: strPtr("ok")}
	outcome := prober.Outcome{Kind: prober.KindHTTPStatus, StatusCode: 200, BodyBytes: []byte("ok")}
	a := Classify(rules, outcome)
	b := Classify(rules, outcome)
	assert.Equal(t, a, b)
}
