// Package classifier converts a probe outcome and a target's
// validation rules into the (is_up, reason_code, error_message)
// triple that the store persists, per spec section 4.2.
package classifier

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ferreiragah-dev/gentrack/pkg/prober"
)

// Rules are the optional validation rules carried on a target.
type Rules struct {
	ExpectedSubstring *string
	ExpectedJSONKeys  []string
	MaxLatencyMs      *int
}

// Result is the classifier's verdict for one check.
type Result struct {
	IsUp         bool
	ReasonCode   string
	ErrorMessage string
}

// Classify is a pure function of (rules, outcome): repeated
// invocation with equal inputs produces an equal Result.
func Classify(rules Rules, outcome prober.Outcome) Result {
	if r, ok := classifyTransport(outcome); ok {
		return r
	}
	if r, ok := classifyStatusCode(outcome); ok {
		return r
	}
	if r, ok := classifyLatency(rules, outcome); ok {
		return r
	}
	if r, ok := classifySubstring(rules, outcome); ok {
		return r
	}
	if r, ok := classifyJSONKeys(rules, outcome); ok {
		return r
	}
	return Result{IsUp: true}
}

func classifyTransport(outcome prober.Outcome) (Result, bool) {
	switch outcome.Kind {
	case prober.KindTimeout:
		return Result{ReasonCode: "timeout", ErrorMessage: "Timeout de conexao."}, true
	case prober.KindDNS:
		return Result{ReasonCode: "dns_error", ErrorMessage: "Erro de DNS."}, true
	case prober.KindTLS:
		return Result{ReasonCode: "ssl_error", ErrorMessage: "Erro SSL/TLS."}, true
	case prober.KindConnection:
		return Result{ReasonCode: "connection_error", ErrorMessage: "Falha de conexao: " + outcome.RawError}, true
	case prober.KindUnknown:
		msg := outcome.RawError
		if msg == "" {
			msg = "Erro desconhecido."
		}
		return Result{ReasonCode: "unknown_error", ErrorMessage: msg}, true
	}
	return Result{}, false
}

func classifyStatusCode(outcome prober.Outcome) (Result, bool) {
	code := outcome.StatusCode
	if code == 0 {
		return Result{}, false
	}
	if code >= 200 && code < 400 {
		return Result{}, false
	}
	if code >= 500 {
		return Result{ReasonCode: "http_5xx", ErrorMessage: fmt.Sprintf("HTTP %d", code)}, true
	}
	return Result{ReasonCode: "http_4xx", ErrorMessage: fmt.Sprintf("HTTP %d", code)}, true
}

func classifyLatency(rules Rules, outcome prober.Outcome) (Result, bool) {
	if rules.MaxLatencyMs == nil {
		return Result{}, false
	}
	max := *rules.MaxLatencyMs
	if int(outcome.LatencyMs) <= max {
		return Result{}, false
	}
	msg := fmt.Sprintf("Latencia acima do maximo (%dms > %dms).", outcome.LatencyMs, max)
	return Result{ReasonCode: "latency_exceeded", ErrorMessage: msg}, true
}

func classifySubstring(rules Rules, outcome prober.Outcome) (Result, bool) {
	if rules.ExpectedSubstring == nil {
		return Result{}, false
	}
	body := decodeUTF8(outcome.BodyBytes)
	if strings.Contains(body, *rules.ExpectedSubstring) {
		return Result{}, false
	}
	msg := fmt.Sprintf("Conteudo esperado nao encontrado: '%s'.", *rules.ExpectedSubstring)
	return Result{ReasonCode: "content_mismatch", ErrorMessage: msg}, true
}

func classifyJSONKeys(rules Rules, outcome prober.Outcome) (Result, bool) {
	if len(rules.ExpectedJSONKeys) == 0 {
		return Result{}, false
	}

	body := decodeUTF8(outcome.BodyBytes)
	var doc interface{}
	if err := json.Unmarshal([]byte(body), &doc); err != nil {
		return Result{ReasonCode: "invalid_json", ErrorMessage: "Resposta nao e JSON valido."}, true
	}

	for _, path := range rules.ExpectedJSONKeys {
		if !walkPath(doc, splitPath(path)) {
			return Result{
				ReasonCode:   "json_schema_mismatch",
				ErrorMessage: fmt.Sprintf("Chave JSON ausente: %s", path),
			}, true
		}
	}
	return Result{}, false
}

// decodeUTF8 replaces invalid byte sequences, mirroring a lossy
// UTF-8 decode of the captured body.
func decodeUTF8(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), "�")
}

func splitPath(path string) []string {
	return strings.Split(path, ".")
}

// walkPath descends doc by segment: an object key or a non-negative
// integer array index. Any non-container or missing segment fails
// the walk.
func walkPath(doc interface{}, segments []string) bool {
	cur := doc
	for _, seg := range segments {
		if idx, err := strconv.Atoi(seg); err == nil && idx >= 0 {
			arr, ok := cur.([]interface{})
			if !ok || idx >= len(arr) {
				return false
			}
			cur = arr[idx]
			continue
		}
		obj, ok := cur.(map[string]interface{})
		if !ok {
			return false
		}
		v, present := obj[seg]
		if !present {
			return false
		}
		cur = v
	}
	return true
}
