package captchaai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCreateTask(t *testing.T) {
	res, err := parseCreateTask([]byte(`{"errorId":false,"taskId":"abc123"}`))
	if err != nil {
		t.Fatal(err)
	}
	if res.ErrorID {
		t.Fatal("expected no error flag")
	}
	if res.TaskID != "abc123" {
		t.Fatalf("expected taskId abc123, got %s", res.TaskID)
	}
}

func TestParseCreateTask_NumericFields(t *testing.T) {
	res, err := parseCreateTask([]byte(`{"errorId":0,"taskId":7654321}`))
	if err != nil {
		t.Fatal(err)
	}
	if res.ErrorID {
		t.Fatal("errorId 0 should parse as false")
	}
	if res.TaskID != "7654321" {
		t.Fatalf("expected taskId 7654321, got %s", res.TaskID)
	}
}

func TestParseCreateTask_ServiceError(t *testing.T) {
	res, err := parseCreateTask([]byte(`{"errorId":1,"errorCode":"ERROR_KEY_DOES_NOT_EXIST","errorDescription":"Account authorization key not found"}`))
	if err != nil {
		t.Fatal(err)
	}
	if !res.ErrorID {
		t.Fatal("errorId 1 should parse as true")
	}
	if res.ErrorCode != "ERROR_KEY_DOES_NOT_EXIST" {
		t.Fatalf("unexpected errorCode %q", res.ErrorCode)
	}
	if res.TaskID != "" {
		t.Fatalf("expected empty taskId, got %s", res.TaskID)
	}
}

func TestParseCreateTask_Malformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{invalid`},
		{"array root", `[1,2]`},
		{"string errorId", `{"errorId":"no","taskId":"x"}`},
		{"object taskId", `{"errorId":false,"taskId":{"a":1}}`},
		{"missing taskId", `{"errorId":false}`},
		{"numeric errorCode", `{"errorId":true,"errorCode":12}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseCreateTask([]byte(tt.body))
			if !errors.Is(err, ErrSchema) {
				t.Fatalf("parseCreateTask(%s) error = %v, want ErrSchema", tt.body, err)
			}
		})
	}
}

func TestParseTaskResult_StatusAndStateEquivalent(t *testing.T) {
	withStatus, err := parseTaskResult([]byte(`{"errorId":false,"taskId":"abc123","status":"ready","solution":{"text":"ab12"}}`))
	require.NoError(t, err)
	withState, err := parseTaskResult([]byte(`{"errorId":false,"taskId":"abc123","state":"ready","solution":{"text":"ab12"}}`))
	require.NoError(t, err)

	require.Equal(t, withStatus, withState)
	require.Equal(t, StatusReady, withState.Status)
	require.Equal(t, "ab12", withState.SolutionString("text"))
}

func TestParseTaskResult_Statuses(t *testing.T) {
	tests := []struct {
		body     string
		expected Status
		terminal bool
		known    bool
	}{
		{`{"errorId":0,"status":"idle"}`, StatusIdle, false, true},
		{`{"errorId":0,"status":"processing"}`, StatusProcessing, false, true},
		{`{"errorId":0,"status":"Processing"}`, StatusProcessing, false, true},
		{`{"errorId":0,"status":"ready"}`, StatusReady, true, true},
		{`{"errorId":0,"state":"failed"}`, StatusFailed, true, true},
		{`{"errorId":0,"status":"archived"}`, Status("archived"), true, false},
		{`{"errorId":0}`, StatusProcessing, false, true},
		{`{"errorId":0,"status":null,"state":"ready"}`, StatusReady, true, true},
		{`{"errorId":1,"errorCode":"ERROR_NO_SUCH_CAPCHA_ID"}`, StatusProcessing, true, true},
	}

	for _, tt := range tests {
		res, err := parseTaskResult([]byte(tt.body))
		if err != nil {
			t.Fatalf("parseTaskResult(%s): %v", tt.body, err)
		}
		if res.Status != tt.expected {
			t.Fatalf("parseTaskResult(%s).Status = %q, want %q", tt.body, res.Status, tt.expected)
		}
		if res.Terminal() != tt.terminal {
			t.Fatalf("parseTaskResult(%s).Terminal() = %v, want %v", tt.body, res.Terminal(), tt.terminal)
		}
		if res.Status.Known() != tt.known {
			t.Fatalf("parseTaskResult(%s).Status.Known() = %v, want %v", tt.body, res.Status.Known(), tt.known)
		}
	}
}

func TestParseTaskResult_Malformed(t *testing.T) {
	tests := []string{
		`not json`,
		`{"errorId":false,"status":5}`,
		`{"errorId":false,"status":"ready","solution":"ab12"}`,
		`{"errorId":false,"status":"ready","solution":[1]}`,
		`{"errorId":false,"taskId":true}`,
	}

	for _, body := range tests {
		_, err := parseTaskResult([]byte(body))
		var se *SchemaError
		if !errors.As(err, &se) {
			t.Fatalf("parseTaskResult(%s) error = %v, want *SchemaError", body, err)
		}
		if se.Endpoint != endpointGetTaskResult {
			t.Fatalf("expected endpoint %s, got %s", endpointGetTaskResult, se.Endpoint)
		}
	}
}

func TestParseControl(t *testing.T) {
	res, err := parseControl([]byte(`{"errorId":0,"balance":12.5,"packages":[{"id":1}]}`))
	require.NoError(t, err)
	require.InDelta(t, 12.5, res.Balance, 1e-9)
	require.Len(t, res.Packages, 1)

	res, err = parseControl([]byte(`{"errorId":0,"balance":"3.25"}`))
	require.NoError(t, err)
	require.InDelta(t, 3.25, res.Balance, 1e-9)

	_, err = parseControl([]byte(`{"errorId":0,"balance":{}}`))
	require.ErrorIs(t, err, ErrSchema)
}

func TestTruncateBytes(t *testing.T) {
	if got := truncateBytes([]byte("abc"), 5); got != "abc" {
		t.Fatalf("expected abc, got %s", got)
	}
	if got := truncateBytes([]byte("abcdef"), 3); got != "abc..." {
		t.Fatalf("expected abc..., got %s", got)
	}
}
