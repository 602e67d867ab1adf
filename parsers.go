package captchaai

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
)

// parseEnvelope validates the body as a JSON object and extracts the common
// error fields.
func parseEnvelope(endpoint string, body []byte) (gjson.Result, Response, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, Response{}, schemaErr(endpoint, body, errors.New("invalid JSON"))
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return gjson.Result{}, Response{}, schemaErr(endpoint, body, fmt.Errorf("expected object, got %s", root.Type))
	}

	var resp Response
	if v := root.Get("errorId"); v.Exists() {
		switch v.Type {
		case gjson.True, gjson.False, gjson.Number:
			resp.ErrorID = v.Bool()
		case gjson.Null:
		default:
			return gjson.Result{}, Response{}, schemaErr(endpoint, body, fmt.Errorf("errorId: unexpected %s", v.Type))
		}
	}
	var err error
	if resp.ErrorCode, err = optionalString(root, "errorCode"); err != nil {
		return gjson.Result{}, Response{}, schemaErr(endpoint, body, err)
	}
	if resp.ErrorDescription, err = optionalString(root, "errorDescription"); err != nil {
		return gjson.Result{}, Response{}, schemaErr(endpoint, body, err)
	}
	return root, resp, nil
}

// parseCreateTask parses a createTask body. A successful answer must carry a task id.
func parseCreateTask(body []byte) (*CreateTaskResponse, error) {
	root, env, err := parseEnvelope(endpointCreateTask, body)
	if err != nil {
		return nil, err
	}
	taskID, err := parseTaskID(root)
	if err != nil {
		return nil, schemaErr(endpointCreateTask, body, err)
	}
	if !env.ErrorID && taskID == "" {
		return nil, schemaErr(endpointCreateTask, body, errors.New("taskId missing"))
	}
	return &CreateTaskResponse{Response: env, TaskID: taskID}, nil
}

// parseTaskResult parses a getTaskResult body. The status is read from
// "status" and falls back to "state"; a missing status means processing.
func parseTaskResult(body []byte) (*TaskResultResponse, error) {
	root, env, err := parseEnvelope(endpointGetTaskResult, body)
	if err != nil {
		return nil, err
	}
	res := &TaskResultResponse{Response: env, Status: StatusProcessing}

	if res.TaskID, err = parseTaskID(root); err != nil {
		return nil, schemaErr(endpointGetTaskResult, body, err)
	}

	st := root.Get("status")
	if !st.Exists() || st.Type == gjson.Null {
		st = root.Get("state")
	}
	switch st.Type {
	case gjson.String:
		res.Status = parseStatus(st.String())
	case gjson.Null:
	default:
		return nil, schemaErr(endpointGetTaskResult, body, fmt.Errorf("status: unexpected %s", st.Type))
	}

	if sol := root.Get("solution"); sol.Exists() && sol.Type != gjson.Null {
		if !sol.IsObject() {
			return nil, schemaErr(endpointGetTaskResult, body, fmt.Errorf("solution: expected object, got %s", sol.Type))
		}
		if err := json.Unmarshal([]byte(sol.Raw), &res.Solution); err != nil {
			return nil, schemaErr(endpointGetTaskResult, body, fmt.Errorf("solution: %w", err))
		}
	}
	return res, nil
}

// parseControl parses a getBalance body.
func parseControl(body []byte) (*ControlResponse, error) {
	root, env, err := parseEnvelope(endpointGetBalance, body)
	if err != nil {
		return nil, err
	}
	res := &ControlResponse{Response: env}

	if bal := root.Get("balance"); bal.Exists() {
		switch bal.Type {
		case gjson.Number:
			res.Balance = bal.Float()
		case gjson.String:
			// some deployments send the balance as a decimal string
			if err := json.Unmarshal([]byte(bal.String()), &res.Balance); err != nil {
				return nil, schemaErr(endpointGetBalance, body, fmt.Errorf("balance: %w", err))
			}
		case gjson.Null:
		default:
			return nil, schemaErr(endpointGetBalance, body, fmt.Errorf("balance: unexpected %s", bal.Type))
		}
	}
	if pkgs := root.Get("packages"); pkgs.IsArray() {
		for _, p := range pkgs.Array() {
			res.Packages = append(res.Packages, p.Value())
		}
	}
	return res, nil
}

// parseTaskID normalises a string or numeric taskId to a string.
func parseTaskID(root gjson.Result) (string, error) {
	v := root.Get("taskId")
	switch v.Type {
	case gjson.String, gjson.Number:
		return v.String(), nil
	case gjson.Null:
		return "", nil
	}
	return "", fmt.Errorf("taskId: unexpected %s", v.Type)
}

func optionalString(root gjson.Result, key string) (string, error) {
	v := root.Get(key)
	switch v.Type {
	case gjson.String:
		return v.String(), nil
	case gjson.Null:
		return "", nil
	}
	return "", fmt.Errorf("%s: unexpected %s", key, v.Type)
}

func schemaErr(endpoint string, body []byte, err error) *SchemaError {
	return &SchemaError{Endpoint: endpoint, Body: truncateBytes(body, 200), Err: err}
}

func truncateBytes(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
