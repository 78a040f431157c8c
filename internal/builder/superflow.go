package builder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/minhdang/bpagent/internal/core/errs"
)

// SuperflowAPI is the slice of the API client the superflow manager needs.
type SuperflowAPI interface {
	CreateSuperflow(ctx context.Context, config map[string]any) (map[string]any, error)
	GetSuperflow(ctx context.Context, superflowID string) (map[string]any, error)
	UpdateSuperflow(ctx context.Context, superflowID string, config map[string]any) (map[string]any, error)
}

// SuperFlowManager builds and amends application superflows.
type SuperFlowManager struct {
	api SuperflowAPI
	log *slog.Logger
}

// NewSuperFlowManager creates a manager on top of an API client.
func NewSuperFlowManager(api SuperflowAPI, logger *slog.Logger) *SuperFlowManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SuperFlowManager{api: api, log: logger}
}

// CreateBasicSuperflow creates a single-flow superflow for a protocol.
// HTTP and FTP get canned default actions; other protocols start empty.
func (m *SuperFlowManager) CreateBasicSuperflow(ctx context.Context, name, protocol string) (map[string]any, error) {
	actions := []map[string]any{}
	switch protocol {
	case "HTTP":
		actions = []map[string]any{
			{
				"actionType":  "GET",
				"source":      "client",
				"destination": "server",
				"path":        "/index.html",
			},
			{
				"actionType":  "RESPONSE",
				"source":      "server",
				"destination": "client",
				"statusCode":  200,
				"contentType": "text/html",
			},
		}
	case "FTP":
		actions = []map[string]any{
			{
				"actionType":  "CONNECT",
				"source":      "client",
				"destination": "server",
			},
			{
				"actionType":  "LOGIN",
				"source":      "client",
				"destination": "server",
				"username":    "anonymous",
				"password":    "anonymous@",
			},
			{
				"actionType":  "GETFILE",
				"source":      "client",
				"destination": "server",
				"filename":    "test.txt",
			},
		}
	}

	config := map[string]any{
		"name":   name,
		"weight": 1,
		"flows": []map[string]any{{
			"name":     protocol + " Flow",
			"protocol": protocol,
			"type":     "STANDARD",
			"actions":  actions,
		}},
	}
	m.log.Debug("creating superflow", "name", name, "protocol", protocol)
	return m.api.CreateSuperflow(ctx, config)
}

// HTTPTransaction is one request/response pair in an HTTP superflow.
type HTTPTransaction struct {
	Method          string
	Path            string
	RequestHeaders  map[string]string
	RequestBody     string
	StatusCode      int
	ContentType     string
	ResponseHeaders map[string]string
	ResponseBody    string
}

// CreateHTTPSuperflow creates an HTTP superflow carrying the given
// transactions in order.
func (m *SuperFlowManager) CreateHTTPSuperflow(ctx context.Context, name string, transactions []HTTPTransaction) (map[string]any, error) {
	actions := make([]map[string]any, 0, len(transactions)*2)
	for _, tx := range transactions {
		method := tx.Method
		if method == "" {
			method = "GET"
		}
		path := tx.Path
		if path == "" {
			path = "/"
		}
		status := tx.StatusCode
		if status == 0 {
			status = 200
		}
		contentType := tx.ContentType
		if contentType == "" {
			contentType = "text/html"
		}

		actions = append(actions, map[string]any{
			"actionType":  method,
			"source":      "client",
			"destination": "server",
			"path":        path,
			"headers":     headersOrEmpty(tx.RequestHeaders),
			"body":        tx.RequestBody,
		})
		actions = append(actions, map[string]any{
			"actionType":  "RESPONSE",
			"source":      "server",
			"destination": "client",
			"statusCode":  status,
			"contentType": contentType,
			"headers":     headersOrEmpty(tx.ResponseHeaders),
			"body":        tx.ResponseBody,
		})
	}

	config := map[string]any{
		"name":   name,
		"weight": 1,
		"flows": []map[string]any{{
			"name":     "HTTP Flow",
			"protocol": "HTTP",
			"type":     "STANDARD",
			"actions":  actions,
		}},
	}
	m.log.Debug("creating http superflow", "name", name, "transactions", len(transactions))
	return m.api.CreateSuperflow(ctx, config)
}

// AddActionToFlow fetches a superflow, appends an action to the flow at
// flowIndex and writes the superflow back.
func (m *SuperFlowManager) AddActionToFlow(ctx context.Context, superflowID string, flowIndex int, action map[string]any) (map[string]any, error) {
	superflow, err := m.api.GetSuperflow(ctx, superflowID)
	if err != nil {
		return nil, err
	}

	flows, _ := superflow["flows"].([]any)
	if flowIndex < 0 || flowIndex >= len(flows) {
		return nil, errs.Validation(
			fmt.Sprintf("flow index %d out of range for superflow %s", flowIndex, superflowID),
			map[string]string{"flowIndex": fmt.Sprintf("must be in [0, %d)", len(flows))})
	}
	flow, ok := flows[flowIndex].(map[string]any)
	if !ok {
		return nil, errs.Validation(
			fmt.Sprintf("superflow %s flow %d has unexpected shape", superflowID, flowIndex), nil)
	}

	actions, _ := flow["actions"].([]any)
	flow["actions"] = append(actions, action)
	return m.api.UpdateSuperflow(ctx, superflowID, superflow)
}

func headersOrEmpty(h map[string]string) map[string]string {
	if h == nil {
		return map[string]string{}
	}
	return h
}
