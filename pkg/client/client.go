package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"

	"github.com/loadscope/loadscope/internal/common/requestid"
	"github.com/loadscope/loadscope/internal/common/scopeerrors"
	"github.com/loadscope/loadscope/pkg/api"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Error bodies longer than this are cut when they are copied into an error message.
const maxErrorBody = 512

// requestIdFrom returns the request id of ctx, so that a request to the dashboard and the requests it
// causes share one id. Requests without one get a new id.
func requestIdFrom(ctx context.Context) string {
	if id, ok := requestid.FromContext(ctx); ok {
		return id
	}
	return requestid.New()
}

// Client talks to the results and workload service over plain JSON/HTTP.
type Client struct {
	baseUrl    *url.URL
	httpClient *http.Client
}

// GetResults fetches every point newer than afterMs for every series. afterMs == 0 means the full history.
// A response with no body or a body that is not a JSON object yields ErrNotReady.
func (c *Client) GetResults(ctx context.Context, afterMs int64) (api.TimingResults, error) {
	body, err := c.do(ctx, "getResults", http.MethodGet, "/api/getResults/"+strconv.FormatInt(afterMs, 10), nil)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, errors.WithStack(&scopeerrors.ErrNotReady{})
	}
	var results api.TimingResults
	if err := json.Unmarshal(trimmed, &results); err != nil {
		return nil, errors.WithStack(&scopeerrors.ErrNotReady{})
	}
	return results, nil
}

func (c *Client) GetWorkloads(ctx context.Context) ([]api.WorkloadDesc, error) {
	var workloads []api.WorkloadDesc
	if err := c.getJson(ctx, "getWorkloads", "/api/get-workloads", &workloads); err != nil {
		return nil, err
	}
	return workloads, nil
}

// InvokeWorkload starts workload id with params. A non-zero result is returned as ErrInvocationRejected.
func (c *Client) InvokeWorkload(ctx context.Context, id string, params []api.ParamValue) (*api.InvocationResult, error) {
	if params == nil {
		params = []api.ParamValue{}
	}
	payload, err := json.Marshal(params)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	body, err := c.do(ctx, "invokeWorkload", http.MethodPost, "/api/invoke-workload/"+url.PathEscape(id), payload)
	if err != nil {
		return nil, err
	}
	return decodeInvocationResult("invokeWorkload", id, body)
}

func (c *Client) ActiveWorkloads(ctx context.Context) ([]api.WorkloadStatus, error) {
	var statuses []api.WorkloadStatus
	if err := c.getJson(ctx, "activeWorkloads", "/api/active-workloads", &statuses); err != nil {
		return nil, err
	}
	return statuses, nil
}

func (c *Client) TerminateWorkload(ctx context.Context, id string) (*api.InvocationResult, error) {
	body, err := c.do(ctx, "terminateWorkload", http.MethodPost, "/api/terminate-workload/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	return decodeInvocationResult("terminateWorkload", id, body)
}

// ServerInfo returns the node list of the backing database cluster as opaque JSON.
func (c *Client) ServerInfo(ctx context.Context) (jsoniter.RawMessage, error) {
	body, err := c.do(ctx, "serverInfo", http.MethodGet, "/api/ybserverinfo", nil)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, errors.WithStack(&scopeerrors.ErrTransport{
			Op:    "serverInfo",
			Cause: errors.New("response is not valid json"),
		})
	}
	return body, nil
}

func (c *Client) CreateTable(ctx context.Context) error {
	_, err := c.do(ctx, "createTable", http.MethodGet, "/api/create-table", nil)
	return err
}

func (c *Client) TruncateTable(ctx context.Context) error {
	_, err := c.do(ctx, "truncateTable", http.MethodGet, "/api/truncate-table", nil)
	return err
}

// Simulate starts one of the built-in simulations, e.g. workload "updates" calls /api/simulate-updates.
func (c *Client) Simulate(ctx context.Context, workload string, numThreads, numRequests int) error {
	path := fmt.Sprintf("/api/simulate-%s/%d/%d", url.PathEscape(workload), numThreads, numRequests)
	_, err := c.do(ctx, "simulate", http.MethodGet, path, nil)
	return err
}

func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) getJson(ctx context.Context, op, path string, out interface{}) error {
	body, err := c.do(ctx, op, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.WithStack(&scopeerrors.ErrTransport{
			Op:    op,
			Cause: errors.Wrap(err, "error decoding response"),
		})
	}
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseUrl.String()+path, reader)
	if err != nil {
		return nil, errors.WithStack(&scopeerrors.ErrTransport{Op: op, Cause: err})
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(requestid.HeaderKey, requestIdFrom(ctx))
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.WithStack(&scopeerrors.ErrTransport{Op: op, Cause: err})
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.WithStack(&scopeerrors.ErrTransport{Op: op, StatusCode: resp.StatusCode, Cause: err})
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		return nil, errors.WithStack(&scopeerrors.ErrTransport{
			Op:         op,
			StatusCode: resp.StatusCode,
			Cause:      errors.Errorf("%s", bytes.TrimSpace(body)),
		})
	}
	return body, nil
}

func decodeInvocationResult(op, workloadId string, body []byte) (*api.InvocationResult, error) {
	result := &api.InvocationResult{}
	if err := json.Unmarshal(body, result); err != nil {
		return nil, errors.WithStack(&scopeerrors.ErrTransport{
			Op:    op,
			Cause: errors.Wrap(err, "error decoding invocation result"),
		})
	}
	if !result.Succeeded() {
		return result, errors.WithStack(&scopeerrors.ErrInvocationRejected{
			WorkloadId: workloadId,
			Result:     result.Result,
			Reason:     result.Data,
		})
	}
	return result, nil
}
