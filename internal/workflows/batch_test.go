package workflows

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/PolarWolf314/sfcpay/internal/audit"
	"github.com/PolarWolf314/sfcpay/internal/claims"
	"github.com/PolarWolf314/sfcpay/internal/codec"
	"github.com/PolarWolf314/sfcpay/internal/credentials"
	kerrors "github.com/PolarWolf314/sfcpay/internal/errors"
	"github.com/PolarWolf314/sfcpay/internal/host"
	logger "github.com/PolarWolf314/sfcpay/internal/logging"
	"github.com/PolarWolf314/sfcpay/internal/pipeline"
	"github.com/PolarWolf314/sfcpay/internal/testutil"
	"github.com/PolarWolf314/sfcpay/internal/transport"
)

// rejectedNRIC makes claimAPI answer with a non-zero result code.
const rejectedNRIC = "T0000000Z"

// claimAPI decrypts encrypt-payload requests and echoes the NRIC back.
type claimAPI struct {
	t     *testing.T
	calls atomic.Int32
}

func (a *claimAPI) Send(_ context.Context, bundle credentials.Bundle, req transport.Request) (*transport.Response, error) {
	a.calls.Add(1)

	var claim claims.EncryptPayload
	if err := decryptJSON(string(req.Body), bundle.EncryptionKey, &claim); err != nil {
		a.t.Errorf("Failed to decrypt request body: %v", err)
		return nil, err
	}

	nric := claim.ClaimRequest.Individual.NRIC
	if nric == rejectedNRIC {
		return &transport.Response{
			StatusCode: http.StatusOK,
			Payload: map[string]json.RawMessage{
				"result": json.RawMessage(`4001`),
				"error":  json.RawMessage(`{"message":"individual not eligible"}`),
			},
		}, nil
	}

	ciphertext, err := codec.Encrypt(map[string]string{"status": "received", "nric": nric}, bundle.EncryptionKey)
	if err != nil {
		return nil, err
	}
	body, _ := json.Marshal(ciphertext)
	return &transport.Response{
		StatusCode: http.StatusOK,
		Payload: map[string]json.RawMessage{
			"result": json.RawMessage(`0`),
			"body":   body,
		},
	}, nil
}

func bundleResolver(context.Context) (credentials.Bundle, error) {
	return credentials.Bundle{EncryptionKey: testutil.EncryptionKey(), UseTestEnvironment: true}, nil
}

func batchHost(t *testing.T, nrics ...string) *host.FileHost {
	t.Helper()

	var b strings.Builder
	b.WriteString("operation: sfc_encrypt_payload\n")
	b.WriteString("defaults:\n  courseId: TGS-2020002106\n  courseRunId: \"10026\"\n  courseFee: \"500.00\"\n  courseStartDate: 2024-03-01\n")
	b.WriteString("items:\n")
	for _, nric := range nrics {
		b.WriteString("  - individualNric: " + nric + "\n")
	}

	h, err := host.Parse([]byte(b.String()), bundleResolver)
	if err != nil {
		t.Fatalf("Failed to parse items: %v", err)
	}
	return h
}

func TestRunBatchAllSucceed(t *testing.T) {
	api := &claimAPI{t: t}
	orch := pipeline.New(api, logger.Logger{})
	h := batchHost(t, "S1234567A", "s7654321b", "F1111111C")

	var mu sync.Mutex
	var seen []int
	result, err := RunBatch(context.Background(), h, orch, BatchOptions{
		Concurrency: 2,
		OnItem: func(item ItemResult) {
			mu.Lock()
			seen = append(seen, item.Index)
			mu.Unlock()
		},
	})
	if err != nil {
		t.Fatalf("RunBatch() error: %v", err)
	}

	if result.Succeeded != 3 || result.Failed != 0 {
		t.Errorf("Expected 3 succeeded, got %d succeeded and %d failed", result.Succeeded, result.Failed)
	}
	if result.Environment != credentials.EnvironmentTest {
		t.Errorf("Expected environment %q, got %q", credentials.EnvironmentTest, result.Environment)
	}
	if result.RunID == "" {
		t.Error("Expected a run id")
	}
	if len(seen) != 3 {
		t.Errorf("Expected OnItem for 3 items, got %d", len(seen))
	}

	want := []string{"S1234567A", "S7654321B", "F1111111C"}
	for i, item := range result.Items {
		if item.Index != i {
			t.Errorf("Item %d has index %d", i, item.Index)
		}
		var out struct {
			Body struct {
				NRIC string `json:"nric"`
			} `json:"body"`
			Result int `json:"result"`
		}
		if err := json.Unmarshal(item.Output, &out); err != nil {
			t.Fatalf("Item %d output is not JSON: %v", i, err)
		}
		if out.Body.NRIC != want[i] {
			t.Errorf("Item %d: expected NRIC %s, got %s", i, want[i], out.Body.NRIC)
		}
	}
}

func TestRunBatchContinueOnFailure(t *testing.T) {
	api := &claimAPI{t: t}
	orch := pipeline.New(api, logger.Logger{})
	h := batchHost(t, "S1234567A", rejectedNRIC, "F1111111C")
	h.SetContinueOnFailure(true)

	logPath := filepath.Join(t.TempDir(), "audit.jsonl")
	result, err := RunBatch(context.Background(), h, orch, BatchOptions{Concurrency: 1, Audit: audit.New(logPath)})
	if err != nil {
		t.Fatalf("RunBatch() error: %v", err)
	}

	if result.Succeeded != 2 || result.Failed != 1 {
		t.Errorf("Expected 2 succeeded and 1 failed, got %d and %d", result.Succeeded, result.Failed)
	}

	failed := result.Items[1]
	var apiErr *kerrors.APIError
	if !errors.As(failed.Err, &apiErr) || apiErr.ResultCode != 4001 {
		t.Fatalf("Expected APIError 4001, got %v", failed.Err)
	}
	var out map[string]string
	if err := json.Unmarshal(failed.Output, &out); err != nil {
		t.Fatalf("Failed item output is not JSON: %v", err)
	}
	if out["error"] == "" {
		t.Errorf("Expected an error message in output, got %s", failed.Output)
	}

	outputs := result.Outputs()
	if len(outputs) != 3 {
		t.Fatalf("Expected 3 outputs, got %d", len(outputs))
	}
	for i, o := range outputs {
		if string(o) != string(result.Items[i].Output) {
			t.Errorf("Output %d = %s, want %s", i, o, result.Items[i].Output)
		}
	}

	entries, err := audit.ReadEntries(logPath)
	if err != nil {
		t.Fatalf("Failed to read audit log: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("Expected 3 audit entries, got %d", len(entries))
	}
	failures := 0
	for _, e := range entries {
		if e.RunID != result.RunID {
			t.Errorf("Expected run id %s, got %s", result.RunID, e.RunID)
		}
		if e.Path != claims.PathEncryptRequests {
			t.Errorf("Expected path %s, got %s", claims.PathEncryptRequests, e.Path)
		}
		if !e.Succeeded() {
			failures++
			if e.ResultCode == nil || *e.ResultCode != 4001 {
				t.Errorf("Expected result code 4001 in failed entry, got %v", e.ResultCode)
			}
		}
	}
	if failures != 1 {
		t.Errorf("Expected 1 failed audit entry, got %d", failures)
	}
}

func TestRunBatchAbortsOnFirstFailure(t *testing.T) {
	api := &claimAPI{t: t}
	orch := pipeline.New(api, logger.Logger{})
	h := batchHost(t, rejectedNRIC, "S1234567A", "F1111111C", "G2222222D")

	_, err := RunBatch(context.Background(), h, orch, BatchOptions{Concurrency: 1})
	var itemErr *ItemError
	if !errors.As(err, &itemErr) {
		t.Fatalf("Expected ItemError, got %v", err)
	}
	if itemErr.Index != 0 {
		t.Errorf("Expected item 0 to fail, got %d", itemErr.Index)
	}
	if !errors.Is(err, kerrors.ErrAPI) {
		t.Errorf("Expected error to wrap ErrAPI, got %v", err)
	}
	if n := api.calls.Load(); n >= 4 {
		t.Errorf("Expected remaining items to be skipped, got %d calls", n)
	}
}

func TestRunBatchInvalidItemIsPrepareFailure(t *testing.T) {
	api := &claimAPI{t: t}
	orch := pipeline.New(api, logger.Logger{})
	h := batchHost(t, "S1234567A", "not-an-nric")
	h.SetContinueOnFailure(true)

	result, err := RunBatch(context.Background(), h, orch, BatchOptions{Concurrency: 2})
	if err != nil {
		t.Fatalf("RunBatch() error: %v", err)
	}

	var reqErr *kerrors.RequestError
	if !errors.As(result.Items[1].Err, &reqErr) || reqErr.Stage != kerrors.StagePrepare {
		t.Fatalf("Expected prepare-stage RequestError, got %v", result.Items[1].Err)
	}
	if !errors.Is(result.Items[1].Err, kerrors.ErrInvalidNRIC) {
		t.Errorf("Expected ErrInvalidNRIC, got %v", result.Items[1].Err)
	}
	if api.calls.Load() != 1 {
		t.Errorf("Expected only the valid item to be sent, got %d calls", api.calls.Load())
	}
}

func TestRunBatchCredentialFailure(t *testing.T) {
	h, err := host.Parse([]byte("items:\n  - operation: encrypt_payload\n"), nil)
	if err != nil {
		t.Fatalf("Failed to parse items: %v", err)
	}
	orch := pipeline.New(&claimAPI{t: t}, logger.Logger{})

	if _, err := RunBatch(context.Background(), h, orch, BatchOptions{}); !errors.Is(err, kerrors.ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
}

func TestCall(t *testing.T) {
	api := &claimAPI{t: t}
	orch := pipeline.New(api, logger.Logger{})

	params := map[string]string{
		ParamOperation:       "encrypt_payload",
		ParamCourseID:        "TGS-2020002106",
		ParamCourseRunID:     "10026",
		ParamCourseFee:       "500",
		ParamCourseStartDate: "2024-03-01",
		ParamIndividualNRIC:  "S1234567A",
	}

	item, err := Call(context.Background(), &host.MapHost{Params: params, Resolve: bundleResolver}, orch, nil)
	if err != nil {
		t.Fatalf("Call() error: %v", err)
	}
	if item.Operation != string(claims.OpEncryptPayload) || item.Failed() {
		t.Errorf("Unexpected item %+v", item)
	}

	params[ParamIndividualNRIC] = rejectedNRIC
	if _, err := Call(context.Background(), &host.MapHost{Params: params, Resolve: bundleResolver}, orch, nil); !errors.Is(err, kerrors.ErrAPI) {
		t.Errorf("Expected ErrAPI, got %v", err)
	}

	item, err = Call(context.Background(), &host.MapHost{Params: params, Resolve: bundleResolver, ContinueOnFailure: true}, orch, nil)
	if err != nil {
		t.Fatalf("Call() in continue mode error: %v", err)
	}
	if !item.Failed() || !strings.Contains(string(item.Output), `"error"`) {
		t.Errorf("Expected error output, got %s", item.Output)
	}
}

// decryptJSON decrypts a request body the way the remote service would.
func decryptJSON(ciphertext, key string, v any) error {
	plaintext, err := codec.Decrypt(ciphertext, key)
	if err != nil {
		return err
	}
	return json.Unmarshal(plaintext, v)
}
