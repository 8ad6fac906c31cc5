package mapper

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperifyio/tradedoc/internal/govern"
	"github.com/hyperifyio/tradedoc/internal/jsonrepair"
	"github.com/hyperifyio/tradedoc/internal/normalize"
	"github.com/hyperifyio/tradedoc/internal/pipeline"
	"github.com/hyperifyio/tradedoc/internal/record"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

// scriptedClient returns its replies in order, one per call.
type scriptedClient struct {
	replies []string
	errs    []error
	calls   int
}

func (s *scriptedClient) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return openai.ChatCompletionResponse{}, s.errs[i]
	}
	reply := ""
	if i < len(s.replies) {
		reply = s.replies[i]
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: reply}},
		},
	}, nil
}

func testMapper(c *scriptedClient, clk *fakeClock) *Mapper {
	gov := &govern.Governor{
		Limits: govern.Limits{MaxAttempts: 1, MaxSleepSlice: time.Hour},
		Clock:  clk,
	}
	norm := normalize.New(normalize.Options{
		Now: func() time.Time { return clk.Now() },
	})
	return New(c, "test-model", gov, norm)
}

var orderText = []byte("Purchase Order PO-99 Customer: Apex Industrial Supplies Total Amount: USD 1,234.50")

func TestMap_FencedResponse(t *testing.T) {
	c := &scriptedClient{replies: []string{
		"```json\n{\"isValid\":true,\"poData\":{\"poNumber\":\"PO-99\",\"customerName\":\"Apex Industrial Supplies\",\"totalAmount\":\"1,234.50\"},\"summary\":\"ok\"}\n```",
	}}
	m := testMapper(c, newFakeClock())
	doc, err := m.Map(context.Background(), orderText, "order.txt", record.KindPurchaseOrder)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if c.calls != 1 {
		t.Fatalf("calls = %d", c.calls)
	}
	if doc.Number != "PO-99" || doc.GrandTotal != 1234.50 || !doc.Valid {
		t.Fatalf("doc = %+v", doc)
	}
}

func TestMap_EmptyBytesIsExtractionFailure(t *testing.T) {
	c := &scriptedClient{}
	m := testMapper(c, newFakeClock())
	_, err := m.Map(context.Background(), []byte{0x00, 0x01}, "blob.bin", record.KindPurchaseOrder)
	if pipeline.Classify(err) != pipeline.KindExtraction {
		t.Fatalf("expected extraction failure, got %v", err)
	}
	if c.calls != 0 {
		t.Fatal("model called despite empty extraction")
	}
}

func TestMap_UnrepairableReply(t *testing.T) {
	c := &scriptedClient{replies: []string{"I could not find any structured data in the document, sorry."}}
	m := testMapper(c, newFakeClock())
	_, err := m.Map(context.Background(), orderText, "order.txt", record.KindPurchaseOrder)
	var rf *jsonrepair.Failure
	if !errors.As(err, &rf) {
		t.Fatalf("expected repair failure, got %v", err)
	}
	if pipeline.Classify(err) != pipeline.KindRepair {
		t.Fatalf("classification = %v", pipeline.Classify(err))
	}
}

func TestMap_QuotaSignalTripsGovernorFlag(t *testing.T) {
	clk := newFakeClock()
	c := &scriptedClient{errs: []error{
		&openai.APIError{HTTPStatusCode: 429, Code: "insufficient_quota", Message: "You exceeded your current quota"},
	}}
	m := testMapper(c, clk)
	_, err := m.Map(context.Background(), orderText, "order.txt", record.KindPurchaseOrder)
	var ce *govern.CallError
	if !errors.As(err, &ce) || !ce.Transient {
		t.Fatalf("expected transient call error, got %v", err)
	}

	// The standing flag must hold subsequent calls until the next daily
	// boundary; the fake clock advances through the wait.
	var ran time.Time
	_, gerr := m.Governor.Execute(context.Background(), 0, func(context.Context) (string, error) {
		ran = clk.Now()
		return "ok", nil
	})
	if gerr != nil {
		t.Fatalf("execute: %v", gerr)
	}
	if ran.Before(time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("call admitted at %v, quota flag not honored", ran)
	}
}

func TestMap_ReinterpretsUnreadableText(t *testing.T) {
	c := &scriptedClient{replies: []string{
		"Purchase Order PO-5 from Apex Industrial Supplies, total amount 500.00",
		`{"isValid":true,"poData":{"poNumber":"PO-5","customerName":"Apex Industrial Supplies","totalAmount":500}}`,
	}}
	m := testMapper(c, newFakeClock())
	doc, err := m.Map(context.Background(), []byte("zzzz qqqq wwww xxxx"), "noise.txt", record.KindPurchaseOrder)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if c.calls != 2 {
		t.Fatalf("calls = %d, want cleanup then generation", c.calls)
	}
	if doc.Number != "PO-5" || doc.GrandTotal != 500 {
		t.Fatalf("doc = %+v", doc)
	}
}

func TestMap_ValidationFailureKeepsPartialRecord(t *testing.T) {
	c := &scriptedClient{replies: []string{
		`{"isValid":true,"poData":{"totalAmount":75}}`,
	}}
	m := testMapper(c, newFakeClock())
	doc, err := m.Map(context.Background(), []byte("an unlabeled scrap of invoice text mentioning a total somewhere"), "scrap.txt", record.KindPurchaseOrder)
	var ve *pipeline.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if doc.GrandTotal != 75 {
		t.Fatalf("partial record lost: %+v", doc)
	}
}
