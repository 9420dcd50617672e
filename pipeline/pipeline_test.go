package pipeline

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/davfranco1/atrezzo-scraper/config"
	"github.com/davfranco1/atrezzo-scraper/models"
)

type mockWriter struct {
	mu       sync.Mutex
	batches  [][]*models.Product
	writeErr error
}

func (mw *mockWriter) Write(products []*models.Product) error {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	if mw.writeErr != nil {
		return mw.writeErr
	}
	copyBatch := make([]*models.Product, len(products))
	copy(copyBatch, products)
	mw.batches = append(mw.batches, copyBatch)
	return nil
}

func (mw *mockWriter) Close() error {
	return nil
}

func (mw *mockWriter) Validate() error {
	return nil
}

func (mw *mockWriter) flattened() []*models.Product {
	mw.mu.Lock()
	defer mw.mu.Unlock()
	var out []*models.Product
	for _, batch := range mw.batches {
		out = append(out, batch...)
	}
	return out
}

func testProducts(n int) []*models.Product {
	products := make([]*models.Product, 0, n)
	for i := 0; i < n; i++ {
		products = append(products, &models.Product{
			Name:        fmt.Sprintf("Producto %d", i),
			Category:    "Atrezo",
			Description: fmt.Sprintf("Descripción %d", i),
			Section:     "Nave 1",
			ImageURL:    fmt.Sprintf("img/%d.jpg", i),
		})
	}
	return products
}

func TestPipelinePreservesSubmissionOrder(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BatchSize = 2

	writer := &mockWriter{}
	p := NewPipeline(writer, cfg)
	p.Start(1)

	products := testProducts(5)
	if err := p.Process(products); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	written := writer.flattened()
	if len(written) != 5 {
		t.Fatalf("written=%d, want 5", len(written))
	}
	for i, row := range written {
		if row.Name != products[i].Name {
			t.Fatalf("row %d = %q, want %q", i, row.Name, products[i].Name)
		}
	}
}

func TestPipelineSkipsNilRows(t *testing.T) {
	cfg := config.DefaultConfig()
	writer := &mockWriter{}
	p := NewPipeline(writer, cfg)
	p.Start(1)

	if err := p.Process(nil); err != nil {
		t.Fatalf("process nil slice: %v", err)
	}
	if err := p.Process([]*models.Product{nil, testProducts(1)[0], nil}); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	if got := writer.flattened(); len(got) != 1 {
		t.Fatalf("written=%d, want 1", len(got))
	}
}

func TestPipelineProcessAfterClose(t *testing.T) {
	cfg := config.DefaultConfig()
	writer := &mockWriter{}
	p := NewPipeline(writer, cfg)
	p.Start(1)

	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := p.Process(testProducts(1)); !errors.Is(err, ErrPipelineClosed) {
		t.Fatalf("process after close = %v, want ErrPipelineClosed", err)
	}
}

func TestPipelineWriterErrorSurfacesOnClose(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BatchSize = 1

	writer := &mockWriter{writeErr: errors.New("disk full")}
	p := NewPipeline(writer, cfg)
	p.Start(1)

	// The enqueue may or may not observe the failure depending on timing;
	// Close must.
	_ = p.Process(testProducts(3))
	err := p.Close()
	if err == nil {
		t.Fatalf("expected write error from Close")
	}
	if !errors.Is(err, writer.writeErr) {
		t.Fatalf("close error = %v, want wrapped %v", err, writer.writeErr)
	}
}

func TestPipelineMetricsCountProcessed(t *testing.T) {
	cfg := config.DefaultConfig()
	writer := &mockWriter{}
	p := NewPipeline(writer, cfg)
	p.Start(1)

	if err := p.Process(testProducts(7)); err != nil {
		t.Fatalf("process: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	metrics := p.GetMetrics()
	if processed := metrics["processed_products"].(int64); processed != 7 {
		t.Fatalf("processed=%d, want 7", processed)
	}
}
