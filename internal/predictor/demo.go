package predictor

import (
	"context"
	"sync"
	"time"

	"github.com/ayusman/signspeak/internal/detector"
)

// DemoInterval is the cadence at which the demo strategy emits predictions.
const DemoInterval = 3 * time.Second

// DemoCatalog is the fixed ordered catalog cycled by the demo strategy.
var DemoCatalog = []Prediction{
	{Label: "Hello", Confidence: 0.95},
	{Label: "Thank You", Confidence: 0.92},
	{Label: "Yes", Confidence: 0.88},
	{Label: "No", Confidence: 0.85},
	{Label: "Please", Confidence: 0.91},
	{Label: "Sorry", Confidence: 0.87},
	{Label: "Help", Confidence: 0.93},
	{Label: "Good Morning", Confidence: 0.89},
	{Label: "How Are You", Confidence: 0.86},
	{Label: "Goodbye", Confidence: 0.94},
}

// Demo cycles deterministically through a catalog. The position is never
// reset, so a reactivated demo continues where it left off.
type Demo struct {
	mu       sync.Mutex
	catalog  []Prediction
	next     int
	interval time.Duration
}

// NewDemo creates a demo strategy over DemoCatalog.
func NewDemo() *Demo {
	return NewDemoWithCatalog(DemoCatalog, DemoInterval)
}

// NewDemoWithCatalog creates a demo strategy over a custom catalog.
func NewDemoWithCatalog(catalog []Prediction, interval time.Duration) *Demo {
	c := make([]Prediction, len(catalog))
	copy(c, catalog)
	if interval <= 0 {
		interval = DemoInterval
	}
	return &Demo{catalog: c, interval: interval}
}

// Predict returns the next catalog entry. The landmarks themselves are not
// inspected; a nil hand (no hand present) yields no prediction.
func (d *Demo) Predict(_ context.Context, hand *detector.Hand) (*Prediction, error) {
	if hand == nil {
		return nil, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.catalog) == 0 {
		return nil, nil
	}

	p := d.catalog[d.next]
	d.next = (d.next + 1) % len(d.catalog)
	return &p, nil
}

// IsReady always reports true.
func (d *Demo) IsReady() bool {
	return true
}

// Interval returns the demo cadence.
func (d *Demo) Interval() time.Duration {
	return d.interval
}

// Position returns the catalog index of the next prediction.
func (d *Demo) Position() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.next
}
