package hub

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/atikulmunna/geotail/internal/model"
)

// BenchmarkPublish measures broadcast cost with a few draining subscribers.
func BenchmarkPublish(b *testing.B) {
	h := New(nil)
	for i := 0; i < 4; i++ {
		sub := h.Subscribe()
		go func() {
			for range sub {
			}
		}()
	}
	defer h.Close()

	ev := model.Enriched{
		Event:    model.Event{IP: gofakeit.IPv4Address(), Method: "GET", Path: "/", Status: 200},
		Location: gofakeit.City(),
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		h.Publish(ev)
	}
}
