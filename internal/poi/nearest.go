package poi

import (
	"github.com/bgadrian/data-structures/priorityqueue"

	"storeloc/internal/geo"
)

const (
	queueBuckets = 100
	// Distances are queued in whole meters; anything farther shares the last slot.
	maxQueuedMeters = 2_000_000
)

// Ranked pairs a feature with its great-circle distance from an origin
type Ranked struct {
	Feature  *Feature
	Distance float64 // Meters
}

// Nearest returns up to n features ordered by distance from origin.
// n <= 0 returns every feature.
func Nearest(features []*Feature, origin geo.LatLon, n int) []Ranked {
	if len(features) == 0 {
		return nil
	}
	if n <= 0 || n > len(features) {
		n = len(features)
	}

	queue, err := priorityqueue.NewHierarchicalHeap(queueBuckets, 0, maxQueuedMeters, false)
	if err != nil {
		return nil
	}

	distances := make([]float64, len(features))
	for i, f := range features {
		distances[i] = geo.Distance(origin, f.Coordinate)

		priority := int(distances[i])
		if priority > maxQueuedMeters {
			priority = maxQueuedMeters
		}
		queue.Enqueue(i, priority)
	}

	ranked := make([]Ranked, 0, n)
	for size := len(features); size > 0 && len(ranked) < n; size-- {
		v, err := queue.Dequeue()
		if err != nil {
			break
		}
		i := v.(int)
		ranked = append(ranked, Ranked{Feature: features[i], Distance: distances[i]})
	}

	return ranked
}
