package pipeline

import (
	"fmt"

	"ecommerce-dashboard/internal/models"
)

// maxAgeBuckets bounds the histogram size; validated ages never come close.
const maxAgeBuckets = 1000

// AgeHistogram partitions user ages into half-open buckets [Lower, Upper) of
// the given width, aligned to multiples of width. Empty buckets between the
// youngest and oldest user are kept so the x axis stays contiguous.
func AgeHistogram(users []models.User, width int) ([]models.AgeBucket, error) {
	if width < 1 {
		return nil, fmt.Errorf("histogram bin width must be positive, got %d", width)
	}
	if len(users) == 0 {
		return []models.AgeBucket{}, nil
	}

	lo, hi := bucketStart(users[0].Age, width), bucketStart(users[0].Age, width)
	for _, u := range users[1:] {
		start := bucketStart(u.Age, width)
		lo = min(lo, start)
		hi = max(hi, start)
	}

	if hi/width-lo/width >= maxAgeBuckets {
		return nil, fmt.Errorf("age range %d to %d needs more than %d buckets of width %d", lo, hi+width, maxAgeBuckets, width)
	}

	buckets := make([]models.AgeBucket, hi/width-lo/width+1)
	for i := range buckets {
		buckets[i].Lower = lo + i*width
		buckets[i].Upper = buckets[i].Lower + width
	}
	for _, u := range users {
		buckets[(bucketStart(u.Age, width)-lo)/width].Count++
	}
	return buckets, nil
}

func bucketStart(age, width int) int {
	start := age / width * width
	if age < 0 && age%width != 0 {
		start -= width
	}
	return start
}
