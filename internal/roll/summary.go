package roll

import (
	"fmt"
	"sort"
	"strings"
)

// Standard six-sided die faces.
const (
	MinFace = 1
	MaxFace = 6
)

// Bucket is the number of times a value was recorded.
type Bucket struct {
	Value int `json:"value"`
	Count int `json:"count"`
}

// Summary is the frequency of each recorded value.
type Summary struct {
	// Faces holds one bucket per die face 1-6, always present.
	Faces []Bucket `json:"faces"`
	// Outliers holds values outside 1-6, sorted ascending. Only values that
	// were recorded appear here.
	Outliers []Bucket `json:"outliers"`
	// Total is the number of recorded values.
	Total int `json:"total"`
}

// Summarize counts each value in values.
// Values outside the die faces come from detector misfires and are counted
// as outliers rather than rejected, so bucket counts always sum to
// len(values).
func Summarize(values []int) Summary {
	s := Summary{
		Faces:    make([]Bucket, 0, MaxFace-MinFace+1),
		Outliers: []Bucket{},
		Total:    len(values),
	}

	var faces [MaxFace - MinFace + 1]int
	outliers := make(map[int]int)

	for _, v := range values {
		if v >= MinFace && v <= MaxFace {
			faces[v-MinFace]++
			continue
		}
		outliers[v]++
	}

	for i, count := range faces {
		s.Faces = append(s.Faces, Bucket{Value: i + MinFace, Count: count})
	}

	for v, count := range outliers {
		s.Outliers = append(s.Outliers, Bucket{Value: v, Count: count})
	}
	sort.Slice(s.Outliers, func(i, j int) bool {
		return s.Outliers[i].Value < s.Outliers[j].Value
	})

	return s
}

// Sorted returns every bucket ascending by value, face and outlier alike.
func (s Summary) Sorted() []Bucket {
	all := make([]Bucket, 0, len(s.Faces)+len(s.Outliers))
	all = append(all, s.Faces...)
	all = append(all, s.Outliers...)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Value < all[j].Value
	})
	return all
}

// Count returns how many times value was recorded.
func (s Summary) Count(value int) int {
	for _, b := range s.Sorted() {
		if b.Value == value {
			return b.Count
		}
	}
	return 0
}

// String formats the summary one bucket per line.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d rolls recorded\n", s.Total)
	for _, bucket := range s.Sorted() {
		fmt.Fprintf(&b, "%3d: %d\n", bucket.Value, bucket.Count)
	}
	return b.String()
}
