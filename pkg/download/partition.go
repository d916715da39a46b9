package download

import "fmt"

// ByteRange is an inclusive span of byte offsets. A range whose End is before its Start is empty.
type ByteRange struct {
	Index int
	Start int64
	End   int64
}

func (r ByteRange) Len() int64 {
	if r.End < r.Start {
		return 0
	}
	return r.End - r.Start + 1
}

// Header is the value of the Range request header for r.
func (r ByteRange) Header() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
}

func (r ByteRange) String() string {
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// Partition splits totalSize bytes into workers contiguous ranges of totalSize/workers bytes each,
// the last range absorbing the remainder. When workers exceeds totalSize every range but the last
// is empty.
func Partition(totalSize int64, workers int) ([]ByteRange, error) {
	if workers <= 0 {
		return nil, &ConfigurationError{Field: "worker count", Reason: fmt.Sprintf("%d is not positive", workers)}
	}
	if totalSize <= 0 {
		return nil, &ConfigurationError{Field: "total size", Reason: fmt.Sprintf("%d is not positive", totalSize)}
	}

	chunkSize := totalSize / int64(workers)
	ranges := make([]ByteRange, workers)
	for i := 0; i < workers; i++ {
		start := int64(i) * chunkSize
		end := start + chunkSize - 1
		if i == workers-1 {
			end = totalSize - 1
		}
		ranges[i] = ByteRange{Index: i, Start: start, End: end}
	}
	return ranges, nil
}
